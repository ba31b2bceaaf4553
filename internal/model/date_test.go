package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_Arithmetic(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.AddDays(-1).String(); got != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", got)
	}
	if got := d.AddDays(31).String(); got != "2025-04-01" {
		t.Fatalf("expected 2025-04-01, got %s", got)
	}
	if got := d.DaysSince(d.AddDays(-3)); got != 3 {
		t.Fatalf("expected 3 days, got %d", got)
	}
	if got := d.DaysSince(d.AddDays(2)); got != -2 {
		t.Fatalf("expected -2 days, got %d", got)
	}
	if !d.Equal(DateOf(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC))) {
		t.Fatalf("time of day must not affect equality")
	}
}

func TestDate_JSON(t *testing.T) {
	d, _ := ParseDate("2025-03-01")
	b, err := json.Marshal(struct {
		Day *Date `json:"day"`
	}{Day: &d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"day":"2025-03-01"}` {
		t.Fatalf("unexpected JSON: %s", b)
	}

	b, _ = json.Marshal(struct {
		Day *Date `json:"day"`
	}{})
	if string(b) != `{"day":null}` {
		t.Fatalf("expected null for missing date, got %s", b)
	}

	var parsed Date
	if err := json.Unmarshal([]byte(`"2025-12-31"`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.String() != "2025-12-31" {
		t.Fatalf("round trip changed the date: %s", parsed)
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan("2025-03-01"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if d.String() != "2025-03-01" {
		t.Fatalf("unexpected date: %s", d)
	}
	if err := d.Scan(time.Date(2025, 6, 15, 13, 45, 0, 0, time.Local)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2025-06-15" {
		t.Fatalf("unexpected date: %s", d)
	}

	var n NullDate
	if err := n.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if n.Valid || n.Ptr() != nil {
		t.Fatalf("expected invalid null date")
	}
	if err := n.Scan("2025-03-01"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !n.Valid || n.Ptr().String() != "2025-03-01" {
		t.Fatalf("unexpected null date: %+v", n)
	}
}
