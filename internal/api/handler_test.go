package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ognivo/streak-api/internal/repository"
	"github.com/ognivo/streak-api/internal/service"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "streaks.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(service.NewStreakService(store, store, store))
}

func do(t *testing.T, h *Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, payload
}

func TestHandler_RegisterFlow(t *testing.T) {
	h := newTestHandler(t)

	code, payload := do(t, h, `{"action":"register","telegram_id":100,"username":"alice","first_name":"Alice"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["status"] != "registered" {
		t.Fatalf("expected registered, got %v", payload)
	}
	user, ok := payload["user"].(map[string]any)
	if !ok || user["username"] != "alice" {
		t.Fatalf("unexpected user payload: %v", payload["user"])
	}

	_, payload = do(t, h, `{"action":"register","telegram_id":100,"username":"alice","first_name":"Alice"}`)
	if payload["status"] != "already_registered" {
		t.Fatalf("expected already_registered, got %v", payload)
	}
}

func TestHandler_FullExchange(t *testing.T) {
	h := newTestHandler(t)

	do(t, h, `{"action":"register","telegram_id":1,"username":"alice","first_name":"Alice"}`)
	do(t, h, `{"action":"register","telegram_id":2,"username":"bob","first_name":"Bob"}`)

	_, payload := do(t, h, `{"action":"invite","inviter_telegram_id":1,"invitee_username":"bob"}`)
	if payload["status"] != "invite_sent" {
		t.Fatalf("expected invite_sent, got %v", payload)
	}
	streak := payload["streak"].(map[string]any)
	streakID := int64(streak["id"].(float64))

	_, payload = do(t, h, `{"action":"accept_invite","streak_id":1}`)
	if payload["status"] != "accepted" {
		t.Fatalf("expected accepted, got %v", payload)
	}

	_, payload = do(t, h, `{"action":"send_message","streak_id":1,"sender_telegram_id":2,"message_text":"привет"}`)
	if payload["status"] != "message_sent" {
		t.Fatalf("expected message_sent, got %v", payload)
	}
	msg := payload["message"].(map[string]any)
	if msg["message_text"] != "привет" || int64(msg["streak_id"].(float64)) != streakID {
		t.Fatalf("unexpected message payload: %v", msg)
	}

	_, payload = do(t, h, `{"action":"get_streaks","telegram_id":1}`)
	if payload["status"] != "success" {
		t.Fatalf("expected success, got %v", payload)
	}
	streaks := payload["streaks"].([]any)
	if len(streaks) != 1 {
		t.Fatalf("expected 1 streak, got %d", len(streaks))
	}
	view := streaks[0].(map[string]any)
	if view["unread_count"].(float64) != 1 {
		t.Fatalf("expected 1 unread, got %v", view["unread_count"])
	}
	if view["user2_username"] != "bob" && view["user1_username"] != "bob" {
		t.Fatalf("participant names missing: %v", view)
	}

	_, payload = do(t, h, `{"action":"check_daily"}`)
	if payload["status"] != "checked" || payload["expired_count"].(float64) != 0 {
		t.Fatalf("unexpected sweep result: %v", payload)
	}
	if _, ok := payload["expired_streaks"].([]any); !ok {
		t.Fatalf("expected expired_streaks list, got %v", payload["expired_streaks"])
	}
}

func TestHandler_DomainErrorsKeep200(t *testing.T) {
	h := newTestHandler(t)

	code, payload := do(t, h, `{"action":"invite","inviter_telegram_id":999,"invitee_username":"bob"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200 for a domain error, got %d", code)
	}
	if payload["error"] != "Inviter not registered" {
		t.Fatalf("unexpected error text: %v", payload["error"])
	}

	do(t, h, `{"action":"register","telegram_id":1,"username":"alice","first_name":"Alice"}`)
	_, payload = do(t, h, `{"action":"invite","inviter_telegram_id":1,"invitee_username":"nobody"}`)
	if payload["error"] != "Пользователь не зарегистрирован" {
		t.Fatalf("localized error text changed: %v", payload["error"])
	}

	_, payload = do(t, h, `{"action":"restore_streak","streak_id":42}`)
	if payload["error"] != "Streak not found" {
		t.Fatalf("unexpected error text: %v", payload["error"])
	}
}

func TestHandler_UnknownAction(t *testing.T) {
	h := newTestHandler(t)

	code, payload := do(t, h, `{"action":"drop_tables"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["error"] != "Unknown action" {
		t.Fatalf("unexpected error text: %v", payload["error"])
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	h := newTestHandler(t)

	code, payload := do(t, h, `{"action":`)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for malformed JSON, got %d", code)
	}
	if payload["error"] == "" {
		t.Fatalf("expected the raw error text, got %v", payload)
	}
}

func TestHandler_Preflight(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	headers := rec.Header()
	if headers.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow-origin header")
	}
	if headers.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
		t.Fatalf("unexpected allow-methods: %q", headers.Get("Access-Control-Allow-Methods"))
	}
	if headers.Get("Access-Control-Allow-Headers") != "Content-Type, X-User-Id" {
		t.Fatalf("unexpected allow-headers: %q", headers.Get("Access-Control-Allow-Headers"))
	}
	if headers.Get("Access-Control-Max-Age") != "86400" {
		t.Fatalf("unexpected max-age: %q", headers.Get("Access-Control-Max-Age"))
	}
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
