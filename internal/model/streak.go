package model

import "time"

// StreakStatus is the lifecycle state of a streak.
type StreakStatus string

const (
	StatusPending StreakStatus = "pending"
	StatusActive  StreakStatus = "active"
	StatusExpired StreakStatus = "expired"
)

// MaxRestoresPerMonth caps how many times a lapsed streak can be
// restored within one calendar month.
const MaxRestoresPerMonth = 3

// User is a registered participant bound to a Telegram account.
type User struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
}

// Streak is the consecutive-day counter shared by an unordered pair of
// users. The pair is stored canonically with User1ID < User2ID so that
// (A,B) and (B,A) map to the same row.
type Streak struct {
	ID               int64        `json:"id"`
	User1ID          int64        `json:"user1_id"`
	User2ID          int64        `json:"user2_id"`
	Status           StreakStatus `json:"status"`
	CurrentStreak    int          `json:"current_streak"`
	LastActivityDate *Date        `json:"last_activity_date"`
	RestoreCount     int          `json:"restore_count"`
	RestoreMonth     int          `json:"restore_month"`
}

// Message is a single message exchanged within a streak.
type Message struct {
	ID          int64     `json:"id"`
	StreakID    int64     `json:"streak_id"`
	SenderID    int64     `json:"sender_id"`
	MessageText string    `json:"message_text"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// StreakView is a streak enriched with both participants' display
// fields and the count of unread messages from the other participant.
// Field names follow the wire format the frontend expects.
type StreakView struct {
	Streak
	User1Username string `json:"user1_username"`
	User1Name     string `json:"user1_name"`
	User2Username string `json:"user2_username"`
	User2Name     string `json:"user2_name"`
	UnreadCount   int    `json:"unread_count"`
}
