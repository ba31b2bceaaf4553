package repository

import (
	"context"
	"errors"

	"github.com/ognivo/streak-api/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository abstracts persistence of users.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// StreakRepository abstracts persistence of streaks. Mutations take the
// activity day as an argument so the store never consults the clock.
type StreakRepository interface {
	CreateStreak(ctx context.Context, s *model.Streak) (*model.Streak, error)
	Get(ctx context.Context, id int64) (*model.Streak, error)
	GetByPair(ctx context.Context, user1ID, user2ID int64) (*model.Streak, error)
	// Activate sets status to active and stamps the activity day.
	Activate(ctx context.Context, id int64, day model.Date) (*model.Streak, error)
	// Advance increments the counter and stamps the activity day.
	Advance(ctx context.Context, id int64, day model.Date) error
	// Reset sets the counter back to 1 and stamps the activity day.
	Reset(ctx context.Context, id int64, day model.Date) error
	// Restore records a restore: new count, new month, activity day.
	Restore(ctx context.Context, id int64, count, month int, day model.Date) (*model.Streak, error)
	// ListActiveByUser returns the user's active streaks enriched with
	// participant names and unread counts, most recent activity first.
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.StreakView, error)
	// ListLapsed returns active streaks whose last activity is strictly
	// before the given day.
	ListLapsed(ctx context.Context, before model.Date) ([]*model.Streak, error)
}

// MessageRepository abstracts persistence of messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, m *model.Message) (*model.Message, error)
}

// Store bundles the repositories a single backend provides.
type Store interface {
	UserRepository
	StreakRepository
	MessageRepository
	Close() error
}
