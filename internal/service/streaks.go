package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ognivo/streak-api/internal/model"
	"github.com/ognivo/streak-api/internal/repository"
)

// Domain errors. The texts are user-facing and fixed by the frontend,
// including the Russian ones, so they must stay verbatim.
var (
	ErrInviterNotRegistered = errors.New("Inviter not registered")
	ErrInviteeNotRegistered = errors.New("Пользователь не зарегистрирован")
	ErrStreakExists         = errors.New("Streak already exists")
	ErrStreakNotFound       = errors.New("Streak not found")
	ErrSenderNotFound       = errors.New("Sender not found")
	ErrUserNotFound         = errors.New("User not found")
	ErrRestoreLimit         = errors.New("Лимит восстановлений исчерпан (3 раза в месяц)")
	ErrStreakStillActive    = errors.New("Streak is still active")
)

// DomainErrors lists the failures that are reported to the caller as a
// regular error result rather than an infrastructure fault.
var DomainErrors = []error{
	ErrInviterNotRegistered,
	ErrInviteeNotRegistered,
	ErrStreakExists,
	ErrStreakNotFound,
	ErrSenderNotFound,
	ErrUserNotFound,
	ErrRestoreLimit,
	ErrStreakStillActive,
}

// IsDomainError reports whether err is one of the domain failures.
func IsDomainError(err error) bool {
	for _, domain := range DomainErrors {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}

// StreakService implements the streak operations on top of the store.
type StreakService struct {
	users    repository.UserRepository
	streaks  repository.StreakRepository
	messages repository.MessageRepository
}

func NewStreakService(users repository.UserRepository, streaks repository.StreakRepository, messages repository.MessageRepository) *StreakService {
	return &StreakService{users: users, streaks: streaks, messages: messages}
}

type RegisterResult struct {
	Status string      `json:"status"`
	User   *model.User `json:"user"`
}

// Register creates the user on first contact. Calling it again with the
// same telegram id is a no-op that reports already_registered.
func (s *StreakService) Register(ctx context.Context, telegramID int64, username, firstName string) (*RegisterResult, error) {
	existing, err := s.users.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return &RegisterResult{Status: "already_registered", User: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	created, err := s.users.CreateUser(ctx, &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &RegisterResult{Status: "registered", User: created}, nil
}

type InviteResult struct {
	Status  string        `json:"status"`
	Streak  *model.Streak `json:"streak"`
	Invitee *model.User   `json:"invitee"`
}

// Invite creates a pending streak between the inviter and the user with
// the given username. The pair is stored with the lower user id first,
// so a second invite in either direction hits the same row and is
// rejected whatever the streak's status.
func (s *StreakService) Invite(ctx context.Context, inviterTelegramID int64, inviteeUsername string) (*InviteResult, error) {
	inviter, err := s.users.GetByTelegramID(ctx, inviterTelegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviterNotRegistered
		}
		return nil, fmt.Errorf("look up inviter: %w", err)
	}
	invitee, err := s.users.GetByUsername(ctx, inviteeUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviteeNotRegistered
		}
		return nil, fmt.Errorf("look up invitee: %w", err)
	}

	user1ID, user2ID := inviter.ID, invitee.ID
	if user1ID > user2ID {
		user1ID, user2ID = user2ID, user1ID
	}

	if _, err := s.streaks.GetByPair(ctx, user1ID, user2ID); err == nil {
		return nil, ErrStreakExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up streak: %w", err)
	}

	streak, err := s.streaks.CreateStreak(ctx, &model.Streak{
		User1ID: user1ID,
		User2ID: user2ID,
		Status:  model.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create streak: %w", err)
	}
	return &InviteResult{Status: "invite_sent", Streak: streak, Invitee: invitee}, nil
}

type AcceptInviteResult struct {
	Status string        `json:"status"`
	Streak *model.Streak `json:"streak"`
}

// AcceptInvite activates the streak and stamps today as its activity
// day. There is deliberately no check that the streak was pending or
// that the caller is a participant; the gateway in front of this
// service is trusted to have authorized the call.
func (s *StreakService) AcceptInvite(ctx context.Context, streakID int64) (*AcceptInviteResult, error) {
	streak, err := s.streaks.Activate(ctx, streakID, model.Today())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("activate streak: %w", err)
	}
	return &AcceptInviteResult{Status: "accepted", Streak: streak}, nil
}

type SendMessageResult struct {
	Status  string         `json:"status"`
	Message *model.Message `json:"message"`
	Streak  *model.Streak  `json:"streak"`
}

// SendMessage records a message and applies the continuation rule:
// activity on the same day leaves the counter alone, activity one day
// after the last extends it, anything else resets it to 1. The message
// row is inserted in every branch.
//
// The rule is read-decide-write; two participants sending at the same
// moment around midnight can race it. The original behaves the same
// way and the window is accepted here too.
func (s *StreakService) SendMessage(ctx context.Context, streakID, senderTelegramID int64, text string) (*SendMessageResult, error) {
	sender, err := s.users.GetByTelegramID(ctx, senderTelegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("look up sender: %w", err)
	}
	streak, err := s.streaks.Get(ctx, streakID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("look up streak: %w", err)
	}

	today := model.Today()
	last := streak.LastActivityDate
	switch {
	case last != nil && last.Equal(today):
		// second message today, the counter already moved
	case last != nil && last.Equal(today.AddDays(-1)):
		if err := s.streaks.Advance(ctx, streak.ID, today); err != nil {
			return nil, fmt.Errorf("advance streak: %w", err)
		}
	default:
		if err := s.streaks.Reset(ctx, streak.ID, today); err != nil {
			return nil, fmt.Errorf("reset streak: %w", err)
		}
	}

	message, err := s.messages.CreateMessage(ctx, &model.Message{
		StreakID:    streak.ID,
		SenderID:    sender.ID,
		MessageText: text,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	updated, err := s.streaks.Get(ctx, streak.ID)
	if err != nil {
		return nil, fmt.Errorf("reload streak: %w", err)
	}
	return &SendMessageResult{Status: "message_sent", Message: message, Streak: updated}, nil
}

type StreaksResult struct {
	Status  string              `json:"status"`
	Streaks []*model.StreakView `json:"streaks"`
	User    *model.User         `json:"user"`
}

// GetStreaks lists the user's active streaks, most recent activity
// first, with participant names and the unread count of messages from
// the other side.
func (s *StreakService) GetStreaks(ctx context.Context, telegramID int64) (*StreaksResult, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	views, err := s.streaks.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	return &StreaksResult{Status: "success", Streaks: views, User: user}, nil
}

type RestoreResult struct {
	Status       string        `json:"status"`
	Streak       *model.Streak `json:"streak"`
	RestoresLeft int           `json:"restores_left"`
}

// RestoreStreak revives a lapsed streak: it stamps today as the
// activity day while leaving the counter untouched. Allowed up to
// three times per calendar month; the stored count is treated as zero
// when it belongs to an earlier month. A streak whose last activity is
// today or yesterday is not lapsed and cannot be restored.
func (s *StreakService) RestoreStreak(ctx context.Context, streakID int64) (*RestoreResult, error) {
	streak, err := s.streaks.Get(ctx, streakID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("look up streak: %w", err)
	}

	month := int(time.Now().Month())
	count := streak.RestoreCount
	if streak.RestoreMonth != month {
		count = 0
	}
	if count >= model.MaxRestoresPerMonth {
		return nil, ErrRestoreLimit
	}
	today := model.Today()
	if streak.LastActivityDate != nil && today.DaysSince(*streak.LastActivityDate) <= 1 {
		return nil, ErrStreakStillActive
	}

	updated, err := s.streaks.Restore(ctx, streak.ID, count+1, month, today)
	if err != nil {
		return nil, fmt.Errorf("restore streak: %w", err)
	}
	return &RestoreResult{
		Status:       "restored",
		Streak:       updated,
		RestoresLeft: model.MaxRestoresPerMonth - (count + 1),
	}, nil
}

type CheckDailyResult struct {
	Status         string          `json:"status"`
	ExpiredCount   int             `json:"expired_count"`
	ExpiredStreaks []*model.Streak `json:"expired_streaks"`
}

// CheckDaily reports the active streaks whose last activity is older
// than yesterday. It is a read-only sweep: the rows keep their active
// status, and flipping them to expired is left to the caller.
func (s *StreakService) CheckDaily(ctx context.Context) (*CheckDailyResult, error) {
	yesterday := model.Today().AddDays(-1)
	lapsed, err := s.streaks.ListLapsed(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("list lapsed streaks: %w", err)
	}
	return &CheckDailyResult{
		Status:         "checked",
		ExpiredCount:   len(lapsed),
		ExpiredStreaks: lapsed,
	}, nil
}
