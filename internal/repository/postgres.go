package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ognivo/streak-api/internal/model"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps all three relations in a Postgres database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init() error {
	_, err := s.db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            telegram_id BIGINT NOT NULL UNIQUE,
            username TEXT UNIQUE,
            first_name TEXT NOT NULL DEFAULT ''
        );
        CREATE TABLE IF NOT EXISTS streaks (
            id BIGSERIAL PRIMARY KEY,
            user1_id BIGINT NOT NULL REFERENCES users(id),
            user2_id BIGINT NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            current_streak INTEGER NOT NULL DEFAULT 0,
            last_activity_date DATE,
            restore_count INTEGER NOT NULL DEFAULT 0,
            restore_month INTEGER NOT NULL DEFAULT 0,
            UNIQUE (user1_id, user2_id)
        );
        CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            streak_id BIGINT NOT NULL REFERENCES streaks(id) ON DELETE CASCADE,
            sender_id BIGINT NOT NULL REFERENCES users(id),
            message_text TEXT NOT NULL DEFAULT '',
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name) VALUES ($1, $2, $3) RETURNING id`,
		u.TelegramID, nullString(u.Username), u.FirstName)
	created := *u
	if err := row.Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *PostgresStore) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name FROM users WHERE telegram_id = $1`, telegramID)
	return scanUser(row)
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name FROM users WHERE username = $1`, username)
	return scanUser(row)
}

const pgStreakCols = `id, user1_id, user2_id, status, current_streak, last_activity_date, restore_count, restore_month`

func (s *PostgresStore) CreateStreak(ctx context.Context, st *model.Streak) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO streaks (user1_id, user2_id, status) VALUES ($1, $2, $3) RETURNING `+pgStreakCols,
		st.User1ID, st.User2ID, string(st.Status))
	return scanStreak(row)
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pgStreakCols+` FROM streaks WHERE id = $1`, id)
	return scanStreak(row)
}

func (s *PostgresStore) GetByPair(ctx context.Context, user1ID, user2ID int64) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pgStreakCols+` FROM streaks WHERE user1_id = $1 AND user2_id = $2`, user1ID, user2ID)
	return scanStreak(row)
}

func (s *PostgresStore) Activate(ctx context.Context, id int64, day model.Date) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE streaks SET status = 'active', last_activity_date = $1 WHERE id = $2 RETURNING `+pgStreakCols,
		day, id)
	return scanStreak(row)
}

func (s *PostgresStore) Advance(ctx context.Context, id int64, day model.Date) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE streaks SET current_streak = current_streak + 1, last_activity_date = $1 WHERE id = $2`,
		day, id)
	return err
}

func (s *PostgresStore) Reset(ctx context.Context, id int64, day model.Date) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE streaks SET current_streak = 1, last_activity_date = $1 WHERE id = $2`,
		day, id)
	return err
}

func (s *PostgresStore) Restore(ctx context.Context, id int64, count, month int, day model.Date) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE streaks SET restore_count = $1, restore_month = $2, last_activity_date = $3 WHERE id = $4 RETURNING `+pgStreakCols,
		count, month, day, id)
	return scanStreak(row)
}

func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID int64) ([]*model.StreakView, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.user1_id, s.user2_id, s.status, s.current_streak, s.last_activity_date, s.restore_count, s.restore_month,
               u1.username, u1.first_name, u2.username, u2.first_name,
               (SELECT COUNT(*) FROM messages m WHERE m.streak_id = s.id AND m.is_read = FALSE AND m.sender_id <> $1) AS unread_count
        FROM streaks s
        JOIN users u1 ON u1.id = s.user1_id
        JOIN users u2 ON u2.id = s.user2_id
        WHERE (s.user1_id = $1 OR s.user2_id = $1) AND s.status = 'active'
        ORDER BY s.last_activity_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreakViews(rows)
}

func (s *PostgresStore) ListLapsed(ctx context.Context, before model.Date) ([]*model.Streak, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pgStreakCols+` FROM streaks WHERE status = 'active' AND last_activity_date < $1`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreaks(rows)
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *model.Message) (*model.Message, error) {
	created := *m
	created.CreatedAt = time.Now().UTC()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (streak_id, sender_id, message_text, is_read, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.StreakID, m.SenderID, m.MessageText, m.IsRead, created.CreatedAt)
	if err := row.Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

// scanning helpers shared by both backends

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var username sql.NullString
	if err := row.Scan(&u.ID, &u.TelegramID, &username, &u.FirstName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Username = username.String
	return &u, nil
}

func scanStreak(row rowScanner) (*model.Streak, error) {
	var st model.Streak
	var last model.NullDate
	if err := row.Scan(&st.ID, &st.User1ID, &st.User2ID, &st.Status, &st.CurrentStreak, &last, &st.RestoreCount, &st.RestoreMonth); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st.LastActivityDate = last.Ptr()
	return &st, nil
}

func scanStreaks(rows *sql.Rows) ([]*model.Streak, error) {
	result := []*model.Streak{}
	for rows.Next() {
		st, err := scanStreak(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func scanStreakViews(rows *sql.Rows) ([]*model.StreakView, error) {
	result := []*model.StreakView{}
	for rows.Next() {
		var v model.StreakView
		var last model.NullDate
		var u1name, u2name sql.NullString
		if err := rows.Scan(&v.ID, &v.User1ID, &v.User2ID, &v.Status, &v.CurrentStreak, &last, &v.RestoreCount, &v.RestoreMonth,
			&u1name, &v.User1Name, &u2name, &v.User2Name, &v.UnreadCount); err != nil {
			return nil, err
		}
		v.LastActivityDate = last.Ptr()
		v.User1Username = u1name.String
		v.User2Username = u2name.String
		result = append(result, &v)
	}
	return result, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
