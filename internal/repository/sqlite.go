package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ognivo/streak-api/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all three relations in a sqlite database. It backs
// local development and the tests; dates are stored as YYYY-MM-DD text,
// which compares correctly with the same SQL the Postgres store uses.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; a second pooled connection would
	// fail with SQLITE_BUSY instead of queueing.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            telegram_id INTEGER NOT NULL UNIQUE,
            username TEXT UNIQUE,
            first_name TEXT NOT NULL DEFAULT ''
        );
        CREATE TABLE IF NOT EXISTS streaks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user1_id INTEGER NOT NULL REFERENCES users(id),
            user2_id INTEGER NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            current_streak INTEGER NOT NULL DEFAULT 0,
            last_activity_date TEXT,
            restore_count INTEGER NOT NULL DEFAULT 0,
            restore_month INTEGER NOT NULL DEFAULT 0,
            UNIQUE (user1_id, user2_id)
        );
        CREATE TABLE IF NOT EXISTS messages (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            streak_id INTEGER NOT NULL REFERENCES streaks(id) ON DELETE CASCADE,
            sender_id INTEGER NOT NULL REFERENCES users(id),
            message_text TEXT NOT NULL DEFAULT '',
            is_read INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL DEFAULT ''
        )`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name) VALUES (?, ?, ?) RETURNING id`,
		u.TelegramID, nullString(u.Username), u.FirstName)
	created := *u
	if err := row.Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *SQLiteStore) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name FROM users WHERE username = ?`, username)
	return scanUser(row)
}

const sqliteStreakCols = `id, user1_id, user2_id, status, current_streak, last_activity_date, restore_count, restore_month`

func (s *SQLiteStore) CreateStreak(ctx context.Context, st *model.Streak) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO streaks (user1_id, user2_id, status) VALUES (?, ?, ?) RETURNING `+sqliteStreakCols,
		st.User1ID, st.User2ID, string(st.Status))
	return scanStreak(row)
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteStreakCols+` FROM streaks WHERE id = ?`, id)
	return scanStreak(row)
}

func (s *SQLiteStore) GetByPair(ctx context.Context, user1ID, user2ID int64) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteStreakCols+` FROM streaks WHERE user1_id = ? AND user2_id = ?`, user1ID, user2ID)
	return scanStreak(row)
}

func (s *SQLiteStore) Activate(ctx context.Context, id int64, day model.Date) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE streaks SET status = 'active', last_activity_date = ? WHERE id = ? RETURNING `+sqliteStreakCols,
		day, id)
	return scanStreak(row)
}

func (s *SQLiteStore) Advance(ctx context.Context, id int64, day model.Date) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE streaks SET current_streak = current_streak + 1, last_activity_date = ? WHERE id = ?`,
		day, id)
	return err
}

func (s *SQLiteStore) Reset(ctx context.Context, id int64, day model.Date) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE streaks SET current_streak = 1, last_activity_date = ? WHERE id = ?`,
		day, id)
	return err
}

func (s *SQLiteStore) Restore(ctx context.Context, id int64, count, month int, day model.Date) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE streaks SET restore_count = ?, restore_month = ?, last_activity_date = ? WHERE id = ? RETURNING `+sqliteStreakCols,
		count, month, day, id)
	return scanStreak(row)
}

func (s *SQLiteStore) ListActiveByUser(ctx context.Context, userID int64) ([]*model.StreakView, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.user1_id, s.user2_id, s.status, s.current_streak, s.last_activity_date, s.restore_count, s.restore_month,
               u1.username, u1.first_name, u2.username, u2.first_name,
               (SELECT COUNT(*) FROM messages m WHERE m.streak_id = s.id AND m.is_read = 0 AND m.sender_id <> ?) AS unread_count
        FROM streaks s
        JOIN users u1 ON u1.id = s.user1_id
        JOIN users u2 ON u2.id = s.user2_id
        WHERE (s.user1_id = ? OR s.user2_id = ?) AND s.status = 'active'
        ORDER BY s.last_activity_date DESC`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreakViews(rows)
}

func (s *SQLiteStore) ListLapsed(ctx context.Context, before model.Date) ([]*model.Streak, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteStreakCols+` FROM streaks WHERE status = 'active' AND last_activity_date < ?`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreaks(rows)
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, m *model.Message) (*model.Message, error) {
	created := *m
	created.CreatedAt = time.Now().UTC()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (streak_id, sender_id, message_text, is_read, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		m.StreakID, m.SenderID, m.MessageText, m.IsRead, created.CreatedAt.Format(time.RFC3339),
	)
	if err := row.Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}
