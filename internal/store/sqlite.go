package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes read-modify-write transactions (membership, watermarks)
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL for concurrent readers; immediate transactions so writers queue on busy_timeout.
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection would open its own empty in-memory database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		handle TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_groups (
		group_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		site TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL REFERENCES chat_groups(group_id),
		user_id TEXT NOT NULL REFERENCES users(user_id),
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT NOT NULL,
		recipient_id TEXT,
		group_id TEXT,
		content TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		is_sent INTEGER NOT NULL DEFAULT 1,
		sent_at INTEGER NOT NULL,
		CHECK ((recipient_id IS NULL) <> (group_id IS NULL))
	);
	CREATE INDEX IF NOT EXISTS idx_messages_private ON messages(sender_id, recipient_id, sent_at) WHERE recipient_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(recipient_id, is_read) WHERE recipient_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_id, sent_at) WHERE group_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS group_reads (
		group_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		last_read_id INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY,
		temperature_unit TEXT NOT NULL,
		alerts_enabled INTEGER NOT NULL,
		threshold_aqi REAL NOT NULL,
		threshold_pm10 REAL NOT NULL,
		threshold_pm25 REAL NOT NULL,
		threshold_no2 REAL NOT NULL,
		threshold_o3 REAL NOT NULL,
		threshold_co REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, retrying on SQLite write conflicts.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return shared.RetryOnConflict(ctx, op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", op, err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("rollback failed", "op", op, "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", op, err)
		}
		return nil
	})
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

// likePattern escapes LIKE wildcards and wraps the query for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// CreateUser inserts a user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO users (user_id, handle, display_name, created_at) VALUES (?, ?, ?, ?)`
	err := shared.RetryOnConflict(ctx, "create user", func() error {
		_, err := s.db.ExecContext(ctx, query, user.ID, user.Handle, user.DisplayName, millis(user.CreatedAt))
		return err
	})
	if shared.IsSQLiteUniqueError(err) {
		return fmt.Errorf("create user %q: %w", user.Handle, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userColumns = `user_id, handle, display_name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Handle, &user.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// GetUserByHandle retrieves a user by handle.
func (s *SQLiteStore) GetUserByHandle(ctx context.Context, handle string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE handle = ?`, handle)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// SearchUsers matches handle or display name.
func (s *SQLiteStore) SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := likePattern(q)
	query := `SELECT ` + userColumns + ` FROM users
		WHERE handle LIKE ? ESCAPE '\' OR display_name LIKE ? ESCAPE '\'
		ORDER BY handle LIMIT ?`
	return s.queryUsers(ctx, "search users", query, pattern, pattern, limit)
}

// ListUsers returns every user ordered by handle.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.queryUsers(ctx, "list users", `SELECT `+userColumns+` FROM users ORDER BY handle`)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, what, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer closeRows(rows, what)

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return users, nil
}

const preferencesColumns = `user_id, temperature_unit, alerts_enabled,
	threshold_aqi, threshold_pm10, threshold_pm25, threshold_no2, threshold_o3, threshold_co`

// GetPreferences returns the user's preferences, or nil when none exist.
func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+preferencesColumns+` FROM preferences WHERE user_id = ?`, userID)

	var p domain.Preferences
	var unit string
	err := row.Scan(&p.UserID, &unit, &p.AlertsEnabled,
		&p.AQI, &p.PM10, &p.PM25, &p.NO2, &p.O3, &p.CO)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan preferences: %w", err)
	}
	p.TemperatureUnit = domain.TemperatureUnit(unit)
	return &p, nil
}

// EnsurePreferences inserts defaults when the user has no preferences yet.
func (s *SQLiteStore) EnsurePreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	d := domain.DefaultPreferences(userID)
	query := `INSERT OR IGNORE INTO preferences (` + preferencesColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := shared.RetryOnConflict(ctx, "ensure preferences", func() error {
		_, err := s.db.ExecContext(ctx, query, d.UserID, string(d.TemperatureUnit), d.AlertsEnabled,
			d.AQI, d.PM10, d.PM25, d.NO2, d.O3, d.CO, millis(time.Now()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure preferences: %w", err)
	}
	return s.GetPreferences(ctx, userID)
}

// UpsertPreferences creates or replaces the user's preferences.
func (s *SQLiteStore) UpsertPreferences(ctx context.Context, p *domain.Preferences) error {
	query := `
	INSERT INTO preferences (` + preferencesColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		temperature_unit = excluded.temperature_unit,
		alerts_enabled = excluded.alerts_enabled,
		threshold_aqi = excluded.threshold_aqi,
		threshold_pm10 = excluded.threshold_pm10,
		threshold_pm25 = excluded.threshold_pm25,
		threshold_no2 = excluded.threshold_no2,
		threshold_o3 = excluded.threshold_o3,
		threshold_co = excluded.threshold_co,
		updated_at = excluded.updated_at`

	err := shared.RetryOnConflict(ctx, "upsert preferences", func() error {
		_, err := s.db.ExecContext(ctx, query, p.UserID, string(p.TemperatureUnit), p.AlertsEnabled,
			p.AQI, p.PM10, p.PM25, p.NO2, p.O3, p.CO, millis(time.Now()))
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// AlertingUsers lists users with alerting enabled.
func (s *SQLiteStore) AlertingUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM preferences WHERE alerts_enabled = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query alerting users: %w", err)
	}
	defer closeRows(rows, "alerting users")

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan alerting user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerting users: %w", err)
	}
	return ids, nil
}

// CreateAlert appends an alert record.
func (s *SQLiteStore) CreateAlert(ctx context.Context, rec *domain.AlertRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO alerts (user_id, type, message, created_at) VALUES (?, ?, ?, ?)`
	return shared.RetryOnConflict(ctx, "create alert", func() error {
		res, err := s.db.ExecContext(ctx, query, rec.UserID, string(rec.Type), rec.Message, millis(rec.Timestamp))
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("alert last insert id: %w", err)
		}
		rec.ID = id
		return nil
	})
}

// AlertsForUser returns the user's alerts, newest first.
func (s *SQLiteStore) AlertsForUser(ctx context.Context, userID string, limit int) ([]*domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, user_id, type, message, created_at FROM alerts
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer closeRows(rows, "alerts")

	alerts := []*domain.AlertRecord{}
	for rows.Next() {
		var rec domain.AlertRecord
		var typ string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &typ, &rec.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		rec.Type = domain.AlertType(typ)
		rec.Timestamp = fromMillis(createdAt)
		alerts = append(alerts, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}
