package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository and ChallengeStore using SQLite. The
// in-memory ChallengeStore is the default; this backend exists for
// deployments that must survive restarts without re-issuing challenges.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS homes (
		home_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alexa_mappings (
		alexa_user_id TEXT PRIMARY KEY,
		home_id TEXT NOT NULL REFERENCES homes(home_id),
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mappings_home ON alexa_mappings(home_id);

	CREATE TABLE IF NOT EXISTS challenges (
		namespace TEXT NOT NULL,
		identifier TEXT NOT NULL,
		phrase TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		intent TEXT,
		PRIMARY KEY (namespace, identifier)
	);
	CREATE INDEX IF NOT EXISTS idx_challenges_expires ON challenges(expires_at);
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

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AddChallenge stores a new challenge. The composite primary key enforces
// the one-live-challenge-per-key invariant.
func (s *SQLiteStore) AddChallenge(ctx context.Context, c *domain.Challenge) error {
	query := `
		INSERT INTO challenges (namespace, identifier, phrase, status, created_at, expires_at, attempts, intent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	intent := sql.NullString{String: c.Intent, Valid: c.Intent != ""}
	_, err := s.db.ExecContext(ctx, query,
		string(c.Namespace), c.Identifier, c.Phrase, string(c.Status),
		c.CreatedAt.Unix(), c.ExpiresAt.Unix(), c.Attempts, intent,
	)
	if isUniqueViolation(err) {
		return ErrChallengeExists
	}
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// GetChallenge looks up a challenge, returning (nil, nil) when absent.
func (s *SQLiteStore) GetChallenge(ctx context.Context, ns domain.Namespace, identifier string) (*domain.Challenge, error) {
	query := `
		SELECT namespace, identifier, phrase, status, created_at, expires_at, attempts, intent
		FROM challenges WHERE namespace = ? AND identifier = ?`

	row := s.db.QueryRowContext(ctx, query, string(ns), identifier)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan challenge row: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*domain.Challenge, error) {
	var c domain.Challenge
	var ns, status string
	var intent sql.NullString
	var createdAt, expiresAt int64

	err := row.Scan(&ns, &c.Identifier, &c.Phrase, &status, &createdAt, &expiresAt, &c.Attempts, &intent)
	if err != nil {
		return nil, err
	}

	c.Namespace = domain.Namespace(ns)
	c.Status = domain.ChallengeStatus(status)
	c.CreatedAt = time.Unix(createdAt, 0)
	c.ExpiresAt = time.Unix(expiresAt, 0)
	c.Intent = intent.String
	return &c, nil
}

// UpdateChallenge replaces a stored challenge in place.
func (s *SQLiteStore) UpdateChallenge(ctx context.Context, c *domain.Challenge) error {
	query := `
		UPDATE challenges
		SET phrase = ?, status = ?, created_at = ?, expires_at = ?, attempts = ?, intent = ?
		WHERE namespace = ? AND identifier = ?`

	intent := sql.NullString{String: c.Intent, Valid: c.Intent != ""}
	result, err := s.db.ExecContext(ctx, query,
		c.Phrase, string(c.Status), c.CreatedAt.Unix(), c.ExpiresAt.Unix(), c.Attempts, intent,
		string(c.Namespace), c.Identifier,
	)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// DeleteChallenge removes a challenge, reporting whether it existed.
func (s *SQLiteStore) DeleteChallenge(ctx context.Context, ns domain.Namespace, identifier string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE namespace = ? AND identifier = ?`,
		string(ns), identifier,
	)
	if err != nil {
		return false, fmt.Errorf("delete challenge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// SweepExpired removes challenges expiring strictly before the given time.
func (s *SQLiteStore) SweepExpired(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at < ?`, before.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep expired challenges: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rows), nil
}

// ListChallenges returns challenges in the namespace, or in all namespaces
// when ns is empty.
func (s *SQLiteStore) ListChallenges(ctx context.Context, ns domain.Namespace) ([]*domain.Challenge, error) {
	query := `
		SELECT namespace, identifier, phrase, status, created_at, expires_at, attempts, intent
		FROM challenges`
	args := []any{}
	if ns != "" {
		query += ` WHERE namespace = ?`
		args = append(args, string(ns))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer rows.Close()

	var out []*domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	return out, nil
}

// CountChallenges returns the number of live challenges in a namespace, or
// across all namespaces when ns is empty.
func (s *SQLiteStore) CountChallenges(ctx context.Context, ns domain.Namespace) (int, error) {
	var (
		n   int
		err error
	)
	if ns == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM challenges WHERE namespace = ?`, string(ns),
		).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count challenges: %w", err)
	}
	return n, nil
}

// CreateHome inserts a new home record.
func (s *SQLiteStore) CreateHome(ctx context.Context, home *domain.Home) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO homes (home_id, name, is_active, created_at) VALUES (?, ?, ?, ?)`,
		home.HomeID, home.Name, boolToInt(home.IsActive), home.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return ErrHomeExists
	}
	if err != nil {
		return fmt.Errorf("insert home: %w", err)
	}
	return nil
}

// GetHome retrieves a home by ID, returning (nil, nil) when absent.
func (s *SQLiteStore) GetHome(ctx context.Context, homeID string) (*domain.Home, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT home_id, name, is_active, created_at FROM homes WHERE home_id = ?`, homeID,
	)

	var home domain.Home
	var isActive int
	var createdAt int64
	err := row.Scan(&home.HomeID, &home.Name, &isActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan home row: %w", err)
	}

	home.IsActive = isActive != 0
	home.CreatedAt = time.Unix(createdAt, 0)
	return &home, nil
}

// ListHomes returns all registered homes.
func (s *SQLiteStore) ListHomes(ctx context.Context) ([]*domain.Home, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT home_id, name, is_active, created_at FROM homes ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query homes: %w", err)
	}
	defer rows.Close()

	var out []*domain.Home
	for rows.Next() {
		var home domain.Home
		var isActive int
		var createdAt int64
		if err := rows.Scan(&home.HomeID, &home.Name, &isActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scan home row: %w", err)
		}
		home.IsActive = isActive != 0
		home.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &home)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate homes: %w", err)
	}
	return out, nil
}

// UpdateHome updates a home's name and active flag.
func (s *SQLiteStore) UpdateHome(ctx context.Context, home *domain.Home) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE homes SET name = ?, is_active = ? WHERE home_id = ?`,
		home.Name, boolToInt(home.IsActive), home.HomeID,
	)
	if err != nil {
		return fmt.Errorf("update home: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrHomeNotFound
	}
	return nil
}

// DeleteHome removes a home and its Alexa mappings.
func (s *SQLiteStore) DeleteHome(ctx context.Context, homeID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alexa_mappings WHERE home_id = ?`, homeID); err != nil {
		return false, fmt.Errorf("delete home mappings: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM homes WHERE home_id = ?`, homeID)
	if err != nil {
		return false, fmt.Errorf("delete home: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return rows > 0, nil
}

// CreateMapping links an Alexa user to an existing home.
func (s *SQLiteStore) CreateMapping(ctx context.Context, m *domain.AlexaMapping) error {
	home, err := s.GetHome(ctx, m.HomeID)
	if err != nil {
		return err
	}
	if home == nil {
		return ErrHomeNotFound
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alexa_mappings (alexa_user_id, home_id, created_at) VALUES (?, ?, ?)`,
		m.AlexaUserID, m.HomeID, m.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return ErrMappingExists
	}
	if err != nil {
		return fmt.Errorf("insert alexa mapping: %w", err)
	}
	return nil
}

// GetMapping looks up the home mapped to an Alexa user, (nil, nil) if none.
func (s *SQLiteStore) GetMapping(ctx context.Context, alexaUserID string) (*domain.AlexaMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT alexa_user_id, home_id, created_at FROM alexa_mappings WHERE alexa_user_id = ?`,
		alexaUserID,
	)

	var m domain.AlexaMapping
	var createdAt int64
	err := row.Scan(&m.AlexaUserID, &m.HomeID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alexa mapping row: %w", err)
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}

// ListMappings returns all Alexa user mappings.
func (s *SQLiteStore) ListMappings(ctx context.Context) ([]*domain.AlexaMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alexa_user_id, home_id, created_at FROM alexa_mappings ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query alexa mappings: %w", err)
	}
	defer rows.Close()

	var out []*domain.AlexaMapping
	for rows.Next() {
		var m domain.AlexaMapping
		var createdAt int64
		if err := rows.Scan(&m.AlexaUserID, &m.HomeID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alexa mapping row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alexa mappings: %w", err)
	}
	return out, nil
}

// DeleteMapping removes an Alexa user mapping.
func (s *SQLiteStore) DeleteMapping(ctx context.Context, alexaUserID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM alexa_mappings WHERE alexa_user_id = ?`, alexaUserID,
	)
	if err != nil {
		return false, fmt.Errorf("delete alexa mapping: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
