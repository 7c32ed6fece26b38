package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/leapchat/internal/chat"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQL persists transcripts in a relational database.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens a SQLite or Postgres database and runs pending migrations.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	if err := Migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQL(db, driver), nil
}

// NewSQL wraps an already migrated database.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

// Migrate runs all pending schema migrations.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(migrations)

	dialect := "sqlite3"
	if driver == DriverPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Entries returns a conversation's entries in order.
func (s *SQL) Entries(ctx context.Context, conversationID string) ([]chat.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, user_text, ai_text, kind, created_at FROM entries WHERE conversation_id = ? ORDER BY position`,
	), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []chat.Entry
	for rows.Next() {
		var (
			e       chat.Entry
			kind    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.User, &e.AI, &kind, &created); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Kind = chat.Kind(kind)
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

// Append adds an entry after the last one of its conversation.
func (s *SQL) Append(ctx context.Context, conversationID string, entry chat.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx, s.rebind(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM entries WHERE conversation_id = ?`,
	), conversationID).Scan(&next); err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}

	if err := s.insert(ctx, tx, conversationID, next, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace rewrites a conversation with the given entries.
func (s *SQL) Replace(ctx context.Context, conversationID string, entries []chat.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM entries WHERE conversation_id = ?`,
	), conversationID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	for i, e := range entries {
		if err := s.insert(ctx, tx, conversationID, int64(i), e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) insert(ctx context.Context, tx *sql.Tx, conversationID string, position int64, e chat.Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO entries (conversation_id, position, id, user_text, ai_text, kind, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	), conversationID, position, e.ID, e.User, e.AI, string(e.Kind), created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
