package fanmail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLStore keeps messages in a relational table. It speaks SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect string
}

// OpenSQL connects with driver ("sqlite" or "postgres") and creates the table if needed.
func OpenSQL(ctx context.Context, driver, dsn, table string) (*SQLStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("fanmail: invalid table name %q", table)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("fanmail: dsn is required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite":
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// one writer keeps :memory: databases on a single connection
			db.SetMaxOpenConns(1)
		}
	case "postgres":
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(2)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("fanmail: unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("fanmail: open %s: %w", driver, err)
	}

	s := &SQLStore{db: db, table: table, dialect: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s(
	  id              TEXT PRIMARY KEY,
	  name            TEXT NOT NULL,
	  email           TEXT NOT NULL,
	  message         TEXT NOT NULL,
	  submission_date TEXT NOT NULL,
	  user_id         TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("fanmail: create table %s: %w", s.table, err)
	}
	return nil
}

// placeholders returns n bind markers for the dialect.
func (s *SQLStore) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.dialect == "postgres" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

func (s *SQLStore) Add(ctx context.Context, msg FanMessage) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, email, message, submission_date, user_id) VALUES (%s)",
		s.table, s.placeholders(6),
	)
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Name, msg.Email, msg.Message, msg.SubmissionDate, msg.UserID,
	)
	if err != nil {
		return fmt.Errorf("fanmail: insert %s: %w", msg.ID, err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]FanMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(
		"SELECT id, name, email, message, submission_date, user_id FROM %s ORDER BY submission_date DESC, id DESC LIMIT %s",
		s.table, s.placeholders(1),
	)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fanmail: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []FanMessage
	for rows.Next() {
		var m FanMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.SubmissionDate, &m.UserID); err != nil {
			return nil, fmt.Errorf("fanmail: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }
