// Package store is the only package that touches SQL. It exposes the
// narrow persistence operations the ledger semantics require
// (insert-if-absent, compare-and-swap status, sum-approved-by-creator)
// so the uniqueness and idempotency invariants are enforced in one place
// regardless of the backing database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Sentinel errors translated into domain errors by the service layer
var (
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrConcurrentClaim is returned when a payout claim loses the race for
	// an approved transaction; the caller recomputes eligibility.
	ErrConcurrentClaim = errors.New("store: transaction claimed concurrently")
)

// Store wraps the database handle and the driver dialect
type Store struct {
	db     *sql.DB
	driver string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Open connects to the database. driver is "postgres" or "sqlite3".
func Open(driver, dsn string, pool PoolConfig) (*Store, error) {
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate applies the schema. Statements are idempotent; each one is a
// single SQL statement.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// migrations returns the schema statements. Types are kept to the subset
// both SQLite and Postgres accept: TEXT, INTEGER, REAL. Money is stored as
// TEXT and handled as exact decimals in Go; timestamps are fixed-width
// RFC 3339 UTC TEXT (see timeLayout), so lexicographic order is
// chronological order and range scans compare correctly.
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS creators (
			id               TEXT PRIMARY KEY,
			display_name     TEXT NOT NULL,
			email            TEXT NOT NULL UNIQUE,
			status           TEXT NOT NULL DEFAULT 'pending',
			commission_rate  TEXT NOT NULL,
			minimum_payout   TEXT NOT NULL,
			payment_method   TEXT NOT NULL DEFAULT '',
			payment_details  TEXT NOT NULL DEFAULT '',
			notes            TEXT NOT NULL DEFAULT '',
			total_clicks     INTEGER NOT NULL DEFAULT 0,
			total_sales      INTEGER NOT NULL DEFAULT 0,
			total_commission TEXT NOT NULL DEFAULT '0',
			conversion_rate  REAL NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			approved_at      TEXT,
			suspended_at     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_creators_status ON creators(status)`,

		`CREATE TABLE IF NOT EXISTS referral_links (
			id               TEXT PRIMARY KEY,
			creator_id       TEXT NOT NULL,
			product_id       TEXT NOT NULL DEFAULT '',
			code             TEXT NOT NULL UNIQUE,
			is_active        INTEGER NOT NULL DEFAULT 1,
			click_count      INTEGER NOT NULL DEFAULT 0,
			conversion_count INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_creator ON referral_links(creator_id)`,

		`CREATE TABLE IF NOT EXISTS referral_clicks (
			id         TEXT PRIMARY KEY,
			link_id    TEXT NOT NULL,
			creator_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			referrer   TEXT NOT NULL DEFAULT '',
			clicked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_session ON referral_clicks(session_id, clicked_at)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link ON referral_clicks(link_id)`,

		// The UNIQUE on order_id is the correctness anchor of the whole
		// ledger, not an optimization.
		`CREATE TABLE IF NOT EXISTS commission_transactions (
			id                TEXT PRIMARY KEY,
			creator_id        TEXT NOT NULL,
			link_id           TEXT NOT NULL,
			order_id          TEXT NOT NULL UNIQUE,
			order_amount      TEXT NOT NULL,
			commission_rate   TEXT NOT NULL,
			commission_amount TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'pending',
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_creator_status ON commission_transactions(creator_id, status)`,

		`CREATE TABLE IF NOT EXISTS conversion_events (
			order_id       TEXT PRIMARY KEY,
			order_amount   TEXT NOT NULL,
			session_id     TEXT NOT NULL,
			attributed     INTEGER NOT NULL DEFAULT 0,
			transaction_id TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS creator_payouts (
			id              TEXT PRIMARY KEY,
			creator_id      TEXT NOT NULL,
			amount          TEXT NOT NULL,
			transaction_ids TEXT NOT NULL,
			payment_method  TEXT NOT NULL DEFAULT '',
			payment_details TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'pending',
			gateway_ref     TEXT NOT NULL DEFAULT '',
			failure_reason  TEXT NOT NULL DEFAULT '',
			payout_date     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_creator ON creator_payouts(creator_id)`,
	}
}

// rebind converts ? placeholders to the $n form Postgres expects.
// SQLite statements pass through unchanged.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
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

// isUniqueViolation reports whether err is a unique constraint violation
// from either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// timeLayout is RFC 3339 UTC with fixed-width nanoseconds. RFC3339Nano
// trims trailing fractional zeros, which breaks lexicographic ordering
// of the stored TEXT ("…00.1Z" sorts after "…00.12Z", and a whole
// second sorts after every fraction in it); the padded form keeps
// string comparisons chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// fmtTime renders a timestamp for storage
func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// fmtTimePtr renders an optional timestamp for storage
func fmtTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

// parseTime reads a stored timestamp
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
