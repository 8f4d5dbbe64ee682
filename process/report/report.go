// Package report prints monthly scan totals straight from Postgres.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Summary is one user's totals for a month.
type Summary struct {
	Username  string
	Month     string
	Count     int64
	Extracted decimal.Decimal
	Effective decimal.Decimal
	Overrides int64
	NoAmount  int64
}

type Row struct {
	ID         int64
	FileName   string
	Source     string
	Amount     decimal.Decimal
	Manual     decimal.NullDecimal
	Confidence float64
	CreatedAt  time.Time
}

var ErrUserNotFound = errors.New("user not found")

// NewPool connects to dsn and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// MonthBounds parses YYYY-MM into a UTC [start, end) range.
func MonthBounds(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", month, err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

func userID(ctx context.Context, pool *pgxpool.Pool, username string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1 AND deleted_at IS NULL`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return id, err
}

// Monthly computes totals for username in month (YYYY-MM, UTC).
func Monthly(ctx context.Context, pool *pgxpool.Pool, username, month string) (Summary, error) {
	start, end, err := MonthBounds(month)
	if err != nil {
		return Summary{}, err
	}
	uid, err := userID(ctx, pool, username)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Username: username, Month: month}
	err = pool.QueryRow(ctx, `
		SELECT count(*),
		       coalesce(sum(amount), 0),
		       coalesce(sum(coalesce(manual_amount, amount)), 0),
		       count(manual_amount),
		       count(*) FILTER (WHERE amount = 0 AND manual_amount IS NULL)
		FROM scans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		uid, start, end).Scan(&s.Count, &s.Extracted, &s.Effective, &s.Overrides, &s.NoAmount)
	if err != nil {
		return Summary{}, fmt.Errorf("query failed: %w", err)
	}
	return s, nil
}

// List returns the month's scans for username ordered by id.
func List(ctx context.Context, pool *pgxpool.Pool, username, month string) ([]Row, error) {
	start, end, err := MonthBounds(month)
	if err != nil {
		return nil, err
	}
	uid, err := userID(ctx, pool, username)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `
		SELECT id, coalesce(file_name, ''), source, amount, manual_amount, confidence, created_at
		FROM scans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY id`, uid, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch rows failed: %w", err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.FileName, &r.Source, &r.Amount, &r.Manual, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Print writes the summary and, if rows is non-nil, one line per scan.
func Print(w io.Writer, s Summary, rows []Row) {
	fmt.Fprintf(w, "Report for user=%s month=%s (UTC):\n", s.Username, s.Month)
	fmt.Fprintf(w, "  scans=%d extracted_total=%s effective_total=%s overrides=%d no_amount=%d\n",
		s.Count, s.Extracted.StringFixed(2), s.Effective.StringFixed(2), s.Overrides, s.NoAmount)
	for _, r := range rows {
		manual := "-"
		if r.Manual.Valid {
			manual = r.Manual.Decimal.StringFixed(2)
		}
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%.2f|%s\n", r.ID, r.FileName, r.Source,
			r.Amount.StringFixed(2), manual, r.Confidence, r.CreatedAt.Format(time.RFC3339))
	}
}
