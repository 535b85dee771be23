package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/propertypost/internal/database"
	"github.com/dukerupert/propertypost/internal/model"
)

// ErrNotFound is returned when no balance record exists for an email.
var ErrNotFound = errors.New("balance not found")

// BalanceStore persists per-email credit balances and processed webhook events.
type BalanceStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewBalanceStore(db *database.DB) *BalanceStore {
	return &BalanceStore{
		db:      db.DB,
		dialect: db.Dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the credit count for email, or ErrNotFound.
func (s *BalanceStore) Get(ctx context.Context, email string) (int, error) {
	rec, err := s.GetRecord(ctx, email)
	if err != nil {
		return 0, err
	}
	return rec.Credits, nil
}

// GetRecord returns the full balance record for email, or ErrNotFound.
func (s *BalanceStore) GetRecord(ctx context.Context, email string) (*model.BalanceRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT email, credits, updated_at FROM user_credits WHERE email = ?`), email)
	var rec model.BalanceRecord
	err := row.Scan(&rec.Email, &rec.Credits, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &rec, nil
}

// Upsert sets the balance for email to credits, creating the record if needed.
func (s *BalanceStore) Upsert(ctx context.Context, email string, credits int) error {
	if credits < 0 {
		return fmt.Errorf("upsert balance: negative credits %d", credits)
	}
	query := `INSERT INTO user_credits (email, credits, updated_at) VALUES (?, ?, ?)
ON CONFLICT (email) DO UPDATE SET credits = excluded.credits, updated_at = excluded.updated_at`
	if s.dialect == database.MySQL {
		query = `INSERT INTO user_credits (email, credits, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE credits = VALUES(credits), updated_at = VALUES(updated_at)`
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(query), email, credits, s.now()); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// Credit adds amount to the balance for email and returns the new balance.
// When eventID is non-empty the event is recorded in the same transaction and
// a repeated eventID leaves the balance untouched; applied reports which case
// occurred.
func (s *BalanceStore) Credit(ctx context.Context, eventID, email string, amount int) (balance int, applied bool, err error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("credit balance: non-positive amount %d", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if eventID != "" {
		query := `INSERT INTO webhook_events (event_id, email, credits, processed_at) VALUES (?, ?, ?, ?) ON CONFLICT (event_id) DO NOTHING`
		if s.dialect == database.MySQL {
			query = `INSERT IGNORE INTO webhook_events (event_id, email, credits, processed_at) VALUES (?, ?, ?, ?)`
		}
		res, err := tx.ExecContext(ctx, s.rebind(query), eventID, email, amount, now)
		if err != nil {
			return 0, false, fmt.Errorf("record webhook event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, false, fmt.Errorf("webhook event rows affected: %w", err)
		}
		if n == 0 {
			current, err := balanceTx(ctx, tx, s.rebind, email)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return 0, false, err
			}
			return current, false, tx.Commit()
		}
	}

	query := `INSERT INTO user_credits (email, credits, updated_at) VALUES (?, ?, ?)
ON CONFLICT (email) DO UPDATE SET credits = user_credits.credits + excluded.credits, updated_at = excluded.updated_at`
	if s.dialect == database.MySQL {
		query = `INSERT INTO user_credits (email, credits, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE credits = credits + VALUES(credits), updated_at = VALUES(updated_at)`
	}
	if _, err := tx.ExecContext(ctx, s.rebind(query), email, amount, now); err != nil {
		return 0, false, fmt.Errorf("add credits: %w", err)
	}

	balance, err = balanceTx(ctx, tx, s.rebind, email)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit credit: %w", err)
	}
	return balance, true, nil
}

// Deduct subtracts amount from the balance for email only if the balance
// covers it. ok is false when the record is missing or too small; the balance
// is then unchanged.
func (s *BalanceStore) Deduct(ctx context.Context, email string, amount int) (balance int, ok bool, err error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("deduct balance: non-positive amount %d", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin deduct: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE user_credits SET credits = credits - ?, updated_at = ? WHERE email = ? AND credits >= ?`),
		amount, s.now(), email, amount,
	)
	if err != nil {
		return 0, false, fmt.Errorf("deduct credits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("deduct rows affected: %w", err)
	}

	balance, err = balanceTx(ctx, tx, s.rebind, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit deduct: %w", err)
	}
	return balance, n > 0, nil
}

// EventProcessed reports whether a webhook event id has already been applied.
func (s *BalanceStore) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM webhook_events WHERE event_id = ?`), eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get webhook event: %w", err)
	}
	return true, nil
}

func balanceTx(ctx context.Context, tx *sql.Tx, rebind func(string) string, email string) (int, error) {
	var credits int
	err := tx.QueryRowContext(ctx, rebind(`SELECT credits FROM user_credits WHERE email = ?`), email).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return credits, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *BalanceStore) rebind(query string) string {
	if s.dialect != database.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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
