package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/propertypost/internal/store"
)

// BalanceStore is the credit persistence the services depend on.
// Get returns store.ErrNotFound for an email with no record.
type BalanceStore interface {
	Get(ctx context.Context, email string) (int, error)
	Upsert(ctx context.Context, email string, credits int) error
	Credit(ctx context.Context, eventID, email string, amount int) (balance int, applied bool, err error)
	Deduct(ctx context.Context, email string, amount int) (balance int, ok bool, err error)
}

// BalanceNotifier is told about every balance change.
type BalanceNotifier interface {
	PublishBalance(email string, credits int)
}

type BalanceService struct {
	store BalanceStore
	log   *slog.Logger
}

func NewBalanceService(store BalanceStore, log *slog.Logger) *BalanceService {
	return &BalanceService{store: store, log: log}
}

// Balance returns nil for an empty email (untracked) and the resolved
// balance otherwise.
func (s *BalanceService) Balance(ctx context.Context, email string) *int {
	if email == "" {
		return nil
	}
	n := s.Resolve(ctx, email)
	return &n
}

// Resolve reads the balance for email. A missing record is 0; read failures
// are logged and also reported as 0 so callers always get a usable number.
func (s *BalanceService) Resolve(ctx context.Context, email string) int {
	n, err := s.store.Get(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	if err != nil {
		s.log.Error("fetch credits", "email", email, "error", err)
		return 0
	}
	return n
}
