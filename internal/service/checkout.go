package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/metrics"
)

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, email, origin string) (string, error)
}

type CheckoutRequest struct {
	Email string `json:"email" validate:"required,contains=@"`
}

type CheckoutService struct {
	payments CheckoutProvider
	validate *validator.Validate
	log      *slog.Logger
	metrics  *metrics.Recorder
}

func NewCheckoutService(payments CheckoutProvider, log *slog.Logger, m *metrics.Recorder) *CheckoutService {
	return &CheckoutService{
		payments: payments,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		metrics:  m,
	}
}

// Start validates the buyer's email and returns a checkout URL for one
// credit pack. Nothing is stored locally; the session metadata carries the
// email to the webhook.
func (s *CheckoutService) Start(ctx context.Context, req CheckoutRequest, origin string) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		s.metrics.Checkout("invalid")
		return "", apperr.Validation("Valid email address is required")
	}

	url, err := s.payments.CreateCheckoutSession(ctx, req.Email, origin)
	if err != nil {
		s.log.Error("create checkout session", "email", req.Email, "error", err)
		s.metrics.Checkout("error")
		return "", apperr.Upstream("Failed to create checkout session", 0, err)
	}

	s.metrics.Checkout("ok")
	return url, nil
}
