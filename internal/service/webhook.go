package service

import (
	"context"
	"log/slog"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/metrics"
	"github.com/dukerupert/propertypost/internal/payment"
)

// EventVerifier authenticates a raw webhook delivery.
type EventVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	EventID   string
	EventType string
	Email     string
	Credited  int
	Balance   int
	Duplicate bool
}

type WebhookService struct {
	verifier EventVerifier
	store    BalanceStore
	notifier BalanceNotifier
	log      *slog.Logger
	metrics  *metrics.Recorder
}

func NewWebhookService(verifier EventVerifier, store BalanceStore, notifier BalanceNotifier, log *slog.Logger, m *metrics.Recorder) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		store:    store,
		notifier: notifier,
		log:      log,
		metrics:  m,
	}
}

// Handle verifies a delivery and credits the buyer on checkout completion.
// An unverifiable delivery never reaches the store. Each event id is applied
// at most once.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, sigHeader string) (WebhookResult, error) {
	event, err := s.verifier.ConstructWebhookEvent(payload, sigHeader)
	if err != nil {
		s.log.Warn("webhook signature verification failed", "error", err)
		s.metrics.WebhookEvent("unknown", "bad_signature")
		return WebhookResult{}, apperr.Authentication("Webhook signature verification failed", err)
	}

	result := WebhookResult{EventID: event.ID, EventType: string(event.Type)}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.metrics.WebhookEvent(result.EventType, "ignored")
		return result, nil
	}

	completed, err := payment.ParseCheckoutCompleted(event)
	if err != nil {
		s.log.Error("webhook: parse checkout session", "event_id", event.ID, "error", err)
		s.metrics.WebhookEvent(result.EventType, "malformed")
		return result, nil
	}
	if completed.Email == "" {
		s.log.Warn("webhook: checkout session missing email", "event_id", event.ID, "session_id", completed.SessionID)
		s.metrics.WebhookEvent(result.EventType, "no_email")
		return result, nil
	}
	result.Email = completed.Email

	balance, applied, err := s.store.Credit(ctx, completed.EventID, completed.Email, completed.Credits)
	if err != nil {
		s.log.Error("webhook: update credits", "event_id", event.ID, "email", completed.Email, "error", err)
		s.metrics.WebhookEvent(result.EventType, "error")
		return result, apperr.Persistence("Failed to update credits", err)
	}
	result.Balance = balance

	if !applied {
		s.log.Info("webhook: duplicate event ignored", "event_id", event.ID, "email", completed.Email)
		result.Duplicate = true
		s.metrics.WebhookEvent(result.EventType, "duplicate")
		return result, nil
	}

	result.Credited = completed.Credits
	s.log.Info("webhook: credits added", "event_id", event.ID, "email", completed.Email, "credits", completed.Credits, "balance", balance)
	s.metrics.WebhookEvent(result.EventType, "credited")
	s.metrics.CreditsGranted(completed.Credits)
	if s.notifier != nil {
		s.notifier.PublishBalance(completed.Email, balance)
	}
	return result, nil
}
