package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/metrics"
	"github.com/dukerupert/propertypost/internal/model"
)

// GenerationCost is the credits one generation consumes.
const GenerationCost = 10

// PostGenerator produces the platform posts for a description.
type PostGenerator interface {
	Configured() bool
	Generate(ctx context.Context, text string) (model.Posts, error)
}

type GenerationService struct {
	balances  *BalanceService
	store     BalanceStore
	generator PostGenerator
	notifier  BalanceNotifier
	log       *slog.Logger
	metrics   *metrics.Recorder
}

func NewGenerationService(balances *BalanceService, store BalanceStore, generator PostGenerator, notifier BalanceNotifier, log *slog.Logger, m *metrics.Recorder) *GenerationService {
	return &GenerationService{
		balances:  balances,
		store:     store,
		generator: generator,
		notifier:  notifier,
		log:       log,
		metrics:   m,
	}
}

// Generate checks the caller can pay, produces the posts, and only then
// charges GenerationCost. The charge is a conditional decrement, so a balance
// drained by a concurrent request fails here instead of going negative; the
// generated posts are discarded in that case.
func (s *GenerationService) Generate(ctx context.Context, text, email string) (model.Posts, error) {
	if strings.TrimSpace(text) == "" {
		s.metrics.Generation("invalid", 0)
		return model.Posts{}, apperr.Validation("Property description text is required")
	}
	if email == "" {
		s.metrics.Generation("unauthorized", 0)
		return model.Posts{}, apperr.Authorization("Credits required. Purchase credits to generate posts.")
	}
	if s.balances.Resolve(ctx, email) < GenerationCost {
		s.metrics.Generation("insufficient_credits", 0)
		return model.Posts{}, apperr.InsufficientCredits("Insufficient credits. Purchase more credits to generate posts.")
	}
	if s.generator == nil || !s.generator.Configured() {
		s.metrics.Generation("not_configured", 0)
		return model.Posts{}, apperr.Configuration("OpenAI API key is not configured")
	}

	posts, err := s.generator.Generate(ctx, text)
	if err != nil {
		s.log.Error("generate posts", "email", email, "error", err)
		s.metrics.Generation(apperr.KindOf(err).String(), 0)
		if apperr.KindOf(err) == apperr.KindInternal {
			return model.Posts{}, apperr.Upstream("An unexpected error occurred", 0, err)
		}
		return model.Posts{}, err
	}

	balance, ok, err := s.store.Deduct(ctx, email, GenerationCost)
	if err != nil {
		s.log.Error("deduct credits", "email", email, "error", err)
		s.metrics.Generation("persistence", 0)
		return model.Posts{}, apperr.Persistence("Failed to update credits", err)
	}
	if !ok {
		s.log.Warn("credits drained during generation", "email", email, "balance", balance)
		s.metrics.Generation("insufficient_credits", 0)
		return model.Posts{}, apperr.InsufficientCredits("Insufficient credits. Purchase more credits to generate posts.")
	}

	s.metrics.Generation("ok", GenerationCost)
	if s.notifier != nil {
		s.notifier.PublishBalance(email, balance)
	}
	return posts, nil
}
