package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/propertypost/internal/config"
	"github.com/dukerupert/propertypost/internal/content"
	"github.com/dukerupert/propertypost/internal/database"
	"github.com/dukerupert/propertypost/internal/handler"
	"github.com/dukerupert/propertypost/internal/metrics"
	"github.com/dukerupert/propertypost/internal/middleware"
	"github.com/dukerupert/propertypost/internal/payment"
	"github.com/dukerupert/propertypost/internal/service"
	"github.com/dukerupert/propertypost/internal/store"
	ws "github.com/dukerupert/propertypost/internal/websocket"
)

type Server struct {
	hub         *ws.Hub
	balances    *service.BalanceService
	checkoutH   *handler.CheckoutHandler
	creditsH    *handler.CreditsHandler
	generateH   *handler.GenerateHandler
	webhookH    *handler.WebhookHandler
	rateLimiter *middleware.RateLimiter
	rateLimit   int
	metrics     *metrics.Recorder
	logger      *slog.Logger
}

// New wires stores, collaborators, and handlers. Checkout is only mounted
// with a Stripe secret key and the webhook only with a webhook secret too.
// Generation is always mounted and reports a configuration error without an
// OpenAI key.
func New(cfg config.Config, db *database.DB, m *metrics.Recorder, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	balanceStore := store.NewBalanceStore(db)
	balances := service.NewBalanceService(balanceStore, logger.With("component", "balance"))

	generator := content.NewGenerator(content.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	})
	generationLogger := logger.With("component", "generate")
	generation := service.NewGenerationService(balances, balanceStore, generator, hub, generationLogger, m)

	s := &Server{
		hub:         hub,
		balances:    balances,
		creditsH:    handler.NewCreditsHandler(balances),
		generateH:   handler.NewGenerateHandler(generation, generationLogger),
		rateLimiter: middleware.NewRateLimiter(),
		rateLimit:   cfg.RateLimitPerMinute,
		metrics:     m,
		logger:      logger,
	}

	if cfg.CheckoutEnabled() {
		payments := payment.NewClient(payment.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookKey,
		})
		checkoutLogger := logger.With("component", "checkout")
		s.checkoutH = handler.NewCheckoutHandler(service.NewCheckoutService(payments, checkoutLogger, m), cfg.BaseURL, checkoutLogger)

		if cfg.WebhookEnabled() {
			webhookLogger := logger.With("component", "webhook")
			webhooks := service.NewWebhookService(payments, balanceStore, hub, webhookLogger, m)
			s.webhookH = handler.NewWebhookHandler(webhooks, webhookLogger)
		}
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout and webhooks disabled")
	}
	if !generator.Configured() {
		logger.Warn("OPENAI_API_KEY not set, generation will fail")
	}

	return s
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the balance feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /credits", s.creditsH.Get)
	mux.HandleFunc("GET /credits/ws", ws.HandleBalanceFeed(s.hub, s.balances.Resolve, s.logger.With("component", "websocket")))
	mux.HandleFunc("POST /generate", s.rateLimitedHandler(s.generateH.Generate))

	if s.checkoutH != nil {
		mux.HandleFunc("POST /checkout", s.rateLimitedHandler(s.checkoutH.Create))
	}
	if s.webhookH != nil {
		mux.HandleFunc("POST /webhooks/payment", s.webhookH.HandlePayment)
		mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandlePayment)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	if s.rateLimit <= 0 {
		return h
	}
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, s.rateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
