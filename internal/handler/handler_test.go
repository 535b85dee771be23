package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dukerupert/propertypost/internal/database"
	"github.com/dukerupert/propertypost/internal/model"
	"github.com/dukerupert/propertypost/internal/payment"
	"github.com/dukerupert/propertypost/internal/service"
	"github.com/dukerupert/propertypost/internal/store"
)

const testWebhookSecret = "whsec_handler_test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) *store.BalanceStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewBalanceStore(db)
}

type stubCheckout struct {
	origin string
	err    error
}

func (s *stubCheckout) CreateCheckoutSession(_ context.Context, email, origin string) (string, error) {
	s.origin = origin
	return "https://checkout.example/" + email, s.err
}

type stubGenerator struct {
	err error
}

func (stubGenerator) Configured() bool { return true }

func (g stubGenerator) Generate(context.Context, string) (model.Posts, error) {
	return model.Posts{Instagram: "ig", LinkedIn: "li", Facebook: "fb", X: "x", TikTok: "tt"}, g.err
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCheckoutCreate(t *testing.T) {
	stub := &stubCheckout{}
	h := NewCheckoutHandler(service.NewCheckoutService(stub, testLogger(), nil), "https://base.example", testLogger())

	req := httptest.NewRequest("POST", "/checkout", strings.NewReader(`{"email":"a@example.com"}`))
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["url"]; got != "https://checkout.example/a@example.com" {
		t.Errorf("url = %v", got)
	}
	if stub.origin != "https://app.example" {
		t.Errorf("origin = %q", stub.origin)
	}
}

func TestCheckoutFallsBackToBaseURL(t *testing.T) {
	stub := &stubCheckout{}
	h := NewCheckoutHandler(service.NewCheckoutService(stub, testLogger(), nil), "https://base.example", testLogger())

	req := httptest.NewRequest("POST", "/checkout", strings.NewReader(`{"email":"a@example.com"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if stub.origin != "https://base.example" {
		t.Errorf("origin = %q", stub.origin)
	}
}

func TestCheckoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"malformed", `{`, nil, 400, "Valid email address is required"},
		{"missing email", `{}`, nil, 400, "Valid email address is required"},
		{"no at sign", `{"email":"nope"}`, nil, 400, "Valid email address is required"},
		{"provider failure", `{"email":"a@example.com"}`, errors.New("stripe down"), 500, "Failed to create checkout session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckoutHandler(service.NewCheckoutService(&stubCheckout{err: tt.err}, testLogger(), nil), "", testLogger())
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest("POST", "/checkout", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decode(t, rec)["error"]; got != tt.msg {
				t.Errorf("error = %v, want %q", got, tt.msg)
			}
		})
	}
}

func TestCreditsGet(t *testing.T) {
	s := setupStore(t)
	if err := s.Upsert(context.Background(), "a@example.com", 20); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	h := NewCreditsHandler(service.NewBalanceService(s, testLogger()))

	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"no header", "", `{"credits":null}`},
		{"unknown", "new@example.com", `{"credits":0}`},
		{"known", "a@example.com", `{"credits":20}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/credits", nil)
			if tt.email != "" {
				req.Header.Set(UserEmailHeader, tt.email)
			}
			rec := httptest.NewRecorder()
			h.Get(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func newGenerateHandler(s *store.BalanceStore, gen service.PostGenerator) *GenerateHandler {
	balances := service.NewBalanceService(s, testLogger())
	return NewGenerateHandler(service.NewGenerationService(balances, s, gen, nil, testLogger(), nil), testLogger())
}

func TestGenerateSuccess(t *testing.T) {
	s := setupStore(t)
	if err := s.Upsert(context.Background(), "a@example.com", 15); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	h := newGenerateHandler(s, stubGenerator{})

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"text":"Sunny 2 bed condo"}`))
	req.Header.Set(UserEmailHeader, "a@example.com")
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	for _, key := range []string{"instagram", "linkedin", "facebook", "x", "tiktok"} {
		if v, _ := body[key].(string); v == "" {
			t.Errorf("missing %s in %v", key, body)
		}
	}
	if len(body) != 5 {
		t.Errorf("keys = %d, want 5", len(body))
	}
	if got, _ := s.Get(context.Background(), "a@example.com"); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		email   string
		credits int
		status  int
	}{
		{"malformed body", `not json`, "a@example.com", 10, 400},
		{"text not a string", `{"text":42}`, "a@example.com", 10, 400},
		{"blank text", `{"text":"   "}`, "a@example.com", 10, 400},
		{"no email", `{"text":"house"}`, "", 10, 403},
		{"insufficient", `{"text":"house"}`, "a@example.com", 9, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStore(t)
			if err := s.Upsert(context.Background(), "a@example.com", tt.credits); err != nil {
				t.Fatalf("upsert: %v", err)
			}
			h := newGenerateHandler(s, stubGenerator{})

			req := httptest.NewRequest("POST", "/generate", strings.NewReader(tt.body))
			if tt.email != "" {
				req.Header.Set(UserEmailHeader, tt.email)
			}
			rec := httptest.NewRecorder()
			h.Generate(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Errorf("body has no error: %s", rec.Body.String())
			}
			if got, _ := s.Get(context.Background(), "a@example.com"); got != tt.credits {
				t.Errorf("balance = %d, want %d", got, tt.credits)
			}
		})
	}
}

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func newWebhookHandler(s service.BalanceStore) *WebhookHandler {
	client := payment.NewClient(payment.Config{SecretKey: "sk_test_handler", WebhookSecret: testWebhookSecret})
	return NewWebhookHandler(service.NewWebhookService(client, s, nil, testLogger(), nil), testLogger())
}

const completedPayload = `{
  "id": "evt_handler_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_1", "object": "checkout.session", "metadata": {"email": "buyer@example.com", "credits": "10"}}}
}`

func TestWebhookCredits(t *testing.T) {
	s := setupStore(t)
	h := newWebhookHandler(s)

	for i := range 2 {
		header, payload := signed(t, completedPayload)
		req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(string(payload)))
		req.Header.Set("Stripe-Signature", header)
		rec := httptest.NewRecorder()
		h.HandlePayment(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, body %s", i, rec.Code, rec.Body.String())
		}
		if got := decode(t, rec)["received"]; got != true {
			t.Errorf("delivery %d: received = %v", i, got)
		}
	}
	if got, _ := s.Get(context.Background(), "buyer@example.com"); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	s := setupStore(t)
	h := newWebhookHandler(s)

	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(completedPayload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	h.HandlePayment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "Webhook signature verification failed" {
		t.Errorf("error = %v", got)
	}
	if _, err := s.Get(context.Background(), "buyer@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("store mutated: %v", err)
	}
}
