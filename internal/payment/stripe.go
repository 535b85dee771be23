package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	// CreditsPerPurchase is the credit pack sold by one checkout.
	CreditsPerPurchase = 10
	// PriceMinorUnits is the pack price in US cents.
	PriceMinorUnits = 500

	productName        = "10 Credits"
	productDescription = "Generate 1 property description post (1 generation = 10 credits)"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CreateCheckoutSession creates a one-off payment session for the credit
// pack, tagged with the buyer's email, and returns its hosted URL. origin is
// the scheme://host the success and cancel pages live under.
func (c *Client) CreateCheckoutSession(ctx context.Context, email, origin string) (string, error) {
	origin = strings.TrimRight(origin, "/")
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(email),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(productName),
						Description: stripe.String(productDescription),
					},
					UnitAmount: stripe.Int64(PriceMinorUnits),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(SuccessURL(origin, email)),
		CancelURL:  stripe.String(origin + "/"),
	}
	params.Context = ctx
	params.AddMetadata("email", email)
	params.AddMetadata("credits", strconv.Itoa(CreditsPerPurchase))

	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// SuccessURL builds the post-payment redirect. The session id placeholder is
// substituted by Stripe.
func SuccessURL(origin, email string) string {
	return origin + "/success?session_id={CHECKOUT_SESSION_ID}&email=" + url.QueryEscape(email)
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
// The account's pinned API version may differ from the library's, so version
// mismatches are tolerated.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// CheckoutCompleted is the part of a checkout.session.completed event that
// drives crediting.
type CheckoutCompleted struct {
	EventID   string
	SessionID string
	Email     string
	Credits   int
}

// ParseCheckoutCompleted extracts the buyer's email and purchased credits.
// The email comes from session metadata, then customer_email, then
// customer_details. Credits fall back to CreditsPerPurchase when the metadata
// value is missing, unparsable, or not positive.
func ParseCheckoutCompleted(event stripe.Event) (CheckoutCompleted, error) {
	if event.Data == nil {
		return CheckoutCompleted{}, fmt.Errorf("checkout event %s has no data", event.ID)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return CheckoutCompleted{}, fmt.Errorf("unmarshal checkout session: %w", err)
	}

	out := CheckoutCompleted{
		EventID:   event.ID,
		SessionID: sess.ID,
		Email:     strings.TrimSpace(sess.Metadata["email"]),
		Credits:   CreditsPerPurchase,
	}
	if out.Email == "" {
		out.Email = strings.TrimSpace(sess.CustomerEmail)
	}
	if out.Email == "" && sess.CustomerDetails != nil {
		out.Email = strings.TrimSpace(sess.CustomerDetails.Email)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(sess.Metadata["credits"])); err == nil && n > 0 {
		out.Credits = n
	}
	return out, nil
}
