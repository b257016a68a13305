// Package stripe is a minimal client for the PaymentIntents REST API.
//
// The server creates and verifies intents with the secret key; the checkout
// client retrieves an intent with the publishable key and its client secret.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpc "github.com/rituelsdebene/boutique/pkg/http"
	"github.com/rituelsdebene/boutique/pkg/metrics"
)

const service = "stripe"

// StatusSucceeded is the only status that lets an order be finalized.
const StatusSucceeded = "succeeded"

// ErrTimeout is matched by errors returned when Stripe did not answer in time.
var ErrTimeout = httpc.ErrTimeout

// ErrInvalidClientSecret is returned for a client secret without an intent id.
var ErrInvalidClientSecret = errors.New("stripe: malformed client secret")

// PaymentIntent holds the fields the storefront reads.
type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
}

// Succeeded reports whether the payment went through.
func (p PaymentIntent) Succeeded() bool { return p.Status == StatusSucceeded }

// APIError is a non-2xx answer from Stripe.
type APIError struct {
	Status  int
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %d %s: %s", e.Status, e.Type, e.Message)
}

// Config configures a Client. Zero Timeout means 10s.
type Config struct {
	SecretKey      string
	PublishableKey string
	Currency       string
	BaseURL        string
	Timeout        time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}
}

// CreatePaymentIntent creates an intent for amount minor units with
// automatic payment methods enabled.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64) (PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", c.cfg.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	return c.do(ctx, "create", httpc.Post(c.cfg.BaseURL+"/v1/payment_intents").
		Bearer(c.cfg.SecretKey).
		Form(form))
}

// Retrieve loads an intent by id with the secret key.
func (c *Client) Retrieve(ctx context.Context, id string) (PaymentIntent, error) {
	return c.do(ctx, "retrieve", httpc.Get(c.cfg.BaseURL+"/v1/payment_intents/"+url.PathEscape(id)).
		Bearer(c.cfg.SecretKey))
}

// RetrieveWithClientSecret loads an intent with the publishable key, the
// way a browser returning from the payment page does.
func (c *Client) RetrieveWithClientSecret(ctx context.Context, clientSecret string) (PaymentIntent, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return PaymentIntent{}, err
	}
	return c.do(ctx, "retrieve", httpc.Get(c.cfg.BaseURL+"/v1/payment_intents/"+url.PathEscape(id)).
		Bearer(c.cfg.PublishableKey).
		Query("client_secret", clientSecret))
}

// IntentID extracts "pi_123" from "pi_123_secret_abc".
func IntentID(clientSecret string) (string, error) {
	i := strings.Index(clientSecret, "_secret_")
	if i <= 0 {
		return "", ErrInvalidClientSecret
	}
	return clientSecret[:i], nil
}

func (c *Client) do(ctx context.Context, action string, req *httpc.Request) (PaymentIntent, error) {
	start := time.Now()

	resp, err := req.WithContext(ctx).Timeout(c.cfg.Timeout).Send()
	if err != nil {
		outcome := "error"
		if errors.Is(err, httpc.ErrTimeout) {
			outcome = "timeout"
		}
		metrics.ObserveUpstream(service, outcome, start)
		return PaymentIntent{}, fmt.Errorf("stripe: %s payment intent: %w", action, err)
	}

	if !resp.OK() {
		metrics.ObserveUpstream(service, "error", start)
		var body struct {
			Error APIError `json:"error"`
		}
		_ = resp.JSON(&body)
		body.Error.Status = resp.StatusCode
		return PaymentIntent{}, &body.Error
	}

	var pi PaymentIntent
	if err := resp.JSON(&pi); err != nil {
		metrics.ObserveUpstream(service, "error", start)
		return PaymentIntent{}, fmt.Errorf("stripe: %s payment intent: %w", action, err)
	}
	metrics.ObserveUpstream(service, "ok", start)
	return pi, nil
}
