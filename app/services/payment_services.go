package services

import (
	"context"
	"errors"

	httpc "github.com/rituelsdebene/boutique/pkg/http"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/stripe"
)

// PaymentGateway is the part of the Stripe client the storefront uses.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64) (stripe.PaymentIntent, error)
	Retrieve(ctx context.Context, id string) (stripe.PaymentIntent, error)
}

type CreateIntentInput struct {
	Amount int64 `json:"amount" validate:"required,gte=50"`
}

type PaymentService struct {
	gateway PaymentGateway
}

func NewPaymentService(gateway PaymentGateway) *PaymentService {
	return &PaymentService{gateway: gateway}
}

// CreateIntent creates a PaymentIntent for amount minor units and returns
// its client secret.
func (s *PaymentService) CreateIntent(ctx context.Context, amount int64) (string, error) {
	const op = "payment.create_intent"
	if amount < 50 {
		return "", validation(op, "Montant invalide")
	}

	pi, err := s.gateway.CreatePaymentIntent(ctx, amount)
	if err != nil {
		return "", upstream(op, err)
	}
	return pi.ClientSecret, nil
}

// VerifySucceeded fails with ErrPaymentNotSucceeded unless the intent
// reached the succeeded status.
func (s *PaymentService) VerifySucceeded(ctx context.Context, intentID string) error {
	const op = "payment.verify"

	pi, err := s.gateway.Retrieve(ctx, intentID)
	if err != nil {
		var apiErr *stripe.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return ErrPaymentNotSucceeded
		}
		return upstream(op, err)
	}
	if !pi.Succeeded() {
		logger.WithCtx(ctx).Warn("payment intent not succeeded", "intent", intentID, "status", pi.Status)
		return ErrPaymentNotSucceeded
	}
	return nil
}

// upstream classifies a gateway failure as a timeout or a plain upstream error.
func upstream(op string, err error) error {
	if errors.Is(err, httpc.ErrTimeout) {
		return newError(KindUpstreamTimeout, op, "Service externe indisponible", err)
	}
	return newError(KindUpstream, op, "Service externe indisponible", err)
}
