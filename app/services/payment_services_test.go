package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayStub struct {
	intent  stripe.PaymentIntent
	err     error
	created []int64
}

func (g *gatewayStub) CreatePaymentIntent(_ context.Context, amount int64) (stripe.PaymentIntent, error) {
	g.created = append(g.created, amount)
	return g.intent, g.err
}

func (g *gatewayStub) Retrieve(_ context.Context, id string) (stripe.PaymentIntent, error) {
	if g.err != nil {
		return stripe.PaymentIntent{}, g.err
	}
	pi := g.intent
	pi.ID = id
	return pi, nil
}

func TestPayment_CreateIntent(t *testing.T) {
	gw := &gatewayStub{intent: stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x"}}
	svc := services.NewPaymentService(gw)

	secret, err := svc.CreateIntent(context.Background(), 3300)
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_x", secret)
	assert.Equal(t, []int64{3300}, gw.created)
}

func TestPayment_CreateIntentRejectsSmallAmounts(t *testing.T) {
	gw := &gatewayStub{}
	svc := services.NewPaymentService(gw)

	for _, amount := range []int64{-1, 0, 49} {
		_, err := svc.CreateIntent(context.Background(), amount)
		assert.ErrorIs(t, err, services.ErrValidation, "amount %d", amount)
	}
	assert.Empty(t, gw.created)
}

func TestPayment_UpstreamFailures(t *testing.T) {
	timeout := &gatewayStub{err: fmt.Errorf("stripe: create payment intent: %w", stripe.ErrTimeout)}
	_, err := services.NewPaymentService(timeout).CreateIntent(context.Background(), 100)
	assert.ErrorIs(t, err, services.ErrUpstreamTimeout)
	assert.Equal(t, services.KindUpstreamTimeout, services.KindOf(err))

	broken := &gatewayStub{err: &stripe.APIError{Status: 500, Type: "api_error"}}
	_, err = services.NewPaymentService(broken).CreateIntent(context.Background(), 100)
	assert.ErrorIs(t, err, services.ErrUpstream)
	assert.NotErrorIs(t, err, services.ErrUpstreamTimeout)
}

func TestPayment_VerifySucceeded(t *testing.T) {
	ctx := context.Background()

	ok := &gatewayStub{intent: stripe.PaymentIntent{Status: stripe.StatusSucceeded}}
	assert.NoError(t, services.NewPaymentService(ok).VerifySucceeded(ctx, "pi_1"))

	pending := &gatewayStub{intent: stripe.PaymentIntent{Status: "requires_payment_method"}}
	assert.ErrorIs(t, services.NewPaymentService(pending).VerifySucceeded(ctx, "pi_1"), services.ErrPaymentNotSucceeded)

	missing := &gatewayStub{err: &stripe.APIError{Status: 404, Code: "resource_missing"}}
	assert.ErrorIs(t, services.NewPaymentService(missing).VerifySucceeded(ctx, "pi_404"), services.ErrPaymentNotSucceeded)

	down := &gatewayStub{err: errors.New("connection refused")}
	err := services.NewPaymentService(down).VerifySucceeded(ctx, "pi_1")
	assert.ErrorIs(t, err, services.ErrUpstream)
	assert.Equal(t, "Service externe indisponible", services.MessageOf(err))
}
