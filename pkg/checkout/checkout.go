// Package checkout confirms a payment after the gateway redirects the buyer
// back to the storefront, then finalizes the order exactly once.
//
//	b := checkout.New(stripeClient, checkout.NewStorefront(apiURL), store)
//	res, err := b.Confirm(ctx, returnURL)
//
// The locally stored checkout state is cleared only once the order exists
// server side, so a failed confirmation can simply be retried.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/stripe"
	"golang.org/x/sync/singleflight"
)

const (
	secretParam = "payment_intent_client_secret"
	modeRelay   = "relais"
)

var (
	ErrMissingSecret       = errors.New("checkout: return URL has no payment_intent_client_secret")
	ErrPaymentNotSucceeded = errors.New("checkout: payment not succeeded")
	ErrIncompleteState     = errors.New("checkout: stored checkout state is incomplete")
)

// Gateway reads a PaymentIntent with the publishable key.
type Gateway interface {
	RetrieveWithClientSecret(ctx context.Context, clientSecret string) (stripe.PaymentIntent, error)
}

// API is the subset of the storefront API the bridge calls.
type API interface {
	PersistRelayPoint(ctx context.Context, token string, p RelayPoint) (uint, error)
	Finalize(ctx context.Context, token string, req FinalizeRequest) (Receipt, error)
}

// Result describes a completed confirmation.
type Result struct {
	PaymentIntent    string
	OrderID          uint
	Receipt          Receipt
	AlreadyFinalized bool
}

type Bridge struct {
	gateway Gateway
	api     API
	store   Store
	group   singleflight.Group
}

func New(gateway Gateway, api API, store Store) *Bridge {
	return &Bridge{gateway: gateway, api: api, store: store}
}

// Confirm runs the confirmation for the client secret carried by returnURL.
// Concurrent calls for the same secret share one execution and its result.
func (b *Bridge) Confirm(ctx context.Context, returnURL string) (Result, error) {
	secret, err := clientSecret(returnURL)
	if err != nil {
		return Result{}, err
	}

	v, err, shared := b.group.Do(secret, func() (interface{}, error) {
		return b.confirm(ctx, secret)
	})
	if shared {
		logger.WithCtx(ctx).Debug("checkout: joined in-flight confirmation")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (b *Bridge) confirm(ctx context.Context, secret string) (Result, error) {
	log := logger.WithCtx(ctx)

	pi, err := b.gateway.RetrieveWithClientSecret(ctx, secret)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: retrieve payment: %w", err)
	}
	if !pi.Succeeded() {
		return Result{}, fmt.Errorf("%w: status %q", ErrPaymentNotSucceeded, pi.Status)
	}

	st, err := b.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: load state: %w", err)
	}
	if err := st.validate(); err != nil {
		return Result{}, err
	}

	shipping := st.IDLivraison
	if st.ModeLivraison == modeRelay && st.PointRelais != nil {
		id, err := b.api.PersistRelayPoint(ctx, st.Token, *st.PointRelais)
		if err != nil {
			return Result{}, fmt.Errorf("checkout: persist relay point: %w", err)
		}
		shipping = id
	}

	receipt, err := b.api.Finalize(ctx, st.Token, FinalizeRequest{
		IDFacturation: st.IDFacturation,
		IDLivraison:   shipping,
		ModeLivraison: st.ModeLivraison,
		PaymentIntent: pi.ID,
	})
	res := Result{PaymentIntent: pi.ID}
	switch {
	case errors.Is(err, ErrAlreadyFinalized):
		res.AlreadyFinalized = true
		log.Info("checkout: order already finalized", "payment_intent", pi.ID)
	case err != nil:
		return Result{}, fmt.Errorf("checkout: finalize: %w", err)
	default:
		res.OrderID = receipt.OrderID
		res.Receipt = receipt
		log.Info("checkout: order finalized", "payment_intent", pi.ID, "order_id", receipt.OrderID)
	}

	if err := b.store.Clear(ctx); err != nil {
		log.Warn("checkout: clear state", "error", err)
	}
	return res, nil
}

func clientSecret(returnURL string) (string, error) {
	u, err := url.Parse(returnURL)
	if err != nil {
		return "", fmt.Errorf("checkout: parse return URL: %w", err)
	}
	secret := u.Query().Get(secretParam)
	if secret == "" {
		return "", ErrMissingSecret
	}
	return secret, nil
}
