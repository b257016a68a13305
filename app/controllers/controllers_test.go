package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/rituelsdebene/boutique/app/routes"
	"github.com/rituelsdebene/boutique/pkg/app"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/mondialrelay"
	"github.com/rituelsdebene/boutique/pkg/router"
	"github.com/rituelsdebene/boutique/pkg/stripe"
	"gorm.io/gorm"
)

type gateway struct {
	status string
	err    error
}

func (g *gateway) CreatePaymentIntent(_ context.Context, amount int64) (stripe.PaymentIntent, error) {
	if g.err != nil {
		return stripe.PaymentIntent{}, g.err
	}
	return stripe.PaymentIntent{ID: "pi_1", Amount: amount, ClientSecret: "pi_1_secret_x"}, nil
}

func (g *gateway) Retrieve(_ context.Context, id string) (stripe.PaymentIntent, error) {
	if g.err != nil {
		return stripe.PaymentIntent{}, g.err
	}
	return stripe.PaymentIntent{ID: id, Status: g.status}, nil
}

type relay struct {
	points []mondialrelay.Point
	err    error
}

func (r *relay) Search(context.Context, string) ([]mondialrelay.Point, error) {
	return r.points, r.err
}

// newAPI builds the full HTTP stack over db with succeeding payments and
// an empty relay search unless deps says otherwise.
func newAPI(t *testing.T, db *gorm.DB, deps ...routes.Deps) http.Handler {
	t.Helper()
	t.Cleanup(event.Flush)

	d := routes.Deps{
		Payments:  &gateway{status: stripe.StatusSucceeded},
		Relay:     &relay{points: []mondialrelay.Point{}},
		RelayRate: "3.90",
	}
	if len(deps) > 0 {
		d = deps[0]
	}
	d.DB = db

	return app.Handler(func(r *router.Router) {
		routes.RegisterAPI(r, "", d)
	})
}
