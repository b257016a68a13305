// Package app assembles the storefront process: configuration, database,
// cache, background mail workers, event listeners and the HTTP handler.
//
//	a, err := app.Boot(app.Options{})
//	if err != nil { ... }
//	defer a.Close()
//	return a.Serve(ctx, routes.RegisterAPI)
package app

import (
	"fmt"

	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/database"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/mondialrelay"
	"github.com/rituelsdebene/boutique/pkg/stripe"
	"github.com/rituelsdebene/boutique/pkg/workerpool"
	"gorm.io/gorm"
)

// Options controls which subsystems Boot starts.
type Options struct {
	// SkipCache leaves Redis disconnected; reads always hit the database.
	SkipCache bool
}

// Application holds the long-lived collaborators of a running process.
type Application struct {
	DB     *gorm.DB
	Stripe *stripe.Client
	Relay  *mondialrelay.Client
	Mail   *workerpool.Pool
	Events *event.Dispatcher
}

// Boot loads configuration and connects every backing service. A missing
// Redis is logged and tolerated.
func Boot(opts Options) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Info("booting", "env", config.AppEnv(), "driver", config.DatabaseDriver())

	if err := database.Connect(); err != nil {
		return nil, err
	}

	if !opts.SkipCache {
		if err := cache.Connect(); err != nil {
			logger.Warn("cache disabled", "error", err)
		}
	}

	timeout := config.OutboundTimeout()
	return &Application{
		DB: database.DB,
		Stripe: stripe.New(stripe.Config{
			SecretKey:      config.StripeSecretKey(),
			PublishableKey: config.StripePublishableKey(),
			Currency:       config.StripeCurrency(),
			BaseURL:        config.StripeAPIBase(),
			Timeout:        timeout,
		}),
		Relay: mondialrelay.New(mondialrelay.Config{
			Enseigne:   config.MondialRelayEnseigne(),
			PrivateKey: config.MondialRelayPrivateKey(),
			URL:        config.MondialRelayURL(),
			Timeout:    timeout,
		}),
		Mail:   workerpool.New(config.MailWorkers()),
		Events: event.Default(),
	}, nil
}

// Close drains queued emails and releases the connection pools.
func (a *Application) Close() {
	if a.Mail != nil {
		a.Mail.Shutdown()
	}
	if cache.RDB != nil {
		_ = cache.RDB.Close()
	}
	if err := database.Close(); err != nil {
		logger.Warn("database close", "error", err)
	}
}
