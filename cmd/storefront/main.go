package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/kmaina-dev/storefront-core/internal/cart"
	"github.com/kmaina-dev/storefront-core/internal/checkout"
	"github.com/kmaina-dev/storefront-core/internal/config"
	"github.com/kmaina-dev/storefront-core/internal/events"
	"github.com/kmaina-dev/storefront-core/internal/metrics"
	"github.com/kmaina-dev/storefront-core/internal/mpesa"
	"github.com/kmaina-dev/storefront-core/internal/notify"
	"github.com/kmaina-dev/storefront-core/internal/order"
	"github.com/kmaina-dev/storefront-core/internal/wishlist"
)

func main() {
	cfg := config.Load()

	if err := order.RunMigrations(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("postgres pool")
	}
	defer pool.Close()

	bus := events.NewBus()
	notifier := notify.NewBus()
	carts := cart.NewManager(bus, notifier)
	wishes := wishlist.NewManager(bus, notifier)

	repo := order.NewPGRepo(pool)
	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.MpesaBaseURL,
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
		Timeout:        cfg.MpesaTimeout,
	})

	m := metrics.NewCheckout()
	orch := checkout.NewOrchestrator(gateway, repo, m)

	r := newRouter(deps{
		carts:    carts,
		wishes:   wishes,
		notifier: notifier,
		bus:      bus,
		orch:     orch,
		orders:   repo,
		metrics:  m,
	})

	log.WithField("addr", cfg.HTTPAddr).Info("storefront listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
