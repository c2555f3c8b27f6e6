package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/auth"
	"github.com/example/quickcommerce/internal/cart"
	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/database"
	"github.com/example/quickcommerce/internal/metrics"
	"github.com/example/quickcommerce/internal/services"
	"github.com/example/quickcommerce/internal/storage"
)

// shopper wires the client components for one CLI invocation.
type shopper struct {
	cfg     *config.Config
	log     *slog.Logger
	out     io.Writer
	errOut  io.Writer
	metrics *metrics.Metrics

	tokens    *auth.Store
	client    *api.Client
	auth      *services.AuthService
	catalog   *services.CatalogService
	orders    *services.OrderService
	addresses *services.AddressService
	cart      *cart.Manager
	telegram  *services.TelegramService

	closers []func() error
}

func newShopper(ctx context.Context, cfg *config.Config, log *slog.Logger, out, errOut io.Writer) (*shopper, error) {
	s := &shopper{cfg: cfg, log: log, out: out, errOut: errOut, metrics: metrics.New(nil)}

	backend, err := s.openStorage(ctx)
	if err != nil {
		s.close()
		return nil, err
	}

	s.tokens, err = auth.NewStore(ctx, backend, auth.WithLogger(log))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.client = api.New(cfg.APIBaseURL, s.tokens,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithPingTimeout(cfg.PingTimeout),
		api.WithMaxRetries(cfg.MaxRetries),
		api.WithLogger(log),
		api.WithMetrics(s.metrics),
	)
	s.auth = services.NewAuthService(s.client, s.tokens, log)
	s.catalog = services.NewCatalogService(s.client)
	s.orders = services.NewOrderService(s.client)
	s.addresses = services.NewAddressService(s.client, log)
	s.cart = cart.NewManager(services.NewCartService(s.client), s.tokens,
		cart.WithLogger(log), cart.WithMetrics(s.metrics))
	s.telegram = services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)

	unsubscribe := s.tokens.Subscribe(func(ev auth.Event) {
		if ev == auth.EventLogout {
			s.cart.Reset()
		}
	})
	s.closers = append(s.closers, func() error { unsubscribe(); return nil })
	return s, nil
}

func (s *shopper) openStorage(ctx context.Context) (storage.Storage, error) {
	switch s.cfg.CredentialStore {
	case config.StoreMemory:
		return storage.NewMemory(), nil
	case config.StoreFile:
		return storage.NewFile(s.cfg.CredentialsFile, s.cfg.CredentialsKey), nil
	case config.StoreRedis:
		client, err := storage.DialRedis(ctx, s.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		return storage.NewRedis(client, s.cfg.CredentialsName), nil
	case config.StorePostgres:
		db, err := database.Connect(s.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			s.closers = append(s.closers, sqlDB.Close)
		}
		return storage.NewPostgres(db, s.cfg.CredentialsName), nil
	}
	return nil, fmt.Errorf("unknown credential store %q", s.cfg.CredentialStore)
}

func (s *shopper) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}
