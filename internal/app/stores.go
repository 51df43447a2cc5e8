package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsScanner/internal/config"
	"NewsScanner/internal/infrastructure/storage"
	"NewsScanner/internal/infrastructure/tunnel"
	"NewsScanner/internal/ports"
)

// stores bundles the persistence chosen by output.mode plus the optional Redis history.
type stores struct {
	articles ports.ArticleStore
	accepted ports.AcceptedLister
	history  ports.HistoryStore
	closers  []func() error
}

func (s *stores) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if cfg.Tunnel.Enabled {
		tun, err := tunnel.Open(ctx, tunnel.Config{
			Host:           cfg.Tunnel.Host,
			User:           cfg.Tunnel.User,
			Password:       cfg.Tunnel.Password,
			KeyFile:        cfg.Tunnel.KeyFile,
			KnownHostsFile: cfg.Tunnel.KnownHosts,
			RemoteAddr:     cfg.Tunnel.RemoteAddr,
			LocalAddr:      cfg.Tunnel.LocalAddr,
		}, logger.With("component", "tunnel"))
		if err != nil {
			return nil, err
		}
		s.onClose(tun.Close)
	}

	switch cfg.Output.Mode {
	case config.OutputMongo:
		client, db, err := storage.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, 10*time.Second)
		if err != nil {
			return nil, err
		}
		s.onClose(func() error { return client.Disconnect(context.Background()) })

		store := storage.NewMongoStore(db, logger.With("component", "store.mongo"))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		s.articles, s.accepted, s.history = store, store, store

	case config.OutputPostgres:
		db, err := storage.ConnectPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		s.onClose(db.Close)

		store := storage.NewPostgresStore(db, logger.With("component", "store.postgres"))
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s.articles, s.accepted, s.history = store, store, store

	default:
		store, err := storage.NewJSONLStore(cfg.Output.Dir, logger.With("component", "store.jsonl"))
		if err != nil {
			return nil, err
		}
		s.articles, s.accepted, s.history = store, store, store
	}

	if cfg.Redis.Address != "" {
		client, err := storage.ConnectRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis history: %w", err)
		}
		s.onClose(client.Close)
		s.history = storage.NewRedisHistory(client)
	}

	return s, nil
}
