package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/hero-assign-backend/internal/config"
	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
	"github.com/DoyleJ11/hero-assign-backend/internal/events"
	"github.com/DoyleJ11/hero-assign-backend/internal/feed"
	"github.com/DoyleJ11/hero-assign-backend/internal/httpapi"
	"github.com/DoyleJ11/hero-assign-backend/internal/logging"
	"github.com/DoyleJ11/hero-assign-backend/internal/metrics"
	"github.com/DoyleJ11/hero-assign-backend/internal/storage"
	"github.com/DoyleJ11/hero-assign-backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	publisher, closePublisher, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	collector := metrics.NewPrometheus("heroes")
	f := feed.New(ctx, engine.Status{})

	s := newStore(ctx, backend,
		store.WithNotifier(f),
		store.WithPublisher(publisher),
		store.WithMetrics(collector),
		store.WithLogger(log),
	)
	defer s.Close()

	// Creates the record on first start. The feed skips the publish when
	// creation already announced the same status.
	st, err := s.Status(ctx)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	f.Notify(st)
	collector.SetRemaining(st.Remaining)

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Store:     s,
		Feed:      f,
		WSOrigins: cfg.WSOrigins,
		Metrics:   collector.Handler(),
		Log:       log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Close the feed first so /ws handlers return and Shutdown can finish.
		select {
		case f.Inbox() <- feed.Shutdown{}:
		case <-f.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newStore detaches the store from ctx cancellation so requests still being
// drained by srv.Shutdown can reach it. It stops on Close.
func newStore(ctx context.Context, backend storage.Storage, opts ...store.Option) *store.Store {
	return store.New(context.WithoutCancel(ctx), backend, opts...)
}

func openStorage(cfg config.Config) (storage.Storage, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		p, err := storage.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		return storage.NewFile(cfg.DataFile), func() {}, nil
	}
}

func openPublisher(cfg config.Config, log *zap.Logger) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, func() {}, nil
	}
	p, err := events.Connect(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing events", zap.String("nats_url", cfg.NATSURL), zap.String("subject", cfg.NATSSubject))
	return p, func() { _ = p.Close() }, nil
}
