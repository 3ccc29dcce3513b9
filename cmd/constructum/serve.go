package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/cascade"
	"github.com/krushilnaik/constructum-mk2/internal/config"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/server"
	"github.com/krushilnaik/constructum-mk2/internal/session"
	"github.com/krushilnaik/constructum-mk2/internal/store"
	"github.com/krushilnaik/constructum-mk2/internal/store/memstore"
	"github.com/krushilnaik/constructum-mk2/internal/store/postgres"
	schedsync "github.com/krushilnaik/constructum-mk2/internal/sync"
)

// memoryDatabase as CONSTRUCTUM_DATABASE_URL selects the in-memory store.
const memoryDatabase = "memory"

const shutdownGrace = 10 * time.Second

// teardown runs cleanup steps in reverse order of registration.
type teardown struct {
	logger *slog.Logger
	steps  []func() error
	names  []string
}

func (t *teardown) add(name string, fn func() error) {
	t.names = append(t.names, name)
	t.steps = append(t.steps, fn)
}

func (t *teardown) run() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		if err := t.steps[i](); err != nil {
			t.logger.Error("shutdown step failed", "step", t.names[i], "err", err)
			continue
		}
		t.logger.Debug("stopped", "step", t.names[i])
	}
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server needs no client connection.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		down := &teardown{logger: logger}
		defer down.run()

		st, err := openStore(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		down.add("store", st.Close)

		publisher, err := openPublisher(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		down.add("publisher", publisher.Close)

		opts := []server.Option{
			server.WithLogger(logger),
			server.WithCascadeOptions(cascade.Options{PreserveDuration: cfg.CascadePreserveDuration}),
		}
		// Registered before the servers so it stops after them and exports
		// their final writes.
		if exporter := newSyncScheduler(cfg, st, logger); exporter != nil {
			exporter.Start()
			down.add("sync", func() error { exporter.Stop(); return nil })
			opts = append(opts, server.WithSyncNotifier(exporter))
		}

		srv := server.New(st, publisher, opts...)
		srv.Drags.StartReaper(&session.ReaperConfig{
			IdleTimeout: cfg.DragIdleTimeout,
			OnCancel: func(s *session.Session) {
				logger.Info("drag abandoned", "session_id", s.ID, "task_id", s.TaskID)
			},
		})
		down.add("drag reaper", func() error { srv.Drags.Stop(); return nil })

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer := server.NewGRPCServer(srv, cfg.AuthToken)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc serve", "err", err)
			}
		}()
		down.add("grpc", func() error { grpcServer.GracefulStop(); return nil })

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve", "err", err)
			}
		}()
		down.add("http", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return httpServer.Shutdown(ctx)
		})

		logger.Info("serving",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"auth", cfg.AuthToken != "",
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	},
}

func openStore(databaseURL string, logger *slog.Logger) (store.Store, error) {
	if databaseURL == memoryDatabase {
		logger.Warn("in-memory store: nothing survives a restart")
		return memstore.New(), nil
	}
	return postgres.New(databaseURL)
}

func openPublisher(natsURL string, logger *slog.Logger) (events.Publisher, error) {
	if natsURL == "" {
		logger.Info("event publishing off; set CONSTRUCTUM_NATS_URL to enable")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(natsURL)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing events", "nats_url", natsURL)
	return pub, nil
}

// newSyncScheduler is nil when syncing is off or has nowhere to write.
func newSyncScheduler(cfg *config.Config, st store.Store, logger *slog.Logger) *schedsync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}
	var dests []schedsync.Destination
	if cfg.SyncS3Bucket != "" {
		d, err := schedsync.NewS3Destination(context.Background(), schedsync.S3Options{
			Bucket:   cfg.SyncS3Bucket,
			Key:      cfg.SyncS3Key,
			Region:   cfg.SyncS3Region,
			Endpoint: cfg.SyncS3Endpoint,
		})
		if err != nil {
			logger.Error("s3 sync disabled", "err", err)
		} else {
			dests = append(dests, d)
		}
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, schedsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch, ""))
	}
	if len(dests) == 0 {
		return nil
	}
	for _, d := range dests {
		logger.Info("sync destination", "name", d.Name(), "interval", cfg.SyncInterval)
	}
	return schedsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
}
