package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/worker"
)

func newWorkerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run or probe the off-thread analysis worker.",
	}

	cmd.AddCommand(newWorkerServeCmd(a))

	return cmd
}

func newWorkerServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the worker protocol over WebSocket at /ws.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.WorkerAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, cleanup, err := newWorkerHandler(ctx, a)
			if err != nil {
				return err
			}
			defer cleanup()

			a.log.Info("worker listening", zap.String("addr", addr))

			return worker.NewServer(h, a.log).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default WORKER_ADDR)")

	return cmd
}

// newWorkerHandler wires MinIO and Redis when configured. Without them the
// handler keeps blobs and results in memory.
func newWorkerHandler(ctx context.Context, a *app) (*worker.Handler, func(), error) {
	opts := []worker.HandlerOption{worker.WithHandlerLogger(a.log)}
	cleanup := func() {}

	if m := a.cfg.MinIO; m.Enabled() {
		store, err := worker.NewMinIOStore(ctx, worker.MinIOConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, worker.WithBlobStore(store))
		a.log.Info("blob store ready", zap.String("endpoint", m.Endpoint), zap.String("bucket", m.Bucket))
	}

	if r := a.cfg.Redis; r.Enabled() {
		cache, err := worker.NewRedisCache(ctx, worker.RedisConfig{
			Addr:     r.Addr(),
			Password: r.Password,
			DB:       r.DB,
			TTL:      r.TTL,
		})
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, worker.WithResultCache(cache))
		cleanup = func() { _ = cache.Close() }
		a.log.Info("result cache ready", zap.String("addr", r.Addr()))
	}

	h, err := worker.NewHandler(opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return h, cleanup, nil
}
