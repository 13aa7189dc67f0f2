package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kaizen/internal/api"
	"kaizen/internal/objectstore"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the storage buckets over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService()
			if err != nil {
				return err
			}
			objects, err := objectstore.New(a.cfg.Storage.Dir, a.cfg.Storage.BaseURL,
				[]byte(a.cfg.Auth.JWTSecret), objectstore.WithLogger(a.logger))
			if err != nil {
				return err
			}
			handler := api.New(a.store, svc, objects,
				api.WithLogger(a.logger),
				api.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
				api.WithSignedURLTTL(a.cfg.SignedURLTTL()),
			).Handler()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return serve(cmd.Context(), addr, handler, a.cfg.ShutdownGrace(), a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// serve runs the server until ctx is cancelled, then drains it within grace.
func serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
