package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/laneeditor/internal/http/server"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Aplica migraciones y levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.L().With(logger.Component("serve"))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.Build(ctx, cfg, server.Deps{})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Warn("cleanup failed", logger.Err(err))
				}
			}()

			res, err := app.Store.Migrate(ctx)
			if err != nil {
				return err
			}
			log.Info("migrations checked", logger.Count(len(res.Applied)), logger.Duration(res.Duration))

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           app.Handler,
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      cfg.Server.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("listening", logger.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
}
