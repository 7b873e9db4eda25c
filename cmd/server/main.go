package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"rocket-tracker/internal/config"
	"rocket-tracker/internal/constants"
	fxmodules "rocket-tracker/internal/fx"
	"rocket-tracker/internal/metrics"
	"rocket-tracker/internal/middleware"
	"rocket-tracker/internal/server"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.Server,
	router *message.Router,
	pubsub *gochannel.GoChannel,
	cfg *config.Config,
	db *sql.DB,
	m *metrics.Metrics,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	apiServer.Register(mux)
	mux.Handle("GET /metrics", m.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	requestIDMiddleware := middleware.RequestID(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: requestIDMiddleware(c.Handler(mux)),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Msg("scrape worker starting")
				if err := router.Run(context.Background()); err != nil {
					logger.Fatal().Err(err).Msg("scrape worker failed")
				}
			}()
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := router.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing scrape worker")
			}
			if err := pubsub.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing job queue")
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
