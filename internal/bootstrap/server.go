package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/fx"

	"github.com/demoforge/demoforge/internal/api"
	"github.com/demoforge/demoforge/internal/api/middleware"
)

func NewRouter(
	handlers *api.Handlers,
	config HTTPConfig,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	allowedOrigins := config.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		Debug:          false,
	}).Handler

	router.Use(corsMiddleware)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)

	handlers.RegisterRoutes(router)

	return router
}

func StartServer(lc fx.Lifecycle, router *chi.Mux, config HTTPConfig, logger *slog.Logger) {
	server := &http.Server{
		Addr:    ":" + config.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting server", "port", config.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Server failed to start", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server, draining connections...")
			server.SetKeepAlivesEnabled(false)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			err := server.Shutdown(shutdownCtx)
			if shutdownCtx.Err() != nil {
				logger.Warn("Graceful shutdown timed out after 2s, forcing close")
				if closeErr := server.Close(); closeErr != nil {
					logger.Error("Error force-closing server", "error", closeErr)
					return closeErr
				}
				return nil
			}
			if err != nil {
				logger.Error("Error shutting down server", "error", err)
				return err
			}
			logger.Info("HTTP server shut down gracefully")
			return nil
		},
	})
}
