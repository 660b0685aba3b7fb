package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vaibhav23244/multi-agent-backend/config"
	"github.com/vaibhav23244/multi-agent-backend/handlers"
	"github.com/vaibhav23244/multi-agent-backend/logging"
	"github.com/vaibhav23244/multi-agent-backend/services"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	stack, err := services.NewStack(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}

	chatHandler := handlers.NewChatHandler(stack.Chat)

	router := mux.NewRouter()

	router.Use(requestLogger(logger))
	router.Use(corsMiddleware)
	router.Use(jsonMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	chatHandler.RegisterRoutes(router)

	addr := ":" + cfg.Port
	logger.Info().
		Str("port", cfg.Port).
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.ResolvedModel()).
		Strs("tools", stack.Registry.Names()).
		Msg("Server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: router}
	if err := serve(ctx, srv, stack, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// serve runs srv until it fails or ctx is cancelled. The stack is closed on
// every exit path before serve returns.
func serve(ctx context.Context, srv *http.Server, stack io.Closer, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info().Msg("Received termination signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = err
		}
	}

	if err := stack.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close services")
	}
	return serveErr
}

func requestLogger(base zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()

			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))

			logger.Debug().Dur("duration", time.Since(start)).Msg("Request handled")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
