package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mchmarny/credpulse/pkg/logging"
	"github.com/mchmarny/credpulse/pkg/predict"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverMaxHeaderBytes      = 20
	corsMaxAgeSeconds         = 300
)

func newServerCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start the HTTP scoring service",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			bundleFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address on which the server will listen (default: :8080)",
			},
			&cli.StringSliceFlag{
				Name:  "cors-origin",
				Usage: "Allowed CORS origin (can be specified multiple times)",
			},
		},
	}
}

type serverOptions struct {
	Origins        []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	app := getConfig(cmd)
	cfg := app.Config

	level := cfg.Log.Level
	if app.Debug {
		level = "debug"
	}
	logger := logging.NewServerLogger(os.Stderr, level, cfg.Log.Format, appName)
	slog.SetDefault(logger)

	b, err := loadBundle(cmd)
	if err != nil {
		return err
	}
	svc, err := predict.New(b)
	if err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	origins := cfg.Server.CORSOrigins
	if cmd.IsSet("cors-origin") {
		origins = cmd.StringSlice("cors-origin")
	}

	handler := makeRouter(svc, serverOptions{
		Origins:        origins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	})

	s := &http.Server{
		Addr:           stringOr(cmd, "addr", cfg.Server.Addr),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", s.Addr, "bundle", svc.Version())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(svc *predict.Service, opt serverOptions) http.Handler {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(logger), middleware.Recoverer)
	if opt.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opt.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         corsMaxAgeSeconds,
	}))

	r.Get("/", indexHandler)
	r.Get("/healthz", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bundle", bundleAPIHandler(svc))
		r.Post("/predict", predictAPIHandler(svc))
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
