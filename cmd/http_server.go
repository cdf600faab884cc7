package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/auth"
	"github.com/frahmantamala/trip-expense/internal/balance"
	"github.com/frahmantamala/trip-expense/internal/chat"
	"github.com/frahmantamala/trip-expense/internal/core/metrics"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/messaging/amqp"
	"github.com/frahmantamala/trip-expense/internal/transport"
	"github.com/frahmantamala/trip-expense/internal/transport/middleware"
	"github.com/frahmantamala/trip-expense/internal/transport/rest"
	"github.com/frahmantamala/trip-expense/internal/trip"
	"github.com/frahmantamala/trip-expense/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env, cfg.Observability.Logging.Level)

	app, err := newApplication(cfg, logger.LoggerWrapper())
	if err != nil {
		slog.Error("Failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := chi.NewRouter()
	routes, err := buildRoutes(app)
	if err != nil {
		slog.Error("Failed to build routes", "error", err)
		os.Exit(1)
	}
	rest.RegisterAllRoutes(router, routes)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "reference_currency", app.Converter.Reference())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := app.Bus.Drain(ctx); err != nil {
			slog.Warn("Event handlers still running at shutdown", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func buildRoutes(app *application) (rest.Routes, error) {
	cfg := app.Config
	base := transport.NewBaseHandler(app.Logger)

	routes := rest.Routes{
		Base:           base,
		Health:         rest.NewHealthHandler(base, app.healthChecks()),
		Trips:          trip.NewHandler(base, app.Trips),
		Expenses:       expense.NewHandler(base, app.Expenses),
		Balances:       balance.NewHandler(base, app.Balances),
		Chat:           chat.NewHandler(base, app.Chat),
		Currencies:     currency.NewHandler(base, app.Converter),
		Authenticator:  app.Auth,
		AllowHeaderID:  cfg.Security.AllowHeaderIdentity,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Server.OpenAPISpec != "" {
		if _, err := os.Stat(cfg.Server.OpenAPISpec); err == nil {
			routes.OpenAPISpecPath = cfg.Server.OpenAPISpec
		} else {
			app.Logger.Warn("openapi spec not found, docs disabled", "path", cfg.Server.OpenAPISpec)
		}
	}

	if cfg.Server.ValidateRequests {
		if routes.OpenAPISpecPath == "" {
			return rest.Routes{}, fmt.Errorf("validate_requests needs a readable openapi_spec")
		}
		validator, err := middleware.NewRequestValidator(routes.OpenAPISpecPath, base)
		if err != nil {
			return rest.Routes{}, fmt.Errorf("load request validator: %w", err)
		}
		routes.Validator = validator
	}

	if app.Metrics != nil {
		routes.Metrics = app.Metrics
		routes.MetricsPath = cfg.Observability.Metrics.Path
		routes.MetricsView = app.Metrics.Handler()
	}

	return routes, nil
}

func (app *application) healthChecks() map[string]rest.Check {
	checks := map[string]rest.Check{
		"database": func(ctx context.Context) error {
			return app.DB.PingContext(ctx)
		},
	}
	if app.Broker != nil {
		checks["broker"] = func(ctx context.Context) error {
			if app.Broker.IsClosed() {
				return errors.New("broker connection closed")
			}
			return nil
		}
	}
	return checks
}

// newAuthService builds the bearer token verifier. Without a secret only X-User-ID works, so
// every bearer token is rejected.
func newAuthService(cfg internal.SecurityConfig) *auth.Service {
	return auth.NewService(auth.NewJWTTokenGenerator(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenDuration))
}

func newMetrics(cfg internal.MetricsConfig) *metrics.Metrics {
	if !cfg.Enabled {
		return nil
	}
	return metrics.New()
}

func newRelay(cfg internal.MessagingConfig, m *metrics.Metrics, lg *slog.Logger) (*amqp.Client, *amqp.Relay, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.ExchangeName)
	if err != nil {
		return nil, nil, err
	}
	relay := amqp.NewRelay(client, cfg.RoutingKey, lg)
	if m != nil {
		relay.WithMetrics(m)
	}
	return client, relay, nil
}
