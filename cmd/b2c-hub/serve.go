package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"b2c-hub/config"
	"b2c-hub/internal/adapter/channel"
	"b2c-hub/internal/adapter/gateway"
	adapterhandler "b2c-hub/internal/adapter/handler"
	"b2c-hub/internal/infrastructure/b2cconfig"
	infracache "b2c-hub/internal/infrastructure/cache"
	"b2c-hub/internal/infrastructure/events"
	"b2c-hub/internal/usecase"
	appmiddleware "b2c-hub/middleware"
	"b2c-hub/utils/logger"
	"b2c-hub/utils/otel"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.WarnContext(ctx, "could not load .env file", "error", err)
	}

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	logger.Init(otelCfg.Enabled)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"port", cfg.Port,
		"resource_dir", cfg.ResourceDir,
		"default_config", cfg.DefaultConfig,
		"redis_events", cfg.RedisURL != "")
	if cfg.AuthSharedSecret == "" {
		slog.WarnContext(ctx, "AUTH_SHARED_SECRET is empty, /methods and /events are unauthenticated")
	}

	a, err := newApp(ctx, cfg, otelCfg.Enabled, otelCfg.ServiceName, slog.Default())
	if err != nil {
		return err
	}

	address := fmt.Sprintf(":%s", cfg.Port)
	slog.InfoContext(ctx, "starting b2c-hub server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.DefaultConfig != "" {
		a.provider.Go(gCtx, func(ctx context.Context) {
			a.provider.Initialize(ctx, cfg.DefaultConfig)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := a.echo.Shutdown(shutdownCtx)
		if waitErr := a.provider.Shutdown(shutdownCtx); waitErr != nil {
			slog.Warn("operations still running at shutdown", "error", waitErr)
			err = errors.Join(err, waitErr)
		}
		return errors.Join(err, a.close())
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server exited properly")
	return nil
}

// app holds the wired server.
type app struct {
	echo        *echo.Echo
	provider    *usecase.B2CProvider
	broadcaster *events.Broadcaster
	closers     []func() error
}

func newApp(ctx context.Context, cfg *config.Config, tracing bool, serviceName string, log *slog.Logger) (*app, error) {
	// Infrastructure
	loader := b2cconfig.NewLoader(cfg.ResourceDir)
	factory := gateway.NewMSALFactory(cfg.GatewayTimeout, cfg.InteractiveTimeout)
	results, err := infracache.NewAuthResultCache(cfg.AuthResultCapacity)
	if err != nil {
		return nil, fmt.Errorf("create auth result cache: %w", err)
	}

	broadcaster := events.NewBroadcaster(cfg.EventReplaySize, log)
	a := &app{broadcaster: broadcaster}

	sinks := []events.Sink{{Name: "sse", EventSink: broadcaster}}
	checks := map[string]adapterhandler.HealthCheck{}
	if cfg.RedisURL != "" {
		publisher, err := events.NewRedisPublisherWithURL(cfg.RedisURL, cfg.EventStream)
		if err != nil {
			return nil, fmt.Errorf("create redis publisher: %w", err)
		}
		sinks = append(sinks, events.Sink{Name: "redis", EventSink: publisher})
		checks["redis"] = publisher.Ping
		a.closers = append(a.closers, publisher.Close)
	}

	// Usecases
	a.provider = usecase.NewB2CProvider(loader, factory, results, events.NewFanout(sinks...), log)
	dispatcher := channel.NewDispatcher(a.provider, log)

	// Handlers
	methodHandler := adapterhandler.NewMethodHandler(dispatcher, cfg.MaxArgsBytes)
	eventsHandler := adapterhandler.NewEventsHandler(broadcaster, cfg.SSEHeartbeat, log)
	healthHandler := adapterhandler.NewHealthHandler(checks)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(appmiddleware.RequestID())
	e.Use(appmiddleware.SecurityHeaders(cfg.HSTS))

	if tracing {
		e.Use(otelecho.Middleware(serviceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				log.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"request_id", v.RequestID,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				log.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"request_id", v.RequestID,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	methodRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.MethodRateLimit), cfg.MethodRateBurst, appmiddleware.KeyByIPAndMethod)

	// Public routes
	e.GET("/health", healthHandler.Handle)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Channel routes (protected by shared secret)
	var channelAuth []echo.MiddlewareFunc
	if cfg.AuthSharedSecret != "" {
		channelAuth = append(channelAuth, appmiddleware.ChannelAuth(cfg.AuthSharedSecret))
	}
	e.POST("/methods/:method", methodHandler.Handle, append(channelAuth, methodRL.Middleware())...)
	e.GET("/events", eventsHandler.Handle, channelAuth...)

	a.echo = e
	return a, nil
}

// close releases the event sinks after the provider has drained.
func (a *app) close() error {
	errs := []error{a.broadcaster.Close()}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
