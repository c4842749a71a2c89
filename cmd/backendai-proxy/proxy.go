package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"backendai-proxy-go/internal/auth"
	"backendai-proxy-go/internal/client"
	"backendai-proxy-go/internal/config"
	"backendai-proxy-go/internal/handler"
	"backendai-proxy-go/internal/metrics"
	"backendai-proxy-go/internal/middleware"
	"backendai-proxy-go/internal/service"
)

// ProxyCmd runs the local proxy server.
type ProxyCmd struct {
	Bind string `kong:"default='localhost',help='The IP/host address to bind this proxy.'"`
	Port int    `kong:"short='p',default='8084',help='The TCP port to accept non-encrypted non-authorized API requests.'"`
}

// Run assembles the proxy application and blocks until shutdown.
func (cmd *ProxyCmd) Run(cli *CLI) error {
	fx.New(
		fx.Provide(
			func() (*config.Config, error) {
				return config.Load(cli.Config, config.Overrides{
					Bind:     cmd.Bind,
					Port:     cmd.Port,
					LogLevel: cli.LogLevel,
				})
			},
			func() handler.Version { return handler.Version(version) },
			newLogger,
			newMetrics,
			newEcho,
			auth.NewSigner,
			client.New,
			service.NewForwarder,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(
			handler.RegisterRoutes,
			registerMetricsRoute,
			warnConfigPermissions,
			manageClientLifecycle,
			startServer,
		),
	).Run()
	return nil
}

func newMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks. ReadTimeout stays
	// disabled because WebSocket bridge sessions and streamed uploads are
	// long-lived by design; ReadHeaderTimeout still bounds the handshake.
	e.Server.ReadTimeout = 0
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())
	if m != nil {
		e.Use(middleware.MetricsMiddleware(m))
	}

	if cfg.Server.RateLimit.Enabled {
		store := echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit.RequestsPerSecond))
		e.Use(echomw.RateLimiter(store))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func registerMetricsRoute(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if m == nil {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(
		promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// manageClientLifecycle ties the shared upstream session to the app
// lifecycle: created at startup by the provider, released at shutdown here.
func manageClientLifecycle(lc fx.Lifecycle, c *client.APIClient) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			c.Close()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting proxy server", "addr", addr, "endpoint", cfg.Backend.Endpoint)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down proxy server")
			return e.Shutdown(ctx)
		},
	})
}
