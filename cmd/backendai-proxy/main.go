package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"backendai-proxy-go/internal/auth"
	"backendai-proxy-go/internal/client"
	"backendai-proxy-go/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='BACKENDAI_CONFIG'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`

	Proxy   ProxyCmd   `kong:"cmd,help='Run a non-encrypted non-authorized API proxy server. Use this only for development and testing.'"`
	Ps      PsCmd      `kong:"cmd,help='List the running compute sessions of the current keypair.'"`
	Logs    LogsCmd    `kong:"cmd,help='Show the container logs of a compute session.'"`
	Admin   AdminCmd   `kong:"cmd,help='Administrative commands (admin privilege required).'"`
	Manager ManagerCmd `kong:"cmd,help='Control the manager server status.'"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("backendai-proxy"),
		kong.Description("Transparent streaming proxy and client CLI for the Backend.AI API."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

// newAPIClient builds a one-shot upstream client for the non-server
// subcommands. Log output goes to stderr so tables stay pipeable.
func newAPIClient(cli *CLI) (*client.APIClient, *config.Config, error) {
	cfg, err := config.Load(cli.Config, config.Overrides{LogLevel: cli.LogLevel})
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c, err := client.New(cfg, auth.NewSigner(cfg), logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}
