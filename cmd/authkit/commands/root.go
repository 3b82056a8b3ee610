package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/authkit/internal/app"
	"github.com/florianilch/authkit/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand().Run(ctx, args)
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "authkit",
		Usage: "Sign in with an OAuth provider and manage cached tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
				Value: string(app.DefaultConfigLogFormat),
			},
		},
		Commands: []*cli.Command{
			tokenCommand(),
			signInCommand(),
			signOutCommand(),
			whoAmICommand(),
			serveCommand(),
		},
	}
}

// cacheFlags select and locate the token cache backend.
func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "cache--runtime",
			Usage: "token cache runtime (auto|web|native)",
			Value: string(app.DefaultConfigCacheRuntime),
		},
		&cli.StringFlag{
			Name:  "cache--local-storage",
			Usage: "path of the persistent token file used on web runtimes (\"none\" keeps tokens in memory)",
		},
		&cli.StringFlag{
			Name:  "cache--keyring-service",
			Usage: "keyring service name used on native runtimes",
			Value: app.DefaultConfigKeyringService,
		},
	}
}

// setup loads configuration and installs logging. The returned cleanup flushes logs.
func setup(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating any component
	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}
	return cfg, cleanup, nil
}
