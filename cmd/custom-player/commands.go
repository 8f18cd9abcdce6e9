package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-custom-player/internal/auth"
	"github.com/justestif/go-spotify-custom-player/internal/config"
	"github.com/justestif/go-spotify-custom-player/internal/imagecheck"
	"github.com/justestif/go-spotify-custom-player/internal/logging"
	"github.com/justestif/go-spotify-custom-player/internal/session"
	"github.com/justestif/go-spotify-custom-player/internal/web"
	webfs "github.com/justestif/go-spotify-custom-player/web"
)

const defaultConfigFile = "config.toml"

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "custom-player",
		Usage:  "Show what you are playing on Spotify over a background of your choice",
		Writer: os.Stdout,
		Flags:  serveFlags(),
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web server (default)",
				Flags:  serveFlags(),
				Action: serve,
			},
			{
				Name:  "config",
				Usage: "Configuration helpers",
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write an example configuration file",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "path",
								Aliases: []string{"p"},
								Usage:   "Where to write the file",
								Value:   defaultConfigFile,
							},
						},
						Action: configInit,
					},
				},
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: ./config.toml when present)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a .env file loaded before the environment is read",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "Listen address, overrides server.addr",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error; overrides log.level",
		},
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Log.Level)

	backend, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer backend.Close()
	go backend.Sweep(ctx, cfg.Session.CleanupInterval, logger)

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Server:   cfg.Server,
		Images:   cfg.Images,
		Provider: auth.NewSpotifyProvider(cfg.Spotify),
		Sessions: session.NewManager(backend.Store, session.Options{
			Lifetime:    cfg.Session.Lifetime,
			IdleTimeout: cfg.Session.IdleTimeout,
			Secure:      cfg.Server.SecureCookies,
		}),
		Validator:   imagecheck.New(cfg.Images),
		Players:     web.SpotifyPlayers,
		TemplatesFS: templates,
		StaticFS:    static,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("session store ready", "backend", cfg.Session.Backend)
	return server.Run(ctx)
}

// loadConfig builds the validated configuration for serve.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(cmd.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(resolveConfigPath(cmd.String("config")))
	if err != nil {
		return nil, err
	}

	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath returns flagValue when set, otherwise the default config
// file if it exists, otherwise "" (defaults and environment only).
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func configInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Wrote %s\n", path)
	return nil
}
