package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/browser"
	"github.com/urfave/cli/v2"

	"github.com/ibeckermayer/fbsweep/internal/app"
	"github.com/ibeckermayer/fbsweep/internal/auth"
	fbbrowser "github.com/ibeckermayer/fbsweep/internal/browser"
	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/logger"
)

// handler carries what every command needs, built in setup.
type handler struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
	closer     io.Closer
}

func (h *handler) setup(c *cli.Context) error {
	h.configPath = c.String("config")

	cfg, err := config.Load(h.configPath)
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	log, closer, err := logger.New(logger.Opts{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}

	h.cfg = cfg
	h.log = log
	h.closer = closer
	return nil
}

func (h *handler) teardown(*cli.Context) error {
	if h.closer != nil {
		return h.closer.Close()
	}
	return nil
}

// fatal logs err with its context and hands it back for a non-zero exit.
func (h *handler) fatal(msg string, err error) error {
	h.log.Error(msg, "error", err)
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		return fmt.Errorf("%w (path: %s)", err, h.cfg.Auth.CredentialPath)
	case errors.Is(err, auth.ErrMissingKey):
		return fmt.Errorf("%w (path: %s)", err, h.cfg.Auth.KeyStorePath)
	}
	return err
}

func newRunCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:  "run",
		Usage: "run one search and print the JSON document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search query"},
			&cli.StringFlag{Name: "strategy", Usage: "anchor, structural or vision"},
			&cli.IntFlag{Name: "scroll-budget", Usage: "maximum scroll iterations"},
			&cli.BoolFlag{Name: "no-stabilize", Usage: "always use the whole scroll budget"},
			&cli.BoolFlag{Name: "headful", Usage: "show the browser window"},
			&cli.StringFlag{Name: "credential-path", Usage: "session cookie file"},
		},
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			applyRunFlags(c, h.cfg)

			doc, err := app.New(h.cfg, h.log).Run(c.Context)
			if err != nil && !errors.Is(err, app.ErrPartial) {
				return h.fatal("search failed", err)
			}
			return doc.WriteJSON(os.Stdout)
		},
	}
}

// applyRunFlags overrides configuration with explicitly set flags.
func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("query") {
		cfg.Search.Query = c.String("query")
	}
	if c.IsSet("strategy") {
		cfg.Search.Strategy = c.String("strategy")
	}
	if c.IsSet("scroll-budget") {
		cfg.Search.ScrollBudget = c.Int("scroll-budget")
	}
	if c.Bool("no-stabilize") {
		cfg.Search.Stabilize = false
	}
	if c.Bool("headful") {
		cfg.Browser.Headless = false
	}
	if c.IsSet("credential-path") {
		cfg.Auth.CredentialPath = c.String("credential-path")
	}
}

func newExtractCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract posts from saved page snapshots without a browser",
		ArgsUsage: "FILE.html...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "query to record in the document"},
			&cli.StringFlag{Name: "strategy", Usage: "anchor or structural"},
		},
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("no snapshot files given")
			}
			applyRunFlags(c, h.cfg)

			doc, err := app.New(h.cfg, h.log).Extract(c.Context, c.Args().Slice())
			if err != nil {
				return h.fatal("extract failed", err)
			}
			return doc.WriteJSON(os.Stdout)
		},
	}
}

func newLoginCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:   "login",
		Usage:  "log in to facebook in a browser window and save the session cookies",
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			if err := app.New(h.cfg, h.log).Login(c.Context); err != nil {
				return h.fatal("login failed", err)
			}
			return nil
		},
	}
}

func newLogoutCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:   "logout",
		Usage:  "delete the saved session cookies",
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			return app.New(h.cfg, h.log).Logout()
		},
	}
}

func newScheduleCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:   "schedule",
		Usage:  "run searches on the configured cron schedule until interrupted",
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			if err := h.cfg.Validate(); err != nil {
				return err
			}
			return app.New(h.cfg, h.log).Schedule(c.Context, h.configPath, os.Stdout)
		},
	}
}

func newOpenCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "open the config file or the cache directory",
		ArgsUsage: "config|cache",
		Action: func(c *cli.Context) error {
			var path string
			var err error

			switch target := c.Args().First(); target {
			case "config":
				path = c.String("config")
				if path == "" {
					path, err = config.ConfigPath()
				}
			case "cache":
				path, err = config.CacheDir()
			default:
				return fmt.Errorf("unknown target %q, want config or cache", target)
			}
			if err != nil {
				return fmt.Errorf("failed to get path: %w", err)
			}

			if err := browser.OpenFile(path); err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			return nil
		},
	}
}

func newBotTestCommand() *cli.Command {
	var h handler
	return &cli.Command{
		Name:   "bot-test",
		Usage:  "open bot.sannysoft.com with the scraper's browser options to audit its fingerprint",
		Before: h.setup,
		After:  h.teardown,
		Action: func(c *cli.Context) error {
			return fbbrowser.AuditFingerprint(c.Context, h.log, os.Stdin)
		},
	}
}
