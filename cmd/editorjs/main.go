package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/editorjs/internal/adapters/katex"
	"github.com/atvirokodosprendimai/editorjs/internal/app"
	"github.com/atvirokodosprendimai/editorjs/internal/core/usecase"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("editorjs failed", "err", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "editorjs",
		Usage: "Validate and render EditorJS blocks against stored templates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./editorjs.sqlite",
				Sources: cli.EnvVars("EDITORJS_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "site-url",
				Sources: cli.EnvVars("EDITORJS_SITE_URL"),
				Usage:   "Base URL prefixed to relative image URLs",
			},
			&cli.StringFlag{
				Name:    "katex-bin",
				Value:   katex.DefaultCommand,
				Sources: cli.EnvVars("EDITORJS_KATEX_BIN"),
				Usage:   "Command that reads TeX on stdin and writes HTML to stdout",
			},
			&cli.DurationFlag{
				Name:    "katex-timeout",
				Sources: cli.EnvVars("EDITORJS_KATEX_TIMEOUT"),
				Usage:   "Per-expression typesetting timeout (0 disables)",
			},
			&cli.BoolFlag{
				Name:    "sanitize-html",
				Sources: cli.EnvVars("EDITORJS_SANITIZE_HTML"),
				Usage:   "Sanitize rendered HTML with a user-content policy",
			},
			&cli.IntFlag{
				Name:    "max-render-depth",
				Value:   16,
				Sources: cli.EnvVars("EDITORJS_MAX_RENDER_DEPTH"),
				Usage:   "Maximum nesting of expandable blocks",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("EDITORJS_LOG_LEVEL"),
				Usage:   "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Sources: cli.EnvVars("EDITORJS_LOG_FORMAT"),
				Usage:   "text or json",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := newLogger(c.String("log-level"), c.String("log-format"), c.Root().ErrWriter)
			if err != nil {
				return ctx, err
			}
			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			validateCommand(),
			renderCommand(),
			importCommand(),
			exportCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("EDITORJS_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "bootstrap-api-key",
				Sources: cli.EnvVars("EDITORJS_BOOTSTRAP_API_KEY"),
				Usage:   "Optional API key to upsert at startup",
			},
			&cli.StringFlag{
				Name:    "bootstrap-key-name",
				Value:   "bootstrap",
				Sources: cli.EnvVars("EDITORJS_BOOTSTRAP_KEY_NAME"),
				Usage:   "Name for bootstrap API key",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := configFromFlags(c)
			cfg.Addr = c.String("addr")
			cfg.BootstrapAPIKey = c.String("bootstrap-api-key")
			cfg.BootstrapKeyName = c.String("bootstrap-key-name")
			log := cfg.Logger

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Error("close resources", "err", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Info("received signal", "signal", sig.String())
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate block data against a template",
		ArgsUsage: "<template> <json|->",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, raw, err := blockArgs(c)
			if err != nil {
				return err
			}
			services, closer, err := app.Open(ctx, configFromFlags(c))
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := services.Validator.Validate(ctx, name, raw); err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.Root().Writer, "valid")
			return err
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render block data with a template",
		ArgsUsage: "<template> <json|->",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, raw, err := blockArgs(c)
			if err != nil {
				return err
			}
			data, err := usecase.DecodeBlockData(raw)
			if err != nil {
				return err
			}
			services, closer, err := app.Open(ctx, configFromFlags(c))
			if err != nil {
				return err
			}
			defer closer.Close()

			out, err := services.Renderer.RenderNamed(ctx, name, data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.Root().Writer, out)
			return err
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load template definitions from a YAML fixture file",
		ArgsUsage: "<file|->",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one fixture file")
			}
			in, err := openInput(c, c.Args().First())
			if err != nil {
				return err
			}
			defer in.Close()

			services, closer, err := app.Open(ctx, configFromFlags(c))
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := services.Templates.ImportFixtures(ctx, in)
			if err != nil {
				return fmt.Errorf("import fixtures (%d loaded): %w", n, err)
			}
			slog.Info("templates imported", "count", n)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write all template definitions to a YAML fixture file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one output file")
			}
			services, closer, err := app.Open(ctx, configFromFlags(c))
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := services.Templates.ExportFixtures(ctx, c.Args().First())
			if err != nil {
				return err
			}
			slog.Info("templates exported", "count", n, "path", c.Args().First())
			return nil
		},
	}
}

func configFromFlags(c *cli.Command) app.Config {
	return app.Config{
		DBPath:         c.String("db-path"),
		SiteURL:        c.String("site-url"),
		KatexCommand:   c.String("katex-bin"),
		KatexTimeout:   c.Duration("katex-timeout"),
		SanitizeHTML:   c.Bool("sanitize-html"),
		MaxRenderDepth: int(c.Int("max-render-depth")),
		Logger:         slog.Default(),
	}
}

// blockArgs reads "<template> <json>" where a json argument of "-" means
// stdin.
func blockArgs(c *cli.Command) (string, string, error) {
	if c.Args().Len() != 2 {
		return "", "", fmt.Errorf("expected <template> <json> arguments")
	}
	name, raw := c.Args().Get(0), c.Args().Get(1)
	if raw != "-" {
		return name, raw, nil
	}
	data, err := io.ReadAll(stdin(c))
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	return name, string(data), nil
}

func openInput(c *cli.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin(c)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func stdin(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
