package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/editorjs/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/editorjs/internal/adapters/katex"
	"github.com/atvirokodosprendimai/editorjs/internal/adapters/printformat"
	sqliteadapter "github.com/atvirokodosprendimai/editorjs/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/editorjs/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/editorjs/internal/core/usecase"
	"github.com/atvirokodosprendimai/editorjs/migrations"
)

type Config struct {
	Addr             string
	DBPath           string
	SiteURL          string
	KatexCommand     string
	KatexTimeout     time.Duration
	SanitizeHTML     bool
	MaxRenderDepth   int
	BootstrapAPIKey  string
	BootstrapKeyName string
	Logger           *slog.Logger
}

// StaticSiteURL is a site base URL fixed at startup.
type StaticSiteURL string

func (s StaticSiteURL) SiteURL() string { return string(s) }

// Services is the wired core shared by the HTTP server and the CLI.
type Services struct {
	Templates *usecase.TemplateService
	Validator *usecase.BlockValidator
	Renderer  *usecase.BlockRenderer
	Auth      *usecase.AuthService
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open opens and migrates the template store and wires the services on top.
func Open(ctx context.Context, cfg Config) (*Services, io.Closer, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	db, err := gormsqlite.Open(cfg.DBPath, log.With("component", "gorm"))
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	templateRepo := sqliteadapter.NewTemplateRepository(db)
	apiKeyRepo := sqliteadapter.NewAPIKeyRepository(db)

	var engineOpts []printformat.Option
	if cfg.SanitizeHTML {
		engineOpts = append(engineOpts, printformat.WithSanitizer())
	}

	rendererOpts := []usecase.RendererOption{
		usecase.WithMathTypesetter(katex.New(cfg.KatexCommand, cfg.KatexTimeout)),
		usecase.WithSiteURL(StaticSiteURL(cfg.SiteURL)),
		usecase.WithRendererLogger(log.With("component", "renderer")),
	}
	if cfg.MaxRenderDepth > 0 {
		rendererOpts = append(rendererOpts, usecase.WithMaxDepth(cfg.MaxRenderDepth))
	}

	services := &Services{
		Templates: usecase.NewTemplateService(templateRepo),
		Validator: usecase.NewBlockValidator(templateRepo),
		Renderer:  usecase.NewBlockRenderer(templateRepo, printformat.New(engineOpts...), rendererOpts...),
		Auth:      usecase.NewAuthService(apiKeyRepo),
	}
	return services, resourceCloser{closers: []io.Closer{db}}, nil
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	services, closer, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.BootstrapAPIKey != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 5*time.Second)
		err := services.Auth.Bootstrap(bootstrapCtx, cfg.BootstrapAPIKey, cfg.BootstrapKeyName)
		bootstrapCancel()
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("bootstrap api key: %w", err)
		}
		log.Info("bootstrap api key stored", "name", cfg.BootstrapKeyName)
	}

	handler := httpapi.NewHandler(services.Templates, services.Validator, services.Renderer, services.Auth, log.With("component", "http"))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	return server, closer, nil
}
