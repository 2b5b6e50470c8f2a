// Package bootstrap wires all dependencies and starts the application.
// Static configuration comes from the YAML file (see package config);
// module state and schemas live in the settings store.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revmura/revmura-suite/adapters/auth"
	"github.com/revmura/revmura-suite/adapters/cache"
	"github.com/revmura/revmura-suite/adapters/clock"
	"github.com/revmura/revmura-suite/adapters/hasher"
	apihttp "github.com/revmura/revmura-suite/adapters/http"
	"github.com/revmura/revmura-suite/adapters/http/admin"
	"github.com/revmura/revmura-suite/adapters/idgen"
	"github.com/revmura/revmura-suite/adapters/memory"
	"github.com/revmura/revmura-suite/adapters/metrics"
	"github.com/revmura/revmura-suite/adapters/sqlite"
	tlsadapter "github.com/revmura/revmura-suite/adapters/tls"
	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/config"
	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/core/panels"
	"github.com/revmura/revmura-suite/core/registry"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/modules/cpt"
	"github.com/revmura/revmura-suite/modules/hello"
	"github.com/revmura/revmura-suite/modules/multilang"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB // nil with the memory driver
	Store      ports.SettingsStore
	Bus        *events.Bus
	Notices    *events.NoticeBoard
	Metrics    *metrics.Collector
	Registry   *registry.Registry
	Entities   *memory.EntityRegistry
	Rewrites   *memory.RewriteTable
	Panels     *panels.Registry
	Schemas    *app.SchemaStore
	Lifecycle  *app.LifecycleManager
	Admin      *admin.Handler // nil when no admin key is configured
	HTTPServer *http.Server

	// ChallengeServer answers ACME HTTP-01 challenges and redirects to
	// HTTPS; nil unless server.tls.http_port is set.
	ChallengeServer *http.Server

	holder   *config.Holder
	gatherer prometheus.Gatherer
}

// Options configures application initialization.
type Options struct {
	// ConfigPath is the YAML file to load. A missing file falls back to
	// environment variables and defaults.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// Version is reported by /version and the admin API.
	Version string

	// Watch enables hot reload on file changes and SIGHUP.
	Watch bool

	// LogOutput overrides stdout for logs.
	LogOutput io.Writer
}

// New creates and initializes the application. Modules are not booted
// until Boot or Run is called.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.LoadWithFallback(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := setupLogger(cfg.Logging, out)
	logger.Info().Msg("initializing revmura")

	var holder *config.Holder
	if opts.Config == nil && opts.Watch && opts.ConfigPath != "" && fileExists(opts.ConfigPath) {
		h, err := config.NewHolder(opts.ConfigPath, logger.With().Str("component", "config").Logger())
		if err != nil {
			return nil, err
		}
		holder = h
		cfg = h.Get()
	}

	a := &App{Logger: logger, Config: cfg, holder: holder}

	if err := a.initStore(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	a.initEvents()

	if err := a.initModules(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	if err := a.initHTTPServer(opts.Version); err != nil {
		a.Close()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	if holder != nil {
		holder.OnChange(a.applyConfig)
		if a.Metrics != nil {
			holder.OnReload(a.Metrics.RecordReload)
		}
	}

	return a, nil
}

func (a *App) initStore() error {
	switch a.Config.Database.Driver {
	case "memory":
		a.Store = memory.NewConfigStore()
		a.Logger.Warn().Msg("using in-memory settings store; state is lost on exit")
		return nil
	default:
		db, err := sqlite.Open(a.Config.Database.DSN)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.Store = sqlite.NewConfigStore(db)
		a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("database initialized")
		return nil
	}
}

func (a *App) initEvents() {
	a.Bus = events.NewBus(a.Logger,
		events.WithIDGenerator(idgen.NewUUID(idgen.PrefixEvent)),
		events.WithClock(clock.Real{}),
	)
	events.LogDiagnostics(a.Bus, a.Logger)

	a.Notices = events.NewNoticeBoard(events.DefaultNoticeLimit)
	a.Notices.Attach(a.Bus)

	if a.Config.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		a.Metrics.Attach(a.Bus)
		a.gatherer = reg
		a.Logger.Info().Msg("prometheus metrics enabled")
	}

	if path := a.Config.Cache.SnapshotPath; path != "" {
		cache.NewSnapshotFile(path, a.Logger).Attach(a.Bus)
	}
}

func (a *App) initModules() error {
	a.Entities = memory.NewEntityRegistry()
	a.Rewrites = memory.NewRewriteTable(a.Entities)
	a.Panels = panels.NewRegistry()

	authorizer := auth.ContextAuthorizer{}

	a.Schemas = app.NewSchemaStore(app.SchemaDeps{
		Store:     a.Store,
		Registrar: a.Entities,
		Routes:    a.Rewrites,
		Events:    a.Bus,
		Auth:      authorizer,
		Logger:    a.Logger.With().Str("component", "schema").Logger(),
	})

	mods, err := a.builtins(authorizer)
	if err != nil {
		return err
	}
	a.Registry = registry.New(mods...)

	a.Lifecycle = app.NewLifecycleManager(app.LifecycleDeps{
		Registry: a.Registry,
		Store:    a.Store,
		Events:   a.Bus,
		Auth:     authorizer,
		Logger:   a.Logger.With().Str("component", "lifecycle").Logger(),
	}, app.LifecycleConfig{
		Host:         a.Config.Host,
		BootOnEnable: a.Config.Modules.BootOnEnable,
	})
	return nil
}

// builtins constructs the configured modules in registration order.
func (a *App) builtins(authorizer ports.Authorizer) ([]module.Module, error) {
	var stats ports.MappingStats
	if a.DB != nil {
		stats = sqlite.NewMappingStore(a.DB)
	}

	mods := make([]module.Module, 0, len(a.Config.Modules.Registered))
	for _, id := range a.Config.Modules.Registered {
		switch module.NormalizeID(id) {
		case hello.ID:
			mods = append(mods, hello.New(a.Panels, a.Logger))
		case multilang.ID:
			mods = append(mods, multilang.New(multilang.Deps{
				Panels:   a.Panels,
				Store:    a.Store,
				Mappings: stats,
				Auth:     authorizer,
				Site:     multilang.Site{ID: a.Config.Multilang.SiteID, Language: a.Config.Multilang.Language},
				Logger:   a.Logger,
			}))
		case cpt.ID:
			mods = append(mods, cpt.New(a.Panels, a.Schemas, a.Logger))
		default:
			return nil, fmt.Errorf("unknown built-in module %q", id)
		}
	}
	return mods, nil
}

func (a *App) initHTTPServer(version string) error {
	cfg := a.Config

	var db apihttp.Pinger
	var adminDB admin.Pinger
	if a.DB != nil {
		db = a.DB
		adminDB = a.DB
	}

	routerCfg := apihttp.RouterConfig{
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
		Types:          a.Entities,
		Rules:          a.Rewrites,
		Version:        version,
		Host:           cfg.Host,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if a.gatherer != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})
	}

	if cfg.Admin.Enabled() {
		secret := cfg.Admin.TokenSecret
		if secret == "" {
			secret = auth.GenerateSecret()
			a.Logger.Warn().Msg("admin.token_secret not set; sessions will not survive a restart")
		}
		a.Admin = admin.NewHandler(admin.Deps{
			Lifecycle:    a.Lifecycle,
			Settings:     a.Store,
			Panels:       a.Panels,
			Notices:      a.Notices,
			Tokens:       auth.NewTokenService(secret, cfg.Admin.SessionTTL, idgen.NewUUID(idgen.PrefixSession), clock.Real{}),
			Hasher:       hasher.NewBcrypt(0),
			Credentials:  credentials(cfg.Admin),
			Metrics:      a.Metrics,
			DB:           adminDB,
			Clock:        clock.Real{},
			Version:      version,
			CookieSecure: cfg.Admin.CookieSecure,
			Logger:       a.Logger.With().Str("component", "admin").Logger(),
		})
		routerCfg.AdminHandler = a.Admin.Router()
	} else {
		a.Logger.Warn().Msg("admin.api_key_hash not set; admin API disabled")
	}

	health := apihttp.NewHealthHandler(a.Lifecycle, db)
	router := apihttp.NewRouterWithConfig(health, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if !cfg.Server.TLS.Enabled() {
		return nil
	}
	tlsLogger := a.Logger.With().Str("component", "tls").Logger()
	provider, err := tlsadapter.NewProvider(tlsadapter.Options{
		CertFile: cfg.Server.TLS.CertFile,
		KeyFile:  cfg.Server.TLS.KeyFile,
		Email:    cfg.Server.TLS.ACMEEmail,
		Domains:  cfg.Server.TLS.ACMEDomains,
		Staging:  cfg.Server.TLS.ACMEStaging,
	}, tlsadapter.NewStoreCache(a.Store, tlsLogger), tlsLogger)
	if err != nil {
		return err
	}
	a.HTTPServer.TLSConfig = provider.TLSConfig()

	if cfg.Server.TLS.HTTPPort > 0 {
		a.ChallengeServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.TLS.HTTPPort),
			Handler:      provider.ChallengeHandler(redirectToHTTPS(cfg.Server.Port)),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}
	return nil
}

// redirectToHTTPS sends plain HTTP requests to the TLS listener.
func redirectToHTTPS(port int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if port != 443 {
			host = net.JoinHostPort(host, strconv.Itoa(port))
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

func credentials(cfg config.AdminConfig) []admin.Credential {
	var creds []admin.Credential
	if cfg.APIKeyHash != "" {
		creds = append(creds, admin.Credential{Name: "operator", Role: auth.RoleOperator, Hash: []byte(cfg.APIKeyHash)})
	}
	if cfg.ViewerKeyHash != "" {
		creds = append(creds, admin.Credential{Name: "viewer", Role: auth.RoleViewer, Hash: []byte(cfg.ViewerKeyHash)})
	}
	return creds
}

// applyConfig applies the hot-reloadable parts of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if a.Admin != nil {
		a.Admin.SetCredentials(credentials(cfg.Admin))
	}
}

// Boot runs the module boot pass.
func (a *App) Boot(ctx context.Context) (app.BootReport, error) {
	return a.Lifecycle.Boot(ctx)
}

// Run boots the modules, starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if _, err := a.Boot(context.Background()); err != nil {
		return fmt.Errorf("boot modules: %w", err)
	}

	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch unavailable")
		}
		a.holder.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 2)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Bool("tls", a.HTTPServer.TLSConfig != nil).
			Msg("starting http server")
		var err error
		if a.HTTPServer.TLSConfig != nil {
			err = a.HTTPServer.ListenAndServeTLS("", "")
		} else {
			err = a.HTTPServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	if a.ChallengeServer != nil {
		go func() {
			a.Logger.Info().
				Str("addr", a.ChallengeServer.Addr).
				Msg("starting acme challenge server")
			if err := a.ChallengeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{a.HTTPServer, a.ChallengeServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Str("addr", srv.Addr).Msg("http server shutdown error")
		}
	}

	a.Close()
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// Close releases the config watcher and the database without touching the
// HTTP server. Command line tools use it instead of Shutdown.
func (a *App) Close() {
	if a.holder != nil {
		a.holder.Stop()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
