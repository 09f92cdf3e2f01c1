package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rosterlabs/roster/internal/api"
	"github.com/rosterlabs/roster/internal/auth"
	"github.com/rosterlabs/roster/internal/cache"
	"github.com/rosterlabs/roster/internal/eventbus"
	"github.com/rosterlabs/roster/internal/hotreload"
	"github.com/rosterlabs/roster/internal/matcher"
	"github.com/rosterlabs/roster/internal/messagebus"
	"github.com/rosterlabs/roster/internal/metrics"
	"github.com/rosterlabs/roster/internal/registry"
	"github.com/rosterlabs/roster/internal/selector"
	"github.com/rosterlabs/roster/internal/store"
	"github.com/rosterlabs/roster/internal/telemetry"
	"github.com/rosterlabs/roster/pkg/config"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rosterd v%s\n", version)
		return
	}

	cfg, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config from %s: %v", *configPath, err)
		}
		log.Printf("No config file at %s, using defaults", *configPath)
		cfg = config.DefaultConfig()
	}

	// Override with environment variables if set
	if personaPath := os.Getenv("ROSTER_PERSONA_PATH"); personaPath != "" {
		cfg.Registry.PersonaPath = personaPath
		log.Printf("Using persona path from environment: %s", personaPath)
	}
	if dsn := os.Getenv("ROSTER_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
		cfg.Registry.Source = "postgres"
		log.Printf("Using PostgreSQL persona source from environment")
	}
	if natsURL := os.Getenv("ROSTER_NATS_URL"); natsURL != "" {
		cfg.Bus.Enabled = true
		cfg.Bus.URL = natsURL
		log.Printf("Using NATS URL from environment: %s", natsURL)
	}
	if redisURL := os.Getenv("ROSTER_REDIS_URL"); redisURL != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.RedisURL = redisURL
		log.Printf("Using Redis cache from environment")
	}

	// Initialize OpenTelemetry
	if cfg.Telemetry.Enabled {
		endpoint := cfg.Telemetry.OTLPEndpoint
		if env := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); env != "" {
			endpoint = env
		}
		shutdownTelemetry, err := telemetry.InitTelemetry(context.Background(), cfg.Telemetry.ServiceName, endpoint)
		if err != nil {
			log.Printf("Warning: Failed to initialize telemetry: %v", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					log.Printf("Error shutting down telemetry: %v", err)
				}
			}()
		}
	}

	// Persona record source
	var source store.Source
	var pgSource *store.PostgresSource
	switch cfg.Registry.Source {
	case "postgres":
		pgSource, err = store.NewPostgresSource(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pgSource.Close()
		source = pgSource
	default:
		source = store.NewFileSource(cfg.Registry.PersonaPath)
	}

	st := store.New(source, cfg.Registry.Strict)
	sel := selector.New(matcher.New(cfg.Registry.HintBonus), cfg.Registry.MinConfidence)
	reg := registry.New(st, sel, cfg.Registry.LoadTimeout)
	defer reg.Close()

	m := metrics.NewMetrics()
	reg.SetMetrics(m)

	bus := eventbus.NewEventBus()
	defer bus.Close()
	reg.SetEventBus(bus)

	// Dispatch cache
	if cfg.Cache.Enabled {
		cacheConfig := &cache.Config{
			Enabled:       true,
			DefaultTTL:    cfg.Cache.DefaultTTL,
			MaxSize:       cfg.Cache.MaxSize,
			CleanupPeriod: cfg.Cache.CleanupPeriod,
		}
		var dispatchCache *cache.Cache
		if cfg.Cache.Backend == "redis" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL, cacheConfig)
			if err != nil {
				log.Printf("Warning: Redis cache unavailable, falling back to memory: %v", err)
				dispatchCache = cache.New(cacheConfig)
			} else {
				dispatchCache = cache.NewFromRedis(redisCache)
			}
		} else {
			dispatchCache = cache.New(cacheConfig)
		}
		defer dispatchCache.Close()
		reg.SetCache(dispatchCache)
	}

	// NATS JetStream bridge
	if cfg.Bus.Enabled {
		bridge, err := messagebus.NewBridge(messagebus.Config{
			URL:        cfg.Bus.URL,
			StreamName: cfg.Bus.StreamName,
			Timeout:    cfg.Bus.Timeout,
		}, bus)
		if err != nil {
			log.Printf("Warning: NATS bridge unavailable: %v", err)
		} else {
			defer bridge.Close()
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial catalog load
	if err := reg.Load(runCtx); err != nil {
		log.Fatalf("failed to load persona catalog: %v", err)
	}
	status := reg.Status()
	log.Printf("Catalog v%d loaded: %d personas from %s", status.CatalogVersion, status.Personas, status.Source)

	// Optional persona directory watcher (file source only)
	if cfg.HotReload.Enabled && cfg.Registry.Source != "postgres" {
		watcher, err := hotreload.NewWatcher(cfg.Registry.PersonaPath, reg, cfg.HotReload.Debounce)
		if err != nil {
			log.Printf("Hot-reload initialization failed: %v", err)
		} else {
			watcher.SetEventBus(bus)
			if err := watcher.Start(runCtx); err != nil {
				log.Printf("Hot-reload watch failed: %v", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	authManager := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.APIKeys)
	if adminPassword := os.Getenv("ROSTER_ADMIN_PASSWORD"); adminPassword != "" {
		cfg.Security.AdminPassword = adminPassword
	}
	if cfg.Security.AdminPassword != "" {
		adminUser := cfg.Security.AdminUser
		if adminUser == "" {
			adminUser = "admin"
		}
		if _, err := authManager.AddUser(adminUser, cfg.Security.AdminPassword, "admin"); err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		log.Printf("Admin user %q registered for /api/v1/auth/login", adminUser)
	}

	apiServer := api.NewServer(reg, authManager, cfg)
	apiServer.SetEventBus(bus)
	apiServer.SetMetrics(m)
	handler := apiServer.SetupRoutes()

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Roster API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	log.Printf("rosterd shut down")
}
