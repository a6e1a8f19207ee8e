package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/personaforge/personaforge-backend/internal/clients/redisclient"
	"github.com/personaforge/personaforge-backend/internal/data/repos"
	"github.com/personaforge/personaforge-backend/internal/db"
	"github.com/personaforge/personaforge-backend/internal/handlers"
	"github.com/personaforge/personaforge-backend/internal/migration"
	"github.com/personaforge/personaforge-backend/internal/normalize"
	"github.com/personaforge/personaforge-backend/internal/platform/envutil"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/server"
	"github.com/personaforge/personaforge-backend/internal/services"
	"github.com/personaforge/personaforge-backend/internal/validation"
)

type Repos struct {
	Persona repos.PersonaRepo
}

type Services struct {
	Persona   services.PersonaService
	Migration services.MigrationService
}

type Handlers struct {
	Persona   *handlers.PersonaHandler
	Migration *handlers.MigrationHandler
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	coordinator *migration.Coordinator
	httpServer  *http.Server
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	gin.SetMode(cfg.GinMode)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	registry := validation.NewRegistry(log)
	if cfg.TemplateDir != "" {
		if err := registry.LoadDir(cfg.TemplateDir); err != nil {
			log.Sync()
			return nil, fmt.Errorf("load templates from %s: %w", cfg.TemplateDir, err)
		}
	}
	engine := validation.NewEngine(registry, log)
	normalizer := normalize.New(engine, log)

	reposet := Repos{
		Persona: repos.NewPersonaRepo(theDB, log),
	}

	progress := wireProgressStore(cfg, log)
	coordinator := migration.NewCoordinator(
		services.NewRepoRecordStore(reposet.Persona),
		progress,
		normalizer,
		migration.Config{
			BatchSize:     cfg.MigrationBatchSize,
			BatchPause:    cfg.MigrationBatchPause,
			Workers:       cfg.MigrationWorkers,
			RecordTimeout: cfg.MigrationRecordTimeout,
		},
		log,
	)

	serviceset := Services{
		Persona:   services.NewPersonaService(theDB, log, reposet.Persona, engine, normalizer),
		Migration: services.NewMigrationService(log, reposet.Persona, coordinator),
	}

	handlerset := Handlers{
		Persona:   handlers.NewPersonaHandler(serviceset.Persona),
		Migration: handlers.NewMigrationHandler(serviceset.Migration),
	}

	router := server.NewRouter(server.RouterConfig{
		PersonaHandler:   handlerset.Persona,
		MigrationHandler: handlerset.Migration,
		AllowOrigins:     cfg.CORSOrigins,
	})

	return &App{
		Log:         log,
		DB:          theDB,
		Router:      router,
		Cfg:         cfg,
		Repos:       reposet,
		Services:    serviceset,
		coordinator: coordinator,
	}, nil
}

// wireProgressStore prefers Redis so progress survives restarts and is
// visible across instances; without an address it falls back to the
// in-process store.
func wireProgressStore(cfg Config, log *logger.Logger) migration.ProgressStore {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-memory migration progress store")
		return migration.NewMemoryProgressStore(cfg.ProgressTTL)
	}
	rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory progress store", "error", err)
		return migration.NewMemoryProgressStore(cfg.ProgressTTL)
	}
	return migration.NewRedisProgressStore(rdb, cfg.ProgressTTL, log)
}

func (a *App) Run() error {
	a.httpServer = &http.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Router,
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting HTTP traffic, then waits for in-flight
// migration jobs to drain.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.httpServer != nil {
		err = a.httpServer.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		a.coordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		a.Log.Warn("Timed out waiting for migration jobs to drain")
	}
	a.Log.Sync()
	return err
}
