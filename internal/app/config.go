package app

import (
	"strings"
	"time"

	"github.com/personaforge/personaforge-backend/internal/platform/envutil"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

type Config struct {
	Port    string
	GinMode string
	LogMode string

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TemplateDir points at a directory of YAML template overlays loaded on
	// top of the built-in registry. Empty means built-ins only.
	TemplateDir string

	MigrationBatchSize     int
	MigrationBatchPause    time.Duration
	MigrationWorkers       int
	MigrationRecordTimeout time.Duration
	ProgressTTL            time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		GinMode: envutil.String("GIN_MODE", "debug"),
		LogMode: envutil.String("LOG_MODE", "development"),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		TemplateDir: envutil.String("TEMPLATE_DIR", ""),

		MigrationBatchSize:     envutil.Int("MIGRATION_BATCH_SIZE", 10),
		MigrationBatchPause:    envutil.Duration("MIGRATION_BATCH_PAUSE", 0),
		MigrationWorkers:       envutil.Int("MIGRATION_WORKERS", 1),
		MigrationRecordTimeout: envutil.Duration("MIGRATION_RECORD_TIMEOUT", 30*time.Second),
		ProgressTTL:            envutil.Duration("MIGRATION_PROGRESS_TTL", time.Hour),
	}

	if raw := envutil.String("CORS_ALLOW_ORIGINS", ""); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	log.Info("Config loaded",
		"port", cfg.Port,
		"redis", cfg.RedisAddr != "",
		"template_dir", cfg.TemplateDir,
		"migration_workers", cfg.MigrationWorkers,
	)
	return cfg
}
