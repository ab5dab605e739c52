package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"ink2text-backend/internal/documents"
	"ink2text-backend/internal/imaging"
	"ink2text-backend/internal/ocr"
	"ink2text-backend/internal/shared/config"
	"ink2text-backend/internal/shared/server"
	"ink2text-backend/internal/shared/storage/db"
	"ink2text-backend/internal/shared/storage/object"
	localstore "ink2text-backend/internal/shared/storage/object/local"
	"ink2text-backend/internal/shared/telemetry"
)

// App holds shared dependencies wired at startup. Tests build an App and then
// swap individual fields (typically Service.Engine) before exercising Router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Repo    documents.Repo
	Archive object.Store
	Engine  ocr.Engine
	Service *documents.Service
	Handler *documents.Handler
}

// Build prepares all dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: migrations failed; using in-memory repository: %v", err)
				sqlDB.Close()
				sqlDB = nil
			} else {
				sqlDB.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	var archive object.Store
	if strings.TrimSpace(cfg.LocalStoreDir) != "" {
		archive = localstore.New(cfg.LocalStoreDir)
	}

	engine := buildEngine(cfg)

	svc := &documents.Service{
		Repo:      repo,
		Engine:    engine,
		Validator: imaging.NewValidator(cfg.AllowedExtensions),
		Archive:   archive,
		Binarize:  cfg.OCRBinarize,
		Threshold: cfg.OCRThreshold,
	}
	handler := documents.NewHandler(svc, cfg.MaxUploadBytes)

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Repo:    repo,
		Archive: archive,
		Engine:  engine,
		Service: svc,
		Handler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Documents: handler,
	})

	engineName := "none"
	if engine != nil {
		engineName = engine.Name()
	}
	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"database": sqlDB != nil,
		"engine":   engineName,
		"archive":  archive != nil,
	})
	return app, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildEngine(cfg config.Config) ocr.Engine {
	if cfg.OCREngine == "none" {
		telemetry.Warn("recognition engine disabled", map[string]any{"engine": cfg.OCREngine})
		return nil
	}
	return ocr.NewTesseractEngine(ocr.TesseractOptions{
		Language:       cfg.OCRLanguage,
		PageSegMode:    cfg.OCRPageSegMode,
		TessdataPrefix: cfg.TessdataPrefix,
	})
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
