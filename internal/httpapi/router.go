package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/config"
	"reelforge/internal/contentstore"
	"reelforge/internal/httpapi/handlers"
	"reelforge/internal/httpkit"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/pkg/middleware"
	"reelforge/internal/ports"
	"reelforge/internal/queue"
	"reelforge/internal/repositories"
)

type Deps struct {
	Pool  *pgxpool.Pool
	RDB   *redis.Client
	SP    ports.StorageProvider
	Queue queue.Enqueuer
	Cfg   *config.Config
	Log   *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	assetRepo := repositories.NewAssetRepository(d.Pool)
	store := contentstore.New(assetRepo, d.SP, log)

	h := handlers.New(handlers.Deps{
		Pool:      d.Pool,
		RDB:       d.RDB,
		SP:        d.SP,
		Store:     store,
		Records:   repositories.NewRecordRepository(d.Pool),
		Projects:  repositories.NewProjectRepository(d.Pool),
		Templates: repositories.NewTemplateRepository(d.Pool),
		Assets:    assetRepo,
		Queue:     d.Queue,
		Jobs: handlers.JobOptions{
			MaxAttempts: d.Cfg.Jobs.MaxAttempts,
			BaseDelay:   time.Duration(d.Cfg.Jobs.BaseDelayMs) * time.Millisecond,
			Retention:   time.Duration(d.Cfg.Jobs.RetentionHours) * time.Hour,
		},
		Log: log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- PROJECTS ----
	r.Post("/projects", h.PostProject)
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{projectId}", h.GetProject)

	// ---- ASSETS ----
	r.Post("/assets", h.PostAsset)
	r.Get("/assets", h.ListAssets)
	r.Get("/assets/{assetId}", h.GetAsset)
	r.Get("/assets/{assetId}/url", h.GetAssetURL)
	r.Get("/assets/{assetId}/content", h.StreamAsset)
	r.Delete("/assets/{assetId}", h.DeleteAsset)

	// ---- TEMPLATES ----
	r.Post("/templates", h.PostTemplate)
	r.Get("/templates", h.ListTemplates)
	r.Get("/templates/{templateId}", h.GetTemplate)
	r.Delete("/templates/{templateId}", h.DeleteTemplate)

	// ---- RECORDS ----
	r.Post("/records", h.PostRecord)
	r.Get("/records", h.ListRecords)
	r.Get("/records/{recordId}", h.GetRecord)
	r.Post("/records/{recordId}/publish", h.PostRecordPublish)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
