package handlers

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/contentstore"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
	"reelforge/internal/queue"
	"reelforge/internal/repositories"
)

// JobOptions carries the enqueue defaults the API applies to render and
// publish tasks.
type JobOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retention   time.Duration
}

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	Store     *contentstore.Store
	Records   *repositories.RecordRepository
	Projects  *repositories.ProjectRepository
	Templates *repositories.TemplateRepository
	Assets    *repositories.AssetRepository
	Queue     queue.Enqueuer
	Jobs      JobOptions
	Log       *logger.Logger
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	store     *contentstore.Store
	records   *repositories.RecordRepository
	projects  *repositories.ProjectRepository
	templates *repositories.TemplateRepository
	assets    *repositories.AssetRepository
	queue     queue.Enqueuer
	jobs      JobOptions
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		store:     d.Store,
		records:   d.Records,
		projects:  d.Projects,
		templates: d.Templates,
		assets:    d.Assets,
		queue:     d.Queue,
		jobs:      d.Jobs,
		log:       log.WithComponent("httpapi"),
	}
}
