package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"reelforge/internal/models"
	"reelforge/internal/pkg/ids"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/publisher"
	"reelforge/internal/queue"
	"reelforge/internal/renderer"
	"reelforge/internal/repositories"
	"reelforge/internal/scheduler"
	"reelforge/internal/worker/processor"
)

const orphanSweepInterval = time.Hour
const orphanMaxAge = 24 * time.Hour

// Run wires the task server, the processor and the scheduler, then
// blocks until the context is canceled.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")
	cfg := d.Cfg

	recordRepo := repositories.NewRecordRepository(d.Pool)
	projectRepo := repositories.NewProjectRepository(d.Pool)
	templateRepo := repositories.NewTemplateRepository(d.Pool)
	assetRepo := repositories.NewAssetRepository(d.Pool)

	rc := renderer.NewHTTPClient(cfg.Renderer.BaseURL,
		time.Duration(cfg.Renderer.TimeoutMinutes)*time.Minute)
	pub := publisher.NewClient(cfg.Publisher.GraphBaseURL,
		time.Duration(cfg.Publisher.PollIntervalSec)*time.Second,
		time.Duration(cfg.Publisher.MaxPollSec)*time.Second)

	proc := processor.New(processor.Deps{
		Records:       recordRepo,
		Templates:     templateRepo,
		Projects:      projectRepo,
		Assets:        assetRepo,
		Renderer:      rc,
		Publisher:     pub,
		SP:            d.SP,
		ScratchDir:    cfg.Renderer.ScratchDir,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Log:           log,
	})

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskRender, proc.HandleRender)
	mux.HandleFunc(queue.TaskRenderScheduled, proc.HandleRender)
	mux.HandleFunc(queue.TaskPublish, proc.HandlePublish)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.Jobs.Concurrency,
		Queues:         map[string]int{queue.DefaultQueue: 1},
		RetryDelayFunc: queue.RetryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "error", err.Error())
		}),
	})

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("task server start: %w", err)
	}
	defer srv.Shutdown()
	log.Info("task server started",
		"queue", queue.DefaultQueue,
		"concurrency", cfg.Jobs.Concurrency)

	if cfg.Scheduler.Enabled {
		sched, err := buildScheduler(d, recordRepo, projectRepo, redisOpt, log)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
		log.Info("scheduler started",
			"timezone", cfg.Scheduler.Timezone,
			"morning", cfg.Scheduler.MorningTime,
			"evening", cfg.Scheduler.EveningTime)
	}

	sweepTicker := time.NewTicker(orphanSweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		case <-sweepTicker.C:
			proc.SweepOrphans(orphanMaxAge)
		}
	}
}

func buildScheduler(d Deps, records *repositories.RecordRepository, projects *repositories.ProjectRepository, redisOpt asynq.RedisClientOpt, log *logger.Logger) (*scheduler.Scheduler, error) {
	cfg := d.Cfg

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	morningH, morningM, err := parseHHMM(cfg.Scheduler.MorningTime)
	if err != nil {
		return nil, fmt.Errorf("scheduler morning_time: %w", err)
	}
	eveningH, eveningM, err := parseHHMM(cfg.Scheduler.EveningTime)
	if err != nil {
		return nil, fmt.Errorf("scheduler evening_time: %w", err)
	}

	qc := queue.NewClient(redisOpt)

	return scheduler.New(
		projects,
		&scheduledRecordCreator{records: records},
		qc,
		scheduler.NewRedisFireGuard(d.RDB),
		scheduler.SystemClock(),
		log,
		scheduler.Options{
			Triggers: []scheduler.Trigger{
				scheduler.MorningTrigger(morningH, morningM),
				scheduler.EveningTrigger(eveningH, eveningM),
			},
			Location:    loc,
			MaxAttempts: cfg.Jobs.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Jobs.BaseDelayMs) * time.Millisecond,
			Retention:   time.Duration(cfg.Jobs.RetentionHours) * time.Hour,
		},
	), nil
}

// scheduledRecordCreator opens PENDING records for scheduler-initiated
// runs. Scheduled records carry no explicit input; the template
// defaults drive the render.
type scheduledRecordCreator struct {
	records *repositories.RecordRepository
}

func (c *scheduledRecordCreator) CreateScheduled(ctx context.Context, projectID, templateID string) (*models.Record, error) {
	rec := &models.Record{
		ID:         ids.New("rec"),
		ProjectID:  projectID,
		TemplateID: templateID,
		Status:     models.RecordPending,
	}
	if err := c.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
