// Package scheduler fires render jobs at configured local times. A
// minute ticker evaluates triggers; a redis SETNX guard keeps multiple
// instances from double-firing the same trigger minute.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reelforge/internal/models"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/queue"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Trigger is a daily firing point. TemplateID selects which of the
// project's configured templates the trigger uses.
type Trigger struct {
	Name       string
	Hour       int
	Minute     int
	TemplateID func(p *models.Project) string
}

func MorningTrigger(hour, minute int) Trigger {
	return Trigger{
		Name: "morning", Hour: hour, Minute: minute,
		TemplateID: func(p *models.Project) string { return deref(p.MorningTemplateID) },
	}
}

func EveningTrigger(hour, minute int) Trigger {
	return Trigger{
		Name: "evening", Hour: hour, Minute: minute,
		TemplateID: func(p *models.Project) string { return deref(p.EveningTemplateID) },
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ProjectSource lists projects eligible for scheduling.
type ProjectSource interface {
	ListActive(ctx context.Context) ([]models.Project, error)
	MarkScheduled(ctx context.Context, projectID string, at time.Time) error
}

// RecordCreator opens a pending render record for a scheduled run.
type RecordCreator interface {
	CreateScheduled(ctx context.Context, projectID, templateID string) (*models.Record, error)
}

// FireGuard arbitrates trigger ownership across instances. Acquire
// returns false when another instance already fired this key.
type FireGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Options struct {
	Triggers    []Trigger
	Location    *time.Location
	MaxAttempts int
	BaseDelay   time.Duration
	Retention   time.Duration
}

type Scheduler struct {
	projects ProjectSource
	records  RecordCreator
	enq      queue.Enqueuer
	guard    FireGuard
	clock    Clock
	log      *logger.Logger
	opts     Options

	stop chan struct{}
	done chan struct{}
}

func New(projects ProjectSource, records RecordCreator, enq queue.Enqueuer, guard FireGuard, clock Clock, log *logger.Logger, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		projects: projects,
		records:  records,
		enq:      enq,
		guard:    guard,
		clock:    clock,
		log:      log.WithComponent("scheduler"),
		opts:     opts,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called. It ticks once per
// minute, aligned closely enough that a trigger minute is never missed
// while the process is alive.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		s.Tick(ctx, s.clock.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Tick(ctx, s.clock.Now())
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// Tick evaluates all triggers against the given instant. Exported so
// tests can drive the scheduler without waiting for wall time.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	local := now.In(s.opts.Location)
	for _, tr := range s.opts.Triggers {
		if local.Hour() != tr.Hour || local.Minute() != tr.Minute {
			continue
		}
		s.fire(ctx, tr, local)
	}
}

func (s *Scheduler) fire(ctx context.Context, tr Trigger, local time.Time) {
	fireKey := fmt.Sprintf("sched:%s:%s", tr.Name, local.Format("200601021504"))
	ok, err := s.guard.Acquire(ctx, fireKey, 2*time.Minute)
	if err != nil {
		s.log.Error("fire guard unavailable", "trigger", tr.Name, "error", err)
		return
	}
	if !ok {
		s.log.Debug("trigger already fired elsewhere", "trigger", tr.Name, "key", fireKey)
		return
	}

	projects, err := s.projects.ListActive(ctx)
	if err != nil {
		s.log.Error("listing projects failed", "trigger", tr.Name, "error", err)
		return
	}

	fired := 0
	for i := range projects {
		p := &projects[i]
		if !s.due(p, local) {
			continue
		}
		// One bad project must not block the rest of the batch.
		if err := s.fireProject(ctx, tr, p, fireKey); err != nil {
			s.log.Error("scheduling project failed",
				"trigger", tr.Name, "project_id", p.ID, "error", err)
			continue
		}
		fired++
	}

	s.log.Info("trigger fired", "trigger", tr.Name, "projects", fired)
}

// due applies the per-project cadence: schedule_every_days N means at
// least N days since the last scheduled run. Nil or <=1 means daily.
func (s *Scheduler) due(p *models.Project, now time.Time) bool {
	if p.ScheduleEveryDays == nil || *p.ScheduleEveryDays <= 1 {
		return true
	}
	if p.LastScheduledAt == nil {
		return true
	}
	interval := time.Duration(*p.ScheduleEveryDays) * 24 * time.Hour
	return now.Sub(*p.LastScheduledAt) >= interval
}

func (s *Scheduler) fireProject(ctx context.Context, tr Trigger, p *models.Project, fireKey string) error {
	templateID := tr.TemplateID(p)
	if templateID == "" {
		return fmt.Errorf("project has no %s template", tr.Name)
	}

	rec, err := s.records.CreateScheduled(ctx, p.ID, templateID)
	if err != nil {
		return err
	}

	_, err = s.enq.EnqueueRender(ctx, queue.TaskRenderScheduled, queue.RenderPayload{
		RecordID: rec.ID,
		Publish:  true,
	}, queue.Options{
		MaxAttempts: s.opts.MaxAttempts,
		BaseDelay:   s.opts.BaseDelay,
		Retention:   s.opts.Retention,
		TaskID:      fireKey + ":" + p.ID,
	})
	if err != nil && !errors.Is(err, queue.ErrDuplicateTask) {
		return err
	}

	return s.projects.MarkScheduled(ctx, p.ID, s.clock.Now())
}

// RedisFireGuard implements FireGuard on redis SETNX with TTL.
type RedisFireGuard struct {
	rdb *redis.Client
}

func NewRedisFireGuard(rdb *redis.Client) *RedisFireGuard {
	return &RedisFireGuard{rdb: rdb}
}

func (g *RedisFireGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.rdb.SetNX(ctx, key, 1, ttl).Result()
}
