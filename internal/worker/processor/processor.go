package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/models"
	apperrors "reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
	"reelforge/internal/publisher"
	"reelforge/internal/queue"
	"reelforge/internal/renderer"
)

type Deps struct {
	Records   RecordStore
	Templates TemplateStore
	Projects  ProjectStore
	Assets    AssetStore
	Renderer  renderer.Client
	Publisher publisher.Publisher
	SP        ports.StorageProvider

	ScratchDir    string
	PublicBaseURL string
	Log           *logger.Logger
}

// Processor executes render and publish tasks against a record,
// resuming from whatever state a previous attempt left behind.
type Processor struct {
	records   RecordStore
	projects  ProjectStore
	renderer  renderer.Client
	publisher publisher.Publisher
	log       *logger.Logger

	resolver *templateResolver
	inputs   *InputHandler
	outputs  *OutputHandler
	cleanup  *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Processor{
		records:   d.Records,
		projects:  d.Projects,
		renderer:  d.Renderer,
		publisher: d.Publisher,
		log:       log.WithComponent("processor"),

		resolver: newTemplateResolver(d.Templates),
		inputs:   NewInputHandler(d.Assets, d.SP, d.ScratchDir),
		outputs:  NewOutputHandler(d.SP, d.ScratchDir, d.PublicBaseURL),
		cleanup:  NewCleanup(d.ScratchDir),
	}
}

// HandleRender processes record:render and record:render:scheduled
// tasks: render, upload, and optionally flow into publish.
func (p *Processor) HandleRender(ctx context.Context, t *asynq.Task) error {
	var payload queue.RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid render payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx = logger.ContextWithRecordID(ctx, payload.RecordID)
	log := p.log.FromContext(ctx)

	rec, skip, err := p.loadRecord(ctx, payload.RecordID)
	if err != nil || skip {
		return err
	}

	if !p.publishReady(rec) {
		outputKey, err := p.renderAndUpload(ctx, rec)
		if err != nil {
			return p.fail(ctx, rec.ID, failStage(rec), err)
		}
		rec.OutputKey = &outputKey
		rec.Status = models.RecordCompleted
		log.Info("record rendered", "output_key", outputKey)
	} else {
		log.Info("resuming with existing artifact", "output_key", *rec.OutputKey)
	}

	if !payload.Publish {
		p.cleanup.CleanupRecord(rec.ID)
		return nil
	}

	if err := p.publish(ctx, rec); err != nil {
		return err
	}
	p.cleanup.CleanupRecord(rec.ID)
	return nil
}

// HandlePublish processes record:publish tasks for records that were
// rendered earlier and only need the publishing phase.
func (p *Processor) HandlePublish(ctx context.Context, t *asynq.Task) error {
	var payload queue.PublishPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid publish payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx = logger.ContextWithRecordID(ctx, payload.RecordID)

	rec, skip, err := p.loadRecord(ctx, payload.RecordID)
	if err != nil || skip {
		return err
	}

	if rec.OutputKey == nil || *rec.OutputKey == "" {
		err := fmt.Errorf("record has no rendered output to publish")
		return p.fail(ctx, rec.ID, models.StagePublish, fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}

	if err := p.publish(ctx, rec); err != nil {
		return err
	}
	p.cleanup.CleanupRecord(rec.ID)
	return nil
}

// loadRecord fetches the record and applies the idempotency guards:
// published records and failed records whose retry budget is spent are
// acknowledged without work.
func (p *Processor) loadRecord(ctx context.Context, recordID string) (*models.Record, bool, error) {
	log := p.log.FromContext(ctx)

	rec, err := p.records.Get(ctx, recordID)
	if err != nil {
		return nil, false, fmt.Errorf("record %s: %v: %w", recordID, err, asynq.SkipRetry)
	}

	if rec.Status == models.RecordPublished {
		log.Info("record already published, nothing to do")
		return rec, true, nil
	}
	if rec.Status == models.RecordFailed && !retryBudgetRemaining(ctx) {
		log.Warn("failed record redelivered with no retry budget, dropping")
		return rec, true, nil
	}
	return rec, false, nil
}

// publishReady reports whether the record already holds a durable
// artifact, so the render and upload phases can be skipped.
func (p *Processor) publishReady(rec *models.Record) bool {
	if rec.OutputKey == nil || *rec.OutputKey == "" {
		return false
	}
	switch rec.Status {
	case models.RecordCompleted, models.RecordQueuedForPublish:
		return true
	case models.RecordFailed:
		return rec.Stage == models.StagePublish
	}
	return false
}

func (p *Processor) renderAndUpload(ctx context.Context, rec *models.Record) (string, error) {
	log := p.log.FromContext(ctx)

	// An upload-stage failure with the artifact still on disk can go
	// straight back to uploading.
	if rec.Status == models.RecordFailed && rec.Stage == models.StageUpload && p.outputs.ArtifactExists(rec.ID) {
		log.Info("render artifact survived, retrying upload only")
	} else {
		if err := p.render(ctx, rec); err != nil {
			return "", err
		}
	}

	if err := p.records.Transition(ctx, rec.ID,
		[]models.RecordStatus{models.RecordRendering, models.RecordFailed},
		models.RecordRendering, models.StageUpload); err != nil {
		return "", err
	}
	rec.Stage = models.StageUpload

	outputKey, err := p.outputs.Upload(ctx, rec.ID)
	if err != nil {
		return "", apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "pipeline.upload", "artifact upload failed")
	}

	if err := p.records.MarkCompleted(ctx, rec.ID, outputKey); err != nil {
		return "", err
	}
	return outputKey, nil
}

func (p *Processor) render(ctx context.Context, rec *models.Record) error {
	log := p.log.FromContext(ctx)

	if err := p.records.Transition(ctx, rec.ID,
		[]models.RecordStatus{models.RecordPending, models.RecordRendering, models.RecordFailed},
		models.RecordRendering, models.StageRender); err != nil {
		return err
	}
	rec.Status = models.RecordRendering
	rec.Stage = models.StageRender

	resolved, err := p.resolver.Resolve(ctx, rec)
	if err != nil {
		// A broken template will not fix itself between attempts.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	inputPaths, err := p.inputs.Materialize(ctx, rec.ID, resolved.Schema.AssetRefs())
	if err != nil {
		return err
	}

	log.Info("starting render",
		"composition_id", resolved.CompositionID,
		"inputs", len(inputPaths))

	err = p.renderer.Render(ctx, v1.RenderSpec{
		RenderID:      rec.ID,
		CompositionID: resolved.CompositionID,
		InputProps:    resolved.Props,
		Inputs:        inputPaths,
		Output:        v1.Output{VideoPath: p.outputs.ArtifactPath(rec.ID)},
	})
	if err != nil {
		if errors.Is(err, renderer.ErrCompositionNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "pipeline.render", "render engine failed")
	}
	return nil
}

func (p *Processor) publish(ctx context.Context, rec *models.Record) error {
	log := p.log.FromContext(ctx)

	if rec.Status != models.RecordQueuedForPublish {
		if err := p.records.Transition(ctx, rec.ID,
			[]models.RecordStatus{models.RecordCompleted, models.RecordFailed},
			models.RecordQueuedForPublish, models.StagePublish); err != nil {
			return p.fail(ctx, rec.ID, models.StagePublish, err)
		}
		rec.Status = models.RecordQueuedForPublish
	}

	project, err := p.projects.Get(ctx, rec.ProjectID)
	if err != nil {
		return p.fail(ctx, rec.ID, models.StagePublish, err)
	}

	videoURL, err := p.outputs.VideoURL(ctx, *rec.OutputKey)
	if err != nil {
		return p.fail(ctx, rec.ID, models.StagePublish, err)
	}

	res, err := p.publisher.Publish(ctx, publisher.Request{
		AccessToken:    project.AccessToken,
		PlatformUserID: project.PlatformUserID,
		VideoURL:       videoURL,
		Caption:        stringProp(rec.Input, "caption"),
	})
	if err != nil {
		switch {
		case errors.Is(err, publisher.ErrContainerFailed):
			err = fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		case errors.Is(err, publisher.ErrContainerProcessing):
			err = apperrors.WrapWithCode(err, apperrors.CodeTimeout, "pipeline.publish", "container did not finish in time")
		default:
			err = apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "pipeline.publish", "publish request failed")
		}
		return p.fail(ctx, rec.ID, models.StagePublish, err)
	}

	if err := p.records.MarkPublished(ctx, rec.ID, res.MediaID); err != nil {
		return p.fail(ctx, rec.ID, models.StagePublish, err)
	}

	log.Info("record published", "media_id", res.MediaID)
	return nil
}

// SweepOrphans removes scratch state older than maxAge, covering
// records whose cleanup never ran because the process died.
func (p *Processor) SweepOrphans(maxAge time.Duration) int {
	removed := p.cleanup.SweepOrphans(maxAge)
	if removed > 0 {
		p.log.Info("swept orphaned scratch entries", "removed", removed)
	}
	return removed
}

// fail records the failure and returns the original error so the queue
// applies its retry policy.
func (p *Processor) fail(ctx context.Context, recordID, stage string, cause error) error {
	log := p.log.FromContext(ctx)

	msg := truncate(cause.Error(), 2000)
	var appErr *apperrors.Error
	if errors.As(cause, &appErr) {
		log.Error("record failed",
			"stage", stage,
			"code", string(appErr.Code),
			"op", appErr.Op,
			"message", appErr.Message,
		)
	} else {
		log.Error("record failed", "stage", stage, "error", msg)
	}

	if err := p.records.MarkFailed(ctx, recordID, stage, msg); err != nil {
		log.Error("marking record failed errored", "error", err)
	}
	return cause
}

// failStage maps the in-flight record state to the stage a failure
// should be attributed to.
func failStage(rec *models.Record) string {
	if rec.Stage != "" {
		return rec.Stage
	}
	return models.StageRender
}

// retryBudgetRemaining reads the queue's attempt counters from the task
// context. Outside a task context (tests, direct calls) the budget is
// treated as open.
func retryBudgetRemaining(ctx context.Context) bool {
	n, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	max, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return n < max
}
