// internal/app/schedule_processor.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/schedule"
	"ai_post_scheduler/internal/domain/template"
	"ai_post_scheduler/internal/domain/voice"
	"ai_post_scheduler/internal/infra/config"
	"ai_post_scheduler/internal/infra/events"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// onceRetryDelay is how far a one-time schedule is pushed while it runs.
// If the process dies mid-run the schedule is picked up again after it.
const onceRetryDelay = time.Hour

// PostGenerator generates one post.
type PostGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// ProcessSummary counts what a single ProcessDue pass did.
type ProcessSummary struct {
	Due       int `json:"due"`
	Claimed   int `json:"claimed"`
	Skipped   int `json:"skipped"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ScheduleProcessor runs due schedules. Each schedule is claimed by moving its
// next_run forward before generation starts, so concurrent pollers never run it twice.
type ScheduleProcessor struct {
	schedules  schedule.Repository
	templates  template.Repository
	voices     voice.Repository
	generator  PostGenerator
	calculator *interval.Calculator
	events     EventDispatcher
	cfg        config.SchedulerConfig
	log        *logrus.Entry
	now        func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	last    ProcessSummary
}

func NewScheduleProcessor(
	schedules schedule.Repository,
	templates template.Repository,
	voices voice.Repository,
	generator PostGenerator,
	calculator *interval.Calculator,
	dispatcher EventDispatcher,
	cfg config.SchedulerConfig,
	log *logrus.Entry,
) *ScheduleProcessor {
	return &ScheduleProcessor{
		schedules:  schedules,
		templates:  templates,
		voices:     voices,
		generator:  generator,
		calculator: calculator,
		events:     dispatcher,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// ProcessDue runs up to batch_size due schedules with bounded concurrency.
// A failing schedule never stops the rest of the batch.
func (p *ScheduleProcessor) ProcessDue(ctx context.Context) (ProcessSummary, error) {
	var summary ProcessSummary
	now := p.now()

	due, err := p.schedules.ListDue(ctx, now, p.batchSize())
	if err != nil {
		return summary, fmt.Errorf("failed to list due schedules: %w", err)
	}
	summary.Due = len(due)
	if len(due) == 0 {
		p.log.Debug("No scheduled posts due")
		p.record(now, summary)
		return summary, nil
	}
	p.log.WithField("count", len(due)).Info("Starting scheduled post generation")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency())
	for _, d := range due {
		d := d
		g.Go(func() error {
			outcome := p.executeWithClaim(ctx, d)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSkipped:
				summary.Skipped++
			case outcomeSucceeded:
				summary.Claimed++
				summary.Succeeded++
			case outcomeFailed:
				summary.Claimed++
				summary.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	p.log.WithFields(logrus.Fields{
		"due":       summary.Due,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("Scheduled post generation finished")
	p.record(now, summary)
	return summary, nil
}

// LastRun reports when ProcessDue last ran and what it did.
func (p *ScheduleProcessor) LastRun() (time.Time, ProcessSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun, p.last
}

func (p *ScheduleProcessor) record(at time.Time, s ProcessSummary) {
	p.mu.Lock()
	p.lastRun, p.last = at, s
	p.mu.Unlock()
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSucceeded
	outcomeFailed
)

func (p *ScheduleProcessor) executeWithClaim(ctx context.Context, d *schedule.Due) (result outcome) {
	log := p.log.WithField("schedule_id", d.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Critical error processing schedule: %v", r)
			result = outcomeFailed
		}
	}()

	next := p.ClaimTime(&d.Schedule)
	claimed, err := p.schedules.ClaimNextRun(ctx, d.ID, d.NextRun, next)
	if err != nil {
		log.WithError(err).Error("Failed to claim schedule")
		return outcomeSkipped
	}
	if !claimed {
		log.Info("Schedule already claimed by another run")
		return outcomeSkipped
	}
	log.WithField("next_run", next).Debug("Schedule claimed")

	_, err = p.execute(ctx, d, false)
	p.cleanup(ctx, d, err)
	if err != nil {
		return outcomeFailed
	}
	return outcomeSucceeded
}

// ClaimTime returns the next_run a schedule is moved to when claimed.
// Recurring schedules keep their phase; advanced rules shift the result to the next allowed slot.
func (p *ScheduleProcessor) ClaimTime(s *schedule.Schedule) time.Time {
	if s.IsOnce() {
		return p.now().Add(onceRetryDelay)
	}
	rules, err := s.CustomRules()
	if err != nil {
		p.log.WithError(err).WithField("schedule_id", s.ID).Warn("Ignoring invalid schedule rules")
		rules = nil
	}
	base := s.NextRun
	next := p.calculator.NextRun(s.Frequency, &base, rules)

	adv, err := s.Advanced()
	if err != nil {
		p.log.WithError(err).WithField("schedule_id", s.ID).Warn("Ignoring invalid advanced rules")
		return next
	}
	return adv.Align(next)
}

// RunNow generates a post for a schedule immediately. The schedule's
// next_run is left alone and one-time schedules are kept.
func (p *ScheduleProcessor) RunNow(ctx context.Context, scheduleID int64) (*GenerateResult, error) {
	s, err := p.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	t, err := p.templates.GetByID(ctx, s.TemplateID)
	if err != nil {
		return nil, err
	}
	return p.execute(ctx, &schedule.Due{Schedule: *s, TemplateName: t.Name}, true)
}

func (p *ScheduleProcessor) execute(ctx context.Context, d *schedule.Due, manual bool) (*GenerateResult, error) {
	log := p.log.WithFields(logrus.Fields{
		"schedule_id":   d.ID,
		"template_id":   d.TemplateID,
		"template_name": d.TemplateName,
		"manual":        manual,
	})
	log.Info("Processing schedule")

	historyType := history.TypeScheduleExecution
	startMsg := fmt.Sprintf("Schedule %q started execution", d.TemplateName)
	if manual {
		historyType = history.TypeManualScheduleExecution
		startMsg = fmt.Sprintf("Manual execution of schedule %q started", d.TemplateName)
	}
	p.events.Dispatch(ctx, events.Event{
		Type:       history.EventScheduleStarted,
		Status:     history.EventStatusInfo,
		Message:    startMsg,
		ScheduleID: d.ID,
		TemplateID: d.TemplateID,
		Context:    scheduleContext(d, manual),
	})

	result, err := p.generate(ctx, d, historyType)
	if err != nil {
		log.WithError(err).Error("Schedule failed")
		ctxData := scheduleContext(d, manual)
		ctxData["error"] = err.Error()
		p.events.Dispatch(ctx, events.Event{
			Type:       history.EventScheduleFailed,
			Status:     history.EventStatusFailed,
			Message:    fmt.Sprintf("Schedule %q failed to generate post: %v", d.TemplateName, err),
			ScheduleID: d.ID,
			TemplateID: d.TemplateID,
			Context:    ctxData,
		})
		return nil, err
	}

	log.WithField("post_id", result.PostID).Info("Schedule completed successfully")
	ctxData := scheduleContext(d, manual)
	ctxData["post_status"] = string(result.Status)
	p.events.Dispatch(ctx, events.Event{
		Type:        history.EventScheduleCompleted,
		Status:      history.EventStatusSuccess,
		Message:     fmt.Sprintf("Schedule %q generated post %q", d.TemplateName, result.Title),
		HistoryUUID: result.HistoryUUID,
		ScheduleID:  d.ID,
		TemplateID:  d.TemplateID,
		PostID:      result.PostID,
		Context:     ctxData,
	})
	return result, nil
}

func (p *ScheduleProcessor) generate(ctx context.Context, d *schedule.Due, historyType history.Type) (*GenerateResult, error) {
	t, err := p.templates.GetByID(ctx, d.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", d.TemplateID, err)
	}
	var v *voice.Voice
	if t.VoiceID.Valid {
		if v, err = p.voices.GetByID(ctx, t.VoiceID.Int64); err != nil {
			p.log.WithError(err).WithField("voice_id", t.VoiceID.Int64).Warn("Generating without voice")
			v = nil
		}
	}
	return p.generator.Generate(ctx, GenerateRequest{
		Template:   t,
		Voice:      v,
		Topic:      d.Topic,
		ScheduleID: d.ID,
		Type:       historyType,
	})
}

// cleanup runs after a claimed execution. Recurring schedules only record
// last_run. One-time schedules are deleted on success and deactivated on failure.
func (p *ScheduleProcessor) cleanup(ctx context.Context, d *schedule.Due, runErr error) {
	log := p.log.WithField("schedule_id", d.ID)
	if !d.IsOnce() {
		if err := p.schedules.UpdateLastRun(ctx, d.ID, p.now()); err != nil {
			log.WithError(err).Error("Failed to update schedule last run")
		}
		return
	}

	if runErr == nil {
		if err := p.schedules.Delete(ctx, d.ID); err != nil {
			log.WithError(err).Error("Failed to delete completed one-time schedule")
			return
		}
		log.Info("One-time schedule completed and deleted")
		return
	}

	if err := p.schedules.MarkFailed(ctx, d.ID); err != nil {
		log.WithError(err).Error("Failed to deactivate one-time schedule")
	}
	if err := p.schedules.UpdateLastRun(ctx, d.ID, p.now()); err != nil {
		log.WithError(err).Error("Failed to update schedule last run")
	}
	log.Info("One-time schedule failed and deactivated")

	ctxData := scheduleContext(d, false)
	ctxData["error"] = runErr.Error()
	p.events.Dispatch(ctx, events.Event{
		Type:       history.EventScheduleFailed,
		Status:     history.EventStatusFailed,
		Message:    fmt.Sprintf("One-time schedule %q failed and was deactivated", d.TemplateName),
		ScheduleID: d.ID,
		TemplateID: d.TemplateID,
		Context:    ctxData,
	})
}

func (p *ScheduleProcessor) batchSize() int {
	if p.cfg.BatchSize <= 0 {
		return 5
	}
	return p.cfg.BatchSize
}

func (p *ScheduleProcessor) concurrency() int {
	if p.cfg.Concurrency <= 0 {
		return 1
	}
	return p.cfg.Concurrency
}

func scheduleContext(d *schedule.Due, manual bool) map[string]interface{} {
	return map[string]interface{}{
		"frequency": string(d.Frequency),
		"topic":     d.Topic,
		"manual":    manual,
	}
}
