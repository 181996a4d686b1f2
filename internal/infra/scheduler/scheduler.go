package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai_post_scheduler/internal/app"
	"ai_post_scheduler/internal/infra/config"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DueProcessor runs every schedule whose next_run has passed.
type DueProcessor interface {
	ProcessDue(ctx context.Context) (app.ProcessSummary, error)
}

// Status describes the poller for status reports.
type Status struct {
	Running  bool               `json:"running"`
	Spec     string             `json:"spec"`
	NextPoll *time.Time         `json:"next_poll,omitempty"`
	LastPoll *time.Time         `json:"last_poll,omitempty"`
	Last     app.ProcessSummary `json:"last_summary"`
	LastErr  string             `json:"last_error,omitempty"`
}

// Poller triggers ProcessDue on a cron spec. Overlapping polls are skipped.
type Poller struct {
	cronEngine *cron.Cron
	processor  DueProcessor
	logger     *logrus.Entry
	spec       string
	timeout    time.Duration

	mu       sync.Mutex
	entryID  cron.EntryID
	running  bool
	lastPoll time.Time
	last     app.ProcessSummary
	lastErr  error
}

func NewPoller(processor DueProcessor, cfg config.SchedulerConfig, loc *time.Location, logger *logrus.Entry) *Poller {
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.VerbosePrintfLogger(logger.WithField("source", "cron"))
	return &Poller{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		processor: processor,
		logger:    logger,
		spec:      cfg.PollSpec,
		timeout:   cfg.JobTimeout,
	}
}

// Start registers the poll job and starts the cron engine.
func (p *Poller) Start() error {
	p.logger.WithField("spec", p.spec).Info("Starting schedule poller...")

	id, err := p.cronEngine.AddFunc(p.spec, func() {
		p.logger.Debug("Cron job triggered for due schedules")
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.WithError(err).Error("Error during due schedule processing")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add poll cron job %q: %w", p.spec, err)
	}

	p.mu.Lock()
	p.entryID = id
	p.running = true
	p.mu.Unlock()

	p.cronEngine.Start()
	p.logger.Info("Schedule poller started")
	return nil
}

// RunOnce processes due schedules immediately, bounded by the job timeout.
func (p *Poller) RunOnce(ctx context.Context) (app.ProcessSummary, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	summary, err := p.processor.ProcessDue(ctx)

	p.mu.Lock()
	p.lastPoll = time.Now()
	p.last = summary
	p.lastErr = err
	p.mu.Unlock()
	return summary, err
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{Running: p.running, Spec: p.spec, Last: p.last}
	if p.running {
		if next := p.cronEngine.Entry(p.entryID).Next; !next.IsZero() {
			st.NextPoll = &next
		}
	}
	if !p.lastPoll.IsZero() {
		last := p.lastPoll
		st.LastPoll = &last
	}
	if p.lastErr != nil {
		st.LastErr = p.lastErr.Error()
	}
	return st
}

// Stop stops scheduling new polls and waits for a running poll to finish.
func (p *Poller) Stop() {
	p.logger.Info("Stopping schedule poller...")
	ctx := p.cronEngine.Stop()
	<-ctx.Done()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.logger.Info("Schedule poller gracefully stopped")
}
