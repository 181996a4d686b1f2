package main

import (
	"context"
	"fmt"
	"time"

	"ai_post_scheduler/internal/app"
	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/interval"
	iai "ai_post_scheduler/internal/infra/ai"
	"ai_post_scheduler/internal/infra/config"
	idb "ai_post_scheduler/internal/infra/database"
	"ai_post_scheduler/internal/infra/events"
	"ai_post_scheduler/internal/infra/logger"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// application holds the wired services shared by every command.
type application struct {
	cfg *config.AppConfig
	loc *time.Location
	log *logrus.Entry

	db         *sqlx.DB
	templates  *idb.TemplateRepository
	voices     *idb.VoiceRepository
	schedules  *idb.ScheduleRepository
	posts      *idb.PostRepository
	history    *idb.HistoryRepository
	dispatcher *events.Dispatcher
	publisher  *events.AMQPPublisher

	calculator      *interval.Calculator
	ai              *iai.ResilientClient
	scheduleService *app.ScheduleService
	review          *app.ReviewService
	generator       *app.Generator
	processor       *app.ScheduleProcessor
}

// loadConfig reads configuration and sets up the global logger.
func loadConfig(configFile string) (*config.AppConfig, *time.Location, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg)
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loc, nil
}

func newApplication(ctx context.Context, configFile string) (*application, error) {
	cfg, loc, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	log := logger.Component("main")
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"log_level":   cfg.Log.Level,
		"db_driver":   cfg.Database.Driver,
		"timezone":    loc.String(),
	}).Info("Configuration loaded")

	db, err := idb.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	log.Info("Database connection established and schema is up to date")

	a := &application{
		cfg:        cfg,
		loc:        loc,
		log:        log,
		db:         db,
		templates:  idb.NewTemplateRepository(db),
		voices:     idb.NewVoiceRepository(db),
		schedules:  idb.NewScheduleRepository(db),
		posts:      idb.NewPostRepository(db),
		history:    idb.NewHistoryRepository(db),
		dispatcher: events.NewDispatcher(logger.Component("events")),
		calculator: interval.NewCalculator(loc, cfg.Scheduler.MaxCatchUp),
	}

	a.dispatcher.Subscribe(events.LogListener(logger.Component("activity")))
	a.dispatcher.Subscribe(events.ActivityListener(a.history))
	if cfg.Events.AMQPURL != "" {
		a.publisher, err = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.dispatcher.Subscribe(a.publisher)
		log.WithField("exchange", cfg.Events.Exchange).Info("Publishing events to RabbitMQ")
	}

	gemini, err := iai.NewGeminiClient(ctx, cfg.AI, logger.Component("ai"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ai = iai.NewResilientClient(gemini, cfg.Resilience, logger.Component("ai"))
	a.ai.OnStateChange = a.breakerChanged

	processor := app.NewTemplateProcessor(cfg.Site, loc)
	a.scheduleService = app.NewScheduleService(a.schedules, a.templates, a.calculator, logger.Component("schedules"))
	a.review = app.NewReviewService(a.posts, a.dispatcher, logger.Component("review"))
	a.generator = app.NewGenerator(
		a.ai,
		app.NewPromptBuilder(processor),
		a.posts,
		a.history,
		a.dispatcher,
		cfg.Posts,
		logger.Component("generator"),
	)
	a.processor = app.NewScheduleProcessor(
		a.schedules,
		a.templates,
		a.voices,
		a.generator,
		a.calculator,
		a.dispatcher,
		cfg.Scheduler,
		logger.Component("processor"),
	)
	return a, nil
}

// breakerChanged turns an opening breaker into an activity event. It runs under
// the breaker's lock, so the event is dispatched from a new goroutine.
func (a *application) breakerChanged(from, to string) {
	if to != "open" {
		return
	}
	cb := a.cfg.Resilience.CircuitBreaker
	go a.dispatcher.Dispatch(context.Background(), events.Event{
		Type:    history.EventCircuitBreakerTripped,
		Status:  history.EventStatusFailed,
		Message: fmt.Sprintf("AI circuit breaker opened after %d consecutive failures", cb.FailureThreshold),
		Context: map[string]interface{}{
			"from":              from,
			"to":                to,
			"failure_threshold": cb.FailureThreshold,
			"timeout":           int(cb.Timeout / time.Second),
		},
	})
}

func (a *application) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close RabbitMQ publisher")
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}
