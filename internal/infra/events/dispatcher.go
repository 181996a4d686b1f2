// internal/infra/events/dispatcher.go
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai_post_scheduler/internal/domain/history"

	"github.com/sirupsen/logrus"
)

// Event describes something that happened while generating posts.
type Event struct {
	Type        history.EventType      `json:"type"`
	Status      history.EventStatus    `json:"status"`
	Message     string                 `json:"message"`
	HistoryUUID string                 `json:"history_uuid,omitempty"`
	ScheduleID  int64                  `json:"schedule_id,omitempty"`
	TemplateID  int64                  `json:"template_id,omitempty"`
	PostID      int64                  `json:"post_id,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	At          time.Time              `json:"at"`
}

// Listener receives dispatched events.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ctx context.Context, e Event) error

func (f ListenerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Dispatcher fans events out to listeners. A failing listener is logged and skipped.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	log       *logrus.Entry
}

func NewDispatcher(log *logrus.Entry) *Dispatcher {
	return &Dispatcher{log: log}
}

func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	d.listeners = append(d.listeners, l)
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	d.mu.RLock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.RUnlock()

	for _, l := range listeners {
		if err := l.Handle(ctx, e); err != nil {
			d.log.WithError(err).WithField("event", e.Type).Warn("Event listener failed")
		}
	}
}

// LogListener writes every event to the log.
func LogListener(log *logrus.Entry) Listener {
	return ListenerFunc(func(_ context.Context, e Event) error {
		entry := log.WithFields(logrus.Fields{
			"event":  e.Type,
			"status": e.Status,
		})
		if e.HistoryUUID != "" {
			entry = entry.WithField("history_uuid", e.HistoryUUID)
		}
		if e.ScheduleID != 0 {
			entry = entry.WithField("schedule_id", e.ScheduleID)
		}
		if e.Status == history.EventStatusFailed {
			entry.Warn(e.Message)
		} else {
			entry.Info(e.Message)
		}
		return nil
	})
}

type activityRecorder interface {
	RecordActivity(ctx context.Context, a *history.Activity) error
}

// ActivityListener stores events in the activity feed.
func ActivityListener(repo activityRecorder) Listener {
	return ListenerFunc(func(ctx context.Context, e Event) error {
		a := &history.Activity{
			HistoryUUID: e.HistoryUUID,
			EventType:   e.Type,
			EventStatus: e.Status,
			Message:     e.Message,
			CreatedAt:   e.At,
		}
		ctxData := map[string]interface{}{}
		for k, v := range e.Context {
			ctxData[k] = v
		}
		if e.ScheduleID != 0 {
			ctxData["schedule_id"] = e.ScheduleID
		}
		if e.TemplateID != 0 {
			ctxData["template_id"] = e.TemplateID
		}
		if e.PostID != 0 {
			ctxData["post_id"] = e.PostID
		}
		if len(ctxData) > 0 {
			b, err := json.Marshal(ctxData)
			if err != nil {
				return err
			}
			a.Context = string(b)
		}
		return repo.RecordActivity(ctx, a)
	})
}
