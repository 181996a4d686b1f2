package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/infra/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	activities []*history.Activity
}

func (r *recorder) RecordActivity(_ context.Context, a *history.Activity) error {
	r.activities = append(r.activities, a)
	return nil
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestDispatcherContinuesAfterListenerError(t *testing.T) {
	d := NewDispatcher(logger.Discard())
	var seen []history.EventType
	d.Subscribe(ListenerFunc(func(context.Context, Event) error { return errors.New("down") }))
	d.Subscribe(ListenerFunc(func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		assert.False(t, e.At.IsZero())
		return nil
	}))
	d.Subscribe(LogListener(logger.Discard()))

	d.Dispatch(context.Background(), Event{Type: history.EventScheduleStarted, Status: history.EventStatusInfo})

	assert.Equal(t, []history.EventType{history.EventScheduleStarted}, seen)
}

func TestActivityListener(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(logger.Discard())
	d.Subscribe(ActivityListener(rec))

	d.Dispatch(context.Background(), Event{
		Type:        history.EventPostGenerated,
		Status:      history.EventStatusSuccess,
		Message:     "Post generated",
		HistoryUUID: "abc",
		ScheduleID:  3,
		PostID:      9,
		Context:     map[string]interface{}{"title": "Hello"},
	})

	require.Len(t, rec.activities, 1)
	a := rec.activities[0]
	assert.Equal(t, "abc", a.HistoryUUID)
	assert.Equal(t, history.EventPostGenerated, a.EventType)
	var ctxData map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(a.Context), &ctxData))
	assert.Equal(t, "Hello", ctxData["title"])
	assert.Equal(t, float64(3), ctxData["schedule_id"])
	assert.Equal(t, float64(9), ctxData["post_id"])
}

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "aips"}

	err := p.Handle(context.Background(), Event{Type: history.EventScheduleFailed, Message: "boom"})
	require.NoError(t, err)

	assert.Equal(t, "aips", ch.exchange)
	assert.Equal(t, "schedule_execution_failed", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Contains(t, string(ch.msg.Body), `"message":"boom"`)
	assert.NoError(t, p.Close())
}
