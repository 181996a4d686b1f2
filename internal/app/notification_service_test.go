package app

import (
	"context"
	"errors"
	"testing"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	"ai_post_scheduler/internal/infra/events"
	"ai_post_scheduler/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

type fakeTelegram struct {
	sent   []sentMessage
	edited []string
	err    error
}

func (f *fakeTelegram) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, text, opts})
	return nil
}

func (f *fakeTelegram) EditMessage(_ telebot.Editable, text string, _ *telebot.SendOptions) error {
	f.edited = append(f.edited, text)
	return nil
}

func newNotificationFixture() (*NotificationServiceImpl, *fakeTelegram, *fakePosts) {
	tg := &fakeTelegram{}
	posts := newFakePosts()
	review := NewReviewService(posts, &fakeDispatcher{}, logger.Discard())
	return NewNotificationServiceImpl(tg, review, logger.Discard(), 100), tg, posts
}

func TestNotifyDraftSendsReviewButtons(t *testing.T) {
	svc, tg, _ := newNotificationFixture()

	err := svc.NotifyDraft(context.Background(), &post.Post{ID: 12, Title: "Go <Tips>", Excerpt: "Short"})
	require.NoError(t, err)

	require.Len(t, tg.sent, 1)
	msg := tg.sent[0]
	assert.Equal(t, int64(100), msg.chatID)
	assert.Contains(t, msg.text, "Go &lt;Tips&gt;")
	assert.Equal(t, telebot.ModeHTML, msg.opts.ParseMode)

	row := msg.opts.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, CallbackPublish, row[0].Unique)
	assert.Equal(t, "12", row[0].Data)
	assert.Equal(t, CallbackDiscard, row[1].Unique)
}

func TestNotifyDraftReportsSendFailure(t *testing.T) {
	svc, tg, _ := newNotificationFixture()
	tg.err = errors.New("forbidden")

	assert.Error(t, svc.NotifyDraft(context.Background(), &post.Post{ID: 1}))
}

func TestNotificationServiceForwardsFailures(t *testing.T) {
	svc, tg, _ := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, events.Event{Type: history.EventPostGenerated, Message: "ok"}))
	require.NoError(t, svc.Handle(ctx, events.Event{Type: history.EventScheduleFailed, Message: "boom"}))

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0].text, "Schedule failed")
	assert.Contains(t, tg.sent[0].text, "boom")
}

func TestResolveReview(t *testing.T) {
	svc, tg, posts := newNotificationFixture()
	ctx := context.Background()
	p := &post.Post{Title: "Draft", Status: post.StatusDraft}
	require.NoError(t, posts.Create(ctx, p))

	require.NoError(t, svc.ResolveReview(ctx, &telebot.Message{ID: 1}, p.ID, true))
	got, _ := posts.GetByID(ctx, p.ID)
	assert.Equal(t, post.StatusPublish, got.Status)
	assert.Equal(t, []string{"✅ Published: <b>Draft</b>"}, tg.edited)

	assert.ErrorIs(t, svc.ResolveReview(ctx, &telebot.Message{ID: 1}, p.ID, false), ErrPostNotDraft)
}
