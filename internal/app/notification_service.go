// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"html"
	"strings"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	domainTelegram "ai_post_scheduler/internal/domain/telegram"
	"ai_post_scheduler/internal/infra/events"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Callback data prefixes of the review buttons.
const (
	CallbackPublish = "pub"
	CallbackDiscard = "del"
)

// NotificationService sends review requests and failure alerts to the admin chat.
type NotificationService interface {
	NotifyDraft(ctx context.Context, p *post.Post) error
	Handle(ctx context.Context, e events.Event) error
	ResolveReview(ctx context.Context, msg telebot.Editable, postID int64, publish bool) error
}

// NotificationServiceImpl implements NotificationService over a Telegram client.
type NotificationServiceImpl struct {
	telegramClient domainTelegram.Client
	review         *ReviewService
	logger         *logrus.Entry
	adminChatID    int64
}

func NewNotificationServiceImpl(
	tc domainTelegram.Client,
	review *ReviewService,
	logger *logrus.Entry,
	adminChatID int64,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		telegramClient: tc,
		review:         review,
		logger:         logger,
		adminChatID:    adminChatID,
	}
}

// NotifyDraft asks the admin to publish or discard a freshly generated draft.
func (s *NotificationServiceImpl) NotifyDraft(ctx context.Context, p *post.Post) error {
	var text strings.Builder
	fmt.Fprintf(&text, "<b>New draft ready for review</b>\n\n<b>%s</b>\n", html.EscapeString(p.Title))
	if p.Excerpt != "" {
		fmt.Fprintf(&text, "<i>%s</i>\n", html.EscapeString(p.Excerpt))
	}
	fmt.Fprintf(&text, "\nPost ID: %d", p.ID)

	replyMarkup := &telebot.ReplyMarkup{}
	btnPublish := replyMarkup.Data("Publish", CallbackPublish, fmt.Sprint(p.ID))
	btnDiscard := replyMarkup.Data("Discard", CallbackDiscard, fmt.Sprint(p.ID))
	replyMarkup.Inline(replyMarkup.Row(btnPublish, btnDiscard))

	err := s.telegramClient.SendMessage(s.adminChatID, text.String(), &telebot.SendOptions{ReplyMarkup: replyMarkup, ParseMode: telebot.ModeHTML})
	if err != nil {
		s.logger.WithError(err).WithField("post_id", p.ID).Error("Failed to send review notification")
		return fmt.Errorf("failed to send review notification: %w", err)
	}
	s.logger.WithField("post_id", p.ID).Info("Review notification sent")
	return nil
}

// Handle forwards failure events to the admin chat. Other events are ignored.
func (s *NotificationServiceImpl) Handle(ctx context.Context, e events.Event) error {
	var title string
	switch e.Type {
	case history.EventScheduleFailed:
		title = "Schedule failed"
	case history.EventCircuitBreakerTripped:
		title = "AI circuit breaker opened"
	default:
		return nil
	}
	text := fmt.Sprintf("⚠️ <b>%s</b>\n%s", title, html.EscapeString(e.Message))
	return s.telegramClient.SendMessage(s.adminChatID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
}

// ResolveReview publishes or discards a post and replaces the review message with the outcome.
func (s *NotificationServiceImpl) ResolveReview(ctx context.Context, msg telebot.Editable, postID int64, publish bool) error {
	var (
		p   *post.Post
		err error
	)
	if publish {
		p, err = s.review.Publish(ctx, postID)
	} else {
		p, err = s.review.Discard(ctx, postID)
	}
	if err != nil {
		return err
	}

	outcome := "🗑 Discarded"
	if publish {
		outcome = "✅ Published"
	}
	text := fmt.Sprintf("%s: <b>%s</b>", outcome, html.EscapeString(p.Title))
	if err := s.telegramClient.EditMessage(msg, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		s.logger.WithError(err).WithField("post_id", postID).Warn("Failed to update review message")
	}
	return nil
}
