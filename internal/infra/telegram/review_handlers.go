// internal/infra/telegram/review_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ai_post_scheduler/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterReviewHandlers handles the Publish and Discard buttons of draft notifications.
func RegisterReviewHandlers(ctx context.Context, b *telebot.Bot, notificationService app.NotificationService, adminService *app.AdminService, baseLogger *logrus.Entry) {
	handle := func(publish bool) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := baseLogger.WithFields(logrus.Fields{
				"sender_id": c.Sender().ID,
				"publish":   publish,
			})
			if !adminService.IsAdmin(c.Sender().ID) {
				logCtx.Warn("Unauthorized review attempt")
				return c.Respond(&telebot.CallbackResponse{Text: "Not allowed."})
			}

			postID, err := parsePostID(c.Data())
			if err != nil {
				c.Bot().OnError(err, c)
				return c.Respond(&telebot.CallbackResponse{Text: "Invalid post ID."})
			}

			err = notificationService.ResolveReview(ctx, c.Callback().Message, postID, publish)
			switch {
			case errors.Is(err, app.ErrPostNotDraft):
				return c.Respond(&telebot.CallbackResponse{Text: "This post was already reviewed."})
			case err != nil:
				c.Bot().OnError(fmt.Errorf("error reviewing post %d: %w", postID, err), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
			}
			if publish {
				return c.Respond(&telebot.CallbackResponse{Text: "Published!"})
			}
			return c.Respond(&telebot.CallbackResponse{Text: "Discarded."})
		}
	}

	b.Handle(&telebot.Btn{Unique: app.CallbackPublish}, handle(true))
	b.Handle(&telebot.Btn{Unique: app.CallbackDiscard}, handle(false))
}

func parsePostID(data string) (int64, error) {
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post ID %q in callback", data)
	}
	return id, nil
}
