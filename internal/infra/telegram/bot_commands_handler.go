// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"ai_post_scheduler/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if adminService.IsAdmin(senderID) {
			return c.Send(fmt.Sprintf("Hello, %s! New drafts will show up here for review. Use /help for the list of commands.", c.Sender().FirstName))
		}
		logCtx.Info("User is not the admin")
		return c.Send("Hello! This bot only talks to the blog administrator.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if !adminService.IsAdmin(senderID) {
			return c.Send("No commands are available to you.")
		}
		var helpText strings.Builder
		helpText.WriteString("Admin commands:\n\n")
		helpText.WriteString("`/schedules`\n - List every schedule with its next run.\n\n")
		helpText.WriteString("`/run <ScheduleID>`\n - Generate a post for a schedule right now.\n\n")
		helpText.WriteString("`/next <frequency> [count]`\n - Preview the next runs of a frequency.\n\n")
		helpText.WriteString("`/help`\n - Show this message.\n\n")
		helpText.WriteString("Draft notifications carry Publish and Discard buttons.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
