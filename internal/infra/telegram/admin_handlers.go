package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ai_post_scheduler/internal/app"
	idb "ai_post_scheduler/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const maxPreviewRuns = 10

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle("/schedules", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/schedules",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		list, err := adminService.ListSchedules(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to run this command.")
			}
			handlerLogger.WithError(err).Error("Failed to list schedules")
			return c.Send("Could not load schedules, please try again later.")
		}
		return c.Send(formatSchedules(list), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	})

	b.Handle("/run", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/run",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /run <ScheduleID>")
		}
		scheduleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: the schedule ID must be a number.")
		}
		handlerLogger = handlerLogger.WithField("schedule_id", scheduleID)

		_ = c.Send(fmt.Sprintf("Generating a post for schedule %d...", scheduleID))
		res, err := adminService.RunSchedule(ctx, c.Sender().ID, scheduleID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, idb.ErrScheduleNotFound):
				logWithError.Warn("Schedule not found")
				return c.Send(fmt.Sprintf("Schedule %d not found.", scheduleID))
			default:
				logWithError.Error("Manual run failed")
				return c.Send(fmt.Sprintf("Generation failed: %s", err.Error()))
			}
		}
		handlerLogger.WithField("post_id", res.PostID).Info("Manual run finished")
		return c.Send(fmt.Sprintf("Post %d created (%s): %s", res.PostID, res.Status, res.Title))
	})

	b.Handle("/next", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/next",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid format. Use: /next <frequency> [count]")
		}
		count := 3
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return c.Send("Error: count must be a positive number.")
			}
			count = min(n, maxPreviewRuns)
		}

		runs, err := adminService.NextRuns(c.Sender().ID, args[0], count)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to run this command.")
			case errors.Is(err, app.ErrInvalidFrequency):
				return c.Send(fmt.Sprintf("Unknown frequency %q.\n\n%s", args[0], formatIntervals()))
			default:
				handlerLogger.WithError(err).Error("Preview failed")
				return c.Send("Could not compute the next runs.")
			}
		}
		return c.Send(formatRuns(args[0], runs))
	})
}
