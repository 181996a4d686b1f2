package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ai_post_scheduler/internal/app"
	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/infra/logger"
	"ai_post_scheduler/internal/infra/mcp"
	"ai_post_scheduler/internal/infra/scheduler"
	"ai_post_scheduler/internal/infra/telegram"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func CreateCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "aips [CMD]",
		Short:         "AI Post Scheduler: generates blog posts from templates on a schedule.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	cmd.AddCommand(CreateServe(&configFile))
	cmd.AddCommand(CreateRunDue(&configFile))
	cmd.AddCommand(CreateRunSchedule(&configFile))
	cmd.AddCommand(CreateNextRun(&configFile))
	return cmd
}

// Poller, MCP server and Telegram bot in one process.
func CreateServe(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "runs the schedule poller, the MCP server and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApplication(ctx, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *application) error {
	log := a.log
	g, gctx := errgroup.WithContext(ctx)

	poller := scheduler.NewPoller(a.processor, a.cfg.Scheduler, a.loc, logger.Component("scheduler"))
	if err := poller.Start(); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		poller.Stop()
		return nil
	})

	if a.cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(a.cfg.Telegram, logger.Component("telegram"))
		if err != nil {
			poller.Stop()
			return err
		}
		notifications := app.NewNotificationServiceImpl(
			telegram.NewTelebotAdapter(bot),
			a.review,
			logger.Component("notifications"),
			a.cfg.Telegram.AdminID,
		)
		a.dispatcher.Subscribe(notifications)
		a.generator.SetReviewNotifier(notifications)

		adminService := app.NewAdminService(a.scheduleService, a.processor, a.cfg.Telegram.AdminID)
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(bot, adminService, botLogger)
		telegram.RegisterAdminHandlers(gctx, bot, adminService, botLogger)
		telegram.RegisterReviewHandlers(gctx, bot, notifications, adminService, botLogger)
		log.Info("Telegram handlers registered")

		g.Go(func() error {
			bot.Start()
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			bot.Stop()
			return nil
		})
	} else {
		log.Info("Telegram token not set, bot disabled")
	}

	if a.cfg.MCP.Enabled {
		srv := mcp.NewServer(a.cfg.MCP, mcp.Deps{
			Config:    a.cfg,
			Location:  a.loc,
			Templates: a.templates,
			Voices:    a.voices,
			Schedules: a.scheduleService,
			Runner:    a.processor,
			Generator: a.generator,
			History:   a.history,
			Cron:      poller,
			Breaker:   a.ai,
			DB:        a.db,
		}, logger.Component("mcp"))
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("Application setup complete, waiting for schedules")
	err := g.Wait()
	log.Info("Application shut down gracefully")
	return err
}

// Single poll, for running from an external cron.
func CreateRunDue(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "processes every due schedule once and exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			poller := scheduler.NewPoller(a.processor, a.cfg.Scheduler, a.loc, logger.Component("scheduler"))
			summary, err := poller.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func CreateRunSchedule(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run-schedule <id>",
		Short: "generates a post for one schedule now, leaving its next run untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid schedule id %q", args[0])
			}
			a, err := newApplication(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.processor.RunNow(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

type nextRunFlags struct {
	from  string
	rules string
	count int
}

// Needs neither the database nor the AI client.
func CreateNextRun(configFile *string) *cobra.Command {
	flags := nextRunFlags{}
	cmd := &cobra.Command{
		Use:   "next-run <frequency>",
		Short: "prints the upcoming runs of a frequency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			calc := interval.NewCalculator(loc, cfg.Scheduler.MaxCatchUp)
			svc := app.NewScheduleService(nil, nil, calc, logger.Component("schedules"))

			var from *time.Time
			if flags.from != "" {
				t, err := parseFrom(flags.from, loc)
				if err != nil {
					return err
				}
				from = &t
			}

			runs, err := svc.Preview(interval.Frequency(args[0]), from, []byte(flags.rules), flags.count)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), interval.Frequency(args[0]), runs)
		},
	}

	cmd.Flags().StringVar(&flags.from, "from", "", "base time, RFC 3339 or \"2006-01-02 15:04:05\" (default now)")
	cmd.Flags().StringVar(&flags.rules, "rules", "", "custom frequency rules as JSON")
	cmd.Flags().IntVarP(&flags.count, "count", "n", 1, "number of runs to print")
	return cmd
}

func parseFrom(v string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func printRuns(w io.Writer, f interval.Frequency, runs []time.Time) error {
	if _, err := fmt.Fprintf(w, "%s:\n", interval.Display(f)); err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "  %s\n", r.Format("Mon 2006-01-02 15:04:05 MST")); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := CreateCommand().Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
