package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"streak-keeper/internal/bot"
	"streak-keeper/internal/httpapi"
	"streak-keeper/internal/logger"
	"streak-keeper/internal/service"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the midnight watcher, scheduled reports, HTTP API and Telegram bot",
		Long: `Run the long-lived tracker.

The inactivity check runs once at startup and then at every local midnight.
The HTTP API starts when HTTP_ADDR (or --http) is set and the Telegram bot
when TELEGRAM_TOKEN is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoadedApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				if httpAddr != "" {
					a.cfg.HTTPAddr = httpAddr
				}
				return runServe(cmd.Context(), a)
			})
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP API listen address, overrides HTTP_ADDR")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	log := a.log

	seeded, err := a.tracker.Seed(ctx, a.cfg.SeedCategories)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if seeded {
		log.Info("fresh store seeded", "categories", a.cfg.SeedCategories)
	}

	notifiers := service.Notifiers{service.LogNotifier{Log: logger.ForComponent(log, "notify")}}

	var telegram *bot.Bot
	if a.cfg.BotEnabled() {
		reports := service.NewReportService(a.tracker)
		telegram, err = bot.New(a.cfg.TelegramToken, a.tracker, reports, &a.cfg, logger.ForComponent(log, "bot"))
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		notifiers = append(notifiers, telegram)
	} else {
		log.Info("TELEGRAM_TOKEN not set, bot disabled")
	}

	a.tracker.SetNotifier(notifiers)
	a.tracker.Subscribe(service.EventNotifier(notifiers))

	// Catch up on midnights missed while the process was down.
	if _, err := a.tracker.CheckResets(ctx); err != nil {
		log.Error("startup reset check", "error", err)
	}

	watcher := service.NewMidnightWatcher(func() {
		checkCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.tracker.CheckResets(checkCtx); err != nil {
			log.Error("midnight reset check", "error", err)
		}
	}, logger.ForComponent(log, "midnight"))
	a.tracker.OnChange(watcher.Rearm)
	watcher.Start()
	defer watcher.Stop()

	scheduler, err := buildScheduler(a, telegram)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.HTTPAddr != "" {
		api := httpapi.NewServer(a.cfg.HTTPAddr, logger.ForComponent(log, "http"), a.tracker)
		g.Go(func() error { return api.Run(gctx) })
	}

	if telegram != nil {
		g.Go(func() error { return telegram.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	log.Info("streak keeper started", "driver", a.cfg.StorageDriver, "http", a.cfg.HTTPAddr, "bot", telegram != nil)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// buildScheduler registers the periodic digest and the daily reminder. Without
// a bot both go to the log.
func buildScheduler(a *app, telegram *bot.Bot) (*service.SchedulerService, error) {
	scheduler := service.NewSchedulerService(time.Local)
	reports := service.NewReportService(a.tracker)
	digestLog := logger.ForComponent(a.log, "digest")

	sendDigest := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if telegram != nil {
			if err := telegram.SendDailyReport(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				digestLog.Error("report", "error", err)
			}
			return
		}
		digestLog.Info("digest", "summary", reports.DailySummary(a.tracker.Now()))
	}

	sendReminder := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if telegram != nil {
			if err := telegram.SendReminder(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				digestLog.Error("reminder", "error", err)
			}
			return
		}
		if text, ok := reports.Reminder(a.tracker.Now()); ok {
			digestLog.Info("reminder", "pending", text)
		}
	}

	if a.cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, sendDigest); err != nil {
			return nil, fmt.Errorf("schedule reports: %w", err)
		}
	}
	if a.cfg.ReminderTime != "" {
		if _, err := scheduler.ScheduleDaily(a.cfg.ReminderTime, sendReminder); err != nil {
			return nil, fmt.Errorf("schedule reminder: %w", err)
		}
	}
	return scheduler, nil
}
