package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adda-Baaj/khobor-alert/internal/config"
	"github.com/Adda-Baaj/khobor-alert/internal/crawler"
	"github.com/Adda-Baaj/khobor-alert/internal/dedup"
	"github.com/Adda-Baaj/khobor-alert/internal/ingest"
	"github.com/Adda-Baaj/khobor-alert/internal/kvstore"
	"github.com/Adda-Baaj/khobor-alert/internal/logger"
	"github.com/Adda-Baaj/khobor-alert/internal/scheduler"
	"github.com/Adda-Baaj/khobor-alert/internal/state"
	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-alert/pkg/providers"
	"github.com/Adda-Baaj/khobor-alert/pkg/publishers"
	"github.com/Adda-Baaj/khobor-alert/pkg/sources"
)

func main() {
	fs := pflag.NewFlagSet("newsbot", pflag.ExitOnError)
	config.RegisterFlags(fs)
	once := fs.Bool("once", false, "run a single cycle and exit")
	_ = fs.Parse(os.Args[1:])

	configFile, _ := fs.GetString("config")
	envFile, _ := fs.GetString("env-file")

	cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile, Flags: fs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		var ce *config.ConfigurationError
		if errors.As(err, &ce) {
			log.ErrorObj("configuration incomplete", "config_error", map[string]any{
				"missing": ce.Missing,
				"invalid": ce.Invalid,
			})
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *once); err != nil {
		log.ErrorObj("newsbot stopped", "fatal", map[string]any{"error": err.Error()})
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger, once bool) error {
	kv, err := kvstore.Open(cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	resolver, err := sources.NewResolverFromFile(cfg.Sources.File)
	if err != nil {
		return fmt.Errorf("load source rules: %w", err)
	}

	client := httpclient.NewRestyClient(cfg.Feed.Timeout)
	feed, err := providers.NewFeed(providers.DefaultFetcherRegistry(client), cfg.Provider())
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(ctx, cfg, client, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(kv, scheduler.Config{Resolution: cfg.Schedule.Resolution}, log)

	deps := ingest.Deps{
		Feed: feed,
		Engine: dedup.NewEngine(resolver,
			dedup.WithSafetyMargin(cfg.Dedup.SafetyMargin),
			dedup.WithLocation(cfg.Location()),
			dedup.WithLogger(log),
		),
		Store:     state.NewStore(kv),
		Notifier:  notifier,
		Scheduler: sched,
		Logger:    log,
	}
	if cfg.Enrich.Enabled {
		deps.Enricher = crawler.NewScraper(client, log, crawler.Options{
			Workers: cfg.Enrich.Workers,
			Delay:   cfg.Enrich.Delay,
		})
	}

	cycle, err := ingest.New(ingest.Config{
		Keyword:           cfg.Feed.Keyword,
		Display:           cfg.Feed.Display,
		Start:             cfg.Feed.Start,
		Sort:              cfg.Feed.Sort,
		ScheduleName:      cfg.Schedule.Name,
		ScheduleEvery:     cfg.Schedule.Every,
		DryRun:            cfg.Debug,
		CheckpointEach:    cfg.Cycle.CheckpointEach,
		BootstrapAnnounce: cfg.Cycle.BootstrapAnnounce,
		Location:          cfg.Location(),
	}, deps)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) error {
		rep, err := cycle.Run(ctx)
		if err != nil {
			return err
		}
		log.InfoObj("cycle finished", "cycle_report", map[string]any{
			"bootstrap": rep.Bootstrap,
			"fetched":   rep.Fetched,
			"notified":  rep.Notified,
			"total":     rep.Total,
		})
		return nil
	}

	if err := runOnce(ctx); err != nil {
		var se *state.StateError
		if once || errors.As(err, &se) {
			return err
		}
		log.WarnObj("initial cycle failed, waiting for the schedule", "cycle_failed", map[string]any{
			"error": err.Error(),
		})
	}
	if once {
		return nil
	}

	sched.Handle(cfg.Schedule.Name, runOnce)
	if _, err := sched.Ensure(ctx, cfg.Schedule.Name, cfg.Schedule.Every); err != nil {
		return err
	}

	log.InfoObj("scheduler running", "scheduler_start", map[string]any{
		"name":  cfg.Schedule.Name,
		"every": cfg.Schedule.Every.String(),
	})
	sched.Run(ctx)
	return nil
}

func buildNotifier(ctx context.Context, cfg config.Config, client httpclient.Client, log logger.Logger) (*publishers.Fanout, error) {
	var pubs []publishers.Publisher

	if !cfg.Debug || (cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "") {
		tg, err := publishers.NewTelegramPublisher(publishers.TypeTelegram, cfg.TelegramPublisher(), client, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, tg)
	}

	if cfg.Publishers.File != "" {
		sinks, err := publishers.LoadSinks(cfg.Publishers.File, cfg.TelegramPublisher())
		if err != nil {
			return nil, err
		}
		extra, err := publishers.BuildSinks(ctx, publishers.DefaultBuilders(), sinks, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, extra...)
	}

	return publishers.NewFanout(log, pubs...), nil
}
