package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/amishk599/vacancyfeed/internal/adapter"
	"github.com/amishk599/vacancyfeed/internal/ai"
	"github.com/amishk599/vacancyfeed/internal/config"
	"github.com/amishk599/vacancyfeed/internal/filter"
	"github.com/amishk599/vacancyfeed/internal/lock"
	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/amishk599/vacancyfeed/internal/notifier"
	"github.com/amishk599/vacancyfeed/internal/pipeline"
	"github.com/amishk599/vacancyfeed/internal/ratelimit"
	"github.com/amishk599/vacancyfeed/internal/retry"
	"github.com/amishk599/vacancyfeed/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vacancyfeed",
	Short: "Vacancy digest: ingest, summarize, publish",
	Long: "vacancyfeed pulls new vacancies from hh.ru, summarizes each with an LLM " +
		"and publishes them to a Telegram channel, never posting a vacancy twice.",
	// Default to `run` so that `vacancyfeed` with no args does one full pass,
	// which is what a cron entry invoking the binary expects.
	RunE:          runAll,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VACANCYFEED_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VACANCYFEED_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func retryPolicy(cfg *config.Config, logger *slog.Logger) retry.Policy {
	return retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		Logger:     logger,
	}
}

// setupIngest wires the search source and page scraper behind retry and rate
// limiting decorators.
func setupIngest(cfg *config.Config, recordStore model.RecordStore, logger *slog.Logger) *pipeline.IngestStage {
	sourceClient := &http.Client{Timeout: cfg.Source.Timeout}
	var source model.JobSource = adapter.NewHeadHunterSource(cfg.Source.BaseURL, adapter.HeadHunterQuery{
		Text:       cfg.Source.Text,
		PerPage:    cfg.Source.PerPage,
		Schedule:   cfg.Source.Schedule,
		WorkFormat: cfg.Source.WorkFormat,
	}, cfg.Source.UserAgent, sourceClient)
	source = retry.NewRetrySource(source, retryPolicy(cfg, logger))

	scraperClient := &http.Client{Timeout: cfg.Scraper.Timeout}
	var scraper model.DescriptionScraper = adapter.NewPageScraper(cfg.Scraper.Selector, cfg.Source.UserAgent, scraperClient)
	if cfg.Scraper.MinDelay > 0 {
		scraper = ratelimit.NewRateLimitedScraper(scraper, ratelimit.NewLimiter(cfg.Scraper.MinDelay), "hh.ru")
	}

	var vacancyFilter model.VacancyFilter
	if len(cfg.Filters.TitleKeywords) > 0 || len(cfg.Filters.TitleExcludeKeywords) > 0 {
		vacancyFilter = filter.NewTitleFilter(cfg.Filters.TitleKeywords, cfg.Filters.TitleExcludeKeywords)
	}

	return pipeline.NewIngestStage(source, scraper, vacancyFilter, recordStore,
		cfg.Source.PageConcurrency, cfg.Scraper.Concurrency, logger)
}

// setupSummarizer returns the LLM summarizer, or the excerpt summarizer when
// ai.enabled is false.
func setupSummarizer(cfg *config.Config, logger *slog.Logger) (pipeline.Summarizer, error) {
	if !cfg.AI.Enabled {
		logger.Info("ai disabled, summaries are description excerpts", "words", cfg.AI.ExcerptWords)
		return ai.NewExcerptSummarizer(cfg.AI.ExcerptWords), nil
	}

	tmpl, err := ai.LoadTemplate(cfg.AI.PromptFile)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	var gen model.TextGenerator = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, httpClient)
	gen = retry.NewRetryGenerator(gen, retryPolicy(cfg, logger))

	logger.Info("ai summarizer enabled", "model", cfg.AI.Model, "base_url", cfg.AI.BaseURL)
	return ai.NewLLMSummarizer(gen, tmpl, ai.SummarizerSettings{
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		SystemPrompt: cfg.AI.SystemPrompt,
		Pricing: ai.Pricing{
			InputPer1K:  cfg.AI.InputCostPer1K,
			OutputPer1K: cfg.AI.OutputCostPer1K,
		},
	}), nil
}

// setupDeliverer returns the configured deliverer without throttling.
func setupDeliverer(cfg *config.Config, logger *slog.Logger) model.Deliverer {
	switch cfg.Notification.Type {
	case "telegram":
		logger.Info("using telegram notifier", "chat_id", cfg.Notification.ChatID)
		httpClient := &http.Client{Timeout: cfg.Source.Timeout}
		return notifier.NewTelegramNotifier(cfg.Notification.BaseURL, cfg.Notification.BotToken,
			cfg.Notification.ChatID, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupPublish(cfg *config.Config, recordStore model.RecordStore, logger *slog.Logger) *pipeline.PublishStage {
	deliverer := setupDeliverer(cfg, logger)
	if cfg.Notification.Throttle > 0 {
		deliverer = ratelimit.NewRateLimitedDeliverer(deliverer, ratelimit.NewLimiter(cfg.Notification.Throttle), cfg.Notification.ChatID)
	}
	return pipeline.NewPublishStage(deliverer, recordStore, pipeline.FormatOptions{
		SupportURL: cfg.Publish.SupportURL,
		CostUnit:   cfg.Publish.CostUnit,
	}, cfg.Publish.IncludeFailed, logger)
}

// setupLock returns the run lock and a cleanup for any client it opened.
// lock.type "none" yields a nil Locker.
func setupLock(ctx context.Context, cfg *config.Config) (pipeline.Locker, func(), error) {
	switch cfg.Lock.Type {
	case "redis":
		client, err := lock.NewRedisClient(ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return lock.NewRedisLock(client, cfg.Lock.RedisKey, cfg.Lock.TTL), func() { client.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return lock.NewFileLock(cfg.Lock.Dir, cfg.Lock.StaleAfter), func() {}, nil
	}
}

// buildPipeline opens the store and wires every stage. The returned cleanup
// closes the store and the lock client.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	recordStore, err := store.Open(cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	summarizer, err := setupSummarizer(cfg, logger)
	if err != nil {
		recordStore.Close()
		return nil, nil, err
	}

	runLock, closeLock, err := setupLock(ctx, cfg)
	if err != nil {
		recordStore.Close()
		return nil, nil, fmt.Errorf("setup run lock: %w", err)
	}

	p := pipeline.New(
		setupIngest(cfg, recordStore, logger),
		pipeline.NewSummarizeStage(summarizer, recordStore, logger),
		setupPublish(cfg, recordStore, logger),
		runLock,
		logger,
	)
	cleanup := func() {
		closeLock()
		if err := recordStore.Close(); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}
	return p, cleanup, nil
}
