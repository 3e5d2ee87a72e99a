package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the default config path.
const EnvConfigPath = "VACANCYFEED_CONFIG"

const defaultConfigPath = "config.yaml"

// Config is the root configuration for vacancyfeed.
type Config struct {
	Source       SourceConfig
	Scraper      ScraperConfig
	Filters      FilterConfig
	AI           AIConfig
	Notification NotificationConfig
	Publish      PublishConfig
	Store        StoreConfig
	Lock         LockConfig
	Schedule     string // cron spec for `start`, e.g. "@every 1h"
	Retry        RetryConfig
}

// SourceConfig describes the vacancy search query.
type SourceConfig struct {
	BaseURL         string
	Text            string
	PerPage         int
	Schedule        string // hh.ru schedule filter, e.g. "fullDay"
	WorkFormat      string // hh.ru work_format filter, e.g. "REMOTE"
	UserAgent       string
	PageConcurrency int
	Timeout         time.Duration
}

// ScraperConfig controls posting page scraping.
type ScraperConfig struct {
	Selector    string // data-qa attribute of the description block
	Concurrency int
	MinDelay    time.Duration // minimum gap between page requests
	Timeout     time.Duration
}

// FilterConfig holds title keyword filters. Empty lists accept everything.
type FilterConfig struct {
	TitleKeywords        []string
	TitleExcludeKeywords []string
}

// AIConfig controls the summary generator.
type AIConfig struct {
	Enabled         bool
	BaseURL         string
	APIKey          string // expanded from env var by Load
	Model           string
	Temperature     float64
	InputCostPer1K  float64
	OutputCostPer1K float64
	SystemPrompt    string // empty means the built-in prompt
	PromptFile      string // empty means the embedded template
	ExcerptWords    int    // used when Enabled is false
	Timeout         time.Duration
}

// NotificationConfig selects the deliverer.
type NotificationConfig struct {
	Type     string // "telegram" or "log"
	BaseURL  string
	BotToken string
	ChatID   string
	Throttle time.Duration // minimum gap between deliveries
}

// PublishConfig controls message rendering and what gets published.
type PublishConfig struct {
	IncludeFailed bool
	SupportURL    string
	CostUnit      string
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Type string // "json", "sqlite" or "memory"
	Path string
}

// LockConfig selects the run lock.
type LockConfig struct {
	Type       string // "file", "redis" or "none"
	Dir        string
	StaleAfter time.Duration
	RedisURL   string
	RedisKey   string
	TTL        time.Duration
}

// RetryConfig controls backoff for transient source and generator errors.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	defaultSourceURL   = "https://api.hh.ru"
	defaultUserAgent   = "api-test-agent"
	defaultAIBaseURL   = "https://api.vsegpt.ru/v1"
	defaultTelegramURL = "https://api.telegram.org"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Source       rawSourceConfig       `yaml:"source"`
	Scraper      rawScraperConfig      `yaml:"scraper"`
	Filters      rawFilterConfig       `yaml:"filters"`
	AI           rawAIConfig           `yaml:"ai"`
	Notification rawNotificationConfig `yaml:"notification"`
	Publish      rawPublishConfig      `yaml:"publish"`
	Store        StoreConfig           `yaml:"store"`
	Lock         rawLockConfig         `yaml:"lock"`
	Schedule     string                `yaml:"schedule"`
	Retry        rawRetryConfig        `yaml:"retry"`
}

type rawSourceConfig struct {
	BaseURL         string `yaml:"base_url"`
	Text            string `yaml:"text"`
	PerPage         int    `yaml:"per_page"`
	Schedule        string `yaml:"schedule"`
	WorkFormat      string `yaml:"work_format"`
	UserAgent       string `yaml:"user_agent"`
	PageConcurrency int    `yaml:"page_concurrency"`
	Timeout         string `yaml:"timeout"`
}

type rawScraperConfig struct {
	Selector    string `yaml:"selector"`
	Concurrency int    `yaml:"concurrency"`
	MinDelay    string `yaml:"min_delay"`
	Timeout     string `yaml:"timeout"`
}

type rawFilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
}

type rawAIConfig struct {
	Enabled         *bool    `yaml:"enabled"`
	BaseURL         string   `yaml:"base_url"`
	APIKey          string   `yaml:"api_key"`
	Model           string   `yaml:"model"`
	Temperature     *float64 `yaml:"temperature"`
	InputCostPer1K  *float64 `yaml:"input_cost_per_1k"`
	OutputCostPer1K *float64 `yaml:"output_cost_per_1k"`
	SystemPrompt    string   `yaml:"system_prompt"`
	PromptFile      string   `yaml:"prompt_file"`
	ExcerptWords    int      `yaml:"excerpt_words"`
	Timeout         string   `yaml:"timeout"`
}

type rawNotificationConfig struct {
	Type     string `yaml:"type"`
	BaseURL  string `yaml:"base_url"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Throttle string `yaml:"throttle"`
}

type rawPublishConfig struct {
	IncludeFailed bool    `yaml:"include_failed"`
	SupportURL    *string `yaml:"support_url"`
	CostUnit      *string `yaml:"cost_unit"`
}

type rawLockConfig struct {
	Type       string `yaml:"type"`
	Dir        string `yaml:"dir"`
	StaleAfter string `yaml:"stale_after"`
	RedisURL   string `yaml:"redis_url"`
	RedisKey   string `yaml:"redis_key"`
	TTL        string `yaml:"ttl"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// ResolvePath picks the config path: explicit flag, then $VACANCYFEED_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return defaultConfigPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config is loaded first; variables already set win.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := convert(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convert(raw rawConfig) (*Config, error) {
	var errs []error
	duration := func(field, value string, def time.Duration) time.Duration {
		if value == "" {
			return def
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s %q: %w", field, value, err))
			return def
		}
		return d
	}

	cfg := &Config{
		Source: SourceConfig{
			BaseURL:         orDefault(raw.Source.BaseURL, defaultSourceURL),
			Text:            orDefault(raw.Source.Text, "prompt"),
			PerPage:         raw.Source.PerPage,
			Schedule:        orDefault(raw.Source.Schedule, "fullDay"),
			WorkFormat:      orDefault(raw.Source.WorkFormat, "REMOTE"),
			UserAgent:       orDefault(raw.Source.UserAgent, defaultUserAgent),
			PageConcurrency: raw.Source.PageConcurrency,
			Timeout:         duration("source.timeout", raw.Source.Timeout, 30*time.Second),
		},
		Scraper: ScraperConfig{
			Selector:    orDefault(raw.Scraper.Selector, "vacancy-description"),
			Concurrency: raw.Scraper.Concurrency,
			MinDelay:    duration("scraper.min_delay", raw.Scraper.MinDelay, 0),
			Timeout:     duration("scraper.timeout", raw.Scraper.Timeout, 30*time.Second),
		},
		Filters: FilterConfig{
			TitleKeywords:        raw.Filters.TitleKeywords,
			TitleExcludeKeywords: raw.Filters.TitleExcludeKeywords,
		},
		AI: AIConfig{
			Enabled:         boolOr(raw.AI.Enabled, true),
			BaseURL:         orDefault(raw.AI.BaseURL, defaultAIBaseURL),
			APIKey:          raw.AI.APIKey,
			Model:           orDefault(raw.AI.Model, "qwen/qwen3-next-80b-a3b"),
			Temperature:     floatOr(raw.AI.Temperature, 0.2),
			InputCostPer1K:  floatOr(raw.AI.InputCostPer1K, 0.022),
			OutputCostPer1K: floatOr(raw.AI.OutputCostPer1K, 0.22),
			SystemPrompt:    raw.AI.SystemPrompt,
			PromptFile:      raw.AI.PromptFile,
			ExcerptWords:    raw.AI.ExcerptWords,
			Timeout:         duration("ai.timeout", raw.AI.Timeout, 120*time.Second),
		},
		Notification: NotificationConfig{
			Type:     orDefault(raw.Notification.Type, "telegram"),
			BaseURL:  orDefault(raw.Notification.BaseURL, defaultTelegramURL),
			BotToken: raw.Notification.BotToken,
			ChatID:   orDefault(raw.Notification.ChatID, "@llmforall"),
			Throttle: duration("notification.throttle", raw.Notification.Throttle, 5*time.Second),
		},
		Publish: PublishConfig{
			IncludeFailed: raw.Publish.IncludeFailed,
			SupportURL:    stringOr(raw.Publish.SupportURL, "https://tips.yandex.ru/guest/payment/3454449"),
			CostUnit:      stringOr(raw.Publish.CostUnit, "₽"),
		},
		Store: StoreConfig{
			Type: orDefault(raw.Store.Type, "json"),
			Path: raw.Store.Path,
		},
		Lock: LockConfig{
			Type:       orDefault(raw.Lock.Type, "file"),
			Dir:        raw.Lock.Dir,
			StaleAfter: duration("lock.stale_after", raw.Lock.StaleAfter, 2*time.Hour),
			RedisURL:   raw.Lock.RedisURL,
			RedisKey:   orDefault(raw.Lock.RedisKey, "vacancyfeed:run-lock"),
			TTL:        duration("lock.ttl", raw.Lock.TTL, time.Hour),
		},
		Schedule: orDefault(raw.Schedule, "@every 1h"),
		Retry: RetryConfig{
			MaxRetries: intOr(raw.Retry.MaxRetries, 3),
			BaseDelay:  duration("retry.base_delay", raw.Retry.BaseDelay, time.Second),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.Source.PerPage == 0 {
		cfg.Source.PerPage = 100
	}
	if cfg.Source.PageConcurrency == 0 {
		cfg.Source.PageConcurrency = 2
	}
	if cfg.Scraper.Concurrency == 0 {
		cfg.Scraper.Concurrency = 4
	}
	if cfg.AI.ExcerptWords == 0 {
		cfg.AI.ExcerptWords = 60
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Type {
		case "sqlite":
			cfg.Store.Path = "vacancies.db"
		default:
			cfg.Store.Path = "vacancies.json"
		}
	}
	if cfg.Lock.Dir == "" {
		cfg.Lock.Dir = filepath.Dir(cfg.Store.Path)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Source.PerPage < 1 || cfg.Source.PerPage > 100 {
		return fmt.Errorf("source.per_page must be between 1 and 100, got %d", cfg.Source.PerPage)
	}
	if cfg.Source.PageConcurrency < 0 || cfg.Scraper.Concurrency < 0 {
		return fmt.Errorf("concurrency settings must not be negative")
	}
	if strings.TrimSpace(cfg.Source.Text) == "" {
		return fmt.Errorf("source.text must not be empty")
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.InputCostPer1K < 0 || cfg.AI.OutputCostPer1K < 0 {
		return fmt.Errorf("ai costs must not be negative")
	}

	switch cfg.Notification.Type {
	case "log":
	case "telegram":
		if cfg.Notification.BotToken == "" {
			return fmt.Errorf("notification.bot_token is required when type is \"telegram\"")
		}
		if cfg.Notification.ChatID == "" {
			return fmt.Errorf("notification.chat_id is required when type is \"telegram\"")
		}
	default:
		return fmt.Errorf("notification.type must be \"telegram\" or \"log\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.Throttle < 0 {
		return fmt.Errorf("notification.throttle must not be negative, got %v", cfg.Notification.Throttle)
	}

	switch cfg.Store.Type {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("store.type must be \"json\", \"sqlite\" or \"memory\", got %q", cfg.Store.Type)
	}

	switch cfg.Lock.Type {
	case "file", "none":
	case "redis":
		if cfg.Lock.RedisURL == "" {
			return fmt.Errorf("lock.redis_url is required when lock.type is \"redis\"")
		}
		if cfg.Lock.TTL <= 0 {
			return fmt.Errorf("lock.ttl must be positive, got %v", cfg.Lock.TTL)
		}
	default:
		return fmt.Errorf("lock.type must be \"file\", \"redis\" or \"none\", got %q", cfg.Lock.Type)
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
