// Package config loads the process configuration from defaults, an optional
// config file, a .env file, NEWSBOT_ environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/Adda-Baaj/khobor-alert/internal/kvstore"
	"github.com/Adda-Baaj/khobor-alert/pkg/providers"
	"github.com/Adda-Baaj/khobor-alert/pkg/publishers"
)

// EnvPrefix prefixes every environment variable, with "." in keys mapped to "_".
const EnvPrefix = "NEWSBOT"

// Config is the immutable process configuration.
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Naver      NaverConfig      `mapstructure:"naver"`
	GoogleNews GoogleNewsConfig `mapstructure:"google_news"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	State      StateConfig      `mapstructure:"state"`
	Sources    FileConfig       `mapstructure:"sources"`
	Publishers FileConfig       `mapstructure:"publishers"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Cycle      CycleConfig      `mapstructure:"cycle"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// FeedConfig selects the search provider and the query sent each cycle.
type FeedConfig struct {
	Provider string        `mapstructure:"provider"`
	Keyword  string        `mapstructure:"keyword"`
	Display  int           `mapstructure:"display"`
	Start    int           `mapstructure:"start"`
	Sort     string        `mapstructure:"sort"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NaverConfig holds the Naver Open API credentials.
type NaverConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Endpoint     string `mapstructure:"endpoint"`
}

// GoogleNewsConfig sets the RSS search endpoint and its locale.
type GoogleNewsConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Language string `mapstructure:"language"`
	Region   string `mapstructure:"region"`
}

// TelegramConfig is the primary chat every matching article is sent to.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DedupConfig tunes the watermark rewind and the zone dates are shown in.
type DedupConfig struct {
	SafetyMargin time.Duration `mapstructure:"safety_margin"`
	Timezone     string        `mapstructure:"timezone"`
}

// ScheduleConfig names the recurring trigger and how often it fires.
type ScheduleConfig struct {
	Name       string        `mapstructure:"name"`
	Every      time.Duration `mapstructure:"every"`
	Resolution time.Duration `mapstructure:"resolution"`
}

// StateConfig picks the key/value backend holding the watermark.
type StateConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// FileConfig points at an optional auxiliary file.
type FileConfig struct {
	File string `mapstructure:"file"`
}

// EnrichConfig controls the link preview scraper.
type EnrichConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Workers int           `mapstructure:"workers"`
	Delay   time.Duration `mapstructure:"delay"`
}

// CycleConfig toggles optional cycle behaviour.
type CycleConfig struct {
	CheckpointEach    bool `mapstructure:"checkpoint_each"`
	BootstrapAnnounce bool `mapstructure:"bootstrap_announce"`
}

// LoggingConfig sets the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConfigurationError lists every key that is missing or has an unusable value.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

var defaults = map[string]any{
	"debug":                    false,
	"feed.provider":            providers.ProviderTypeNaver,
	"feed.keyword":             "",
	"feed.display":             50,
	"feed.start":               1,
	"feed.sort":                providers.SortDate,
	"feed.timeout":             15 * time.Second,
	"naver.client_id":          "",
	"naver.client_secret":      "",
	"naver.endpoint":           "",
	"google_news.endpoint":     "",
	"google_news.language":     "ko",
	"google_news.region":       "KR",
	"telegram.bot_token":       "",
	"telegram.chat_id":         "",
	"telegram.api_base":        "",
	"dedup.safety_margin":      5 * time.Minute,
	"dedup.timezone":           "Asia/Seoul",
	"schedule.name":            "runFetchingBot",
	"schedule.every":           5 * time.Minute,
	"schedule.resolution":      time.Second,
	"state.driver":             kvstore.DriverBolt,
	"state.path":               "newsbot.db",
	"sources.file":             "",
	"publishers.file":          "",
	"enrich.enabled":           false,
	"enrich.workers":           4,
	"enrich.delay":             time.Duration(0),
	"cycle.checkpoint_each":    false,
	"cycle.bootstrap_announce": false,
	"logging.level":            "info",
	"logging.format":           "json",
}

// Options selects the sources Load reads besides defaults and the environment.
type Options struct {
	// ConfigFile is a YAML, JSON or TOML file. Empty skips it.
	ConfigFile string
	// EnvFile is loaded into the environment first. A missing file is ignored.
	EnvFile string
	// Flags are bound by key name, e.g. --feed.keyword.
	Flags *pflag.FlagSet
}

// RegisterFlags declares the command line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	fs.Bool("debug", false, "log payloads instead of sending them")
	fs.String("feed.keyword", "", "keyword to search for")
	fs.String("feed.provider", providers.ProviderTypeNaver, "feed provider (naver or google_news)")
	fs.String("state.driver", kvstore.DriverBolt, "state store driver (bolt, sqlite or memory)")
	fs.String("state.path", "newsbot.db", "state store file")
	fs.String("logging.level", "info", "log level")
	fs.String("logging.format", "json", "log format (json or console)")
}

// Load assembles the configuration. It does not validate it.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			if _, known := defaults[f.Name]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Feed.Provider = strings.ToLower(strings.TrimSpace(c.Feed.Provider))
	c.Feed.Keyword = strings.TrimSpace(c.Feed.Keyword)
	c.Feed.Sort = strings.ToLower(strings.TrimSpace(c.Feed.Sort))
	c.Naver.ClientID = strings.TrimSpace(c.Naver.ClientID)
	c.Naver.ClientSecret = strings.TrimSpace(c.Naver.ClientSecret)
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.State.Driver = strings.ToLower(strings.TrimSpace(c.State.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate reports every problem at once as a *ConfigurationError.
func (c Config) Validate() error {
	var e ConfigurationError

	if c.Feed.Keyword == "" {
		e.Missing = append(e.Missing, "feed.keyword")
	}
	switch c.Feed.Provider {
	case providers.ProviderTypeNaver:
		if c.Naver.ClientID == "" {
			e.Missing = append(e.Missing, "naver.client_id")
		}
		if c.Naver.ClientSecret == "" {
			e.Missing = append(e.Missing, "naver.client_secret")
		}
	case providers.ProviderTypeGoogleNews:
	default:
		e.Invalid = append(e.Invalid, "feed.provider")
	}
	if c.Feed.Display < 1 || c.Feed.Display > 100 {
		e.Invalid = append(e.Invalid, "feed.display")
	}
	if c.Feed.Start < 1 || c.Feed.Start > 1000 {
		e.Invalid = append(e.Invalid, "feed.start")
	}
	if c.Feed.Sort != providers.SortDate && c.Feed.Sort != providers.SortSim {
		e.Invalid = append(e.Invalid, "feed.sort")
	}
	if c.Feed.Timeout <= 0 {
		e.Invalid = append(e.Invalid, "feed.timeout")
	}

	// Dry runs never reach Telegram.
	if !c.Debug {
		if c.Telegram.BotToken == "" {
			e.Missing = append(e.Missing, "telegram.bot_token")
		}
		if c.Telegram.ChatID == "" {
			e.Missing = append(e.Missing, "telegram.chat_id")
		}
	}

	if c.Dedup.SafetyMargin < 0 {
		e.Invalid = append(e.Invalid, "dedup.safety_margin")
	}
	if strings.TrimSpace(c.Schedule.Name) == "" {
		e.Missing = append(e.Missing, "schedule.name")
	}
	if c.Schedule.Every <= 0 {
		e.Invalid = append(e.Invalid, "schedule.every")
	}
	if c.Schedule.Resolution <= 0 {
		e.Invalid = append(e.Invalid, "schedule.resolution")
	}

	switch c.State.Driver {
	case kvstore.DriverBolt, kvstore.DriverSQLite:
		if strings.TrimSpace(c.State.Path) == "" {
			e.Missing = append(e.Missing, "state.path")
		}
	case kvstore.DriverMemory:
	default:
		e.Invalid = append(e.Invalid, "state.driver")
	}

	if c.Enrich.Enabled && c.Enrich.Workers < 1 {
		e.Invalid = append(e.Invalid, "enrich.workers")
	}
	if c.Enrich.Delay < 0 {
		e.Invalid = append(e.Invalid, "enrich.delay")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		e.Invalid = append(e.Invalid, "logging.level")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		e.Invalid = append(e.Invalid, "logging.format")
	}

	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return &e
}

// Location returns the configured zone, falling back to a fixed UTC+9.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Dedup.Timezone); err == nil && c.Dedup.Timezone != "" {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// Provider returns the feed provider settings.
func (c Config) Provider() providers.Provider {
	p := providers.Provider{
		ID:   c.Feed.Provider,
		Type: c.Feed.Provider,
	}
	switch c.Feed.Provider {
	case providers.ProviderTypeNaver:
		p.SourceURL = c.Naver.Endpoint
		p.ClientID = c.Naver.ClientID
		p.ClientSecret = c.Naver.ClientSecret
	case providers.ProviderTypeGoogleNews:
		p.SourceURL = c.GoogleNews.Endpoint
		p.Language = c.GoogleNews.Language
		p.Region = c.GoogleNews.Region
	}
	return p
}

// TelegramPublisher returns the primary notifier settings.
func (c Config) TelegramPublisher() publishers.TelegramPublisherConfig {
	return publishers.TelegramPublisherConfig{
		BotToken: c.Telegram.BotToken,
		ChatID:   c.Telegram.ChatID,
		APIBase:  c.Telegram.APIBase,
	}
}
