package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeQueue    = "queue"
	TypeHTTP     = "http"
	TypeTelegram = "telegram"
)

// Queue providers.
const (
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// SinkConfig declares one extra delivery target next to the primary chat.
type SinkConfig struct {
	ID       string                   `json:"id" yaml:"id"`
	Type     string                   `json:"type" yaml:"type"`
	Enabled  *bool                    `json:"enabled" yaml:"enabled"`
	Route    Route                    `json:"route" yaml:"route"`
	Queue    *QueuePublisherConfig    `json:"queue" yaml:"queue"`
	HTTP     *HTTPPublisherConfig     `json:"http" yaml:"http"`
	Telegram *TelegramPublisherConfig `json:"telegram" yaml:"telegram"`
}

// Route narrows the events a sink receives. Empty lists accept everything.
// Sources are publisher labels as produced by the source resolver.
type Route struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Sources  []string `json:"sources" yaml:"sources"`
}

// Accepts reports whether evt should go to a sink with this route.
func (r Route) Accepts(evt Event) bool {
	if len(r.Keywords) > 0 && !slices.Contains(r.Keywords, evt.Keyword) {
		return false
	}
	if len(r.Sources) > 0 && !slices.Contains(r.Sources, evt.Source) {
		return false
	}
	return true
}

func (r Route) empty() bool { return len(r.Keywords) == 0 && len(r.Sources) == 0 }

// TelegramPublisherConfig holds Bot API settings for one chat.
type TelegramPublisherConfig struct {
	BotToken       string `json:"bot_token" yaml:"bot_token"`
	ChatID         string `json:"chat_id" yaml:"chat_id"`
	APIBase        string `json:"api_base" yaml:"api_base"`
	DisablePreview bool   `json:"disable_preview" yaml:"disable_preview"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp"`
}

// AWSSQSPublisherConfig holds AWS SQS settings.
type AWSSQSPublisherConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSNSPublisherConfig holds AWS SNS settings.
type AWSSNSPublisherConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// GCPQueueConfig holds the Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SinkConfigError lists every problem found in a sinks file.
type SinkConfigError struct {
	Path     string
	Problems []string
}

func (e *SinkConfigError) Error() string {
	return fmt.Sprintf("sinks file %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// LoadSinks reads the extra sinks from a YAML or JSON file. ${VAR} references
// are expanded from the environment. Telegram sinks without a bot token or
// api base inherit them from primary, and a sink that would post to the
// primary chat again is rejected. Only enabled sinks are returned.
func LoadSinks(path string, primary TelegramPublisherConfig) ([]SinkConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sinks file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sinks file: %w", err)
	}

	var file struct {
		Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
	}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal([]byte(os.ExpandEnv(string(raw))), &file); err != nil {
		return nil, fmt.Errorf("decode sinks file %s: %w", path, err)
	}
	if len(file.Sinks) == 0 {
		return nil, fmt.Errorf("sinks file %s declares no sinks", path)
	}

	primary = sanitizeTelegramConfig(primary)
	cfgErr := &SinkConfigError{Path: path}
	ids := make(map[string]bool, len(file.Sinks))
	var out []SinkConfig
	for i, cfg := range file.Sinks {
		cfg = cfg.normalize(primary)
		for _, p := range cfg.problems(primary) {
			cfgErr.Problems = append(cfgErr.Problems, fmt.Sprintf("sinks[%d]: %s", i, p))
		}
		if cfg.ID != "" && ids[cfg.ID] {
			cfgErr.Problems = append(cfgErr.Problems, fmt.Sprintf("sinks[%d]: duplicate id %q", i, cfg.ID))
		}
		ids[cfg.ID] = true
		if cfg.enabled() {
			out = append(out, cfg)
		}
	}
	if len(cfgErr.Problems) > 0 {
		return nil, cfgErr
	}
	return out, nil
}

func (cfg SinkConfig) enabled() bool { return cfg.Enabled == nil || *cfg.Enabled }

func (cfg SinkConfig) normalize(primary TelegramPublisherConfig) SinkConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.Route.Keywords = compact(cfg.Route.Keywords)
	cfg.Route.Sources = compact(cfg.Route.Sources)

	if q := cfg.Queue; q != nil {
		qc := *q
		qc.Provider = strings.ToLower(strings.TrimSpace(qc.Provider))
		if qc.AWS != nil {
			a := *qc.AWS
			trim(&a.QueueURL, &a.Region, &a.AccessKeyID, &a.SecretAccessKey)
			qc.AWS = &a
		}
		if qc.SNS != nil {
			s := *qc.SNS
			trim(&s.TopicARN, &s.Region, &s.AccessKeyID, &s.SecretAccessKey)
			qc.SNS = &s
		}
		if qc.GCP != nil {
			g := *qc.GCP
			trim(&g.ProjectID, &g.Topic, &g.CredentialsFile)
			qc.GCP = &g
		}
		cfg.Queue = &qc
	}
	if h := cfg.HTTP; h != nil {
		hc := *h
		hc.URL = strings.TrimSpace(hc.URL)
		hc.Method = strings.ToUpper(strings.TrimSpace(hc.Method))
		if hc.Method == "" {
			hc.Method = httpDefaultMethod
		}
		if hc.TimeoutSeconds <= 0 {
			hc.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		headers := make(map[string]string, len(hc.Headers))
		for k, v := range hc.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		hc.Headers = headers
		cfg.HTTP = &hc
	}
	if t := cfg.Telegram; t != nil {
		tc := *t
		if strings.TrimSpace(tc.BotToken) == "" {
			tc.BotToken = primary.BotToken
		}
		if strings.TrimSpace(tc.APIBase) == "" {
			tc.APIBase = primary.APIBase
		}
		tc = sanitizeTelegramConfig(tc)
		cfg.Telegram = &tc
	}
	return cfg
}

func (cfg SinkConfig) problems(primary TelegramPublisherConfig) []string {
	if cfg.ID == "" {
		return []string{"id is required"}
	}
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf("%q: ", cfg.ID)+fmt.Sprintf(format, args...))
	}

	switch cfg.Type {
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			add("http.url is required")
		}
	case TypeTelegram:
		t := cfg.Telegram
		switch {
		case t == nil || t.ChatID == "":
			add("telegram.chat_id is required")
		case t.BotToken == "":
			add("telegram.bot_token is required when no primary bot is configured")
		case t.ChatID == primary.ChatID && t.BotToken == primary.BotToken:
			add("telegram chat %s is already the primary chat", t.ChatID)
		}
	case TypeQueue:
		if cfg.Queue == nil {
			add("queue config is required")
			break
		}
		var missing []string
		switch q := cfg.Queue; q.Provider {
		case QueueProviderAWSSQS:
			var c AWSSQSPublisherConfig
			if q.AWS != nil {
				c = *q.AWS
			}
			missing = absent("sqs", "uri", c.QueueURL, "region", c.Region,
				"access_key_id", c.AccessKeyID, "secret_access_key", c.SecretAccessKey)
		case QueueProviderAWSSNS:
			var c AWSSNSPublisherConfig
			if q.SNS != nil {
				c = *q.SNS
			}
			missing = absent("sns", "topic_arn", c.TopicARN, "region", c.Region,
				"access_key_id", c.AccessKeyID, "secret_access_key", c.SecretAccessKey)
		case QueueProviderGCP:
			var c GCPQueueConfig
			if q.GCP != nil {
				c = *q.GCP
			}
			missing = absent("gcp", "project_id", c.ProjectID, "topic", c.Topic)
		default:
			add("queue provider %q is not supported", q.Provider)
		}
		if len(missing) > 0 {
			add("missing %s", strings.Join(missing, ", "))
		}
	case "":
		add("type is required")
	default:
		add("type %q is not supported", cfg.Type)
	}
	return out
}

// absent takes name/value pairs and returns prefix.name for each empty value.
func absent(prefix string, pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			out = append(out, prefix+"."+pairs[i])
		}
	}
	return out
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
