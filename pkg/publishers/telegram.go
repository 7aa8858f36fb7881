package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
)

const (
	telegramDefaultAPIBase = "https://api.telegram.org"
	telegramTimeout        = 10 * time.Second
)

// telegramPublisher posts each event as an HTML message to one chat.
type telegramPublisher struct {
	id      string
	apiBase string
	token   string
	chatID  string
	preview bool
	client  httpclient.Client
	log     Logger
}

// NewTelegramPublisher builds the Telegram sink. A nil client gets a default resty client.
func NewTelegramPublisher(id string, cfg TelegramPublisherConfig, client httpclient.Client, log Logger) (Publisher, error) {
	cfg = sanitizeTelegramConfig(cfg)
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram publisher %q requires bot_token and chat_id", id)
	}
	if client == nil {
		client = httpclient.NewRestyClient(telegramTimeout)
	}
	if id == "" {
		id = TypeTelegram
	}
	return &telegramPublisher{
		id:      id,
		apiBase: cfg.APIBase,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		preview: !cfg.DisablePreview,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func newTelegramPublisher(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if cfg.Telegram == nil {
		return nil, fmt.Errorf("publisher %q missing telegram configuration", cfg.ID)
	}
	return NewTelegramPublisher(cfg.ID, *cfg.Telegram, nil, log)
}

func (p *telegramPublisher) ID() string   { return p.id }
func (p *telegramPublisher) Type() string { return TypeTelegram }

// Publish sends the article message through the Bot API sendMessage method.
func (p *telegramPublisher) Publish(ctx context.Context, evt Event) error {
	form := map[string]string{
		"chat_id":    p.chatID,
		"text":       FormatMessage(evt),
		"parse_mode": "HTML",
	}
	if p.preview && evt.Link != "" {
		opts, err := json.Marshal(linkPreviewOptions{URL: evt.Link, PreferLargeMedia: true})
		if err != nil {
			return fmt.Errorf("marshal link preview options: %w", err)
		}
		form["link_preview_options"] = string(opts)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.token)
	resp, err := p.client.PostForm(ctx, endpoint, nil, form)
	if err != nil {
		// resty errors embed the URL, which carries the bot token.
		return fmt.Errorf("telegram sendMessage: %s", strings.ReplaceAll(err.Error(), p.token, "<token>"))
	}

	var result telegramResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("telegram sendMessage returned status %d with undecodable body %q: %w",
			resp.StatusCode(), strings.TrimSpace(string(resp.Body())), err)
	}
	if resp.StatusCode() != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram sendMessage returned status %d: %s", resp.StatusCode(), result.Description)
	}

	p.log.DebugObj("telegram message sent", "publisher_telegram_delivery", map[string]any{
		"chat_id":    p.chatID,
		"message_id": result.Result.MessageID,
	})
	return nil
}

// FormatMessage renders the notification text.
func FormatMessage(evt Event) string {
	return fmt.Sprintf("<b>%s</b>\n- %s, %s\n\n%s", evt.Title, evt.Source, evt.PubDateText, evt.Link)
}

type linkPreviewOptions struct {
	URL              string `json:"url"`
	PreferLargeMedia bool   `json:"prefer_large_media"`
}

type telegramResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func sanitizeTelegramConfig(cfg TelegramPublisherConfig) TelegramPublisherConfig {
	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	cfg.ChatID = strings.TrimSpace(cfg.ChatID)
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = telegramDefaultAPIBase
	}
	return cfg
}
