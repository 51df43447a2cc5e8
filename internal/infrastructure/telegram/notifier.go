package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
)

// Telegram rejects messages longer than this many UTF-16 units; runes are a safe approximation.
const maxMessageRunes = 4096

// Notifier sends run reports to a Telegram chat via the bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// Options overrides the API endpoint and HTTP client, mostly for tests.
type Options struct {
	Endpoint string
	Client   *http.Client
}

// NewNotifier validates the bot token with getMe and parses the chat identifier.
func NewNotifier(botToken, chatID string, opts Options) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("%w: telegram notifier needs bot token and chat id", domain.ErrConfig)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram chat id %q: %v", domain.ErrConfig, chatID, err)
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	return &Notifier{bot: bot, chatID: id}, nil
}

// PublishReport posts the report as plain text, truncated to Telegram's limit.
func (n *Notifier) PublishReport(ctx context.Context, report string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, truncate(report, maxMessageRunes))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
