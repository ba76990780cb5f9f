// Package telegram sends speedrun announcements to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbot "github.com/go-telegram/bot"
)

// Notifier posts messages to a single chat.
type Notifier struct {
	bot    *tgbot.Bot
	chatID int64
}

// Option customizes the underlying bot client.
type Option = tgbot.Option

// WithServerURL points the client at a different Bot API server.
func WithServerURL(url string) Option {
	return tgbot.WithServerURL(url)
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return tgbot.WithHTTPClient(0, c)
}

// NewNotifier creates a notifier. It never calls getMe, so no network access
// happens until the first announcement.
func NewNotifier(token string, chatID int64, opts ...Option) (*Notifier, error) {
	opts = append([]Option{tgbot.WithSkipGetMe()}, opts...)
	b, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return &Notifier{bot: b, chatID: chatID}, nil
}

// Name identifies the sink in logs.
func (n *Notifier) Name() string { return "telegram" }

// Announce sends text to the configured chat.
func (n *Notifier) Announce(ctx context.Context, text string) error {
	_, err := n.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", n.chatID, err)
	}
	return nil
}
