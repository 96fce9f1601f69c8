package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot used for alerts.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Client posts Markdown messages to a fixed set of chats.
type Client struct {
	sender  MessageSender
	chatIDs []int64
}

// New creates a bot client. bot.New validates the token against the Telegram API.
func New(token string, chatIDs ...int64) (*Client, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return NewWithSender(b, chatIDs...), nil
}

func NewWithSender(sender MessageSender, chatIDs ...int64) *Client {
	return &Client{sender: sender, chatIDs: chatIDs}
}

// Send posts text to every configured chat, stopping at the first failure.
func (c *Client) Send(ctx context.Context, text string) error {
	for _, chatID := range c.chatIDs {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if _, err := c.sender.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send to chat_id %d: %w", chatID, err)
		}
	}
	return nil
}
