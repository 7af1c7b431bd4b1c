package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatlink/internal/models"
)

// backend is the slice of the API client the bot needs.
type backend interface {
	Finalize(nonce, externalHandle, displayName string) (*FinalizeResult, error)
	RecordMessage(channelID models.ChannelID, externalHandle, body string, occurredAt time.Time) error
}

// Bot runs the Telegram side of the verification protocol: it resolves
// "/start <nonce>" confirmations against the API server and forwards
// ordinary messages from linked chats to the message store.
type Bot struct {
	api     *tgbotapi.BotAPI
	backend backend
	log     *zap.SugaredLogger
}

// New connects to the Telegram Bot API with the given token.
func New(token string, client *Client, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{api: api, backend: client, log: log}, nil
}

// Run long-polls for updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	handle := fmt.Sprintf("%d", message.Chat.ID)
	text := strings.TrimSpace(message.Text)

	if nonce, ok := parseStart(text); ok {
		b.handleStart(message, handle, nonce)
		return
	}
	if strings.HasPrefix(text, "/") {
		b.reply(message.Chat.ID, "Unknown command. Open the app and follow the link to connect your account.")
		return
	}

	occurredAt := time.Unix(int64(message.Date), 0)
	if err := b.backend.RecordMessage(models.ChannelTelegram, handle, text, occurredAt); err != nil {
		b.log.Warnw("failed to record message",
			"chat_id", handle,
			"error", err,
		)
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message, handle, nonce string) {
	if nonce == "" {
		b.reply(message.Chat.ID, "Hi! To connect your account, open the app and follow the link it gives you.")
		return
	}

	displayName := displayNameOf(message.From)
	link, err := b.backend.Finalize(nonce, handle, displayName)
	if err != nil {
		b.log.Infow("finalize rejected",
			"chat_id", handle,
			"error", err,
		)
		b.reply(message.Chat.ID, verifyFailureText(err))
		return
	}

	b.log.Infow("channel linked",
		"chat_id", handle,
		"link_id", link.ID,
		"user_id", link.UserID,
	)
	b.reply(message.Chat.ID, "You're connected! Messages in this chat now count toward your account.")
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warnw("failed to send reply",
			"chat_id", chatID,
			"error", err,
		)
	}
}

// parseStart extracts the nonce argument from a /start command. The second
// return is false when the text is not a /start command at all.
func parseStart(text string) (string, bool) {
	if !strings.HasPrefix(text, "/start") {
		return "", false
	}
	fields := strings.Fields(text)
	if fields[0] != "/start" {
		return "", false
	}
	if len(fields) < 2 {
		return "", true
	}
	return fields[1], true
}

func displayNameOf(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.UserName
	}
	return name
}

// verifyFailureText maps a finalize error onto what the person in the chat
// should actually do next.
func verifyFailureText(err error) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		switch backendErr.StatusCode {
		case http.StatusGone:
			return "That verification link has expired. Generate a new one in the app and try again."
		case http.StatusNotFound:
			return "That verification link doesn't look right. Generate a new one in the app."
		case http.StatusConflict:
			return "This chat is already connected to a different account."
		}
	}
	return "Something went wrong while connecting your account. Please try again in a moment."
}

