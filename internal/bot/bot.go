package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Bot relays Telegram messages into the chat service. All conversation logic
// lives behind the agent; the bot only maps chat ids to session ids and
// handles the two service commands.
type Bot struct {
	api    *tgbotapi.BotAPI
	chat   *service.ChatService
	logger *zerolog.Logger
}

func NewBot(token string, debug bool, chat *service.ChatService, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = debug

	return &Bot{api: api, chat: chat, logger: logger}, nil
}

// sessionID keeps one conversation per Telegram chat.
func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.api.Self.UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	updateCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Hi! I'm the SK HPC Services booking assistant. "+
			"Ask me about GPU availability, prices and recommendations, or tell me what you'd like to book.")
		return
	case "reset":
		if err := b.chat.Reset(updateCtx, sessionID(msg.Chat.ID)); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to reset session")
		}
		b.reply(msg.Chat.ID, "Conversation reset. How can I help?")
		return
	}

	reply, err := b.chat.HandleMessage(updateCtx, sessionID(msg.Chat.ID), msg.Text)
	if err != nil {
		b.reply(msg.Chat.ID, b.errorText(err))
		return
	}

	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return "You're sending messages too quickly. Please wait a minute and try again."
	case errors.Is(err, domain.ErrAgentUnavailable):
		return "The assistant is temporarily unavailable. Please try again in a moment."
	default:
		b.logger.Error().Err(err).Msg("chat error")
		return "Something went wrong. Please try again."
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
