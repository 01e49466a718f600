// Package notify pushes operational alerts to the on-call Telegram chat.
package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"campnest/internal/config"
	"campnest/internal/models"
)

// Notifier sends ops alerts to a fixed chat. A nil *Notifier is a valid
// disabled notifier so callers never have to branch.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// New builds a Notifier, or returns (nil, nil) when Telegram is disabled.
func New(cfg config.TelegramConfig, logger *zerolog.Logger) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return &Notifier{
		bot:    botAPI,
		chatID: cfg.OpsChatID,
		logger: logger,
	}, nil
}

// NotifyPaymentConflict reports a paid session whose dates were taken
// before confirmation. Money moved; someone has to reconcile by hand.
func (n *Notifier) NotifyPaymentConflict(sessionID string, userID int64, campsiteID *int64, start, end time.Time) error {
	if n == nil {
		return nil
	}
	site := "whole campground"
	if campsiteID != nil {
		site = fmt.Sprintf("campsite %d", *campsiteID)
	}
	text := fmt.Sprintf(
		"⚠️ *Payment conflict*\n\nSession `%s` is paid but %s is no longer free for %s to %s (user %d).\nManual reconciliation required: refund or rebook.",
		sessionID, site, start.Format(models.DateFormat), end.Format(models.DateFormat), userID,
	)
	return n.send(text)
}

// NotifyDeadLetter reports a session the reconcile worker gave up on.
func (n *Notifier) NotifyDeadLetter(sessionID string, lastError string) error {
	if n == nil {
		return nil
	}
	text := fmt.Sprintf(
		"🛑 *Reconcile dead letter*\n\nSession `%s` exhausted its retries.\nLast error: %s",
		sessionID, lastError,
	)
	return n.send(text)
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.bot.Send(msg); err != nil {
		if n.logger != nil {
			n.logger.Error().Err(err).Msg("failed to send ops notification")
		}
		return fmt.Errorf("failed to send ops notification: %w", err)
	}
	return nil
}
