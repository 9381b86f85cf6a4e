// Package notify delivers reservation events to the owners over Telegram.
// Guests never see these messages; they get the payment instructions through
// the API response.
package notify

import (
	"context"
	"fmt"
	"strings"

	"villaalcielo/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MessageSender is the slice of the Telegram API the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	sender  MessageSender
	chatIDs []int64
	logger  *zerolog.Logger
}

// NewTelegramNotifier builds a notifier that messages every owner chat.
func NewTelegramNotifier(token string, chatIDs []int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{sender: api, chatIDs: chatIDs, logger: logger}, nil
}

// NewTelegramNotifierWithSender injects a sender; used by tests.
func NewTelegramNotifierWithSender(sender MessageSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatIDs: chatIDs, logger: logger}
}

func (n *TelegramNotifier) ReservationCreated(ctx context.Context, r *models.Reservation, cabin *models.Cabin) error {
	text := fmt.Sprintf(
		"🆕 Nueva reserva %s\nCabaña: %s\nHuésped: %s (%s)\n%s → %s, %d persona(s)\nTotal: $%d COP\nCongelada hasta: %s",
		r.ConfirmationCode,
		cabin.Name,
		r.GuestName, r.GuestEmail,
		r.CheckIn.Format(models.DateLayout), r.CheckOut.Format(models.DateLayout), r.Guests,
		r.TotalPrice,
		r.FrozenUntil.Format("2006-01-02 15:04"),
	)
	return n.broadcast(ctx, text)
}

func (n *TelegramNotifier) ReservationConfirmed(ctx context.Context, r *models.Reservation, cabin *models.Cabin) error {
	text := fmt.Sprintf(
		"✅ Reserva confirmada %s\nCabaña: %s\nHuésped: %s\n%s → %s",
		r.ConfirmationCode,
		cabin.Name,
		r.GuestName,
		r.CheckIn.Format(models.DateLayout), r.CheckOut.Format(models.DateLayout),
	)
	return n.broadcast(ctx, text)
}

func (n *TelegramNotifier) ReservationExpired(ctx context.Context, r *models.Reservation, cabin *models.Cabin) error {
	text := fmt.Sprintf(
		"⏰ Reserva vencida %s\nCabaña: %s\nHuésped: %s\nLas fechas %s → %s quedaron libres.",
		r.ConfirmationCode,
		cabin.Name,
		r.GuestName,
		r.CheckIn.Format(models.DateLayout), r.CheckOut.Format(models.DateLayout),
	)
	return n.broadcast(ctx, text)
}

// broadcast sends the text to every owner chat and reports every failure,
// not just the first one.
func (n *TelegramNotifier) broadcast(ctx context.Context, text string) error {
	var failed []string
	for _, chatID := range n.chatIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
			failed = append(failed, fmt.Sprintf("chat %d: %v", chatID, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("telegram delivery failed: %s", strings.Join(failed, "; "))
	}
	return nil
}
