package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"villaalcielo/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []tgbotapi.MessageConfig
	failFor  map[int64]error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if err, ok := s.failFor[msg.ChatID]; ok {
		return tgbotapi.Message{}, err
	}
	s.messages = append(s.messages, msg)
	return tgbotapi.Message{}, nil
}

func testReservation() (*models.Reservation, *models.Cabin) {
	return &models.Reservation{
			ConfirmationCode: "K7M2PQ",
			GuestName:        "Laura Gomez",
			GuestEmail:       "laura@example.com",
			CheckIn:          time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC),
			CheckOut:         time.Date(2025, time.June, 22, 0, 0, 0, 0, time.UTC),
			Guests:           2,
			TotalPrice:       780000,
			FrozenUntil:      time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC),
		}, &models.Cabin{
			Name: "Cielo",
		}
}

func newTestNotifier(sender MessageSender, chatIDs ...int64) *TelegramNotifier {
	logger := zerolog.New(io.Discard)
	return NewTelegramNotifierWithSender(sender, chatIDs, &logger)
}

func TestReservationCreatedReachesEveryOwner(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, 100, 200)

	r, cabin := testReservation()
	err := n.ReservationCreated(context.Background(), r, cabin)
	require.NoError(t, err)

	require.Len(t, sender.messages, 2)
	assert.Equal(t, int64(100), sender.messages[0].ChatID)
	assert.Equal(t, int64(200), sender.messages[1].ChatID)
	assert.Contains(t, sender.messages[0].Text, "K7M2PQ")
	assert.Contains(t, sender.messages[0].Text, "Cielo")
	assert.Contains(t, sender.messages[0].Text, "2025-06-20")
}

func TestBroadcastReportsPartialFailure(t *testing.T) {
	sender := &recordingSender{failFor: map[int64]error{200: errors.New("blocked by user")}}
	n := newTestNotifier(sender, 100, 200, 300)

	r, cabin := testReservation()
	err := n.ReservationConfirmed(context.Background(), r, cabin)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 200")
	// The failure must not stop delivery to the remaining chats.
	require.Len(t, sender.messages, 2)
}

func TestReservationExpiredMessage(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, 100)

	r, cabin := testReservation()
	err := n.ReservationExpired(context.Background(), r, cabin)
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Text, "vencida")
}
