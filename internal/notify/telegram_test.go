package notify

import (
	"io"
	"testing"

	"loadboard/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestNotifier(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("LoadPostedFansOutToAllChats", func(t *testing.T) {
		sender := &fakeSender{}
		bus := events.NewEventBus()
		NewNotifier(sender, []int64{100, 200}, &logger).SubscribeAll(bus)

		err := bus.PublishJSON(events.EventLoadPosted, events.LoadEventPayload{
			LoadID:      7,
			Source:      "Mumbai",
			Destination: "Delhi",
			Amount:      105000,
		})
		require.NoError(t, err)

		require.Len(t, sender.sent, 2)
		assert.Equal(t, int64(100), sender.sent[0].ChatID)
		assert.Equal(t, int64(200), sender.sent[1].ChatID)
		assert.Contains(t, sender.sent[0].Text, "load #7")
		assert.Contains(t, sender.sent[0].Text, "Mumbai → Delhi")
		assert.Contains(t, sender.sent[0].Text, "₹1050.00")
	})

	t.Run("QuoteAccepted", func(t *testing.T) {
		sender := &fakeSender{}
		bus := events.NewEventBus()
		NewNotifier(sender, []int64{100}, &logger).SubscribeAll(bus)

		err := bus.PublishJSON(events.EventQuoteAccepted, events.LoadEventPayload{
			LoadID:  7,
			QuoteID: 3,
			Amount:  200000,
		})
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].Text, "assigned")
		assert.Contains(t, sender.sent[0].Text, "Quote #3")
	})

	t.Run("UnsubscribedEventIgnored", func(t *testing.T) {
		sender := &fakeSender{}
		bus := events.NewEventBus()
		NewNotifier(sender, []int64{100}, &logger).SubscribeAll(bus)

		err := bus.PublishJSON(events.EventQuoteSubmitted, events.LoadEventPayload{LoadID: 7})
		require.NoError(t, err)
		assert.Empty(t, sender.sent)
	})
}
