// Package notify pushes marketplace events to the operations team over
// Telegram. It is a passive event-bus subscriber; delivery failures are
// logged and never block the flow that raised the event.
package notify

import (
	"encoding/json"
	"fmt"

	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Notifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		chatIDs: chatIDs,
		logger:  logger,
	}
}

// SubscribeAll wires the notifier to every event type it reports on.
func (n *Notifier) SubscribeAll(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventLoadPosted,
		events.EventLoadCancelled,
		events.EventQuoteAccepted,
		events.EventPaymentRecorded,
	} {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *Notifier) handle(event *events.Event) error {
	var payload events.LoadEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("notify payload decode error")
		return err
	}

	text := formatMessage(event.Type, payload)
	if text == "" {
		return nil
	}

	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = models.ParseModeMarkdown
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("event_type", event.Type).Msg("notify send error")
		}
	}

	return nil
}

func formatMessage(eventType string, p events.LoadEventPayload) string {
	route := fmt.Sprintf("%s → %s", p.Source, p.Destination)
	switch eventType {
	case events.EventLoadPosted:
		return fmt.Sprintf("*New load #%d*\n%s\nBooking fee paid: %s", p.LoadID, route, formatAmount(p.Amount))
	case events.EventLoadCancelled:
		return fmt.Sprintf("*Load #%d cancelled*\n%s\nReason: %s", p.LoadID, route, p.Reason)
	case events.EventQuoteAccepted:
		return fmt.Sprintf("*Load #%d assigned*\n%s\nQuote #%d won at %s", p.LoadID, route, p.QuoteID, formatAmount(p.Amount))
	case events.EventPaymentRecorded:
		return fmt.Sprintf("*Payment on load #%d*\nPhase: %s\nAmount: %s", p.LoadID, p.Phase, formatAmount(p.Amount))
	default:
		return ""
	}
}

func formatAmount(paise int64) string {
	return fmt.Sprintf("₹%.2f", float64(paise)/100)
}
