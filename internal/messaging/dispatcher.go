package messaging

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// HandlerFunc handles the raw JSON body of one message type
type HandlerFunc func(ctx context.Context, body []byte) error

// Dispatcher routes received messages to a handler by their "type" property.
// Messages of unknown type are logged and acknowledged.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for messageType
func (d *Dispatcher) Handle(messageType string, fn HandlerFunc) {
	d.handlers[messageType] = fn
}

// ProcessMessage implements MessageProcessor
func (d *Dispatcher) ProcessMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error {
	messageType, _ := msg.ApplicationProperties["type"].(string)

	fn, ok := d.handlers[messageType]
	if !ok {
		log.Warn().Str("message_id", msg.MessageID).Str("type", messageType).Msg("dropping message of unknown type")
		return nil
	}
	return fn(ctx, msg.Body)
}

// JSONHandler decodes the body into T before calling fn
func JSONHandler[T any](fn func(ctx context.Context, msg *T) error) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			// a body that cannot decode will never succeed; acknowledge it
			log.Error().Err(err).Msg("failed to decode message body")
			return nil
		}
		if err := fn(ctx, &msg); err != nil {
			return errors.Wrap(err, "failed to handle message")
		}
		return nil
	}
}
