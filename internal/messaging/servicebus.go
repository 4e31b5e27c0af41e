package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/alumni/services/events/internal/metrics"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Publisher sends typed messages. Messages sharing a session ID are delivered in order.
type Publisher interface {
	Publish(ctx context.Context, sessionID, messageType string, body interface{}) error
}

// ServiceBusClient wraps one Service Bus connection
type ServiceBusClient struct {
	client *azservicebus.Client
}

// NewServiceBusClient connects to Service Bus
func NewServiceBusClient(connStr string) (*ServiceBusClient, error) {
	if connStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}
	return &ServiceBusClient{client: client}, nil
}

// Close closes the connection
func (c *ServiceBusClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// ServiceBusPublisher sends messages to one queue
type ServiceBusPublisher struct {
	sender *azservicebus.Sender
	queue  string
	source string
}

// NewPublisher creates a sender for queue. source is stamped on every message.
func (c *ServiceBusClient) NewPublisher(queue, source string) (*ServiceBusPublisher, error) {
	sender, err := c.client.NewSender(queue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}
	return &ServiceBusPublisher{sender: sender, queue: queue, source: source}, nil
}

// Publish marshals body to JSON and sends it
func (p *ServiceBusPublisher) Publish(ctx context.Context, sessionID, messageType string, body interface{}) error {
	msg, err := NewMessage(sessionID, messageType, p.source, body)
	if err != nil {
		return err
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send %s to %s", messageType, p.queue)
	}
	metrics.Default().IncrementCounter(metrics.CounterMessagesSent)
	return nil
}

// Close closes the sender
func (p *ServiceBusPublisher) Close(ctx context.Context) error {
	return p.sender.Close(ctx)
}

// NewMessage builds the outgoing envelope
func NewMessage(sessionID, messageType, source string, body interface{}) (*azservicebus.Message, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message body")
	}

	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		ApplicationProperties: map[string]interface{}{
			"type":   messageType,
			"source": source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}
	if sessionID != "" {
		msg.SessionID = &sessionID
	}
	return msg, nil
}

// MessageProcessor handles one received message. A returned error abandons the message
// so it is redelivered.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error
}

// StartConsumers accepts sessions on queue until ctx is done, handling each session in
// its own goroutine so per-event ordering is kept.
func (c *ServiceBusClient) StartConsumers(ctx context.Context, queue string, processor MessageProcessor) error {
	log.Info().Str("queue", queue).Msg("starting consumers")

	for {
		receiver, err := c.client.AcceptNextSessionForQueue(ctx, queue, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var sbErr *azservicebus.Error
			if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeTimeout {
				log.Debug().Str("queue", queue).Msg("no session available, waiting")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(2 * time.Second):
				}
				continue
			}
			return errors.Wrap(err, "failed to accept session")
		}

		log.Debug().Str("session", receiver.SessionID()).Msg("session received")
		go handleSession(ctx, receiver, processor)
	}
}

func handleSession(ctx context.Context, receiver *azservicebus.SessionReceiver, processor MessageProcessor) {
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Str("session", receiver.SessionID()).Msg("error closing session")
		}
	}()

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("session", receiver.SessionID()).Msg("error receiving messages")
			}
			return
		}
		if len(messages) == 0 {
			return
		}

		for _, message := range messages {
			metrics.Default().IncrementCounter(metrics.CounterMessagesReceived)

			if err := processor.ProcessMessage(ctx, message); err != nil {
				metrics.Default().IncrementCounter(metrics.CounterMessagesFailed)
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("error processing message")
				if err := receiver.AbandonMessage(context.Background(), message, nil); err != nil {
					log.Error().Err(err).Str("message_id", message.MessageID).Msg("failed to abandon message")
				}
				continue
			}

			if err := receiver.CompleteMessage(context.Background(), message, nil); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("failed to complete message")
			}
		}
	}
}
