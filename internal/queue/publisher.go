package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/dining-reservation/internal/logger"
	"github.com/iliyamo/dining-reservation/internal/metrics"
)

// QueueName is the durable queue carrying all reservation events.
const QueueName = "reservation.events"

// Publisher sends reservation events to RabbitMQ.  Each call dials its own
// connection; failures are logged and returned so callers can ignore them
// without interrupting the request.
type Publisher struct {
	url string
	log logger.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log logger.Logger) *Publisher {
	return &Publisher{url: url, log: log.With("component", "event-publisher")}
}

// PublishReservationCreated publishes ev as a persistent message.
func (p *Publisher) PublishReservationCreated(ctx context.Context, ev ReservationCreatedEvent) error {
	return p.publish(ctx, TypeReservationCreated, ev)
}

// PublishTablesAssigned publishes ev as a persistent message.
func (p *Publisher) PublishTablesAssigned(ctx context.Context, ev TablesAssignedEvent) error {
	return p.publish(ctx, TypeTablesAssigned, ev)
}

func (p *Publisher) publish(ctx context.Context, typ string, payload any) (err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			p.log.Warn("publish failed", "type", typ, "error", err)
		}
		metrics.EventsPublishedTotal.WithLabelValues(typ, status).Inc()
	}()

	body, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         typ,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// NopPublisher drops every event.  Used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishReservationCreated(context.Context, ReservationCreatedEvent) error {
	return nil
}

func (NopPublisher) PublishTablesAssigned(context.Context, TablesAssignedEvent) error { return nil }
