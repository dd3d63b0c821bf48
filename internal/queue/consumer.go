package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/dining-reservation/internal/logger"
)

// Consumer reads reservation events and appends one line per event to a
// journal file.
type Consumer struct {
	url  string
	path string
	log  logger.Logger
}

// NewConsumer returns a Consumer writing to dir/reservations.log.
func NewConsumer(url, dir string, log logger.Logger) *Consumer {
	return &Consumer{
		url:  url,
		path: filepath.Join(dir, "reservations.log"),
		log:  log.With("component", "event-consumer"),
	}
}

// Run connects to the broker and consumes until ctx is cancelled.  Broken
// connections are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Error("handle message failed", "message_id", d.MessageId, "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and appends its journal line.
func (c *Consumer) Handle(body []byte) error {
	line, err := FormatLine(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event message as a single journal line.
func FormatLine(body []byte) (string, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	switch env.Type {
	case TypeReservationCreated:
		var ev ReservationCreatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Reservation created | reservation_id=%d | customer_id=%d | name=\"%s %s\" | phone=\"%s\" | party=%d | at=\"%s\"\n",
			ev.CreatedAt, ev.ReservationID, ev.CustomerID, ev.FirstName, ev.LastName, ev.PhoneNumber, ev.NumPeople, ev.ReservationDatetime), nil
	case TypeTablesAssigned:
		var ev TablesAssignedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		tables := make([]string, len(ev.TableNumbers))
		for i, n := range ev.TableNumbers {
			tables[i] = fmt.Sprint(n)
		}
		return fmt.Sprintf("[%s] Tables assigned | reservation_id=%d | at=\"%s\" | tables=[%s] | spacing=%gh\n",
			ev.AssignedAt, ev.ReservationID, ev.ReservationDatetime, strings.Join(tables, ","), ev.SpacingHours), nil
	}
	return "", fmt.Errorf("unknown event type %q", env.Type)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
