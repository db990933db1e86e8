package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

type publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (publisher, error)

// AMQPMailer hands messages to a durable queue; a separate worker owns the
// actual SMTP delivery. One connection is shared by all sends. It is opened
// on first use and reopened after the broker drops it or a publish fails.
type AMQPMailer struct {
	url    string
	queue  string
	dial   dialFunc
	logger *logging.Service

	mu sync.Mutex
	ch publisher
}

func NewAMQPMailer(url, queue string, logger *logging.Service) *AMQPMailer {
	return &AMQPMailer{url: url, queue: queue, dial: dialAMQP, logger: logger}
}

func (a *AMQPMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if to == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(Message{To: to, Subject: subject, Text: text, HTML: html})
	if err != nil {
		return fmt.Errorf("failed to encode mail job: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, err := a.channel()
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, "", a.queue, false, false, pub); err != nil {
		a.reset()
		if a.logger != nil {
			a.logger.Error("failed to publish mail job", zap.String("queue", a.queue), zap.Error(err))
		}
		return fmt.Errorf("failed to publish mail job: %w", err)
	}

	if a.logger != nil {
		a.logger.Info("email queued", zap.String("to", to), zap.String("subject", subject), zap.String("queue", a.queue))
	}

	return nil
}

// Close releases the shared connection. A later Send opens a new one.
func (a *AMQPMailer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ch == nil {
		return nil
	}
	err := a.ch.Close()
	a.ch = nil
	return err
}

// channel returns the open channel, dialing and declaring the queue when
// there is none. Callers hold mu.
func (a *AMQPMailer) channel() (publisher, error) {
	if a.ch != nil && !a.ch.IsClosed() {
		return a.ch, nil
	}
	a.reset()

	ch, err := a.dial(a.url)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("failed to connect to mail queue", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to connect to mail queue: %w", err)
	}

	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare mail queue: %w", err)
	}

	if a.logger != nil {
		a.logger.Info("connected to mail queue", zap.String("queue", a.queue))
	}

	a.ch = ch
	return ch, nil
}

func (a *AMQPMailer) reset() {
	if a.ch != nil {
		_ = a.ch.Close()
		a.ch = nil
	}
}

type amqpChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *amqpChannel) IsClosed() bool {
	return c.Channel.IsClosed() || c.conn.IsClosed()
}

func (c *amqpChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

func dialAMQP(url string) (publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &amqpChannel{Channel: ch, conn: conn}, nil
}
