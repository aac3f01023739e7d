// Package notify provides the notification transports behind the engine's
// best-effort Notifier. Actual email rendering and delivery happen
// downstream of the mail queue.
package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Message is the payload published to the mail queue.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AMQPNotifier publishes messages to a RabbitMQ queue consumed by the mail
// sender. A channel is opened per publish; the connection is long-lived.
type AMQPNotifier struct {
	conn  *amqp.Connection
	queue string
}

func NewAMQPNotifier(conn *amqp.Connection, queue string) *AMQPNotifier {
	return &AMQPNotifier{conn: conn, queue: queue}
}

func (n *AMQPNotifier) Notify(ctx context.Context, address, subject, body string) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		n.queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(Message{To: address, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",
		q.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
}

// LogNotifier records notifications to the log instead of delivering them.
// Used for local runs without a broker.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, address, subject, _ string) error {
	n.logger.Info("notification",
		zap.String("to", address),
		zap.String("subject", subject),
	)
	return nil
}
