package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/logger"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/ticket-queue/internal/queue"
)

// EventPublisher announces queue events.  Publishing is best effort:
// callers log failures and never fail a request because of them.
type EventPublisher interface {
	TicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error
	RolledOver(ctx context.Context, ev queue.RolloverEvent) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) TicketIssued(context.Context, queue.TicketIssuedEvent) error { return nil }
func (NopPublisher) RolledOver(context.Context, queue.RolloverEvent) error       { return nil }

// AMQPPublisher publishes persistent JSON messages to the events queue.  It
// dials per publish: event volume is one message per ticket, so a long-lived
// channel with its own reconnect logic is not worth the bookkeeping.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) TicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error {
	return p.publish(ctx, queue.KindTicketIssued, ev)
}

func (p *AMQPPublisher) RolledOver(ctx context.Context, ev queue.RolloverEvent) error {
	return p.publish(ctx, queue.KindRollover, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, kind string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Warningf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Warningf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.EventsQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		logger.Warningf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.EventsQueueName, false, false, pub); err != nil {
		logger.Warningf("rabbitmq: publish %s failed: %v", kind, err)
		return err
	}
	return nil
}

// publishAsync runs fn on its own goroutine with a bounded background
// context so a slow broker never delays the response.
func publishAsync(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warningf("events: publish %s failed: %v", what, err)
		}
	}()
}
