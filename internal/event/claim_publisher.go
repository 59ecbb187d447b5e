package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClaimPublisher publishes claim lifecycle events to RabbitMQ
type ClaimPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

// NewClaimPublisher creates a new claim event publisher
func NewClaimPublisher(conn *RabbitMQConnection) *ClaimPublisher {
	return &ClaimPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishClaimEvent publishes a claim lifecycle event to the claim_events queue
func (p *ClaimPublisher) PublishClaimEvent(ctx context.Context, evt ClaimEvent) error {
	// Ensure the queue exists
	_, err := p.conn.Channel.QueueDeclare(
		ClaimEventsQueue, // queue name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal claim event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",               // exchange
		ClaimEventsQueue, // routing key (queue name)
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish claim event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Claim event published",
		"queue", ClaimEventsQueue,
		"type", evt.Type,
		"claim_id", evt.ClaimID,
	)

	return nil
}
