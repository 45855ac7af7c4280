package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"sparepart-marketplace/config"
	"sparepart-marketplace/notifications"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Directory resolves delivery addresses for notification events.
type Directory interface {
	UserEmail(ctx context.Context, userID int64) (string, error)
	ShopOwnerEmail(ctx context.Context, shopID int64) (string, error)
}

// NotificationConsumer drains the notification queue and drives the
// Notifier. Malformed messages are rejected without requeue so they land on
// the dead-letter queue.
type NotificationConsumer struct {
	channel   *amqp.Channel
	cfg       *config.Config
	directory Directory
	notifier  notifications.Notifier
	logger    *zap.Logger
}

func NewNotificationConsumer(ch *amqp.Channel, cfg *config.Config, directory Directory, notifier notifications.Notifier, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		channel:   ch,
		cfg:       cfg,
		directory: directory,
		notifier:  notifier,
		logger:    logger.Named("notification_consumer"),
	}
}

func (c *NotificationConsumer) Start() error {
	msgs, err := c.channel.Consume(
		c.cfg.NotificationQueue,
		"sparepart-marketplace", // consumer tag
		false,                   // auto-ack
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register notification consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.process(msg)
		}
	}()

	dlqMsgs, err := c.channel.Consume(
		c.cfg.DeadLetterQueue,
		"sparepart-marketplace-dlq",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register dead letter consumer: %w", err)
	}

	go func() {
		for msg := range dlqMsgs {
			c.processDeadLetter(msg)
		}
	}()

	return nil
}

func (c *NotificationConsumer) process(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered from panic in notification processing", zap.Any("panic", r))
		}
	}()

	var event notifications.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Warn("malformed notification event", zap.ByteString("body", msg.Body), zap.Error(err))
		msg.Nack(false, false) // to the dead-letter queue
		return
	}

	ctx := context.Background()
	var err error
	switch event.Type {
	case notifications.EventCustomerOrderCreated:
		err = c.handleCustomerOrderCreated(ctx, event)
	case notifications.EventVendorOrderCreated:
		err = c.handleVendorOrderCreated(ctx, event)
	default:
		c.logger.Warn("unknown notification event type", zap.String("type", event.Type))
		msg.Nack(false, false)
		return
	}

	if err != nil {
		// Delivery is best-effort. Log and ack rather than loop the
		// message forever.
		c.logger.Error("notification dispatch failed",
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
	}
	msg.Ack(false)
}

func (c *NotificationConsumer) handleCustomerOrderCreated(ctx context.Context, event notifications.Event) error {
	email, err := c.directory.UserEmail(ctx, event.UserID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your order #%d for %.2f has been received and is awaiting vendor approval.",
		event.OrderID, event.TotalAmount)
	return c.notifier.SendEmail(ctx, email, "Order received", body)
}

func (c *NotificationConsumer) handleVendorOrderCreated(ctx context.Context, event notifications.Event) error {
	email, err := c.directory.ShopOwnerEmail(ctx, event.ShopID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Order #%d includes items from your shop. Review and approve the pending items.",
		event.OrderID)
	return c.notifier.SendEmail(ctx, email, "New order for your shop", body)
}

func (c *NotificationConsumer) processDeadLetter(msg amqp.Delivery) {
	c.logger.Warn("dead letter received", zap.ByteString("body", msg.Body))
	msg.Ack(false)
}
