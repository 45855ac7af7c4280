// Package notifications carries order lifecycle events to the notification
// consumers over RabbitMQ. Dispatch is fire-and-forget: a publish failure is
// the caller's to log, never a reason to fail a committed order.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"sparepart-marketplace/config"
	"sparepart-marketplace/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventCustomerOrderCreated = "customer_order_created"
	EventVendorOrderCreated   = "vendor_order_created"
)

// Event is the JSON message body shared by publisher and consumer.
type Event struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id,omitempty"`
	ShopID      int64     `json:"shop_id,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`
	Occurred    time.Time `json:"occurred"`
}

// Dispatcher is the hook the placement service calls after commit.
type Dispatcher interface {
	CustomerOrderCreated(ctx context.Context, order *models.Order) error
	VendorOrderCreated(ctx context.Context, order *models.Order, shopID int64) error
}

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

// SetupQueues declares the notification topology: a durable direct exchange,
// the notification queue with priority support and dead-lettering, and the
// dead-letter exchange/queue pair for messages the consumer rejects.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.DeadLetterQueue+"_exchange",
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	_, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-queue-type": "classic",
		},
	)
	if err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		"",
		r.Cfg.DeadLetterQueue+"_exchange",
		false,
		nil,
	); err != nil {
		return err
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.NotificationExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	_, err = r.Channel.QueueDeclare(
		r.Cfg.NotificationQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    r.Cfg.DeadLetterQueue + "_exchange",
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	)
	if err != nil {
		return err
	}

	return r.Channel.QueueBind(
		r.Cfg.NotificationQueue,
		"",
		r.Cfg.NotificationExchange,
		false,
		nil,
	)
}

func (r *RabbitMQ) CustomerOrderCreated(ctx context.Context, order *models.Order) error {
	return r.publish(ctx, Event{
		Type:        EventCustomerOrderCreated,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Occurred:    time.Now(),
	})
}

func (r *RabbitMQ) VendorOrderCreated(ctx context.Context, order *models.Order, shopID int64) error {
	return r.publish(ctx, Event{
		Type:     EventVendorOrderCreated,
		OrderID:  order.ID,
		ShopID:   shopID,
		Occurred: time.Now(),
	})
}

func (r *RabbitMQ) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Large orders jump the queue.
	priority := uint8(5)
	if event.TotalAmount > 100000 {
		priority = 9
	}

	return r.Channel.PublishWithContext(ctx,
		r.Cfg.NotificationExchange,
		"",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Occurred,
			ContentType:  "application/json",
			Body:         body,
			Priority:     priority,
		},
	)
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}

// Disabled is the dispatcher used when NOTIFICATIONS_ENABLED is off: the
// hook stays wired but every dispatch is a no-op.
type Disabled struct{}

func (Disabled) CustomerOrderCreated(context.Context, *models.Order) error { return nil }

func (Disabled) VendorOrderCreated(context.Context, *models.Order, int64) error { return nil }
