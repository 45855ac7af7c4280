package consumers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sparepart-marketplace/config"
	"sparepart-marketplace/notifications"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(_ uint64, _ bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeDirectory struct{}

func (fakeDirectory) UserEmail(_ context.Context, userID int64) (string, error) {
	return "customer@example.com", nil
}

func (fakeDirectory) ShopOwnerEmail(_ context.Context, shopID int64) (string, error) {
	return "vendor@example.com", nil
}

type capturingNotifier struct {
	emails   []string
	subjects []string
}

func (n *capturingNotifier) SendEmail(_ context.Context, to, subject, _ string) error {
	n.emails = append(n.emails, to)
	n.subjects = append(n.subjects, subject)
	return nil
}

func (n *capturingNotifier) SendSMS(_ context.Context, to, _ string) error {
	n.emails = append(n.emails, to)
	return nil
}

func newConsumer(notifier notifications.Notifier) *NotificationConsumer {
	return NewNotificationConsumer(nil, config.LoadConfig(), fakeDirectory{}, notifier, zap.NewNop())
}

func delivery(t *testing.T, event notifications.Event, ack *fakeAck) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestProcessCustomerOrderCreated(t *testing.T) {
	notifier := &capturingNotifier{}
	consumer := newConsumer(notifier)
	ack := &fakeAck{}

	consumer.process(delivery(t, notifications.Event{
		Type:        notifications.EventCustomerOrderCreated,
		OrderID:     11,
		UserID:      7,
		TotalAmount: 45000,
		Occurred:    time.Now(),
	}, ack))

	assert.True(t, ack.acked)
	require.Len(t, notifier.emails, 1)
	assert.Equal(t, "customer@example.com", notifier.emails[0])
	assert.Equal(t, "Order received", notifier.subjects[0])
}

func TestProcessVendorOrderCreated(t *testing.T) {
	notifier := &capturingNotifier{}
	consumer := newConsumer(notifier)
	ack := &fakeAck{}

	consumer.process(delivery(t, notifications.Event{
		Type:     notifications.EventVendorOrderCreated,
		OrderID:  11,
		ShopID:   5,
		Occurred: time.Now(),
	}, ack))

	assert.True(t, ack.acked)
	require.Len(t, notifier.emails, 1)
	assert.Equal(t, "vendor@example.com", notifier.emails[0])
}

func TestProcessMalformedBodyGoesToDeadLetter(t *testing.T) {
	notifier := &capturingNotifier{}
	consumer := newConsumer(notifier)
	ack := &fakeAck{}

	consumer.process(amqp.Delivery{Acknowledger: ack, Body: []byte("{broken")})

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "malformed messages must not be requeued")
	assert.Empty(t, notifier.emails)
}

func TestProcessUnknownEventType(t *testing.T) {
	notifier := &capturingNotifier{}
	consumer := newConsumer(notifier)
	ack := &fakeAck{}

	consumer.process(delivery(t, notifications.Event{Type: "order_exploded"}, ack))

	assert.True(t, ack.nacked)
	assert.Empty(t, notifier.emails)
}
