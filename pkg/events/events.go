package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/voyago/travel-bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event types and subjects
const (
	// Booking events
	BookingRecorded = "booking.recorded"
	BookingUpdated  = "booking.updated"
	BookingCanceled = "booking.canceled"

	// Payment events
	PaymentCaptured = "payment.captured"
	PaymentRefunded = "payment.refunded"

	// Reconciliation events
	ReconcileManual = "reconcile.manual"

	// Notification events
	NotifySend = "notify.send"
)

// Event payloads
type BookingRecordedEvent struct {
	BookingID     string    `json:"booking_id"`
	BookingType   string    `json:"booking_type"`
	Provider      string    `json:"provider"`
	UserID        int64     `json:"user_id"`
	CustomerEmail string    `json:"customer_email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

type BookingUpdatedEvent struct {
	BookingID string    `json:"booking_id"`
	Changes   []string  `json:"changes"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentCapturedEvent struct {
	BookingID        string  `json:"booking_id"`
	PaymentSessionID string  `json:"payment_session_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
}

type PaymentRefundedEvent struct {
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// ReconcileManualEvent carries everything an operator needs to finish a
// payment whose booking could not be recorded automatically.
type ReconcileManualEvent struct {
	PaymentSessionID string          `json:"payment_session_id"`
	EventID          string          `json:"event_id"`
	Reason           string          `json:"reason"`
	BookingType      string          `json:"booking_type,omitempty"`
	UserID           int64           `json:"user_id,omitempty"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	AmountTotal      int64           `json:"amount_total,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
