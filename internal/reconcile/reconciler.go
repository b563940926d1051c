// Package reconcile turns verified payment-processor webhooks into durable
// booking and receipt records. Processing is idempotent per payment session:
// replays and concurrent deliveries converge on the single pair written by
// the first successful run.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/voyago/travel-bookings/internal/checkout"
	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/events"
	"github.com/voyago/travel-bookings/pkg/logger"
)

const dedupTTL = 24 * time.Hour

// BookingStore is the slice of the booking repository the reconciler writes
// through.
type BookingStore interface {
	CreatePair(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error
	GetPairBySession(ctx context.Context, sessionID string) (*domain.Booking, *domain.Receipt, error)
}

// UserStore resolves the paying identity recorded in the session metadata.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// DedupStore remembers delivered event ids. It is a fast-path optimization;
// correctness comes from the unique session constraint, so failures here are
// logged and ignored.
type DedupStore interface {
	FirstDelivery(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// ReceiptSender delivers the customer-facing receipt email.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error
}

type Outcome string

const (
	// OutcomeRecorded means this delivery created the booking and receipt.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicate means a prior delivery already recorded the session.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event type is not one we reconcile.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeManualReview means the payment is real but the booking could
	// not be attributed; an operator event was published and the delivery
	// is acknowledged so the processor stops retrying.
	OutcomeManualReview Outcome = "manual_review"
)

type Result struct {
	Outcome Outcome
	Booking *domain.Booking
	Receipt *domain.Receipt
}

type Reconciler struct {
	signingSecret string
	bookings      BookingStore
	users         UserStore
	dedup         DedupStore
	bus           events.Publisher
	mailer        ReceiptSender
	now           func() time.Time
	newID         func() string
}

func New(signingSecret string, bookings BookingStore, users UserStore, dedup DedupStore, bus events.Publisher, mailer ReceiptSender) *Reconciler {
	return &Reconciler{
		signingSecret: signingSecret,
		bookings:      bookings,
		users:         users,
		dedup:         dedup,
		bus:           bus,
		mailer:        mailer,
		now:           time.Now,
		newID:         func() string { return strings.ReplaceAll(uuid.New().String(), "-", "") },
	}
}

// Process verifies and reconciles one webhook delivery.
//
// Errors it returns are retryable infrastructure failures: the caller should
// answer 5xx so the processor redelivers. Malformed input surfaces as
// ErrSignatureInvalid or a metadata decode sentinel, which the caller maps to
// a non-retryable 4xx. Everything else resolves to a Result.
func (r *Reconciler) Process(ctx context.Context, payload []byte, sigHeader string) (*Result, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, r.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	if event.Type != "checkout.session.completed" {
		logger.DebugContext(ctx, "Ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: session payload: %v", domain.ErrMetadataDecode, err)
	}

	if r.dedup != nil {
		first, err := r.dedup.FirstDelivery(ctx, event.ID, dedupTTL)
		if err != nil {
			logger.WarnContext(ctx, "Dedup store unavailable, relying on session constraint",
				"event_id", event.ID, "error", err)
		} else if !first {
			logger.InfoContext(ctx, "Replayed webhook delivery", "event_id", event.ID, "session_id", sess.ID)
		}
	}

	// A session already reconciled is acknowledged without side effects,
	// whatever delivery attempt this is.
	existing, existingRec, err := r.bookings.GetPairBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup session %s: %w", sess.ID, err)
	}
	if existing != nil {
		return &Result{Outcome: OutcomeDuplicate, Booking: existing, Receipt: existingRec}, nil
	}

	decoded, err := checkout.Decode(sess.Metadata)
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindByID(ctx, decoded.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", decoded.UserID, err)
	}
	if user == nil {
		return r.escalate(ctx, &event, &sess, decoded)
	}

	b, rec := r.buildPair(&sess, decoded)
	if err := r.bookings.CreatePair(ctx, b, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateSession) {
			// Lost the race with a concurrent delivery; the winner's pair
			// is the record of truth.
			winner, winnerRec, lookupErr := r.bookings.GetPairBySession(ctx, sess.ID)
			if lookupErr != nil || winner == nil {
				return nil, fmt.Errorf("refetch session %s after duplicate: %w", sess.ID, lookupErr)
			}
			return &Result{Outcome: OutcomeDuplicate, Booking: winner, Receipt: winnerRec}, nil
		}
		return nil, fmt.Errorf("record booking for session %s: %w", sess.ID, err)
	}

	r.publishRecorded(ctx, b)

	if r.mailer != nil {
		if err := r.mailer.SendReceipt(ctx, b, rec); err != nil {
			logger.ErrorContext(ctx, "Failed to send receipt email",
				"booking_id", b.BookingID, "email", b.CustomerEmail, "error", err)
		}
	}

	logger.InfoContext(ctx, "Recorded booking from webhook",
		"booking_id", b.BookingID, "session_id", sess.ID, "type", b.BookingType, "amount", b.Amount)
	return &Result{Outcome: OutcomeRecorded, Booking: b, Receipt: rec}, nil
}

// escalate handles a payment whose user cannot be resolved. Retrying cannot
// fix it, so the delivery is acknowledged and an operator event carries the
// full decoded intent instead.
func (r *Reconciler) escalate(ctx context.Context, event *stripe.Event, sess *stripe.CheckoutSession, decoded *checkout.DecodedBooking) (*Result, error) {
	meta, _ := json.Marshal(sess.Metadata)
	ev := events.ReconcileManualEvent{
		PaymentSessionID: sess.ID,
		EventID:          event.ID,
		Reason:           "user not found",
		BookingType:      string(decoded.BookingType),
		UserID:           decoded.UserID,
		CustomerEmail:    decoded.CustomerEmail,
		AmountTotal:      sess.AmountTotal,
		Currency:         strings.ToUpper(string(sess.Currency)),
		Metadata:         meta,
		OccurredAt:       r.now().UTC(),
	}
	if err := r.bus.Publish(ctx, events.ReconcileManual, ev); err != nil {
		// Without the operator event the payment would be lost entirely,
		// so this one publish failure stays retryable.
		return nil, fmt.Errorf("publish manual reconcile for session %s: %w", sess.ID, err)
	}

	logger.WarnContext(ctx, "Escalated webhook to manual reconciliation",
		"session_id", sess.ID, "user_id", decoded.UserID)
	return &Result{Outcome: OutcomeManualReview}, nil
}

func (r *Reconciler) buildPair(sess *stripe.CheckoutSession, decoded *checkout.DecodedBooking) (*domain.Booking, *domain.Receipt) {
	suffix := strings.ToUpper(r.newID()[:8])
	now := r.now().UTC()

	amount := float64(sess.AmountTotal) / 100
	actual := float64(decoded.ActualAmount) / 100

	b := &domain.Booking{
		BookingID:        decoded.BookingType.IDPrefix() + "-" + suffix,
		PaymentSessionID: sess.ID,
		BookingType:      decoded.BookingType,
		Provider:         decoded.Provider,
		UserID:           decoded.UserID,
		CustomerName:     decoded.CustomerName,
		CustomerEmail:    decoded.CustomerEmail,
		CustomerPhone:    decoded.CustomerPhone,
		PaymentStatus:    domain.PaymentPaid,
		Amount:           amount,
		ActualAmount:     actual,
		Currency:         strings.ToUpper(string(sess.Currency)),
		Status:           domain.BookingConfirmed,
		IsRefundable:     decoded.AddProtection,
		Details:          decoded.Details,
	}

	payment, _ := json.Marshal(map[string]any{
		"payment_session_id": sess.ID,
		"payment_status":     string(sess.PaymentStatus),
		"amount_total":       sess.AmountTotal,
		"currency":           b.Currency,
	})

	item := map[string]any{
		"offer_id": decoded.OfferID,
		"provider": decoded.Provider,
		"amount":   actual,
	}
	if decoded.AddProtection {
		item["protection"] = true
		item["protection_amount"] = math.Round((amount-actual)*100) / 100
	}
	itemJSON, _ := json.Marshal(item)

	rec := &domain.Receipt{
		ReceiptID:       "RCP-" + suffix,
		BookingID:       b.BookingID,
		BookingType:     b.BookingType,
		TransactionDate: now,
		CustomerName:    b.CustomerName,
		CustomerEmail:   b.CustomerEmail,
		UserID:          b.UserID,
		PaymentDetails:  payment,
		ItemDetails:     itemJSON,
		Status:          string(domain.PaymentPaid),
	}
	return b, rec
}

// publishRecorded emits the post-commit events. The booking is durable by
// now, so publish failures are logged rather than failing the delivery.
func (r *Reconciler) publishRecorded(ctx context.Context, b *domain.Booking) {
	captured := events.PaymentCapturedEvent{
		BookingID:        b.BookingID,
		PaymentSessionID: b.PaymentSessionID,
		Amount:           b.Amount,
		Currency:         b.Currency,
	}
	if err := r.bus.Publish(ctx, events.PaymentCaptured, captured); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment captured", "booking_id", b.BookingID, "error", err)
	}

	recorded := events.BookingRecordedEvent{
		BookingID:     b.BookingID,
		BookingType:   string(b.BookingType),
		Provider:      b.Provider,
		UserID:        b.UserID,
		CustomerEmail: b.CustomerEmail,
		Amount:        b.Amount,
		Currency:      b.Currency,
		CreatedAt:     b.CreatedAt,
	}
	if err := r.bus.Publish(ctx, events.BookingRecorded, recorded); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking recorded", "booking_id", b.BookingID, "error", err)
	}
}
