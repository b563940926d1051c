package domain

import (
	"encoding/json"
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCanceled  BookingStatus = "canceled"
	BookingRefunded  BookingStatus = "refunded"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingConfirmed, BookingCanceled, BookingRefunded, BookingCompleted:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPaid, PaymentRefunded:
		return PaymentStatus(s), true
	default:
		return "", false
	}
}

// UpdatedBy records which authorized principal last touched a booking.
type UpdatedBy struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Booking is created exactly once per completed payment session and never
// deleted, only status-transitioned. Amount is the processor's charged total;
// ActualAmount is the undiscounted offer price, so ActualAmount <= Amount.
type Booking struct {
	BookingID        string          `json:"booking_id"`
	PaymentSessionID string          `json:"payment_session_id"`
	BookingType      BookingType     `json:"booking_type"`
	Provider         string          `json:"provider"`
	UserID           int64           `json:"user_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerPhone    string          `json:"customer_phone"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Amount           float64         `json:"amount"`
	ActualAmount     float64         `json:"actual_amount"`
	Currency         string          `json:"currency"`
	Status           BookingStatus   `json:"status"`
	IsRefundable     bool            `json:"is_refundable"`
	Details          json.RawMessage `json:"booking_details,omitempty"`
	UpdatedBy        *UpdatedBy      `json:"updated_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Receipt is written in the same transaction as its Booking, 1:1 by
// BookingID.
type Receipt struct {
	ReceiptID       string          `json:"receipt_id"`
	BookingID       string          `json:"booking_id"`
	BookingType     BookingType     `json:"booking_type"`
	TransactionDate time.Time       `json:"transaction_date"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	UserID          int64           `json:"user_id"`
	PaymentDetails  json.RawMessage `json:"payment_details"`
	ItemDetails     json.RawMessage `json:"item_details"`
	Status          string          `json:"status"`
}

// User is supplied by the external auth collaborator and read here only to
// resolve the paying identity.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// BookingPatch is the authorized status-update surface. Nil fields are left
// unchanged.
type BookingPatch struct {
	Status        *BookingStatus `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	IsRefundable  *bool          `json:"is_refundable,omitempty"`
}
