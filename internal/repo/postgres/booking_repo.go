package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyago/travel-bookings/internal/domain"
)

type BookingRepository interface {
	// CreatePair inserts a booking and its receipt in one transaction.
	// A unique violation on payment_session_id maps to ErrDuplicateSession.
	CreatePair(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error
	GetByID(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetPairBySession(ctx context.Context, sessionID string) (*domain.Booking, *domain.Receipt, error)
	GetReceipt(ctx context.Context, bookingID string) (*domain.Receipt, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	List(ctx context.Context, limit, offset int) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, patch domain.BookingPatch, by domain.UpdatedBy) (*domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `booking_id, payment_session_id, booking_type, provider,
user_id, customer_name, customer_email, customer_phone,
payment_status, amount, actual_amount, currency, status, is_refundable,
booking_details, updated_by, created_at, updated_at`

const uniqueViolation = "23505"

func (r *bookingRepository) CreatePair(ctx context.Context, b *domain.Booking, rec *domain.Receipt) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertBooking = `INSERT INTO bookings (
		booking_id, payment_session_id, booking_type, provider,
		user_id, customer_name, customer_email, customer_phone,
		payment_status, amount, actual_amount, currency, status, is_refundable,
		booking_details
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	RETURNING created_at, updated_at`

	err = tx.QueryRow(ctx, insertBooking,
		b.BookingID, b.PaymentSessionID, b.BookingType, b.Provider,
		b.UserID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.PaymentStatus, b.Amount, b.ActualAmount, b.Currency, b.Status, b.IsRefundable,
		b.Details,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateSession
		}
		return err
	}

	const insertReceipt = `INSERT INTO receipts (
		receipt_id, booking_id, booking_type, transaction_date,
		customer_name, customer_email, user_id,
		payment_details, item_details, status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = tx.Exec(ctx, insertReceipt,
		rec.ReceiptID, rec.BookingID, rec.BookingType, rec.TransactionDate,
		rec.CustomerName, rec.CustomerEmail, rec.UserID,
		rec.PaymentDetails, rec.ItemDetails, rec.Status,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *bookingRepository) GetByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE booking_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) GetPairBySession(ctx context.Context, sessionID string) (*domain.Booking, *domain.Receipt, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE payment_session_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, sessionID))
	if err == pgx.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rec, err := r.GetReceipt(ctx, b.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return b, rec, nil
}

const receiptCols = `receipt_id, booking_id, booking_type, transaction_date,
customer_name, customer_email, user_id, payment_details, item_details, status`

func (r *bookingRepository) GetReceipt(ctx context.Context, bookingID string) (*domain.Receipt, error) {
	const q = `SELECT ` + receiptCols + ` FROM receipts WHERE booking_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec domain.Receipt
	err := r.pool.QueryRow(ctx, q, bookingID).Scan(
		&rec.ReceiptID, &rec.BookingID, &rec.BookingType, &rec.TransactionDate,
		&rec.CustomerName, &rec.CustomerEmail, &rec.UserID,
		&rec.PaymentDetails, &rec.ItemDetails, &rec.Status,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *bookingRepository) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + bookingCols + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, bookingID string, patch domain.BookingPatch, by domain.UpdatedBy) (*domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET
			status         = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			is_refundable  = COALESCE($4, is_refundable),
			updated_by     = $5,
			updated_at     = now()
		WHERE booking_id=$1
		RETURNING ` + bookingCols

	byJSON, err := json.Marshal(by)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, bookingID, patch.Status, patch.PaymentStatus, patch.IsRefundable, byJSON))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var updatedBy []byte
	err := row.Scan(
		&b.BookingID, &b.PaymentSessionID, &b.BookingType, &b.Provider,
		&b.UserID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.PaymentStatus, &b.Amount, &b.ActualAmount, &b.Currency, &b.Status, &b.IsRefundable,
		&b.Details, &updatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(updatedBy) > 0 {
		var by domain.UpdatedBy
		if err := json.Unmarshal(updatedBy, &by); err == nil {
			b.UpdatedBy = &by
		}
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
