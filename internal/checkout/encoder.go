// Package checkout turns a selected offer into a hosted payment session.
// The metadata sidecar is the only channel carrying booking intent from
// session creation to the webhook, so Encode and Decode must invert each
// other exactly.
package checkout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/voyago/travel-bookings/internal/domain"
)

// Metadata keys shared by Encode and Decode.
const (
	metaBookingType   = "bookingType"
	metaOfferID       = "offerId"
	metaProvider      = "provider"
	metaUserID        = "userId"
	metaCustomerEmail = "customerEmail"
	metaCustomerPhone = "customerPhone"
	metaCustomerName  = "customerName"
	metaActualAmount  = "actualAmount"

	metaFlightMeta             = "flight_meta"
	metaFlightSource           = "flight_source"
	metaFlightPassengers       = "flight_passengers"
	metaFlightAddProtection    = "flight_addProtection"
	metaFlightItinerariesCount = "flight_itineraries_count"
)

// Customer is the paying traveler as entered at checkout.
type Customer struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// FullName joins the name parts, including the middle name only when set.
func (c Customer) FullName() string {
	parts := []string{c.FirstName}
	if c.MiddleName != "" {
		parts = append(parts, c.MiddleName)
	}
	parts = append(parts, c.LastName)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// EncodeRequest carries everything the session needs: the offer, the
// variant-specific booking details, the price actually charged and the
// undiscounted offer price behind actualAmount.
type EncodeRequest struct {
	BookingType   domain.BookingType
	Offer         domain.Offer
	Details       json.RawMessage
	Price         float64
	Currency      string
	Provider      string
	AddProtection bool
	UserID        int64
	Customer      Customer
}

// LineItem is the processor-facing charge line in integer minor units.
type LineItem struct {
	Currency    string
	Name        string
	Description string
	UnitAmount  int64
}

// MinorUnits converts a decimal price to integer minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Encode builds the line item and the flat string metadata for a checkout
// session. Unknown booking types fail before any processor call is made.
func Encode(req EncodeRequest) (*LineItem, map[string]string, error) {
	if _, ok := domain.ParseBookingType(string(req.BookingType)); !ok {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidBookingType, req.BookingType)
	}

	meta := map[string]string{
		metaBookingType:   string(req.BookingType),
		metaOfferID:       req.Offer.ID,
		metaProvider:      req.Provider,
		metaUserID:        strconv.FormatInt(req.UserID, 10),
		metaCustomerEmail: req.Customer.Email,
		metaCustomerPhone: req.Customer.Phone,
		metaCustomerName:  req.Customer.FullName(),
		metaActualAmount:  strconv.FormatInt(MinorUnits(req.Offer.Price.Amount), 10),
	}

	switch req.BookingType {
	case domain.BookingFlight:
		if err := encodeFlight(meta, req); err != nil {
			return nil, nil, err
		}
	default:
		blob, err := compactDetails(req.Details)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s details: %w", req.BookingType, err)
		}
		if len(blob) > maxMetadataValueLen {
			return nil, nil, fmt.Errorf("%s details: value is %d bytes, limit %d",
				req.BookingType, len(blob), maxMetadataValueLen)
		}
		meta[string(req.BookingType)] = string(blob)
	}

	li := &LineItem{
		Currency:    strings.ToLower(req.Currency),
		Name:        lineItemName(req.BookingType, req.Offer.ID),
		Description: fmt.Sprintf("%s booking via %s", req.BookingType, req.Provider),
		UnitAmount:  MinorUnits(req.Price),
	}
	return li, meta, nil
}

// encodeFlight fans the itineraries out across indexed keys. A single JSON
// blob is unsafe here: segment counts are unbounded and a long multi-leg
// offer would blow the per-value limit.
func encodeFlight(meta map[string]string, req EncodeRequest) error {
	var fd domain.FlightDetails
	if err := json.Unmarshal(req.Details, &fd); err != nil {
		return fmt.Errorf("encode flight details: %w", err)
	}

	metaBlob, err := json.Marshal(fd.Meta)
	if err != nil {
		return err
	}
	passengers, err := json.Marshal(fd.Passengers)
	if err != nil {
		return err
	}

	meta[metaFlightMeta] = string(metaBlob)
	meta[metaFlightSource] = fd.Source
	meta[metaFlightPassengers] = string(passengers)
	meta[metaFlightAddProtection] = strconv.FormatBool(req.AddProtection)
	meta[metaFlightItinerariesCount] = strconv.Itoa(len(fd.Itineraries))

	for i, itin := range fd.Itineraries {
		segs := make([][]byte, 0, len(itin.Segments))
		for _, seg := range itin.Segments {
			b, err := json.Marshal(seg)
			if err != nil {
				return err
			}
			segs = append(segs, b)
		}
		plural := fmt.Sprintf("flight_itinerary_%d_segments", i)
		singular := fmt.Sprintf("flight_itinerary_%d_segment", i)
		if err := putChunked(meta, plural, singular, segs); err != nil {
			return err
		}
	}
	return nil
}

// DecodedBooking is the structured intent reassembled from the metadata
// sidecar, sufficient on its own to rebuild the booking and receipt.
type DecodedBooking struct {
	BookingType   domain.BookingType
	OfferID       string
	Provider      string
	UserID        int64
	CustomerEmail string
	CustomerPhone string
	CustomerName  string
	ActualAmount  int64
	AddProtection bool
	Details       json.RawMessage
}

// Decode inverts Encode. It is deterministic and lossless from the metadata
// alone; any malformed piece fails the whole decode rather than yielding a
// partial booking.
func Decode(meta map[string]string) (*DecodedBooking, error) {
	raw, ok := meta[metaBookingType]
	if !ok || raw == "" {
		return nil, domain.ErrMissingBookingType
	}
	bt, ok := domain.ParseBookingType(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidBookingType, raw)
	}

	userID, err := strconv.ParseInt(meta[metaUserID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad userId %q", domain.ErrMetadataDecode, meta[metaUserID])
	}
	actualAmount, err := strconv.ParseInt(meta[metaActualAmount], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad actualAmount %q", domain.ErrMetadataDecode, meta[metaActualAmount])
	}

	d := &DecodedBooking{
		BookingType:   bt,
		OfferID:       meta[metaOfferID],
		Provider:      meta[metaProvider],
		UserID:        userID,
		CustomerEmail: meta[metaCustomerEmail],
		CustomerPhone: meta[metaCustomerPhone],
		CustomerName:  meta[metaCustomerName],
		ActualAmount:  actualAmount,
	}

	switch bt {
	case domain.BookingFlight:
		if err := decodeFlight(meta, d); err != nil {
			return nil, err
		}
	default:
		blob, ok := meta[string(bt)]
		if !ok || !json.Valid([]byte(blob)) {
			return nil, fmt.Errorf("%w: missing or malformed %s details", domain.ErrMetadataDecode, bt)
		}
		d.Details = json.RawMessage(blob)
		d.AddProtection = blobAddProtection([]byte(blob))
	}
	return d, nil
}

func decodeFlight(meta map[string]string, d *DecodedBooking) error {
	var fd domain.FlightDetails
	if err := json.Unmarshal([]byte(meta[metaFlightMeta]), &fd.Meta); err != nil {
		return fmt.Errorf("%w: flight_meta: %v", domain.ErrMetadataDecode, err)
	}
	if err := json.Unmarshal([]byte(meta[metaFlightPassengers]), &fd.Passengers); err != nil {
		return fmt.Errorf("%w: flight_passengers: %v", domain.ErrMetadataDecode, err)
	}
	fd.Source = meta[metaFlightSource]

	addProtection, err := strconv.ParseBool(meta[metaFlightAddProtection])
	if err != nil {
		return fmt.Errorf("%w: flight_addProtection: %v", domain.ErrMetadataDecode, err)
	}

	count, err := strconv.Atoi(meta[metaFlightItinerariesCount])
	if err != nil || count < 0 {
		return fmt.Errorf("%w: bad flight_itineraries_count %q", domain.ErrMetadataDecode, meta[metaFlightItinerariesCount])
	}

	fd.Itineraries = make([]domain.Itinerary, 0, count)
	for i := 0; i < count; i++ {
		plural := fmt.Sprintf("flight_itinerary_%d_segments", i)
		singular := fmt.Sprintf("flight_itinerary_%d_segment", i)
		chunks, err := getChunked(meta, plural, singular)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMetadataDecode, err)
		}

		itin := domain.Itinerary{Segments: make([]domain.Segment, 0, len(chunks))}
		for j, chunk := range chunks {
			var seg domain.Segment
			if err := json.Unmarshal(chunk, &seg); err != nil {
				return fmt.Errorf("%w: %s_%d: %v", domain.ErrMetadataDecode, singular, j, err)
			}
			itin.Segments = append(itin.Segments, seg)
		}
		fd.Itineraries = append(fd.Itineraries, itin)
	}

	details, err := json.Marshal(fd)
	if err != nil {
		return err
	}
	d.Details = details
	d.AddProtection = addProtection
	return nil
}

// blobAddProtection peeks the optional addProtection flag carried inside
// hotel/car/tour detail objects.
func blobAddProtection(blob []byte) bool {
	var probe struct {
		AddProtection bool `json:"addProtection"`
	}
	_ = json.Unmarshal(blob, &probe)
	return probe.AddProtection
}

func compactDetails(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty details")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lineItemName(bt domain.BookingType, offerID string) string {
	switch bt {
	case domain.BookingFlight:
		return "Flight booking " + offerID
	case domain.BookingHotel:
		return "Hotel booking " + offerID
	case domain.BookingCar:
		return "Car rental " + offerID
	case domain.BookingTour:
		return "Tour package " + offerID
	default:
		return "Travel booking " + offerID
	}
}
