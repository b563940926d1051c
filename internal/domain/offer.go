package domain

import "encoding/json"

type BookingType string

const (
	BookingFlight BookingType = "flight"
	BookingHotel  BookingType = "hotel"
	BookingCar    BookingType = "car"
	BookingTour   BookingType = "tour"
)

func ParseBookingType(s string) (BookingType, bool) {
	switch BookingType(s) {
	case BookingFlight, BookingHotel, BookingCar, BookingTour:
		return BookingType(s), true
	default:
		return "", false
	}
}

// IDPrefix is the two-letter prefix used for human-readable booking ids.
func (t BookingType) IDPrefix() string {
	switch t {
	case BookingFlight:
		return "FL"
	case BookingHotel:
		return "HT"
	case BookingCar:
		return "CR"
	case BookingTour:
		return "TR"
	default:
		return "BK"
	}
}

// Price normalizes the two shapes providers quote: a structured
// {amount, currency, breakdown} object, or a bare number from legacy feeds.
type Price struct {
	Amount    float64            `json:"amount"`
	Currency  string             `json:"currency,omitempty"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

func (p *Price) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		return json.Unmarshal(b, &p.Amount)
	}
	type price Price
	var v price
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// Offer is a provider-quoted purchasable product returned from a search.
// Offers are ephemeral: fetched per search, never persisted as-is. Details
// keeps the variant-specific structure exactly as the mapping layer produced
// it, since only the checkout encoder interprets it.
type Offer struct {
	ID       string          `json:"id"`
	Provider string          `json:"provider,omitempty"`
	Type     BookingType     `json:"type,omitempty"`
	Price    Price           `json:"price"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// Flight detail shapes. Itineraries can carry an unbounded number of
// segments, which is why checkout encodes them segment by segment.

type FlightDetails struct {
	Meta        FlightMeta  `json:"meta"`
	Source      string      `json:"source"`
	Passengers  []Passenger `json:"passengers"`
	Itineraries []Itinerary `json:"itineraries"`
}

type FlightMeta struct {
	OneWay                 bool     `json:"oneWay"`
	NumberOfBookableSeats  int      `json:"numberOfBookableSeats,omitempty"`
	ValidatingAirlineCodes []string `json:"validatingAirlineCodes,omitempty"`
	LastTicketingDate      string   `json:"lastTicketingDate,omitempty"`
}

type Passenger struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	TravelerType string `json:"travelerType,omitempty"`
}

type Itinerary struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Departure     SegmentEndpoint `json:"departure"`
	Arrival       SegmentEndpoint `json:"arrival"`
	CarrierCode   string          `json:"carrierCode"`
	Number        string          `json:"number,omitempty"`
	Aircraft      string          `json:"aircraft,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	NumberOfStops int             `json:"numberOfStops"`
}

type SegmentEndpoint struct {
	IataCode string `json:"iataCode"`
	Terminal string `json:"terminal,omitempty"`
	At       string `json:"at"`
}

// Hotel, car and tour detail objects are small and bounded, so checkout
// carries each as a single JSON blob.

type HotelDetails struct {
	HotelID       string `json:"hotelId"`
	Name          string `json:"name"`
	City          string `json:"city,omitempty"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	Room          string `json:"room,omitempty"`
	Rate          string `json:"rate,omitempty"`
	Guests        int    `json:"guests"`
	AddProtection bool   `json:"addProtection,omitempty"`
}

type CarDetails struct {
	PickUpLocation  string `json:"pickUpLocation"`
	DropOffLocation string `json:"dropOffLocation"`
	PickUpAt        string `json:"pickUpAt"`
	DropOffAt       string `json:"dropOffAt"`
	Vehicle         string `json:"vehicle,omitempty"`
	Drivers         int    `json:"drivers,omitempty"`
	AddProtection   bool   `json:"addProtection,omitempty"`
}

type TourDetails struct {
	Destination   string `json:"destination"`
	Days          int    `json:"days"`
	StartDate     string `json:"startDate"`
	Travelers     int    `json:"travelers"`
	AddProtection bool   `json:"addProtection,omitempty"`
}
