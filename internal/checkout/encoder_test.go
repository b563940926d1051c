package checkout_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/voyago/travel-bookings/internal/checkout"
	"github.com/voyago/travel-bookings/internal/domain"
)

func flightDetails(itineraries int, segmentsPer int) json.RawMessage {
	fd := domain.FlightDetails{
		Meta: domain.FlightMeta{
			OneWay:                 false,
			NumberOfBookableSeats:  4,
			ValidatingAirlineCodes: []string{"LH"},
			LastTicketingDate:      "2026-09-15",
		},
		Source: "GDS",
		Passengers: []domain.Passenger{
			{FirstName: "Ada", LastName: "Lovelace", TravelerType: "ADULT"},
		},
	}
	for i := 0; i < itineraries; i++ {
		itin := domain.Itinerary{}
		for j := 0; j < segmentsPer; j++ {
			itin.Segments = append(itin.Segments, domain.Segment{
				Departure:   domain.SegmentEndpoint{IataCode: "FRA", Terminal: "1", At: "2026-09-20T08:00:00"},
				Arrival:     domain.SegmentEndpoint{IataCode: "JFK", At: "2026-09-20T11:30:00"},
				CarrierCode: "LH",
				Number:      fmt.Sprintf("40%d", j),
				Aircraft:    "359",
				Duration:    "PT8H30M",
			})
		}
		fd.Itineraries = append(fd.Itineraries, itin)
	}
	b, _ := json.Marshal(fd)
	return b
}

func encodeReq(bt domain.BookingType, details json.RawMessage) checkout.EncodeRequest {
	return checkout.EncodeRequest{
		BookingType: bt,
		Offer: domain.Offer{
			ID:    "offer-123",
			Price: domain.Price{Amount: 542.10, Currency: "USD"},
		},
		Details:  details,
		Price:    596.31,
		Currency: "USD",
		Provider: "amadeus",
		UserID:   77,
		Customer: checkout.Customer{
			FirstName: "Ada", LastName: "Lovelace",
			Email: "ada@example.com", Phone: "+15551234567",
		},
	}
}

// ---------- Tests ----------

func TestEncode_ActualAmountIsUndiscountedMinorUnits(t *testing.T) {
	li, meta, err := checkout.Encode(encodeReq(domain.BookingFlight, flightDetails(1, 1)))
	if err != nil {
		t.Fatal(err)
	}

	// The charge line uses the discounted price, the sidecar carries the
	// undiscounted offer price.
	if li.UnitAmount != 59631 {
		t.Fatalf("expected unit amount 59631, got %d", li.UnitAmount)
	}
	if meta["actualAmount"] != "54210" {
		t.Fatalf("expected actualAmount 54210, got %q", meta["actualAmount"])
	}
	if li.Currency != "usd" {
		t.Fatalf("expected lowercase currency, got %q", li.Currency)
	}
}

func TestMinorUnits_Rounding(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{542.10, 54210},
		{19.999, 2000},
		{0.005, 1},
		{100, 10000},
	}
	for _, tt := range tests {
		if got := checkout.MinorUnits(tt.in); got != tt.want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeDecode_Flight_RoundTrip(t *testing.T) {
	for _, segs := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("%d segments", segs), func(t *testing.T) {
			details := flightDetails(2, segs)
			_, meta, err := checkout.Encode(encodeReq(domain.BookingFlight, details))
			if err != nil {
				t.Fatal(err)
			}

			if meta["flight_itineraries_count"] != "2" {
				t.Fatalf("expected 2 itineraries, got %q", meta["flight_itineraries_count"])
			}

			d, err := checkout.Decode(meta)
			if err != nil {
				t.Fatal(err)
			}
			if d.BookingType != domain.BookingFlight || d.OfferID != "offer-123" || d.UserID != 77 {
				t.Fatalf("identity fields lost: %+v", d)
			}
			if d.ActualAmount != 54210 {
				t.Fatalf("expected actual amount 54210, got %d", d.ActualAmount)
			}

			var got, want domain.FlightDetails
			if err := json.Unmarshal(d.Details, &got); err != nil {
				t.Fatal(err)
			}
			if err := json.Unmarshal(details, &want); err != nil {
				t.Fatal(err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Fatalf("flight details not lossless:\n got %s\nwant %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestEncode_Flight_EveryValueWithinLimit(t *testing.T) {
	// Two itineraries of six segments each would blow a single JSON value;
	// fanned out, every individual value must stay under the cap.
	_, meta, err := checkout.Encode(encodeReq(domain.BookingFlight, flightDetails(2, 6)))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range meta {
		if len(v) > 500 {
			t.Fatalf("metadata value %q is %d bytes", k, len(v))
		}
	}
	if meta["flight_itinerary_0_segments_count"] != "6" {
		t.Fatalf("expected 6 segments in itinerary 0, got %q", meta["flight_itinerary_0_segments_count"])
	}
	if _, ok := meta["flight_itinerary_1_segment_5"]; !ok {
		t.Fatal("missing last segment key of itinerary 1")
	}
}

func TestEncodeDecode_SingleBlobVariants_RoundTrip(t *testing.T) {
	tests := []struct {
		bt      domain.BookingType
		details any
	}{
		{domain.BookingHotel, domain.HotelDetails{
			HotelID: "H1", Name: "Grand Plaza", City: "Lisbon",
			CheckIn: "2026-09-20", CheckOut: "2026-09-23", Guests: 2, AddProtection: true,
		}},
		{domain.BookingCar, domain.CarDetails{
			PickUpLocation: "LIS", DropOffLocation: "OPO",
			PickUpAt: "2026-09-20T09:00", DropOffAt: "2026-09-23T18:00", Drivers: 1,
		}},
		{domain.BookingTour, domain.TourDetails{
			Destination: "Azores", Days: 5, StartDate: "2026-10-01", Travelers: 2,
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.bt), func(t *testing.T) {
			raw, _ := json.Marshal(tt.details)
			_, meta, err := checkout.Encode(encodeReq(tt.bt, raw))
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := meta[string(tt.bt)]; !ok {
				t.Fatalf("expected details under key %q", tt.bt)
			}

			d, err := checkout.Decode(meta)
			if err != nil {
				t.Fatal(err)
			}
			if string(d.Details) != string(raw) {
				t.Fatalf("details not lossless:\n got %s\nwant %s", d.Details, raw)
			}
		})
	}
}

func TestDecode_HotelAddProtectionFromBlob(t *testing.T) {
	raw, _ := json.Marshal(domain.HotelDetails{
		HotelID: "H1", Name: "Grand Plaza",
		CheckIn: "2026-09-20", CheckOut: "2026-09-23", Guests: 2, AddProtection: true,
	})
	_, meta, err := checkout.Encode(encodeReq(domain.BookingHotel, raw))
	if err != nil {
		t.Fatal(err)
	}
	d, err := checkout.Decode(meta)
	if err != nil {
		t.Fatal(err)
	}
	if !d.AddProtection {
		t.Fatal("expected AddProtection carried through the blob")
	}
}

func TestEncode_UnknownBookingType(t *testing.T) {
	req := encodeReq("cruise", json.RawMessage(`{}`))
	_, _, err := checkout.Encode(req)
	if !errors.Is(err, domain.ErrInvalidBookingType) {
		t.Fatalf("expected ErrInvalidBookingType, got %v", err)
	}
}

func TestEncode_OversizedBlobRejected(t *testing.T) {
	big, _ := json.Marshal(domain.TourDetails{
		Destination: strings.Repeat("x", 600), Days: 5, StartDate: "2026-10-01", Travelers: 2,
	})
	_, _, err := checkout.Encode(encodeReq(domain.BookingTour, big))
	if err == nil {
		t.Fatal("expected oversized details to be rejected")
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, valid, err := checkout.Encode(encodeReq(domain.BookingFlight, flightDetails(1, 2)))
	if err != nil {
		t.Fatal(err)
	}

	clone := func() map[string]string {
		m := make(map[string]string, len(valid))
		for k, v := range valid {
			m[k] = v
		}
		return m
	}

	t.Run("missing bookingType", func(t *testing.T) {
		m := clone()
		delete(m, "bookingType")
		if _, err := checkout.Decode(m); !errors.Is(err, domain.ErrMissingBookingType) {
			t.Fatalf("expected ErrMissingBookingType, got %v", err)
		}
	})

	t.Run("unknown bookingType", func(t *testing.T) {
		m := clone()
		m["bookingType"] = "cruise"
		if _, err := checkout.Decode(m); !errors.Is(err, domain.ErrInvalidBookingType) {
			t.Fatalf("expected ErrInvalidBookingType, got %v", err)
		}
	})

	t.Run("bad userId", func(t *testing.T) {
		m := clone()
		m["userId"] = "not-a-number"
		if _, err := checkout.Decode(m); !errors.Is(err, domain.ErrMetadataDecode) {
			t.Fatalf("expected ErrMetadataDecode, got %v", err)
		}
	})

	t.Run("missing segment key", func(t *testing.T) {
		m := clone()
		delete(m, "flight_itinerary_0_segment_1")
		if _, err := checkout.Decode(m); !errors.Is(err, domain.ErrMetadataDecode) {
			t.Fatalf("expected ErrMetadataDecode, got %v", err)
		}
	})

	t.Run("corrupt segment json", func(t *testing.T) {
		m := clone()
		m["flight_itinerary_0_segment_0"] = "{broken"
		if _, err := checkout.Decode(m); !errors.Is(err, domain.ErrMetadataDecode) {
			t.Fatalf("expected ErrMetadataDecode, got %v", err)
		}
	})
}

func TestCustomer_FullName(t *testing.T) {
	tests := []struct {
		c    checkout.Customer
		want string
	}{
		{checkout.Customer{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{checkout.Customer{FirstName: "Ada", MiddleName: "King", LastName: "Lovelace"}, "Ada King Lovelace"},
	}
	for _, tt := range tests {
		if got := tt.c.FullName(); got != tt.want {
			t.Fatalf("FullName() = %q, want %q", got, tt.want)
		}
	}
}
