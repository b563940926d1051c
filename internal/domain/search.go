package domain

// SearchParams is the single logical search fanned out to every eligible
// provider. The url tags drive the outbound query-string encoding; providers
// ignore fields that do not apply to their inventory type.
type SearchParams struct {
	Origin          string `json:"origin,omitempty" url:"origin,omitempty"`
	Destination     string `json:"destination,omitempty" url:"destination,omitempty"`
	PickUpLocation  string `json:"pickUpLocation,omitempty" url:"pickUpLocation,omitempty"`
	DropOffLocation string `json:"dropOffLocation,omitempty" url:"dropOffLocation,omitempty"`
	DepartureDate   string `json:"departureDate,omitempty" url:"departureDate,omitempty"`
	ReturnDate      string `json:"returnDate,omitempty" url:"returnDate,omitempty"`
	CheckIn         string `json:"checkIn,omitempty" url:"checkIn,omitempty"`
	CheckOut        string `json:"checkOut,omitempty" url:"checkOut,omitempty"`
	Adults          int    `json:"adults,omitempty" url:"adults,omitempty"`
	Children        int    `json:"children,omitempty" url:"children,omitempty"`
	Drivers         int    `json:"drivers,omitempty" url:"drivers,omitempty"`
	Rooms           int    `json:"rooms,omitempty" url:"rooms,omitempty"`
	Currency        string `json:"currency,omitempty" url:"currency,omitempty"`
}
