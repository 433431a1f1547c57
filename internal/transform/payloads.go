package transform

import (
	"bytes"
	"encoding/json"
)

// Typed shapes for the raw payloads each endpoint emits. Decoding into
// these up front replaces the scattered defensive field access the first
// migration scripts did on loose maps.

// looseNumber accepts a numeric field that the API emits either bare or
// quoted; PMPro does both depending on the plugin version.
type looseNumber string

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if string(data) == "null" {
		data = nil
	}
	*n = looseNumber(data)
	return nil
}

func (n looseNumber) String() string { return string(n) }

type WCBilling struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type WCCustomer struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Username    string     `json:"username"`
	DateCreated string     `json:"date_created"`
	Billing     *WCBilling `json:"billing"`
}

type WCOrder struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	Total         string     `json:"total"`
	DiscountTotal string     `json:"discount_total"`
	Billing       *WCBilling `json:"billing"`
	DateCreated   string     `json:"date_created"`
}

type WCLineItem struct {
	Name string `json:"name"`
}

type WCSubscription struct {
	ID              int64        `json:"id"`
	Status          string       `json:"status"`
	Billing         *WCBilling   `json:"billing"`
	DateCreated     string       `json:"date_created"`
	NextPaymentDate string       `json:"next_payment_date"`
	LineItems       []WCLineItem `json:"line_items"`
}

type WCProduct struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Price            string `json:"price"`
	Status           string `json:"status"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
}

type PMProLevel struct {
	ID             looseNumber `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	InitialPayment looseNumber `json:"initial_payment"`
	CycleNumber    looseNumber `json:"cycle_number"`
}

type TribeCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type tribeVenue struct {
	Venue   string `json:"venue"`
	Address string `json:"address"`
}

type tribeImage struct {
	URL string `json:"url"`
}

type TribeEvent struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	IsVirtual    bool            `json:"is_virtual"`
	UTCStartDate string          `json:"utc_start_date"`
	StartDate    string          `json:"start_date"`
	UTCEndDate   string          `json:"utc_end_date"`
	EndDate      string          `json:"end_date"`
	Venue        json.RawMessage `json:"venue"`
	Image        json.RawMessage `json:"image"`
	Categories   []TribeCategory `json:"categories"`
}

// VenueFields tolerates the two shapes the tribe API uses for "venue":
// an object, or an empty array when the event has none.
func (e TribeEvent) VenueFields() (name, address string) {
	if len(e.Venue) == 0 {
		return "", ""
	}
	var v tribeVenue
	if err := json.Unmarshal(e.Venue, &v); err != nil {
		return "", ""
	}
	return v.Venue, v.Address
}

// ImageURL tolerates "image" being an object or the literal false.
func (e TribeEvent) ImageURL() *string {
	if len(e.Image) == 0 {
		return nil
	}
	var img tribeImage
	if err := json.Unmarshal(e.Image, &img); err != nil || img.URL == "" {
		return nil
	}
	return &img.URL
}
