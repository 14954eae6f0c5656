package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"estatehub/server/internal/pricing"
)

type Category string

const (
	CategoryFlat  Category = "flat"
	CategoryHouse Category = "house"
	CategoryPlot  Category = "plot"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFlat, CategoryHouse, CategoryPlot:
		return true
	}
	return false
}

// OfferType is stored with its display spelling so existing documents stay readable.
type OfferType string

const (
	OfferForSale OfferType = "For Sale"
	OfferForRent OfferType = "For Rent"
)

func (t OfferType) Valid() bool {
	return t == OfferForSale || t == OfferForRent
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Listing is one real-estate property record.
type Listing struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	Type          OfferType  `json:"type"`
	Price         string     `json:"price"`
	Location      string     `json:"location"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Pincode       string     `json:"pincode,omitempty"`
	Area          string     `json:"area"`
	Bedrooms      RoomCount  `json:"bedrooms"`
	Bathrooms     RoomCount  `json:"bathrooms"`
	Description   string     `json:"description,omitempty"`
	Amenities     string     `json:"amenities,omitempty"`
	OwnerName     string     `json:"ownerName,omitempty"`
	OwnerPhone    string     `json:"ownerPhone,omitempty"`
	OwnerEmail    string     `json:"ownerEmail,omitempty"`
	Image         string     `json:"image"`
	Status        Status     `json:"status,omitempty"`
	DateAdded     *time.Time `json:"dateAdded,omitempty"`
	ActivatedAt   *time.Time `json:"activatedAt,omitempty"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`

	// PriceValue is derived from Price when a snapshot is loaded and is never persisted.
	PriceValue pricing.Money `json:"-"`
}

// IsInactive treats a missing status as active, matching documents written before
// statuses existed.
func (l *Listing) IsInactive() bool {
	return l.Status == StatusInactive
}

// Validate checks the fields an admin must fill in before a listing can be published.
func (l *Listing) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"title", l.Title},
		{"category", string(l.Category)},
		{"type", string(l.Type)},
		{"price", l.Price},
		{"location", l.Location},
		{"area", l.Area},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidListing, r.field)
		}
	}

	if !l.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidListing, l.Category)
	}
	if !l.Type.Valid() {
		return fmt.Errorf("%w: unknown offer type %q", ErrInvalidListing, l.Type)
	}
	if l.Status != "" && !l.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListing, l.Status)
	}
	return nil
}

// RoomCount is a bedroom or bathroom count. Plots carry no count and serialize as "N/A".
// Text that is not a whole number ("2.5", "3+") is kept verbatim in Raw.
type RoomCount struct {
	Value int
	Known bool
	Raw   string
}

func Rooms(n int) RoomCount {
	return RoomCount{Value: n, Known: true}
}

func (r RoomCount) String() string {
	if r.Raw != "" {
		return r.Raw
	}
	if !r.Known {
		return "N/A"
	}
	return strconv.Itoa(r.Value)
}

func (r RoomCount) MarshalJSON() ([]byte, error) {
	if r.Raw != "" {
		return json.Marshal(r.Raw)
	}
	if !r.Known {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.Itoa(r.Value)), nil
}

// UnmarshalJSON accepts a number, any string (form posts) or null. Only objects,
// arrays and booleans are rejected.
func (r *RoomCount) UnmarshalJSON(data []byte) error {
	*r = RoomCount{}
	if string(data) == "null" {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		r.set(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("room count must be a number or string: %w", err)
	}
	r.set(s)
	return nil
}

func (r *RoomCount) set(s string) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		return
	}
	if v, err := strconv.Atoi(s); err == nil {
		*r = Rooms(v)
		return
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		*r = Rooms(int(f))
		return
	}
	r.Raw = s
}

// displayText is a persisted display field that older documents may hold as a JSON
// number ("price": 4500000).
type displayText string

func (d *displayText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = displayText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected text or number: %w", err)
	}
	*d = displayText(n.String())
	return nil
}

// UnmarshalJSON reads the free-text fields whether they were stored as strings or
// numbers.
func (l *Listing) UnmarshalJSON(data []byte) error {
	type plain Listing
	aux := struct {
		*plain
		Price      displayText `json:"price"`
		Area       displayText `json:"area"`
		Pincode    displayText `json:"pincode"`
		OwnerPhone displayText `json:"ownerPhone"`
	}{plain: (*plain)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.Price = string(aux.Price)
	l.Area = string(aux.Area)
	l.Pincode = string(aux.Pincode)
	l.OwnerPhone = string(aux.OwnerPhone)
	return nil
}

// Document is the body stored in the remote document store.
type Document struct {
	Properties  []Listing `json:"properties"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Filters narrows a catalog search. Zero values mean "any".
type Filters struct {
	Category Category  `form:"category" json:"category,omitempty"`
	Type     OfferType `form:"type" json:"type,omitempty"`
	MinPrice *float64  `form:"minPrice" json:"minPrice,omitempty"`
	MaxPrice *float64  `form:"maxPrice" json:"maxPrice,omitempty"`
}

// HasPriceRange reports whether either price bound is set.
func (f Filters) HasPriceRange() bool {
	return f.MinPrice != nil || f.MaxPrice != nil
}

type ListingStats struct {
	TotalListings int `json:"total_listings"`
	ForSale       int `json:"for_sale"`
	ForRent       int `json:"for_rent"`
	Plots         int `json:"plots"`
	Active        int `json:"active"`
	Inactive      int `json:"inactive"`
}
