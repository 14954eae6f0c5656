package models

import (
	"fmt"
	"strings"
	"time"
)

// ListingPatch holds a partial update. Only non-nil fields are merged.
type ListingPatch struct {
	Title         *string    `json:"title,omitempty"`
	Category      *Category  `json:"category,omitempty"`
	Type          *OfferType `json:"type,omitempty"`
	Price         *string    `json:"price,omitempty"`
	Location      *string    `json:"location,omitempty"`
	City          *string    `json:"city,omitempty"`
	State         *string    `json:"state,omitempty"`
	Pincode       *string    `json:"pincode,omitempty"`
	Area          *string    `json:"area,omitempty"`
	Bedrooms      *RoomCount `json:"bedrooms,omitempty"`
	Bathrooms     *RoomCount `json:"bathrooms,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Amenities     *string    `json:"amenities,omitempty"`
	OwnerName     *string    `json:"ownerName,omitempty"`
	OwnerPhone    *string    `json:"ownerPhone,omitempty"`
	OwnerEmail    *string    `json:"ownerEmail,omitempty"`
	Image         *string    `json:"image,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	ActivatedAt   *time.Time `json:"activatedAt,omitempty"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

// Apply merges the set fields of p over l. The id and dateAdded are never touched.
func (p ListingPatch) Apply(l *Listing) {
	setString(&l.Title, p.Title)
	setString(&l.Price, p.Price)
	setString(&l.Location, p.Location)
	setString(&l.City, p.City)
	setString(&l.State, p.State)
	setString(&l.Pincode, p.Pincode)
	setString(&l.Area, p.Area)
	setString(&l.Description, p.Description)
	setString(&l.Amenities, p.Amenities)
	setString(&l.OwnerName, p.OwnerName)
	setString(&l.OwnerPhone, p.OwnerPhone)
	setString(&l.OwnerEmail, p.OwnerEmail)
	setString(&l.Image, p.Image)

	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.Bedrooms != nil {
		l.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		l.Bathrooms = *p.Bathrooms
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.ActivatedAt != nil {
		t := *p.ActivatedAt
		l.ActivatedAt = &t
	}
	if p.DeactivatedAt != nil {
		t := *p.DeactivatedAt
		l.DeactivatedAt = &t
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// StatusPatch builds the patch used by activate/deactivate transitions.
func StatusPatch(status Status, at time.Time) ListingPatch {
	p := ListingPatch{Status: &status}
	if status == StatusInactive {
		p.DeactivatedAt = &at
	} else {
		p.ActivatedAt = &at
	}
	return p
}

// Validate rejects patches that would blank a required field or set an unknown enum value.
func (p ListingPatch) Validate() error {
	required := []struct {
		field string
		value *string
	}{
		{"title", p.Title},
		{"price", p.Price},
		{"location", p.Location},
		{"area", p.Area},
	}
	for _, r := range required {
		if r.value != nil && strings.TrimSpace(*r.value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidListing, r.field)
		}
	}

	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidListing, *p.Category)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown offer type %q", ErrInvalidListing, *p.Type)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListing, *p.Status)
	}
	return nil
}
