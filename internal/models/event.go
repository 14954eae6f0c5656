package models

import "time"

type EventType string

const (
	EventCreated     EventType = "listing.created"
	EventUpdated     EventType = "listing.updated"
	EventActivated   EventType = "listing.activated"
	EventDeactivated EventType = "listing.deactivated"
	EventDeleted     EventType = "listing.deleted"
	EventSeeded      EventType = "listing.seeded"
)

// ListingEvent describes a change to the catalog after it has been persisted.
type ListingEvent struct {
	Type       EventType `json:"type"`
	ListingID  int64     `json:"listing_id,omitempty"`
	Listing    *Listing  `json:"listing,omitempty"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}
