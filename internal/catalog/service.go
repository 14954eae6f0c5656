// Package catalog owns the listing collection and implements the listing-level
// operations used by the HTTP API: active-only views, status transitions, search,
// dashboard statistics and seeding.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
	"estatehub/server/internal/pricing"
	"estatehub/server/internal/storage"
)

const defaultImage = "🏢"

// Backend persists the whole collection. *storage.Adapter implements it.
type Backend interface {
	FetchAll(ctx context.Context) storage.Result[[]models.Listing]
	PersistAll(ctx context.Context, listings []models.Listing) storage.Result[int]
	Create(ctx context.Context, listing models.Listing) storage.Result[models.Listing]
	Update(ctx context.Context, id int64, patch models.ListingPatch) storage.Result[models.Listing]
	Delete(ctx context.Context, id int64) storage.Result[int]
	Mode() string
}

// EventSink receives an event after every successful mutation.
type EventSink interface {
	Push(event models.ListingEvent) error
}

type Service struct {
	backend Backend
	events  EventSink
	logger  *logrus.Logger
	now     func() time.Time
}

// New creates a catalog service. events and now may be nil.
func New(backend Backend, events EventSink, logger *logrus.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		backend: backend,
		events:  events,
		logger:  logger,
		now:     now,
	}
}

// Mode reports whether the backend is remote-backed or local-only.
func (s *Service) Mode() string {
	return s.backend.Mode()
}

// FetchAll returns every listing regardless of status.
func (s *Service) FetchAll(ctx context.Context) storage.Result[[]models.Listing] {
	res := s.backend.FetchAll(ctx)
	if res.OK() {
		ingest(res.Value)
	}
	return res
}

// ActiveListings drops inactive listings and keeps the stored order.
func (s *Service) ActiveListings(ctx context.Context) storage.Result[[]models.Listing] {
	res := s.FetchAll(ctx)
	if !res.OK() {
		return res
	}
	return storage.Carry(res, keep(res.Value, func(l *models.Listing) bool {
		return !l.IsInactive()
	}))
}

// ListingsByStatus returns the listings whose status is exactly status.
func (s *Service) ListingsByStatus(ctx context.Context, status models.Status) storage.Result[[]models.Listing] {
	res := s.FetchAll(ctx)
	if !res.OK() {
		return res
	}
	return storage.Carry(res, keep(res.Value, func(l *models.Listing) bool {
		return l.Status == status
	}))
}

// Get returns the listing with the given id, whatever its status.
func (s *Service) Get(ctx context.Context, id int64) storage.Result[models.Listing] {
	res := s.FetchAll(ctx)
	if !res.OK() {
		return storage.Failed[models.Listing](res.Err)
	}
	for _, l := range res.Value {
		if l.ID == id {
			return storage.Carry(res, l)
		}
	}
	return storage.Failed[models.Listing](fmt.Errorf("%w: id %d", models.ErrListingNotFound, id))
}

// Search matches active listings against a free-text query and structured filters.
func (s *Service) Search(ctx context.Context, query string, filters models.Filters) storage.Result[[]models.Listing] {
	res := s.ActiveListings(ctx)
	if !res.OK() {
		return res
	}

	q := strings.ToLower(query)
	return storage.Carry(res, keep(res.Value, func(l *models.Listing) bool {
		return matchesText(l, q) && matchesFilters(l, filters)
	}))
}

func matchesText(l *models.Listing, q string) bool {
	if q == "" {
		return true
	}
	for _, field := range []string{l.Title, l.Location, l.City, string(l.Type)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func matchesFilters(l *models.Listing, f models.Filters) bool {
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if !f.HasPriceRange() {
		return true
	}
	// Prices that cannot be read stay visible.
	if !l.PriceValue.Valid {
		return true
	}
	return l.PriceValue.InRange(f.MinPrice, f.MaxPrice)
}

// Create validates a draft listing, fills in defaults and persists it.
func (s *Service) Create(ctx context.Context, draft models.Listing) storage.Result[models.Listing] {
	if err := draft.Validate(); err != nil {
		return storage.Failed[models.Listing](err)
	}

	now := s.now().UTC()
	draft.DateAdded = &now
	if draft.Status == "" {
		draft.Status = models.StatusActive
	}
	if strings.TrimSpace(draft.Image) == "" {
		draft.Image = defaultImage
	}

	res := s.backend.Create(ctx, draft)
	if !res.OK() {
		return res
	}
	res.Value.PriceValue = pricing.Parse(res.Value.Price)
	s.emit(models.EventCreated, res.Value.ID, &res.Value, res.Source)
	return res
}

// Update merges patch over the listing with the given id.
func (s *Service) Update(ctx context.Context, id int64, patch models.ListingPatch) storage.Result[models.Listing] {
	if err := patch.Validate(); err != nil {
		return storage.Failed[models.Listing](err)
	}
	return s.update(ctx, id, patch, models.EventUpdated)
}

// Activate marks the listing active and stamps activatedAt.
func (s *Service) Activate(ctx context.Context, id int64) storage.Result[models.Listing] {
	return s.update(ctx, id, models.StatusPatch(models.StatusActive, s.now().UTC()), models.EventActivated)
}

// Deactivate hides the listing from the public catalog and stamps deactivatedAt.
func (s *Service) Deactivate(ctx context.Context, id int64) storage.Result[models.Listing] {
	return s.update(ctx, id, models.StatusPatch(models.StatusInactive, s.now().UTC()), models.EventDeactivated)
}

func (s *Service) update(ctx context.Context, id int64, patch models.ListingPatch, event models.EventType) storage.Result[models.Listing] {
	res := s.backend.Update(ctx, id, patch)
	if !res.OK() {
		return res
	}
	res.Value.PriceValue = pricing.Parse(res.Value.Price)
	s.emit(event, id, &res.Value, res.Source)
	return res
}

// Delete permanently removes the listing with the given id.
func (s *Service) Delete(ctx context.Context, id int64) storage.Result[int] {
	res := s.backend.Delete(ctx, id)
	if !res.OK() {
		return res
	}
	s.emit(models.EventDeleted, id, nil, res.Source)
	return res
}

// Stats counts listings for the admin dashboard.
func (s *Service) Stats(ctx context.Context) storage.Result[models.ListingStats] {
	res := s.FetchAll(ctx)
	if !res.OK() {
		return storage.Failed[models.ListingStats](res.Err)
	}

	var stats models.ListingStats
	for i := range res.Value {
		l := &res.Value[i]
		stats.TotalListings++
		switch l.Type {
		case models.OfferForSale:
			stats.ForSale++
		case models.OfferForRent:
			stats.ForRent++
		}
		if l.Category == models.CategoryPlot {
			stats.Plots++
		}
		if l.IsInactive() {
			stats.Inactive++
		} else {
			stats.Active++
		}
	}
	return storage.Carry(res, stats)
}

// Seed stores listings only when the collection is empty and returns how many were
// written. A non-empty collection is left alone.
func (s *Service) Seed(ctx context.Context, listings []models.Listing) storage.Result[int] {
	current := s.backend.FetchAll(ctx)
	if !current.OK() {
		return storage.Failed[int](current.Err)
	}
	if len(current.Value) > 0 || len(listings) == 0 {
		return storage.Carry(current, 0)
	}

	now := s.now().UTC()
	seeded := make([]models.Listing, 0, len(listings))
	for i, l := range listings {
		if err := l.Validate(); err != nil {
			return storage.Failed[int](fmt.Errorf("seed listing %d: %w", i, err))
		}
		if l.ID == 0 {
			l.ID = now.UnixMilli() + int64(i)
		}
		if l.Status == "" {
			l.Status = models.StatusActive
		}
		if strings.TrimSpace(l.Image) == "" {
			l.Image = defaultImage
		}
		if l.DateAdded == nil {
			added := now
			l.DateAdded = &added
		}
		seeded = append(seeded, l)
	}

	res := s.backend.PersistAll(ctx, seeded)
	if !res.OK() {
		return res
	}
	s.logger.WithFields(logrus.Fields{
		"count":  res.Value,
		"source": res.Source.String(),
	}).Info("Seeded empty listing collection")
	s.emit(models.EventSeeded, 0, nil, res.Source)
	return res
}

func (s *Service) emit(eventType models.EventType, id int64, listing *models.Listing, source storage.Source) {
	if s.events == nil {
		return
	}

	event := models.ListingEvent{
		Type:       eventType,
		ListingID:  id,
		Source:     source.String(),
		OccurredAt: s.now().UTC(),
	}
	if listing != nil {
		snapshot := *listing
		event.Listing = &snapshot
	}

	if err := s.events.Push(event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"listing_id": id,
		}).Warn("Failed to queue listing event")
	}
}

// ingest derives the in-memory price of every listing in the snapshot.
func ingest(listings []models.Listing) {
	for i := range listings {
		listings[i].PriceValue = pricing.Parse(listings[i].Price)
	}
}

func keep(listings []models.Listing, pred func(*models.Listing) bool) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if pred(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}
