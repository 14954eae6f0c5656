// Package storage persists the listing collection in a remote document store and falls
// back to local key/value storage whenever the remote store cannot be used.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
)

// Local storage keys. The names match what earlier browser sessions wrote.
const (
	DocumentIDKey = "realEstateBinId"
	ListingsKey   = "realEstateProperties"
)

const defaultRemoteTimeout = 10 * time.Second

// DocumentStore is a key-addressed JSON document service.
type DocumentStore interface {
	Create(ctx context.Context, doc models.Document) (string, error)
	Read(ctx context.Context, id string) (*models.Document, error)
	Replace(ctx context.Context, id string, doc models.Document) error
}

// KeyValueStore is local persistent string storage.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Observer receives operation outcomes, typically for metrics.
type Observer interface {
	ObserveStorage(operation, source string)
	ObserveRemoteCall(call string, elapsed time.Duration, err error)
}

type Options struct {
	// LocalOnly skips the remote store entirely.
	LocalOnly bool
	// DocumentID pins the remote document instead of looking it up or provisioning one.
	DocumentID    string
	RemoteTimeout time.Duration
	Observer      Observer
	Now           func() time.Time
}

// Adapter reads and writes the whole listing collection. Mutations are serialized so
// overlapping read-modify-write cycles cannot drop each other's changes.
type Adapter struct {
	remote DocumentStore
	local  KeyValueStore
	logger *logrus.Logger
	opts   Options

	initOnce sync.Once
	mu       sync.RWMutex
	handle   string
	writeMu  sync.Mutex
}

func NewAdapter(remote DocumentStore, local KeyValueStore, logger *logrus.Logger, opts Options) *Adapter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	return &Adapter{
		remote: remote,
		local:  local,
		logger: logger,
		opts:   opts,
	}
}

// Initialize resolves the remote document handle. It runs once; later calls are no-ops.
// Failures never surface: the adapter switches to local-only mode instead.
func (a *Adapter) Initialize(ctx context.Context) {
	a.initOnce.Do(func() {
		a.initialize(ctx)
	})
}

func (a *Adapter) initialize(ctx context.Context) {
	if a.remote == nil || a.opts.LocalOnly {
		a.logger.Info("Remote document store disabled, using local storage")
		return
	}

	if a.opts.DocumentID != "" {
		a.setHandle(a.opts.DocumentID)
		a.logger.WithField("document_id", a.opts.DocumentID).Info("Using configured remote document")
		return
	}

	id, ok, err := a.local.Get(ctx, DocumentIDKey)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to read stored remote document id")
	}
	if ok && id != "" {
		a.setHandle(id)
		a.logger.WithField("document_id", id).Info("Using stored remote document")
		return
	}

	a.provision(ctx)
}

func (a *Adapter) provision(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, a.opts.RemoteTimeout)
	defer cancel()

	start := time.Now()
	id, err := a.remote.Create(rctx, models.Document{
		Properties:  []models.Listing{},
		LastUpdated: a.opts.Now().UTC(),
	})
	a.opts.Observer.ObserveRemoteCall("create", time.Since(start), err)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to provision remote document, falling back to local storage")
		a.setHandle("")
		return
	}

	a.setHandle(id)
	if err := a.local.Set(ctx, DocumentIDKey, id); err != nil {
		a.logger.WithError(err).Warn("Failed to remember remote document id")
	}
	a.logger.WithField("document_id", id).Info("Provisioned remote document")
}

func (a *Adapter) setHandle(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handle = id
}

// Handle returns the remote document id, empty in local-only mode.
func (a *Adapter) Handle() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handle
}

// Mode returns "remote" or "local".
func (a *Adapter) Mode() string {
	if a.Handle() == "" {
		return SourceLocal.String()
	}
	return SourceRemote.String()
}

// FetchAll returns the whole collection, from the remote document when possible.
func (a *Adapter) FetchAll(ctx context.Context) (res Result[[]models.Listing]) {
	a.Initialize(ctx)
	defer a.observe("fetch_all", &res.Source)
	return a.fetchAll(ctx)
}

// PersistAll overwrites the whole collection.
func (a *Adapter) PersistAll(ctx context.Context, listings []models.Listing) (res Result[int]) {
	a.Initialize(ctx)
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	defer a.observe("persist_all", &res.Source)
	return a.persistAll(ctx, listings)
}

// Create appends a listing. A zero or already used id is replaced by one derived from
// the current time that is unique within the collection.
func (a *Adapter) Create(ctx context.Context, listing models.Listing) (res Result[models.Listing]) {
	a.Initialize(ctx)
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	defer a.observe("create", &res.Source)

	current := a.fetchAll(ctx)
	if !current.OK() {
		return Failed[models.Listing](current.Err)
	}

	listings := current.Value
	listing.ID = a.nextID(listing.ID, listings)
	listings = append(listings, listing)

	return Carry(a.persistAll(ctx, listings), listing)
}

// Update merges patch over the listing with the given id.
func (a *Adapter) Update(ctx context.Context, id int64, patch models.ListingPatch) (res Result[models.Listing]) {
	a.Initialize(ctx)
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	defer a.observe("update", &res.Source)

	current := a.fetchAll(ctx)
	if !current.OK() {
		return Failed[models.Listing](current.Err)
	}

	listings := current.Value
	idx := indexOf(listings, id)
	if idx < 0 {
		return Failed[models.Listing](fmt.Errorf("%w: id %d", models.ErrListingNotFound, id))
	}
	patch.Apply(&listings[idx])

	return Carry(a.persistAll(ctx, listings), listings[idx])
}

// Delete removes every listing with the given id and returns how many were removed.
func (a *Adapter) Delete(ctx context.Context, id int64) (res Result[int]) {
	a.Initialize(ctx)
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	defer a.observe("delete", &res.Source)

	current := a.fetchAll(ctx)
	if !current.OK() {
		return Failed[int](current.Err)
	}

	kept := make([]models.Listing, 0, len(current.Value))
	for _, l := range current.Value {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	removed := len(current.Value) - len(kept)
	if removed == 0 {
		return Failed[int](fmt.Errorf("%w: id %d", models.ErrListingNotFound, id))
	}

	return Carry(a.persistAll(ctx, kept), removed)
}

func (a *Adapter) fetchAll(ctx context.Context) Result[[]models.Listing] {
	handle := a.Handle()
	if handle == "" {
		return a.readLocal(ctx)
	}

	rctx, cancel := context.WithTimeout(ctx, a.opts.RemoteTimeout)
	defer cancel()

	start := time.Now()
	doc, err := a.remote.Read(rctx, handle)
	a.opts.Observer.ObserveRemoteCall("read", time.Since(start), err)
	if errors.Is(err, models.ErrMalformedDocument) {
		a.logger.WithError(err).WithField("document_id", handle).Error("Remote listings document cannot be read, refusing to use it")
		return Failed[[]models.Listing](err)
	}
	if err != nil {
		a.logger.WithError(err).WithField("document_id", handle).Warn("Failed to fetch listings from remote store, reading local storage")
		return a.readLocal(ctx)
	}

	listings := []models.Listing{}
	if doc != nil && doc.Properties != nil {
		listings = doc.Properties
	}
	return remote(listings)
}

func (a *Adapter) persistAll(ctx context.Context, listings []models.Listing) Result[int] {
	if listings == nil {
		listings = []models.Listing{}
	}

	handle := a.Handle()
	if handle == "" {
		return a.writeLocal(ctx, listings)
	}

	rctx, cancel := context.WithTimeout(ctx, a.opts.RemoteTimeout)
	defer cancel()

	start := time.Now()
	err := a.remote.Replace(rctx, handle, models.Document{
		Properties:  listings,
		LastUpdated: a.opts.Now().UTC(),
	})
	a.opts.Observer.ObserveRemoteCall("replace", time.Since(start), err)
	if err != nil {
		a.logger.WithError(err).WithField("document_id", handle).Warn("Failed to save listings to remote store, writing local storage")
		return a.writeLocal(ctx, listings)
	}

	a.logger.WithField("count", len(listings)).Debug("Listings saved to remote store")
	return remote(len(listings))
}

func (a *Adapter) readLocal(ctx context.Context) Result[[]models.Listing] {
	raw, ok, err := a.local.Get(ctx, ListingsKey)
	if err != nil {
		a.logger.WithError(err).Error("Failed to read listings from local storage")
		return Failed[[]models.Listing](fmt.Errorf("read local listings: %w", err))
	}
	if !ok || raw == "" {
		return local([]models.Listing{})
	}

	var listings []models.Listing
	if err := json.Unmarshal([]byte(raw), &listings); err != nil {
		a.logger.WithError(err).Error("Local listings are not valid JSON")
		return Failed[[]models.Listing](fmt.Errorf("decode local listings: %w", err))
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return local(listings)
}

func (a *Adapter) writeLocal(ctx context.Context, listings []models.Listing) Result[int] {
	data, err := json.Marshal(listings)
	if err != nil {
		return Failed[int](fmt.Errorf("encode listings: %w", err))
	}
	if err := a.local.Set(ctx, ListingsKey, string(data)); err != nil {
		a.logger.WithError(err).Error("Failed to write listings to local storage")
		return Failed[int](fmt.Errorf("write local listings: %w", err))
	}
	return local(len(listings))
}

func (a *Adapter) nextID(requested int64, listings []models.Listing) int64 {
	var maxID int64
	taken := false
	for _, l := range listings {
		if l.ID > maxID {
			maxID = l.ID
		}
		if requested != 0 && l.ID == requested {
			taken = true
		}
	}
	if requested != 0 && !taken {
		return requested
	}

	id := a.opts.Now().UnixMilli()
	if id <= maxID {
		id = maxID + 1
	}
	return id
}

func (a *Adapter) observe(operation string, source *Source) {
	a.opts.Observer.ObserveStorage(operation, source.String())
}

func indexOf(listings []models.Listing, id int64) int {
	for i := range listings {
		if listings[i].ID == id {
			return i
		}
	}
	return -1
}

type noopObserver struct{}

func (noopObserver) ObserveStorage(string, string)                   {}
func (noopObserver) ObserveRemoteCall(string, time.Duration, error) {}
