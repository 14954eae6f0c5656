package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"estatehub/server/internal/models"
)

var errUnreachable = errors.New("remote store unreachable")

// memDocumentStore keeps documents as JSON so callers never share memory with it.
type memDocumentStore struct {
	mu          sync.Mutex
	docs        map[string][]byte
	seq         int
	creates     int
	failCreate  bool
	failRead    bool
	failReplace bool
	readDelay   time.Duration
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{docs: make(map[string][]byte)}
}

func (s *memDocumentStore) Create(ctx context.Context, doc models.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.failCreate {
		return "", errUnreachable
	}
	s.seq++
	id := fmt.Sprintf("doc-%d", s.seq)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	s.docs[id] = data
	return id, nil
}

func (s *memDocumentStore) Read(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	delay, fail := s.readDelay, s.failRead
	data, ok := s.docs[id]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errUnreachable
	}
	if !ok {
		return nil, fmt.Errorf("document %s: not found", id)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *memDocumentStore) Replace(ctx context.Context, id string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReplace {
		return errUnreachable
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[id] = data
	return nil
}

func (s *memDocumentStore) setFailures(read, replace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = read
	s.failReplace = replace
}

type memKV struct {
	mu      sync.Mutex
	values  map[string]string
	failSet error
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value
	return nil
}
