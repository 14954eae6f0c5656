package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/server/internal/models"
	remotestore "estatehub/server/internal/remote"
)

// binServer serves a single JSONBin record and counts writes to it.
type binServer struct {
	mu     sync.Mutex
	record json.RawMessage
	puts   int
}

func (b *binServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path != "/b/bin-1" {
		http.Error(w, `{"message":"bin not found"}`, http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"record": b.record})
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.record = body
		b.puts++
		_, _ = w.Write([]byte(`{"record":{}}`))
	default:
		http.Error(w, `{"message":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (b *binServer) snapshot() (json.RawMessage, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record, b.puts
}

func newBinAdapter(t *testing.T, record string) (*Adapter, *binServer) {
	bin := &binServer{record: json.RawMessage(record)}
	srv := httptest.NewServer(bin)
	t.Cleanup(srv.Close)

	client := remotestore.NewJSONBinClient(srv.URL+"/b", "secret", quietLogger())
	return newTestAdapter(client, newMemKV(), Options{DocumentID: "bin-1"}), bin
}

func TestAdapter_CreateKeepsHandEditedRecords(t *testing.T) {
	a, bin := newBinAdapter(t, `{
		"properties": [
			{"id": 1, "title": "Sea View Flat", "category": "flat", "type": "For Sale", "price": "₹2.5 Cr",
			 "location": "Bandra West", "area": "1500 sq ft", "bedrooms": 3, "bathrooms": "2.5", "image": "🏢"},
			{"id": 2, "title": "Garden House", "category": "house", "type": "For Sale", "price": 4500000,
			 "location": "Kothrud", "area": "2200 sq ft", "bedrooms": "3+", "bathrooms": 2, "image": "🏡"}
		],
		"lastUpdated": "2024-05-01T10:00:00Z"
	}`)

	fetched := a.FetchAll(context.Background())
	require.True(t, fetched.OK())
	assert.Equal(t, SourceRemote, fetched.Source)
	require.Len(t, fetched.Value, 2)
	assert.Equal(t, "2.5", fetched.Value[0].Bathrooms.String())
	assert.Equal(t, "4500000", fetched.Value[1].Price)

	created := a.Create(context.Background(), testListings()[0])
	require.True(t, created.OK())
	assert.Equal(t, SourceRemote, created.Source)

	record, puts := bin.snapshot()
	assert.Equal(t, 1, puts)

	var doc struct {
		Properties []map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(record, &doc))
	require.Len(t, doc.Properties, 3)
	assert.Equal(t, "Sea View Flat", doc.Properties[0]["title"])
	assert.Equal(t, "2.5", doc.Properties[0]["bathrooms"])
	assert.Equal(t, "Garden House", doc.Properties[1]["title"])
	assert.Equal(t, "4500000", doc.Properties[1]["price"])
	assert.Equal(t, "3+", doc.Properties[1]["bedrooms"])
}

func TestAdapter_UnreadableRemoteRecordIsNeverOverwritten(t *testing.T) {
	const record = `{"properties":[{"id":"abc","title":"Broken"},{"id":2,"title":"Fine"}]}`
	a, bin := newBinAdapter(t, record)

	fetched := a.FetchAll(context.Background())
	assert.False(t, fetched.OK())
	assert.Equal(t, SourceFailed, fetched.Source)
	assert.ErrorIs(t, fetched.Err, models.ErrMalformedDocument)

	created := a.Create(context.Background(), testListings()[0])
	assert.False(t, created.OK())
	assert.ErrorIs(t, created.Err, models.ErrMalformedDocument)

	deleted := a.Delete(context.Background(), 2)
	assert.False(t, deleted.OK())

	stored, puts := bin.snapshot()
	assert.Zero(t, puts)
	assert.JSONEq(t, record, string(stored))
}
