package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/server/internal/models"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "localstorage")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StorageLocalStorage, cfg.Storage.Type)
	assert.Equal(t, LocalSQLite, cfg.Storage.LocalStore)
	assert.Equal(t, 10*time.Second, cfg.Storage.RemoteTimeout)
	assert.Equal(t, "listings.events", cfg.NATS.Subject)
	assert.Equal(t, 256, cfg.Events.QueueSize)
	assert.Equal(t, 3, cfg.Events.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Events.RetryDelay)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.SeedSamples)
	assert.Empty(t, cfg.SeedFile)
	assert.False(t, cfg.AdminEnabled())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", " Mongo ")
	t.Setenv("LOCAL_STORE", "redis")
	t.Setenv("STORAGE_REMOTE_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://estatehub.example,http://localhost:3000")
	t.Setenv("ADMIN_PASSWORD", "admin123")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SEED_SAMPLE_LISTINGS", "false")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, StorageMongo, cfg.Storage.Type)
	assert.Equal(t, LocalRedis, cfg.Storage.LocalStore)
	assert.Equal(t, 3*time.Second, cfg.Storage.RemoteTimeout)
	assert.Equal(t, []string{"https://estatehub.example", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.AdminEnabled())
	assert.False(t, cfg.SeedSamples)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown storage type", env: map[string]string{"STORAGE_TYPE": "s3"}},
		{name: "unknown local store", env: map[string]string{"STORAGE_TYPE": "localstorage", "LOCAL_STORE": "indexeddb"}},
		{name: "jsonbin without key", env: map[string]string{"STORAGE_TYPE": "jsonbin", "JSONBIN_MASTER_KEY": ""}},
		{name: "empty event queue", env: map[string]string{"STORAGE_TYPE": "localstorage", "EVENTS_QUEUE_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadSeedListings_BundledDefault(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(".."))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	listings, err := LoadSeedListings("")
	require.NoError(t, err)
	assert.Len(t, listings, 6)
	for _, l := range listings {
		assert.NoError(t, l.Validate(), "listing %d", l.ID)
	}
}

func TestLoadSeedListings(t *testing.T) {
	dir := t.TempDir()

	arrayPath := filepath.Join(dir, "array.json")
	require.NoError(t, os.WriteFile(arrayPath, []byte(`[
		{"id": 4, "title": "Residential Plot", "category": "plot", "type": "For Sale",
		 "price": "₹1.2 Cr", "bedrooms": "N/A", "bathrooms": "N/A", "area": "2000 sq ft"}
	]`), 0644))

	listings, err := LoadSeedListings(arrayPath)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(4), listings[0].ID)
	assert.Equal(t, models.CategoryPlot, listings[0].Category)
	assert.False(t, listings[0].Bedrooms.Known)

	docPath := filepath.Join(dir, "document.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"properties": [{"id": 1, "title": "Studio"}], "lastUpdated": "2024-05-01T10:00:00Z"}`), 0644))

	listings, err = LoadSeedListings(docPath)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Studio", listings[0].Title)

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0644))
	listings, err = LoadSeedListings(emptyPath)
	require.NoError(t, err)
	assert.Empty(t, listings)

	_, err = LoadSeedListings(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadSeedListings_BundledCatalogue(t *testing.T) {
	listings, err := LoadSeedListings("seed_listings.json")
	require.NoError(t, err)
	require.Len(t, listings, 6)
	for _, l := range listings {
		assert.NoError(t, l.Validate(), "listing %d", l.ID)
	}
}
