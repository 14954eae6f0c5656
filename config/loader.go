package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"estatehub/server/internal/models"
)

// DefaultSeedPath is the bundled sample catalogue.
const DefaultSeedPath = "config/seed_listings.json"

// LoadSeedListings reads sample listings from a JSON file holding either a bare array
// or a stored document ({"properties": [...]}).
func LoadSeedListings(path string) ([]models.Listing, error) {
	if path == "" {
		path = DefaultSeedPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Listing{}, nil
	}

	if data[0] == '[' {
		var listings []models.Listing
		if err := json.Unmarshal(data, &listings); err != nil {
			return nil, fmt.Errorf("failed to parse seed listings: %w", err)
		}
		return listings, nil
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}
	if doc.Properties == nil {
		doc.Properties = []models.Listing{}
	}
	return doc.Properties, nil
}
