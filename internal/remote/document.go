// Package remote implements the remote document stores that hold the listing collection.
package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
)

// decodeDocument reads a stored record. A record with no properties list is an empty
// collection. A properties list holding an unreadable listing is ErrMalformedDocument,
// so the caller never rewrites the document from a partial read.
func decodeDocument(record json.RawMessage, logger *logrus.Logger) (*models.Document, error) {
	doc := &models.Document{Properties: []models.Listing{}}
	if len(record) == 0 || string(record) == "null" {
		return doc, nil
	}

	var raw struct {
		Properties  json.RawMessage `json:"properties"`
		LastUpdated string          `json:"lastUpdated"`
	}
	if err := json.Unmarshal(record, &raw); err != nil {
		logger.WithError(err).Warn("Remote record is not an object, treating it as empty")
		return doc, nil
	}

	if t, err := time.Parse(time.RFC3339, raw.LastUpdated); err == nil {
		doc.LastUpdated = t
	}

	if len(raw.Properties) == 0 || string(raw.Properties) == "null" {
		return doc, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw.Properties, &items); err != nil {
		logger.WithError(err).Warn("Remote properties field is not a list, treating it as empty")
		return doc, nil
	}
	listings := make([]models.Listing, 0, len(items))
	for i, item := range items {
		var l models.Listing
		if err := json.Unmarshal(item, &l); err != nil {
			return nil, fmt.Errorf("%w: listing %d: %v", models.ErrMalformedDocument, i, err)
		}
		listings = append(listings, l)
	}
	doc.Properties = listings
	return doc, nil
}

func defaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	return logger
}
