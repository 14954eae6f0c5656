package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
)

const DefaultJSONBinURL = "https://api.jsonbin.io/v3/b"

var ErrUnexpectedStatus = errors.New("unexpected response status")

// JSONBinClient stores listing documents as JSONBin bins.
type JSONBinClient struct {
	logger  *logrus.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewJSONBinClient(baseURL, apiKey string, logger *logrus.Logger) *JSONBinClient {
	if baseURL == "" {
		baseURL = DefaultJSONBinURL
	}
	if logger == nil {
		logger = defaultLogger()
	}
	return &JSONBinClient{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type binMetadata struct {
	ID string `json:"id"`
}

type binResponse struct {
	Record   json.RawMessage `json:"record"`
	Metadata binMetadata     `json:"metadata"`
}

// Create provisions a new bin holding doc and returns its id.
func (c *JSONBinClient) Create(ctx context.Context, doc models.Document) (string, error) {
	var resp binResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL, doc, &resp); err != nil {
		return "", fmt.Errorf("failed to create bin: %w", err)
	}
	if resp.Metadata.ID == "" {
		return "", fmt.Errorf("failed to create bin: response carried no id")
	}

	c.logger.WithField("document_id", resp.Metadata.ID).Info("Created new JSONBin")
	return resp.Metadata.ID, nil
}

// Read fetches the bin's current record.
func (c *JSONBinClient) Read(ctx context.Context, id string) (*models.Document, error) {
	var resp binResponse
	if err := c.do(ctx, http.MethodGet, c.binURL(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to read bin %s: %w", id, err)
	}
	doc, err := decodeDocument(resp.Record, c.logger)
	if err != nil {
		return nil, fmt.Errorf("bin %s: %w", id, err)
	}
	return doc, nil
}

// Replace overwrites the bin's record with doc.
func (c *JSONBinClient) Replace(ctx context.Context, id string, doc models.Document) error {
	if err := c.do(ctx, http.MethodPut, c.binURL(id), doc, nil); err != nil {
		return fmt.Errorf("failed to update bin %s: %w", id, err)
	}
	return nil
}

func (c *JSONBinClient) binURL(id string) string {
	return c.baseURL + "/" + id
}

func (c *JSONBinClient) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Master-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"status": resp.StatusCode,
		}).Warn("JSONBin request was rejected")
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
