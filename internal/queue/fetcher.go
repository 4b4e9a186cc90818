package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"torrentstream/queueservice/internal/domain"
)

const (
	DefaultSourceURLTemplate = "http://localhost:7575/api/apps/{appId}/queue"

	maxQueueBodyBytes = 4 * 1024 * 1024
)

var errEmptyPayload = errors.New("empty queue payload")

// Fetcher retrieves the raw queue records of one source.
type Fetcher interface {
	Fetch(ctx context.Context, source domain.SourceDescriptor) ([]json.RawMessage, error)
}

// HTTPFetcher reads a source's queue from a proxied JSON endpoint. The URL
// template must contain "{appId}".
type HTTPFetcher struct {
	client      *http.Client
	urlTemplate string
	userAgent   string
}

func NewHTTPFetcher(urlTemplate, userAgent string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	urlTemplate = strings.TrimSpace(urlTemplate)
	if urlTemplate == "" {
		urlTemplate = DefaultSourceURLTemplate
	}
	return &HTTPFetcher{
		client:      client,
		urlTemplate: urlTemplate,
		userAgent:   strings.TrimSpace(userAgent),
	}
}

func (f *HTTPFetcher) Endpoint(appID string) string {
	return strings.ReplaceAll(f.urlTemplate, "{appId}", url.PathEscape(strings.TrimSpace(appID)))
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source domain.SourceDescriptor) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint(source.AppID), nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("queue endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQueueBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read queue body: %w", err)
	}
	return DecodeQueuePayload(body)
}

// DecodeQueuePayload extracts the record list from a queue response. Besides
// {"items":[...]} and a bare array it accepts the native envelopes of the
// supported downloaders: SABnzbd {"queue":{"slots":[...]}}, Transmission
// {"arguments":{"torrents":[...]}} and NZBGet {"result":[...]}.
func DecodeQueuePayload(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parse queue payload: %w", err)
		}
		return records, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("parse queue payload: %w", err)
	}
	for _, path := range envelopePaths {
		if records, ok := lookupRecords(envelope, path); ok {
			return records, nil
		}
	}
	return []json.RawMessage{}, nil
}

var envelopePaths = [][]string{
	{"items"},
	{"queue", "slots"},
	{"arguments", "torrents"},
	{"result"},
}

func lookupRecords(envelope map[string]json.RawMessage, path []string) ([]json.RawMessage, bool) {
	current := envelope
	for i, key := range path {
		raw, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			var records []json.RawMessage
			if err := json.Unmarshal(raw, &records); err != nil || records == nil {
				return nil, false
			}
			return records, true
		}
		current = nil
		if err := json.Unmarshal(raw, &current); err != nil || current == nil {
			return nil, false
		}
	}
	return nil, false
}
