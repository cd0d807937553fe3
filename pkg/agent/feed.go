package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxFeedBytes caps the feed response size. The document is a few
// hundred bytes; anything larger is a misconfigured endpoint.
const maxFeedBytes = 64 << 10

// FeedItem is the latest-release descriptor served by the update feed.
type FeedItem struct {
	// Version is the semantic version of the release.
	Version string `json:"version"`

	// URL is the download location of the update package.
	URL string `json:"url"`

	// Length is the package size in bytes, used for progress reporting.
	Length int64 `json:"length"`

	// Signature is the base64 ed25519 signature of the package bytes.
	Signature string `json:"signature"`

	// Notes is an optional human-readable changelog.
	Notes string `json:"notes,omitempty"`
}

// fetchFeed retrieves and parses the feed document.
func fetchFeed(ctx context.Context, client HTTPClient, url string) (*FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxFeedBytes {
		return nil, fmt.Errorf("fetch feed: response too large (%d bytes)", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	var item FeedItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if item.Version == "" {
		return nil, fmt.Errorf("parse feed: missing version")
	}
	if item.URL == "" {
		return nil, fmt.Errorf("parse feed: missing url")
	}

	return &item, nil
}
