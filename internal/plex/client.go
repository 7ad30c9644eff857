// Package plex is an HTTP client for the Plex Media Server API. It feeds
// the catalog rebuild, reports active playback sessions and drives the
// server's remote-controllable player clients.
package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/config"
)

var (
	ErrNotConfigured = errors.New("plex server is not configured")
	ErrUnauthorized  = errors.New("plex token rejected")
	ErrAPIError      = errors.New("plex API error")
)

// typeCodes maps media types to the numeric type filter of /library/all.
var typeCodes = map[catalog.MediaType]int{
	catalog.TypeMovie:   1,
	catalog.TypeEpisode: 4,
}

// Client is a Plex Media Server API client.
type Client struct {
	httpClient *http.Client
	config     config.PlexConfig
	logger     zerolog.Logger

	// Server identity cache
	mu       sync.Mutex
	serverID string
}

// NewClient creates a new Plex client.
func NewClient(cfg config.PlexConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "plex").Logger(),
	}
}

// IsConfigured returns true if a server URL and token are set.
func (c *Client) IsConfigured() bool {
	return c.config.URL != "" && c.config.Token != ""
}

// FetchByType fetches the full library section for one media type.
func (c *Client) FetchByType(ctx context.Context, t catalog.MediaType) ([]catalog.RawItem, error) {
	code, ok := typeCodes[t]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrAPIError, t)
	}

	params := url.Values{}
	params.Set("type", strconv.Itoa(code))

	var resp container
	if err := c.get(ctx, "/library/all", params, &resp); err != nil {
		return nil, err
	}

	items := rawItems(resp.MediaContainer.Metadata)
	c.logger.Debug().
		Str("type", string(t)).
		Int("items", len(items)).
		Msg("Library fetch completed")
	return items, nil
}

// FetchOnDeck fetches the server's on-deck hub.
func (c *Client) FetchOnDeck(ctx context.Context) ([]catalog.RawItem, error) {
	var resp container
	if err := c.get(ctx, "/library/onDeck", nil, &resp); err != nil {
		return nil, err
	}
	return rawItems(resp.MediaContainer.Metadata), nil
}

// FetchRecentlyAdded fetches the recently added hub.
func (c *Client) FetchRecentlyAdded(ctx context.Context) ([]catalog.RawItem, error) {
	var resp container
	if err := c.get(ctx, "/library/recentlyAdded", nil, &resp); err != nil {
		return nil, err
	}
	return rawItems(resp.MediaContainer.Metadata), nil
}

// RequestLibraryRefresh asks the server to rescan every library section.
// The server acknowledges immediately; the scan completes asynchronously.
func (c *Client) RequestLibraryRefresh(ctx context.Context) error {
	return c.get(ctx, "/library/sections/all/refresh", nil, nil)
}

// ActiveSessions reports the media items currently being played.
func (c *Client) ActiveSessions(ctx context.Context) ([]catalog.RawItem, error) {
	var resp container
	if err := c.get(ctx, "/status/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return rawItems(resp.MediaContainer.Metadata), nil
}

// Clients lists the remote-controllable player clients known to the server.
func (c *Client) Clients(ctx context.Context) ([]Server, error) {
	var resp container
	if err := c.get(ctx, "/clients", nil, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Server, nil
}

// ServerIdentity returns the server's machine identifier, cached after the
// first successful lookup. Player commands require it.
func (c *Client) ServerIdentity(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverID != "" {
		return c.serverID, nil
	}

	var resp container
	if err := c.get(ctx, "/identity", nil, &resp); err != nil {
		return "", err
	}
	c.serverID = resp.MediaContainer.MachineIdentifier
	return c.serverID, nil
}

// get performs an authenticated GET request. A nil result discards the
// response body.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.do(ctx, path, params, nil, result)
}

// do performs an authenticated request against the server.
func (c *Client) do(ctx context.Context, path string, params url.Values, headers http.Header, result interface{}) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	reqURL := c.config.URL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.config.Token)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: status %d on %s", ErrAPIError, resp.StatusCode, path)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// rawItems converts metadata entries to catalog raw items.
func rawItems(meta []Metadata) []catalog.RawItem {
	items := make([]catalog.RawItem, 0, len(meta))
	for _, m := range meta {
		items = append(items, catalog.RawItem{
			Key:              m.RatingKey,
			Type:             m.Type,
			Title:            m.Title,
			GrandparentTitle: m.GrandparentTitle,
			TitleSort:        m.TitleSort,
			Index:            m.Index,
			ParentIndex:      m.ParentIndex,
			ViewCount:        m.ViewCount,
			ViewOffset:       m.ViewOffset,
		})
	}
	return items
}
