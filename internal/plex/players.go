package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/playback"
)

// playerCommands maps playback commands to remote control endpoints.
var playerCommands = map[playback.Command]string{
	playback.CommandPlay:  "/player/playback/play",
	playback.CommandPause: "/player/playback/pause",
	playback.CommandStop:  "/player/playback/stop",
}

// Players drives the server's remote-controllable clients through the
// player command API. One instance serves every device class.
type Players struct {
	client *Client
	logger zerolog.Logger
}

// NewPlayers creates a player port backed by the given client.
func NewPlayers(client *Client, logger zerolog.Logger) *Players {
	return &Players{
		client: client,
		logger: logger.With().Str("component", "players").Logger(),
	}
}

// Dispatch sends one playback command to the target device. The target is
// addressed by its client identifier header; playMedia additionally needs
// the item key and the server's machine identifier.
func (p *Players) Dispatch(ctx context.Context, req playback.Request) error {
	headers := http.Header{}
	headers.Set("X-Plex-Target-Client-Identifier", req.Device.ID)

	if req.Command != playback.CommandPlayItem {
		path, ok := playerCommands[req.Command]
		if !ok {
			return fmt.Errorf("unsupported playback command %q", req.Command)
		}
		return p.client.do(ctx, path, nil, headers, nil)
	}

	if req.Item == nil {
		return fmt.Errorf("playItem dispatch without an item")
	}

	serverID, err := p.client.ServerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("resolve server identity: %w", err)
	}

	params := url.Values{}
	params.Set("key", "/library/metadata/"+req.Item.Key)
	params.Set("machineIdentifier", serverID)
	if req.Item.ViewOffset > 0 {
		params.Set("offset", fmt.Sprintf("%d", req.Item.ViewOffset))
	}

	p.logger.Debug().
		Str("device", req.Device.Name).
		Str("key", req.Item.Key).
		Msg("Starting playback")
	return p.client.do(ctx, "/player/playback/playMedia", params, headers, nil)
}
