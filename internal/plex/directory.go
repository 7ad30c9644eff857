package plex

import (
	"context"
	"strings"
	"sync"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/playback"
)

// Directory maintains a cached view of the server's player clients and
// remembers the last item dispatched per device class. The device list is
// refreshed alongside the catalog; LastSession is fed by observing
// dispatches.
type Directory struct {
	client *Client

	mu       sync.RWMutex
	devices  []playback.Device
	sessions map[string]*catalog.Item
}

// NewDirectory creates an empty directory backed by the given client.
func NewDirectory(client *Client) *Directory {
	return &Directory{
		client:   client,
		sessions: make(map[string]*catalog.Item),
	}
}

// RefreshDevices re-reads the player client list from the server.
func (d *Directory) RefreshDevices(ctx context.Context) error {
	clients, err := d.client.Clients(ctx)
	if err != nil {
		return err
	}

	devices := make([]playback.Device, 0, len(clients))
	for _, s := range clients {
		devices = append(devices, playback.Device{
			ID:    s.MachineIdentifier,
			Name:  s.Name,
			Class: classify(s.Product),
		})
	}

	d.mu.Lock()
	d.devices = devices
	d.mu.Unlock()
	return nil
}

// InstalledDevices returns the cached devices of one class. An empty class
// returns every device.
func (d *Directory) InstalledDevices(class string) []playback.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]playback.Device, 0, len(d.devices))
	for _, dev := range d.devices {
		if class == "" || dev.Class == class {
			out = append(out, dev)
		}
	}
	return out
}

// LastSession returns the item most recently dispatched to a device of the
// given class.
func (d *Directory) LastSession(class string) (*catalog.Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	item, ok := d.sessions[class]
	return item, ok
}

// RecordDispatch remembers play dispatches so LastSession can answer
// "what am I watching" without a server round trip.
func (d *Directory) RecordDispatch(_ context.Context, req playback.Request) {
	if req.Command != playback.CommandPlayItem || req.Item == nil {
		return
	}
	d.mu.Lock()
	d.sessions[req.Device.Class] = req.Item
	d.mu.Unlock()
}

// classify maps a player product name to a device class.
func classify(product string) string {
	p := strings.ToLower(product)
	if strings.Contains(p, "home theater") || strings.Contains(p, "pht") {
		return playback.ClassTheater
	}
	return playback.ClassChromecast
}
