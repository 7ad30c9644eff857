// Package playback defines the device-facing playback contracts and the
// dispatcher that routes commands to the port registered for a device
// class.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/catalog"
)

// Command is a playback instruction for a device.
type Command string

// Playback commands.
const (
	CommandPlayItem Command = "playItem"
	CommandPlay     Command = "play"
	CommandPause    Command = "pause"
	CommandStop     Command = "stop"
)

// Known device classes. Each class has its own transport and therefore its
// own Port implementation.
const (
	ClassChromecast = "chromecast"
	ClassTheater    = "pht"
)

// ErrDeviceNotFound reports that no port is registered for the target
// device's class.
var ErrDeviceNotFound = errors.New("playback device not found")

// Device is one installed playback target.
type Device struct {
	ID    string
	Name  string
	Class string
}

// Request is a single playback dispatch. Item is set only for
// CommandPlayItem.
type Request struct {
	Device  Device
	Command Command
	Item    *catalog.Item
}

// Port dispatches playback commands for one device class.
type Port interface {
	Dispatch(ctx context.Context, req Request) error
}

// Directory enumerates installed devices and remembers the last playback
// session per device class.
type Directory interface {
	InstalledDevices(class string) []Device
	LastSession(class string) (*catalog.Item, bool)
}

// Recorder observes successful dispatches. Satisfied by the history store.
type Recorder interface {
	RecordDispatch(ctx context.Context, req Request)
}

// MultiRecorder fans a dispatch out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordDispatch(ctx context.Context, req Request) {
	for _, r := range m {
		r.RecordDispatch(ctx, req)
	}
}

// Dispatcher routes playback requests to the port registered for the
// device's class and records successful dispatches.
type Dispatcher struct {
	ports    map[string]Port
	recorder Recorder
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher with no registered ports.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		ports:  make(map[string]Port),
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// RegisterClass binds a port to a device class, replacing any previous
// binding.
func (d *Dispatcher) RegisterClass(class string, port Port) {
	d.ports[class] = port
}

// SetRecorder sets the dispatch observer. Nil disables recording.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Dispatch sends a request to the device's class port.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	port, ok := d.ports[req.Device.Class]
	if !ok {
		return fmt.Errorf("%w: no port for class %q", ErrDeviceNotFound, req.Device.Class)
	}

	evt := d.logger.Info().
		Str("device", req.Device.Name).
		Str("class", req.Device.Class).
		Str("command", string(req.Command))
	if req.Item != nil {
		evt = evt.Str("key", req.Item.Key).Str("title", req.Item.Title)
	}
	evt.Msg("Dispatching playback command")

	if err := port.Dispatch(ctx, req); err != nil {
		return fmt.Errorf("dispatch %s to %s: %w", req.Command, req.Device.Name, err)
	}

	if d.recorder != nil {
		d.recorder.RecordDispatch(ctx, req)
	}
	return nil
}
