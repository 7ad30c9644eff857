// Package trigger derives voice trigger phrases from catalog items and
// manages their registration with the speech collaborator.
package trigger

import (
	"fmt"
	"strings"

	"github.com/voxplay/voxplay/internal/catalog"
)

// Kind discriminates what a recognized trigger refers to.
type Kind string

// Trigger kinds.
const (
	KindMedia   Kind = "media"
	KindCommand Kind = "command"
	KindType    Kind = "type"
	KindServer  Kind = "server"
)

// ID identifies one registered trigger. The speech collaborator only speaks
// a flat string form ("media|<type>|<key>", "command|<name>", ...); ID is
// the parsed equivalent, decoded once at the boundary so the rest of the
// code never string-splits.
type ID struct {
	Kind      Kind
	MediaType catalog.MediaType // media triggers only
	Key       string            // media triggers only
	Name      string            // command/type/server triggers
}

// MediaID builds the trigger ID for a catalog item.
func MediaID(item *catalog.Item) ID {
	return ID{Kind: KindMedia, MediaType: item.Type, Key: item.Key}
}

// String renders the wire form understood by the speech collaborator.
func (id ID) String() string {
	if id.Kind == KindMedia {
		return fmt.Sprintf("%s|%s|%s", KindMedia, id.MediaType, id.Key)
	}
	return fmt.Sprintf("%s|%s", id.Kind, id.Name)
}

// ParseID decodes the wire form back into an ID. Unrecognized shapes are
// rejected rather than guessed at.
func ParseID(s string) (ID, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) < 2 {
		return ID{}, fmt.Errorf("malformed trigger id %q", s)
	}

	switch Kind(parts[0]) {
	case KindMedia:
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("malformed media trigger id %q", s)
		}
		return ID{Kind: KindMedia, MediaType: catalog.MediaType(parts[1]), Key: parts[2]}, nil
	case KindCommand, KindType, KindServer:
		return ID{Kind: Kind(parts[0]), Name: parts[1]}, nil
	}
	return ID{}, fmt.Errorf("unknown trigger kind in %q", s)
}
