package config

// Embedded Plex token injected at build time via ldflags.
// Serves as a default and can be overridden by environment
// variables or config file.
//
// Build with:
//   go build -ldflags "-X 'github.com/voxplay/voxplay/internal/config.EmbeddedPlexToken=xxx'"
var EmbeddedPlexToken string
