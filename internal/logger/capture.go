package logger

import (
	"encoding/json"
	"fmt"
)

const defaultBufferSize = 1000

// LogEntry is a parsed log entry retained for the logs API.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Capture implements io.Writer and retains recent log entries in memory.
// It receives the JSON stream from zerolog alongside the console and file
// writers.
type Capture struct {
	buffer *ring[LogEntry]
}

// NewCapture creates a capture buffer holding the last size entries.
func NewCapture(size int) *Capture {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Capture{buffer: newRing[LogEntry](size)}
}

// Write implements io.Writer for JSON log entries.
func (c *Capture) Write(p []byte) (n int, err error) {
	n = len(p)

	entry, parseErr := parseLogEntry(p)
	if parseErr != nil {
		// Malformed entries are dropped, never propagated as write errors.
		return n, nil
	}

	c.buffer.push(entry)
	return n, nil
}

// Recent returns the retained entries from oldest to newest.
func (c *Capture) Recent() []LogEntry {
	return c.buffer.snapshot()
}

// parseLogEntry splits a raw zerolog JSON line into the known envelope
// fields and a bag of everything else.
func parseLogEntry(p []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{}
	fields := make(map[string]any)

	for key, value := range raw {
		switch key {
		case "time":
			entry.Timestamp = fmt.Sprintf("%v", value)
		case "level":
			entry.Level = fmt.Sprintf("%v", value)
		case "component":
			entry.Component = fmt.Sprintf("%v", value)
		case "message":
			entry.Message = fmt.Sprintf("%v", value)
		default:
			fields[key] = value
		}
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry, nil
}
