package history

// EventType classifies a history entry.
type EventType string

// Event types.
const (
	// EventPlayback is a "start playing this item" dispatch.
	EventPlayback EventType = "playback"
	// EventTransport is a play/pause/stop transport command.
	EventTransport EventType = "transport"
)

// Entry is one recorded playback event.
type Entry struct {
	ID          int64     `json:"id"`
	EventType   EventType `json:"eventType"`
	MediaType   string    `json:"mediaType,omitempty"`
	MediaKey    string    `json:"mediaKey,omitempty"`
	Title       string    `json:"title,omitempty"`
	DeviceName  string    `json:"deviceName"`
	DeviceClass string    `json:"deviceClass"`
	Command     string    `json:"command"`
	CreatedAt   string    `json:"createdAt"`
}

// ListOptions controls history listing.
type ListOptions struct {
	EventType string
	MediaType string
	Page      int
	PageSize  int
}

// ListResponse is a paginated history listing.
type ListResponse struct {
	Items      []*Entry `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}
