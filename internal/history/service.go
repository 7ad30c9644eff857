// Package history records playback dispatches in SQLite and serves them
// back as a paginated listing.
package history

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/playback"
)

// Service provides history management functionality.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// RecordDispatch stores one successful playback dispatch. Recording is
// best effort; a failed insert never fails the dispatch that triggered it.
func (s *Service) RecordDispatch(ctx context.Context, req playback.Request) {
	entry := entryFromRequest(req)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (event_type, media_type, media_key, title, device_name, device_class, command)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(entry.EventType), entry.MediaType, entry.MediaKey, entry.Title,
		entry.DeviceName, entry.DeviceClass, entry.Command,
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("command", entry.Command).Msg("Failed to record playback event")
	}
}

// List lists history entries with pagination and filtering, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}

	where := ""
	args := []any{}
	switch {
	case opts.EventType != "" && opts.MediaType != "":
		where = " WHERE event_type = ? AND media_type = ?"
		args = append(args, opts.EventType, opts.MediaType)
	case opts.EventType != "":
		where = " WHERE event_type = ?"
		args = append(args, opts.EventType)
	case opts.MediaType != "":
		where = " WHERE media_type = ?"
		args = append(args, opts.MediaType)
	}

	var totalCount int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history"+where, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	query := `SELECT id, event_type, media_type, media_key, title, device_name, device_class, command, created_at
		 FROM history` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*Entry, 0, opts.PageSize)
	for rows.Next() {
		var entry Entry
		var createdAt sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.EventType, &entry.MediaType, &entry.MediaKey,
			&entry.Title, &entry.DeviceName, &entry.DeviceClass, &entry.Command, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time.Format("2006-01-02T15:04:05Z07:00")
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int(totalCount) / opts.PageSize
	if int(totalCount)%opts.PageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Items:      entries,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// DeleteAll deletes all history entries.
func (s *Service) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

// entryFromRequest maps a dispatch to its stored form.
func entryFromRequest(req playback.Request) Entry {
	entry := Entry{
		EventType:   EventTransport,
		DeviceName:  req.Device.Name,
		DeviceClass: req.Device.Class,
		Command:     string(req.Command),
	}
	if req.Command == playback.CommandPlayItem {
		entry.EventType = EventPlayback
	}
	if req.Item != nil {
		entry.MediaType = string(req.Item.Type)
		entry.MediaKey = req.Item.Key
		entry.Title = req.Item.Title
	}
	return entry
}
