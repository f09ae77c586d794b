package storage

import (
	"context"
	"errors"
)

// ErrDuplicateCode is returned by Create when the short code is already
// taken. Each backend classifies its engine's unique-violation error into
// this sentinel, so callers never inspect driver errors themselves.
var ErrDuplicateCode = errors.New("short code already exists")

// Store is the single storage contract both backends implement. Lookups
// that miss return (nil, nil) rather than an error; Delete reports absence
// through its bool result.
type Store interface {
	// GetByCode returns the mapping for a short code, or nil if none exists.
	GetByCode(ctx context.Context, code string) (*Mapping, error)

	// GetByID returns the mapping with the given id, or nil if none exists.
	GetByID(ctx context.Context, id int64) (*Mapping, error)

	// List returns all mappings with their click counts, newest-created first.
	List(ctx context.Context) ([]MappingWithClicks, error)

	// Create inserts a new mapping. Returns ErrDuplicateCode if the code is
	// already in use; uniqueness is enforced by the store's constraint, not
	// by a check-then-insert.
	Create(ctx context.Context, code, targetURL string, description *string) (*Mapping, error)

	// Update replaces the target URL and description of the mapping with the
	// given id. Returns nil if the id does not exist. The short code is
	// immutable and cannot be changed here.
	Update(ctx context.Context, id int64, targetURL string, description *string) (*Mapping, error)

	// Delete removes a mapping and, via cascade, all of its click events.
	// Returns false if the id does not exist.
	Delete(ctx context.Context, id int64) (bool, error)

	// RecordClick appends one click event for a mapping. The clicked_at
	// timestamp is assigned by the store.
	RecordClick(ctx context.Context, mappingID int64, userAgent, referrer *string) error

	// Stats returns the total click count and the per-day histogram for a
	// mapping. An id with no clicks (including an unknown id) yields
	// {Total: 0, ByDay: []}.
	Stats(ctx context.Context, mappingID int64) (*Stats, error)

	Close() error
}
