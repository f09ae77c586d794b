package service

import (
	"context"
	"errors"
	"time"

	"shortlink/pkg/cache"
	"shortlink/pkg/logging"
	"shortlink/pkg/storage"
	"shortlink/pkg/validate"
)

var (
	ErrInvalidShortCode = errors.New("invalid short code format")
	ErrInvalidTargetURL = errors.New("invalid target URL")
	ErrNotFound         = errors.New("mapping not found")
)

// ErrDuplicateCode is re-exported so callers depend on the service layer
// only.
var ErrDuplicateCode = storage.ErrDuplicateCode

const cacheTTL = 24 * time.Hour

// MappingService owns the short-code to target-URL mapping lifecycle. It
// validates input before delegating to the store and translates storage
// results into the service error taxonomy. The cache is optional; when
// present it only ever holds mappings the store currently holds.
type MappingService struct {
	store  storage.Store
	cache  cache.MappingCacheInterface
	logger *logging.Logger
}

func NewMappingService(store storage.Store, cache cache.MappingCacheInterface, logger *logging.Logger) *MappingService {
	return &MappingService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (s *MappingService) List(ctx context.Context) ([]storage.MappingWithClicks, error) {
	return s.store.List(ctx)
}

// Create validates the code and URL, then inserts. A race between two
// creates on the same code is settled by the store's unique constraint:
// the loser gets ErrDuplicateCode, never a silent overwrite.
func (s *MappingService) Create(ctx context.Context, code, targetURL string, description *string) (*storage.Mapping, error) {
	if !validate.IsShortCode(code) {
		return nil, ErrInvalidShortCode
	}
	if !validate.IsTargetURL(targetURL) {
		return nil, ErrInvalidTargetURL
	}

	mapping, err := s.store.Create(ctx, code, targetURL, description)
	if err != nil {
		if !errors.Is(err, storage.ErrDuplicateCode) {
			s.logger.Error(ctx, "create mapping failed", "code", code, "error", err)
		}
		return nil, err
	}

	s.logger.LogMappingOperation(ctx, "create", code, true)
	return mapping, nil
}

// Update changes the target URL and description of an existing mapping.
// The short code is immutable; there is no update path for it.
func (s *MappingService) Update(ctx context.Context, id int64, targetURL string, description *string) (*storage.Mapping, error) {
	if !validate.IsTargetURL(targetURL) {
		return nil, ErrInvalidTargetURL
	}

	mapping, err := s.store.Update(ctx, id, targetURL, description)
	if err != nil {
		s.logger.Error(ctx, "update mapping failed", "id", id, "error", err)
		return nil, err
	}
	if mapping == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, mapping.ShortCode); err != nil {
			s.logger.Warn(ctx, "cache invalidation failed", "code", mapping.ShortCode, "error", err)
		}
	}

	s.logger.LogMappingOperation(ctx, "update", mapping.ShortCode, true)
	return mapping, nil
}

// Delete removes a mapping and all of its click events. The mapping is
// read first so the cache entry for its code can be dropped.
func (s *MappingService) Delete(ctx context.Context, id int64) error {
	mapping, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "delete mapping lookup failed", "id", id, "error", err)
		return err
	}
	if mapping == nil {
		return ErrNotFound
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "delete mapping failed", "id", id, "error", err)
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, mapping.ShortCode); err != nil {
			s.logger.Warn(ctx, "cache invalidation failed", "code", mapping.ShortCode, "error", err)
		}
	}

	s.logger.LogMappingOperation(ctx, "delete", mapping.ShortCode, true)
	return nil
}

// Resolve looks up the mapping for a short code on the redirect path. A
// code that fails the format rules is rejected before any store or cache
// access, so a code that could never have been created costs no round trip.
func (s *MappingService) Resolve(ctx context.Context, code string) (*storage.Mapping, error) {
	if !validate.IsShortCode(code) {
		return nil, ErrInvalidShortCode
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, code)
		if err != nil {
			s.logger.Warn(ctx, "cache read failed", "code", code, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	mapping, err := s.store.GetByCode(ctx, code)
	if err != nil {
		s.logger.Error(ctx, "resolve failed", "code", code, "error", err)
		return nil, err
	}
	if mapping == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, code, mapping, cacheTTL); err != nil {
			s.logger.Warn(ctx, "cache write failed", "code", code, "error", err)
		}
	}
	return mapping, nil
}

// Stats returns total and per-day click counts for a mapping. An id with no
// recorded clicks yields a zero total and an empty histogram.
func (s *MappingService) Stats(ctx context.Context, id int64) (*storage.Stats, error) {
	stats, err := s.store.Stats(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "stats query failed", "id", id, "error", err)
		return nil, err
	}
	return stats, nil
}
