package blocking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-tiltguard/auth"
)

// DefaultCacheTTL bounds how long a status stays cached
const DefaultCacheTTL = 5 * time.Minute

// StatusCache caches block statuses per user. Add only writes when no entry
// exists, so a status read from the store never replaces one written by a
// concurrent activation.
type StatusCache interface {
	Get(ctx context.Context, userID string) (Status, bool, error)
	Set(ctx context.Context, userID string, status Status, ttl time.Duration) error
	Add(ctx context.Context, userID string, status Status, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (Status, bool, error)        { return Status{}, false, nil }
func (noopCache) Set(context.Context, string, Status, time.Duration) error { return nil }
func (noopCache) Add(context.Context, string, Status, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, string) error                     { return nil }

// Service owns the Risk Settings block window
type Service struct {
	repo     Repository
	cache    StatusCache
	cacheTTL time.Duration
	logger   auth.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// NewService creates a service without cache
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		cache:    noopCache{},
		cacheTTL: DefaultCacheTTL,
		logger:   auth.NoopLogger{},
		now:      time.Now,
	}
}

// WithCache sets the status cache and the maximum entry lifetime
func (s *Service) WithCache(cache StatusCache, ttl time.Duration) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

func (s *Service) WithLogger(logger auth.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Status returns the current block status. A flagged block whose window has
// closed is cleared and persisted before returning.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	key := userID.String()

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn("block status cache read failed", "user_id", key, "error", err)
	case ok && (!cached.BlockRiskSettings || cached.ShouldBlock(s.now().UTC())):
		return cached, nil
	case ok:
		s.Forget(ctx, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		if auth.IsNotFound(err) {
			status := Status{}
			s.add(ctx, key, status, now)
			return status, nil
		}
		return Status{}, err
	}

	if record.Expired(now) {
		if record, err = s.clearExpired(ctx, record, now); err != nil {
			return Status{}, err
		}
	}

	status := record.Status()
	s.add(ctx, key, status, now)
	return status, nil
}

// clearExpired unflags record in the store. When another process activated a
// new block in the meantime the row is left alone and reloaded.
func (s *Service) clearExpired(ctx context.Context, record *Settings, now time.Time) (*Settings, error) {
	cleared, err := s.repo.ClearExpired(ctx, record.UserID, now)
	if err != nil {
		return nil, err
	}
	if !cleared {
		return s.repo.Get(ctx, record.UserID)
	}

	s.logger.Info("block expired", "user_id", record.UserID.String())
	record.BlockRiskSettings = false
	record.BlockUntil = nil
	return record, nil
}

// Activate starts a block of the given duration. It fails while another
// block is still in force.
func (s *Service) Activate(ctx context.Context, userID uuid.UUID, raw string) (Status, error) {
	duration, err := ParseDuration(raw)
	if err != nil {
		return Status{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := userID.String()

	record, err := s.repo.Get(ctx, userID)
	if err != nil && !auth.IsNotFound(err) {
		return Status{}, err
	}

	if record.Active(now) {
		return Status{}, alreadyActiveError(*record.BlockUntil)
	}

	until, err := ComputeBlockUntil(now, duration)
	if err != nil {
		return Status{}, err
	}

	if record == nil {
		record = &Settings{UserID: userID}
	}
	record.BlockRiskSettings = true
	record.BlockUntil = &until

	if err := s.repo.Upsert(ctx, record); err != nil {
		return Status{}, err
	}

	s.logger.Info("block activated", "user_id", key, "duration", duration.String(), "block_until", until)

	status := record.Status()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("block status cache invalidation failed", "user_id", key, "error", err)
	}
	s.store(ctx, key, status, now)
	return status, nil
}

// Forget drops any cached status for userID
func (s *Service) Forget(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, userID.String()); err != nil {
		s.logger.Warn("block status cache invalidation failed", "user_id", userID.String(), "error", err)
	}
}

func (s *Service) store(ctx context.Context, key string, status Status, now time.Time) {
	if ttl := s.ttlFor(status, now); ttl > 0 {
		if err := s.cache.Set(ctx, key, status, ttl); err != nil {
			s.logger.Warn("block status cache write failed", "user_id", key, "error", err)
		}
	}
}

func (s *Service) add(ctx context.Context, key string, status Status, now time.Time) {
	if ttl := s.ttlFor(status, now); ttl > 0 {
		if err := s.cache.Add(ctx, key, status, ttl); err != nil {
			s.logger.Warn("block status cache write failed", "user_id", key, "error", err)
		}
	}
}

// ttlFor caps the cache lifetime at the end of the block
func (s *Service) ttlFor(status Status, now time.Time) time.Duration {
	ttl := s.cacheTTL
	if status.BlockUntil != nil {
		if left := status.BlockUntil.Sub(now); left < ttl {
			ttl = left
		}
	}
	return ttl
}
