package guideaccess

import (
	"context"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/goliatone/go-tiltguard/auth"
)

// Service drives the guide access windows of each user
type Service struct {
	repo   Repository
	window Window
	logger auth.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewService creates a service using DefaultWindow
func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		window: DefaultWindow,
		logger: auth.NoopLogger{},
		now:    time.Now,
	}
}

// WithWindow overrides the cooldown and access lengths. Zero values keep
// the current setting.
func (s *Service) WithWindow(w Window) *Service {
	if w.Cooldown > 0 {
		s.window.Cooldown = w.Cooldown
	}
	if w.Access > 0 {
		s.window.Access = w.Access
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

// Window returns the configured window lengths
func (s *Service) Window() Window {
	return s.window
}

// Status returns the current state, persisting any elapsed window
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	record, err := s.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if record == nil {
		return (*Record)(nil).Status(now), nil
	}

	if record.Advance(now, s.window) {
		if err := s.repo.Upsert(ctx, record); err != nil {
			return Status{}, err
		}
		s.logger.Debug("guide access advanced", "user_id", userID.String(), "phase", string(record.Phase(now)))
	}

	return record.Status(now), nil
}

// CompleteSetup marks the extension setup as done
func (s *Service) CompleteSetup(ctx context.Context, userID uuid.UUID) (Status, error) {
	return s.update(ctx, userID, func(r *Record, _ time.Time) {
		r.SetupCompleted = true
	})
}

// RequestAccess starts a cooldown unless access is open or a cooldown is
// already running, in which case the current state is returned unchanged.
func (s *Service) RequestAccess(ctx context.Context, userID uuid.UUID) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	record, err := s.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	changed := false
	if record == nil {
		record = &Record{UserID: userID, SetupCompleted: true}
		changed = true
	}

	if record.Advance(now, s.window) {
		changed = true
	}

	switch record.Phase(now) {
	case PhaseOpen, PhaseCooldown:
	default:
		record.StartCooldown(now, s.window)
		changed = true
		s.logger.Info("guide access cooldown started", "user_id", userID.String(), "cooldown_until", *record.CooldownUntil)
	}

	if changed {
		if err := s.repo.Upsert(ctx, record); err != nil {
			return Status{}, err
		}
	}

	return record.Status(now), nil
}

// RegisterExtension stores the browser extension id of the user
func (s *Service) RegisterExtension(ctx context.Context, userID uuid.UUID, extensionID string) error {
	extensionID = strings.TrimSpace(extensionID)
	if err := validation.Validate(extensionID, validation.Required, validation.Length(1, 255)); err != nil {
		return ErrExtensionIDRequired
	}

	_, err := s.update(ctx, userID, func(r *Record, _ time.Time) {
		r.ExtensionID = extensionID
	})
	return err
}

// UndoSetup resets the flow, used when the extension is uninstalled
func (s *Service) UndoSetup(ctx context.Context, userID uuid.UUID) (Status, error) {
	return s.update(ctx, userID, func(r *Record, _ time.Time) {
		r.SetupCompleted = false
		r.CooldownUntil = nil
		r.AccessUntil = nil
	})
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, fn func(*Record, time.Time)) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	record, err := s.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if record == nil {
		record = &Record{UserID: userID}
	}

	fn(record, now)

	if err := s.repo.Upsert(ctx, record); err != nil {
		return Status{}, err
	}
	return record.Status(now), nil
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*Record, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
