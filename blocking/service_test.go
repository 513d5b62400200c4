package blocking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/repository"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]blocking.Status
	ttls    map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]blocking.Status{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (blocking.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[key]
	return s, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, status blocking.Status, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = status
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Add(_ context.Context, key string, status blocking.Status, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return nil
	}
	m.entries[key] = status
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	delete(m.ttls, key)
	return nil
}

type fixture struct {
	repo    *repository.Manager
	service *blocking.Service
	clock   *clock
	userID  uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	db, err := repository.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mngr := repository.NewRepositoryManager(db)
	user, err := mngr.Users().Create(ctx, &auth.User{
		Name:         "Blocker",
		Email:        "blocker@example.com",
		PasswordHash: "hash",
		Active:       true,
	})
	require.NoError(t, err)

	c := &clock{now: date("2025-03-12T10:00:00Z")}
	return fixture{
		repo:    mngr,
		service: blocking.NewService(mngr.BlockSettings()).WithClock(c.Now),
		clock:   c,
		userID:  user.ID,
	}
}

func TestServiceStatusWithoutRecord(t *testing.T) {
	f := setup(t)

	status, err := f.service.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, status.BlockRiskSettings)
	assert.Nil(t, status.BlockUntil)

	_, err = f.repo.BlockSettings().Get(context.Background(), f.userID)
	assert.True(t, auth.IsNotFound(err), "status must not create a record")
}

func TestServiceActivate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	status, err := f.service.Activate(ctx, f.userID, "day")
	require.NoError(t, err)
	assert.True(t, status.BlockRiskSettings)
	require.NotNil(t, status.BlockUntil)
	assert.True(t, date("2025-03-12T23:59:59.999Z").Equal(*status.BlockUntil))

	got, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, got.BlockRiskSettings)
	assert.True(t, status.BlockUntil.Equal(*got.BlockUntil))

	_, err = f.service.Activate(ctx, f.userID, "week")
	assert.True(t, auth.HasTextCode(err, blocking.TextCodeBlockAlreadyActive), "got %v", err)
}

func TestServiceActivateInvalidDuration(t *testing.T) {
	f := setup(t)

	_, err := f.service.Activate(context.Background(), f.userID, "forever")
	assert.True(t, auth.HasTextCode(err, blocking.TextCodeInvalidDuration))
}

func TestServiceExpiredBlockIsCleared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Activate(ctx, f.userID, "day")
	require.NoError(t, err)

	f.clock.Set(date("2025-03-13T00:00:00Z"))

	status, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.BlockRiskSettings)
	assert.Nil(t, status.BlockUntil)

	record, err := f.repo.BlockSettings().Get(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, record.BlockRiskSettings)
	assert.Nil(t, record.BlockUntil)

	status, err = f.service.Activate(ctx, f.userID, "month")
	require.NoError(t, err)
	assert.True(t, date("2025-03-31T23:59:59.999Z").Equal(*status.BlockUntil))
}

func TestServiceExactExpiryIsNotBlocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	status, err := f.service.Activate(ctx, f.userID, "day")
	require.NoError(t, err)

	f.clock.Set(*status.BlockUntil)

	status, err = f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.BlockRiskSettings)
}

func TestServiceFlagWithoutTimestampIsCleared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.repo.BlockSettings().Upsert(ctx, &blocking.Settings{
		UserID:            f.userID,
		BlockRiskSettings: true,
	}))

	status, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.BlockRiskSettings)
}

func TestServiceCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cache := newMemoryCache()
	f.service.WithCache(cache, time.Hour)

	_, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cache.ttls[f.userID.String()])

	f.clock.Set(date("2025-03-12T23:30:00Z"))
	status, err := f.service.Activate(ctx, f.userID, "day")
	require.NoError(t, err)

	cached, ok, _ := cache.Get(ctx, f.userID.String())
	require.True(t, ok)
	assert.True(t, cached.BlockRiskSettings)

	left := status.BlockUntil.Sub(date("2025-03-12T23:30:00Z"))
	assert.Equal(t, left, cache.ttls[f.userID.String()], "entries never outlive the block")

	f.clock.Set(date("2025-03-13T00:00:01Z"))
	got, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, got.BlockRiskSettings, "an expired cached block must fall through to the store")
}

func ptr(v time.Time) *time.Time { return &v }

// gatedRepository holds the result of the first Get until release is closed
type gatedRepository struct {
	blocking.Repository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRepository(repo blocking.Repository) *gatedRepository {
	return &gatedRepository{
		Repository: repo,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (g *gatedRepository) Get(ctx context.Context, userID uuid.UUID) (*blocking.Settings, error) {
	record, err := g.Repository.Get(ctx, userID)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return record, err
}

func TestServiceStatusDoesNotUndoConcurrentActivation(t *testing.T) {
	tests := []struct {
		name     string
		prior    *time.Time
		duration string
		want     string
	}{
		{name: "no prior block", duration: "week", want: "2025-03-16T23:59:59.999Z"},
		{name: "prior block expired", prior: ptr(date("2025-03-11T23:59:59.999Z")), duration: "month", want: "2025-03-31T23:59:59.999Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			if tt.prior != nil {
				require.NoError(t, f.repo.BlockSettings().Upsert(ctx, &blocking.Settings{
					UserID:            f.userID,
					BlockRiskSettings: true,
					BlockUntil:        tt.prior,
				}))
			}

			cache := newMemoryCache()
			gated := newGatedRepository(f.repo.BlockSettings())
			poller := blocking.NewService(gated).WithClock(f.clock.Now).WithCache(cache, time.Hour)

			polled := make(chan error, 1)
			go func() {
				_, err := poller.Status(ctx, f.userID)
				polled <- err
			}()
			<-gated.entered

			activated := make(chan error, 1)
			go func() {
				_, err := poller.Activate(ctx, f.userID, tt.duration)
				activated <- err
			}()

			select {
			case err := <-activated:
				t.Fatalf("activation finished while a status read was in flight: %v", err)
			case <-time.After(50 * time.Millisecond):
			}

			close(gated.release)
			require.NoError(t, <-polled)
			require.NoError(t, <-activated)

			want := date(tt.want)
			status, err := poller.Status(ctx, f.userID)
			require.NoError(t, err)
			assert.True(t, status.BlockRiskSettings)
			require.NotNil(t, status.BlockUntil)
			assert.True(t, want.Equal(*status.BlockUntil))

			cached, ok, _ := cache.Get(ctx, f.userID.String())
			require.True(t, ok)
			assert.True(t, cached.BlockRiskSettings)
			assert.Equal(t, time.Hour, cache.ttls[f.userID.String()])

			record, err := f.repo.BlockSettings().Get(ctx, f.userID)
			require.NoError(t, err)
			assert.True(t, record.Active(f.clock.Now()))
		})
	}
}

// Two services share the store and cache the way two server processes share
// the database and Redis.
func TestServiceStatusAcrossProcesses(t *testing.T) {
	tests := []struct {
		name       string
		prior      *time.Time
		wantPolled bool
	}{
		{name: "no prior block", wantPolled: false},
		{name: "prior block expired", prior: ptr(date("2025-03-11T23:59:59.999Z")), wantPolled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			if tt.prior != nil {
				require.NoError(t, f.repo.BlockSettings().Upsert(ctx, &blocking.Settings{
					UserID:            f.userID,
					BlockRiskSettings: true,
					BlockUntil:        tt.prior,
				}))
			}

			cache := newMemoryCache()
			gated := newGatedRepository(f.repo.BlockSettings())
			poller := blocking.NewService(gated).WithClock(f.clock.Now).WithCache(cache, time.Hour)
			activator := blocking.NewService(f.repo.BlockSettings()).WithClock(f.clock.Now).WithCache(cache, time.Hour)

			type result struct {
				status blocking.Status
				err    error
			}
			polled := make(chan result, 1)
			go func() {
				status, err := poller.Status(ctx, f.userID)
				polled <- result{status, err}
			}()
			<-gated.entered

			_, err := activator.Activate(ctx, f.userID, "week")
			require.NoError(t, err)

			close(gated.release)
			got := <-polled
			require.NoError(t, got.err)
			assert.Equal(t, tt.wantPolled, got.status.BlockRiskSettings)

			record, err := f.repo.BlockSettings().Get(ctx, f.userID)
			require.NoError(t, err)
			assert.True(t, record.Active(f.clock.Now()), "the new block must survive the stale read")

			cached, ok, _ := cache.Get(ctx, f.userID.String())
			require.True(t, ok)
			assert.True(t, cached.BlockRiskSettings, "a stale read must not replace the cached block")

			status, err := poller.Status(ctx, f.userID)
			require.NoError(t, err)
			assert.True(t, status.BlockRiskSettings)
		})
	}
}

func TestRepositoryClearExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	repo := f.repo.BlockSettings()
	until := date("2025-03-12T23:59:59.999Z")

	cleared, err := repo.ClearExpired(ctx, f.userID, date("2025-03-13T00:00:00Z"))
	require.NoError(t, err)
	assert.False(t, cleared, "no row")

	require.NoError(t, repo.Upsert(ctx, &blocking.Settings{UserID: f.userID, BlockRiskSettings: true, BlockUntil: &until}))

	cleared, err = repo.ClearExpired(ctx, f.userID, date("2025-03-12T10:00:00Z"))
	require.NoError(t, err)
	assert.False(t, cleared, "block still in force")

	record, err := repo.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, record.BlockRiskSettings)

	cleared, err = repo.ClearExpired(ctx, f.userID, date("2025-03-13T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, cleared)

	record, err = repo.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, record.BlockRiskSettings)
	assert.Nil(t, record.BlockUntil)

	cleared, err = repo.ClearExpired(ctx, f.userID, date("2025-03-13T00:00:00Z"))
	require.NoError(t, err)
	assert.False(t, cleared, "already cleared")
}

func TestServiceDropsStaleCachedBlock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cache := newMemoryCache()
	f.service.WithCache(cache, time.Hour)

	_, err := f.service.Activate(ctx, f.userID, "day")
	require.NoError(t, err)

	f.clock.Set(date("2025-03-13T08:00:00Z"))
	status, err := f.service.Status(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, status.BlockRiskSettings)

	cached, ok, _ := cache.Get(ctx, f.userID.String())
	require.True(t, ok)
	assert.False(t, cached.BlockRiskSettings)
	assert.Equal(t, time.Hour, cache.ttls[f.userID.String()])
}
