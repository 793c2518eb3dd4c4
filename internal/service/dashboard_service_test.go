package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
)

type stubCacheRepo struct {
	entries map[string][]byte
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{entries: make(map[string][]byte)}
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

type fakeCountsProvider struct {
	counts   models.GateDashboardCounts
	err      error
	calls    int
	dayStart time.Time
	dayEnd   time.Time
}

func (f *fakeCountsProvider) DashboardCounts(_ context.Context, dayStart, dayEnd time.Time) (models.GateDashboardCounts, error) {
	f.calls++
	f.dayStart = dayStart
	f.dayEnd = dayEnd
	return f.counts, f.err
}

func TestDashboardServiceGateComputesAndCaches(t *testing.T) {
	provider := &fakeCountsProvider{
		counts: models.GateDashboardCounts{
			IssuedToday:    12,
			CurrentlyOut:   3,
			ReturnedToday:  8,
			CancelledToday: 1,
			VisitorsOnSite: 2,
		},
	}
	cacheSvc := NewCacheService(newStubCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(provider, cacheSvc, zap.NewNop(), DashboardServiceConfig{CacheTTL: time.Minute})

	first, cached, err := svc.Gate(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 12, first.IssuedToday)
	assert.Equal(t, 3, first.CurrentlyOut)

	second, cached, err := svc.Gate(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.IssuedToday, second.IssuedToday)
	assert.Equal(t, 1, provider.calls)
}

func TestDashboardServiceInvalidateGateForcesRecompute(t *testing.T) {
	provider := &fakeCountsProvider{counts: models.GateDashboardCounts{IssuedToday: 5}}
	cacheSvc := NewCacheService(newStubCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(provider, cacheSvc, zap.NewNop(), DashboardServiceConfig{})

	_, _, err := svc.Gate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	svc.InvalidateGate(context.Background())

	_, cached, err := svc.Gate(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, provider.calls)
}

func TestDashboardServiceGateWithoutCache(t *testing.T) {
	provider := &fakeCountsProvider{counts: models.GateDashboardCounts{IssuedToday: 7}}
	svc := NewDashboardService(provider, nil, zap.NewNop(), DashboardServiceConfig{})

	for i := 0; i < 2; i++ {
		summary, cached, err := svc.Gate(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, 7, summary.IssuedToday)
	}
	assert.Equal(t, 2, provider.calls)
}

func TestDashboardServiceGateUsesLocalDayBoundaries(t *testing.T) {
	provider := &fakeCountsProvider{}
	svc := NewDashboardService(provider, nil, zap.NewNop(), DashboardServiceConfig{})

	wib := time.FixedZone("WIB", 7*3600)
	svc.now = func() time.Time { return time.Date(2026, 8, 27, 1, 30, 0, 0, wib) }

	_, _, err := svc.Gate(context.Background())
	require.NoError(t, err)

	// Local midnight in WIB is 17:00 UTC the previous day.
	assert.Equal(t, time.Date(2026, 8, 26, 17, 0, 0, 0, time.UTC), provider.dayStart)
	assert.Equal(t, provider.dayStart.Add(24*time.Hour), provider.dayEnd)
}
