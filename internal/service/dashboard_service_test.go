package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/dto"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type mockDashboardRepo struct {
	counterCalls int
}

func (m *mockDashboardRepo) Counters(ctx context.Context) (*dto.DashboardMetrics, error) {
	m.counterCalls++
	return &dto.DashboardMetrics{TotalEstudiantes: 120, ProgramasActivos: 4, IngresosMes: 18500}, nil
}

func (m *mockDashboardRepo) StateDistribution(ctx context.Context) ([]dto.ProgramStateCount, error) {
	return []dto.ProgramStateCount{{Estado: "EN_CURSO", Total: 3}}, nil
}

func (m *mockDashboardRepo) Occupancy(ctx context.Context) ([]dto.ProgramOccupancyEntry, error) {
	return nil, nil
}

type mockDashboardCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mockDashboardCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *mockDashboardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = nil
	return nil
}

func TestDashboardMetricsServesFromCache(t *testing.T) {
	repo := &mockDashboardRepo{}
	cache := &mockDashboardCache{}
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())

	first, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, first.TotalEstudiantes)
	assert.Equal(t, 1, repo.counterCalls)

	second, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalEstudiantes, second.TotalEstudiantes)
	assert.Equal(t, 1, repo.counterCalls)
}

func TestDashboardInvalidateForcesRecompute(t *testing.T) {
	repo := &mockDashboardRepo{}
	cache := &mockDashboardCache{}
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())

	_, err := svc.Metrics(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())
	require.Contains(t, cache.deleted, "dashboard:*")

	_, err = svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.counterCalls)
}

func TestDashboardMetricsWorksWithoutCache(t *testing.T) {
	repo := &mockDashboardRepo{}
	svc := NewDashboardService(repo, nil, time.Minute, zap.NewNop())

	metrics, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, metrics.ProgramasActivos)
	require.Len(t, metrics.Distribucion, 1)
}
