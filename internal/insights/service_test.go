package insights

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	summary Summary
	calls   int
}

func (f *fakeRepo) BuildSummary(ctx context.Context) (Summary, error) {
	f.calls++
	return f.summary, nil
}

func newCachedService(t *testing.T, repo *fakeRepo, ttl time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, client, ttl, nil), mr
}

func TestLoadCachesSummary(t *testing.T) {
	repo := &fakeRepo{summary: Summary{ActiveProducts: 12, LowStockProducts: 3, OpenAudits: 1}}
	svc, _ := newCachedService(t, repo, time.Minute)

	first, err := svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 12, first.ActiveProducts)
	require.Equal(t, 1, repo.calls)

	second, err := svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt.Unix(), second.GeneratedAt.Unix())
	require.Equal(t, 1, repo.calls)
}

func TestLoadBypassRebuilds(t *testing.T) {
	repo := &fakeRepo{summary: Summary{ActiveProducts: 12}}
	svc, _ := newCachedService(t, repo, time.Minute)

	_, err := svc.Load(context.Background(), false)
	require.NoError(t, err)

	repo.summary.ActiveProducts = 15
	refreshed, err := svc.Load(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 15, refreshed.ActiveProducts)
	require.Equal(t, 2, repo.calls)

	// Bypass refreshes the cache for the next cached read.
	cached, err := svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 15, cached.ActiveProducts)
	require.Equal(t, 2, repo.calls)
}

func TestLoadRebuildsAfterTTLExpiry(t *testing.T) {
	repo := &fakeRepo{summary: Summary{ActiveProducts: 12}}
	svc, mr := newCachedService(t, repo, time.Minute)

	_, err := svc.Load(context.Background(), false)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestLoadSurvivesCorruptCachePayload(t *testing.T) {
	repo := &fakeRepo{summary: Summary{ActiveProducts: 12}}
	svc, mr := newCachedService(t, repo, time.Minute)

	require.NoError(t, mr.Set("greenstock:insights:summary", "{not json"))

	summary, err := svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 12, summary.ActiveProducts)
}

func TestLoadWithoutCacheClient(t *testing.T) {
	repo := &fakeRepo{summary: Summary{ActiveProducts: 7}}
	svc := NewService(repo, nil, time.Minute, nil)

	summary, err := svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 7, summary.ActiveProducts)

	_, err = svc.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}
