// Package insights builds the operational dashboard summary: stock coverage,
// open audits and in-flight purchases at a glance.
package insights

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "greenstock:insights:summary"

// LowStockItem is a product below its reorder threshold.
type LowStockItem struct {
	ProductID        int64  `json:"productId"`
	Name             string `json:"name"`
	Quantity         int64  `json:"quantity"`
	ReorderThreshold int64  `json:"reorderThreshold"`
}

// Summary is the dashboard snapshot.
type Summary struct {
	ActiveProducts   int            `json:"activeProducts"`
	LowStockProducts int            `json:"lowStockProducts"`
	WorstOffenders   []LowStockItem `json:"worstOffenders,omitempty"`
	OpenAudits       int            `json:"openAudits"`
	PendingPurchases int            `json:"pendingPurchases"`
	GeneratedAt      time.Time      `json:"generatedAt"`
}

// Repository aggregates the summary from storage.
type Repository interface {
	BuildSummary(ctx context.Context) (Summary, error)
}

// Service caches the summary in Redis and collapses concurrent rebuilds.
type Service struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds Service. A nil cache client disables caching.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Load returns the summary, served from cache unless bypass is set. Cache
// failures degrade to a direct rebuild, never to an error.
func (s *Service) Load(ctx context.Context, bypass bool) (Summary, error) {
	if s.cache != nil && !bypass {
		if cached, ok := s.fromCache(ctx); ok {
			return cached, nil
		}
	}

	result, err, _ := s.group.Do(cacheKey, func() (any, error) {
		summary, err := s.repo.BuildSummary(ctx)
		if err != nil {
			return Summary{}, err
		}
		summary.GeneratedAt = s.now().UTC()
		s.store(ctx, summary)
		return summary, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

func (s *Service) fromCache(ctx context.Context) (Summary, bool) {
	payload, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("insights cache read failed", slog.Any("error", err))
		}
		return Summary{}, false
	}
	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		s.logger.Warn("insights cache payload corrupt", slog.Any("error", err))
		return Summary{}, false
	}
	return summary, true
}

func (s *Service) store(ctx context.Context, summary Summary) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("insights cache write failed", slog.Any("error", err))
	}
}
