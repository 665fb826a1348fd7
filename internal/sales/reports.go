package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-pos/atlas-pos/internal/platform/cache"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Reports serves the sales aggregations, caching results in Redis. A sale
// commit bumps the cache version, so reports never serve stale numbers for
// longer than one request.
type Reports struct {
	repo  RepositoryPort
	cache *cache.Cache
}

// NewReports builds Reports. cache may be nil, in which case every call hits
// the database.
func NewReports(repo RepositoryPort, c *cache.Cache) *Reports {
	return &Reports{repo: repo, cache: c}
}

// Daily returns the aggregation for one calendar day.
func (r *Reports) Daily(ctx context.Context, day time.Time) (DailyReport, error) {
	key, err := r.cache.BuildKey(ctx, "daily", day.Format("2006-01-02"))
	if err != nil {
		return DailyReport{}, err
	}
	var report DailyReport
	err = r.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		return r.repo.DailyReport(ctx, day)
	})
	if err != nil {
		return DailyReport{}, err
	}
	return report, nil
}

// TopProducts returns the best sellers within [from, to).
func (r *Reports) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if !to.After(from) {
		return nil, shared.InvalidInput("to must be after from")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	key, err := r.cache.BuildKey(ctx, "top",
		from.Format("2006-01-02"), to.Format("2006-01-02"), fmt.Sprintf("%d", limit))
	if err != nil {
		return nil, err
	}
	var products []TopProduct
	err = r.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (interface{}, error) {
		return r.repo.TopProducts(ctx, from, to, limit)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}
