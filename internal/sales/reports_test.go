package sales

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-pos/atlas-pos/internal/platform/cache"
)

func newTestCache(t *testing.T) (*cache.Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCache(client, "reports", time.Minute), client
}

func sellOne(t *testing.T, svc *Service, productID, qty int64) Sale {
	t.Helper()
	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Lines:         []SaleLineInput{{ProductID: productID, Quantity: qty}},
		PaymentMethod: PaymentCard,
	})
	require.NoError(t, err)
	return sale
}

func TestDailyReportCachesResult(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 2.50, 100))
	reportCache, client := newTestCache(t)
	svc := NewService(repo, nil, nil, nil, reportCache)
	reports := NewReports(repo, reportCache)

	sellOne(t, svc, 1, 4)

	day := time.Now()
	report, err := reports.Daily(context.Background(), day)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.SaleCount)
	require.InDelta(t, 10.00, report.NetSales, 1e-9)
	require.InDelta(t, 10.00, report.AverageBill, 1e-9)
	require.InDelta(t, 10.00, report.MinBill, 1e-9)
	require.InDelta(t, 10.00, report.MaxBill, 1e-9)

	keys, err := client.Keys(context.Background(), "reports:daily:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)

	// Mutating the repo behind the cache must not change the cached value.
	repo.sales = nil
	cached, err := reports.Daily(context.Background(), day)
	require.NoError(t, err)
	require.EqualValues(t, 1, cached.SaleCount)
}

func TestSaleCommitInvalidatesReportCache(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 2.50, 100))
	reportCache, _ := newTestCache(t)
	svc := NewService(repo, nil, nil, nil, reportCache)
	reports := NewReports(repo, reportCache)

	sellOne(t, svc, 1, 1)

	day := time.Now()
	first, err := reports.Daily(context.Background(), day)
	require.NoError(t, err)
	require.EqualValues(t, 1, first.SaleCount)

	// A second sale bumps the cache version, so the next read recomputes.
	sellOne(t, svc, 1, 2)

	second, err := reports.Daily(context.Background(), day)
	require.NoError(t, err)
	require.EqualValues(t, 2, second.SaleCount)
	require.InDelta(t, 7.50, second.NetSales, 1e-9)
	require.InDelta(t, 3.75, second.AverageBill, 1e-9)
	require.InDelta(t, 2.50, second.MinBill, 1e-9)
	require.InDelta(t, 5.00, second.MaxBill, 1e-9)
}

func TestTopProductsOrdering(t *testing.T) {
	repo := newMemoryRepo(
		testProduct(1, "Milk", 2.50, 100),
		testProduct(2, "Bread", 1.20, 100),
	)
	reportCache, _ := newTestCache(t)
	svc := NewService(repo, nil, nil, nil, reportCache)
	reports := NewReports(repo, reportCache)

	sellOne(t, svc, 1, 2)
	sellOne(t, svc, 2, 7)

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)
	top, err := reports.TopProducts(context.Background(), from, to, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Bread", top[0].ProductName)
	require.Equal(t, "BBread", top[0].Barcode)
	require.EqualValues(t, 7, top[0].QuantitySold)
	require.InDelta(t, 1.20, top[0].AveragePrice, 1e-9)
}

func TestTopProductsValidatesWindow(t *testing.T) {
	repo := newMemoryRepo()
	reportCache, _ := newTestCache(t)
	reports := NewReports(repo, reportCache)

	now := time.Now()
	_, err := reports.TopProducts(context.Background(), now, now, 10)
	require.Error(t, err)
}

func TestReportsWorkWithoutRedis(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 2.50, 100))
	svc := NewService(repo, nil, nil, nil, nil)
	reports := NewReports(repo, cache.NewCache(nil, "reports", time.Minute))

	sellOne(t, svc, 1, 3)

	report, err := reports.Daily(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, report.SaleCount)
}
