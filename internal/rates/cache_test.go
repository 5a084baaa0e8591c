package rates

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	calls int32
}

func (f *fakeOracle) Price(ctx context.Context, asset, vsCurrency string) (decimal.Decimal, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.rate, nil
}

func (f *fakeOracle) set(rate decimal.Decimal, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
	f.err = err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestCache(oracle PriceOracle) (*Cache, *time.Time) {
	c := NewCache(oracle, "stellar", "inr", testLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetRateCachesWithinTTL(t *testing.T) {
	oracle := &fakeOracle{rate: decimal.RequireFromString("30.5")}
	cache, now := newTestCache(oracle)

	rate := cache.GetRate(context.Background())
	assert.True(t, rate.Equal(decimal.RequireFromString("30.5")))
	require.Equal(t, int32(1), atomic.LoadInt32(&oracle.calls))

	// Oracle changes its answer but the snapshot is still fresh.
	oracle.set(decimal.RequireFromString("99"), nil)
	*now = now.Add(CacheTTL - time.Second)
	rate = cache.GetRate(context.Background())
	assert.True(t, rate.Equal(decimal.RequireFromString("30.5")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&oracle.calls))
}

func TestGetRateRefreshesAfterTTL(t *testing.T) {
	oracle := &fakeOracle{rate: decimal.RequireFromString("30.5")}
	cache, now := newTestCache(oracle)

	cache.GetRate(context.Background())
	oracle.set(decimal.RequireFromString("31.2"), nil)
	*now = now.Add(CacheTTL + time.Second)

	rate := cache.GetRate(context.Background())
	assert.True(t, rate.Equal(decimal.RequireFromString("31.2")))
	assert.Equal(t, int32(2), atomic.LoadInt32(&oracle.calls))
}

func TestGetRateServesStaleOnFailure(t *testing.T) {
	oracle := &fakeOracle{rate: decimal.RequireFromString("30.5")}
	cache, now := newTestCache(oracle)

	cache.GetRate(context.Background())
	oracle.set(decimal.Zero, errors.New("oracle down"))
	*now = now.Add(2 * CacheTTL)

	rate := cache.GetRate(context.Background())
	assert.True(t, rate.Equal(decimal.RequireFromString("30.5")), "stale rate beats failing")
}

func TestGetRateFallbackWhenNeverPopulated(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("oracle down")}
	cache, _ := newTestCache(oracle)

	rate := cache.GetRate(context.Background())
	assert.True(t, rate.Equal(FallbackRate))
}

func TestGetRateRejectsNonPositiveRate(t *testing.T) {
	oracle := &fakeOracle{rate: decimal.Zero}
	cache, _ := newTestCache(oracle)

	rate := cache.GetRate(context.Background())
	assert.True(t, rate.Equal(FallbackRate), "zero rate must not be cached")
}

func TestGetRateConcurrent(t *testing.T) {
	oracle := &fakeOracle{rate: decimal.RequireFromString("28.6")}
	cache, _ := newTestCache(oracle)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate := cache.GetRate(context.Background())
			assert.True(t, rate.Equal(decimal.RequireFromString("28.6")))
		}()
	}
	wg.Wait()
}
