// Package rates maintains the conversion rate between the ledger's
// native asset and the platform's display currency. The cache degrades
// instead of failing: stale beats missing, and a hardcoded fallback
// beats nothing at all.
package rates

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// CacheTTL is how long a fetched rate is served without refresh.
	CacheTTL = 60 * time.Second

	// FetchTimeout bounds a single oracle call.
	FetchTimeout = 5 * time.Second
)

// FallbackRate is served when the oracle is unreachable and no rate was
// ever cached.
var FallbackRate = decimal.RequireFromString("28.60")

// PriceOracle is the external price feed contract, called at most once
// per refresh cycle.
type PriceOracle interface {
	Price(ctx context.Context, asset, vsCurrency string) (decimal.Decimal, error)
}

type snapshot struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Cache is a single shared instance injected into every consumer. The
// snapshot is mutex-guarded; a racing refresh may fetch twice but can
// never corrupt the value readers observe.
type Cache struct {
	oracle     PriceOracle
	asset      string
	vsCurrency string
	log        *logrus.Logger

	mu   sync.Mutex
	snap *snapshot

	now func() time.Time
}

func NewCache(oracle PriceOracle, asset, vsCurrency string, log *logrus.Logger) *Cache {
	return &Cache{
		oracle:     oracle,
		asset:      asset,
		vsCurrency: vsCurrency,
		log:        log,
		now:        time.Now,
	}
}

// GetRate returns the current conversion rate. It never fails: a fresh
// snapshot is served as-is, an expired one triggers a bounded refresh,
// and on refresh failure the stale snapshot (or the fixed fallback) is
// returned instead of an error.
func (c *Cache) GetRate(ctx context.Context) decimal.Decimal {
	c.mu.Lock()
	if c.snap != nil && c.now().Sub(c.snap.fetchedAt) < CacheTTL {
		rate := c.snap.rate
		c.mu.Unlock()
		return rate
	}
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	rate, err := c.oracle.Price(fetchCtx, c.asset, c.vsCurrency)
	if err != nil || !rate.IsPositive() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.snap != nil {
			c.log.WithError(err).Warn("Rate refresh failed, serving stale rate")
			return c.snap.rate
		}
		c.log.WithError(err).Warn("Rate refresh failed with empty cache, serving fallback rate")
		return FallbackRate
	}

	c.mu.Lock()
	c.snap = &snapshot{rate: rate, fetchedAt: c.now()}
	c.mu.Unlock()

	c.log.WithField("rate", rate.String()).Info("Exchange rate updated")
	return rate
}
