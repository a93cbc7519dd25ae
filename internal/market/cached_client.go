package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// Cache key layouts
const (
	keyPrice   = "market:price:%s"
	keyKlines  = "market:klines:%s:%s:%d"
	keyTickers = "market:tickers:24hr"
)

// Cached TTLs. Prices go stale fast; kline windows tolerate more.
const (
	priceTTL   = 5 * time.Second
	tickersTTL = 60 * time.Second
)

// CachedClient wraps a DataSource with a Redis read-through cache.
// When Redis is unreachable it degrades to direct upstream calls.
type CachedClient struct {
	upstream  DataSource
	rdb       *redis.Client
	klinesTTL time.Duration
	logger    zerolog.Logger
}

var _ DataSource = (*CachedClient)(nil)

// NewCachedClient creates a caching layer in front of upstream. klinesTTLSeconds
// bounds how stale a cached kline window may be.
func NewCachedClient(upstream DataSource, rdb *redis.Client, klinesTTLSeconds int) *CachedClient {
	ttl := time.Duration(klinesTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedClient{
		upstream:  upstream,
		rdb:       rdb,
		klinesTTL: ttl,
		logger:    logging.WithComponent("market-cache"),
	}
}

func (c *CachedClient) GetCurrentPrice(symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf(keyPrice, symbol)
	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var price float64
		if json.Unmarshal([]byte(cached), &price) == nil && price > 0 {
			return price, nil
		}
	}

	price, err := c.upstream.GetCurrentPrice(symbol)
	if err != nil {
		return 0, err
	}

	if data, err := json.Marshal(price); err == nil {
		if err := c.rdb.Set(ctx, key, data, priceTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return price, nil
}

func (c *CachedClient) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf(keyKlines, symbol, interval, limit)
	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var klines []Kline
		if json.Unmarshal([]byte(cached), &klines) == nil && len(klines) >= limit {
			return klines, nil
		}
	}

	klines, err := c.upstream.GetKlines(symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(klines); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.klinesTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return klines, nil
}

func (c *CachedClient) Get24hrTickers() ([]Ticker24hr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if cached, err := c.rdb.Get(ctx, keyTickers).Result(); err == nil {
		var tickers []Ticker24hr
		if json.Unmarshal([]byte(cached), &tickers) == nil && len(tickers) > 0 {
			return tickers, nil
		}
	}

	tickers, err := c.upstream.Get24hrTickers()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tickers); err == nil {
		if err := c.rdb.Set(ctx, keyTickers, data, tickersTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Msg("cache write failed")
		}
	}

	return tickers, nil
}

// GetBalance is never cached: stale balances would corrupt rebalancing decisions.
func (c *CachedClient) GetBalance(asset string) (float64, error) {
	return c.upstream.GetBalance(asset)
}
