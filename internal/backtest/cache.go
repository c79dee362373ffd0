package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/logger"
	"github.com/wonny/sigtrade/pkg/redis"
)

// resultVersion changes whenever the cached Result layout or matching rules change
const resultVersion = "v1"

// ResultCache is the subset of pkg/redis.Cache used for results
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedRunner serves repeated runs on identical input from a cache.
// A run is deterministic, so a hit is indistinguishable from a fresh run
// apart from RunID and timing. A hit reports the lookup's own timing.
type CachedRunner struct {
	runner *Runner
	cache  ResultCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedRunner wraps runner; a nil cache disables caching
func NewCachedRunner(runner *Runner, cache ResultCache, ttl time.Duration, log *logger.Logger) *CachedRunner {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = redis.TTLDefault
	}
	return &CachedRunner{runner: runner, cache: cache, ttl: ttl, logger: log}
}

// ParamsDigest hashes the parameters that affect a result (canonical JSON)
func ParamsDigest(cfg Config) string {
	payload := struct {
		Version       string   `json:"version"`
		Models        []string `json:"models"`
		Capital       float64  `json:"capital"`
		TradeFraction float64  `json:"trade_fraction"`
	}{resultVersion, cfg.Models, cfg.Capital, cfg.TradeFraction}

	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Run returns the cached result for (table.Digest, cfg) or computes and stores it.
// Tables without a digest bypass the cache. Cache failures never fail the run.
func (c *CachedRunner) Run(ctx context.Context, table *contracts.Table, cfg Config) (*Result, error) {
	if c.cache == nil || table.Digest == "" {
		return c.runner.Run(ctx, table, cfg)
	}

	startedAt := time.Now()
	key := redis.ResultKey(table.Digest, ParamsDigest(cfg))
	log := c.logger.WithField("cache_key", key)

	var cached Result
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Result cache read failed")
	} else if found {
		// timing describes this lookup, not the run that filled the cache
		cached.Cached = true
		cached.StartedAt = startedAt
		cached.Duration = time.Since(startedAt)
		log.WithField("run_id", cached.RunID).Info("Result served from cache")
		return &cached, nil
	}

	result, err := c.runner.Run(ctx, table, cfg)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		log.WithError(err).Warn("Result cache write failed")
	}
	return result, nil
}
