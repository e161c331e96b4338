package classifier

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/finvault/docclassify/internal/core/ports"
)

// predictionCache is advisory: concurrent identical lookups may both miss
// and both write, but the value is a pure function of (model, version,
// text), so last-writer-wins is harmless.
type predictionCache struct {
	lru *expirable.LRU[string, ports.Prediction]
}

func newPredictionCache(size int, ttl time.Duration) *predictionCache {
	return &predictionCache{
		lru: expirable.NewLRU[string, ports.Prediction](size, nil, ttl),
	}
}

func (c *predictionCache) get(key string) (ports.Prediction, bool) {
	return c.lru.Get(key)
}

func (c *predictionCache) add(key string, p ports.Prediction) {
	c.lru.Add(key, p)
}

func (c *predictionCache) purge() {
	c.lru.Purge()
}

// fingerprintKey binds a cached prediction to the exact model artifact that
// produced it, so a retrained model never serves stale entries.
func fingerprintKey(modelType, version, text string) string {
	return fmt.Sprintf("%s:%s:%016x", modelType, version, xxhash.Sum64String(text))
}
