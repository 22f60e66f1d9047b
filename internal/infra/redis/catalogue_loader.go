package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/catalogue"
)

const catalogueKey = "catalogue:records"

// CatalogueLoader caches the full record set in Redis in front of a slower
// loader (Postgres), so restarts skip the backing store while the cache is
// warm.
type CatalogueLoader struct {
	client *redis.Client
	inner  catalogue.Loader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogueLoader(client *redis.Client, inner catalogue.Loader, ttl time.Duration) *CatalogueLoader {
	return &CatalogueLoader{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *CatalogueLoader) LoadAll(ctx context.Context) ([]catalogue.Record, error) {
	if records, ok := l.fromCache(ctx); ok {
		return records, nil
	}

	result, err, _ := l.sf.Do(catalogueKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if records, ok := l.fromCache(ctx); ok {
			return records, nil
		}

		records, err := l.inner.LoadAll(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("marshal catalogue: %w", err)
		}
		// Best-effort fill; the loaded records are good either way.
		_ = l.client.Set(ctx, catalogueKey, raw, l.ttlWithJitter()).Err()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]catalogue.Record), nil
}

func (l *CatalogueLoader) fromCache(ctx context.Context) ([]catalogue.Record, bool) {
	raw, err := l.client.Get(ctx, catalogueKey).Bytes()
	if err != nil {
		return nil, false
	}
	var records []catalogue.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (l *CatalogueLoader) ttlWithJitter() time.Duration {
	if l.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(l.ttl) / 10
	return l.ttl + time.Duration(l.rnd.Int63n(jitterMax+1))
}
