package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/infra/memory"
)

func TestCatalogueLoaderCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingLoader{
		Loader: memory.NewStaticCatalogueLoader([]catalogue.Record{
			{Vnum: 1, Year: 2011, ImageName1: "sword.png", Names: map[string]string{"en": "Sword"}},
		}),
	}
	loader := NewCatalogueLoader(client, inner, time.Minute)

	records, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 || records[0].Vnum != 1 {
		t.Fatalf("unexpected records %+v", records)
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner loader once, got %d", inner.calls)
	}

	// Second load should hit the cache.
	if _, err := loader.LoadAll(context.Background()); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cache hit, inner calls=%d", inner.calls)
	}
}

type countingLoader struct {
	catalogue.Loader
	calls int
}

func (l *countingLoader) LoadAll(ctx context.Context) ([]catalogue.Record, error) {
	l.calls++
	return l.Loader.LoadAll(ctx)
}
