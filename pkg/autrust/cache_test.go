package autrust_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

func testScore(total int) autrust.Score {
	return autrust.Score{Total: total}
}

func TestLRUScoreCache_SetGet(t *testing.T) {
	cache := autrust.NewLRUScoreCache(10)

	cache.Set("seller_1", testScore(80), time.Minute)

	score, ok := cache.Get("seller_1")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if score.Total != 80 {
		t.Errorf("Expected total 80, got %d", score.Total)
	}

	if _, ok := cache.Get("seller_2"); ok {
		t.Error("Expected cache miss for unknown seller")
	}
}

func TestLRUScoreCache_TTLExpiry(t *testing.T) {
	cache := autrust.NewLRUScoreCache(10)

	cache.Set("seller_1", testScore(80), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("seller_1"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestLRUScoreCache_Invalidate(t *testing.T) {
	cache := autrust.NewLRUScoreCache(10)

	cache.Set("seller_1", testScore(80), time.Minute)
	cache.Invalidate("seller_1")

	if _, ok := cache.Get("seller_1"); ok {
		t.Error("Expected invalidated entry to miss")
	}
}

func TestLRUScoreCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := autrust.NewLRUScoreCache(3)

	cache.Set("a", testScore(1), time.Minute)
	cache.Set("b", testScore(2), time.Minute)
	cache.Set("c", testScore(3), time.Minute)

	// Touch a and b so c becomes the eviction candidate.
	time.Sleep(time.Millisecond)
	cache.Get("a")
	cache.Get("b")

	cache.Set("d", testScore(4), time.Minute)

	if _, ok := cache.Get("c"); ok {
		t.Error("Expected c to be evicted")
	}
	for _, key := range []string{"a", "b", "d"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("Expected %s to survive eviction", key)
		}
	}

	stats := cache.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.Size != 3 {
		t.Errorf("Expected size 3, got %d", stats.Size)
	}
}

func TestLRUScoreCache_Clear(t *testing.T) {
	cache := autrust.NewLRUScoreCache(10)

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("seller_%d", i), testScore(i), time.Minute)
	}
	cache.Clear()

	if size := cache.Stats().Size; size != 0 {
		t.Errorf("Expected empty cache, got size %d", size)
	}
}

func TestLRUScoreCache_Stats(t *testing.T) {
	cache := autrust.NewLRUScoreCache(10)

	cache.Set("seller_1", testScore(80), time.Minute)
	cache.Get("seller_1")
	cache.Get("seller_1")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}
