package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResult(text string) *models.GenerationResult {
	return &models.GenerationResult{
		Model:     "demo:1b",
		Response:  text,
		Done:      true,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("key1", testResult("four"), time.Hour); err != nil {
		t.Fatal(err)
	}

	res, ok, err := s.Get("key1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if res.Response != "four" {
		t.Errorf("unexpected response: %s", res.Response)
	}

	_, ok, err = s.Get("other")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)

	_ = s.Put("key1", testResult("first"), time.Hour)
	if err := s.Put("key1", testResult("second"), time.Hour); err != nil {
		t.Fatal(err)
	}

	res, ok, _ := s.Get("key1")
	if !ok || res.Response != "second" {
		t.Errorf("expected overwritten entry, got %+v", res)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("overwrite must not add a second entry, got %d", stats.Entries)
	}
}

func TestZeroTTLNeverReturned(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("key1", testResult("stale"), 0); err != nil {
		t.Fatal(err)
	}

	_, ok, err := s.Get("key1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("entry with ttl=0 must be treated as absent")
	}
}

func TestTTLExpiration(t *testing.T) {
	s := newTestStore(t)

	_ = s.Put("key1", testResult("soon gone"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	_, ok, _ := s.Get("key1")
	if ok {
		t.Error("expected miss after TTL expiration")
	}
}

func TestEvictExpired(t *testing.T) {
	s := newTestStore(t)

	_ = s.Put("live", testResult("live"), time.Hour)
	_ = s.Put("dead1", testResult("dead"), 0)
	_ = s.Put("dead2", testResult("dead"), -time.Minute)

	// Accumulate a hit on the live entry first.
	_, _, _ = s.Get("live")

	n, err := s.EvictExpired()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 evicted, got %d", n)
	}

	res, ok, _ := s.Get("live")
	if !ok || res.Response != "live" {
		t.Error("unexpired entry must survive eviction")
	}

	entries, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after eviction, got %d", len(entries))
	}
	if entries[0].HitCount != 2 {
		t.Errorf("eviction must leave hit counts untouched, got %d", entries[0].HitCount)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	_ = s.Put("key1", testResult("data"), time.Hour)
	_, _, _ = s.Get("key1") // hit
	_, _, _ = s.Get("key2") // miss

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.TotalBytes == 0 {
		t.Error("expected non-zero total bytes")
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := newTestStore(t)

	_ = s.Put("key1", testResult("a"), time.Hour)
	_ = s.Put("key2", testResult("b"), time.Hour)

	deleted, err := s.Delete("key1")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("expected delete to report a removed row")
	}

	n, err := s.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry cleared, got %d", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(t)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				_ = s.Put("shared", testResult("x"), time.Hour)
				_, _, _ = s.Get("shared")
				_, _ = s.EvictExpired()
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	if _, err := s.Stats(); err != nil {
		t.Fatal(err)
	}
}
