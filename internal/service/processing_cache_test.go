package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pdfhistory/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func processedWithThumbnails(n int) *domain.ProcessedFile {
	pages := make([]domain.PageRecord, 0, n)
	for i := 0; i < n; i++ {
		pages = append(pages, domain.PageRecord{
			ID:         fmt.Sprintf("p%d", i+1),
			PageNumber: i + 1,
			Thumbnail:  "data:image/jpeg;base64,AAAA",
		})
	}
	return &domain.ProcessedFile{Pages: pages, TotalPages: n}
}

func TestProcessingCache_SetGet(t *testing.T) {
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 5}, WithClock(clock.Now))

	pf := processedWithThumbnails(2)
	c.Set("a", pf)

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Same(t, pf, got)

	_, ok = c.Get("missing")
	require.False(t, ok)

	stats := c.Stats()
	require.Equal(t, 1, stats.Entries)
	require.Equal(t, int64(2*estimatedThumbnailBytes+estimatedEntryOverhead), stats.TotalSizeBytes)
	require.Equal(t, int64(domain.DefaultCacheMaxTotalBytes), stats.MaxSizeBytes)
}

func TestProcessingCache_SizeEstimateIgnoresPagesWithoutThumbnail(t *testing.T) {
	c := NewProcessingCache(domain.CacheConfig{})
	c.Set("a", &domain.ProcessedFile{Pages: []domain.PageRecord{{ID: "p1"}, {ID: "p2", Thumbnail: "x"}}})
	c.Set("nil", nil)

	require.Equal(t, int64(estimatedThumbnailBytes+2*estimatedEntryOverhead), c.Stats().TotalSizeBytes)

	got, ok := c.Get("nil")
	require.True(t, ok)
	require.Nil(t, got)
}

func TestProcessingCache_CapacityNeverExceeded(t *testing.T) {
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 3})
	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("k%d", i), processedWithThumbnails(i%4))
		require.LessOrEqual(t, c.Stats().Entries, 3)
	}
	require.Equal(t, []string{"k17", "k18", "k19"}, c.Keys())
}

func TestProcessingCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{TTL: time.Minute}, WithClock(clock.Now))

	c.Set("a", processedWithThumbnails(1))
	clock.Advance(time.Minute)
	require.True(t, c.Has("a"), "entry exactly at ttl is still fresh")

	clock.Advance(time.Millisecond)
	_, ok := c.Get("a")
	require.False(t, ok)
	require.False(t, c.Has("a"))

	stats := c.Stats()
	require.Equal(t, 0, stats.Entries)
	require.Equal(t, int64(0), stats.TotalSizeBytes)
}

func TestProcessingCache_HasExpiresButDoesNotRefresh(t *testing.T) {
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 2}, WithClock(clock.Now))

	c.Set("a", nil)
	clock.Advance(time.Second)
	c.Set("b", nil)
	clock.Advance(time.Second)

	require.True(t, c.Has("a"))
	clock.Advance(time.Second)
	c.Set("c", nil)

	require.False(t, c.Has("a"), "has must not refresh lastAccessed")
	require.True(t, c.Has("b"))
	require.True(t, c.Has("c"))
}

func TestProcessingCache_SetCleansUpExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{TTL: time.Minute}, WithClock(clock.Now))

	c.Set("old", processedWithThumbnails(3))
	clock.Advance(2 * time.Minute)
	c.Set("new", nil)

	require.Equal(t, []string{"new"}, c.Keys())
	require.Equal(t, int64(estimatedEntryOverhead), c.Stats().TotalSizeBytes)
}

func TestProcessingCache_LRUEviction(t *testing.T) {
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 2}, WithClock(clock.Now))

	c.Set("A", processedWithThumbnails(1))
	clock.Advance(time.Second)
	c.Set("B", processedWithThumbnails(1))
	clock.Advance(time.Second)

	_, ok := c.Get("A")
	require.True(t, ok)
	clock.Advance(time.Second)

	c.Set("C", processedWithThumbnails(1))

	require.Equal(t, []string{"A", "C"}, c.Keys())
	require.False(t, c.Has("B"))
}

func TestProcessingCache_LRUTieBrokenByAccessOrder(t *testing.T) {
	// часы стоят: все lastAccessed равны
	clock := newFakeClock()
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 2}, WithClock(clock.Now))

	c.Set("A", nil)
	c.Set("B", nil)
	_, _ = c.Get("A")
	c.Set("C", nil)

	require.Equal(t, []string{"A", "C"}, c.Keys())
}

func TestProcessingCache_EvictsForByteBudget(t *testing.T) {
	clock := newFakeClock()
	budget := int64(2*estimatedThumbnailBytes + 2*estimatedEntryOverhead)
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 10, MaxTotalBytes: budget}, WithClock(clock.Now))

	c.Set("a", processedWithThumbnails(1))
	clock.Advance(time.Second)
	c.Set("b", processedWithThumbnails(1))
	clock.Advance(time.Second)
	require.Equal(t, budget, c.Stats().TotalSizeBytes)

	c.Set("c", processedWithThumbnails(1))
	require.Equal(t, []string{"b", "c"}, c.Keys())
	require.Equal(t, budget, c.Stats().TotalSizeBytes)
}

func TestProcessingCache_OversizedEntryStillInserted(t *testing.T) {
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 10, MaxTotalBytes: 1024})

	c.Set("small", nil)
	c.Set("huge", processedWithThumbnails(10))

	require.Equal(t, []string{"huge"}, c.Keys())
	stats := c.Stats()
	require.Equal(t, 1, stats.Entries)
	require.Greater(t, stats.TotalSizeBytes, stats.MaxSizeBytes)
}

func TestProcessingCache_OverwriteReplacesSize(t *testing.T) {
	c := NewProcessingCache(domain.CacheConfig{MaxEntries: 2})

	c.Set("a", processedWithThumbnails(5))
	c.Set("b", nil)
	c.Set("a", processedWithThumbnails(1))

	require.Equal(t, []string{"a", "b"}, c.Keys(), "overwrite must not evict an unrelated entry")
	require.Equal(t, int64(estimatedThumbnailBytes+2*estimatedEntryOverhead), c.Stats().TotalSizeBytes)
}

func TestProcessingCache_DeleteAndClear(t *testing.T) {
	c := NewProcessingCache(domain.CacheConfig{})
	c.Set("a", processedWithThumbnails(1))
	c.Set("b", processedWithThumbnails(2))

	before := c.Stats()
	c.Delete("absent")
	require.Equal(t, before, c.Stats())

	c.Delete("a")
	require.Equal(t, []string{"b"}, c.Keys())
	require.Equal(t, int64(2*estimatedThumbnailBytes+estimatedEntryOverhead), c.Stats().TotalSizeBytes)

	c.Clear()
	require.Empty(t, c.Keys())
	require.Equal(t, int64(0), c.Stats().TotalSizeBytes)
}

func TestCacheKey(t *testing.T) {
	modified := time.UnixMilli(1700000000123)
	require.Equal(t, "report.pdf-2048-1700000000123", CacheKey("report.pdf", 2048, modified))
}
