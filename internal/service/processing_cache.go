package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/domain"
)

// Оценка размера приблизительная: base64-превью страницы считаем по ~50KB,
// плюс фиксированные накладные расходы на запись.
const (
	estimatedThumbnailBytes = 50 * 1024
	estimatedEntryOverhead  = 10 * 1024
)

type cacheEntry struct {
	data         *domain.ProcessedFile
	size         int64
	createdAt    time.Time
	lastAccessed time.Time
	accessSeq    uint64
}

type CacheOption func(*ProcessingCache)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) CacheOption {
	return func(c *ProcessingCache) {
		c.now = now
	}
}

// ProcessingCache ограниченный in-memory кеш обработанных файлов.
// Лимит по байтам мягкий: одиночная запись больше лимита все равно сохраняется.
type ProcessingCache struct {
	mu        sync.Mutex
	config    domain.CacheConfig
	entries   map[string]*cacheEntry
	totalSize int64
	seq       uint64
	now       func() time.Time
}

func NewProcessingCache(config domain.CacheConfig, opts ...CacheOption) *ProcessingCache {
	c := &ProcessingCache{
		config:  config.WithDefaults(),
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey ключ кеша для файла: имя, размер и время изменения
func CacheKey(name string, size int64, modified time.Time) string {
	return fmt.Sprintf("%s-%d-%d", name, size, modified.UnixMilli())
}

func (c *ProcessingCache) Set(key string, data *domain.ProcessedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cleanupLocked(now)

	// Перезапись = удаление + вставка
	c.deleteLocked(key)

	size := estimateSize(data)
	c.makeRoomLocked(size)

	c.seq++
	c.entries[key] = &cacheEntry{
		data:         data,
		size:         size,
		createdAt:    now,
		lastAccessed: now,
		accessSeq:    c.seq,
	}
	c.totalSize += size
}

func (c *ProcessingCache) Get(key string) (*domain.ProcessedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if c.expired(entry, now) {
		c.deleteLocked(key)
		return nil, false
	}

	c.seq++
	entry.lastAccessed = now
	entry.accessSeq = c.seq
	return entry.data, true
}

// Has проверяет наличие без обновления lastAccessed
func (c *ProcessingCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(entry, c.now()) {
		c.deleteLocked(key)
		return false
	}
	return true
}

func (c *ProcessingCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

func (c *ProcessingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.totalSize = 0
}

func (c *ProcessingCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Entries:        len(c.entries),
		TotalSizeBytes: c.totalSize,
		MaxSizeBytes:   c.config.MaxTotalBytes,
		MaxEntries:     c.config.MaxEntries,
	}
}

// Keys возвращает отсортированный список ключей
func (c *ProcessingCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *ProcessingCache) expired(entry *cacheEntry, now time.Time) bool {
	return now.Sub(entry.createdAt) > c.config.TTL
}

func (c *ProcessingCache) deleteLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.totalSize -= entry.size
}

func (c *ProcessingCache) cleanupLocked(now time.Time) {
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			c.deleteLocked(key)
		}
	}
}

func (c *ProcessingCache) makeRoomLocked(needed int64) {
	for len(c.entries) > 0 &&
		(len(c.entries) >= c.config.MaxEntries || c.totalSize+needed > c.config.MaxTotalBytes) {
		c.evictLRULocked()
	}
}

func (c *ProcessingCache) evictLRULocked() {
	var (
		oldestKey string
		oldest    *cacheEntry
	)
	for key, entry := range c.entries {
		if oldest == nil || olderThan(entry, oldest) {
			oldestKey = key
			oldest = entry
		}
	}
	if oldest == nil {
		return
	}

	c.deleteLocked(oldestKey)
	log.Debug().
		Str("component", "processing_cache").
		Str("key", oldestKey).
		Str("freed", humanize.IBytes(uint64(oldest.size))).
		Str("total", humanize.IBytes(uint64(c.totalSize))).
		Msg("evicted least recently used entry")
}

func olderThan(a, b *cacheEntry) bool {
	if !a.lastAccessed.Equal(b.lastAccessed) {
		return a.lastAccessed.Before(b.lastAccessed)
	}
	return a.accessSeq < b.accessSeq
}

func estimateSize(data *domain.ProcessedFile) int64 {
	size := int64(estimatedEntryOverhead)
	if data == nil {
		return size
	}
	for _, page := range data.Pages {
		if page.Thumbnail != "" {
			size += estimatedThumbnailBytes
		}
	}
	return size
}
