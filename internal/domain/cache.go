package domain

import "time"

const (
	DefaultCacheMaxEntries    = 20
	DefaultCacheMaxTotalBytes = 2 * 1024 * 1024 * 1024 // 2GB
	DefaultCacheTTL           = 30 * time.Minute
)

type CacheConfig struct {
	MaxEntries    int           `mapstructure:"MaxEntries"`
	MaxTotalBytes int64         `mapstructure:"MaxTotalBytes"`
	TTL           time.Duration `mapstructure:"TTL"`
}

// WithDefaults подставляет значения по умолчанию вместо неположительных
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultCacheMaxEntries
	}
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = DefaultCacheMaxTotalBytes
	}
	if c.TTL <= 0 {
		c.TTL = DefaultCacheTTL
	}
	return c
}

type CacheStats struct {
	Entries        int   `json:"entries"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
	MaxSizeBytes   int64 `json:"maxSizeBytes"`
	MaxEntries     int   `json:"maxEntries"`
}
