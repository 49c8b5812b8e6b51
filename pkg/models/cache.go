package models

import "time"

// CacheStats reports result store performance metrics.
type CacheStats struct {
	Entries    int64 `json:"entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Expired    int64 `json:"expired"`
	TotalBytes int64 `json:"total_bytes"`
}

// CacheEntryInfo is entry metadata exposed by diagnostic exports.
// Result payloads are deliberately excluded to keep exports small.
type CacheEntryInfo struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	HitCount    int64     `json:"hit_count"`
	SizeBytes   int64     `json:"size_bytes"`
}
