package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CacheRecord is the pointer half of a cached payload: the payload itself
// lives as a JSON file at FilePath. At most one live record exists per key; a
// new successful fetch replaces the prior record wholesale. Cache records are
// pure derived state - deleting them loses nothing but latency.
type CacheRecord struct {
	Key       string    `json:"key"`
	FilePath  string    `json:"file_path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserChartCacheKey builds the cache key for the per-user-per-chart keyspace.
func UserChartCacheKey(userID string, chartID uuid.UUID) string {
	return fmt.Sprintf("user_chart:%s:%s", userID, chartID)
}

// DataRequestCacheKey builds the cache key for the per-data-request keyspace.
func DataRequestCacheKey(dataRequestID uuid.UUID) string {
	return fmt.Sprintf("data_request:%s", dataRequestID)
}
