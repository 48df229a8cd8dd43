package model

// UploadResult is returned to the client after a successful upload.
type UploadResult struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	FullURL  string `json:"full_url"`
}

// StorageStats is an aggregate view over all stored file records.
type StorageStats struct {
	TotalFiles    int64 `json:"total_files"`
	TotalSize     int64 `json:"total_size"`
	MemoryFiles   int64 `json:"memory_files"`
	MemoryUsageMB int64 `json:"memory_usage_mb"`
	PoolSizeMB    int64 `json:"pool_size_mb"`
}

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status            string        `json:"status"`
	Database          string        `json:"database"`
	MemoryPool        string        `json:"memory_pool"`
	ActiveConnections int64         `json:"active_connections"`
	StorageStats      *StorageStats `json:"storage_stats,omitempty"`
}
