package services

import (
	"sync"

	"hcda/dataset"
	"hcda/models"
)

// HistoryCache loads the hospital table once and serves it to every request.
// Failed loads are not cached so a fixed file is picked up on the next call.
type HistoryCache struct {
	path string
	load func(path string) ([]models.HospitalDailyRecord, error)

	mu      sync.Mutex
	records []models.HospitalDailyRecord
}

func NewHistoryCache(path string) *HistoryCache {
	return &HistoryCache{path: path, load: dataset.LoadHistory}
}

// Records returns the cached table. Callers must not modify it.
func (c *HistoryCache) Records() ([]models.HospitalDailyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.records != nil {
		return c.records, nil
	}
	records, err := c.load(c.path)
	if err != nil {
		return nil, err
	}
	c.records = records
	return records, nil
}

func (c *HistoryCache) Path() string { return c.path }
