package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/accordmusic/accord-backend/pkg/enums"
)

// StatusCache maps lifecycle status names to their stable row ids. The
// order_statuses table is immutable reference data, so the cache is loaded
// once at startup and shared across requests.
type StatusCache struct {
	mu     sync.RWMutex
	byName map[enums.OrderStatus]int64
	byID   map[int64]enums.OrderStatus
}

// NewStatusCache returns an empty cache. Call Refresh before first use.
func NewStatusCache() *StatusCache {
	return &StatusCache{
		byName: map[enums.OrderStatus]int64{},
		byID:   map[int64]enums.OrderStatus{},
	}
}

// Refresh replaces the cache contents from the reference rows. Every known
// lifecycle status must be present.
func (c *StatusCache) Refresh(ctx context.Context, repo Repository) error {
	rows, err := repo.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("loading order statuses: %w", err)
	}

	byName := make(map[enums.OrderStatus]int64, len(rows))
	byID := make(map[int64]enums.OrderStatus, len(rows))
	for _, row := range rows {
		status, err := enums.ParseOrderStatus(row.Name)
		if err != nil {
			return fmt.Errorf("unknown status %q in order_statuses: %w", row.Name, err)
		}
		byName[status] = row.ID
		byID[row.ID] = status
	}
	for _, status := range enums.OrderStatuses() {
		if _, ok := byName[status]; !ok {
			return fmt.Errorf("order_statuses table missing %q", status)
		}
	}

	c.mu.Lock()
	c.byName = byName
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// IDFor resolves a status name to its row id.
func (c *StatusCache) IDFor(status enums.OrderStatus) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[status]
	return id, ok
}

// StatusFor resolves a row id back to its status name.
func (c *StatusCache) StatusFor(id int64) (enums.OrderStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.byID[id]
	return status, ok
}
