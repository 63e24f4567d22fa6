package cache

import "time"

// SetClock replaces the time source for tests.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }
