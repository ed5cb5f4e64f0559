// Package metrics keeps short-lived, per-second event counts keyed by name.
package metrics

import (
	"slices"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// TimeBuckets maps the start of a second to the count recorded in it.
type TimeBuckets map[time.Time]int

// A Count records per-second counts for arbitrary keys and forgets counts older than its
// retention period. It is safe for concurrent use.
type Count struct {
	retention time.Duration
	startTime time.Time
	now       func() time.Time

	mu   sync.Mutex
	data map[string]TimeBuckets
}

func NewCount(retention time.Duration) *Count {
	return newCount(retention, time.Now)
}

func newCount(retention time.Duration, now func() time.Time) *Count {
	return &Count{
		retention: retention,
		startTime: now().Truncate(time.Second),
		now:       now,
		data:      map[string]TimeBuckets{},
	}
}

// Record adds value to the bucket for key in the current second.
func (c *Count) Record(key string, value int) {
	now := c.now()
	second := now.Truncate(time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire(now)
	buckets, ok := c.data[key]
	if !ok {
		buckets = TimeBuckets{}
		c.data[key] = buckets
	}
	buckets[second] += value
}

// Data returns a copy of the retained buckets. Every key has an entry, possibly zero, for each
// second in the retention period since the Count was created.
func (c *Count) Data() map[string]TimeBuckets {
	now := c.now()

	c.mu.Lock()
	c.expire(now)
	data := make(map[string]TimeBuckets, len(c.data))
	for key, buckets := range c.data {
		data[key] = maps.Clone(buckets)
	}
	c.mu.Unlock()

	earliest := c.threshold(now).Add(time.Second).Truncate(time.Second)
	if c.startTime.After(earliest) {
		earliest = c.startTime
	}
	for t := earliest; !t.After(now); t = t.Add(time.Second) {
		for key := range data {
			if _, ok := data[key][t]; !ok {
				data[key][t] = 0
			}
		}
	}
	return data
}

// Totals returns the sum of the retained buckets for each key.
func (c *Count) Totals() map[string]int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire(now)
	totals := make(map[string]int, len(c.data))
	for key, buckets := range c.data {
		for _, count := range buckets {
			totals[key] += count
		}
	}
	return totals
}

// Keys returns the recorded keys in sorted order.
func (c *Count) Keys() []string {
	c.mu.Lock()
	keys := maps.Keys(c.data)
	c.mu.Unlock()

	slices.Sort(keys)
	return keys
}

func (c *Count) threshold(now time.Time) time.Time {
	return now.Add(-c.retention)
}

// expire must be called with c.mu held.
func (c *Count) expire(now time.Time) {
	threshold := c.threshold(now)
	for key, buckets := range c.data {
		for _, second := range maps.Keys(buckets) {
			if second.After(threshold) {
				continue
			}
			delete(buckets, second)
		}
		if len(buckets) == 0 {
			delete(c.data, key)
		}
	}
}
