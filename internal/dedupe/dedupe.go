// Package dedupe implements the transmit-side dedupe cache (C5): a
// bounded per-output-channel set of recently queued CRCs, used by the
// digipeater to suppress re-transmitting a frame it has already sent
// on a given channel within the configured TTL.
package dedupe

import (
	"sync"
	"time"

	"github.com/doismellburning/samoyed/internal/hdlc"
)

// Key identifies one dedupe entry: the CRC of source+destination+info
// (repeater list intentionally excluded, per spec.md §3 "Dedupe
// entry") on a particular output channel.
type Key struct {
	Chan int
	CRC  uint16
}

// KeyFor computes the Key for a frame bound for toChan as the CRC-16
// (hdlc.FCS) of source+destination+info (spec.md §3).
func KeyFor(toChan int, source, destination, info []byte) Key {
	buf := make([]byte, 0, len(source)+len(destination)+len(info))
	buf = append(buf, source...)
	buf = append(buf, destination...)
	buf = append(buf, info...)
	return Key{Chan: toChan, CRC: hdlc.FCS(buf)}
}

type entry struct {
	expiry time.Time
}

// Cache is a TTL-bounded dedupe set. Per spec.md §4.5 it is written by
// a single digipeater worker per direction, so a plain mutex-guarded
// map is enough; every method takes the mutex (grounded on the
// teacher's in-memory kv.Set/Expire shape, simplified since
// multi-writer xsync.Map use is unneeded here).
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
	ttl     time.Duration
	maxLen  int
}

// New builds a Cache with the given TTL (spec.md default 30s) and an
// optional hard cap on entry count (0 = unbounded) to limit memory.
func New(ttl time.Duration, maxLen int) *Cache {
	return &Cache{
		entries: make(map[Key]entry),
		ttl:     ttl,
		maxLen:  maxLen,
	}
}

// Seen reports whether key has a live (non-expired) entry, lazily
// evicting it first if it has expired.
func (c *Cache) Seen(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(e.expiry) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Insert records key as seen now, expiring after the cache's TTL.
func (c *Cache) Insert(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxLen > 0 && len(c.entries) >= c.maxLen {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{expiry: time.Now().Add(c.ttl)}
}

// evictOldestLocked drops one expired entry if any exists, else the
// single oldest entry, to make room under the hard cap. Callers must
// hold c.mu.
func (c *Cache) evictOldestLocked() {
	now := time.Now()
	var oldestKey Key
	oldestExpiry := now.Add(c.ttl + time.Hour)
	found := false
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
			return
		}
		if e.expiry.Before(oldestExpiry) {
			oldestExpiry = e.expiry
			oldestKey = k
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// Sweep removes every expired entry; intended to be called
// periodically by internal/scheduler so idle channels don't carry
// stale entries until their next lookup.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, including not-yet-evicted
// expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
