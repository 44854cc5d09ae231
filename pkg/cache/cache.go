// Package cache stores encoded partial graphs served by the backend.
//
// Three stores are provided:
//   - [NullCache] never stores anything and is the default
//   - [FileCache] keeps entries as JSON files on local disk
//   - [RedisCache] shares entries between server instances
//
// Keys are produced by a [Keyer]. Every key embeds the backend fingerprint,
// so a reload, a head change or a module toggle yields fresh keys and stale
// entries simply age out.
//
// [Instrument] wraps any store so that hits, misses and writes are reported
// to the observability cache hooks.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value. A miss reports ok=false with a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys for backend responses.
type Keyer interface {
	// RangeKey identifies the partial graph for lanes [begin, end].
	RangeKey(fingerprint string, begin, end int) string
	// TimeslotsKey identifies the timeslot count.
	TimeslotsKey(fingerprint string) string
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RangeKey implements Keyer.
func (DefaultKeyer) RangeKey(fingerprint string, begin, end int) string {
	return hashKey("range", fingerprint, begin, end)
}

// TimeslotsKey implements Keyer.
func (DefaultKeyer) TimeslotsKey(fingerprint string) string {
	return hashKey("timeslots", fingerprint)
}
