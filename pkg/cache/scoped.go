package cache

// ScopedKeyer prefixes every key produced by an inner Keyer.
// Servers sharing one Redis instance scope their keys by graph file:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tracelane:"+Hash([]byte(path))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to the default one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RangeKey implements Keyer.
func (k *ScopedKeyer) RangeKey(fingerprint string, begin, end int) string {
	return k.prefix + k.inner.RangeKey(fingerprint, begin, end)
}

// TimeslotsKey implements Keyer.
func (k *ScopedKeyer) TimeslotsKey(fingerprint string) string {
	return k.prefix + k.inner.TimeslotsKey(fingerprint)
}
