package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/tracelane/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested", "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = %v, %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "k", []byte(`{"vertices":[]}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get(k) = %v, %v; want hit", hit, err)
	}
	if string(data) != `{"vertices":[]}` {
		t.Errorf("Get(k) = %q", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "short", []byte("a"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "forever", []byte("b"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "short"); !hit {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry file should be removed")
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should never expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v; want clean miss", hit, err)
	}
}

func TestFileCachePurge(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Set(ctx, "keep", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Minute)
	n, err := c.Purge()
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 3 {
		t.Errorf("Purge removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "keep"); !hit {
		t.Error("live entry was purged")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"same range", k.RangeKey("v1;h-1;c[]", 0, 3), k.RangeKey("v1;h-1;c[]", 0, 3), true},
		{"different begin", k.RangeKey("v1;h-1;c[]", 0, 3), k.RangeKey("v1;h-1;c[]", 1, 3), false},
		{"different end", k.RangeKey("v1;h-1;c[]", 0, 3), k.RangeKey("v1;h-1;c[]", 0, 4), false},
		{"different fingerprint", k.RangeKey("v1;h-1;c[]", 0, 3), k.RangeKey("v2;h-1;c[]", 0, 3), false},
		{"range vs timeslots", k.RangeKey("v1", 0, 0), k.TimeslotsKey("v1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.a == tt.b) != tt.same {
				t.Errorf("keys %q and %q: equal=%v, want %v", tt.a, tt.b, tt.a == tt.b, tt.same)
			}
		})
	}

	if !strings.HasPrefix(k.RangeKey("f", 0, 1), "range:") {
		t.Error("range keys should carry the range: prefix")
	}
	if !strings.HasPrefix(k.TimeslotsKey("f"), "timeslots:") {
		t.Error("timeslot keys should carry the timeslots: prefix")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "tracelane:abc:")

	if got, want := scoped.RangeKey("f", 2, 5), "tracelane:abc:"+inner.RangeKey("f", 2, 5); got != want {
		t.Errorf("RangeKey = %q, want %q", got, want)
	}
	if got, want := scoped.TimeslotsKey("f"), "tracelane:abc:"+inner.TimeslotsKey("f"); got != want {
		t.Errorf("TimeslotsKey = %q, want %q", got, want)
	}

	if NewScopedKeyer(inner, "a:").RangeKey("f", 0, 0) == NewScopedKeyer(inner, "b:").RangeKey("f", 0, 0) {
		t.Error("different scopes should produce different keys")
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	k := NewScopedKeyer(nil, "p:")
	if got := k.RangeKey("f", 0, 1); got != "p:"+NewDefaultKeyer().RangeKey("f", 0, 1) {
		t.Errorf("nil inner keyer: got %q", got)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "ftp://localhost"); err == nil {
		t.Error("expected an error for a non-redis scheme")
	}
}

type recordingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
	bytes              int
}

func (h *recordingCacheHooks) OnCacheHit(context.Context, string)  { h.hits++ }
func (h *recordingCacheHooks) OnCacheMiss(context.Context, string) { h.misses++ }
func (h *recordingCacheHooks) OnCacheSet(_ context.Context, _ string, n int) {
	h.sets++
	h.bytes += n
}

func TestInstrument(t *testing.T) {
	hooks := &recordingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := Instrument(fc, "range")

	c.Get(ctx, "k")
	c.Set(ctx, "k", []byte("12345"), 0)
	c.Get(ctx, "k")
	c.Get(ctx, "k")

	if hooks.misses != 1 || hooks.hits != 2 || hooks.sets != 1 || hooks.bytes != 5 {
		t.Errorf("hooks = %+v; want 1 miss, 2 hits, 1 set of 5 bytes", *hooks)
	}
}
