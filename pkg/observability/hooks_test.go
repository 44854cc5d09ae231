package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopSyncHooks{}
	s.OnSyncIssued(ctx, 1, 3, false)
	s.OnSyncApplied(ctx, 1, 10, 12, time.Millisecond)
	s.OnSyncDiscarded(ctx, 1)
	s.OnSyncFailed(ctx, 1, errors.New("boom"))

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "range")
	c.OnCacheMiss(ctx, "range")
	c.OnCacheSet(ctx, "range", 1024)

	r := NoopRPCHooks{}
	r.OnRequest(ctx, "GET", "/api/graph")
	r.OnResponse(ctx, "GET", "/api/graph", 200, time.Second)
	r.OnError(ctx, "GET", "/api/graph", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Sync().(NoopSyncHooks); !ok {
		t.Error("Sync() should return NoopSyncHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := RPC().(NoopRPCHooks); !ok {
		t.Error("RPC() should return NoopRPCHooks by default")
	}

	customSync := &testSyncHooks{}
	SetSyncHooks(customSync)
	if Sync() != customSync {
		t.Error("SetSyncHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customRPC := &testRPCHooks{}
	SetRPCHooks(customRPC)
	if RPC() != customRPC {
		t.Error("SetRPCHooks should set custom hooks")
	}

	Reset()
	if _, ok := Sync().(NoopSyncHooks); !ok {
		t.Error("Reset() should restore NoopSyncHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSyncHooks{}
	SetSyncHooks(custom)
	SetSyncHooks(nil)

	if Sync() != custom {
		t.Error("SetSyncHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	Register(p)
	defer Reset()

	ctx := context.Background()
	Sync().OnSyncIssued(ctx, 1, 3, false)
	Sync().OnSyncIssued(ctx, 2, 3, true)
	Sync().OnSyncIssued(ctx, 3, 3, true)
	Sync().OnSyncApplied(ctx, 3, 42, 17, 20*time.Millisecond)
	Sync().OnSyncDiscarded(ctx, 1)
	Sync().OnSyncFailed(ctx, 2, errors.New("timeout"))
	Cache().OnCacheHit(ctx, "range")
	Cache().OnCacheMiss(ctx, "range")
	Cache().OnCacheSet(ctx, "range", 512)
	RPC().OnResponse(ctx, "GET", "/api/graph", 200, time.Millisecond)
	RPC().OnError(ctx, "GET", "/api/graph", errors.New("refused"))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"issued forced", p.syncIssued.WithLabelValues("true"), 2},
		{"issued unforced", p.syncIssued.WithLabelValues("false"), 1},
		{"applied", p.syncApplied, 1},
		{"discarded", p.syncDiscarded, 1},
		{"failed", p.syncFailed, 1},
		{"window nodes", p.windowNodes, 42},
		{"window edges", p.windowEdges, 17},
		{"cache hit", p.cacheOps.WithLabelValues("range", "hit"), 1},
		{"cache bytes", p.cacheBytes.WithLabelValues("range"), 512},
		{"rpc ok", p.rpcTotal.WithLabelValues("GET", "/api/graph", "200"), 1},
		{"rpc errors", p.rpcErrors.WithLabelValues("GET", "/api/graph"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// Test implementations
type testSyncHooks struct{ NoopSyncHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testRPCHooks struct{ NoopRPCHooks }
