// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on a metrics backend to the viewer or the backend server.
// Consumers register hooks at startup to receive events about window
// synchronization, response caching and backend RPCs.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation in prometheus.go is registered by the
// serve command; every other binary runs with the no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.Register(observability.NewPrometheus(prometheus.DefaultRegisterer))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Sync().OnSyncIssued(ctx, seq, len(lanes), force)
//	// ... wait for the range response ...
//	observability.Sync().OnSyncApplied(ctx, seq, nodes, edges, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Sync Hooks
// =============================================================================

// SyncHooks receives events from the viewer's window synchronizer.
type SyncHooks interface {
	// OnSyncIssued records a range query leaving the viewer.
	OnSyncIssued(ctx context.Context, seq uint64, lanes int, forced bool)

	// OnSyncApplied records a response merged into the live graph.
	OnSyncApplied(ctx context.Context, seq uint64, nodes, edges int, duration time.Duration)

	// OnSyncDiscarded records a response dropped because a newer one was
	// already applied.
	OnSyncDiscarded(ctx context.Context, seq uint64)

	// OnSyncFailed records a range query that failed in transport or parsing.
	OnSyncFailed(ctx context.Context, seq uint64, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// RPC Hooks
// =============================================================================

// RPCHooks receives events for backend calls, on both sides of the wire.
type RPCHooks interface {
	// OnRequest records an incoming or outgoing call.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed call.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)

	// OnError records a transport failure.
	OnError(ctx context.Context, method, route string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSyncHooks is a no-op implementation of SyncHooks.
type NoopSyncHooks struct{}

func (NoopSyncHooks) OnSyncIssued(context.Context, uint64, int, bool)                {}
func (NoopSyncHooks) OnSyncApplied(context.Context, uint64, int, int, time.Duration) {}
func (NoopSyncHooks) OnSyncDiscarded(context.Context, uint64)                        {}
func (NoopSyncHooks) OnSyncFailed(context.Context, uint64, error)                    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopRPCHooks is a no-op implementation of RPCHooks.
type NoopRPCHooks struct{}

func (NoopRPCHooks) OnRequest(context.Context, string, string)                      {}
func (NoopRPCHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopRPCHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	syncHooks  SyncHooks  = NoopSyncHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	rpcHooks   RPCHooks   = NoopRPCHooks{}
	hooksMu    sync.RWMutex
)

// SetSyncHooks registers custom sync hooks.
// This should be called once at application startup before any session opens.
func SetSyncHooks(h SyncHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		syncHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRPCHooks registers custom RPC hooks.
func SetRPCHooks(h RPCHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rpcHooks = h
	}
}

// Register installs a value implementing all three hook interfaces.
func Register(h interface {
	SyncHooks
	CacheHooks
	RPCHooks
}) {
	SetSyncHooks(h)
	SetCacheHooks(h)
	SetRPCHooks(h)
}

// Sync returns the registered sync hooks.
func Sync() SyncHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return syncHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// RPC returns the registered RPC hooks.
func RPC() RPCHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rpcHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	syncHooks = NoopSyncHooks{}
	cacheHooks = NoopCacheHooks{}
	rpcHooks = NoopRPCHooks{}
}
