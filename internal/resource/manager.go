// Package resource implements the process-scoped registry of heavyweight
// resources (embedders, tokenizers, index handles): registration, usage
// tracking, threshold-based idle eviction, and coordinated shutdown (C10).
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Resource is anything the manager can evict and must release on shutdown.
// Embedders, rerankers, and open index handles all implement this.
type Resource interface {
	Close() error
	MemoryBytes() int64
}

// Handle is what callers borrow; it does not expose eviction control to
// the borrower, only the underlying resource and a release hook.
type Handle struct {
	Key      string
	Resource Resource
}

type entry struct {
	resource Resource
	lastUsed time.Time
	refCount int
}

// Manager tracks loaded resources by key, evicting idle ones once the
// configured memory threshold is exceeded and running a single idempotent
// shutdown across all of them on process exit.
type Manager struct {
	mu          sync.Mutex
	entries     map[string]*entry
	order       *lru.Cache[string, struct{}] // tracks recency for idle eviction order
	maxIdle     time.Duration
	memoryLimit int64
	closed      bool
}

// Config configures the manager's eviction policy.
type Config struct {
	// MaxIdle is how long a resource may sit unused before it is eligible
	// for eviction.
	MaxIdle time.Duration
	// MemoryLimitBytes is the resident budget across all registered
	// resources; exceeding it triggers eviction of idle resources before a
	// new one is allowed to register.
	MemoryLimitBytes int64
}

// DefaultConfig returns sensible defaults: 10 minutes idle, 2GiB budget.
func DefaultConfig() Config {
	return Config{MaxIdle: 10 * time.Minute, MemoryLimitBytes: 2 << 30}
}

// NewManager constructs a Manager. trackCapacity bounds the LRU recency
// structure's own size, independent of how many resources are registered.
func NewManager(cfg Config, trackCapacity int) *Manager {
	if trackCapacity <= 0 {
		trackCapacity = 256
	}
	order, _ := lru.New[string, struct{}](trackCapacity)
	return &Manager{
		entries:     make(map[string]*entry),
		order:       order,
		maxIdle:     cfg.MaxIdle,
		memoryLimit: cfg.MemoryLimitBytes,
	}
}

// Register adds a resource under key, evicting idle resources first if the
// combined memory footprint would exceed the configured limit.
func (m *Manager) Register(ctx context.Context, key string, r Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("resource manager is shut down")
	}
	if _, exists := m.entries[key]; exists {
		return fmt.Errorf("resource %q already registered", key)
	}

	if m.totalMemoryLocked()+r.MemoryBytes() > m.memoryLimit {
		m.evictIdleLocked(r.MemoryBytes())
	}

	m.entries[key] = &entry{resource: r, lastUsed: time.Now()}
	m.order.Add(key, struct{}{})
	return nil
}

// Borrow touches key's last-used timestamp and returns its handle. The
// caller does not own the resource's lifetime; it only uses it for the
// duration of the call.
func (m *Manager) Borrow(ctx context.Context, key string) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Handle{}, false
	}
	e.lastUsed = time.Now()
	e.refCount++
	m.order.Add(key, struct{}{})
	return Handle{Key: key, Resource: e.resource}, true
}

// Release signals the caller is done with a borrowed handle.
func (m *Manager) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && e.refCount > 0 {
		e.refCount--
	}
}

func (m *Manager) totalMemoryLocked() int64 {
	var total int64
	for _, e := range m.entries {
		total += e.resource.MemoryBytes()
	}
	return total
}

// evictIdleLocked evicts idle (refCount == 0, past MaxIdle) resources,
// oldest-used first, until there is headroom for `needed` additional bytes
// or no more idle resources remain.
func (m *Manager) evictIdleLocked(needed int64) {
	for {
		if m.totalMemoryLocked()+needed <= m.memoryLimit {
			return
		}
		victim := m.oldestIdleLocked()
		if victim == "" {
			return
		}
		if e, ok := m.entries[victim]; ok {
			_ = e.resource.Close()
			delete(m.entries, victim)
		}
	}
}

// oldestIdleLocked returns the least-recently-touched eligible resource,
// walking m.order's recency list (oldest first) rather than an unordered
// map scan, so eviction order matches actual access recency.
func (m *Manager) oldestIdleLocked() string {
	now := time.Now()
	for _, key := range m.order.Keys() {
		e, ok := m.entries[key]
		if !ok {
			continue
		}
		if e.refCount > 0 {
			continue
		}
		if now.Sub(e.lastUsed) < m.maxIdle {
			continue
		}
		return key
	}
	return ""
}

// EvictIdle runs an explicit idle sweep outside the register path, e.g. on
// a periodic timer.
func (m *Manager) EvictIdle(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for {
		victim := m.oldestIdleLocked()
		if victim == "" {
			break
		}
		if e, ok := m.entries[victim]; ok {
			_ = e.resource.Close()
			delete(m.entries, victim)
			evicted++
		}
	}
	return evicted
}

// Shutdown closes every registered resource exactly once. It is idempotent
// and safe to call concurrently with Borrow/Release; subsequent Register
// calls fail once shut down.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for key, e := range m.entries {
		if err := e.resource.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close resource %q: %w", key, err)
		}
	}
	m.entries = make(map[string]*entry)
	return firstErr
}

// Stats reports current registration count and total tracked memory, for
// the engine's Stats operation.
type Stats struct {
	ResourceCount int
	TotalBytes    int64
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{ResourceCount: len(m.entries), TotalBytes: m.totalMemoryLocked()}
}
