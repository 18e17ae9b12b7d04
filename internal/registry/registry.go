package registry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soltixdb/rediswatch/internal/models"
)

// Entry is the registry's state for one polled address.
// The latest record is swapped atomically so readers never see a
// partially built status.
type Entry struct {
	target models.Target

	node  atomic.Pointer[models.NodeStatus]
	proxy atomic.Pointer[models.ProxyStatus]

	available   atomic.Bool
	lastSuccess atomic.Int64 // unix nanos, 0 = never
	failures    atomic.Int64
	inFlight    atomic.Bool
}

func newEntry(target models.Target) *Entry {
	return &Entry{target: target}
}

// Target returns the address and role of the entry
func (e *Entry) Target() models.Target {
	return e.target
}

// Addr returns the polled address
func (e *Entry) Addr() string {
	return e.target.Addr
}

// Node returns the last published node record, or nil
func (e *Entry) Node() *models.NodeStatus {
	return e.node.Load()
}

// Proxy returns the last published proxy record, or nil
func (e *Entry) Proxy() *models.ProxyStatus {
	return e.proxy.Load()
}

// PublishNode replaces the node record
func (e *Entry) PublishNode(status *models.NodeStatus) {
	e.node.Store(status)
}

// PublishProxy replaces the proxy record
func (e *Entry) PublishProxy(status *models.ProxyStatus) {
	e.proxy.Store(status)
}

// MarkAvailable records a successful collection
func (e *Entry) MarkAvailable() {
	e.available.Store(true)
	e.lastSuccess.Store(time.Now().UnixNano())
	e.failures.Store(0)
}

// MarkUnavailable marks the target unhealthy. The collection itself
// succeeded, so the failure counter is reset.
func (e *Entry) MarkUnavailable() {
	e.available.Store(false)
	e.lastSuccess.Store(time.Now().UnixNano())
	e.failures.Store(0)
}

// RecordFailure counts a failed collection. Availability is left as is.
func (e *Entry) RecordFailure() int64 {
	return e.failures.Add(1)
}

// Available reports the availability set by the last successful collection
func (e *Entry) Available() bool {
	return e.available.Load()
}

// LastSuccess returns when the last collection succeeded
func (e *Entry) LastSuccess() (time.Time, bool) {
	ns := e.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// ConsecutiveFailures returns the number of failed collections since the last success
func (e *Entry) ConsecutiveFailures() int64 {
	return e.failures.Load()
}

// TryAcquire claims the entry for one collection. It returns false while
// another collection for the same address is running.
func (e *Entry) TryAcquire() bool {
	return e.inFlight.CompareAndSwap(false, true)
}

// Release ends the collection started by TryAcquire
func (e *Entry) Release() {
	e.inFlight.Store(false)
}

// Registry holds the polled targets keyed by address
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty registry
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add inserts target on first discovery. An existing entry with the same
// role and proxy kind is kept; otherwise it is replaced. Returns whether a
// new entry was created.
func (r *Registry) Add(target models.Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(target)
}

func (r *Registry) addLocked(target models.Target) bool {
	if existing, ok := r.entries[target.Addr]; ok && existing.target == target {
		return false
	}
	r.entries[target.Addr] = newEntry(target)
	return true
}

// Remove drops addr after a confirmed decommission
func (r *Registry) Remove(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[addr]; !ok {
		return false
	}
	delete(r.entries, addr)
	return true
}

// Sync makes the registry hold exactly targets. It returns the addresses
// added and removed.
func (r *Registry) Sync(targets []models.Target) (added, removed []string) {
	want := make(map[string]struct{}, len(targets))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range targets {
		want[t.Addr] = struct{}{}
		if r.addLocked(t) {
			added = append(added, t.Addr)
		}
	}
	for addr := range r.entries {
		if _, ok := want[addr]; !ok {
			delete(r.entries, addr)
			removed = append(removed, addr)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Get returns the entry for addr
func (r *Registry) Get(addr string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[addr]
	return e, ok
}

// Entries returns every entry sorted by address
func (r *Registry) Entries() []*Entry {
	return r.filter(func(*Entry) bool { return true })
}

// Nodes returns the Redis node entries sorted by address
func (r *Registry) Nodes() []*Entry {
	return r.filter(func(e *Entry) bool { return e.target.Role == models.RoleNode })
}

// Proxies returns the proxy entries sorted by address
func (r *Registry) Proxies() []*Entry {
	return r.filter(func(e *Entry) bool { return e.target.Role == models.RoleProxy })
}

// Len returns the number of entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) filter(keep func(*Entry) bool) []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].target.Addr < out[j].target.Addr })
	return out
}
