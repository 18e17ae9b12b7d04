package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	mu      sync.Mutex
	polled  map[string]int
	fail    map[string]bool
	panicOn map[string]bool
	block   chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{
		polled:  make(map[string]int),
		fail:    make(map[string]bool),
		panicOn: make(map[string]bool),
	}
}

func (f *fakeCollector) Poll(ctx context.Context, entry *registry.Entry) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxActive.Load()
		if n <= cur || f.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	f.polled[entry.Addr()]++
	fail := f.fail[entry.Addr()]
	panics := f.panicOn[entry.Addr()]
	f.mu.Unlock()

	if panics {
		panic("collector bug")
	}
	if fail {
		entry.RecordFailure()
		return errors.New("gave up after 5 attempts")
	}
	entry.MarkAvailable()
	return nil
}

func (f *fakeCollector) count(addr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polled[addr]
}

func nodeTarget(addr string) models.Target {
	return models.Target{Addr: addr, Role: models.RoleNode}
}

func proxyTarget(addr string) models.Target {
	return models.Target{Addr: addr, Role: models.RoleProxy, ProxyKind: models.ProxyKindCorvus}
}

func TestPoller_RunOnceDispatchesByRole(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))
	reg.Add(nodeTarget("10.0.0.1:7001"))
	reg.Add(proxyTarget("10.0.0.2:8889"))

	nodes, proxies := newFakeCollector(), newFakeCollector()
	p := New(Config{Workers: 2}, reg, nil, nodes, proxies, logging.NewNop())

	stats := p.RunOnce(context.Background())

	assert.NotEmpty(t, stats.CycleID)
	assert.Equal(t, 3, stats.Polled)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, nodes.count("10.0.0.1:7000"))
	assert.Equal(t, 1, nodes.count("10.0.0.1:7001"))
	assert.Zero(t, nodes.count("10.0.0.2:8889"))
	assert.Equal(t, 1, proxies.count("10.0.0.2:8889"))
}

func TestPoller_FailuresAndPanicsStayInWorker(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))
	reg.Add(nodeTarget("10.0.0.1:7001"))
	reg.Add(nodeTarget("10.0.0.1:7002"))

	nodes := newFakeCollector()
	nodes.fail["10.0.0.1:7001"] = true
	nodes.panicOn["10.0.0.1:7002"] = true
	p := New(Config{Workers: 4}, reg, nil, nodes, newFakeCollector(), logging.NewNop())

	stats := p.RunOnce(context.Background())

	assert.Equal(t, 3, stats.Polled)
	assert.Equal(t, 2, stats.Failed)

	ok, _ := reg.Get("10.0.0.1:7000")
	assert.True(t, ok.Available())
	failed, _ := reg.Get("10.0.0.1:7001")
	assert.False(t, failed.Available())
	assert.Equal(t, int64(1), failed.ConsecutiveFailures())
	panicked, _ := reg.Get("10.0.0.1:7002")
	assert.Equal(t, int64(1), panicked.ConsecutiveFailures())
}

func TestPoller_WorkerLimit(t *testing.T) {
	reg := registry.New()
	for _, addr := range []string{"10.0.0.1:1", "10.0.0.1:2", "10.0.0.1:3", "10.0.0.1:4", "10.0.0.1:5", "10.0.0.1:6"} {
		reg.Add(nodeTarget(addr))
	}

	nodes := newFakeCollector()
	nodes.block = make(chan struct{})
	p := New(Config{Workers: 2}, reg, nil, nodes, newFakeCollector(), logging.NewNop())

	done := make(chan CycleStats)
	go func() { done <- p.RunOnce(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	close(nodes.block)
	stats := <-done

	assert.Equal(t, 6, stats.Polled)
	assert.LessOrEqual(t, nodes.maxActive.Load(), int32(2))
}

func TestPoller_SkipsInFlightEntries(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))
	reg.Add(nodeTarget("10.0.0.1:7001"))

	busy, _ := reg.Get("10.0.0.1:7000")
	require.True(t, busy.TryAcquire())

	nodes := newFakeCollector()
	p := New(Config{Workers: 2}, reg, nil, nodes, newFakeCollector(), logging.NewNop())

	stats := p.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Polled)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, nodes.count("10.0.0.1:7000"))

	busy.Release()
	stats = p.RunOnce(context.Background())
	assert.Equal(t, 2, stats.Polled)
}

type stubSource struct {
	mu      sync.Mutex
	targets []models.Target
	err     error
}

func (s *stubSource) Targets(context.Context) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets, s.err
}

func TestPoller_SyncsFromSource(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.9:7000"))
	src := &stubSource{targets: []models.Target{nodeTarget("10.0.0.1:7000")}}

	nodes := newFakeCollector()
	p := New(Config{Workers: 2}, reg, src, nodes, newFakeCollector(), logging.NewNop())
	var removed []string
	p.OnRemove(func(addr string) { removed = append(removed, addr) })

	stats := p.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Polled)
	assert.Equal(t, 1, nodes.count("10.0.0.1:7000"))
	assert.Zero(t, nodes.count("10.0.0.9:7000"))
	assert.Equal(t, []string{"10.0.0.9:7000"}, removed)

	// A failing source keeps the current targets
	src.err = errors.New("etcd unavailable")
	stats = p.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Polled)
	assert.Equal(t, 1, reg.Len())
}

func TestPoller_StartStop(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))
	nodes := newFakeCollector()
	p := New(Config{Interval: 10 * time.Millisecond, Workers: 1}, reg, nil, nodes, newFakeCollector(), logging.NewNop())

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()), "second start fails")

	assert.Eventually(t, func() bool {
		return nodes.count("10.0.0.1:7000") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	after := nodes.count("10.0.0.1:7000")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, nodes.count("10.0.0.1:7000"))

	// Stop is idempotent
	p.Stop()
}

func TestPoller_StopAbandonsCycle(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))
	nodes := newFakeCollector()
	nodes.block = make(chan struct{})
	p := New(Config{Interval: time.Hour, Workers: 1}, reg, nil, nodes, newFakeCollector(), logging.NewNop())

	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool { return nodes.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running cycle")
	}
}

func TestPoller_OnCycleReceivesStats(t *testing.T) {
	reg := registry.New()
	reg.Add(nodeTarget("10.0.0.1:7000"))

	var got []CycleStats
	p := New(Config{Workers: 1}, reg, nil, newFakeCollector(), newFakeCollector(), logging.NewNop())
	p.OnCycle(func(s CycleStats) { got = append(got, s) })

	stats := p.RunOnce(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, stats.CycleID, got[0].CycleID)
	assert.Equal(t, 1, got[0].Polled)
}
