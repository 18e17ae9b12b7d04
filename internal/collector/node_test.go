package collector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/conn/conntest"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/parser"
	"github.com/soltixdb/rediswatch/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodeAddr = "10.0.0.1:7000"

type fakeCapacity struct {
	calls int
	err   error
	panic bool
}

func (f *fakeCapacity) Check(ctx context.Context, addr string, status *models.NodeStatus) (bool, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.err == nil, f.err
}

func newNodeCollector(d conn.Dialer, capacity CapacityChecker) *NodeCollector {
	return NewNodeCollector(d, fastPolicy(), capacity, logging.NewNop())
}

func nodeEntry() *registry.Entry {
	r := registry.New()
	r.Add(models.Target{Addr: nodeAddr, Role: models.RoleNode})
	e, _ := r.Get(nodeAddr)
	return e
}

func TestNodeCollector_Collect(t *testing.T) {
	d := conntest.NewDialer()
	srv := d.Handle(nodeAddr, scriptedNode())

	status, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)
	require.NoError(t, err)

	require.NotNil(t, status.NodeID)
	assert.Equal(t, "07c37dfeb235213a872192d90877d0cd55635b91", *status.NodeID)
	assert.False(t, status.IsReplica)
	assert.Nil(t, status.PrimaryID)
	assert.Equal(t, []models.SlotRange{{Start: 0, End: 100}}, status.OwnedSlots)
	assert.Equal(t, []int{101}, status.MigratingSlots)
	assert.True(t, status.ClusterEnabled)

	assert.Equal(t, int64(900), status.UsedMemory)
	assert.Equal(t, int64(2048), status.UsedMemoryRSS)
	assert.Equal(t, "900B", status.UsedMemoryHuman)
	assert.Equal(t, int64(1000), status.MaxMemory)
	assert.Equal(t, 1.5, status.CPUSys)
	assert.Equal(t, 2.25, status.CPUUser)
	assert.Equal(t, int64(86400), status.UptimeSeconds)
	assert.Equal(t, int64(12), status.ConnectedClients)
	assert.Equal(t, int64(1000), status.TotalCommandsProcessed)
	assert.Equal(t, int64(3), status.ExpiredKeys)
	assert.Equal(t, int64(1), status.EvictedKeys)
	assert.Equal(t, int64(70), status.KeyspaceHits)
	assert.Equal(t, int64(30), status.KeyspaceMisses)
	assert.Equal(t, int64(42), status.KeyCount)
	assert.True(t, status.AOFEnabled)
	assert.Equal(t, "7.2.4", status.Version)
	assert.True(t, status.Available)

	assert.Equal(t, []string{"INFO", "CONFIG GET MAXMEMORY", "CLUSTER NODES"}, srv.Commands())
	assert.Equal(t, 1, srv.Dials())
	assert.Equal(t, 1, srv.Closed())
}

func TestNodeCollector_ClusterDisabledSkipsTopology(t *testing.T) {
	d := conntest.NewDialer()
	info := strings.Replace(nodeInfo, "cluster_enabled:1", "cluster_enabled:0", 1)
	srv := d.Handle(nodeAddr, conntest.NewServer().
		Reply("INFO", info).
		ReplySlice("CONFIG GET MAXMEMORY", "maxmemory", "0"))

	status, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)
	require.NoError(t, err)

	assert.False(t, status.ClusterEnabled)
	assert.Nil(t, status.NodeID)
	assert.Empty(t, status.OwnedSlots)
	assert.Empty(t, status.MigratingSlots)
	assert.Equal(t, int64(0), status.MaxMemory)
	assert.NotContains(t, srv.Commands(), "CLUSTER NODES")
}

func TestNodeCollector_TopologyUnknown(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*conntest.Server)
	}{
		{"no myself line", func(s *conntest.Server) {
			s.Reply("CLUSTER NODES", "e7d1 10.0.0.2:7000 master - 0 0 5 connected 0-100\n")
		}},
		{"error reply", func(s *conntest.Server) {
			s.Fail("CLUSTER NODES", &conn.ReplyError{Addr: nodeAddr, Command: "CLUSTER NODES", Message: "ERR cluster support disabled"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := conntest.NewDialer()
			srv := d.Handle(nodeAddr, scriptedNode())
			tt.setup(srv)

			status, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)
			require.NoError(t, err)
			assert.False(t, status.TopologyKnown())
			assert.Empty(t, status.OwnedSlots)
			assert.True(t, status.Available)
			assert.Equal(t, 1, srv.Dials(), "topology failures are not retried")
		})
	}
}

func TestNodeCollector_MissingFieldNotRetried(t *testing.T) {
	d := conntest.NewDialer()
	info := strings.Replace(nodeInfo, "used_memory:900\n", "", 1)
	srv := d.Handle(nodeAddr, scriptedNode().Reply("INFO", info))

	_, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)

	var missing *parser.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "used_memory", missing.Field)
	assert.Equal(t, 1, srv.Dials())
}

func TestNodeCollector_ShortMemoryLimitReply(t *testing.T) {
	d := conntest.NewDialer()
	d.Handle(nodeAddr, scriptedNode().ReplySlice("CONFIG GET MAXMEMORY", "maxmemory"))

	_, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)

	var missing *parser.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, parser.MaxMemoryField, missing.Field)
}

func TestNodeCollector_MissingKeyspaceIsZero(t *testing.T) {
	d := conntest.NewDialer()
	info := strings.Replace(nodeInfo, "db0:keys=42,expires=1,avg_ttl=0\n", "", 1)
	d.Handle(nodeAddr, scriptedNode().Reply("INFO", info))

	status, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.KeyCount)
}

func TestNodeCollector_RetriesUntilFifthAttempt(t *testing.T) {
	d := conntest.NewDialer()
	srv := d.Handle(nodeAddr, scriptedNode().FailDials(4))
	entry := nodeEntry()

	require.NoError(t, newNodeCollector(d, nil).Poll(context.Background(), entry))

	assert.Equal(t, 5, srv.Dials())
	assert.True(t, entry.Available())
	require.NotNil(t, entry.Node())
	assert.Zero(t, entry.ConsecutiveFailures())
}

func TestNodeCollector_ExhaustedLeavesAvailabilityUnchanged(t *testing.T) {
	t.Run("never available", func(t *testing.T) {
		d := conntest.NewDialer()
		srv := d.Handle(nodeAddr, scriptedNode().FailDials(5))
		entry := nodeEntry()

		err := newNodeCollector(d, nil).Poll(context.Background(), entry)

		var exhausted *conn.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 5, srv.Dials())
		assert.False(t, entry.Available())
		assert.Nil(t, entry.Node())
	})

	t.Run("previously available", func(t *testing.T) {
		d := conntest.NewDialer()
		srv := d.Handle(nodeAddr, scriptedNode())
		entry := nodeEntry()
		c := newNodeCollector(d, nil)

		require.NoError(t, c.Poll(context.Background(), entry))
		previous := entry.Node()

		srv.FailDials(5)
		assert.Error(t, c.Poll(context.Background(), entry))

		assert.Equal(t, 6, srv.Dials())
		assert.True(t, entry.Available())
		assert.Same(t, previous, entry.Node())
		assert.Equal(t, int64(1), entry.ConsecutiveFailures())
	})
}

func TestNodeCollector_TransientReplyFaultRetried(t *testing.T) {
	d := conntest.NewDialer()
	srv := d.Handle(nodeAddr, scriptedNode().
		Fail("INFO", &conn.ConnectionFault{Addr: nodeAddr, Op: "INFO", Err: errors.New("bad framing")}))

	_, err := newNodeCollector(d, nil).Collect(context.Background(), nodeAddr)
	assert.True(t, conn.IsTransient(err))
	assert.Equal(t, conn.DefaultAttempts, srv.Dials())
	assert.Equal(t, conn.DefaultAttempts, srv.Closed(), "every attempt closes its connection")
}

func TestNodeCollector_Idempotent(t *testing.T) {
	d := conntest.NewDialer()
	d.Handle(nodeAddr, scriptedNode())
	c := newNodeCollector(d, nil)

	first, err := c.Collect(context.Background(), nodeAddr)
	require.NoError(t, err)
	second, err := c.Collect(context.Background(), nodeAddr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestNodeCollector_CapacityCheck(t *testing.T) {
	t.Run("runs after success", func(t *testing.T) {
		d := conntest.NewDialer()
		d.Handle(nodeAddr, scriptedNode())
		capacity := &fakeCapacity{}

		require.NoError(t, newNodeCollector(d, capacity).Poll(context.Background(), nodeEntry()))
		assert.Equal(t, 1, capacity.calls)
	})

	t.Run("skipped after failure", func(t *testing.T) {
		d := conntest.NewDialer()
		d.Handle(nodeAddr, scriptedNode().FailDials(5))
		capacity := &fakeCapacity{}

		assert.Error(t, newNodeCollector(d, capacity).Poll(context.Background(), nodeEntry()))
		assert.Zero(t, capacity.calls)
	})

	t.Run("errors and panics never fail the collection", func(t *testing.T) {
		for _, capacity := range []*fakeCapacity{{err: errors.New("etcd down")}, {panic: true}} {
			d := conntest.NewDialer()
			d.Handle(nodeAddr, scriptedNode())
			entry := nodeEntry()

			require.NoError(t, newNodeCollector(d, capacity).Poll(context.Background(), entry))
			assert.True(t, entry.Available())
			assert.Equal(t, 1, capacity.calls)
		}
	})
}
