package collector

import (
	"context"

	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/parser"
)

// ProxyReplies holds the parsed replies of one proxy fetch
type ProxyReplies struct {
	Status parser.Fields
	Extra  parser.Fields // secondary query, if the kind has one
}

// ProxyAdapter knows how to query one proxy implementation and map its
// statistics into ProxyStatus
type ProxyAdapter interface {
	Kind() models.ProxyKind

	// Fetch issues the kind's queries. It runs inside the retry loop.
	Fetch(ctx context.Context, cn conn.Conn) (*ProxyReplies, error)

	// Normalize validates and converts the replies. It runs outside the retry loop.
	Normalize(r *ProxyReplies) (*models.ProxyStatus, error)
}

// CorvusAdapter handles Corvus: INFO for traffic, PROXY INFO for buffers
type CorvusAdapter struct{}

func (CorvusAdapter) Kind() models.ProxyKind { return models.ProxyKindCorvus }

func (CorvusAdapter) Fetch(ctx context.Context, cn conn.Conn) (*ProxyReplies, error) {
	info, err := cn.Query(ctx, "INFO")
	if err != nil {
		return nil, err
	}
	buffers, err := cn.Query(ctx, "PROXY", "INFO")
	if err != nil {
		return nil, err
	}
	return &ProxyReplies{Status: parser.ParseInfo(info), Extra: parser.ParseInfo(buffers)}, nil
}

// Normalize maps Corvus fields. Corvus has no cluster health of its own,
// so ClusterOK is always true, and it reports no remote cost.
func (CorvusAdapter) Normalize(r *ProxyReplies) (*models.ProxyStatus, error) {
	x := r.Status.Extract()
	s := &models.ProxyStatus{
		Kind:      models.ProxyKindCorvus,
		ClusterOK: true,

		// connected_clients excludes backend connections, unlike clients_count
		ConnectedClients:        x.Int("connected_clients"),
		ThreadCount:             x.Int("threads"),
		CPUSys:                  x.Float("used_cpu_sys"),
		CPUUser:                 x.Float("used_cpu_user"),
		CompletedCommands:       x.Int("completed_commands"),
		TotalProcessTime:        x.Float("total_latency"),
		MaxRecentCommandLatency: x.MaxFloats("last_command_latency"),
		Version:                 x.StringOr("version", ""),
	}
	if err := x.Err(); err != nil {
		return nil, err
	}

	y := r.Extra.Extract()
	s.BufferBytesAllocated = y.Int("in_use_buffers") + y.Int("free_buffers")
	if err := y.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// CerberusAdapter handles Cerberus: a single PROXY query whose per-thread
// values are comma-separated
type CerberusAdapter struct{}

func (CerberusAdapter) Kind() models.ProxyKind { return models.ProxyKindCerberus }

func (CerberusAdapter) Fetch(ctx context.Context, cn conn.Conn) (*ProxyReplies, error) {
	status, err := cn.Query(ctx, "PROXY")
	if err != nil {
		return nil, err
	}
	return &ProxyReplies{Status: parser.ParseInfo(status)}, nil
}

// Normalize maps Cerberus fields. Older versions omit cluster_ok, the CPU
// counters and the latency samples; those default to healthy and zero.
func (CerberusAdapter) Normalize(r *ProxyReplies) (*models.ProxyStatus, error) {
	f := r.Status
	x := f.Extract()
	s := &models.ProxyStatus{
		Kind:             models.ProxyKindCerberus,
		ClusterOK:        f["cluster_ok"] != "0",
		ReadSlaveEnabled: f.Enabled("read_slave"),

		ConnectedClients:        x.SumInts("clients_count"),
		BufferBytesAllocated:    x.SumInts("mem_buffer_alloc"),
		ThreadCount:             x.Int("threads"),
		Version:                 x.String("version"),
		CPUSys:                  x.FloatOr("used_cpu_sys", 0),
		CPUUser:                 x.FloatOr("used_cpu_user", 0),
		CompletedCommands:       x.Int("completed_commands"),
		TotalProcessTime:        x.Float("total_process_elapse"),
		MaxRecentCommandLatency: x.MaxFloatsOr("last_command_elapse", 0),
		MaxRecentRemoteCost:     x.MaxFloatsOr("last_remote_cost", 0),
	}
	if err := x.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultAdapters returns the adapter of every supported proxy kind
func DefaultAdapters() []ProxyAdapter {
	return []ProxyAdapter{CorvusAdapter{}, CerberusAdapter{}}
}
