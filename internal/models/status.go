package models

// NodeStatus is the canonical health record of one Redis node.
// A record is built completely before it is published and is never
// mutated afterwards; readers may share the pointer freely.
type NodeStatus struct {
	NodeID         *string     `json:"node_id"`
	IsReplica      bool        `json:"is_replica"`
	PrimaryID      *string     `json:"primary_id"`
	OwnedSlots     []SlotRange `json:"owned_slots"`
	MigratingSlots []int       `json:"migrating_slots"`
	ClusterEnabled bool        `json:"cluster_enabled"`

	UsedMemory      int64   `json:"used_memory"`
	UsedMemoryRSS   int64   `json:"used_memory_rss"`
	UsedMemoryHuman string  `json:"used_memory_human"`
	MaxMemory       int64   `json:"max_memory"` // 0 = unlimited
	CPUSys          float64 `json:"cpu_sys"`
	CPUUser         float64 `json:"cpu_user"`
	UptimeSeconds   int64   `json:"uptime_seconds"`

	ConnectedClients       int64 `json:"connected_clients"`
	TotalCommandsProcessed int64 `json:"total_commands_processed"`
	ExpiredKeys            int64 `json:"expired_keys"`
	EvictedKeys            int64 `json:"evicted_keys"`
	KeyspaceHits           int64 `json:"keyspace_hits"`
	KeyspaceMisses         int64 `json:"keyspace_misses"`
	KeyCount               int64 `json:"key_count"`

	AOFEnabled bool   `json:"aof_enabled"`
	Version    string `json:"version"`
	Available  bool   `json:"available"`
}

// TopologyKnown reports whether the cluster identity of the node was resolved
func (s *NodeStatus) TopologyKnown() bool {
	return s.NodeID != nil
}

// StatsSnapshot returns the reportable counters keyed by canonical field name
func (s *NodeStatus) StatsSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"used_memory":              s.UsedMemory,
		"used_memory_rss":          s.UsedMemoryRSS,
		"max_memory":               s.MaxMemory,
		"connected_clients":        s.ConnectedClients,
		"total_commands_processed": s.TotalCommandsProcessed,
		"expired_keys":             s.ExpiredKeys,
		"evicted_keys":             s.EvictedKeys,
		"keyspace_hits":            s.KeyspaceHits,
		"keyspace_misses":          s.KeyspaceMisses,
		"keys":                     s.KeyCount,
		"used_cpu_sys":             s.CPUSys,
		"used_cpu_user":            s.CPUUser,
		"uptime_in_seconds":        s.UptimeSeconds,
	}
}

// ProxyStatus is the canonical health record of one proxy process
type ProxyStatus struct {
	Kind             ProxyKind `json:"kind"`
	ClusterOK        bool      `json:"cluster_ok"`
	ReadSlaveEnabled bool      `json:"read_slave_enabled"`

	ConnectedClients        int64   `json:"connected_clients"`
	CompletedCommands       int64   `json:"completed_commands"`
	TotalProcessTime        float64 `json:"total_process_time"`
	MaxRecentCommandLatency float64 `json:"max_recent_command_latency"`
	MaxRecentRemoteCost     float64 `json:"max_recent_remote_cost"`
	BufferBytesAllocated    int64   `json:"buffer_bytes_allocated"`
	CPUSys                  float64 `json:"cpu_sys"`
	CPUUser                 float64 `json:"cpu_user"`
	ThreadCount             int64   `json:"thread_count"`
	Version                 string  `json:"version"`
	Available               bool    `json:"available"`
}

// StatsSnapshot returns the reportable counters keyed by canonical field name
func (s *ProxyStatus) StatsSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"mem_buffer_alloc":     s.BufferBytesAllocated,
		"connected_clients":    s.ConnectedClients,
		"completed_commands":   s.CompletedCommands,
		"total_process_elapse": s.TotalProcessTime,
		"command_elapse":       s.MaxRecentCommandLatency,
		"remote_cost":          s.MaxRecentRemoteCost,
		"used_cpu_sys":         s.CPUSys,
		"used_cpu_user":        s.CPUUser,
		"threads":              s.ThreadCount,
	}
}
