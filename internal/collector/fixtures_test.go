package collector

import (
	"time"

	"github.com/soltixdb/rediswatch/internal/conn"
	"github.com/soltixdb/rediswatch/internal/conn/conntest"
)

const nodeInfo = `# Server
redis_version:7.2.4
uptime_in_seconds:86400

# Clients
connected_clients:12

# Memory
used_memory:900
used_memory_human:900B
used_memory_rss:2048

# Persistence
aof_enabled:1

# Stats
total_commands_processed:1000
expired_keys:3
evicted_keys:1
keyspace_hits:70
keyspace_misses:30

# CPU
used_cpu_sys:1.50
used_cpu_user:2.25

# Cluster
cluster_enabled:1

# Keyspace
db0:keys=42,expires=1,avg_ttl=0
`

const clusterNodes = `07c37dfeb235213a872192d90877d0cd55635b91 10.0.0.1:7000@17000 myself,master - 0 1426238317239 4 connected 0-100 [101->-e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca]
e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca 10.0.0.2:7000@17000 master - 0 1426238316232 5 connected 101-200
`

const corvusInfo = `connected_clients:5
threads:4
used_cpu_sys:0.5
used_cpu_user:1.5
completed_commands:300
total_latency:12.5
last_command_latency:1.0,2.5,0.3
version:0.2.7
`

const corvusProxyInfo = `in_use_buffers:100
free_buffers:28
`

const cerberusStatus = `version:0.8.1
threads:3
clients_count:3,4,5
mem_buffer_alloc:10,20
completed_commands:500
total_process_elapse:4.5
cluster_ok:1
read_slave:1
last_command_elapse:0.1,0.4
last_remote_cost:0.2,0.05
used_cpu_sys:0.7
used_cpu_user:0.9
`

func fastPolicy() conn.Policy {
	return conn.Policy{Attempts: conn.DefaultAttempts, Delay: time.Millisecond}
}

func scriptedNode() *conntest.Server {
	return conntest.NewServer().
		Reply("INFO", nodeInfo).
		ReplySlice("CONFIG GET MAXMEMORY", "maxmemory", "1000").
		Reply("CLUSTER NODES", clusterNodes)
}

func scriptedCorvus() *conntest.Server {
	return conntest.NewServer().
		Reply("INFO", corvusInfo).
		Reply("PROXY INFO", corvusProxyInfo)
}

func scriptedCerberus(status string) *conntest.Server {
	return conntest.NewServer().Reply("PROXY", status)
}
