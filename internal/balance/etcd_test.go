package balance

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
)

// setupTestEtcd starts an embedded etcd server and returns a connected client
func setupTestEtcd(t *testing.T) *clientv3.Client {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()

	// Use random available ports
	clientURL, _ := url.Parse("http://127.0.0.1:0")
	peerURL, _ := url.Parse("http://127.0.0.1:0")
	cfg.ListenClientUrls = []url.URL{*clientURL}
	cfg.ListenPeerUrls = []url.URL{*peerURL}

	cfg.LogLevel = "error"
	cfg.Logger = "zap"

	e, err := embed.StartEtcd(cfg)
	require.NoError(t, err)

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		e.Close()
		t.Fatal("Etcd server took too long to start")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{e.Clients[0].Addr().String()},
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		e.Close()
	})
	return client
}

func TestEtcdResolver_ResolvePlan(t *testing.T) {
	client := setupTestEtcd(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "/rediswatch/plans/10.0.0.1:7000", `{"pod":"redis-large","slaves":[]}`)
	require.NoError(t, err)

	r := NewEtcdResolver(client, "/rediswatch/plans")

	plan, err := r.ResolvePlan(ctx, "10.0.0.1", 7000)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "/rediswatch/plans/10.0.0.1:7000", plan.Key)
	assert.JSONEq(t, `{"pod":"redis-large","slaves":[]}`, string(plan.Body))
}

func TestEtcdResolver_NoPlan(t *testing.T) {
	client := setupTestEtcd(t)
	r := NewEtcdResolver(client, "/rediswatch/plans")

	plan, err := r.ResolvePlan(context.Background(), "10.0.0.1", 7001)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestEtcdResolver_InvalidPlan(t *testing.T) {
	client := setupTestEtcd(t)
	ctx := context.Background()

	_, err := client.Put(ctx, "/rediswatch/plans/10.0.0.1:7002", `not json`)
	require.NoError(t, err)

	r := NewEtcdResolver(client, "/rediswatch/plans")
	_, err = r.ResolvePlan(ctx, "10.0.0.1", 7002)
	assert.Error(t, err)
}

func TestEtcdResolver_PlanKey(t *testing.T) {
	r := NewEtcdResolver(nil, "/rediswatch/plans/")
	assert.Equal(t, "/rediswatch/plans/10.0.0.1:7000", r.planKey("10.0.0.1", 7000))
	assert.Equal(t, "/rediswatch/plans/[::1]:7000", r.planKey("::1", 7000))
}
