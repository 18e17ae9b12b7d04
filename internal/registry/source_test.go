package registry

import (
	"context"
	"testing"
	"time"

	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/client/pkg/v3/types"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
)

// setupEmbeddedEtcd starts an embedded etcd server for testing
func setupEmbeddedEtcd(t *testing.T) *clientv3.Client {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()
	cfg.LogLevel = "error"

	// Use random local ports for all URLs
	cfg.ListenClientUrls, _ = types.NewURLs([]string{"http://127.0.0.1:0"})
	cfg.ListenPeerUrls, _ = types.NewURLs([]string{"http://127.0.0.1:0"})

	e, err := embed.StartEtcd(cfg)
	if err != nil {
		t.Fatalf("Failed to start embedded etcd: %v", err)
	}

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		e.Close()
		t.Fatal("Etcd server took too long to start")
	}

	endpoints := []string{}
	for _, listener := range e.Clients {
		endpoints = append(endpoints, "http://"+listener.Addr().String())
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		e.Close()
		t.Fatalf("Failed to create etcd client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		e.Close()
	})
	return client
}

func TestEtcdSource_Targets(t *testing.T) {
	client := setupEmbeddedEtcd(t)
	ctx := context.Background()
	src := NewEtcdSource(client, "/rediswatch/targets/", logging.NewNop())

	require.NoError(t, src.Register(ctx, node("10.0.0.1:7000")))
	require.NoError(t, src.Register(ctx, proxy("10.0.0.2:8889", models.ProxyKindCerberus)))

	// Invalid entries are skipped
	_, err := client.Put(ctx, "/rediswatch/targets/proxies/10.0.0.3:8889", "twemproxy")
	require.NoError(t, err)
	_, err = client.Put(ctx, "/rediswatch/targets/nodes/not-an-addr", "")
	require.NoError(t, err)
	_, err = client.Put(ctx, "/rediswatch/targets/other/10.0.0.4:7000", "")
	require.NoError(t, err)

	targets, err := src.Targets(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Target{
		node("10.0.0.1:7000"),
		proxy("10.0.0.2:8889", models.ProxyKindCerberus),
	}, targets)
}

func TestEtcdSource_Deregister(t *testing.T) {
	client := setupEmbeddedEtcd(t)
	ctx := context.Background()
	src := NewEtcdSource(client, "/rediswatch/targets", logging.NewNop())

	target := proxy("10.0.0.2:8889", models.ProxyKindCorvus)
	require.NoError(t, src.Register(ctx, target))
	require.NoError(t, src.Deregister(ctx, target))

	targets, err := src.Targets(ctx)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestEtcdSource_SyncIntoRegistry(t *testing.T) {
	client := setupEmbeddedEtcd(t)
	ctx := context.Background()
	src := NewEtcdSource(client, "/rediswatch/targets", logging.NewNop())
	r := New()
	r.Add(node("10.0.0.9:7000"))

	require.NoError(t, src.Register(ctx, node("10.0.0.1:7000")))
	targets, err := src.Targets(ctx)
	require.NoError(t, err)

	added, removed := r.Sync(targets)
	assert.Equal(t, []string{"10.0.0.1:7000"}, added)
	assert.Equal(t, []string{"10.0.0.9:7000"}, removed)
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{node("10.0.0.1:7000")}
	targets, err := src.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Target{node("10.0.0.1:7000")}, targets)
}

type failingSource struct{}

func (failingSource) Targets(context.Context) ([]models.Target, error) {
	return nil, assert.AnError
}

func TestMergedSource(t *testing.T) {
	src := MergedSource{
		StaticSource{node("10.0.0.1:7000"), proxy("10.0.0.2:8889", models.ProxyKindCorvus)},
		StaticSource{proxy("10.0.0.2:8889", models.ProxyKindCerberus), node("10.0.0.3:7000")},
	}

	targets, err := src.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Target{
		node("10.0.0.1:7000"),
		proxy("10.0.0.2:8889", models.ProxyKindCorvus),
		node("10.0.0.3:7000"),
	}, targets)

	_, err = MergedSource{StaticSource{}, failingSource{}}.Targets(context.Background())
	assert.Error(t, err)
}
