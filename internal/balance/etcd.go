package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path"
	"strconv"

	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/utils"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdResolver reads balance plans stored under <prefix>/<host>:<port>
type EtcdResolver struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdResolver creates a resolver over an existing etcd client
func NewEtcdResolver(client *clientv3.Client, prefix string) *EtcdResolver {
	return &EtcdResolver{client: client, prefix: prefix}
}

func (r *EtcdResolver) planKey(host string, port int) string {
	return path.Join(r.prefix, net.JoinHostPort(host, strconv.Itoa(port)))
}

// ResolvePlan returns the stored plan, or nil when the key is absent
func (r *EtcdResolver) ResolvePlan(ctx context.Context, host string, port int) (*models.Plan, error) {
	key := r.planKey(host, port)

	ctx, cancel := context.WithTimeout(ctx, utils.EtcdRequestTimeout)
	defer cancel()

	resp, err := r.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance plan from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}

	body := resp.Kvs[0].Value
	if !json.Valid(body) {
		return nil, fmt.Errorf("balance plan %s is not valid JSON", key)
	}

	return &models.Plan{
		Key:  key,
		Body: json.RawMessage(append([]byte(nil), body...)),
	}, nil
}
