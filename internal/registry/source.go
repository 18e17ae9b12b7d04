package registry

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/utils"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	nodesDir   = "nodes"
	proxiesDir = "proxies"
)

// Source lists the targets that should be polled
type Source interface {
	Targets(ctx context.Context) ([]models.Target, error)
}

// StaticSource is a fixed target list, typically from configuration
type StaticSource []models.Target

// Targets returns the fixed list
func (s StaticSource) Targets(context.Context) ([]models.Target, error) {
	return s, nil
}

// EtcdSource discovers targets under <prefix>/nodes/<addr> and
// <prefix>/proxies/<addr>; a proxy key's value is its kind.
type EtcdSource struct {
	client *clientv3.Client
	prefix string
	logger *logging.Logger
}

// NewEtcdSource creates a target source over an existing etcd client
func NewEtcdSource(client *clientv3.Client, prefix string, logger *logging.Logger) *EtcdSource {
	return &EtcdSource{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger.Component("etcd_source"),
	}
}

// Targets lists every registered target. Malformed keys are logged and skipped.
func (s *EtcdSource) Targets(ctx context.Context) ([]models.Target, error) {
	ctx, cancel := context.WithTimeout(ctx, utils.EtcdRequestTimeout)
	defer cancel()

	resp, err := s.client.Get(ctx, s.prefix+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list targets from etcd: %w", err)
	}

	targets := make([]models.Target, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		target, err := s.parse(string(kv.Key), string(kv.Value))
		if err != nil {
			s.logger.Warn("Skipping invalid target key", "key", string(kv.Key), "error", err)
			continue
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func (s *EtcdSource) parse(key, value string) (models.Target, error) {
	rel := strings.TrimPrefix(key, s.prefix+"/")
	dir, addr, ok := strings.Cut(rel, "/")
	if !ok || addr == "" {
		return models.Target{}, fmt.Errorf("unexpected key layout")
	}
	if _, _, err := models.SplitAddr(addr); err != nil {
		return models.Target{}, err
	}

	switch dir {
	case nodesDir:
		return models.Target{Addr: addr, Role: models.RoleNode}, nil
	case proxiesDir:
		kind, err := models.ParseProxyKind(value)
		if err != nil {
			return models.Target{}, err
		}
		return models.Target{Addr: addr, Role: models.RoleProxy, ProxyKind: kind}, nil
	default:
		return models.Target{}, fmt.Errorf("unknown target directory %q", dir)
	}
}

func (s *EtcdSource) key(target models.Target) string {
	dir := nodesDir
	if target.Role == models.RoleProxy {
		dir = proxiesDir
	}
	return path.Join(s.prefix, dir, target.Addr)
}

// Register stores target so that the next sync picks it up
func (s *EtcdSource) Register(ctx context.Context, target models.Target) error {
	value := ""
	if target.Role == models.RoleProxy {
		value = target.ProxyKind.String()
	}

	if _, err := s.client.Put(ctx, s.key(target), value); err != nil {
		return fmt.Errorf("failed to register target: %w", err)
	}
	s.logger.Info("Target registered", "addr", target.Addr, "role", target.Role)
	return nil
}

// Deregister removes target; the next sync drops it from the registry
func (s *EtcdSource) Deregister(ctx context.Context, target models.Target) error {
	if _, err := s.client.Delete(ctx, s.key(target)); err != nil {
		return fmt.Errorf("failed to deregister target: %w", err)
	}
	s.logger.Info("Target deregistered", "addr", target.Addr, "role", target.Role)
	return nil
}

// MergedSource is the union of several sources; the first source listing an
// address wins. Any failing source fails the whole listing so a transient
// outage never looks like a decommission.
type MergedSource []Source

// Targets lists the union of every source
func (m MergedSource) Targets(ctx context.Context) ([]models.Target, error) {
	seen := make(map[string]bool)
	var out []models.Target
	for _, src := range m {
		targets, err := src.Targets(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if seen[t.Addr] {
				continue
			}
			seen[t.Addr] = true
			out = append(out, t)
		}
	}
	return out, nil
}
