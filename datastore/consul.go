package datastore

import (
	"context"
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
)

// ConsulConfig is read from the Consul section.
type ConsulConfig struct {
	// Address defaults to the Consul client default, which honors CONSUL_HTTP_ADDR.
	Address string
	// Prefix is the root of every key the fixture writes.
	Prefix string
	// ClearOnClose deletes everything under Prefix when the test ends.
	ClearOnClose bool
}

func LoadConsulConfig(cfg *config.Config) ConsulConfig {
	c := ConsulConfig{Address: consul.DefaultConfig().Address, Prefix: "maqs"}
	if cfg == nil {
		return c
	}
	c.Address = cfg.SectionValue("Consul", "Address", c.Address)
	c.Prefix = strings.Trim(cfg.SectionValue("Consul", "Prefix", c.Prefix), "/")
	c.ClearOnClose = cfg.Bool("Consul", "ClearOnClose", false)
	return c
}

// ConsulStore keeps each map entry as a key Prefix/prefix/key/field.
type ConsulStore struct {
	consul *consul.Client
	config ConsulConfig
}

// NewConsulBackend connects on Create and fails unless the agent reports a cluster leader.
func NewConsulBackend(c ConsulConfig) driver.Backend[*ConsulStore] {
	return driver.Funcs[*ConsulStore]{
		CreateFunc: func(ctx context.Context) (*ConsulStore, error) {
			cc := consul.DefaultConfig()
			cc.Address = c.Address
			client, err := consul.NewClient(cc)
			if err != nil {
				return nil, fmt.Errorf("creating consul client for %s: %w", c.Address, err)
			}
			if _, err := client.Status().LeaderWithQueryOptions((&consul.QueryOptions{}).WithContext(ctx)); err != nil {
				return nil, fmt.Errorf("connecting to consul at %s: %w", c.Address, err)
			}
			return &ConsulStore{consul: client, config: c}, nil
		},
		DisposeFunc: func(ctx context.Context, s *ConsulStore) error {
			if s.config.ClearOnClose {
				return s.Reset(ctx)
			}
			return nil
		},
	}
}

func (s *ConsulStore) Client() *consul.Client { return s.consul }

func (s *ConsulStore) DSN() string {
	return "consul://" + s.config.Address + "/" + s.config.Prefix
}

func (s *ConsulStore) path(parts ...string) string {
	nonEmpty := []string{}
	if s.config.Prefix != "" {
		nonEmpty = append(nonEmpty, s.config.Prefix)
	}
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

func (s *ConsulStore) GetMap(ctx context.Context, prefix, key string) (map[string]string, error) {
	base := s.path(prefix, key) + "/"
	pairs, _, err := s.consul.KV().List(base, (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list failed for %s: %w", base, err)
	}
	results := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		results[strings.TrimPrefix(pair.Key, base)] = string(pair.Value)
	}
	return results, nil
}

// WriteMap sets every field of data and deletes the fields that were stored before but are
// not in data.
func (s *ConsulStore) WriteMap(ctx context.Context, prefix, key string, data map[string]string) error {
	kv := s.consul.KV()
	base := s.path(prefix, key) + "/"

	pairs, _, err := kv.List(base, (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to get existing items under %s: %w", base, err)
	}
	oldKeys := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		oldKeys[p.Key] = struct{}{}
	}

	ops := make([]*consul.KVTxnOp, 0, len(data)+len(oldKeys))
	for field, value := range data {
		ops = append(ops, &consul.KVTxnOp{Verb: consul.KVSet, Key: base + field, Value: []byte(value)})
		delete(oldKeys, base+field)
	}
	for k := range oldKeys {
		ops = append(ops, &consul.KVTxnOp{Verb: consul.KVDelete, Key: k})
	}
	return batchOperations(ctx, kv, ops)
}

// Reset deletes everything under Prefix.
func (s *ConsulStore) Reset(ctx context.Context) error {
	_, err := s.consul.KV().DeleteTree(s.path()+"/", (&consul.WriteOptions{}).WithContext(ctx))
	return err
}

func (s *ConsulStore) Close() error { return nil }

// batchOperations applies ops in transactions of at most 64 operations, the most Consul
// accepts in one.
func batchOperations(ctx context.Context, kv *consul.KV, ops []*consul.KVTxnOp) error {
	for i := 0; i < len(ops); {
		j := i + 64
		if j > len(ops) {
			j = len(ops)
		}
		ok, resp, _, err := kv.Txn(ops[i:j], (&consul.QueryOptions{}).WithContext(ctx))
		if err != nil {
			return err
		}
		if !ok {
			errs := make([]string, 0, len(resp.Errors))
			for _, te := range resp.Errors {
				errs = append(errs, te.What)
			}
			return fmt.Errorf("consul transaction failed: %s", strings.Join(errs, ", "))
		}
		i = j
	}
	return nil
}
