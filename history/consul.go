package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	consul "github.com/hashicorp/consul/api"
)

// DefaultConsulPrefix is the key prefix used when none is configured.
const DefaultConsulPrefix = "browser-test-harness/history"

const consulWriteTimeout = 5 * time.Second

// ErrRecordExists means a key-value mirror already has a record with the same ID.
var ErrRecordExists = errors.New("record already exists")

// ConsulStore mirrors records into the Consul KV store, one key per record under
// <prefix>/<run_id>/<record_id>. Keys are written with a check-and-set index of zero, which only
// succeeds if the key does not exist yet.
type ConsulStore struct {
	consul       *consul.Client
	prefix       string
	writeTimeout time.Duration
}

// OpenConsul connects to a Consul agent. An empty address means the default (the CONSUL_HTTP_ADDR
// environment variable, or localhost:8500).
func OpenConsul(address, prefix string) (*ConsulStore, error) {
	config := consul.DefaultConfig()
	if address != "" {
		config.Address = address
	}
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}
	return NewConsulStore(client, prefix), nil
}

func NewConsulStore(client *consul.Client, prefix string) *ConsulStore {
	if prefix == "" {
		prefix = DefaultConsulPrefix
	}
	return &ConsulStore{consul: client, prefix: strings.TrimSuffix(prefix, "/"), writeTimeout: consulWriteTimeout}
}

func (c *ConsulStore) Name() string { return "consul:" + c.prefix }

func (c *ConsulStore) key(r Record) string {
	return c.prefix + "/" + r.RunID + "/" + r.RecordID
}

func (c *ConsulStore) Append(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	pair := &consul.KVPair{Key: c.key(r), Value: MarshalRecordJSON(r), ModifyIndex: 0}
	ok, _, err := c.consul.KV().CAS(pair, (&consul.WriteOptions{}).WithContext(ctx))
	if err == nil && !ok {
		err = ErrRecordExists
	}
	if err != nil {
		return &StoreWriteError{Backend: c.Name(), RecordID: r.RecordID, Err: err}
	}
	return nil
}

// RunRecords returns the records of one run, ordered by record ID.
func (c *ConsulStore) RunRecords(ctx context.Context, runID string) ([]Record, error) {
	pairs, _, err := c.consul.KV().List(c.prefix+"/"+runID+"/", (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list failed for run %s: %w", runID, err)
	}
	ret := make([]Record, 0, len(pairs))
	for _, p := range pairs {
		r, err := UnmarshalRecordJSON(p.Value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", p.Key, err)
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (c *ConsulStore) Close() error { return nil }
