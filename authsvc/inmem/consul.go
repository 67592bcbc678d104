package inmem

import (
	"context"
	"time"

	consul "github.com/hashicorp/consul/api"
)

// Consul KV has no per-key expiry, so the deadline is kept in the pair's
// Flags as Unix seconds and enforced on read.
type consulClient struct {
	consul *consul.Client
	now    func() time.Time
}

func NewClient(c *consul.Client) Client {
	return &consulClient{consul: c, now: time.Now}
}

func (c *consulClient) Get(ctx context.Context, key string) error {
	q := (&consul.QueryOptions{}).WithContext(ctx)
	kv, _, err := c.consul.KV().Get(key, q)
	if err != nil {
		return err
	}

	if kv == nil {
		return ErrKeyNotFound
	}

	if kv.Flags != 0 && c.now().Unix() >= int64(kv.Flags) {
		c.Delete(ctx, key)
		return ErrKeyNotFound
	}

	return nil
}

func (c *consulClient) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	p := &consul.KVPair{Key: key, Value: value}
	if ttl > 0 {
		p.Flags = uint64(c.now().Add(ttl).Unix())
	}

	w := (&consul.WriteOptions{}).WithContext(ctx)
	_, err := c.consul.KV().Put(p, w)

	return err
}

func (c *consulClient) Delete(ctx context.Context, key string) error {
	w := (&consul.WriteOptions{}).WithContext(ctx)
	_, err := c.consul.KV().Delete(key, w)

	return err
}
