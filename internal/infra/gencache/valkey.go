package gencache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
)

// ValkeyCache persists generations in a Valkey-compatible database.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "health:gen"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) (assessment.Generation, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return assessment.Generation{}, false, nil
		}
		return assessment.Generation{}, false, err
	}
	var gen assessment.Generation
	if err := json.Unmarshal([]byte(payload), &gen); err != nil {
		return assessment.Generation{}, false, err
	}
	return gen, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, key string, gen assessment.Generation, ttl time.Duration) error {
	payload, err := json.Marshal(gen)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.key(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) key(k string) string {
	return c.prefix + ":" + k
}

var _ assessment.GenerationCache = (*ValkeyCache)(nil)
