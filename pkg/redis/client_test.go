package redis

import (
	"testing"

	"github.com/omarvides/restyle-backend/pkg/config"
)

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	key := c.IdempotencyKey("billing-webhook", "evt_123")
	if key != "restyle:idempotency:billing-webhook:evt_123" {
		t.Fatalf("unexpected key %s", key)
	}
}

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	key := c.buildKey("counter", "", "daily")
	if key != "restyle:counter:daily" {
		t.Fatalf("unexpected key %s", key)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address set")
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 5})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %s", opts.Addr)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
}
