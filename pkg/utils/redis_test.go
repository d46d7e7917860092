package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); !errors.Is(err, ErrRedisAddrRequired) {
		t.Fatalf("expected ErrRedisAddrRequired, got %v", err)
	}
}

func TestRedisConfigResolved(t *testing.T) {
	got := RedisConfig{PoolSize: -1}.resolved()
	if got.PoolSize != 0 || got.ClientName != DefaultRedisClientName {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if got.CommandTimeout != 500*time.Millisecond || got.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: %+v", got)
	}
	if kept := (RedisConfig{ClientName: "worker"}).resolved(); kept.ClientName != "worker" {
		t.Fatalf("explicit client name overwritten: %q", kept.ClientName)
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected ping failure")
	}
}
