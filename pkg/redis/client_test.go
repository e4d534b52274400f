package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diegocastellanos/booklend-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	client := &Client{store: fake}

	for i, wantAllowed := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login", 2, time.Second)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if allowed != wantAllowed {
			t.Fatalf("call %d: allowed=%v want %v", i+1, allowed, wantAllowed)
		}
		if count != int64(i+1) {
			t.Fatalf("call %d: count=%d", i+1, count)
		}
	}

	// The expiry must be set exactly once, on the increment that created the key.
	if len(fake.expires) != 1 {
		t.Fatalf("expected one expire call, got %d", len(fake.expires))
	}
	if fake.expires[0].ttl != time.Second {
		t.Fatalf("unexpected ttl %v", fake.expires[0].ttl)
	}
}

func TestSetNXFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeStore()}

	set, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !set {
		t.Fatalf("first SetNX: set=%v err=%v", set, err)
	}
	set, err = client.SetNX(ctx, "k", "second", time.Minute)
	if err != nil || set {
		t.Fatalf("second SetNX: set=%v err=%v", set, err)
	}
	if v, _ := client.Get(ctx, "k"); v != "first" {
		t.Fatalf("expected first value to survive, got %q", v)
	}
}

func TestAccessSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeStore()}

	key := client.AccessSessionKey("access-1")
	if err := client.Set(ctx, key, "token-value", 10*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if token, err := client.Get(ctx, key); err != nil || token != "token-value" {
		t.Fatalf("get: token=%q err=%v", token, err)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"): "bl:idempotency:scope:id",
		client.RateLimitKey("scope"):         "bl:rate_limit:scope",
		client.CounterKey("hits"):            "bl:counter:hits",
		client.AccessSessionKey("abc"):       "bl:session:access:abc",
		client.buildKey(" ", "x"):            "bl:x",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("key %q, want %q", got, want)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 8})
	if err != nil {
		t.Fatalf("address config: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 8 {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/1", PoolSize: 4})
	if err != nil {
		t.Fatalf("url config: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 1 {
		t.Fatalf("url options not applied: %+v", opts)
	}
	if opts.PoolSize != 4 {
		t.Fatalf("config pool size should backfill the url options, got %d", opts.PoolSize)
	}
}

type fakeStore struct {
	data    map[string]string
	counts  map[string]int64
	expires []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, expireCall{key: key, ttl: ttl})
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
