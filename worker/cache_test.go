package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	a := cacheKey(TypeAnalyzeChunk, []byte(`{"audioData":[1,2]}`))
	b := cacheKey(TypeAnalyzeChunk, []byte(`{"audioData":[1,2]}`))
	c := cacheKey(TypeFingerprint, []byte(`{"audioData":[1,2]}`))
	d := cacheKey(TypeAnalyzeChunk, []byte(`{"audioData":[1,3]}`))

	if a != b {
		t.Fatalf("cacheKey() not deterministic: %q vs %q", a, b)
	}

	if a == c || a == d {
		t.Fatalf("cacheKey() collided: %q, %q, %q", a, c, d)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Set(ctx, "b", []byte("2"))

	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("Get(a) missed")
	}

	_ = c.Set(ctx, "c", []byte("3"))

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("Get(b) hit, want evicted")
	}

	got, ok, err := c.Get(ctx, "a")
	if err != nil || !ok || string(got) != "1" {
		t.Fatalf("Get(a) got=%q, %v, %v, want=1", got, ok, err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len() got=%d, want=2", c.Len())
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	blob := []byte("RIFF")
	if err := s.Put(ctx, "k/mix.wav", blob, "audio/wav"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	blob[0] = 'X'

	got, err := s.Get(ctx, "k/mix.wav")
	if err != nil || string(got) != "RIFF" {
		t.Fatalf("Get() got=%q, %v, want=RIFF", got, err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("Get(missing) error got=%v, want=%v", err, ErrBlobNotFound)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DJMIX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DJMIX_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "djmix:test:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	defer c.Close()

	key := cacheKey(TypeAnalyzeChunk, []byte(t.Name()))
	if err := c.Set(ctx, key, []byte(`{"rms":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || !bytes.Equal(got, []byte(`{"rms":1}`)) {
		t.Fatalf("Get() got=%q, %v, %v", got, ok, err)
	}

	if _, ok, err := c.Get(ctx, key+"-missing"); ok || err != nil {
		t.Fatalf("Get(missing) got hit=%v, err=%v, want miss", ok, err)
	}
}

func TestMinIOStore(t *testing.T) {
	endpoint := os.Getenv("DJMIX_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("DJMIX_TEST_MINIO_ENDPOINT not set")
	}

	ctx := context.Background()

	s, err := NewMinIOStore(ctx, MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("DJMIX_TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("DJMIX_TEST_MINIO_SECRET_KEY"),
		Bucket:    "djmix-test",
	})
	if err != nil {
		t.Fatalf("NewMinIOStore() error = %v", err)
	}

	if err := s.Put(ctx, "test/blob.bin", []byte{1, 2, 3}, "application/octet-stream"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "test/blob.bin")
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("Get() got=%v, %v", got, err)
	}
}
