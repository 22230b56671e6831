package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisRepo(t *testing.T, ttl time.Duration) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisRepository(client, ttl), mr
}

func sampleFields() Fields {
	return New("79991234567", time.UnixMilli(1_700_000_000_000)).Fields()
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Load(ctx, "client-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	want := sampleFields()
	if err := repo.Save(ctx, "client-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx, "client-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v got %+v", want, got)
	}

	if _, err := repo.Load(ctx, "client-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("sessions must be scoped per client, got %v", err)
	}

	if err := repo.Save(ctx, "client-1", Fields{Verified: "true", Phone: "79991234567"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected partial save to be rejected, got %v", err)
	}
	if got, _ := repo.Load(ctx, "client-1"); got != want {
		t.Fatalf("rejected save must leave stored group untouched, got %+v", got)
	}

	if err := repo.Clear(ctx, "client-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := repo.Load(ctx, "client-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after clear, got %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestRedisRepository(t *testing.T) {
	repo, _ := newRedisRepo(t, 0)
	exerciseRepository(t, repo)
}

func TestRedisRepositoryExpiresWithTTL(t *testing.T) {
	repo, mr := newRedisRepo(t, time.Hour)
	ctx := context.Background()

	if err := repo.Save(ctx, "client-1", sampleFields()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(redisKey("client-1")); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := repo.Load(ctx, "client-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestRedisRepositoryReturnsPartialGroup(t *testing.T) {
	repo, mr := newRedisRepo(t, 0)
	mr.HSet(redisKey("client-1"), KeyVerified, "true")

	f, err := repo.Load(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Complete() {
		t.Fatalf("expected incomplete fields, got %+v", f)
	}
	if _, err := FromFields(f); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestSessionValidity(t *testing.T) {
	now := time.Now()
	fresh := New("79991234567", now.Add(-10*24*time.Hour))
	if !fresh.Valid(now, DefaultMaxAge) {
		t.Fatal("10 day old session should be valid")
	}
	stale := New("79991234567", now.Add(-31*24*time.Hour))
	if stale.Valid(now, DefaultMaxAge) {
		t.Fatal("31 day old session should be expired")
	}
}

func TestFromFieldsFailsClosed(t *testing.T) {
	cases := map[string]Fields{
		"missing flag":  {Phone: "7999", AuthTime: "1"},
		"missing phone": {Verified: "true", AuthTime: "1"},
		"missing time":  {Verified: "true", Phone: "7999"},
		"flag not true": {Verified: "yes", Phone: "7999", AuthTime: "1"},
		"bad time":      {Verified: "true", Phone: "7999", AuthTime: "yesterday"},
	}
	for name, f := range cases {
		if _, err := FromFields(f); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("%s: expected ErrIncomplete, got %v", name, err)
		}
	}

	s, err := FromFields(sampleFields())
	if err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if s.Phone != "79991234567" || !s.Verified || s.EstablishedAt.UnixMilli() != 1_700_000_000_000 {
		t.Fatalf("unexpected session %+v", s)
	}
}
