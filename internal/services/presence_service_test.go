package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type stubLastSeen struct {
	touched []time.Time
}

func (s *stubLastSeen) TouchLastSeen(_ context.Context, _ uuid.UUID, seenAt time.Time) error {
	s.touched = append(s.touched, seenAt)
	return nil
}

type memoryPresenceCache struct {
	values  map[string]string
	setErr  error
	expires map[string]time.Duration
}

func newMemoryPresenceCache() *memoryPresenceCache {
	return &memoryPresenceCache{values: map[string]string{}, expires: map[string]time.Duration{}}
}

func (c *memoryPresenceCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.setErr != nil {
		return redis.NewStatusResult("", c.setErr)
	}
	c.values[key] = toString(value)
	c.expires[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *memoryPresenceCache) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if _, ok := c.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	c.values[key] = toString(value)
	c.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (c *memoryPresenceCache) MGet(_ context.Context, keys ...string) *redis.SliceCmd {
	out := make([]interface{}, len(keys))
	for i, key := range keys {
		if value, ok := c.values[key]; ok {
			out[i] = value
		}
	}
	return redis.NewSliceResult(out, nil)
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return ""
	}
}

func TestPresenceTouchFlushesOncePerMinuteWithCache(t *testing.T) {
	profiles := &stubLastSeen{}
	cache := newMemoryPresenceCache()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc := &PresenceService{profiles: profiles, cache: cache, now: func() time.Time { return now }, flushed: map[uuid.UUID]time.Time{}}
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.Touch(context.Background(), userID); err != nil {
			t.Fatalf("Touch: %v", err)
		}
		now = now.Add(10 * time.Second)
	}

	if len(profiles.touched) != 1 {
		t.Fatalf("expected one profile write, got %d", len(profiles.touched))
	}
	if cache.expires[presenceKey(userID)] != presenceTTL {
		t.Fatalf("expected presence ttl %v, got %v", presenceTTL, cache.expires[presenceKey(userID)])
	}

	seen, err := svc.LastSeen(context.Background(), []uuid.UUID{userID, uuid.New()})
	if err != nil {
		t.Fatalf("LastSeen: %v", err)
	}
	if len(seen) != 1 || !seen[userID].Equal(time.Date(2026, 10, 17, 9, 0, 20, 0, time.UTC)) {
		t.Fatalf("unexpected last seen %v", seen)
	}
}

func TestPresenceTouchWithoutCacheThrottlesInProcess(t *testing.T) {
	profiles := &stubLastSeen{}
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc := NewPresenceService(profiles, nil)
	svc.now = func() time.Time { return now }
	userID := uuid.New()

	_ = svc.Touch(context.Background(), userID)
	now = now.Add(30 * time.Second)
	_ = svc.Touch(context.Background(), userID)
	now = now.Add(31 * time.Second)
	_ = svc.Touch(context.Background(), userID)

	if len(profiles.touched) != 2 {
		t.Fatalf("expected two profile writes, got %d", len(profiles.touched))
	}
}

func TestPresenceLocalThrottleForgetsIdleUsers(t *testing.T) {
	profiles := &stubLastSeen{}
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc := NewPresenceService(profiles, nil)
	svc.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		_ = svc.Touch(context.Background(), uuid.New())
	}
	if len(svc.flushed) != 50 {
		t.Fatalf("expected 50 tracked users, got %d", len(svc.flushed))
	}

	now = now.Add(2 * presenceFlushGap)
	active := uuid.New()
	_ = svc.Touch(context.Background(), active)

	if len(svc.flushed) != 1 {
		t.Fatalf("expected idle users to be dropped, got %d entries", len(svc.flushed))
	}
	if _, ok := svc.flushed[active]; !ok {
		t.Fatal("expected the active user to stay tracked")
	}
}

func TestPresenceTouchFallsBackWhenCacheFails(t *testing.T) {
	profiles := &stubLastSeen{}
	cache := newMemoryPresenceCache()
	cache.setErr = errors.New("connection refused")
	svc := &PresenceService{profiles: profiles, cache: cache, now: time.Now, flushed: map[uuid.UUID]time.Time{}}

	if err := svc.Touch(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if len(profiles.touched) != 1 {
		t.Fatal("expected profile write when cache is down")
	}
}

func TestIsOnline(t *testing.T) {
	now := time.Now()
	recent := now.Add(-4 * time.Minute)
	stale := now.Add(-6 * time.Minute)
	if !IsOnline(&recent, now) || IsOnline(&stale, now) || IsOnline(nil, now) {
		t.Fatal("unexpected online status")
	}
}
