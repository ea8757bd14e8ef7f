package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	presenceTTL      = 10 * time.Minute
	presenceFlushGap = time.Minute
	OnlineWindow     = 5 * time.Minute
)

type lastSeenWriter interface {
	TouchLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error
}

// presenceCache is the subset of the redis client used for presence keys.
type presenceCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// PresenceService records when users were last active. With a cache the
// timestamp lives in presence:<id> and reaches the profile row at most once a
// minute; without one the profile row is written directly under the same
// throttle, tracked in process.
type PresenceService struct {
	profiles lastSeenWriter
	cache    presenceCache
	now      func() time.Time

	mu        sync.Mutex
	flushed   map[uuid.UUID]time.Time
	lastSweep time.Time
}

func NewPresenceService(profiles lastSeenWriter, cache *redis.Client) *PresenceService {
	svc := &PresenceService{
		profiles: profiles,
		now:      time.Now,
		flushed:  make(map[uuid.UUID]time.Time),
	}
	if cache != nil {
		svc.cache = cache
	}
	return svc
}

func presenceKey(userID uuid.UUID) string {
	return "presence:" + userID.String()
}

func (s *PresenceService) Touch(ctx context.Context, userID uuid.UUID) error {
	now := s.now().UTC()
	if s.cache == nil {
		if !s.claimLocalFlush(userID, now) {
			return nil
		}
		return s.profiles.TouchLastSeen(ctx, userID, now)
	}

	if err := s.cache.Set(ctx, presenceKey(userID), now.Unix(), presenceTTL).Err(); err != nil {
		slog.Warn("presence cache unavailable, writing profile", "user_id", userID, "error", err)
		if !s.claimLocalFlush(userID, now) {
			return nil
		}
		return s.profiles.TouchLastSeen(ctx, userID, now)
	}

	claimed, err := s.cache.SetNX(ctx, presenceKey(userID)+":flushed", 1, presenceFlushGap).Result()
	if err != nil || !claimed {
		return err
	}
	return s.profiles.TouchLastSeen(ctx, userID, now)
}

// claimLocalFlush reports whether userID may write its profile row now.
// Entries past the flush gap are swept at most once per gap.
func (s *PresenceService) claimLocalFlush(userID uuid.UUID, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= presenceFlushGap {
		for id, last := range s.flushed {
			if now.Sub(last) >= presenceFlushGap {
				delete(s.flushed, id)
			}
		}
		s.lastSweep = now
	}
	if last, ok := s.flushed[userID]; ok && now.Sub(last) < presenceFlushGap {
		return false
	}
	s.flushed[userID] = now
	return true
}

// LastSeen returns cached timestamps for the given users. Users without a
// live presence key are absent from the result.
func (s *PresenceService) LastSeen(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	seen := make(map[uuid.UUID]time.Time, len(userIDs))
	if s.cache == nil || len(userIDs) == 0 {
		return seen, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}
	values, err := s.cache.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		seen[userIDs[i]] = time.Unix(unix, 0).UTC()
	}
	return seen, nil
}

func IsOnline(lastSeen *time.Time, now time.Time) bool {
	return lastSeen != nil && now.Sub(*lastSeen) <= OnlineWindow
}
