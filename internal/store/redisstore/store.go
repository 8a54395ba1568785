// Package redisstore caches per-conversation change stamps so polling
// clients can detect updates without loading the aggregate. It is optional:
// a nil *Store is safe everywhere and simply does nothing.
package redisstore

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const stampPrefix = "convo:stamp:"

// Stamps are diagnostic hints; a stale or missing stamp only costs the
// client one extra fetch, so entries may expire.
const stampTTL = 24 * time.Hour

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Touch implements convo.ChangeNotifier. Failures are logged and dropped;
// the store of record is elsewhere.
func (s *Store) Touch(ctx context.Context, conversationID string, at time.Time) {
	if s == nil {
		return
	}
	if err := s.rdb.Set(ctx, stampPrefix+conversationID, at.UnixMilli(), stampTTL).Err(); err != nil {
		log.Printf("redisstore: touch failed conversation=%s err=%v", conversationID, err)
	}
}

// Stamp returns the cached change stamp, or zero when absent/unavailable.
func (s *Store) Stamp(ctx context.Context, conversationID string) time.Time {
	if s == nil {
		return time.Time{}
	}
	ms, err := s.rdb.Get(ctx, stampPrefix+conversationID).Int64()
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}
