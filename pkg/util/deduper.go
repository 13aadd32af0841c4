package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper marks (handler, id) pairs as processed using SETNX with a TTL.
type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

// DedupKey formats the key for handler and id.
func DedupKey(handler string, id int64) string {
	return fmt.Sprintf("dedup:%s:%d", handler, id)
}

// AcquireOnce returns true the first time handler sees id and false on a
// duplicate. When Redis is unavailable processing is allowed.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, id int64) bool {
	key := DedupKey(handler, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.Int64("id", id),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release forgets id so a later delivery is processed again.
func (d *Deduper) Release(ctx context.Context, handler string, id int64) error {
	return d.rdb.Del(ctx, DedupKey(handler, id)).Err()
}
