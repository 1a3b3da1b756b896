package stats

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCollector increments counters in Redis so an external scraper can
// pick them up. Writes are best-effort; a slow or absent Redis never
// backs up the message path.
type RedisCollector struct {
	client *redis.Client
	prefix string
}

// NewRedisCollector creates a collector writing under the given key
// prefix.
func NewRedisCollector(client *redis.Client, prefix string) *RedisCollector {
	if prefix == "" {
		prefix = "core:stats"
	}
	return &RedisCollector{client: client, prefix: prefix}
}

func (c *RedisCollector) incr(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.client.Incr(ctx, c.prefix+":"+key).Err(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("stats counter write failed")
		}
	}()
}

func (c *RedisCollector) ConnOpened()         { c.incr("connections_opened") }
func (c *RedisCollector) ConnClosed()         { c.incr("connections_closed") }
func (c *RedisCollector) Message(kind string) { c.incr("messages:" + kind) }
func (c *RedisCollector) RelayMiss()          { c.incr("relay_misses") }
func (c *RedisCollector) FrameDropped()       { c.incr("frames_dropped") }
func (c *RedisCollector) RoomCreated()        { c.incr("rooms_created") }
func (c *RedisCollector) RoomPurged()         { c.incr("rooms_purged") }
