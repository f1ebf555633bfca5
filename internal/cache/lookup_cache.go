// Package cache holds the optional read-through cache for barcode lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"general-store/internal/config"
	"general-store/internal/core"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "store:lookup:"
	genPrefix = "store:lookup-gen:"

	// genTTL outlives any in-flight lookup; an expired counter reads as 0 again.
	genTTL = 24 * time.Hour
)

// LookupCache stores point-of-sale snapshots by barcode.
//
// Every barcode carries a generation counter that Invalidate bumps. Get reports the
// generation on a miss and Set only stores the snapshot while the generation is unchanged,
// so a ledger read that raced with a committed mutation is never cached.
type LookupCache interface {
	// Get returns (snap, 0, nil) on a hit and (nil, gen, nil) on a miss.
	Get(ctx context.Context, barcode string) (*core.ProductSnapshot, int64, error)
	// Set stores snap if the barcode's generation still equals gen.
	Set(ctx context.Context, barcode string, gen int64, snap *core.ProductSnapshot) error
	Invalidate(ctx context.Context, barcodes ...string) error
	Close() error
}

// New returns a Redis cache when an address is configured, otherwise a no-op cache.
func New(cfg config.RedisConfig, logger *zap.Logger) (LookupCache, error) {
	if cfg.Addr == "" {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisLookupCache(client, cfg.TTL, logger), nil
}

// Both keys share the {barcode} hash tag so the compare-and-set script stays in one slot.
func lookupKey(barcode string) string { return keyPrefix + "{" + barcode + "}" }
func genKey(barcode string) string    { return genPrefix + "{" + barcode + "}" }

// setIfGeneration writes KEYS[1] only while KEYS[2] (missing reads as 0) equals ARGV[1].
var setIfGeneration = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
if cur ~= tonumber(ARGV[1]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// RedisLookupCache keeps JSON snapshots in Redis with a fixed TTL.
type RedisLookupCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLookupCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLookupCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLookupCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisLookupCache) Get(ctx context.Context, barcode string) (*core.ProductSnapshot, int64, error) {
	vals, err := c.client.MGet(ctx, lookupKey(barcode), genKey(barcode)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read lookup cache: %w", err)
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, err
	}

	data, ok := vals[0].(string)
	if !ok {
		c.logger.Debug("lookup cache miss", zap.String("barcode", barcode))
		return nil, gen, nil
	}
	var snap core.ProductSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		c.logger.Warn("dropping corrupt lookup cache entry", zap.String("barcode", barcode), zap.Error(err))
		_ = c.client.Del(ctx, lookupKey(barcode)).Err()
		return nil, gen, nil
	}
	return &snap, 0, nil
}

func (c *RedisLookupCache) Set(ctx context.Context, barcode string, gen int64, snap *core.ProductSnapshot) error {
	if snap == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode lookup snapshot: %w", err)
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{lookupKey(barcode), genKey(barcode)},
		gen, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to write lookup cache: %w", err)
	}
	if stored == 0 {
		c.logger.Debug("lookup cache write skipped, barcode changed during read", zap.String("barcode", barcode))
	}
	return nil
}

// Invalidate drops the snapshots and bumps each barcode's generation in one transaction.
func (c *RedisLookupCache) Invalidate(ctx context.Context, barcodes ...string) error {
	if len(barcodes) == 0 {
		return nil
	}
	keys := make([]string, len(barcodes))
	for i, b := range barcodes {
		keys[i] = lookupKey(b)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, b := range barcodes {
			pipe.Incr(ctx, genKey(b))
			pipe.Expire(ctx, genKey(b), genTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate lookup cache: %w", err)
	}
	return nil
}

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid lookup cache generation %q: %w", s, err)
	}
	return gen, nil
}

func (c *RedisLookupCache) Close() error { return c.client.Close() }

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*core.ProductSnapshot, int64, error) { return nil, 0, nil }
func (Noop) Set(context.Context, string, int64, *core.ProductSnapshot) error   { return nil }
func (Noop) Invalidate(context.Context, ...string) error                       { return nil }
func (Noop) Close() error                                                      { return nil }
