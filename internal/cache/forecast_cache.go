package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast:result"
	forecastScanBatchSize = 100
	defaultForecastTTL    = 5 * time.Minute
	redisDialTimeout      = 5 * time.Second
)

// ForecastCache holds engine forecasts. Fallback results are never cached
// since they carry fresh noise on every call.
type ForecastCache interface {
	Get(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResult, bool, error)
	Set(ctx context.Context, req domain.ForecastRequest, result *domain.ForecastResult) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	opts, err := forecastRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("forecast cache: redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.ForecastTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultForecastTTL
	}
	return &redisForecastCache{client: client, ttl: ttl}, nil
}

// forecastRedisOptions prefers REDIS_URL and otherwise falls back to host,
// port and db, defaulting to a local redis.
func forecastRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("forecast cache: invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResult, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(req)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, req domain.ForecastRequest, result *domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(req), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll unlinks every cached forecast, a scan batch at a time.
func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, forecastKeyPrefix+":*", forecastScanBatchSize).Iterator()

	batch := make([]string, 0, forecastScanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == forecastScanBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}

func (c *redisForecastCache) Close() error {
	return c.client.Close()
}

func (n *noopForecastCache) Get(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResult, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, req domain.ForecastRequest, result *domain.ForecastResult) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopForecastCache) Close() error {
	return nil
}

func buildForecastKey(req domain.ForecastRequest) string {
	return fmt.Sprintf("%s:%s", forecastKeyPrefix, forecastRequestHash(req))
}

func forecastRequestHash(req domain.ForecastRequest) string {
	parts := []string{
		"product=" + strings.ToLower(strings.TrimSpace(req.ProductName)),
		"horizon=" + strconv.Itoa(req.ForecastHorizon),
		"scenarios=" + strconv.FormatBool(req.IncludeScenarios),
	}

	// order matters for the series, so points are joined as given
	points := make([]string, len(req.HistoricalData))
	for i, p := range req.HistoricalData {
		points[i] = fmt.Sprintf("%s:%g:%g:%d", strings.TrimSpace(p.Date), p.Value, p.EffectivePrice(), p.EffectiveQuantity())
	}
	parts = append(parts, "history="+strings.Join(points, ","))

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
