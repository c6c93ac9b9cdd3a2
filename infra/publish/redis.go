package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// RedisConfig configures the Redis channel publisher.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

// RedisPublisher publishes the whole run as one JSON message on a
// pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Addr == "" {
		return nil, model.NewConfigError("publish.addr", "redis address is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = "bikecast:forecasts"
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisPublisher{client: client, channel: cfg.Channel}, nil
}

func (p *RedisPublisher) PublishForecasts(ctx context.Context, runID string, rows []model.ForecastRow) error {
	payload, err := json.Marshal(RunPayload{RunID: runID, GeneratedAt: time.Now().UTC(), Forecasts: rows})
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", runID, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
