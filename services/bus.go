package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hcda/config"
	"hcda/models"
)

// AlertBus publishes alert decisions on a Redis channel and lets the
// dashboard subscribe to them.
type AlertBus struct {
	client  *redis.Client
	channel string
}

func NewAlertBus(cfg config.RedisConfig, logger zerolog.Logger) (*AlertBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return NewAlertBusFromClient(client, cfg.Channel), nil
		}
		logger.Warn().Err(lastErr).Int("attempt", i+1).Msg("redis ping failed")
		time.Sleep(time.Second)
	}

	client.Close()
	return nil, fmt.Errorf("redis ping failed after 5 attempts: %w", lastErr)
}

func NewAlertBusFromClient(client *redis.Client, channel string) *AlertBus {
	return &AlertBus{client: client, channel: channel}
}

func (b *AlertBus) Channel() string { return b.channel }

// Notify publishes the decision as JSON.
func (b *AlertBus) Notify(ctx context.Context, d models.AlertDecision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

func (b *AlertBus) Subscribe(ctx context.Context) *redis.PubSub {
	return b.client.Subscribe(ctx, b.channel)
}

func (b *AlertBus) Close() error {
	return b.client.Close()
}
