package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"hcda/config"
)

func TestNewForecastStoreInvalidDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewForecastStore(ctx, "host=localhost port=notaport")
	assert.Error(t, err)
}

func TestNewMQTTNotifierUnreachable(t *testing.T) {
	_, err := NewMQTTNotifier(config.MQTTConfig{
		Broker:   "tcp://127.0.0.1:1",
		Topic:    "hcda/alerts",
		ClientID: "hcda-test",
	}, zerolog.Nop())
	assert.Error(t, err)
}
