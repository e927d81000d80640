package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"hcda/config"
	"hcda/models"
)

const mqttTimeout = 5 * time.Second

// MQTTNotifier publishes alert decisions to a broker topic for downstream
// hospital systems.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
}

func NewMQTTNotifier(cfg config.MQTTConfig, logger zerolog.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "-" + time.Now().Format("20060102150405"))
	opts.SetConnectTimeout(mqttTimeout)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	logger.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	return &MQTTNotifier{client: client, topic: cfg.Topic}, nil
}

// Notify publishes with QoS 1 and waits for the broker to acknowledge.
func (n *MQTTNotifier) Notify(ctx context.Context, d models.AlertDecision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	token := n.client.Publish(n.topic, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", n.topic, err)
	}
	return nil
}

func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
