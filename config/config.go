package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DataConfig holds the relative paths the commands read and write.
type DataConfig struct {
	HistoryPath  string `mapstructure:"history_path"`
	ForecastPath string `mapstructure:"forecast_path"`
	PlotPath     string `mapstructure:"plot_path"`
}

type GeneratorConfig struct {
	Seed      uint64 `mapstructure:"seed"`
	StartDate string `mapstructure:"start_date"`
	Days      int    `mapstructure:"days"`
}

// Start parses StartDate as a calendar date.
func (g GeneratorConfig) Start() (time.Time, error) {
	return time.Parse(time.DateOnly, g.StartDate)
}

type ForecastConfig struct {
	Horizon           int     `mapstructure:"horizon"`
	MinHorizon        int     `mapstructure:"min_horizon"`
	MaxHorizon        int     `mapstructure:"max_horizon"`
	TemperatureWindow int     `mapstructure:"temperature_window"`
	IntervalWidth     float64 `mapstructure:"interval_width"`
}

type AlertConfig struct {
	Multiplier float64 `mapstructure:"multiplier"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// MetricsConfig points the batch commands at a Pushgateway. The server
// exposes /metrics instead and ignores it.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"server.port": 8080,

	"data.history_path":  "data/h_data.csv",
	"data.forecast_path": "data/forecast_output.csv",
	"data.plot_path":     "data/forecast_plot.png",

	"generator.seed":       42,
	"generator.start_date": "2024-01-01",
	"generator.days":       365,

	"forecast.horizon":            30,
	"forecast.min_horizon":        7,
	"forecast.max_horizon":        30,
	"forecast.temperature_window": 7,
	"forecast.interval_width":     0.8,

	"alert.multiplier": 1.2,

	"db.enabled":  false,
	"db.host":     "localhost",
	"db.port":     5432,
	"db.user":     "hcda",
	"db.password": "hcda_dev_password",
	"db.name":     "hcda",
	"db.sslmode":  "disable",

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,
	"redis.channel":  "hcda:alerts",

	"mqtt.enabled":   false,
	"mqtt.broker":    "tcp://localhost:1883",
	"mqtt.topic":     "hcda/alerts",
	"mqtt.client_id": "hcda-forecaster",

	"cors.allowed_origins": "*",

	"metrics.pushgateway_url": "",

	"log.level":  "info",
	"log.format": "json",
}

// LoadConfig reads defaults, an optional config file named by HCDA_CONFIG,
// then environment variables such as SERVER_PORT or FORECAST_HORIZON.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "HCDA_CONFIG"); err != nil {
		return nil, err
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port))
	}
	if c.Generator.Days <= 0 {
		errs = append(errs, fmt.Errorf("GENERATOR_DAYS must be positive, got %d", c.Generator.Days))
	}
	if _, err := c.Generator.Start(); err != nil {
		errs = append(errs, fmt.Errorf("invalid GENERATOR_START_DATE: %w", err))
	}
	if c.Forecast.MinHorizon <= 0 || c.Forecast.MaxHorizon < c.Forecast.MinHorizon {
		errs = append(errs, fmt.Errorf("invalid forecast horizon bounds [%d, %d]",
			c.Forecast.MinHorizon, c.Forecast.MaxHorizon))
	}
	if c.Forecast.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("FORECAST_HORIZON must be positive, got %d", c.Forecast.Horizon))
	}
	if c.Forecast.TemperatureWindow <= 0 {
		errs = append(errs, fmt.Errorf("FORECAST_TEMPERATURE_WINDOW must be positive, got %d", c.Forecast.TemperatureWindow))
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		errs = append(errs, fmt.Errorf("FORECAST_INTERVAL_WIDTH must be in (0, 1), got %v", c.Forecast.IntervalWidth))
	}
	if c.Alert.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("ALERT_MULTIPLIER must be positive, got %v", c.Alert.Multiplier))
	}
	return errors.Join(errs...)
}
