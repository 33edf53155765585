package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldTTLMinutes    int  `yaml:"hold_ttl_minutes"`
	SlotsCacheTTL     int  `yaml:"slots_cache_ttl_seconds"`
	AutoConfirmSlots  bool `yaml:"auto_confirm_slots"`
	StalePendingHours int  `yaml:"stale_pending_hours"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

func (b BookingConfig) StalePendingWindow() time.Duration {
	return time.Duration(b.StalePendingHours) * time.Hour
}

type WorkerConfig struct {
	HoldSweepMinutes        int `yaml:"hold_sweep_minutes"`
	DeliveryIntervalSeconds int `yaml:"delivery_interval_seconds"`
	DeliveryBatchSize       int `yaml:"delivery_batch_size"`
	DeliveryMaxAttempts     int `yaml:"delivery_max_attempts"`
	ReaperIntervalMinutes   int `yaml:"reaper_interval_minutes"`
}

type TelegramConfig struct {
	Token           string  `yaml:"token"`
	APIBase         string  `yaml:"api_base"`
	AdminChatIDs    []int64 `yaml:"admin_chat_ids"`
	DefaultLanguage string  `yaml:"default_language"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
