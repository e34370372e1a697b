package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Logger LoggerConfig `mapstructure:"logger"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // e.g., "local", "prod"
}

// ServerConfig drives the feed server: generator cadence, sampling, and
// session housekeeping.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	SampleFraction    float64       `mapstructure:"sample_fraction"`
	UniverseSize      int           `mapstructure:"universe_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	SendBuffer        int           `mapstructure:"send_buffer"`
}

// ClientConfig drives the dashboard's connection manager and render cadence.
type ClientConfig struct {
	URL             string        `mapstructure:"url"`
	ReconnectBase   time.Duration `mapstructure:"reconnect_base"`
	ReconnectCap    time.Duration `mapstructure:"reconnect_cap"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	View            string        `mapstructure:"view"`
	PrefsDir        string        `mapstructure:"prefs_dir"`
}

type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	MirrorEnabled bool          `mapstructure:"mirror_enabled"`
	MirrorTTL     time.Duration `mapstructure:"mirror_ttl"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	EgressEnabled bool     `mapstructure:"egress_enabled"`
}

type LoggerConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	// This ensures variables like SERVER_ADDR are available as real env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.env", "local")

	// :8080 is the documented well-known feed port; the socket lives at /ws.
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tick_interval", "1s")
	v.SetDefault("server.sample_fraction", 0.1)
	v.SetDefault("server.universe_size", 250)
	v.SetDefault("server.heartbeat_interval", "10s")
	v.SetDefault("server.write_wait", "5s")
	v.SetDefault("server.send_buffer", 256)

	v.SetDefault("client.url", "ws://localhost:8080/ws")
	v.SetDefault("client.reconnect_base", "3s")
	v.SetDefault("client.reconnect_cap", "30s")
	v.SetDefault("client.refresh_interval", "250ms")
	v.SetDefault("client.view", "main")
	v.SetDefault("client.prefs_dir", ".quantdash")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mirror_enabled", false)
	v.SetDefault("redis.mirror_ttl", "1h")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.egress_enabled", false)

	v.SetDefault("logger.env", "local")
	v.SetDefault("logger.level", "info")

	// 3. Configure Viper to read Environment Variables
	// This maps dot-notation to underscores (e.g., "server.addr" -> "SERVER_ADDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	// This is crucial for Viper to map flat Env Vars (SERVER_ADDR) to nested structs (Server.Addr)
	bindEnv(v, "app.env")
	bindEnv(v, "server.addr", "server.tick_interval", "server.sample_fraction",
		"server.universe_size", "server.heartbeat_interval", "server.write_wait", "server.send_buffer")
	bindEnv(v, "client.url", "client.reconnect_base", "client.reconnect_cap",
		"client.refresh_interval", "client.view", "client.prefs_dir")
	bindEnv(v, "redis.addr", "redis.password", "redis.db", "redis.mirror_enabled", "redis.mirror_ttl")
	bindEnv(v, "kafka.brokers", "kafka.topic", "kafka.egress_enabled")
	bindEnv(v, "logger.env", "logger.level")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	if cfg.Server.TickInterval <= 0 {
		return nil, fmt.Errorf("server tick interval must be positive")
	}
	if cfg.Server.SampleFraction < 0 || cfg.Server.SampleFraction > 1 {
		return nil, fmt.Errorf("server sample fraction must be in [0,1]")
	}
	if cfg.Kafka.EgressEnabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty when egress is enabled")
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
