package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Metrics struct {
		TickInterval    time.Duration `yaml:"tick_interval"`
		RateWindow      time.Duration `yaml:"rate_window"`
		HistoryCapacity int           `yaml:"history_capacity"`
	} `yaml:"metrics"`

	Alerts struct {
		DisconnectRatePerMinute float64       `yaml:"disconnect_rate_per_minute"`
		MaxParticipants         int           `yaml:"max_participants"`
		MinAvgQuality           float64       `yaml:"min_avg_quality"`
		MaxRoomDuration         time.Duration `yaml:"max_room_duration"`
		ResolvedRetention       int           `yaml:"resolved_retention"`
	} `yaml:"alerts"`

	Hub struct {
		ObserverQueueSize int           `yaml:"observer_queue_size"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		PingInterval      time.Duration `yaml:"ping_interval"`
		PongTimeout       time.Duration `yaml:"pong_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
	} `yaml:"hub"`

	LiveKit struct {
		URL          string        `yaml:"url"`
		APIKey       string        `yaml:"api_key"`
		APISecret    string        `yaml:"api_secret"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"livekit"`

	Simulator struct {
		Enabled      bool          `yaml:"enabled"`
		TargetRooms  int           `yaml:"target_rooms"`
		TickInterval time.Duration `yaml:"tick_interval"`
	} `yaml:"simulator"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Metrics.TickInterval = time.Second
	cfg.Metrics.RateWindow = time.Minute
	cfg.Metrics.HistoryCapacity = 300

	cfg.Alerts.DisconnectRatePerMinute = 5
	cfg.Alerts.MaxParticipants = 100
	cfg.Alerts.MinAvgQuality = 0.5
	cfg.Alerts.MaxRoomDuration = 2 * time.Hour
	cfg.Alerts.ResolvedRetention = 20

	cfg.Hub.ObserverQueueSize = 64
	cfg.Hub.HeartbeatInterval = 30 * time.Second
	cfg.Hub.PingInterval = 30 * time.Second
	cfg.Hub.PongTimeout = 60 * time.Second
	cfg.Hub.WriteTimeout = 10 * time.Second

	cfg.LiveKit.URL = "http://localhost:7880"
	cfg.LiveKit.PollInterval = 30 * time.Second

	cfg.Simulator.Enabled = true
	cfg.Simulator.TargetRooms = 5
	cfg.Simulator.TickInterval = 2 * time.Second

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Metrics.TickInterval <= 0 {
		return fmt.Errorf("metrics.tick_interval must be > 0")
	}
	if c.Metrics.RateWindow < time.Second {
		return fmt.Errorf("metrics.rate_window must be >= 1s")
	}
	if c.Metrics.HistoryCapacity <= 0 {
		return fmt.Errorf("metrics.history_capacity must be > 0")
	}

	if c.Alerts.DisconnectRatePerMinute <= 0 {
		return fmt.Errorf("alerts.disconnect_rate_per_minute must be > 0")
	}
	if c.Alerts.MaxParticipants <= 0 {
		return fmt.Errorf("alerts.max_participants must be > 0")
	}
	if c.Alerts.MinAvgQuality <= 0 || c.Alerts.MinAvgQuality > 1 {
		return fmt.Errorf("alerts.min_avg_quality must be in (0, 1]")
	}
	if c.Alerts.MaxRoomDuration <= 0 {
		return fmt.Errorf("alerts.max_room_duration must be > 0")
	}
	if c.Alerts.ResolvedRetention <= 0 {
		return fmt.Errorf("alerts.resolved_retention must be > 0")
	}

	if c.Hub.ObserverQueueSize <= 0 {
		return fmt.Errorf("hub.observer_queue_size must be > 0")
	}
	if c.Hub.HeartbeatInterval <= 0 {
		return fmt.Errorf("hub.heartbeat_interval must be > 0")
	}
	if c.Hub.PingInterval <= 0 {
		return fmt.Errorf("hub.ping_interval must be > 0")
	}
	if c.Hub.PongTimeout <= c.Hub.PingInterval {
		return fmt.Errorf("hub.pong_timeout must be > hub.ping_interval")
	}
	if c.Hub.WriteTimeout <= 0 {
		return fmt.Errorf("hub.write_timeout must be > 0")
	}

	if !c.Simulator.Enabled {
		if c.LiveKit.URL == "" {
			return fmt.Errorf("livekit.url must not be empty when simulator is disabled")
		}
		if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
			return fmt.Errorf("livekit.api_key and api_secret must be set when simulator is disabled")
		}
		if c.LiveKit.PollInterval <= 0 {
			return fmt.Errorf("livekit.poll_interval must be > 0")
		}
	}
	if c.Simulator.Enabled {
		if c.Simulator.TargetRooms <= 0 {
			return fmt.Errorf("simulator.target_rooms must be > 0")
		}
		if c.Simulator.TickInterval <= 0 {
			return fmt.Errorf("simulator.tick_interval must be > 0")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing is enabled")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("LIVEMON_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("LIVEMON_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("LIVEMON_LIVEKIT_URL"); url != "" {
		c.LiveKit.URL = url
	}
	if key := os.Getenv("LIVEMON_LIVEKIT_API_KEY"); key != "" {
		c.LiveKit.APIKey = key
	}
	if secret := os.Getenv("LIVEMON_LIVEKIT_API_SECRET"); secret != "" {
		c.LiveKit.APISecret = secret
	}
	if sim := os.Getenv("LIVEMON_SIMULATOR_ENABLED"); sim != "" {
		if v, err := strconv.ParseBool(sim); err == nil {
			c.Simulator.Enabled = v
		}
	}
}
