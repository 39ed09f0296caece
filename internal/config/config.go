package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig carries basic process identity.
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig configures the REST + WebSocket + metrics listener.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig configures the rolling log file sink.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig configures the optional cross-replica push relay.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// AgentConfig statically declares one backend Agent to auto-register at startup.
type AgentConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ScheduleConfig declares one cron-triggered recurring effect.
type ScheduleConfig struct {
	ID       string         `mapstructure:"id"`
	CronExpr string         `mapstructure:"cron"`
	AgentID  string         `mapstructure:"agentId"`
	Master   int            `mapstructure:"master"`
	CU       int            `mapstructure:"cu"`
	Action   string         `mapstructure:"action"` // "fade" | "wave" | "scene"
	Params   map[string]int `mapstructure:"params"`
}

// AgentDefaultsConfig sets tunables shared by every Agent client.
type AgentDefaultsConfig struct {
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnectDelay"`
	Backoff        string        `mapstructure:"backoff"` // "fixed" | "exponential"
	MaxBackoff     time.Duration `mapstructure:"maxBackoff"`
	RateLimitPerS  float64       `mapstructure:"rateLimitPerSecond"`
	RateBurst      int           `mapstructure:"rateBurst"`
}

// Config is the top-level, fully-loaded configuration tree.
type Config struct {
	App       AppConfig            `mapstructure:"app"`
	HTTP      HTTPConfig           `mapstructure:"http"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Metrics   MetricsConfig        `mapstructure:"metrics"`
	Redis     RedisConfig          `mapstructure:"redis"`
	Agents    []AgentConfig        `mapstructure:"agents"`
	Schedules []ScheduleConfig     `mapstructure:"schedules"`
	AgentDef  AgentDefaultsConfig  `mapstructure:"agentDefaults"`
	Auth      AuthConfig           `mapstructure:"auth"`
}

// AuthConfig gates the REST surface with a static API-key list.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// Load reads YAML/env configuration for the gateway.
//
// If path is empty, LCS_CONFIG is consulted; failing that, it falls back to
// configs/example.yaml relative to the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("LCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		// LCS_CONFIG is a raw override, not a namespaced setting, so it's
		// read directly from the environment rather than through v — once
		// SetEnvPrefix is active, v.Get("LCS_CONFIG") would look for
		// LCS_LCS_CONFIG instead.
		path = os.Getenv("LCS_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Convenience single-agent bootstrap: LCS_HOST/LCS_PORT auto-register an
	// agent named "default" only when the config carries no static list.
	if len(cfg.Agents) == 0 {
		host := v.GetString("HOST")
		port := v.GetInt("PORT")
		if host != "" && port != 0 {
			cfg.Agents = append(cfg.Agents, AgentConfig{ID: "default", Name: "default", Host: host, Port: port})
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lcs-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/lcs-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "lcs:state-changed")

	v.SetDefault("agentDefaults.requestTimeout", "5s")
	v.SetDefault("agentDefaults.reconnectDelay", "5s")
	v.SetDefault("agentDefaults.backoff", "fixed")
	v.SetDefault("agentDefaults.maxBackoff", "30s")
	v.SetDefault("agentDefaults.rateLimitPerSecond", 20.0)
	v.SetDefault("agentDefaults.rateBurst", 10)

	v.SetDefault("auth.enabled", false)
}
