package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Invite    InviteConfig    `mapstructure:"invite"`
	Presence  PresenceConfig  `mapstructure:"presence"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// InviteConfig bounds ephemeral invite tokens. Hours outside
// [MinHours, MaxHours] are clamped, not rejected.
type InviteConfig struct {
	DefaultHours   int `mapstructure:"default_hours"`
	MinHours       int `mapstructure:"min_hours"`
	MaxHours       int `mapstructure:"max_hours"`
	DefaultMaxUses int `mapstructure:"default_max_uses"`
	MagicLinkTTL   int `mapstructure:"magic_link_ttl_seconds"`
}

type PresenceConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type VoiceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	URL       string `mapstructure:"url"`
	GrantTTL  int    `mapstructure:"grant_ttl_seconds"`
}

type WebsocketConfig struct {
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	HeartbeatInterval int      `mapstructure:"heartbeat_interval"`
	MaxMessageSize    int64    `mapstructure:"max_message_size"`
	SendBufferSize    int      `mapstructure:"send_buffer_size"`
}

type RateLimitConfig struct {
	AuthPerMinute    int `mapstructure:"auth_per_minute"`
	MessagePerMinute int `mapstructure:"message_per_minute"`
	APIPerMinute     int `mapstructure:"api_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.frontend_url", "http://localhost:3000")

	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.refresh_hours", 72)

	v.SetDefault("invite.default_hours", 168) // 7 days
	v.SetDefault("invite.min_hours", 1)
	v.SetDefault("invite.max_hours", 720) // 30 days
	v.SetDefault("invite.default_max_uses", 1)
	v.SetDefault("invite.magic_link_ttl_seconds", 3600)

	v.SetDefault("presence.ttl_seconds", 300)

	v.SetDefault("voice.url", "ws://localhost:7880")
	v.SetDefault("voice.grant_ttl_seconds", 14400) // 4 hours

	v.SetDefault("websocket.heartbeat_interval", 30)
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer_size", 256)

	v.SetDefault("rate_limit.auth_per_minute", 10)
	v.SetDefault("rate_limit.message_per_minute", 60)
	v.SetDefault("rate_limit.api_per_minute", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}
