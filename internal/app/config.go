package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/database"
)

// Config represents the runtime configuration for the authentication engine.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig carries process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Name     string            `mapstructure:"name"`
	Options  map[string]string `mapstructure:"options"`
}

// AuthConfig groups the tunables of the credential and token policies.
type AuthConfig struct {
	JWT     JWTConfig     `mapstructure:"jwt"`
	Lockout LockoutConfig `mapstructure:"lockout"`
	Refresh RefreshConfig `mapstructure:"refresh"`
}

// JWTConfig configures token issuance.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// LockoutConfig configures the failed-attempt policy.
type LockoutConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Window    time.Duration `mapstructure:"window"`
}

// RefreshConfig configures refresh-token storage.
type RefreshConfig struct {
	MaxPerUser  int `mapstructure:"max_per_user"`
	TokenLength int `mapstructure:"token_length"`
}

// MaintenanceConfig controls the background cleanup task.
type MaintenanceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

// LoadConfig reads configuration from config.yaml in the provided search
// paths, applying defaults and AUTHCORE_* environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("AUTHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/authcore.sqlite")

	v.SetDefault("auth.jwt.issuer", "auth-core")
	v.SetDefault("auth.jwt.audience", "auth-core-clients")
	v.SetDefault("auth.jwt.access_ttl", "15m")
	v.SetDefault("auth.jwt.refresh_ttl", "24h")

	v.SetDefault("auth.lockout.threshold", 5)
	v.SetDefault("auth.lockout.window", "30m")

	v.SetDefault("auth.refresh.max_per_user", 5)
	v.SetDefault("auth.refresh.token_length", 32)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.cleanup_schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// TokenServiceConfig converts AuthConfig into the parameters expected by the
// token service. The configured secret may be hex or base64 encoded; it is
// decoded into raw key bytes here.
func (c AuthConfig) TokenServiceConfig() (auth.TokenConfig, error) {
	key, err := DecodeKey(c.JWT.Secret)
	if err != nil {
		return auth.TokenConfig{}, fmt.Errorf("decode jwt secret: %w", err)
	}

	return auth.TokenConfig{
		Secret:          key,
		Issuer:          c.JWT.Issuer,
		Audience:        c.JWT.Audience,
		AccessTokenTTL:  c.JWT.AccessTTL,
		RefreshTokenTTL: c.JWT.RefreshTTL,
	}, nil
}

// LockoutGuardConfig converts AuthConfig into lockout guard parameters.
func (c AuthConfig) LockoutGuardConfig() auth.LockoutConfig {
	return auth.LockoutConfig{
		Threshold: c.Lockout.Threshold,
		Window:    c.Lockout.Window,
	}
}

// RefreshServiceConfig converts AuthConfig into refresh-token store parameters.
func (c AuthConfig) RefreshServiceConfig() auth.RefreshConfig {
	return auth.RefreshConfig{
		TTL:         c.JWT.RefreshTTL,
		MaxPerUser:  c.Refresh.MaxPerUser,
		TokenLength: c.Refresh.TokenLength,
	}
}

// DatabaseConfig converts the database section into the database package config.
func (c DatabaseConfig) Connection() database.Config {
	return database.Config{
		Driver:   c.Driver,
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.Name,
		Options:  c.Options,
	}
}
