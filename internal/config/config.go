// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr      string  `mapstructure:"listen_addr"`
	PostgresURL     string  `mapstructure:"postgres_url"`
	OracleURL       string  `mapstructure:"oracle_url"`
	StaticPriceUSD  float64 `mapstructure:"static_price_usd"`
	HarvestSchedule string  `mapstructure:"harvest_schedule"`
	EventBufferSize int     `mapstructure:"event_buffer_size"`
	LogFile         string  `mapstructure:"log_file"`
	DebugLogging    bool    `mapstructure:"debug_logging"`
}

const (
	DefaultListenAddr      = ":8080"
	DefaultHarvestSchedule = "@hourly"
	DefaultEventBufferSize = 1024
	DefaultLogFile         = "logs/launchpad.log"
	DefaultStaticPriceUSD  = 150.0
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":       DefaultListenAddr,
		"harvest_schedule":  DefaultHarvestSchedule,
		"event_buffer_size": DefaultEventBufferSize,
		"log_file":          DefaultLogFile,
		"static_price_usd":  DefaultStaticPriceUSD,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr is empty")
	}
	if cfg.OracleURL != "" {
		if err := validateURLWithCache(cfg.OracleURL, "http"); err != nil {
			return errors.New("invalid oracle URL protocol")
		}
	}
	if cfg.OracleURL == "" && cfg.StaticPriceUSD <= 0 {
		return errors.New("either oracle_url or a positive static_price_usd is required")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}
	if envOracle := v.GetString("ORACLE_URL"); envOracle != "" {
		cfg.OracleURL = envOracle
	}
	if envAddr := v.GetString("LISTEN_ADDR"); envAddr != "" {
		cfg.ListenAddr = envAddr
	}
	return nil
}
