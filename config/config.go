package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultConfigName = ".triscan.json"

type Config struct {
	Server       ServerConfig      `json:"server"`
	Scanner      ScannerConfig     `json:"scanner"`
	RPCRateLimit RateLimitConfig   `json:"rpc_rate_limit"`
	RPCEndpoints map[string]string `json:"rpc_endpoints"`
	Redis        RedisConfig       `json:"redis"`
	Metrics      MetricsConfig     `json:"metrics"`

	// Optional YAML file adding to or replacing the built-in networks
	CatalogFile string `json:"catalog_file"`
	Debug       bool   `json:"debug"`

	Logger *zap.Logger `json:"-"`
}

type ServerConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type ScannerConfig struct {
	Workers       int           `json:"workers"`
	PathDelay     time.Duration `json:"path_delay"`
	MaxRetries    int           `json:"max_retries"`
	RetryDelay    time.Duration `json:"retry_delay"`
	PoolCacheTTL  time.Duration `json:"pool_cache_ttl"`
	PoolCacheSize int           `json:"pool_cache_size"`
	GasCacheTTL   time.Duration `json:"gas_cache_ttl"`
	ImpactCeiling float64       `json:"impact_ceiling"`
	TopN          int           `json:"top_n"`

	// Continuous scanning
	ScanInterval time.Duration `json:"scan_interval"`
	WatchPaths   int           `json:"watch_paths"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	BurstSize         int           `json:"burst_size"`
	WaitTimeout       time.Duration `json:"wait_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

type MetricsConfig struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.Server.Addr == "" {
		errors = append(errors, "server.addr must be specified")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errors = append(errors, "server timeouts must not be negative")
	}

	if err := c.Scanner.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("scanner config error: %v", err))
	}

	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errors = append(errors, "redis.addr must be specified when redis is enabled")
		}
		if c.Redis.Channel == "" {
			errors = append(errors, "redis.channel must be specified when redis is enabled")
		}
	}

	if c.Metrics.Namespace == "" {
		errors = append(errors, "metrics.namespace must be specified")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *ScannerConfig) Validate() error {
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if s.PathDelay < 0 || s.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if s.PoolCacheTTL <= 0 || s.GasCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if s.PoolCacheSize <= 0 {
		return fmt.Errorf("pool cache size must be positive")
	}
	if s.ImpactCeiling <= 0 {
		return fmt.Errorf("impact ceiling must be positive")
	}
	if s.TopN <= 0 {
		return fmt.Errorf("top n must be positive")
	}
	if s.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive")
	}
	if s.WatchPaths <= 0 {
		return fmt.Errorf("watch paths must be positive")
	}

	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if r.RequestsPerSecond > 0 && r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout < 0 {
		return fmt.Errorf("wait timeout must not be negative")
	}

	return nil
}

// LoadConfig reads cfgFile over the defaults and applies environment
// overrides. An empty cfgFile reads ~/.triscan.json when it exists.
func LoadConfig(cfgFile string) (*Config, error) {
	config := NewConfig()

	explicit := cfgFile != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			cfgFile = filepath.Join(home, defaultConfigName)
		}
	}

	if cfgFile != "" {
		file, err := os.Open(cfgFile)
		switch {
		case err == nil:
			defer file.Close()
			if err := json.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	config.ApplyEnv()

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides settings from the process environment
func (c *Config) ApplyEnv() {
	if port := GetEnvWithDefault(EnvPort, ""); port != "" {
		c.Server.Addr = ":" + port
	}
	if c.RPCEndpoints == nil {
		c.RPCEndpoints = make(map[string]string)
	}
	if url := GetEnvWithDefault(EnvArbitrumRPC, ""); url != "" {
		c.RPCEndpoints["arbitrum"] = url
	}
	if url := GetEnvWithDefault(EnvPolygonRPC, ""); url != "" {
		c.RPCEndpoints["polygon"] = url
	}
	if addr := GetEnvWithDefault(EnvRedisAddr, ""); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}
	if catalog := GetEnvWithDefault(EnvCatalogFile, ""); catalog != "" {
		c.CatalogFile = catalog
	}
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, defaultConfigName)
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Scanner: ScannerConfig{
			Workers:       1,
			PathDelay:     50 * time.Millisecond,
			MaxRetries:    2,
			RetryDelay:    100 * time.Millisecond,
			PoolCacheTTL:  5 * time.Minute,
			PoolCacheSize: 4096,
			GasCacheTTL:   15 * time.Second,
			ImpactCeiling: 2.0,
			TopN:          10,
			ScanInterval:  10 * time.Second,
			WatchPaths:    10,
		},
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 25,
			BurstSize:         50,
			WaitTimeout:       30 * time.Second,
		},
		RPCEndpoints: map[string]string{},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Channel: "triscan:opportunities",
		},
		Metrics: MetricsConfig{
			Namespace: "triscan",
			Path:      "/metrics",
		},
		Logger: zap.NewNop(),
	}
}
