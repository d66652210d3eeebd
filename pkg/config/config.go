package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"vrcache/pkg/cache"
	baseerr "vrcache/pkg/error"
	"vrcache/pkg/logger"
)

// EnvPrefix 环境变量前缀，例如 VRCACHE_SERVER_ADDR
const EnvPrefix = "VRCACHE"

// ErrConfigLoad 配置文件读取或解析失败
const ErrConfigLoad baseerr.ErrorCode = "CONFIG_LOAD"

// Config 主配置结构
type Config struct {
	// 日志配置
	Logger logger.Config `mapstructure:"logger" yaml:"logger"`

	// HTTP 服务配置
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// 缓存配置
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`                         // 监听地址
	Mode            string        `mapstructure:"mode" yaml:"mode"`                         // gin 模式 (debug, release, test)
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`         // 读超时
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`       // 写超时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"` // 优雅关闭等待时间
}

// CacheConfig 分层缓存配置，层按从快到慢排列
type CacheConfig struct {
	Tiers []cache.StoreConfig `mapstructure:"tiers" yaml:"tiers"`
}

// DefaultTiers 默认两层缓存：小而快的 LRU 层加大容量 adaptive 层
func DefaultTiers() []cache.StoreConfig {
	return []cache.StoreConfig{
		{
			Name:          "l1",
			MaxSize:       1000,
			MaxMemory:     16 << 20,
			DefaultTTL:    5 * time.Minute,
			Strategy:      cache.StrategyLRU,
			SweepInterval: time.Minute,
		},
		{
			Name:          "l2",
			MaxSize:       10000,
			MaxMemory:     128 << 20,
			DefaultTTL:    30 * time.Minute,
			Strategy:      cache.StrategyAdaptive,
			SweepInterval: 5 * time.Minute,
			Adaptive:      cache.DefaultAdaptiveWeights,
		},
	}
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Logger: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Tiers: DefaultTiers(),
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server addr cannot be empty")
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode %q", c.Server.Mode)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("server timeouts cannot be negative")
	}

	if len(c.Cache.Tiers) == 0 {
		return errors.New("at least one cache tier is required")
	}

	names := make(map[string]int, len(c.Cache.Tiers))
	for i, tier := range c.Cache.Tiers {
		if err := tier.Validate(); err != nil {
			return fmt.Errorf("cache tier %d: %w", i, err)
		}
		if tier.Name == "" {
			continue
		}
		if j, dup := names[tier.Name]; dup {
			return fmt.Errorf("cache tier %d reuses name %q of tier %d", i, tier.Name, j)
		}
		names[tier.Name] = i
	}

	return nil
}

// Load 从配置文件和环境变量加载配置。path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetDefault("logger.level", defaults.Logger.Level)
	v.SetDefault("logger.format", defaults.Logger.Format)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.mode", defaults.Server.Mode)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, baseerr.WrapError(ErrConfigLoad, "读取配置文件失败", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, baseerr.WrapError(ErrConfigLoad, "解析配置文件失败", err)
	}

	// 切片无法与默认值逐项合并，未配置时整体使用默认层
	if len(cfg.Cache.Tiers) == 0 {
		cfg.Cache.Tiers = defaults.Cache.Tiers
	}

	if err := cfg.Validate(); err != nil {
		return nil, baseerr.WrapError(cache.ErrConfigInvalid, "配置无效", err)
	}
	return cfg, nil
}

// Dump 以 YAML 输出配置，时长字段输出为 "5m0s" 形式的字符串，可被 Load 重新读取
func (c *Config) Dump() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	return data, nil
}

// SetLogLevel 设置日志级别
func (c *Config) SetLogLevel(level string) *Config {
	c.Logger.Level = level
	return c
}

// SetAddr 设置监听地址
func (c *Config) SetAddr(addr string) *Config {
	c.Server.Addr = addr
	return c
}
