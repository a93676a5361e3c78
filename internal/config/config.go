// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yipai/yipai/pkg/engine"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/rule"
	"github.com/yipai/yipai/pkg/workload"
)

// Config 应用配置
type Config struct {
	App      AppConfig       `yaml:"app"`
	Database DatabaseConfig  `yaml:"database"`
	API      APIConfig       `yaml:"api"`
	Engine   EngineConfig    `yaml:"engine"`
	Workload workload.Config `yaml:"workload"`
	Log      logger.Config   `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// EngineConfig 排班引擎配置
type EngineConfig struct {
	ScoreThreshold     int           `yaml:"score_threshold"`
	ReassignScoreFloor int           `yaml:"reassign_score_floor"`
	WindowDays         int           `yaml:"window_days"`
	BatchTimeout       time.Duration `yaml:"batch_timeout"`
	Rule               rule.Config   `yaml:"rule"`
}

// ToEngineConfig 转换为引擎包配置
func (c *EngineConfig) ToEngineConfig() *engine.Config {
	ruleCfg := c.Rule
	return &engine.Config{
		ScoreThreshold:     c.ScoreThreshold,
		ReassignScoreFloor: c.ReassignScoreFloor,
		WindowDays:         c.WindowDays,
		Rule:               &ruleCfg,
	}
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 加载配置：先取环境变量与默认值，再用 YIPAI_CONFIG 指向的 YAML 文件覆盖
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "yipai"),
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnvInt("APP_PORT", 7021),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "yipai"),
			User:            getEnv("DB_USER", "yipai"),
			Password:        getEnv("DB_PASSWORD", "yipai123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Timeout: getEnvDuration("API_TIMEOUT", 30*time.Second),
		},
		Engine: EngineConfig{
			ScoreThreshold:     getEnvInt("ENGINE_SCORE_THRESHOLD", 20),
			ReassignScoreFloor: getEnvInt("ENGINE_REASSIGN_SCORE_FLOOR", 50),
			WindowDays:         getEnvInt("ENGINE_WINDOW_DAYS", 60),
			BatchTimeout:       getEnvDuration("ENGINE_BATCH_TIMEOUT", 30*time.Second),
			Rule: rule.Config{
				MinRestHours:          getEnvInt("RULE_MIN_REST_HOURS", 8),
				MaxConsecutiveDays:    getEnvInt("RULE_MAX_CONSECUTIVE_DAYS", 3),
				MaxNightShiftsPerWeek: getEnvInt("RULE_MAX_NIGHT_SHIFTS_PER_WEEK", 2),
				CeilingWarnRatio:      getEnvFloat("RULE_CEILING_WARN_RATIO", 0.9),
				FairnessDelta:         getEnvFloat("RULE_FAIRNESS_DELTA", 5),
			},
		},
		Workload: workload.Config{
			MaxConsecutiveDays: getEnvInt("RULE_MAX_CONSECUTIVE_DAYS", 3),
			CeilingWarnRatio:   getEnvFloat("RULE_CEILING_WARN_RATIO", 0.9),
		},
		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "console"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			TimeFormat: time.RFC3339,
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if path := os.Getenv("YIPAI_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadFile 用 YAML 文件覆盖配置
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
