package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// StorageConfig 定义文件系统存储的配置
type StorageConfig struct {
	DataRoot string // 数据根目录，邮箱树和附件仓库都在其下
}

// GatewayConfig 定义匿名投递网关（UDP）的配置
type GatewayConfig struct {
	Enabled    bool   // 是否启动网关
	BindAddr   string // UDP 监听地址，默认 ":2525"
	DailyLimit int    // 每来源每日投递上限，默认 10
	MaxRate    int    // 每秒处理的数据报上限，默认 100
}

// SessionConfig 定义会话令牌的生命周期配置
type SessionConfig struct {
	TTL           time.Duration // 令牌有效期，默认 24h
	SweepInterval time.Duration // 过期令牌清理间隔，默认 10m
}

// TrashConfig 定义回收站清理策略
type TrashConfig struct {
	RetentionDays int           // 进入回收站后的保留天数，默认 30
	PurgeInterval time.Duration // 清理任务运行间隔，默认 1h
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level  string // 日志级别: debug, info, warn, error
	Format string // 输出格式: json 或 console
	File   string // 日志文件路径，为空则只输出到 stdout
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server  ServerConfig  // HTTP 服务器配置
	Storage StorageConfig // 文件系统存储配置
	Gateway GatewayConfig // 匿名投递网关配置
	Session SessionConfig // 会话配置
	Trash   TrashConfig   // 回收站清理配置
	CORS    CORSConfig    // 跨域配置
	Log     LogConfig     // 日志配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: WEBMAIL_
// 例如: WEBMAIL_SERVER_PORT, WEBMAIL_STORAGE_DATA_ROOT
func Load() (*Config, error) {
	// .env 文件是可选的，加载失败静默忽略
	loadEnvFile()

	viper.SetEnvPrefix("webmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("storage.data_root", "./data")
	viper.SetDefault("gateway.enabled", true)
	viper.SetDefault("gateway.bind_addr", ":2525")
	viper.SetDefault("gateway.daily_limit", 10)
	viper.SetDefault("gateway.max_rate", 100)
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("session.sweep_interval", "10m")
	viper.SetDefault("trash.retention_days", 30)
	viper.SetDefault("trash.purge_interval", "1h")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.file", "")

	dataRoot := viper.GetString("storage.data_root")
	if dataRoot == "" {
		return nil, fmt.Errorf("storage.data_root must not be empty")
	}

	dailyLimit := viper.GetInt("gateway.daily_limit")
	if dailyLimit <= 0 {
		dailyLimit = 10
	}
	maxRate := viper.GetInt("gateway.max_rate")
	if maxRate <= 0 {
		maxRate = 100
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("session.ttl"))
	if err != nil || sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	sweepInterval, err := time.ParseDuration(viper.GetString("session.sweep_interval"))
	if err != nil || sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}

	retentionDays := viper.GetInt("trash.retention_days")
	if retentionDays <= 0 {
		retentionDays = 30
	}
	purgeInterval, err := time.ParseDuration(viper.GetString("trash.purge_interval"))
	if err != nil || purgeInterval <= 0 {
		purgeInterval = time.Hour
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Storage: StorageConfig{
			DataRoot: dataRoot,
		},
		Gateway: GatewayConfig{
			Enabled:    viper.GetBool("gateway.enabled"),
			BindAddr:   viper.GetString("gateway.bind_addr"),
			DailyLimit: dailyLimit,
			MaxRate:    maxRate,
		},
		Session: SessionConfig{
			TTL:           sessionTTL,
			SweepInterval: sweepInterval,
		},
		Trash: TrashConfig{
			RetentionDays: retentionDays,
			PurgeInterval: purgeInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
			File:   viper.GetString("log.file"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片，已去除空白字符。
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
