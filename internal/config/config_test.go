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
		"INTRAMAIL_JWT_SECRET",
		"INTRAMAIL_SERVER_HOST",
		"INTRAMAIL_SERVER_PORT",
		"INTRAMAIL_MAIL_DEFAULT_PAGE_SIZE",
		"INTRAMAIL_MAIL_MAX_PAGE_SIZE",
		"INTRAMAIL_MAIL_SEND_RATE_PER_MINUTE",
		"INTRAMAIL_MAIL_SWEEP_INTERVAL",
		"INTRAMAIL_CORS_ALLOWED_ORIGINS",
		"INTRAMAIL_DATABASE_TYPE",
		"INTRAMAIL_REDIS_ENABLED",
		"INTRAMAIL_LOG_LEVEL",
		"INTRAMAIL_LOG_DEVELOPMENT",
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

	clearEnvs := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnvs()
		os.Setenv("INTRAMAIL_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 20, cfg.Mail.DefaultPageSize)
		assert.Equal(t, 100, cfg.Mail.MaxPageSize)
		assert.Equal(t, 30, cfg.Mail.SendRatePerMinute)
		assert.Equal(t, time.Hour, cfg.Mail.SweepInterval)
		assert.Equal(t, int64(1<<20), cfg.Mail.MaxBodyBytes)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "", cfg.Database.Type)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "intramail", cfg.JWT.Issuer)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
		assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		clearEnvs()
		os.Setenv("INTRAMAIL_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("INTRAMAIL_SERVER_HOST", "127.0.0.1")
		os.Setenv("INTRAMAIL_SERVER_PORT", "9090")
		os.Setenv("INTRAMAIL_MAIL_DEFAULT_PAGE_SIZE", "10")
		os.Setenv("INTRAMAIL_CORS_ALLOWED_ORIGINS", "https://mail.corp.local, https://admin.corp.local")
		os.Setenv("INTRAMAIL_LOG_LEVEL", "debug")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 10, cfg.Mail.DefaultPageSize)
		assert.Equal(t, []string{"https://mail.corp.local", "https://admin.corp.local"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("最大分页不能小于默认分页", func(t *testing.T) {
		clearEnvs()
		os.Setenv("INTRAMAIL_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("INTRAMAIL_MAIL_DEFAULT_PAGE_SIZE", "50")
		os.Setenv("INTRAMAIL_MAIL_MAX_PAGE_SIZE", "10")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, 50, cfg.Mail.DefaultPageSize)
		assert.Equal(t, 50, cfg.Mail.MaxPageSize)
	})

	t.Run("缺少JWT密钥时启动失败", func(t *testing.T) {
		clearEnvs()

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("JWT密钥太短时启动失败", func(t *testing.T) {
		clearEnvs()
		os.Setenv("INTRAMAIL_JWT_SECRET", "too-short")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("清理周期格式非法时启动失败", func(t *testing.T) {
		clearEnvs()
		os.Setenv("INTRAMAIL_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("INTRAMAIL_MAIL_SWEEP_INTERVAL", "not-a-duration")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
