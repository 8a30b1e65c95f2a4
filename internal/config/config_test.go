// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	if cfg.SchedulesDirect.TokenCachePath != "data/sd_token.json" {
		t.Errorf("默认令牌缓存路径应该是 'data/sd_token.json'，实际是 '%s'", cfg.SchedulesDirect.TokenCachePath)
	}

	if cfg.Recording.DefaultPaddingStart == nil || *cfg.Recording.DefaultPaddingStart != 60 {
		t.Errorf("默认提前缓冲应该是 60，实际是 %v", cfg.Recording.DefaultPaddingStart)
	}

	if cfg.Recording.DefaultPaddingEnd == nil || *cfg.Recording.DefaultPaddingEnd != 120 {
		t.Errorf("默认延后缓冲应该是 120，实际是 %v", cfg.Recording.DefaultPaddingEnd)
	}

	if cfg.Recording.CheckIntervalSec != 10 {
		t.Errorf("默认轮询间隔应该是 10 秒，实际是 %d", cfg.Recording.CheckIntervalSec)
	}

	if cfg.Recording.LookaheadMin != 5 {
		t.Errorf("默认提前查询窗口应该是 5 分钟，实际是 %d", cfg.Recording.LookaheadMin)
	}

	if cfg.Recording.MaxResumeAttempts != 3 {
		t.Errorf("默认续传次数应该是 3，实际是 %d", cfg.Recording.MaxResumeAttempts)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("默认数据库驱动应该是 'sqlite'，实际是 '%s'", cfg.Database.Driver)
	}

	if cfg.Database.Port != 3306 {
		t.Errorf("默认数据库端口应该是 3306，实际是 %d", cfg.Database.Port)
	}

	if cfg.Scheduler.GuideSyncTime != "04:00" {
		t.Errorf("默认同步时间应该是 '04:00'，实际是 '%s'", cfg.Scheduler.GuideSyncTime)
	}

	if cfg.Scheduler.GuideSyncDays != 3 {
		t.Errorf("默认同步天数应该是 3，实际是 %d", cfg.Scheduler.GuideSyncDays)
	}

	if cfg.API.Port != 8875 {
		t.Errorf("默认 API 端口应该是 8875，实际是 %d", cfg.API.Port)
	}
}

func TestConfig_ZeroPaddingIsPreserved(t *testing.T) {
	// 显式配成 0 是合法值，不能被默认值覆盖
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"recording": {"path": "recordings", "default_padding_start": 0, "default_padding_end": 0}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Recording.DefaultPaddingStart == nil || *cfg.Recording.DefaultPaddingStart != 0 {
		t.Errorf("提前缓冲 = %v, want 0", cfg.Recording.DefaultPaddingStart)
	}
	if cfg.Recording.DefaultPaddingEnd == nil || *cfg.Recording.DefaultPaddingEnd != 0 {
		t.Errorf("延后缓冲 = %v, want 0", cfg.Recording.DefaultPaddingEnd)
	}
}

func TestConfig_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{
			"完整配置",
			Config{
				HDHomeRun:       HDHomeRunConfig{IP: "192.168.1.100"},
				SchedulesDirect: SchedulesDirectConfig{Username: "user", Password: "pass"},
				Recording:       RecordingConfig{Path: "recordings"},
			},
			true,
		},
		{
			"缺少调谐器 IP",
			Config{
				SchedulesDirect: SchedulesDirectConfig{Username: "user", Password: "pass"},
				Recording:       RecordingConfig{Path: "recordings"},
			},
			false,
		},
		{
			"缺少数据源账号",
			Config{
				HDHomeRun: HDHomeRunConfig{IP: "192.168.1.100"},
				Recording: RecordingConfig{Path: "recordings"},
			},
			false,
		},
		{
			"缺少录制目录",
			Config{
				HDHomeRun:       HDHomeRunConfig{IP: "192.168.1.100"},
				SchedulesDirect: SchedulesDirectConfig{Username: "user", Password: "pass"},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_HDHomeRunURLs(t *testing.T) {
	cfg := &Config{HDHomeRun: HDHomeRunConfig{IP: "192.168.1.100"}}

	if got := cfg.HDHomeRunBaseURL(); got != "http://192.168.1.100" {
		t.Errorf("HDHomeRunBaseURL() = %q", got)
	}

	if got := cfg.HDHomeRunStreamURL(); got != "http://192.168.1.100:5004" {
		t.Errorf("HDHomeRunStreamURL() = %q", got)
	}
}
