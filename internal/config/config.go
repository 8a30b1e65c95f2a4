// Package config 配置管理模块
package config

import (
	"encoding/json"
	"os"
	"sync"
)

// Config 全局配置结构
type Config struct {
	HDHomeRun       HDHomeRunConfig       `json:"hdhomerun"`
	SchedulesDirect SchedulesDirectConfig `json:"schedules_direct"`
	Recording       RecordingConfig       `json:"recording"`
	Database        DatabaseConfig        `json:"database"`
	Scheduler       SchedulerConfig       `json:"scheduler"`
	API             APIConfig             `json:"api"`
	Telegram        TelegramConfig        `json:"telegram"`
}

// HDHomeRunConfig 调谐器设备配置
type HDHomeRunConfig struct {
	IP string `json:"ip"`
}

// SchedulesDirectConfig 节目数据源配置
type SchedulesDirectConfig struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	TokenCachePath string `json:"token_cache_path"`
}

// RecordingConfig 录制配置
// 填充秒数用指针区分"未配置"和"显式配成 0"
type RecordingConfig struct {
	Path                string `json:"path"`
	DefaultPaddingStart *int   `json:"default_padding_start"` // 秒，提前开始
	DefaultPaddingEnd   *int   `json:"default_padding_end"`   // 秒，延后结束
	CheckIntervalSec    int    `json:"check_interval_sec"`
	LookaheadMin        int    `json:"lookahead_min"`
	MaxResumeAttempts   int    `json:"max_resume_attempts"`
	ResumeDelaySec      int    `json:"resume_delay_sec"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"` // sqlite 或 mysql
	Path     string `json:"path"`   // sqlite 数据库文件
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	GuideSync     bool   `json:"guide_sync"`
	GuideSyncTime string `json:"guide_sync_time"` // HH:MM
	GuideSyncDays int    `json:"guide_sync_days"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// TelegramConfig Telegram 通知配置
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// 设置默认值
	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.SchedulesDirect.TokenCachePath == "" {
		c.SchedulesDirect.TokenCachePath = "data/sd_token.json"
	}
	if c.Recording.Path == "" {
		c.Recording.Path = "recordings"
	}
	if c.Recording.DefaultPaddingStart == nil {
		v := 60
		c.Recording.DefaultPaddingStart = &v
	}
	if c.Recording.DefaultPaddingEnd == nil {
		v := 120
		c.Recording.DefaultPaddingEnd = &v
	}
	if c.Recording.CheckIntervalSec == 0 {
		c.Recording.CheckIntervalSec = 10
	}
	if c.Recording.LookaheadMin == 0 {
		c.Recording.LookaheadMin = 5
	}
	if c.Recording.MaxResumeAttempts == 0 {
		c.Recording.MaxResumeAttempts = 3
	}
	if c.Recording.ResumeDelaySec == 0 {
		c.Recording.ResumeDelaySec = 2
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/dvr.db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Scheduler.GuideSyncTime == "" {
		c.Scheduler.GuideSyncTime = "04:00"
	}
	if c.Scheduler.GuideSyncDays == 0 {
		c.Scheduler.GuideSyncDays = 3
	}
	if c.API.Port == 0 {
		c.API.Port = 8875
	}
}

// SDBaseURL Schedules Direct API 基础地址
const SDBaseURL = "https://json.schedulesdirect.org/20141201"

// HDHomeRunBaseURL 调谐器设备基础地址
func (c *Config) HDHomeRunBaseURL() string {
	return "http://" + c.HDHomeRun.IP
}

// HDHomeRunStreamURL 调谐器流接口地址（5004 端口）
func (c *Config) HDHomeRunStreamURL() string {
	return "http://" + c.HDHomeRun.IP + ":5004"
}

// IsConfigured 检查必填配置是否齐全
func (c *Config) IsConfigured() bool {
	return c.HDHomeRun.IP != "" &&
		c.SchedulesDirect.Username != "" &&
		c.SchedulesDirect.Password != "" &&
		c.Recording.Path != ""
}
