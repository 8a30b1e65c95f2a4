// Package models 数据模型 - 同步状态
package models

import "time"

// 同步状态取值
const (
	SyncRunning   = "running"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncStatus 一次节目数据同步的进度记录
// 每次同步创建一条，计数/状态/完成时间随同步推进原地更新
type SyncStatus struct {
	ID               uint       `gorm:"column:sync_id;primaryKey;autoIncrement" json:"id"`
	StartedAt        time.Time  `gorm:"column:started_at;index" json:"started_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Status           string     `gorm:"column:status;size:16" json:"status"`
	LineupsUpdated   int        `gorm:"column:lineups_updated;default:0" json:"lineups_updated"`
	StationsUpdated  int        `gorm:"column:stations_updated;default:0" json:"stations_updated"`
	SchedulesUpdated int        `gorm:"column:schedules_updated;default:0" json:"schedules_updated"`
	ProgramsUpdated  int        `gorm:"column:programs_updated;default:0" json:"programs_updated"`
	ErrorMessage     *string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
}

// TableName 表名
func (SyncStatus) TableName() string {
	return "sync_status"
}

// DurationSeconds 同步耗时（秒），未完成返回 -1
func (s *SyncStatus) DurationSeconds() float64 {
	if s.CompletedAt == nil {
		return -1
	}
	return s.CompletedAt.Sub(s.StartedAt).Seconds()
}
