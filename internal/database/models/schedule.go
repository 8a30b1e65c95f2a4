// Package models 数据模型 - 节目播出安排
package models

import (
	"fmt"
	"time"
)

// Schedule 一次具体的播出：某节目在某电视台某 UTC 时刻播出
type Schedule struct {
	ID              string    `gorm:"column:schedule_id;primaryKey;size:64" json:"id"`
	ProgramID       string    `gorm:"column:program_id;size:32;index" json:"program_id"`
	StationID       string    `gorm:"column:station_id;size:32;index:ix_schedule_station_air" json:"station_id"`
	AirDatetime     time.Time `gorm:"column:air_datetime;index:ix_schedule_station_air" json:"air_datetime"` // 始终为 UTC
	DurationSeconds int       `gorm:"column:duration_seconds" json:"duration_seconds"`
	MD5Hash         string    `gorm:"column:md5_hash;size:32" json:"md5_hash"` // 变更检测哈希

	Program Program `gorm:"foreignKey:ProgramID" json:"-"`
	Station Station `gorm:"foreignKey:StationID" json:"-"`

	Recordings []Recording `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (Schedule) TableName() string {
	return "schedules"
}

// ScheduleID 生成确定性的 Schedule ID：{stationID}_{RFC3339 播出时间}
func ScheduleID(stationID string, airDatetime time.Time) string {
	return fmt.Sprintf("%s_%s", stationID, airDatetime.UTC().Format(time.RFC3339))
}

// EndTime 播出结束时间
func (s *Schedule) EndTime() time.Time {
	return s.AirDatetime.Add(time.Duration(s.DurationSeconds) * time.Second)
}
