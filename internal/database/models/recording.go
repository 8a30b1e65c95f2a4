// Package models 数据模型 - 录制任务
package models

import (
	"fmt"
	"time"
)

// RecordingStatus 录制状态
//
// 状态机：
//
//	scheduled → in_progress → completed
//	scheduled / in_progress → failed
//	scheduled → cancelled
//
// 所有转换单向，终态（completed/failed/cancelled）不再变化
type RecordingStatus string

const (
	StatusScheduled  RecordingStatus = "scheduled"   // 已排期，未开始
	StatusInProgress RecordingStatus = "in_progress" // 录制中
	StatusCompleted  RecordingStatus = "completed"   // 成功完成
	StatusFailed     RecordingStatus = "failed"      // 录制失败
	StatusCancelled  RecordingStatus = "cancelled"   // 开始前被取消
)

// 填充秒数上限
const (
	MaxPaddingStartSeconds = 1800 // 30 分钟
	MaxPaddingEndSeconds   = 3600 // 60 分钟
)

// Recording 录制任务，跟踪从排期到落盘的完整生命周期
type Recording struct {
	ID                  uint            `gorm:"column:recording_id;primaryKey;autoIncrement" json:"id"`
	ScheduleID          string          `gorm:"column:schedule_id;size:64;index:ix_recording_status_schedule,priority:2" json:"schedule_id"`
	Status              RecordingStatus `gorm:"column:status;size:16;default:'scheduled';index:ix_recording_status_schedule,priority:1" json:"status"`
	PaddingStartSeconds int             `gorm:"column:padding_start_seconds;default:60" json:"padding_start_seconds"`
	PaddingEndSeconds   int             `gorm:"column:padding_end_seconds;default:120" json:"padding_end_seconds"`
	FilePath            *string         `gorm:"column:file_path;size:1024" json:"file_path,omitempty"`
	ActualStartTime     *time.Time      `gorm:"column:actual_start_time" json:"actual_start_time,omitempty"`
	ActualEndTime       *time.Time      `gorm:"column:actual_end_time" json:"actual_end_time,omitempty"`
	ErrorMessage        *string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	Schedule Schedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

// TableName 表名
func (Recording) TableName() string {
	return "recordings"
}

// IsScheduled 是否处于已排期状态
func (r *Recording) IsScheduled() bool {
	return r.Status == StatusScheduled
}

// IsInProgress 是否录制中
func (r *Recording) IsInProgress() bool {
	return r.Status == StatusInProgress
}

// IsTerminal 是否已到终态
func (r *Recording) IsTerminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanCancel 是否可以取消（仅 scheduled 状态可取消）
func (r *Recording) CanCancel() bool {
	return r.Status == StatusScheduled
}

// MarkInProgress 标记为录制中
// 仅 scheduled 状态允许，同时记录实际开始时间
func (r *Recording) MarkInProgress(startTime time.Time) error {
	if !r.IsScheduled() {
		return fmt.Errorf("录制处于 %s 状态，不能开始", r.Status)
	}

	r.Status = StatusInProgress
	r.ActualStartTime = &startTime
	return nil
}

// MarkCompleted 标记为完成
// 仅 in_progress 状态允许，同时记录结束时间和文件路径
func (r *Recording) MarkCompleted(endTime time.Time, filePath string) error {
	if !r.IsInProgress() {
		return fmt.Errorf("录制处于 %s 状态，不能完成", r.Status)
	}

	r.Status = StatusCompleted
	r.ActualEndTime = &endTime
	r.FilePath = &filePath
	return nil
}

// MarkFailed 标记为失败
// scheduled 或 in_progress 状态允许，记录错误信息和可选的结束时间
func (r *Recording) MarkFailed(errMsg string, endTime *time.Time) error {
	if r.Status != StatusScheduled && r.Status != StatusInProgress {
		return fmt.Errorf("录制处于 %s 状态，不能标记失败", r.Status)
	}

	r.Status = StatusFailed
	r.ErrorMessage = &errMsg
	if endTime != nil {
		r.ActualEndTime = endTime
	}
	return nil
}

// MarkCancelled 标记为取消
// 仅 scheduled 状态允许，不改动其他字段
func (r *Recording) MarkCancelled() error {
	if !r.IsScheduled() {
		return fmt.Errorf("录制处于 %s 状态，不能取消", r.Status)
	}

	r.Status = StatusCancelled
	return nil
}

// ValidatePadding 校验填充秒数范围
func (r *Recording) ValidatePadding() error {
	if r.PaddingStartSeconds < 0 || r.PaddingStartSeconds > MaxPaddingStartSeconds {
		return fmt.Errorf("提前填充秒数超出范围 [0, %d]: %d", MaxPaddingStartSeconds, r.PaddingStartSeconds)
	}
	if r.PaddingEndSeconds < 0 || r.PaddingEndSeconds > MaxPaddingEndSeconds {
		return fmt.Errorf("延后填充秒数超出范围 [0, %d]: %d", MaxPaddingEndSeconds, r.PaddingEndSeconds)
	}
	return nil
}
