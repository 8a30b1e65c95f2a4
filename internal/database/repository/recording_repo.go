// Package repository 录制任务数据仓库
package repository

import (
	"errors"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"gorm.io/gorm"
)

// ErrActiveRecordingExists 同一播出安排已有未完成的录制
var ErrActiveRecordingExists = errors.New("该播出安排已存在未完成的录制任务")

// RecordingRepository 录制任务仓库
type RecordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository 创建录制任务仓库
func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create 创建录制任务
// 在同一事务内先检查该播出安排是否已有活跃录制（每个 Schedule 同时最多一条）
func (r *RecordingRepository) Create(recording *models.Recording) error {
	if err := recording.ValidatePadding(); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Recording{}).
			Where("schedule_id = ? AND status IN ?",
				recording.ScheduleID,
				[]models.RecordingStatus{models.StatusScheduled, models.StatusInProgress},
			).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrActiveRecordingExists
		}

		return tx.Create(recording).Error
	})
}

// GetByID 按 ID 获取录制任务
func (r *RecordingRepository) GetByID(id uint) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.Where("recording_id = ?", id).First(&recording).Error
	if err != nil {
		return nil, err
	}
	return &recording, nil
}

// GetByIDFull 按 ID 获取录制任务，带播出安排/节目/电视台
func (r *RecordingRepository) GetByIDFull(id uint) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.
		Preload("Schedule").
		Preload("Schedule.Program").
		Preload("Schedule.Station").
		Where("recording_id = ?", id).
		First(&recording).Error
	if err != nil {
		return nil, err
	}
	return &recording, nil
}

// Save 保存录制任务
func (r *RecordingRepository) Save(recording *models.Recording) error {
	return r.db.Save(recording).Error
}

// Delete 删除录制任务
func (r *RecordingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Recording{}, "recording_id = ?", id).Error
}

// List 获取录制任务列表，status 为空则返回全部
func (r *RecordingRepository) List(status models.RecordingStatus) ([]models.Recording, error) {
	var recordings []models.Recording
	query := r.db.Preload("Schedule").Preload("Schedule.Program")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("recording_id DESC").Find(&recordings).Error
	return recordings, err
}

// GetDueScheduled 获取播出时间在 lookahead 之前、状态为 scheduled 的录制任务
// 结果按播出时间升序排列，带播出安排信息
func (r *RecordingRepository) GetDueScheduled(lookahead time.Time) ([]models.Recording, error) {
	var recordings []models.Recording
	err := r.db.
		Preload("Schedule").
		Joins("JOIN schedules ON schedules.schedule_id = recordings.schedule_id").
		Where("recordings.status = ? AND schedules.air_datetime <= ?", models.StatusScheduled, lookahead).
		Order("schedules.air_datetime ASC").
		Find(&recordings).Error
	return recordings, err
}
