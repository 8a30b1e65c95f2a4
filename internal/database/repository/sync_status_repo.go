// Package repository 同步状态数据仓库
package repository

import (
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"gorm.io/gorm"
)

// SyncStatusRepository 同步状态仓库
type SyncStatusRepository struct {
	db *gorm.DB
}

// NewSyncStatusRepository 创建同步状态仓库
func NewSyncStatusRepository(db *gorm.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// Create 创建同步状态记录
func (r *SyncStatusRepository) Create(status *models.SyncStatus) error {
	return r.db.Create(status).Error
}

// Save 保存同步状态
func (r *SyncStatusRepository) Save(status *models.SyncStatus) error {
	return r.db.Save(status).Error
}

// GetLatest 获取最近一次同步状态
func (r *SyncStatusRepository) GetLatest() (*models.SyncStatus, error) {
	var status models.SyncStatus
	err := r.db.Order("sync_id DESC").First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// IsRunning 是否有同步正在进行
func (r *SyncStatusRepository) IsRunning() (bool, error) {
	var count int64
	err := r.db.Model(&models.SyncStatus{}).
		Where("status = ?", models.SyncRunning).
		Count(&count).Error
	return count > 0, err
}
