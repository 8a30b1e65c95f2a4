// Package repository 节目指南数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuideRepository 频道列表/电视台/节目/播出安排仓库
type GuideRepository struct {
	db *gorm.DB
}

// NewGuideRepository 创建节目指南仓库
func NewGuideRepository(db *gorm.DB) *GuideRepository {
	return &GuideRepository{db: db}
}

// UpsertLineup 按 lineup_id 插入或更新频道列表
// 更新时总是重置软删除标记
func (r *GuideRepository) UpsertLineup(lineup *models.Lineup) error {
	lineup.IsDeleted = false
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lineup_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "transport", "location", "modified", "is_deleted",
		}),
	}).Create(lineup).Error
}

// UpsertStation 按 station_id 插入或更新电视台
func (r *GuideRepository) UpsertStation(station *models.Station) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "station_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"lineup_id", "callsign", "channel_number", "name", "affiliate", "logo_url",
		}),
	}).Create(station).Error
}

// UpsertSchedule 按 schedule_id 插入或更新播出安排
func (r *GuideRepository) UpsertSchedule(schedule *models.Schedule) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "schedule_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"program_id", "duration_seconds", "md5_hash",
		}),
	}).Create(schedule).Error
}

// UpsertProgram 按 program_id 插入或更新节目元数据
func (r *GuideRepository) UpsertProgram(program *models.Program) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "program_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "duration_seconds", "season", "episode", "episode_title",
		}),
	}).Create(program).Error
}

// EnsureProgram 确保节目行存在，已存在时不覆盖任何字段
// 播出安排对节目有外键约束，同步时先占位，元数据随后补全
func (r *GuideRepository) EnsureProgram(id string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "program_id"}},
		DoNothing: true,
	}).Create(&models.Program{ID: id, Title: "Unknown"}).Error
}

// GetEnabledStations 获取所有启用的电视台
func (r *GuideRepository) GetEnabledStations() ([]models.Station, error) {
	var stations []models.Station
	err := r.db.Where("enabled = ?", true).Find(&stations).Error
	return stations, err
}

// GetSchedulesInWindow 获取指定电视台在时间窗口内的播出安排
func (r *GuideRepository) GetSchedulesInWindow(stationIDs []string, start, end time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.Where(
		"station_id IN ? AND air_datetime >= ? AND air_datetime < ?",
		stationIDs, start, end,
	).Find(&schedules).Error
	return schedules, err
}

// GetGuide 获取时间窗口内的节目指南（带节目和电视台信息）
func (r *GuideRepository) GetGuide(start, end time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.
		Preload("Program").
		Preload("Station").
		Where("air_datetime >= ? AND air_datetime < ?", start, end).
		Order("air_datetime ASC").
		Find(&schedules).Error
	return schedules, err
}

// GetScheduleByID 按 ID 获取播出安排（带节目和电视台信息）
func (r *GuideRepository) GetScheduleByID(id string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.
		Preload("Program").
		Preload("Station").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListLineups 获取频道列表
func (r *GuideRepository) ListLineups(includeDeleted bool) ([]models.Lineup, error) {
	var lineups []models.Lineup
	query := r.db
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	err := query.Find(&lineups).Error
	return lineups, err
}

// SoftDeleteLineup 软删除频道列表
func (r *GuideRepository) SoftDeleteLineup(id string) error {
	return r.db.Model(&models.Lineup{}).
		Where("lineup_id = ?", id).
		Update("is_deleted", true).Error
}

// DeleteLineup 硬删除频道列表，级联删除其下电视台/播出安排/录制
func (r *GuideRepository) DeleteLineup(id string) error {
	return r.db.Delete(&models.Lineup{}, "lineup_id = ?", id).Error
}

// CountStations 统计电视台数量
func (r *GuideRepository) CountStations() (int64, error) {
	var count int64
	err := r.db.Model(&models.Station{}).Count(&count).Error
	return count, err
}
