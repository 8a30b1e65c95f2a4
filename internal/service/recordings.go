// Package service 业务服务 - 录制任务管理
package service

import (
	"errors"
	"fmt"

	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"gorm.io/gorm"
)

// ErrScheduleNotFound 播出安排不存在
var ErrScheduleNotFound = errors.New("播出安排不存在")

// RecordingService 录制任务管理服务
type RecordingService struct {
	guideRepo     *repository.GuideRepository
	recordingRepo *repository.RecordingRepository

	defaultPaddingStart int
	defaultPaddingEnd   int
}

// NewRecordingService 创建录制任务管理服务
func NewRecordingService(db *gorm.DB, defaultPaddingStart, defaultPaddingEnd int) *RecordingService {
	return &RecordingService{
		guideRepo:           repository.NewGuideRepository(db),
		recordingRepo:       repository.NewRecordingRepository(db),
		defaultPaddingStart: defaultPaddingStart,
		defaultPaddingEnd:   defaultPaddingEnd,
	}
}

// Create 为播出安排创建录制任务
// paddingStart/paddingEnd 传负数表示使用配置默认值
func (s *RecordingService) Create(scheduleID string, paddingStart, paddingEnd int) (*models.Recording, error) {
	schedule, err := s.guideRepo.GetScheduleByID(scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if paddingStart < 0 {
		paddingStart = s.defaultPaddingStart
	}
	if paddingEnd < 0 {
		paddingEnd = s.defaultPaddingEnd
	}

	recording := &models.Recording{
		ScheduleID:          schedule.ID,
		Status:              models.StatusScheduled,
		PaddingStartSeconds: paddingStart,
		PaddingEndSeconds:   paddingEnd,
	}
	if err := s.recordingRepo.Create(recording); err != nil {
		return nil, err
	}

	logger.Info().
		Uint("recording", recording.ID).
		Str("schedule", schedule.ID).
		Str("title", schedule.Program.Title).
		Msg("录制任务已创建")
	return recording, nil
}

// Cancel 取消已排期的录制
func (s *RecordingService) Cancel(id uint) (*models.Recording, error) {
	recording, err := s.recordingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := recording.MarkCancelled(); err != nil {
		return nil, err
	}
	if err := s.recordingRepo.Save(recording); err != nil {
		return nil, err
	}

	logger.Info().Uint("recording", id).Msg("录制任务已取消")
	return recording, nil
}

// Delete 删除录制任务记录，录制中的任务不能删除
func (s *RecordingService) Delete(id uint) error {
	recording, err := s.recordingRepo.GetByID(id)
	if err != nil {
		return err
	}
	if recording.IsInProgress() {
		return fmt.Errorf("录制进行中，不能删除")
	}
	return s.recordingRepo.Delete(id)
}

// Get 按 ID 获取录制任务（带播出安排信息）
func (s *RecordingService) Get(id uint) (*models.Recording, error) {
	return s.recordingRepo.GetByIDFull(id)
}

// List 获取录制任务列表，status 为空返回全部
func (s *RecordingService) List(status models.RecordingStatus) ([]models.Recording, error) {
	return s.recordingRepo.List(status)
}
