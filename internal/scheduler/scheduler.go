// Package scheduler 定时任务调度
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/notify"
	"github.com/smysle/sakura-dvr-go/internal/service"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      *config.Config
	syncSvc  *service.GuideSyncService
	notifier *notify.Notifier
}

// New 创建调度器
// 节目表时间全部是 UTC，定时任务也跑在 UTC
func New(cfg *config.Config, syncSvc *service.GuideSyncService, notifier *notify.Notifier) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SetMaxConcurrentJobs(2, gocron.RescheduleMode)

	return &Scheduler{
		cron:     s,
		cfg:      cfg,
		syncSvc:  syncSvc,
		notifier: notifier,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info().Msg("启动定时任务调度器")
	s.registerJobs()
	s.cron.StartAsync()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() {
	cfg := s.cfg.Scheduler

	// 节目数据同步 - 每天配置的时间
	if cfg.GuideSync {
		s.cron.Every(1).Day().At(cfg.GuideSyncTime).Do(s.runGuideSync)
		logger.Info().Str("at", cfg.GuideSyncTime).Int("days", cfg.GuideSyncDays).Msg("已注册: 节目数据同步任务")
	}
}

// runGuideSync 执行节目数据同步
func (s *Scheduler) runGuideSync() {
	logger.Info().Msg("执行定时任务: 节目数据同步")

	status, err := s.syncSvc.SyncGuideData(s.cfg.Scheduler.GuideSyncDays)
	if err != nil {
		logger.Error().Err(err).Msg("定时同步失败")
		s.notifier.SyncFailed(err.Error())
		return
	}

	logger.Info().
		Int("lineups", status.LineupsUpdated).
		Int("stations", status.StationsUpdated).
		Int("schedules", status.SchedulesUpdated).
		Int("programs", status.ProgramsUpdated).
		Msg("定时同步完成")
}

// RunNow 立即执行指定任务（异步）
func (s *Scheduler) RunNow(taskName string) {
	switch taskName {
	case "guide_sync":
		go s.runGuideSync()
	default:
		logger.Warn().Str("task", taskName).Msg("未知任务")
	}
}
