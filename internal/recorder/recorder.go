// Package recorder 录制调度与流捕获引擎
package recorder

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/internal/hdhomerun"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"github.com/smysle/sakura-dvr-go/pkg/utils"
	"gorm.io/gorm"
)

// Tuner 流捕获接口
// 由 *hdhomerun.Client 实现，测试时可用桩实现替换
type Tuner interface {
	StreamChannel(ctx context.Context, tuner, channel string, duration time.Duration, outputPath string) (*hdhomerun.StreamResult, error)
}

// Notifier 录制结果通知接口
type Notifier interface {
	RecordingCompleted(title, filePath string, size int64)
	RecordingFailed(title, errMsg string)
}

// Recorder 录制调度器
// 轮询数据库找到该启动的录制任务，每个捕获跑在独立 goroutine 里
type Recorder struct {
	tuner         Tuner
	recordingRepo *repository.RecordingRepository
	notifier      Notifier

	outputDir     string
	checkInterval time.Duration
	lookahead     time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inFlight map[uint]struct{}
	wg       sync.WaitGroup

	now func() time.Time
}

// New 创建录制调度器
func New(tuner Tuner, db *gorm.DB, cfg *config.RecordingConfig) *Recorder {
	return &Recorder{
		tuner:         tuner,
		recordingRepo: repository.NewRecordingRepository(db),
		outputDir:     cfg.Path,
		checkInterval: time.Duration(cfg.CheckIntervalSec) * time.Second,
		lookahead:     time.Duration(cfg.LookaheadMin) * time.Minute,
		inFlight:      make(map[uint]struct{}),
		now:           time.Now,
	}
}

// SetNotifier 设置录制结果通知器
func (r *Recorder) SetNotifier(n Notifier) {
	r.notifier = n
}

// Start 启动轮询循环
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logger.Warn().Msg("录制调度器已在运行")
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		logger.Error().Err(err).Str("dir", r.outputDir).Msg("创建录制目录失败")
	}

	go r.loop()
	logger.Info().
		Dur("check_interval", r.checkInterval).
		Dur("lookahead", r.lookahead).
		Msg("🎬 录制调度器已启动")
}

// Stop 停止轮询并等待所有进行中的录制结束
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	active := len(r.inFlight)
	r.mu.Unlock()

	if active > 0 {
		logger.Info().Int("active", active).Msg("等待进行中的录制结束")
	}
	r.wg.Wait()
	logger.Info().Msg("录制调度器已停止")
}

// InFlightCount 当前进行中的录制数量
func (r *Recorder) InFlightCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

// loop 固定间隔轮询，单次检查出错不中断循环
func (r *Recorder) loop() {
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		r.checkAndStart()
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// checkAndStart 找出进入前置缓冲窗口的录制任务并启动
func (r *Recorder) checkAndStart() {
	now := r.now().UTC()

	recordings, err := r.recordingRepo.GetDueScheduled(now.Add(r.lookahead))
	if err != nil {
		logger.Error().Err(err).Msg("查询待启动录制失败")
		return
	}

	for _, rec := range recordings {
		startTime := rec.Schedule.AirDatetime.Add(-time.Duration(rec.PaddingStartSeconds) * time.Second)
		if startTime.After(now) {
			logger.Debug().
				Uint("recording", rec.ID).
				Dur("starts_in", startTime.Sub(now)).
				Msg("录制尚未到启动时间")
			continue
		}
		r.launch(rec.ID)
	}
}

// launch 启动一个录制 goroutine，同一任务不重复启动
// Stop 之后不再派发新录制，wg.Add 必须和 running 检查在同一临界区里
func (r *Recorder) launch(id uint) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if _, active := r.inFlight[id]; active {
		r.mu.Unlock()
		return
	}
	r.inFlight[id] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error().Uint("recording", id).Interface("panic", p).Msg("录制 goroutine 异常退出")
			}
			r.mu.Lock()
			delete(r.inFlight, id)
			r.mu.Unlock()
			r.wg.Done()
		}()
		r.executeRecording(id)
	}()
}

// executeRecording 执行单个录制的完整流程
func (r *Recorder) executeRecording(id uint) {
	rec, err := r.recordingRepo.GetByIDFull(id)
	if err != nil {
		logger.Error().Err(err).Uint("recording", id).Msg("录制任务不存在")
		return
	}

	schedule := rec.Schedule
	program := schedule.Program
	station := schedule.Station

	if err := rec.MarkInProgress(r.now().UTC()); err != nil {
		logger.Error().Err(err).Uint("recording", id).Msg("录制任务状态异常")
		return
	}
	if err := r.recordingRepo.Save(rec); err != nil {
		logger.Error().Err(err).Uint("recording", id).Msg("保存录制状态失败")
		return
	}

	// 总时长 = 节目时长 + 结束缓冲
	totalDuration := time.Duration(schedule.DurationSeconds+rec.PaddingEndSeconds) * time.Second
	outputPath := r.resolveOutputPath(program.Title, schedule.AirDatetime)

	logger.Info().
		Uint("recording", id).
		Str("title", program.Title).
		Str("channel", station.ChannelNumber).
		Str("file", outputPath).
		Dur("duration", totalDuration).
		Msg("开始录制")

	result, streamErr := r.tuner.StreamChannel(context.Background(), "auto", station.ChannelNumber, totalDuration, outputPath)
	endTime := r.now().UTC()

	if streamErr != nil {
		r.markFailed(rec, fmt.Sprintf("流捕获失败: %v", streamErr), endTime)
		return
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil {
		r.markFailed(rec, fmt.Sprintf("录制文件未生成: %v", statErr), endTime)
		return
	}
	if info.Size() == 0 {
		r.markFailed(rec, "录制文件为空", endTime)
		return
	}

	// 保守估计 500 KB/s，低于此只告警不判失败
	minExpected := int64(totalDuration.Seconds()) * 500 * 1024
	if info.Size() < minExpected {
		logger.Warn().
			Uint("recording", id).
			Str("size", utils.FormatBytes(info.Size())).
			Str("expected_min", utils.FormatBytes(minExpected)).
			Msg("录制文件小于预期")
	}

	if err := rec.MarkCompleted(endTime, outputPath); err != nil {
		logger.Error().Err(err).Uint("recording", id).Msg("标记录制完成失败")
		return
	}
	if err := r.recordingRepo.Save(rec); err != nil {
		logger.Error().Err(err).Uint("recording", id).Msg("保存录制状态失败")
		return
	}

	logger.Info().
		Uint("recording", id).
		Str("title", program.Title).
		Str("size", utils.FormatBytes(info.Size())).
		Int("resume", result.ResumeCount).
		Msg("✅ 录制完成")

	if r.notifier != nil {
		r.notifier.RecordingCompleted(program.Title, outputPath, info.Size())
	}
}

// markFailed 标记录制失败并落库
func (r *Recorder) markFailed(rec *models.Recording, msg string, endTime time.Time) {
	logger.Error().Uint("recording", rec.ID).Str("error", msg).Msg("录制失败")

	if err := rec.MarkFailed(msg, &endTime); err != nil {
		logger.Error().Err(err).Uint("recording", rec.ID).Msg("标记录制失败出错")
		return
	}
	if err := r.recordingRepo.Save(rec); err != nil {
		logger.Error().Err(err).Uint("recording", rec.ID).Msg("保存录制状态失败")
	}

	if r.notifier != nil {
		r.notifier.RecordingFailed(rec.Schedule.Program.Title, msg)
	}
}

// resolveOutputPath 生成输出文件路径："{标题} ({日期} {时间}).ts"，冲突时加 " (N)" 后缀
func (r *Recorder) resolveOutputPath(title string, airDatetime time.Time) string {
	base := fmt.Sprintf("%s (%s %s)",
		utils.SanitizeFilename(title),
		airDatetime.UTC().Format("2006-01-02"),
		airDatetime.UTC().Format("1504"),
	)
	return utils.ResolveOutputPath(r.outputDir, base, ".ts")
}
