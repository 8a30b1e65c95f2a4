// Package recorder 录制调度器测试
package recorder

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/internal/hdhomerun"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(
		&models.Lineup{},
		&models.Station{},
		&models.Program{},
		&models.Schedule{},
		&models.Recording{},
	); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

// seedRecording 预置一条完整的 lineup/station/program/schedule/recording 链
func seedRecording(t *testing.T, db *gorm.DB, airDatetime time.Time) *models.Recording {
	t.Helper()
	guideRepo := repository.NewGuideRepository(db)

	if err := guideRepo.UpsertLineup(&models.Lineup{ID: "USA-CA00053-X"}); err != nil {
		t.Fatal(err)
	}
	if err := guideRepo.UpsertStation(&models.Station{
		ID: "10001", LineupID: "USA-CA00053-X", Callsign: "KTLA", ChannelNumber: "5.1", Enabled: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := guideRepo.UpsertProgram(&models.Program{
		ID: "EP00000001", Title: "晚间新闻", DurationSeconds: 1800,
	}); err != nil {
		t.Fatal(err)
	}
	if err := guideRepo.UpsertSchedule(&models.Schedule{
		ID:              models.ScheduleID("10001", airDatetime),
		StationID:       "10001",
		ProgramID:       "EP00000001",
		AirDatetime:     airDatetime,
		DurationSeconds: 1800,
		MD5Hash:         "h",
	}); err != nil {
		t.Fatal(err)
	}

	recording := &models.Recording{
		ScheduleID:          models.ScheduleID("10001", airDatetime),
		Status:              models.StatusScheduled,
		PaddingStartSeconds: 60,
		PaddingEndSeconds:   120,
	}
	if err := repository.NewRecordingRepository(db).Create(recording); err != nil {
		t.Fatal(err)
	}
	return recording
}

// stubTuner 桩调谐器，把固定内容写进输出文件
type stubTuner struct {
	calls   int32
	payload []byte
	err     error
}

func (s *stubTuner) StreamChannel(ctx context.Context, tuner, channel string, duration time.Duration, outputPath string) (*hdhomerun.StreamResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return &hdhomerun.StreamResult{TunerID: tuner}, s.err
	}
	if err := os.WriteFile(outputPath, s.payload, 0644); err != nil {
		return nil, err
	}
	return &hdhomerun.StreamResult{TunerID: tuner, BytesWritten: int64(len(s.payload))}, nil
}

func newTestRecorder(t *testing.T, db *gorm.DB, tuner Tuner) *Recorder {
	t.Helper()
	r := New(tuner, db, &config.RecordingConfig{
		Path:             t.TempDir(),
		CheckIntervalSec: 10,
		LookaheadMin:     5,
	})
	// 测试直接驱动 checkAndStart，不经过 Start 的轮询循环
	r.running = true
	return r
}

func TestRecorder_ExecutesDueRecording(t *testing.T) {
	db := newTestDB(t)
	// 播出时间已过，前置缓冲已进入启动窗口
	rec := seedRecording(t, db, time.Now().UTC().Add(-time.Minute))

	tuner := &stubTuner{payload: []byte("mpegts-data")}
	r := newTestRecorder(t, db, tuner)

	r.checkAndStart()
	r.wg.Wait()

	if got := atomic.LoadInt32(&tuner.calls); got != 1 {
		t.Fatalf("StreamChannel 调用次数 = %d, want 1", got)
	}

	saved, err := repository.NewRecordingRepository(db).GetByID(rec.ID)
	if err != nil {
		t.Fatalf("查询录制任务失败: %v", err)
	}
	if saved.Status != models.StatusCompleted {
		t.Errorf("status = %q, want %q", saved.Status, models.StatusCompleted)
	}
	if saved.FilePath == nil {
		t.Fatal("file_path 未设置")
	}
	if saved.ActualStartTime == nil || saved.ActualEndTime == nil {
		t.Error("实际起止时间未设置")
	}

	data, err := os.ReadFile(*saved.FilePath)
	if err != nil {
		t.Fatalf("读取录制文件失败: %v", err)
	}
	if string(data) != "mpegts-data" {
		t.Errorf("文件内容 = %q", data)
	}
	if r.InFlightCount() != 0 {
		t.Errorf("InFlightCount = %d, want 0", r.InFlightCount())
	}
}

func TestRecorder_DoesNotStartBeforePaddingWindow(t *testing.T) {
	db := newTestDB(t)
	// 播出在 4 分钟后、前置缓冲 60 秒：在 lookahead 窗口内但还没到启动时间
	seedRecording(t, db, time.Now().UTC().Add(4*time.Minute))

	tuner := &stubTuner{payload: []byte("x")}
	r := newTestRecorder(t, db, tuner)

	r.checkAndStart()
	r.wg.Wait()

	if got := atomic.LoadInt32(&tuner.calls); got != 0 {
		t.Errorf("StreamChannel 调用次数 = %d, want 0", got)
	}
}

func TestRecorder_DoesNotLaunchDuplicates(t *testing.T) {
	db := newTestDB(t)
	rec := seedRecording(t, db, time.Now().UTC().Add(-time.Minute))

	blocker := make(chan struct{})
	tuner := &blockingTuner{release: blocker}
	r := newTestRecorder(t, db, tuner)

	// 第一次启动捕获，第二次轮询时任务仍在 in-flight 集合里
	r.checkAndStart()
	r.checkAndStart()
	close(blocker)
	r.wg.Wait()

	if got := atomic.LoadInt32(&tuner.calls); got != 1 {
		t.Errorf("StreamChannel 调用次数 = %d, want 1", got)
	}

	saved, err := repository.NewRecordingRepository(db).GetByID(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !saved.IsTerminal() {
		t.Errorf("status = %q, want 终态", saved.Status)
	}
}

// blockingTuner 阻塞到 release 关闭才返回
type blockingTuner struct {
	calls   int32
	release chan struct{}
}

func (b *blockingTuner) StreamChannel(ctx context.Context, tuner, channel string, duration time.Duration, outputPath string) (*hdhomerun.StreamResult, error) {
	atomic.AddInt32(&b.calls, 1)
	<-b.release
	if err := os.WriteFile(outputPath, []byte("data"), 0644); err != nil {
		return nil, err
	}
	return &hdhomerun.StreamResult{TunerID: tuner, BytesWritten: 4}, nil
}

func TestRecorder_MarksFailedOnTunerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"没有空闲调谐器", hdhomerun.ErrTunerNotAvailable},
		{"调谐失败", hdhomerun.ErrTuningFailed},
		{"其他捕获错误", fmt.Errorf("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			rec := seedRecording(t, db, time.Now().UTC().Add(-time.Minute))

			tuner := &stubTuner{err: tt.err}
			r := newTestRecorder(t, db, tuner)

			r.checkAndStart()
			r.wg.Wait()

			saved, err := repository.NewRecordingRepository(db).GetByID(rec.ID)
			if err != nil {
				t.Fatal(err)
			}
			if saved.Status != models.StatusFailed {
				t.Errorf("status = %q, want %q", saved.Status, models.StatusFailed)
			}
			if saved.ErrorMessage == nil {
				t.Error("error_message 未记录")
			}
			if saved.ActualEndTime == nil {
				t.Error("actual_end_time 未设置")
			}
		})
	}
}

func TestRecorder_MarksFailedOnEmptyFile(t *testing.T) {
	db := newTestDB(t)
	rec := seedRecording(t, db, time.Now().UTC().Add(-time.Minute))

	// 捕获"成功"但文件是空的
	tuner := &stubTuner{payload: []byte{}}
	r := newTestRecorder(t, db, tuner)

	r.checkAndStart()
	r.wg.Wait()

	saved, err := repository.NewRecordingRepository(db).GetByID(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Status != models.StatusFailed {
		t.Errorf("status = %q, want %q", saved.Status, models.StatusFailed)
	}
}

func TestRecorder_StopSuppressesNewLaunches(t *testing.T) {
	db := newTestDB(t)

	tuner := &stubTuner{payload: []byte("x")}
	r := New(tuner, db, &config.RecordingConfig{
		Path:             t.TempDir(),
		CheckIntervalSec: 10,
		LookaheadMin:     5,
	})
	r.Start()
	r.Stop()

	// 停止后出现的到期任务不能再被派发
	seedRecording(t, db, time.Now().UTC().Add(-time.Minute))
	r.checkAndStart()
	r.wg.Wait()

	if got := atomic.LoadInt32(&tuner.calls); got != 0 {
		t.Errorf("停止后 StreamChannel 调用次数 = %d, want 0", got)
	}
	if r.InFlightCount() != 0 {
		t.Errorf("InFlightCount = %d, want 0", r.InFlightCount())
	}
}

func TestRecorder_SkipsCancelledRecordings(t *testing.T) {
	db := newTestDB(t)
	rec := seedRecording(t, db, time.Now().UTC().Add(-time.Minute))

	repo := repository.NewRecordingRepository(db)
	loaded, err := repo.GetByID(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.MarkCancelled(); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(loaded); err != nil {
		t.Fatal(err)
	}

	tuner := &stubTuner{payload: []byte("x")}
	r := newTestRecorder(t, db, tuner)

	r.checkAndStart()
	r.wg.Wait()

	if got := atomic.LoadInt32(&tuner.calls); got != 0 {
		t.Errorf("已取消的录制不应启动捕获, 调用次数 = %d", got)
	}
}
