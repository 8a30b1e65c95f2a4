// Sakura DVR - Go Version
// HDHomeRun + Schedules Direct 个人录像机
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/database"
	"github.com/smysle/sakura-dvr-go/internal/hdhomerun"
	"github.com/smysle/sakura-dvr-go/internal/notify"
	"github.com/smysle/sakura-dvr-go/internal/recorder"
	"github.com/smysle/sakura-dvr-go/internal/scheduler"
	"github.com/smysle/sakura-dvr-go/internal/schedulesdirect"
	"github.com/smysle/sakura-dvr-go/internal/service"
	"github.com/smysle/sakura-dvr-go/internal/web"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
	syncNow    = flag.Bool("sync", false, "启动时立即执行一次节目数据同步")
)

func main() {
	flag.Parse()

	// 初始化日志
	logger.Init(*debug)
	logger.Info().Msg("🌸 Sakura DVR 启动中...")

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	if !cfg.IsConfigured() {
		logger.Fatal().Msg("配置不完整: 需要 hdhomerun.ip、schedules_direct 用户名密码和录制目录")
	}
	logger.Info().Msg("✅ 配置加载完成")

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close()
	db := database.GetDB()

	// 节目数据提供方客户端
	sdClient := schedulesdirect.NewClient(
		config.SDBaseURL,
		cfg.SchedulesDirect.Username,
		cfg.SchedulesDirect.Password,
		cfg.SchedulesDirect.TokenCachePath,
	)

	// 调谐器客户端
	tuner := hdhomerun.NewClient(
		cfg.HDHomeRunBaseURL(),
		cfg.HDHomeRunStreamURL(),
		cfg.Recording.MaxResumeAttempts,
		time.Duration(cfg.Recording.ResumeDelaySec)*time.Second,
	)
	if info, err := tuner.GetDeviceInfo(); err != nil {
		logger.Warn().Err(err).Msg("连接 HDHomeRun 失败，录制可能不可用")
	} else {
		logger.Info().
			Str("model", info.ModelNumber).
			Int("tuners", info.TunerCount).
			Msg("✅ HDHomeRun 连接成功")
	}

	// 业务服务
	syncSvc := service.NewGuideSyncService(sdClient, db)
	lineupSvc := service.NewLineupService(sdClient, db)
	recordingSvc := service.NewRecordingService(
		db,
		*cfg.Recording.DefaultPaddingStart,
		*cfg.Recording.DefaultPaddingEnd,
	)

	// Telegram 通知（可选）
	notifier := notify.New(&cfg.Telegram)

	// 录制引擎
	rec := recorder.New(tuner, db, &cfg.Recording)
	if notifier != nil {
		rec.SetNotifier(notifier)
	}
	rec.Start()
	defer rec.Stop()

	// 定时任务调度器
	sched := scheduler.New(cfg, syncSvc, notifier)
	sched.Start()
	defer sched.Stop()

	// Web API 服务
	webServer := web.New(&cfg.API, db, recordingSvc, lineupSvc, sched, rec)
	go func() {
		if err := webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Web API 服务启动失败")
		}
	}()
	defer webServer.Stop()

	// 按需立即同步一次
	if *syncNow {
		sched.RunNow("guide_sync")
	}

	// 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("🚀 Sakura DVR 启动成功!")
	logger.Info().Msg("按 Ctrl+C 停止...")

	<-quit

	logger.Info().Msg("正在关闭服务...")
	logger.Info().Msg("👋 再见!")
}
