// Package web Web API 服务
package web

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/database"
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/internal/recorder"
	"github.com/smysle/sakura-dvr-go/internal/scheduler"
	"github.com/smysle/sakura-dvr-go/internal/service"
	pkglogger "github.com/smysle/sakura-dvr-go/pkg/logger"
)

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	startTime time.Time

	guideRepo    *repository.GuideRepository
	syncRepo     *repository.SyncStatusRepository
	recordingSvc *service.RecordingService
	lineupSvc    *service.LineupService
	sched        *scheduler.Scheduler
	recorder     *recorder.Recorder
}

// New 创建 Web 服务器
func New(
	cfg *config.APIConfig,
	db *gorm.DB,
	recordingSvc *service.RecordingService,
	lineupSvc *service.LineupService,
	sched *scheduler.Scheduler,
	rec *recorder.Recorder,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	server := &Server{
		app:          app,
		cfg:          cfg,
		startTime:    time.Now(),
		guideRepo:    repository.NewGuideRepository(db),
		syncRepo:     repository.NewSyncStatusRepository(db),
		recordingSvc: recordingSvc,
		lineupSvc:    lineupSvc,
		sched:        sched,
		recorder:     rec,
	}

	server.registerRoutes()
	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)
	s.app.Get("/status", s.detailedStatus)

	v1 := s.app.Group("/api/v1")

	// 节目指南
	v1.Get("/guide", s.getGuide)

	// 频道列表
	v1.Get("/lineups", s.listLineups)
	v1.Post("/lineups/search", s.searchHeadends)
	v1.Put("/lineups/:id", s.addLineup)
	v1.Delete("/lineups/:id", s.deleteLineup)

	// 录制任务
	v1.Get("/recordings", s.listRecordings)
	v1.Post("/recordings", s.createRecording)
	v1.Get("/recordings/:id", s.getRecording)
	v1.Post("/recordings/:id/cancel", s.cancelRecording)
	v1.Delete("/recordings/:id", s.deleteRecording)

	// 同步
	v1.Post("/sync", s.triggerSync)
	v1.Get("/sync/latest", s.latestSync)
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	System    SystemInfo     `json:"system"`
	Database  DatabaseStatus `json:"database"`
	Recording RecorderStatus `json:"recording"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected    bool  `json:"connected"`
	StationCount int64 `json:"station_count"`
}

// RecorderStatus 录制引擎状态
type RecorderStatus struct {
	InFlight int `json:"in_flight"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbConnected := false
	var stationCount int64
	if db := database.GetDB(); db != nil {
		sqlDB, err := db.DB()
		if err == nil && sqlDB.Ping() == nil {
			dbConnected = true
			stationCount, _ = s.guideRepo.CountStations()
		}
	}

	inFlight := 0
	if s.recorder != nil {
		inFlight = s.recorder.InFlightCount()
	}

	return c.JSON(StatusResponse{
		Status:  "ok",
		Version: "1.0.0",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Database: DatabaseStatus{
			Connected:    dbConnected,
			StationCount: stationCount,
		},
		Recording: RecorderStatus{
			InFlight: inFlight,
		},
	})
}

// getGuide 获取时间窗口内的节目指南，默认未来 24 小时
func (s *Server) getGuide(c *fiber.Ctx) error {
	start := time.Now().UTC()
	end := start.Add(24 * time.Hour)

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start 时间格式无效"})
		}
		start = t.UTC()
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end 时间格式无效"})
		}
		end = t.UTC()
	}

	schedules, err := s.guideRepo.GetGuide(start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "查询节目指南失败"})
	}

	items := make([]GuideItem, 0, len(schedules))
	for i := range schedules {
		items = append(items, newGuideItem(&schedules[i]))
	}
	return c.JSON(fiber.Map{"count": len(items), "schedules": items})
}

// GuideItem 节目指南条目
type GuideItem struct {
	ScheduleID      string  `json:"schedule_id"`
	StationID       string  `json:"station_id"`
	Callsign        string  `json:"callsign"`
	ChannelNumber   string  `json:"channel_number"`
	Title           string  `json:"title"`
	EpisodeInfo     string  `json:"episode_info,omitempty"`
	Description     *string `json:"description,omitempty"`
	AirDatetime     string  `json:"air_datetime"`
	DurationSeconds int     `json:"duration_seconds"`
}

func newGuideItem(schedule *models.Schedule) GuideItem {
	return GuideItem{
		ScheduleID:      schedule.ID,
		StationID:       schedule.StationID,
		Callsign:        schedule.Station.Callsign,
		ChannelNumber:   schedule.Station.ChannelNumber,
		Title:           schedule.Program.Title,
		EpisodeInfo:     schedule.Program.EpisodeInfo(),
		Description:     schedule.Program.Description,
		AirDatetime:     schedule.AirDatetime.UTC().Format(time.RFC3339),
		DurationSeconds: schedule.DurationSeconds,
	}
}

// listLineups 获取频道列表
func (s *Server) listLineups(c *fiber.Ctx) error {
	includeDeleted := c.QueryBool("include_deleted")
	lineups, err := s.lineupSvc.ListLineups(includeDeleted)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "查询频道列表失败"})
	}
	return c.JSON(fiber.Map{"count": len(lineups), "lineups": lineups})
}

// SearchHeadendsRequest 前端搜索请求
type SearchHeadendsRequest struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// searchHeadends 按地区搜索可订阅的频道列表
func (s *Server) searchHeadends(c *fiber.Ctx) error {
	var req SearchHeadendsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "无效的请求体"})
	}
	if req.Country == "" || req.PostalCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "country 和 postal_code 不能为空"})
	}

	headends, err := s.lineupSvc.SearchHeadends(req.Country, req.PostalCode)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(headends), "headends": headends})
}

// addLineup 添加频道列表
func (s *Server) addLineup(c *fiber.Ctx) error {
	resp, err := s.lineupSvc.AddLineup(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(resp)
}

// deleteLineup 删除频道列表
func (s *Server) deleteLineup(c *fiber.Ctx) error {
	resp, err := s.lineupSvc.DeleteLineup(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(resp)
}

// listRecordings 获取录制任务列表
func (s *Server) listRecordings(c *fiber.Ctx) error {
	status := models.RecordingStatus(c.Query("status"))
	recordings, err := s.recordingSvc.List(status)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "查询录制任务失败"})
	}
	return c.JSON(fiber.Map{"count": len(recordings), "recordings": recordings})
}

// CreateRecordingRequest 创建录制任务请求
// 缺省的填充秒数使用配置默认值
type CreateRecordingRequest struct {
	ScheduleID          string `json:"schedule_id"`
	PaddingStartSeconds *int   `json:"padding_start_seconds"`
	PaddingEndSeconds   *int   `json:"padding_end_seconds"`
}

// createRecording 创建录制任务
func (s *Server) createRecording(c *fiber.Ctx) error {
	var req CreateRecordingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "无效的请求体"})
	}
	if req.ScheduleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "schedule_id 不能为空"})
	}

	paddingStart, paddingEnd := -1, -1
	if req.PaddingStartSeconds != nil {
		paddingStart = *req.PaddingStartSeconds
	}
	if req.PaddingEndSeconds != nil {
		paddingEnd = *req.PaddingEndSeconds
	}

	recording, err := s.recordingSvc.Create(req.ScheduleID, paddingStart, paddingEnd)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrActiveRecordingExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(recording)
}

// parseRecordingID 解析路径中的录制任务 ID
func parseRecordingID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("无效的录制任务ID")
	}
	return uint(id), nil
}

// getRecording 获取录制任务详情
func (s *Server) getRecording(c *fiber.Ctx) error {
	id, err := parseRecordingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	recording, err := s.recordingSvc.Get(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "录制任务不存在"})
	}
	return c.JSON(recording)
}

// cancelRecording 取消录制任务
func (s *Server) cancelRecording(c *fiber.Ctx) error {
	id, err := parseRecordingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	recording, err := s.recordingSvc.Cancel(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "录制任务不存在"})
		}
		// 状态机守卫拒绝
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(recording)
}

// deleteRecording 删除录制任务
func (s *Server) deleteRecording(c *fiber.Ctx) error {
	id, err := parseRecordingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.recordingSvc.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "录制任务不存在"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// triggerSync 触发一次节目数据同步
func (s *Server) triggerSync(c *fiber.Ctx) error {
	running, err := s.syncRepo.IsRunning()
	if err == nil && running {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "同步正在进行中"})
	}

	s.sched.RunNow("guide_sync")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}

// latestSync 获取最近一次同步状态
func (s *Server) latestSync(c *fiber.Ctx) error {
	status, err := s.syncRepo.GetLatest()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "还没有同步记录"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "查询同步状态失败"})
	}
	return c.JSON(status)
}
