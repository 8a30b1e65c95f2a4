// Package service 业务服务 - 节目数据同步
package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/internal/schedulesdirect"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"github.com/smysle/sakura-dvr-go/pkg/utils"
	"gorm.io/gorm"
)

// GuideSource 节目数据提供方
// 由 *schedulesdirect.Client 实现，测试时可用桩实现替换
type GuideSource interface {
	GetLineups() ([]schedulesdirect.UserLineup, error)
	GetLineupStations(lineupID string) (*schedulesdirect.LineupStationsResponse, error)
	GetScheduleMD5s(stationIDs []string) (schedulesdirect.ScheduleMD5Response, error)
	GetSchedules(requests []schedulesdirect.ScheduleRequest) ([]schedulesdirect.StationSchedule, error)
	GetPrograms(programIDs []string) ([]schedulesdirect.ProgramInfo, error)
}

// GuideSyncService 节目数据同步服务
// 通过逐日 MD5 比对做变更检测，只拉取有变化的电视台-日期
type GuideSyncService struct {
	provider  GuideSource
	guideRepo *repository.GuideRepository
	syncRepo  *repository.SyncStatusRepository
	now       func() time.Time
}

// NewGuideSyncService 创建节目数据同步服务
func NewGuideSyncService(provider GuideSource, db *gorm.DB) *GuideSyncService {
	return &GuideSyncService{
		provider:  provider,
		guideRepo: repository.NewGuideRepository(db),
		syncRepo:  repository.NewSyncStatusRepository(db),
		now:       time.Now,
	}
}

// SyncGuideData 同步 days 天的节目数据：频道列表 → 电视台 → 播出安排 → 节目元数据
// 无论成功失败，SyncStatus 都会在最后一步落库
func (s *GuideSyncService) SyncGuideData(days int) (status *models.SyncStatus, err error) {
	syncLog := logger.Logger.With().Str("sync_run", uuid.NewString()).Logger()

	status = &models.SyncStatus{
		StartedAt: s.now().UTC(),
		Status:    models.SyncRunning,
	}
	if createErr := s.syncRepo.Create(status); createErr != nil {
		return nil, fmt.Errorf("创建同步状态记录失败: %w", createErr)
	}

	syncLog.Info().Int("days", days).Uint("sync_id", status.ID).Msg("🚀 开始节目数据同步")

	// 无论成功失败都落库
	defer func() {
		completed := s.now().UTC()
		status.CompletedAt = &completed
		if err != nil {
			status.Status = models.SyncFailed
			msg := err.Error()
			status.ErrorMessage = &msg
			syncLog.Error().Err(err).Msg("节目数据同步失败")
		} else {
			status.Status = models.SyncCompleted
			syncLog.Info().
				Int("lineups", status.LineupsUpdated).
				Int("stations", status.StationsUpdated).
				Int("schedules", status.SchedulesUpdated).
				Int("programs", status.ProgramsUpdated).
				Msg("✅ 节目数据同步完成")
		}
		if saveErr := s.syncRepo.Save(status); saveErr != nil {
			syncLog.Error().Err(saveErr).Msg("保存同步状态失败")
		}
	}()

	// 1. 同步频道列表及其电视台
	if err = s.syncLineups(syncLog, status); err != nil {
		return status, err
	}
	s.persistProgress(syncLog, status)

	// 2. 没有启用的电视台就到此为止，不算错误
	stations, err := s.guideRepo.GetEnabledStations()
	if err != nil {
		return status, fmt.Errorf("查询启用电视台失败: %w", err)
	}
	if len(stations) == 0 {
		syncLog.Warn().Msg("没有启用的电视台，跳过播出安排/节目同步")
		return status, nil
	}

	stationIDs := make([]string, 0, len(stations))
	for _, st := range stations {
		stationIDs = append(stationIDs, st.ID)
	}

	// 3. 生成日期窗口（UTC，YYYY-MM-DD）
	dates := make([]string, 0, days)
	today := s.now().UTC()
	for i := 0; i < days; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format("2006-01-02"))
	}
	syncLog.Info().Strs("dates", dates).Int("stations", len(stationIDs)).Msg("同步播出安排")

	// 4. 带变更检测的播出安排同步
	programIDs, err := s.syncSchedules(syncLog, status, stationIDs, dates)
	if err != nil {
		return status, err
	}
	s.persistProgress(syncLog, status)

	// 5. 同步节目元数据
	if len(programIDs) == 0 {
		syncLog.Info().Msg("没有需要同步的节目")
		return status, nil
	}
	if err = s.syncPrograms(syncLog, status, programIDs); err != nil {
		return status, err
	}

	return status, nil
}

// persistProgress 阶段性保存同步状态，让进行中的同步对其他读取方可见
func (s *GuideSyncService) persistProgress(syncLog zerolog.Logger, status *models.SyncStatus) {
	if err := s.syncRepo.Save(status); err != nil {
		syncLog.Warn().Err(err).Msg("保存同步进度失败")
	}
}

// syncLineups 同步频道列表，并逐个同步其下电视台
func (s *GuideSyncService) syncLineups(syncLog zerolog.Logger, status *models.SyncStatus) error {
	lineups, err := s.provider.GetLineups()
	if err != nil {
		return fmt.Errorf("获取频道列表失败: %w", err)
	}

	for _, lu := range lineups {
		lineup := &models.Lineup{
			ID:        lu.Lineup,
			Name:      lu.Name,
			Transport: lu.Transport,
			Location:  lu.Location,
			Modified:  s.now().UTC(),
		}
		if err := s.guideRepo.UpsertLineup(lineup); err != nil {
			return fmt.Errorf("保存频道列表 %s 失败: %w", lu.Lineup, err)
		}
		status.LineupsUpdated++

		count, err := s.syncStations(lu.Lineup)
		if err != nil {
			return err
		}
		status.StationsUpdated += count
		syncLog.Debug().Str("lineup", lu.Lineup).Int("stations", count).Msg("频道列表已同步")
	}

	return nil
}

// syncStations 同步单个频道列表下的电视台
// 频道号从 map 段解析，缺失时记为 "0"
func (s *GuideSyncService) syncStations(lineupID string) (int, error) {
	resp, err := s.provider.GetLineupStations(lineupID)
	if err != nil {
		return 0, fmt.Errorf("获取频道列表 %s 的电视台失败: %w", lineupID, err)
	}

	channelMap := make(map[string]string, len(resp.Map))
	for _, m := range resp.Map {
		channelMap[m.StationID] = m.Channel
	}

	count := 0
	for _, info := range resp.Stations {
		channel, ok := channelMap[info.StationID]
		if !ok {
			channel = "0"
		}

		station := &models.Station{
			ID:            info.StationID,
			LineupID:      lineupID,
			Callsign:      info.Callsign,
			ChannelNumber: channel,
			Name:          info.Name,
			Affiliate:     info.Affiliate,
		}
		if info.Logo != nil {
			station.LogoURL = &info.Logo.URL
		}

		if err := s.guideRepo.UpsertStation(station); err != nil {
			return count, fmt.Errorf("保存电视台 %s 失败: %w", info.StationID, err)
		}
		count++
	}

	return count, nil
}

// syncSchedules 带 MD5 变更检测的播出安排同步，返回涉及的节目 ID 集合
// 只有远端哈希与本地不一致（或本地没有）的电视台-日期才会重新拉取
func (s *GuideSyncService) syncSchedules(syncLog zerolog.Logger, status *models.SyncStatus, stationIDs, dates []string) (map[string]struct{}, error) {
	md5s, err := s.provider.GetScheduleMD5s(stationIDs)
	if err != nil {
		return nil, fmt.Errorf("获取播出安排哈希失败: %w", err)
	}

	// 本地窗口内已有的 (电视台, 日期) → 哈希
	windowStart, _ := time.Parse("2006-01-02", dates[0])
	windowEnd, _ := time.Parse("2006-01-02", dates[len(dates)-1])
	windowEnd = windowEnd.AddDate(0, 0, 1)

	existing, err := s.guideRepo.GetSchedulesInWindow(stationIDs, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("查询本地播出安排失败: %w", err)
	}

	type stationDate struct {
		station string
		date    string
	}
	localMD5s := make(map[stationDate]string, len(existing))
	for _, sch := range existing {
		key := stationDate{sch.StationID, sch.AirDatetime.UTC().Format("2006-01-02")}
		localMD5s[key] = sch.MD5Hash
	}

	// 比对哈希，筛出需要重新拉取的电视台-日期
	var changed []stationDate
	for _, stationID := range stationIDs {
		dayHashes, ok := md5s[stationID]
		if !ok {
			continue
		}
		for _, date := range dates {
			entry, ok := dayHashes[date]
			if !ok {
				continue
			}
			if entry.MD5 != localMD5s[stationDate{stationID, date}] {
				changed = append(changed, stationDate{stationID, date})
			}
		}
	}

	syncLog.Info().
		Int("changed", len(changed)).
		Int("checked", len(stationIDs)*len(dates)).
		Msg("MD5 变更检测完成")

	if len(changed) == 0 {
		return nil, nil
	}

	// 按 5000 条为一批拉取，批内按电视台归并日期
	programIDs := make(map[string]struct{})
	for start := 0; start < len(changed); start += schedulesdirect.MaxBatchSize {
		end := start + schedulesdirect.MaxBatchSize
		if end > len(changed) {
			end = len(changed)
		}

		grouped := make(map[string][]string)
		order := make([]string, 0)
		for _, sd := range changed[start:end] {
			if _, ok := grouped[sd.station]; !ok {
				order = append(order, sd.station)
			}
			grouped[sd.station] = append(grouped[sd.station], sd.date)
		}

		requests := make([]schedulesdirect.ScheduleRequest, 0, len(order))
		for _, stationID := range order {
			requests = append(requests, schedulesdirect.ScheduleRequest{
				StationID: stationID,
				Dates:     grouped[stationID],
			})
		}

		schedules, err := s.provider.GetSchedules(requests)
		if err != nil {
			return nil, fmt.Errorf("获取播出安排失败: %w", err)
		}

		for _, stationSchedule := range schedules {
			for _, prog := range stationSchedule.Programs {
				// 播出安排对节目有外键，先占位节目行，元数据在下一步补全
				if _, seen := programIDs[prog.ProgramID]; !seen {
					if err := s.guideRepo.EnsureProgram(prog.ProgramID); err != nil {
						return nil, fmt.Errorf("预置节目 %s 失败: %w", prog.ProgramID, err)
					}
				}

				schedule := &models.Schedule{
					ID:              models.ScheduleID(stationSchedule.StationID, prog.AirDateTime),
					StationID:       stationSchedule.StationID,
					ProgramID:       prog.ProgramID,
					AirDatetime:     prog.AirDateTime.UTC(),
					DurationSeconds: prog.Duration,
					MD5Hash:         prog.MD5,
				}
				if err := s.guideRepo.UpsertSchedule(schedule); err != nil {
					return nil, fmt.Errorf("保存播出安排 %s 失败: %w", schedule.ID, err)
				}
				programIDs[prog.ProgramID] = struct{}{}
				status.SchedulesUpdated++
			}
		}
	}

	return programIDs, nil
}

// syncPrograms 按 5000 条为一批同步节目元数据
func (s *GuideSyncService) syncPrograms(syncLog zerolog.Logger, status *models.SyncStatus, programIDs map[string]struct{}) error {
	ids := make([]string, 0, len(programIDs))
	for id := range programIDs {
		ids = append(ids, id)
	}

	for _, batch := range utils.ChunkStrings(ids, schedulesdirect.MaxBatchSize) {
		syncLog.Debug().Int("batch_size", len(batch)).Msg("拉取节目元数据批次")

		programs, err := s.provider.GetPrograms(batch)
		if err != nil {
			return fmt.Errorf("获取节目元数据失败: %w", err)
		}

		for _, info := range programs {
			program := buildProgram(info)
			if err := s.guideRepo.UpsertProgram(program); err != nil {
				return fmt.Errorf("保存节目 %s 失败: %w", info.ProgramID, err)
			}
			status.ProgramsUpdated++
		}
	}

	return nil
}

// buildProgram 把提供方的节目元数据转换成本地模型
func buildProgram(info schedulesdirect.ProgramInfo) *models.Program {
	program := &models.Program{
		ID:              info.ProgramID,
		Title:           "Unknown",
		DurationSeconds: info.Duration,
		EpisodeTitle:    info.EpisodeTitle150,
	}

	if len(info.Titles) > 0 {
		program.Title = info.Titles[0].Title120
	}
	if program.DurationSeconds == 0 {
		// 未提供时长按一小时算
		program.DurationSeconds = 3600
	}

	// 简介优先长文本列表，退回短文本列表，取第一条
	if info.Descriptions != nil {
		descs := info.Descriptions.Description1000
		if len(descs) == 0 {
			descs = info.Descriptions.Description100
		}
		if len(descs) > 0 {
			program.Description = &descs[0].Description
		}
	}

	// 季/集信息优先 Gracenote，其次 TVmaze
	for _, providers := range info.Metadata {
		if data, ok := providers["Gracenote"]; ok {
			assignEpisode(program, data)
			break
		}
		if data, ok := providers["TVmaze"]; ok {
			assignEpisode(program, data)
			break
		}
	}

	return program
}

func assignEpisode(program *models.Program, data schedulesdirect.EpisodeMetadata) {
	if data.Season > 0 {
		season := data.Season
		program.Season = &season
	}
	if data.Episode > 0 {
		episode := data.Episode
		program.Episode = &episode
	}
}
