// Package service 业务服务 - 频道列表管理
package service

import (
	"fmt"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/internal/database/repository"
	"github.com/smysle/sakura-dvr-go/internal/schedulesdirect"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"github.com/smysle/sakura-dvr-go/pkg/utils"
	"gorm.io/gorm"
)

// headendCacheTTL 前端搜索结果缓存时长
const headendCacheTTL = 5 * time.Minute

// LineupProvider 频道列表管理需要的提供方接口
type LineupProvider interface {
	GetLineupStations(lineupID string) (*schedulesdirect.LineupStationsResponse, error)
	GetHeadends(country, postalCode string) ([]schedulesdirect.Headend, error)
	AddLineup(lineupID string) (*schedulesdirect.ChangeLineupResponse, error)
	DeleteLineup(lineupID string) (*schedulesdirect.ChangeLineupResponse, error)
}

// LineupService 频道列表管理服务
type LineupService struct {
	provider  LineupProvider
	guideRepo *repository.GuideRepository
	now       func() time.Time
}

// NewLineupService 创建频道列表管理服务
func NewLineupService(provider LineupProvider, db *gorm.DB) *LineupService {
	return &LineupService{
		provider:  provider,
		guideRepo: repository.NewGuideRepository(db),
		now:       time.Now,
	}
}

// ListLineups 获取本地频道列表
func (s *LineupService) ListLineups(includeDeleted bool) ([]models.Lineup, error) {
	return s.guideRepo.ListLineups(includeDeleted)
}

// SearchHeadends 按国家和邮编搜索可订阅的频道列表，结果缓存 5 分钟
func (s *LineupService) SearchHeadends(country, postalCode string) ([]schedulesdirect.Headend, error) {
	key := utils.HeadendCacheKey(country, postalCode)
	val, err := utils.CacheGetOrSet(key, headendCacheTTL, func() (interface{}, error) {
		headends, err := s.provider.GetHeadends(country, postalCode)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("country", country).Str("postal", postalCode).Int("count", len(headends)).Msg("前端搜索完成")
		return headends, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]schedulesdirect.Headend), nil
}

// AddLineup 向账户添加频道列表，并立即把它和其下电视台同步到本地
func (s *LineupService) AddLineup(lineupID string) (*schedulesdirect.ChangeLineupResponse, error) {
	resp, err := s.provider.AddLineup(lineupID)
	if err != nil {
		return nil, err
	}

	if err := s.syncSingleLineup(lineupID); err != nil {
		return resp, fmt.Errorf("频道列表已添加但本地同步失败: %w", err)
	}
	return resp, nil
}

// DeleteLineup 从账户删除频道列表，并硬删除本地数据
// 级联清掉其下电视台/播出安排/录制任务
func (s *LineupService) DeleteLineup(lineupID string) (*schedulesdirect.ChangeLineupResponse, error) {
	lineups, err := s.guideRepo.ListLineups(true)
	if err != nil {
		return nil, err
	}
	found := false
	for _, lu := range lineups {
		if lu.ID == lineupID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("频道列表 %s 不存在", lineupID)
	}

	resp, err := s.provider.DeleteLineup(lineupID)
	if err != nil {
		return nil, err
	}

	if err := s.guideRepo.DeleteLineup(lineupID); err != nil {
		return resp, fmt.Errorf("提供方已删除但本地删除失败: %w", err)
	}

	logger.Info().Str("lineup", lineupID).Msg("频道列表及其数据已删除")
	return resp, nil
}

// syncSingleLineup 同步单个频道列表及其电视台
func (s *LineupService) syncSingleLineup(lineupID string) error {
	data, err := s.provider.GetLineupStations(lineupID)
	if err != nil {
		return err
	}

	lineup := &models.Lineup{
		ID:       lineupID,
		Modified: s.now().UTC(),
	}
	if data.Metadata != nil {
		lineup.Name = data.Metadata.Lineup
		lineup.Transport = data.Metadata.Transport
	}
	if err := s.guideRepo.UpsertLineup(lineup); err != nil {
		return fmt.Errorf("保存频道列表失败: %w", err)
	}

	// 以 map 段为准遍历，保证每个电视台都拿到频道号
	stationByID := make(map[string]schedulesdirect.StationInfo, len(data.Stations))
	for _, st := range data.Stations {
		stationByID[st.StationID] = st
	}

	count := 0
	for _, entry := range data.Map {
		info, ok := stationByID[entry.StationID]
		if !ok {
			logger.Warn().Str("station", entry.StationID).Msg("map 段中的电视台不在 stations 列表里")
			continue
		}

		station := &models.Station{
			ID:            info.StationID,
			LineupID:      lineupID,
			Callsign:      info.Callsign,
			ChannelNumber: entry.Channel,
			Name:          info.Name,
			Affiliate:     info.Affiliate,
			Enabled:       true,
		}
		if info.Logo != nil {
			station.LogoURL = &info.Logo.URL
		}
		if err := s.guideRepo.UpsertStation(station); err != nil {
			return fmt.Errorf("保存电视台 %s 失败: %w", info.StationID, err)
		}
		count++
	}

	logger.Info().Str("lineup", lineupID).Int("stations", count).Msg("频道列表同步完成")
	return nil
}
