// Package schedulesdirect Schedules Direct JSON API 客户端
package schedulesdirect

import "time"

// MaxBatchSize 批量接口单次请求条目上限（station-date 组合或节目 ID）
const MaxBatchSize = 5000

// TokenResponse 令牌接口响应
type TokenResponse struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	ServerID     string `json:"serverID"`
	Token        string `json:"token"`
	TokenExpires int64  `json:"tokenExpires"`
}

// UserLineup 用户账户下的频道列表
type UserLineup struct {
	Lineup    string `json:"lineup"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Location  string `json:"location"`
	URI       string `json:"uri,omitempty"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

// lineupsEnvelope GET /lineups 响应
type lineupsEnvelope struct {
	Code    int          `json:"code"`
	Lineups []UserLineup `json:"lineups"`
}

// StationLogo 电视台台标
type StationLogo struct {
	URL    string `json:"URL"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// StationInfo 频道列表详情中的电视台信息
type StationInfo struct {
	StationID string       `json:"stationID"`
	Name      string       `json:"name"`
	Callsign  string       `json:"callsign"`
	Affiliate *string      `json:"affiliate,omitempty"`
	Logo      *StationLogo `json:"logo,omitempty"`
}

// ChannelMapping 电视台到频道号的映射
type ChannelMapping struct {
	StationID string `json:"stationID"`
	Channel   string `json:"channel"`
}

// LineupMetadata 频道列表详情中的元数据段
type LineupMetadata struct {
	Lineup    string `json:"lineup"`
	Modified  string `json:"modified"`
	Transport string `json:"transport"`
}

// LineupStationsResponse GET /lineups/{id} 响应
type LineupStationsResponse struct {
	Map      []ChannelMapping `json:"map"`
	Stations []StationInfo    `json:"stations"`
	Metadata *LineupMetadata  `json:"metadata,omitempty"`
}

// ScheduleMD5Entry 某电视台某天的节目表内容哈希
type ScheduleMD5Entry struct {
	Code         int    `json:"code"`
	LastModified string `json:"lastModified"`
	MD5          string `json:"md5"`
}

// ScheduleMD5Response POST /schedules/md5 响应
// 结构: {stationID: {date: entry}}
type ScheduleMD5Response map[string]map[string]ScheduleMD5Entry

// ScheduleRequest POST /schedules 请求条目：一个电视台及其需要拉取的日期
type ScheduleRequest struct {
	StationID string   `json:"stationID"`
	Dates     []string `json:"date"`
}

// ScheduleProgram 节目表中的一条播出记录
type ScheduleProgram struct {
	ProgramID   string    `json:"programID"`
	AirDateTime time.Time `json:"airDateTime"`
	Duration    int       `json:"duration"`
	MD5         string    `json:"md5"`
}

// StationSchedule 一个电视台的节目表
type StationSchedule struct {
	StationID string            `json:"stationID"`
	Programs  []ScheduleProgram `json:"programs"`
}

// ProgramTitle 节目标题
type ProgramTitle struct {
	Title120 string `json:"title120"`
}

// ProgramDescription 节目简介条目
type ProgramDescription struct {
	DescriptionLanguage string `json:"descriptionLanguage"`
	Description         string `json:"description"`
}

// ProgramDescriptions 节目简介，长短两种形式
type ProgramDescriptions struct {
	Description1000 []ProgramDescription `json:"description1000"`
	Description100  []ProgramDescription `json:"description100"`
}

// EpisodeMetadata 元数据提供方给出的季/集信息
type EpisodeMetadata struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// ProgramInfo POST /programs 响应中的一条节目元数据
// Metadata 是提供方名称到季/集信息的映射列表（Gracenote、TVmaze 等）
type ProgramInfo struct {
	ProgramID       string                       `json:"programID"`
	Titles          []ProgramTitle               `json:"titles"`
	Descriptions    *ProgramDescriptions         `json:"descriptions,omitempty"`
	EpisodeTitle150 *string                      `json:"episodeTitle150,omitempty"`
	Duration        int                          `json:"duration"`
	Metadata        []map[string]EpisodeMetadata `json:"metadata,omitempty"`
}

// HeadendLineup 前端设备下可订阅的频道列表
type HeadendLineup struct {
	Name   string `json:"name"`
	Lineup string `json:"lineup"`
	URI    string `json:"uri"`
}

// Headend 按地区搜索到的信号前端
type Headend struct {
	Headend   string          `json:"headend"`
	Transport string          `json:"transport"`
	Location  string          `json:"location"`
	Lineups   []HeadendLineup `json:"lineups"`
}

// ChangeLineupResponse 添加/删除频道列表的响应
type ChangeLineupResponse struct {
	Code             int    `json:"code"`
	Response         string `json:"response"`
	Message          string `json:"message"`
	ChangesRemaining int    `json:"changesRemaining"`
}

// tokenCacheFile 持久化令牌缓存文件格式
type tokenCacheFile struct {
	Token        string `json:"token"`
	TokenExpires int64  `json:"tokenExpires"`
}
