// Package models 数据模型 - 电视台
package models

// Station 电视台/频道
// (callsign, channel_number) 组合唯一
type Station struct {
	ID            string  `gorm:"column:station_id;primaryKey;size:32" json:"id"`
	LineupID      string  `gorm:"column:lineup_id;size:64;index" json:"lineup_id"`
	Callsign      string  `gorm:"column:callsign;size:32;uniqueIndex:ux_station_callsign_channel" json:"callsign"`
	ChannelNumber string  `gorm:"column:channel_number;size:16;uniqueIndex:ux_station_callsign_channel" json:"channel_number"` // 支持 "7.1" 子频道格式
	Name          string  `gorm:"column:name;size:255" json:"name"`
	Affiliate     *string `gorm:"column:affiliate;size:64" json:"affiliate,omitempty"`
	LogoURL       *string `gorm:"column:logo_url;size:512" json:"logo_url,omitempty"`
	Enabled       bool    `gorm:"column:enabled;default:true;index" json:"enabled"`

	Schedules []Schedule `gorm:"foreignKey:StationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (Station) TableName() string {
	return "stations"
}
