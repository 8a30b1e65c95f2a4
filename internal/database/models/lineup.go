// Package models 数据模型 - 频道列表
package models

import "time"

// Lineup 频道列表（Schedules Direct 分配）
type Lineup struct {
	ID        string    `gorm:"column:lineup_id;primaryKey;size:64" json:"id"`
	Name      string    `gorm:"column:name;size:255" json:"name"`
	Transport string    `gorm:"column:transport;size:32" json:"transport"`
	Location  string    `gorm:"column:location;size:255" json:"location"`
	Modified  time.Time `gorm:"column:modified" json:"modified"`
	IsDeleted bool      `gorm:"column:is_deleted;default:false" json:"is_deleted"`

	// 级联删除：删除 Lineup 同时删除其下所有 Station
	Stations []Station `gorm:"foreignKey:LineupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (Lineup) TableName() string {
	return "lineups"
}
