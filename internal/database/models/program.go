// Package models 数据模型 - 节目元数据
package models

import "fmt"

// Program 节目元数据，可被多个 Schedule 共享
type Program struct {
	ID              string  `gorm:"column:program_id;primaryKey;size:32" json:"id"`
	Title           string  `gorm:"column:title;size:255" json:"title"`
	Description     *string `gorm:"column:description;type:text" json:"description,omitempty"`
	DurationSeconds int     `gorm:"column:duration_seconds" json:"duration_seconds"`
	Season          *int    `gorm:"column:season" json:"season,omitempty"`
	Episode         *int    `gorm:"column:episode" json:"episode,omitempty"`
	EpisodeTitle    *string `gorm:"column:episode_title;size:255" json:"episode_title,omitempty"`

	Schedules []Schedule `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (Program) TableName() string {
	return "programs"
}

// EpisodeInfo 格式化季/集信息，如 S02E05，无信息返回空串
func (p *Program) EpisodeInfo() string {
	if p.Season == nil || p.Episode == nil {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", *p.Season, *p.Episode)
}
