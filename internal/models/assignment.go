package models

import (
	"time"

	"gorm.io/datatypes"
)

type Assignment struct {
	ID         string         `json:"id" gorm:"primaryKey;size:255"`
	Title      string         `json:"title" gorm:"not null;size:255"`
	ClassID    string         `json:"class_id" gorm:"not null;index;size:255"`
	CreatedBy  string         `json:"created_by" gorm:"not null;index;size:255"`
	GameType   string         `json:"game_type" gorm:"size:100"`
	GameConfig datatypes.JSON `json:"game_config" gorm:"type:jsonb"` // GameConfig tagged union
	DueDate    *time.Time     `json:"due_date,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// Config decodes the stored game configuration, falling back to game_type
// for untagged rows. An empty column yields nil.
func (a *Assignment) Config() (GameConfig, error) {
	if a == nil || len(a.GameConfig) == 0 {
		return nil, nil
	}
	return DecodeGameConfig(a.GameConfig, a.GameType)
}
