package db

import (
	"time"

	"gorm.io/datatypes"
)

type Question struct {
	ID               uint           `gorm:"primaryKey"`
	GameID           uint           `gorm:"index;not null;uniqueIndex:idx_questions_game_window"`
	WindowID         int            `gorm:"not null;uniqueIndex:idx_questions_game_window"`
	Text             string         `gorm:"size:512;not null"`
	CorrectAnswer    string         `gorm:"size:280;not null"`
	IncorrectAnswers datatypes.JSON `gorm:"type:jsonb;not null"`
	ContentSegment   string         `gorm:"type:text;not null"`
	CreatedAt        time.Time      `gorm:"not null"`
	UpdatedAt        time.Time      `gorm:"not null"`
	Answers          []Answer
}
