package db

import "time"

type Answer struct {
	ID          uint      `gorm:"primaryKey"`
	QuestionID  uint      `gorm:"index;not null;uniqueIndex:idx_answers_question_player"`
	PlayerID    uint      `gorm:"index;not null;uniqueIndex:idx_answers_question_player"`
	Text        string    `gorm:"size:280;not null"`
	IsCorrect   bool      `gorm:"not null;default:false"`
	Explanation string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}
