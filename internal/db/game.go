package db

import "time"

type Game struct {
	ID              uint      `gorm:"primaryKey"`
	GameCode        string    `gorm:"size:12;uniqueIndex;not null"`
	VideoID         string    `gorm:"size:32;not null"`
	Phase           string    `gorm:"size:32;not null"`
	IntervalSeconds int       `gorm:"not null;default:120"`
	Depth           int       `gorm:"not null;default:3"`
	GradeLevel      string    `gorm:"size:8;not null;default:'6'"`
	Language        string    `gorm:"size:16;not null;default:'en'"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	Players         []Player
	Questions       []Question
	Events          []Event
}
