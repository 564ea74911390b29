package db

import "time"

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_players_game_nickname"`
	PlayerID  string    `gorm:"size:64;index;not null"`
	Nickname  string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_nickname"`
	Score     int       `gorm:"not null;default:0"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Answers   []Answer
	Events    []Event
}
