package models

import "time"

// Match is a finished game between two players. It is the substrate the
// stats recompute reads; match creation itself belongs to the game service.
type Match struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WinnerID    uint      `gorm:"index;not null" json:"winner_id"`
	LoserID     uint      `gorm:"index;not null" json:"loser_id"`
	WinnerScore int       `json:"winner_score"`
	LoserScore  int       `json:"loser_score"`
	PlayedAt    time.Time `gorm:"index" json:"played_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Match) TableName() string { return "matches" }

// PlayerProfile holds derived per-user game statistics, recomputed from
// matches on each successful login.
type PlayerProfile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalGames int       `gorm:"default:0" json:"total_games"`
	Wins       int       `gorm:"default:0" json:"wins"`
	Losses     int       `gorm:"default:0" json:"losses"`
	Rank       int       `gorm:"default:0" json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PlayerProfile) TableName() string { return "player_profiles" }

// WinRate returns the win percentage, 0 for players with no games.
func (p *PlayerProfile) WinRate() float64 {
	if p.TotalGames == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.TotalGames) * 100
}
