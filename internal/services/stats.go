package services

import (
	"context"

	"github.com/pongarena/backend/internal/models"
	"gorm.io/gorm"
)

// StatsService recomputes a player's derived statistics from match records.
// Login triggers a recompute through the task queue.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Recompute counts the user's wins and losses and upserts the profile row.
func (s *StatsService) Recompute(ctx context.Context, userID uint) error {
	db := s.db.WithContext(ctx)

	var wins, losses int64
	if err := db.Model(&models.Match{}).Where("winner_id = ?", userID).Count(&wins).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Match{}).Where("loser_id = ?", userID).Count(&losses).Error; err != nil {
		return err
	}

	var profile models.PlayerProfile
	if err := db.Where(models.PlayerProfile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
		return err
	}

	return db.Model(&profile).Updates(map[string]interface{}{
		"wins":        wins,
		"losses":      losses,
		"total_games": wins + losses,
	}).Error
}

// RecomputeTask adapts Recompute to the task queue processor signature.
func (s *StatsService) RecomputeTask(ctx context.Context, task *StatsTask) error {
	return s.Recompute(ctx, task.UserID)
}

// ProfileFor returns the user's profile, creating an empty one if absent.
func (s *StatsService) ProfileFor(userID uint) (*models.PlayerProfile, error) {
	var profile models.PlayerProfile
	if err := s.db.Where(models.PlayerProfile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
