package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (db *Database) InsertCampaign(ctx context.Context, c *Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	return db.db.WithContext(ctx).Create(c).Error
}

// GetCampaign fetches one campaign, nil when unknown.
func (db *Database) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var campaign Campaign
	err := db.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// CountCampaignsByOrg reports how many campaigns an organization owns.
func (db *Database) CountCampaignsByOrg(ctx context.Context, orgID string) (int64, error) {
	var count int64
	err := db.db.WithContext(ctx).Model(&Campaign{}).Where("org_id = ?", orgID).Count(&count).Error
	return count, err
}

func (db *Database) GetAllCampaigns(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	err := db.db.WithContext(ctx).Order("created_at DESC").Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}
