package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateOrganization is returned when the registration number or
// email is already taken.
var ErrDuplicateOrganization = errors.New("organization already registered")

func (db *Database) InsertOrganization(ctx context.Context, o *Organization) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	err := db.db.WithContext(ctx).Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateOrganization
	}
	return err
}

// GetOrganization fetches one organization, nil when unknown.
func (db *Database) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	err := db.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (db *Database) CountOrganizations(ctx context.Context) (int64, error) {
	var count int64
	err := db.db.WithContext(ctx).Model(&Organization{}).Count(&count).Error
	return count, err
}

// DeleteOrganization removes an offboarded organization's profile. The
// caller is responsible for having merged its ledger account first.
func (db *Database) DeleteOrganization(ctx context.Context, id string) error {
	return db.db.WithContext(ctx).Where("id = ?", id).Delete(&Organization{}).Error
}
