package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateDonation is returned when the unique index on TxHash
// rejects an insert. The recorder treats it as "row already exists",
// not as a failure.
var ErrDuplicateDonation = errors.New("donation with this transaction hash already exists")

// GetDonationByTxHash returns the donation recorded for a ledger
// transaction, or nil when none exists.
func (db *Database) GetDonationByTxHash(ctx context.Context, txHash string) (*Donation, error) {
	var donation Donation
	err := db.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// InsertDonation appends a donation row. A uniqueness conflict on the
// transaction hash comes back as ErrDuplicateDonation.
func (db *Database) InsertDonation(ctx context.Context, d *Donation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	err := db.db.WithContext(ctx).Create(d).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateDonation
	}
	return err
}

// GetDonationsByCampaign lists every donation for one campaign.
func (db *Database) GetDonationsByCampaign(ctx context.Context, campaignID string) ([]Donation, error) {
	var donations []Donation
	err := db.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&donations).Error
	if err != nil {
		return nil, err
	}
	return donations, nil
}

// GetAllDonations lists every donation on the platform (stats).
func (db *Database) GetAllDonations(ctx context.Context) ([]Donation, error) {
	var donations []Donation
	if err := db.db.WithContext(ctx).Find(&donations).Error; err != nil {
		return nil, err
	}
	return donations, nil
}
