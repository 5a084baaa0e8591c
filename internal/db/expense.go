package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetLatestChainedExpense returns the newest expense whose chain link
// made it on-chain (mirrored or fully recorded), or nil for a campaign
// with no chain yet. Its ChainTxn is the next record's PrevLink.
func (db *Database) GetLatestChainedExpense(ctx context.Context, campaignID string) (*ExpenseRecord, error) {
	var record ExpenseRecord
	err := db.db.WithContext(ctx).
		Where("campaign_id = ? AND status IN ?", campaignID,
			[]ExpenseStatus{ExpenseContractMirrored, ExpenseRecorded}).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// InsertExpense persists a new attempt row before any money moves, so a
// crash mid-sequence always leaves evidence behind.
func (db *Database) InsertExpense(ctx context.Context, e *ExpenseRecord) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	return db.db.WithContext(ctx).Create(e).Error
}

// UpdateExpense saves a status transition.
func (db *Database) UpdateExpense(ctx context.Context, e *ExpenseRecord) error {
	e.UpdatedAt = time.Now().UTC()
	return db.db.WithContext(ctx).Save(e).Error
}

// GetExpense fetches one record by id, nil when unknown.
func (db *Database) GetExpense(ctx context.Context, id string) (*ExpenseRecord, error) {
	var record ExpenseRecord
	err := db.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetExpensesByCampaign lists a campaign's records newest first, the
// order the chain is audited in.
func (db *Database) GetExpensesByCampaign(ctx context.Context, campaignID string) ([]ExpenseRecord, error) {
	var records []ExpenseRecord
	err := db.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetStalledExpenses returns attempts stuck short of "recorded" whose
// last transition is older than stallAfter. The reconciler sweep feeds
// on this.
func (db *Database) GetStalledExpenses(ctx context.Context, stallAfter time.Duration) ([]ExpenseRecord, error) {
	cutoff := time.Now().UTC().Add(-stallAfter)

	var records []ExpenseRecord
	err := db.db.WithContext(ctx).
		Where("status NOT IN ? AND updated_at < ?",
			[]ExpenseStatus{ExpenseRecorded, ExpenseNeedsAudit, ExpenseFailed}, cutoff).
		Order("updated_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
