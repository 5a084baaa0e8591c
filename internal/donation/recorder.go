// Package donation records incoming donations exactly once. Clients
// retry their confirmation call after transient failures, so the same
// transaction hash arriving twice is the normal case, not an error.
package donation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/db"
	"aidchain/internal/errs"
	"aidchain/internal/stellar"
)

// Store is the slice of the document store the recorder needs.
type Store interface {
	GetDonationByTxHash(ctx context.Context, txHash string) (*db.Donation, error)
	InsertDonation(ctx context.Context, d *db.Donation) error
	GetCampaign(ctx context.Context, id string) (*db.Campaign, error)
}

// Verifier confirms that a claimed transaction exists and succeeded on
// the ledger before anything is written.
type Verifier interface {
	VerifyTransaction(ctx context.Context, hash string) (*stellar.TransactionRecord, error)
}

type Recorder struct {
	store    Store
	verifier Verifier
	log      *logrus.Logger
}

func NewRecorder(store Store, verifier Verifier, log *logrus.Logger) *Recorder {
	return &Recorder{
		store:    store,
		verifier: verifier,
		log:      log,
	}
}

// VerifyAndRecord verifies the claimed transfer on the ledger and
// appends a donation row for it. Calling it again with the same hash
// returns the stored row unchanged with alreadyExisted set; two
// concurrent calls race on the unique index and the loser re-reads the
// winner's row. Nothing is written for an unverifiable transaction.
func (r *Recorder) VerifyAndRecord(ctx context.Context, txHash, campaignID string, amount decimal.Decimal) (*db.Donation, bool, error) {
	if txHash == "" {
		return nil, false, &errs.ValidationError{Field: "transactionId", Reason: "missing"}
	}
	if campaignID == "" {
		return nil, false, &errs.ValidationError{Field: "campaignId", Reason: "missing"}
	}
	if !amount.IsPositive() {
		return nil, false, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	existing, err := r.store.GetDonationByTxHash(ctx, txHash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	campaign, err := r.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, false, err
	}
	if campaign == nil {
		return nil, false, &errs.NotFoundError{Kind: "campaign", ID: campaignID}
	}

	tx, err := r.verifier.VerifyTransaction(ctx, txHash)
	if err != nil {
		if _, ok := errs.AsNotFound(err); ok {
			return nil, false, &errs.ValidationError{Field: "transactionId", Reason: "unverifiable transaction"}
		}
		return nil, false, err
	}

	record := &db.Donation{
		TxHash:     txHash,
		CampaignID: campaignID,
		Donor:      tx.SourceAccount,
		Amount:     amount,
	}

	if err := r.store.InsertDonation(ctx, record); err != nil {
		if errors.Is(err, db.ErrDuplicateDonation) {
			// Lost the race to a concurrent call with the same hash.
			winner, rerr := r.store.GetDonationByTxHash(ctx, txHash)
			if rerr != nil {
				return nil, false, rerr
			}
			if winner == nil {
				return nil, false, err
			}
			return winner, true, nil
		}
		return nil, false, err
	}

	r.log.WithFields(logrus.Fields{
		"tx_hash":  txHash,
		"campaign": campaignID,
		"amount":   amount.String(),
	}).Info("Donation recorded")

	return record, false, nil
}
