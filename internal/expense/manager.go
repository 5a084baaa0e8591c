// Package expense executes organization disbursements and maintains the
// per-campaign audit chain: every disbursement is paid on the ledger,
// mirrored into the smart contract with a pointer to the previous
// disbursement, and persisted locally. The three writes share no
// transaction, so each attempt carries a durable status that a
// reconciliation sweep can resume from.
package expense

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/db"
	"aidchain/internal/errs"
	"aidchain/internal/stellar"
)

// Store is the slice of the document store the manager needs.
type Store interface {
	GetCampaign(ctx context.Context, id string) (*db.Campaign, error)
	GetOrganization(ctx context.Context, id string) (*db.Organization, error)
	GetLatestChainedExpense(ctx context.Context, campaignID string) (*db.ExpenseRecord, error)
	InsertExpense(ctx context.Context, e *db.ExpenseRecord) error
	UpdateExpense(ctx context.Context, e *db.ExpenseRecord) error
	GetExpense(ctx context.Context, id string) (*db.ExpenseRecord, error)
	GetExpensesByCampaign(ctx context.Context, campaignID string) ([]db.ExpenseRecord, error)
}

// Payer moves funds on the ledger.
type Payer interface {
	SubmitPayment(ctx context.Context, senderSecret, receiver string, amount decimal.Decimal, memo string) (*stellar.SubmitResponse, error)
}

// ContractClient mirrors chain links on-chain.
type ContractClient interface {
	StoreData(ctx context.Context, ownerSecret string, amount decimal.Decimal, cid, prevLink, metadata string) (string, error)
}

type Manager struct {
	store    Store
	payer    Payer
	contract ContractClient
	log      *logrus.Logger
}

func NewManager(store Store, payer Payer, contract ContractClient, log *logrus.Logger) *Manager {
	return &Manager{
		store:    store,
		payer:    payer,
		contract: contract,
		log:      log,
	}
}

// PreviousLink returns the chain reference of the campaign's most
// recent on-chain expense, or "" for a campaign with no expenses yet.
// The genesis case is a normal outcome, never an error.
func (m *Manager) PreviousLink(ctx context.Context, campaignID string) (string, error) {
	latest, err := m.store.GetLatestChainedExpense(ctx, campaignID)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", nil
	}
	return latest.ChainRef(), nil
}

// Record executes one disbursement end to end: resolve the signing
// organization, look up the previous link, pay the recipient, mirror
// the link on-chain, persist. Cancellation is honored only before the
// payment step; after that the sequence runs to its own completion or
// failure, leaving the attempt row at the last reached status.
func (m *Manager) Record(ctx context.Context, campaignID, recipient string, amount decimal.Decimal, proofCID, metadata string) (*db.ExpenseRecord, error) {
	if proofCID == "" {
		return nil, &errs.ValidationError{Field: "proofReference", Reason: "missing"}
	}
	if !amount.IsPositive() {
		return nil, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !stellar.IsValidAddress(recipient) {
		return nil, &errs.ValidationError{Field: "recipient", Reason: "not a valid ledger address"}
	}

	campaign, org, err := m.resolveOwner(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	prev, err := m.PreviousLink(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	record := &db.ExpenseRecord{
		CampaignID: campaign.ID,
		Recipient:  recipient,
		Amount:     amount,
		ProofCID:   proofCID,
		PrevLink:   prev,
		Metadata:   metadata,
		Status:     db.ExpensePaymentPending,
	}
	if err := m.store.InsertExpense(ctx, record); err != nil {
		return nil, err
	}

	// Last point where caller cancellation is honored.
	if err := ctx.Err(); err != nil {
		record.Status = db.ExpenseFailed
		_ = m.store.UpdateExpense(context.WithoutCancel(ctx), record)
		return nil, err
	}

	payment, err := m.payer.SubmitPayment(ctx, org.Secret, recipient, amount, proofCID)
	if err != nil {
		if _, definitive := errs.AsChain(err); definitive {
			// The ledger refused it: no funds moved, terminal.
			record.Status = db.ExpenseFailed
			if uerr := m.store.UpdateExpense(context.WithoutCancel(ctx), record); uerr != nil {
				m.log.WithError(uerr).Error("Failed to mark rejected expense attempt")
			}
		}
		// Network failures leave payment_pending: the outcome is
		// unknown and only the reconciler may decide what it means.
		return nil, err
	}

	// Funds have moved. Everything below must not be cancelled by the
	// caller and is resumable by the reconciler if it fails.
	ctx = context.WithoutCancel(ctx)

	record.PaymentHash = payment.Hash
	record.Status = db.ExpensePaymentSent
	if err := m.store.UpdateExpense(ctx, record); err != nil {
		return nil, fmt.Errorf("payment %s sent but attempt not updated: %w", payment.Hash, err)
	}

	if err := m.mirrorAndFinalize(ctx, record, org); err != nil {
		return nil, err
	}
	return record, nil
}

// Resume picks up a stalled attempt from its last completed step.
// Called by the reconciler consumer, never by request handlers.
func (m *Manager) Resume(ctx context.Context, recordID string) error {
	record, err := m.store.GetExpense(ctx, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		return &errs.NotFoundError{Kind: "expense record", ID: recordID}
	}

	switch record.Status {
	case db.ExpenseRecorded, db.ExpenseNeedsAudit, db.ExpenseFailed:
		return nil

	case db.ExpensePaymentPending:
		// No payment hash was ever stored: whether funds moved is
		// unknowable from here, so a human has to look at the ledger.
		record.Status = db.ExpenseNeedsAudit
		if err := m.store.UpdateExpense(ctx, record); err != nil {
			return err
		}
		m.log.WithFields(logrus.Fields{
			"record":   record.ID,
			"campaign": record.CampaignID,
		}).Warn("Expense attempt flagged for manual audit")
		return nil

	case db.ExpensePaymentSent:
		_, org, err := m.resolveOwner(ctx, record.CampaignID)
		if err != nil {
			return err
		}
		if err := m.mirrorAndFinalize(ctx, record, org); err != nil {
			if _, definitive := errs.AsChain(err); definitive {
				// Funds moved but the contract refuses the mirror.
				// Retrying cannot change the verdict; a human has to
				// reconcile the payment against the chain.
				record.Status = db.ExpenseNeedsAudit
				if uerr := m.store.UpdateExpense(ctx, record); uerr != nil {
					return uerr
				}
				m.log.WithFields(logrus.Fields{
					"record":   record.ID,
					"campaign": record.CampaignID,
					"error":    err.Error(),
				}).Warn("Contract rejected mirror, expense flagged for manual audit")
				return nil
			}
			return err
		}
		return nil

	case db.ExpenseContractMirrored:
		return m.finalize(ctx, record)

	default:
		return fmt.Errorf("unknown expense status %q", record.Status)
	}
}

// VerifyChain walks a campaign's records newest to oldest and checks
// that every PrevLink equals the chain reference of the record created
// immediately before it, terminating at the empty genesis sentinel.
// This is the read-side audit; writes never re-validate the chain.
func (m *Manager) VerifyChain(ctx context.Context, campaignID string) error {
	all, err := m.store.GetExpensesByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	var chain []db.ExpenseRecord
	for _, rec := range all {
		if rec.Status == db.ExpenseRecorded || rec.Status == db.ExpenseContractMirrored {
			chain = append(chain, rec)
		}
	}

	for i, rec := range chain {
		if i == len(chain)-1 {
			if rec.PrevLink != "" {
				return fmt.Errorf("oldest record %s does not terminate the chain: prev link %q", rec.ID, rec.PrevLink)
			}
			break
		}
		if rec.PrevLink != chain[i+1].ChainRef() {
			return fmt.Errorf("record %s links to %q but predecessor %s has chain txn %q",
				rec.ID, rec.PrevLink, chain[i+1].ID, chain[i+1].ChainRef())
		}
	}
	return nil
}

func (m *Manager) resolveOwner(ctx context.Context, campaignID string) (*db.Campaign, *db.Organization, error) {
	campaign, err := m.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if campaign == nil {
		return nil, nil, &errs.NotFoundError{Kind: "campaign", ID: campaignID}
	}

	org, err := m.store.GetOrganization(ctx, campaign.OrgID)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, &errs.NotFoundError{Kind: "organization", ID: campaign.OrgID}
	}
	return campaign, org, nil
}

func (m *Manager) mirrorAndFinalize(ctx context.Context, record *db.ExpenseRecord, org *db.Organization) error {
	chainTxn, err := m.contract.StoreData(ctx, org.Secret, record.Amount, record.ProofCID, record.PrevLink, record.Metadata)
	if err != nil {
		return fmt.Errorf("mirroring expense %s on-chain: %w", record.ID, err)
	}

	record.ChainTxn = &chainTxn
	record.Status = db.ExpenseContractMirrored
	if err := m.store.UpdateExpense(ctx, record); err != nil {
		return fmt.Errorf("chain txn %s written but attempt not updated: %w", chainTxn, err)
	}

	return m.finalize(ctx, record)
}

func (m *Manager) finalize(ctx context.Context, record *db.ExpenseRecord) error {
	record.Status = db.ExpenseRecorded
	if err := m.store.UpdateExpense(ctx, record); err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{
		"record":    record.ID,
		"campaign":  record.CampaignID,
		"chain_txn": record.ChainRef(),
		"prev":      record.PrevLink,
	}).Info("Expense recorded")
	return nil
}
