package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus tracks how far an expense attempt got through the
// pay -> mirror -> persist sequence. The three systems involved share no
// transaction boundary, so the status is the only durable evidence of
// where a crashed attempt stopped.
type ExpenseStatus string

const (
	// ExpensePaymentPending: attempt row exists, payment outcome unknown.
	ExpensePaymentPending ExpenseStatus = "payment_pending"
	// ExpensePaymentSent: funds moved, contract mirror still missing.
	ExpensePaymentSent ExpenseStatus = "payment_sent"
	// ExpenseContractMirrored: chain link on-chain, local record not final.
	ExpenseContractMirrored ExpenseStatus = "contract_mirrored"
	// ExpenseRecorded: fully committed, part of the campaign's chain.
	ExpenseRecorded ExpenseStatus = "recorded"
	// ExpenseNeedsAudit: cannot be resumed automatically, flagged for a
	// human. Set only by the reconciler.
	ExpenseNeedsAudit ExpenseStatus = "needs_audit"
	// ExpenseFailed: the ledger definitively rejected the payment, no
	// funds moved. Terminal, kept for the audit trail.
	ExpenseFailed ExpenseStatus = "failed"
)

// Organization is a registered NGO with its custodial ledger keypair.
// Holding the secret next to the profile is a known trust-boundary
// weakness; see DESIGN.md before extending this.
type Organization struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	RegNumber string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	PublicKey string    `gorm:"type:varchar(64);not null"`
	Secret    string    `gorm:"type:varchar(64);not null" json:"-"`
	CreatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"`

	Campaigns []Campaign `gorm:"foreignKey:OrgID"`
}

// Campaign is a fundraising post. WalletAddr is the owning
// organization's account public key and never changes after creation.
type Campaign struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	OrgID       string    `gorm:"type:char(36);not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Location    string    `gorm:"type:varchar(255)"`
	ProofCID    string    `gorm:"type:varchar(128)"`
	Goal        int64     `gorm:"type:bigint;not null"`
	WalletAddr  string    `gorm:"type:varchar(64);not null"`
	CreatedAt   time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"`

	Organization *Organization `gorm:"foreignKey:OrgID"`
}

// Donation is one ledger-verified transfer into a campaign. TxHash is
// globally unique: the same transfer can never be recorded twice.
// Rows are append-only, written exclusively by the idempotent recorder.
type Donation struct {
	ID         string          `gorm:"type:char(36);primaryKey"`
	TxHash     string          `gorm:"type:varchar(128);not null;uniqueIndex"`
	CampaignID string          `gorm:"type:char(36);not null;index"`
	Donor      string          `gorm:"type:varchar(64);index"`
	Amount     decimal.Decimal `gorm:"type:decimal(30,7);not null"`
	CreatedAt  time.Time       `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID"`
}

// ExpenseRecord is one link of a campaign's audit chain. PrevLink holds
// the ChainTxn of the record created immediately before it (empty for
// the first link); ChainTxn is the contract transaction reference
// produced when this link was mirrored on-chain.
type ExpenseRecord struct {
	ID          string          `gorm:"type:char(36);primaryKey"`
	CampaignID  string          `gorm:"type:char(36);not null;index"`
	Recipient   string          `gorm:"type:varchar(64);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(30,7);not null"`
	ProofCID    string          `gorm:"type:varchar(128);not null"`
	PrevLink    string          `gorm:"type:varchar(128);not null"`
	PaymentHash string          `gorm:"type:varchar(128)"`
	ChainTxn    *string         `gorm:"type:varchar(128);uniqueIndex"`
	Status      ExpenseStatus   `gorm:"type:varchar(32);not null;index"`
	Metadata    string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID"`
}

// ChainRef returns the record's chain reference, "" while unmirrored.
func (e *ExpenseRecord) ChainRef() string {
	if e.ChainTxn == nil {
		return ""
	}
	return *e.ChainTxn
}
