package stellar

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aidchain/internal/errs"
)

const (
	// BaseFee is the standard per-operation fee in stroops.
	BaseFee int64 = 100

	// TxValidity bounds how long a built transaction stays submittable.
	// Past this window the network rejects it instead of letting it hang.
	TxValidity = 30 * time.Second
)

type OpType string

const (
	OpPayment       OpType = "payment"
	OpCreateAccount OpType = "create_account"
	OpAccountMerge  OpType = "account_merge"
)

// Operation is the single operation an envelope carries. Amount is the
// payment amount or the starting balance, unused for merges.
type Operation struct {
	Type        OpType          `json:"type"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
}

type TimeBounds struct {
	MinTime int64 `json:"min_time"`
	MaxTime int64 `json:"max_time"`
}

// Envelope is an unsigned single-operation transaction. Field order is
// fixed so the signing payload is deterministic.
type Envelope struct {
	Source     string     `json:"source"`
	Sequence   Sequence   `json:"sequence"`
	Fee        int64      `json:"fee"`
	Memo       string     `json:"memo,omitempty"`
	TimeBounds TimeBounds `json:"time_bounds"`
	Operation  Operation  `json:"operation"`
}

// SignedEnvelope is what the gateway accepts: the envelope, its hash and
// the source account's signature over that hash.
type SignedEnvelope struct {
	Envelope  Envelope `json:"envelope"`
	Hash      string   `json:"hash"`
	Signature string   `json:"signature"`
}

// BuildEnvelope assembles a transaction around the account's next
// sequence number with the standard fee and validity window.
func BuildEnvelope(source *AccountDetail, op Operation, memo string) (*Envelope, error) {
	if op.Destination == "" {
		return nil, &errs.ValidationError{Field: "destination", Reason: "missing"}
	}
	if !IsValidAddress(op.Destination) {
		return nil, &errs.ValidationError{Field: "destination", Reason: "not a valid ledger address"}
	}
	if op.Type != OpAccountMerge && !op.Amount.IsPositive() {
		return nil, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	now := time.Now().UTC()
	return &Envelope{
		Source:   source.AccountID,
		Sequence: source.Sequence + 1,
		Fee:      BaseFee,
		Memo:     memo,
		TimeBounds: TimeBounds{
			MinTime: now.Unix(),
			MaxTime: now.Add(TxValidity).Unix(),
		},
		Operation: op,
	}, nil
}

// HashPayload returns the sha256 digest of the canonical envelope encoding.
func (e *Envelope) HashPayload() ([32]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encoding envelope: %w", err)
	}
	return sha256.Sum256(payload), nil
}

// Sign produces the submittable envelope. The keypair must belong to
// the envelope's source account.
func (e *Envelope) Sign(kp *Keypair) (*SignedEnvelope, error) {
	if kp.PublicKey() != e.Source {
		return nil, &errs.ValidationError{Field: "source", Reason: "signer does not own the source account"}
	}

	digest, err := e.HashPayload()
	if err != nil {
		return nil, err
	}

	return &SignedEnvelope{
		Envelope:  *e,
		Hash:      hex.EncodeToString(digest[:]),
		Signature: base64.StdEncoding.EncodeToString(kp.Sign(digest[:])),
	}, nil
}
