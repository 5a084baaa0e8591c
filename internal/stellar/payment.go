package stellar

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/errs"
)

// Submitter builds, signs and submits single-operation native-asset
// payments, and verifies transactions by hash.
type Submitter struct {
	gateway Gateway
	log     *logrus.Logger
}

func NewSubmitter(gateway Gateway, log *logrus.Logger) *Submitter {
	return &Submitter{gateway: gateway, log: log}
}

// SubmitPayment moves amount from the sender to receiver with memo
// attached (a proof CID or correlation id). Input is validated before
// any network call. Once submission starts it runs to completion even
// if the caller cancels: a half-observed payment is worse than a slow
// one.
func (s *Submitter) SubmitPayment(ctx context.Context, senderSecret, receiver string, amount decimal.Decimal, memo string) (*SubmitResponse, error) {
	if !amount.IsPositive() {
		return nil, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !IsValidAddress(receiver) {
		return nil, &errs.ValidationError{Field: "receiver", Reason: "not a valid ledger address"}
	}

	sender, err := KeypairFromSecret(senderSecret)
	if err != nil {
		return nil, &errs.ValidationError{Field: "senderSecret", Reason: err.Error()}
	}

	account, err := s.gateway.LoadAccount(ctx, sender.PublicKey())
	if err != nil {
		return nil, err
	}

	if account.NativeBalance().LessThanOrEqual(amount) {
		return nil, &errs.ChainError{
			Op:     "submit payment",
			Code:   "op_underfunded",
			Detail: "insufficient native balance",
		}
	}

	env, err := BuildEnvelope(account, Operation{
		Type:        OpPayment,
		Destination: receiver,
		Amount:      amount,
	}, memo)
	if err != nil {
		return nil, err
	}

	signed, err := env.Sign(sender)
	if err != nil {
		return nil, err
	}

	// Past this point the submission must not be interrupted by the
	// caller's context; only the gateway's own verdict ends it.
	resp, err := s.gateway.SubmitTransaction(context.WithoutCancel(ctx), signed)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"from":   sender.PublicKey(),
		"to":     receiver,
		"amount": amount.String(),
		"hash":   resp.Hash,
		"ledger": resp.Ledger,
	}).Info("Payment submitted")

	return resp, nil
}

// VerifyTransaction confirms that a claimed transaction exists on the
// ledger and succeeded. This is the only trust gate for client-supplied
// transaction ids.
func (s *Submitter) VerifyTransaction(ctx context.Context, hash string) (*TransactionRecord, error) {
	record, err := s.gateway.GetTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !record.Successful {
		return nil, &errs.NotFoundError{Kind: "successful transaction", ID: hash}
	}
	return record, nil
}
