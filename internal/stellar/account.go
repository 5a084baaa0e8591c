package stellar

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/errs"
)

// Gateway is the slice of the ledger client that the account manager
// and the payment submitter need. *Client satisfies it; tests supply
// fakes.
type Gateway interface {
	LoadAccount(ctx context.Context, pubkey string) (*AccountDetail, error)
	SubmitTransaction(ctx context.Context, env *SignedEnvelope) (*SubmitResponse, error)
	GetTransaction(ctx context.Context, hash string) (*TransactionRecord, error)
}

// StartingBalance funds every new custodial account.
var StartingBalance = decimal.NewFromInt(20)

// AccountManager creates and closes custodial ledger accounts, funding
// them from a single statically configured base account.
type AccountManager struct {
	gateway    Gateway
	baseSecret string
	log        *logrus.Logger
}

func NewAccountManager(gateway Gateway, baseSecret string, log *logrus.Logger) *AccountManager {
	return &AccountManager{
		gateway:    gateway,
		baseSecret: baseSecret,
		log:        log,
	}
}

// CreateAccount generates a fresh keypair and funds it from the base
// account in one synchronous submission. The keypair is returned only
// after the ledger confirms; there is no retry here, the caller owns
// that decision.
func (m *AccountManager) CreateAccount(ctx context.Context) (*Keypair, error) {
	if m.baseSecret == "" {
		return nil, &errs.ConfigError{Key: "BASE_ACCOUNT_SECRET", Reason: "not set"}
	}

	funder, err := KeypairFromSecret(m.baseSecret)
	if err != nil {
		return nil, &errs.ConfigError{Key: "BASE_ACCOUNT_SECRET", Reason: err.Error()}
	}

	funderAccount, err := m.gateway.LoadAccount(ctx, funder.PublicKey())
	if err != nil {
		if _, ok := errs.AsNotFound(err); ok {
			return nil, &errs.ConfigError{Key: "BASE_ACCOUNT_SECRET", Reason: "base account does not exist on the ledger"}
		}
		return nil, err
	}

	newPair, err := RandomKeypair()
	if err != nil {
		return nil, err
	}

	env, err := BuildEnvelope(funderAccount, Operation{
		Type:        OpCreateAccount,
		Destination: newPair.PublicKey(),
		Amount:      StartingBalance,
	}, "")
	if err != nil {
		return nil, err
	}

	signed, err := env.Sign(funder)
	if err != nil {
		return nil, err
	}

	resp, err := m.gateway.SubmitTransaction(ctx, signed)
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"account": newPair.PublicKey(),
		"hash":    resp.Hash,
		"ledger":  resp.Ledger,
	}).Info("Created custodial account")

	return newPair, nil
}

// CloseAccount merges a custodial account's remaining balance back
// into the base funding account. Used when an organization offboards.
func (m *AccountManager) CloseAccount(ctx context.Context, secret string) error {
	if m.baseSecret == "" {
		return &errs.ConfigError{Key: "BASE_ACCOUNT_SECRET", Reason: "not set"}
	}
	base, err := KeypairFromSecret(m.baseSecret)
	if err != nil {
		return &errs.ConfigError{Key: "BASE_ACCOUNT_SECRET", Reason: err.Error()}
	}
	return m.DeleteAccount(ctx, secret, base.PublicKey())
}

// DeleteAccount merges the account's remaining balance into destination
// and removes it from the ledger.
func (m *AccountManager) DeleteAccount(ctx context.Context, secret, destination string) error {
	kp, err := KeypairFromSecret(secret)
	if err != nil {
		return &errs.ValidationError{Field: "secret", Reason: err.Error()}
	}

	account, err := m.gateway.LoadAccount(ctx, kp.PublicKey())
	if err != nil {
		return err
	}

	env, err := BuildEnvelope(account, Operation{
		Type:        OpAccountMerge,
		Destination: destination,
	}, "")
	if err != nil {
		return err
	}

	signed, err := env.Sign(kp)
	if err != nil {
		return err
	}

	resp, err := m.gateway.SubmitTransaction(ctx, signed)
	if err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{
		"account":     kp.PublicKey(),
		"destination": destination,
		"hash":        resp.Hash,
	}).Info("Merged account")

	return nil
}
