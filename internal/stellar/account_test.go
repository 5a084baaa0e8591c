package stellar

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidchain/internal/errs"
)

// fakeGateway is an in-memory ledger: accounts with balances and every
// submitted envelope kept for inspection.
type fakeGateway struct {
	accounts  map[string]*AccountDetail
	txs       map[string]*TransactionRecord
	submitted []*SignedEnvelope
	submitErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		accounts: make(map[string]*AccountDetail),
		txs:      make(map[string]*TransactionRecord),
	}
}

func (g *fakeGateway) fund(kp *Keypair, balance string, seq int64) {
	g.accounts[kp.PublicKey()] = &AccountDetail{
		AccountID: kp.PublicKey(),
		Sequence:  Sequence(seq),
		Balances:  []Balance{{AssetType: "native", Amount: decimal.RequireFromString(balance)}},
	}
}

func (g *fakeGateway) LoadAccount(ctx context.Context, pubkey string) (*AccountDetail, error) {
	if acc, ok := g.accounts[pubkey]; ok {
		return acc, nil
	}
	return nil, &errs.NotFoundError{Kind: "account", ID: pubkey}
}

func (g *fakeGateway) SubmitTransaction(ctx context.Context, env *SignedEnvelope) (*SubmitResponse, error) {
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	g.submitted = append(g.submitted, env)
	return &SubmitResponse{Hash: env.Hash, Ledger: int64(len(g.submitted)), Successful: true}, nil
}

func (g *fakeGateway) GetTransaction(ctx context.Context, hash string) (*TransactionRecord, error) {
	if tx, ok := g.txs[hash]; ok {
		return tx, nil
	}
	return nil, &errs.NotFoundError{Kind: "transaction", ID: hash}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestCreateAccount(t *testing.T) {
	base, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	gateway.fund(base, "10000", 50)

	manager := NewAccountManager(gateway, base.Secret(), testLogger())
	created, err := manager.CreateAccount(context.Background())
	require.NoError(t, err)

	require.Len(t, gateway.submitted, 1)
	env := gateway.submitted[0].Envelope
	assert.Equal(t, OpCreateAccount, env.Operation.Type)
	assert.Equal(t, created.PublicKey(), env.Operation.Destination)
	assert.True(t, env.Operation.Amount.Equal(StartingBalance))
	assert.Equal(t, base.PublicKey(), env.Source)
	assert.Equal(t, Sequence(51), env.Sequence)
}

func TestCreateAccountMissingBaseSecret(t *testing.T) {
	manager := NewAccountManager(newFakeGateway(), "", testLogger())
	_, err := manager.CreateAccount(context.Background())
	ce, ok := errs.AsConfig(err)
	require.True(t, ok, "expected config error, got %v", err)
	assert.Equal(t, "BASE_ACCOUNT_SECRET", ce.Key)
}

func TestCreateAccountBaseAccountMissingOnLedger(t *testing.T) {
	base, err := RandomKeypair()
	require.NoError(t, err)

	manager := NewAccountManager(newFakeGateway(), base.Secret(), testLogger())
	_, err = manager.CreateAccount(context.Background())
	_, ok := errs.AsConfig(err)
	assert.True(t, ok, "unfunded base account is a deployment problem, got %v", err)
}

func TestCloseAccountMergesIntoBase(t *testing.T) {
	base, err := RandomKeypair()
	require.NoError(t, err)
	owner, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	gateway.fund(base, "10000", 1)
	gateway.fund(owner, "18", 4)

	manager := NewAccountManager(gateway, base.Secret(), testLogger())
	require.NoError(t, manager.CloseAccount(context.Background(), owner.Secret()))

	require.Len(t, gateway.submitted, 1)
	env := gateway.submitted[0].Envelope
	assert.Equal(t, OpAccountMerge, env.Operation.Type)
	assert.Equal(t, base.PublicKey(), env.Operation.Destination)
	assert.Equal(t, owner.PublicKey(), env.Source)
}

func TestCloseAccountMissingBaseSecret(t *testing.T) {
	owner, err := RandomKeypair()
	require.NoError(t, err)

	manager := NewAccountManager(newFakeGateway(), "", testLogger())
	err = manager.CloseAccount(context.Background(), owner.Secret())
	_, ok := errs.AsConfig(err)
	assert.True(t, ok, "expected config error, got %v", err)
}

func TestDeleteAccountMerges(t *testing.T) {
	owner, err := RandomKeypair()
	require.NoError(t, err)
	sink, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	gateway.fund(owner, "15", 3)

	manager := NewAccountManager(gateway, "", testLogger())
	require.NoError(t, manager.DeleteAccount(context.Background(), owner.Secret(), sink.PublicKey()))

	require.Len(t, gateway.submitted, 1)
	env := gateway.submitted[0].Envelope
	assert.Equal(t, OpAccountMerge, env.Operation.Type)
	assert.Equal(t, sink.PublicKey(), env.Operation.Destination)
	assert.Equal(t, owner.PublicKey(), env.Source)
}
