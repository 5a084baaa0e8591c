package stellar

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidchain/internal/errs"
)

func TestSubmitPayment(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	gateway.fund(sender, "100", 9)

	submitter := NewSubmitter(gateway, testLogger())
	resp, err := submitter.SubmitPayment(context.Background(), sender.Secret(), receiver.PublicKey(), decimal.NewFromInt(30), "QmProof")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Hash)

	require.Len(t, gateway.submitted, 1)
	env := gateway.submitted[0].Envelope
	assert.Equal(t, OpPayment, env.Operation.Type)
	assert.Equal(t, receiver.PublicKey(), env.Operation.Destination)
	assert.Equal(t, "QmProof", env.Memo)
	assert.Equal(t, Sequence(10), env.Sequence)
}

func TestSubmitPaymentInsufficientBalance(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	gateway.fund(sender, "10", 1)

	submitter := NewSubmitter(gateway, testLogger())
	_, err = submitter.SubmitPayment(context.Background(), sender.Secret(), receiver.PublicKey(), decimal.NewFromInt(10), "")
	chainErr, ok := errs.AsChain(err)
	require.True(t, ok, "expected chain error, got %v", err)
	assert.Equal(t, "op_underfunded", chainErr.Code)
	assert.Empty(t, gateway.submitted, "nothing reaches the gateway")
}

func TestSubmitPaymentValidation(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	gateway := newFakeGateway()
	submitter := NewSubmitter(gateway, testLogger())

	tests := []struct {
		name     string
		secret   string
		receiver string
		amount   decimal.Decimal
	}{
		{"zero amount", sender.Secret(), receiver.PublicKey(), decimal.Zero},
		{"bad receiver", sender.Secret(), "nope", decimal.NewFromInt(1)},
		{"bad secret", "nope", receiver.PublicKey(), decimal.NewFromInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := submitter.SubmitPayment(context.Background(), tt.secret, tt.receiver, tt.amount, "")
			_, ok := errs.AsValidation(err)
			assert.True(t, ok, "expected validation error, got %v", err)
		})
	}
}

func TestVerifyTransaction(t *testing.T) {
	gateway := newFakeGateway()
	gateway.txs["tx-good"] = &TransactionRecord{Hash: "tx-good", Successful: true}
	gateway.txs["tx-failed"] = &TransactionRecord{Hash: "tx-failed", Successful: false}

	submitter := NewSubmitter(gateway, testLogger())

	record, err := submitter.VerifyTransaction(context.Background(), "tx-good")
	require.NoError(t, err)
	assert.Equal(t, "tx-good", record.Hash)

	_, err = submitter.VerifyTransaction(context.Background(), "tx-failed")
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok, "a failed transaction never verifies, got %v", err)

	_, err = submitter.VerifyTransaction(context.Background(), "tx-unknown")
	_, ok = errs.AsNotFound(err)
	assert.True(t, ok)
}
