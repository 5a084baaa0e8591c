package stellar

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidchain/internal/errs"
)

func testAccount(t *testing.T, kp *Keypair, seq int64) *AccountDetail {
	t.Helper()
	return &AccountDetail{
		AccountID: kp.PublicKey(),
		Sequence:  Sequence(seq),
		Balances: []Balance{
			{AssetType: "native", Amount: decimal.RequireFromString("100")},
		},
	}
}

func TestBuildEnvelope(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	source := testAccount(t, sender, 41)
	env, err := BuildEnvelope(source, Operation{
		Type:        OpPayment,
		Destination: receiver.PublicKey(),
		Amount:      decimal.RequireFromString("12.5"),
	}, "QmProofCID")
	require.NoError(t, err)

	assert.Equal(t, sender.PublicKey(), env.Source)
	assert.Equal(t, Sequence(42), env.Sequence)
	assert.Equal(t, BaseFee, env.Fee)
	assert.Equal(t, "QmProofCID", env.Memo)
	assert.Equal(t, env.TimeBounds.MinTime+int64(TxValidity.Seconds()), env.TimeBounds.MaxTime)
}

func TestBuildEnvelopeValidation(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)
	source := testAccount(t, sender, 1)

	tests := []struct {
		name string
		op   Operation
	}{
		{"missing destination", Operation{Type: OpPayment, Amount: decimal.NewFromInt(1)}},
		{"bad destination", Operation{Type: OpPayment, Destination: "nope", Amount: decimal.NewFromInt(1)}},
		{"zero amount", Operation{Type: OpPayment, Destination: receiver.PublicKey()}},
		{"negative amount", Operation{Type: OpPayment, Destination: receiver.PublicKey(), Amount: decimal.NewFromInt(-3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildEnvelope(source, tt.op, "")
			_, ok := errs.AsValidation(err)
			assert.True(t, ok, "expected validation error, got %v", err)
		})
	}
}

func TestBuildEnvelopeMergeNeedsNoAmount(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	env, err := BuildEnvelope(testAccount(t, sender, 7), Operation{
		Type:        OpAccountMerge,
		Destination: receiver.PublicKey(),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, OpAccountMerge, env.Operation.Type)
}

func TestSignProducesVerifiableEnvelope(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)

	env, err := BuildEnvelope(testAccount(t, sender, 5), Operation{
		Type:        OpPayment,
		Destination: receiver.PublicKey(),
		Amount:      decimal.NewFromInt(4),
	}, "memo")
	require.NoError(t, err)

	signed, err := env.Sign(sender)
	require.NoError(t, err)

	digest, err := env.HashPayload()
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(digest[:]), signed.Hash)

	sig, err := base64.StdEncoding.DecodeString(signed.Signature)
	require.NoError(t, err)
	assert.True(t, sender.Verify(digest[:], sig))
}

func TestSignRejectsForeignSigner(t *testing.T) {
	sender, err := RandomKeypair()
	require.NoError(t, err)
	receiver, err := RandomKeypair()
	require.NoError(t, err)
	intruder, err := RandomKeypair()
	require.NoError(t, err)

	env, err := BuildEnvelope(testAccount(t, sender, 5), Operation{
		Type:        OpPayment,
		Destination: receiver.PublicKey(),
		Amount:      decimal.NewFromInt(4),
	}, "")
	require.NoError(t, err)

	_, err = env.Sign(intruder)
	_, ok := errs.AsValidation(err)
	assert.True(t, ok, "expected validation error, got %v", err)
}

func TestSequenceJSON(t *testing.T) {
	var s Sequence
	require.NoError(t, s.UnmarshalJSON([]byte(`"1234567890"`)))
	assert.Equal(t, Sequence(1234567890), s)

	require.NoError(t, s.UnmarshalJSON([]byte(`77`)))
	assert.Equal(t, Sequence(77), s)

	out, err := Sequence(9).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"9"`, string(out))

	assert.Error(t, s.UnmarshalJSON([]byte(`"not a number"`)))
}
