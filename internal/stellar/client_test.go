package stellar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidchain/internal/errs"
)

var fastRetry = &RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 1,
	MaxBackoff:     1,
	BackoffFactor:  1.0,
	JitterFactor:   0,
}

func TestLoadAccount(t *testing.T) {
	kp, err := RandomKeypair()
	require.NoError(t, err)
	addr := kp.PublicKey()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+addr, r.URL.Path)
		w.Write([]byte(`{"account_id":"` + addr + `","sequence":"100","balances":[{"asset_type":"native","balance":"55.5"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	detail, err := client.LoadAccount(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, Sequence(100), detail.Sequence)
	assert.True(t, detail.NativeBalance().Equal(decimal.RequireFromString("55.5")))
}

func TestLoadAccountRejectsBadAddress(t *testing.T) {
	client := NewClient("http://unused", fastRetry, 0)
	_, err := client.LoadAccount(context.Background(), "not-an-address")
	_, ok := errs.AsValidation(err)
	assert.True(t, ok, "expected validation error, got %v", err)
}

func TestGetTransactionNotFoundIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	_, err := client.GetTransaction(context.Background(), "deadbeef")
	nf, ok := errs.AsNotFound(err)
	require.True(t, ok, "expected not-found error, got %v", err)
	assert.Equal(t, "transaction", nf.Kind)
	assert.Equal(t, 1, calls, "404 must not be retried")
}

func TestGetTransactionRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"hash":"deadbeef","ledger":12,"successful":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	record, err := client.GetTransaction(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", record.Hash)
	assert.Equal(t, 3, calls)
}

func TestGetTransactionExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	_, err := client.GetTransaction(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.True(t, errs.IsRetryable(err))
}

func TestSubmitTransactionProblemBecomesChainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"title": "Transaction Failed",
			"status": 400,
			"detail": "the transaction failed when submitted",
			"extras": {"result_codes": {"transaction": "tx_failed", "operations": ["op_underfunded"]}}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	_, err := client.SubmitTransaction(context.Background(), &SignedEnvelope{})
	chainErr, ok := errs.AsChain(err)
	require.True(t, ok, "expected chain error, got %v", err)
	assert.Equal(t, "tx_failed", chainErr.Code)
	assert.Equal(t, []string{"op_underfunded"}, chainErr.ResultCodes)
	assert.False(t, errs.IsRetryable(err), "a rejection is definitive")
}

func TestSubmitTransactionUnsuccessfulBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hash":"abc","ledger":1,"successful":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	_, err := client.SubmitTransaction(context.Background(), &SignedEnvelope{})
	_, ok := errs.AsChain(err)
	assert.True(t, ok, "expected chain error, got %v", err)
}

func TestSubmitTransactionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		w.Write([]byte(`{"hash":"abc","ledger":7,"successful":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetry, 0)
	resp, err := client.SubmitTransaction(context.Background(), &SignedEnvelope{})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Hash)
	assert.Equal(t, int64(7), resp.Ledger)
}
