package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidchain/internal/errs"
)

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "receipt.pdf", header.Filename)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"cid":"QmReceipt123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "test-jwt")
	cid, err := client.Upload(context.Background(), "receipt.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "QmReceipt123", cid)
}

func TestUploadEmptyDocument(t *testing.T) {
	client := NewClient("http://unused", "http://unused", "jwt")
	_, err := client.Upload(context.Background(), "empty.pdf", nil)
	_, ok := errs.AsValidation(err)
	assert.True(t, ok, "expected validation error, got %v", err)
}

func TestUploadMissingCid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "jwt")
	_, err := client.Upload(context.Background(), "receipt.pdf", []byte("data"))
	assert.True(t, errs.IsRetryable(err), "a cid-less response is a service fault, got %v", err)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmReceipt123", r.URL.Path)
		w.Write([]byte("document bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "jwt")
	data, err := client.Fetch(context.Background(), "QmReceipt123")
	require.NoError(t, err)
	assert.Equal(t, []byte("document bytes"), data)
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "jwt")
	_, err := client.Fetch(context.Background(), "QmMissing")
	nf, ok := errs.AsNotFound(err)
	require.True(t, ok, "expected not-found error, got %v", err)
	assert.Equal(t, "document", nf.Kind)
}
