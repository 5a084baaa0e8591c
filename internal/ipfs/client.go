// Package ipfs is the content-addressed store client backing expense
// proof documents. Only the upload/fetch contract matters here; how the
// pinning service stores bytes is its own business.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"aidchain/internal/errs"
)

type Client struct {
	apiURL     string
	gatewayURL string
	jwt        string
	httpClient *http.Client
}

func NewClient(apiURL, gatewayURL, jwt string) *Client {
	return &Client{
		apiURL:     apiURL,
		gatewayURL: gatewayURL,
		jwt:        jwt,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	Cid string `json:"cid"`
}

// Upload pins a document and returns its content id. The cid is what
// expense records and payment memos carry as the proof reference.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &errs.ValidationError{Field: "file", Reason: "empty document"}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &errs.NetworkError{Op: "ipfs upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &errs.NetworkError{Op: "ipfs upload", Err: fmt.Errorf("pinning service status %d", resp.StatusCode)}
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", &errs.NetworkError{Op: "ipfs upload", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if uploaded.Cid == "" {
		return "", &errs.NetworkError{Op: "ipfs upload", Err: fmt.Errorf("pinning service returned no cid")}
	}
	return uploaded.Cid, nil
}

// Fetch retrieves a pinned document by content id.
func (c *Client) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if cid == "" {
		return nil, &errs.ValidationError{Field: "cid", Reason: "missing"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/ipfs/"+cid, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.NetworkError{Op: "ipfs fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &errs.NotFoundError{Kind: "document", ID: cid}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.NetworkError{Op: "ipfs fetch", Err: fmt.Errorf("gateway status %d", resp.StatusCode)}
	}

	return io.ReadAll(resp.Body)
}
