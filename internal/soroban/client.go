// Package soroban talks to the contract runtime that mirrors expense
// chain links on-chain. Every stored record embeds the previous link's
// transaction reference, which is what makes the chain independently
// verifiable without trusting the platform's own database.
package soroban

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/errs"
	"aidchain/internal/stellar"
)

// GenesisLink is the sentinel the contract stores for the first record
// of a chain; locally the empty string means the same thing.
const GenesisLink = "no txn"

const (
	pollInterval = time.Second
	pollTimeout  = 30 * time.Second
)

type rpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	ID int `json:"id"`
}

// ChainRecord is one mirrored expense link as the contract stores it.
type ChainRecord struct {
	Owner      string          `json:"owner"`
	UsedAmount decimal.Decimal `json:"used_amount"`
	Cid        string          `json:"cid"`
	PrevTxn    string          `json:"prev_txn"`
	Timestamp  int64           `json:"timestamp"`
	Metadata   string          `json:"metadata,omitempty"`
}

// invocation is a signed contract call envelope.
type invocation struct {
	ContractID string         `json:"contract_id"`
	Function   string         `json:"function"`
	Args       map[string]any `json:"args"`
	Source     string         `json:"source"`
	Signature  string         `json:"signature,omitempty"`
}

type sendResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

type txResult struct {
	Status string `json:"status"`
}

// Client invokes the audit-chain contract over JSON-RPC.
type Client struct {
	rpcURL     string
	contractID string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewClient fails fast when the contract id is missing: without it no
// expense can ever be mirrored and the process should not come up.
func NewClient(rpcURL, contractID string, log *logrus.Logger) (*Client, error) {
	if contractID == "" {
		return nil, &errs.ConfigError{Key: "CONTRACT_ID", Reason: "not set"}
	}
	return &Client{
		rpcURL:     rpcURL,
		contractID: contractID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}, nil
}

// StoreData writes one chain link on-chain and returns the contract
// transaction reference once the runtime confirms it. prevLink "" is
// translated to the genesis sentinel on the wire.
func (c *Client) StoreData(ctx context.Context, ownerSecret string, amount decimal.Decimal, cid, prevLink, metadata string) (string, error) {
	if cid == "" {
		return "", &errs.ValidationError{Field: "cid", Reason: "missing proof reference"}
	}
	if !amount.IsPositive() {
		return "", &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	owner, err := stellar.KeypairFromSecret(ownerSecret)
	if err != nil {
		return "", &errs.ValidationError{Field: "ownerSecret", Reason: err.Error()}
	}

	if prevLink == "" {
		prevLink = GenesisLink
	}

	inv := invocation{
		ContractID: c.contractID,
		Function:   "store_data",
		Args: map[string]any{
			"user":        owner.PublicKey(),
			"used_amount": amount.String(),
			"cid":         cid,
			"prev_txn":    prevLink,
			"metadata":    metadata,
		},
		Source: owner.PublicKey(),
	}
	if err := inv.sign(owner); err != nil {
		return "", err
	}

	raw, err := c.rpcCall(ctx, "sendTransaction", inv)
	if err != nil {
		return "", err
	}

	var sent sendResult
	if err := json.Unmarshal(raw, &sent); err != nil {
		return "", &errs.NetworkError{Op: "store_data", Err: fmt.Errorf("decoding send result: %w", err)}
	}

	switch sent.Status {
	case "PENDING":
		if err := c.waitConfirmed(ctx, sent.Hash); err != nil {
			return "", err
		}
	case "SUCCESS":
	default:
		return "", &errs.ChainError{Op: "store_data", Code: sent.Status, Detail: "contract runtime rejected the invocation"}
	}

	c.log.WithFields(logrus.Fields{
		"hash": sent.Hash,
		"cid":  cid,
		"prev": prevLink,
	}).Info("Chain link mirrored on-chain")

	return sent.Hash, nil
}

// GetLatest reads the newest mirrored record for an owner via
// simulation (no fee, no state change). A chain with no records yet
// returns (nil, nil).
func (c *Client) GetLatest(ctx context.Context, ownerAddress string) (*ChainRecord, error) {
	if !stellar.IsValidAddress(ownerAddress) {
		return nil, &errs.ValidationError{Field: "ownerAddress", Reason: "not a valid ledger address"}
	}

	inv := invocation{
		ContractID: c.contractID,
		Function:   "get_latest",
		Args:       map[string]any{"user": ownerAddress},
		Source:     ownerAddress,
	}

	raw, err := c.rpcCall(ctx, "simulateTransaction", inv)
	if err != nil {
		if _, ok := errs.AsNotFound(err); ok {
			return nil, nil
		}
		return nil, err
	}

	var record ChainRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &errs.NetworkError{Op: "get_latest", Err: fmt.Errorf("decoding record: %w", err)}
	}
	return &record, nil
}

func (inv *invocation) sign(kp *stellar.Keypair) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invocation: %w", err)
	}
	digest := sha256.Sum256(payload)
	inv.Signature = base64.StdEncoding.EncodeToString(kp.Sign(digest[:]))
	return nil
}

// waitConfirmed polls getTransaction until the runtime reports a final
// status, mirroring the pending/confirmed handshake of the runtime.
func (c *Client) waitConfirmed(ctx context.Context, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		raw, err := c.rpcCall(ctx, "getTransaction", map[string]any{"hash": hash})
		if err == nil {
			var tx txResult
			if err := json.Unmarshal(raw, &tx); err != nil {
				return &errs.NetworkError{Op: "getTransaction", Err: err}
			}
			switch tx.Status {
			case "SUCCESS":
				return nil
			case "NOT_FOUND", "PENDING":
				// keep polling
			default:
				return &errs.ChainError{Op: "store_data", Code: tx.Status, Detail: "contract invocation failed after submission"}
			}
		} else if _, ok := errs.AsNotFound(err); !ok {
			return err
		}

		select {
		case <-ctx.Done():
			return &errs.NetworkError{Op: "getTransaction", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func (c *Client) rpcCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.NetworkError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &errs.NetworkError{Op: method, Err: fmt.Errorf("error decoding response: %w", err)}
	}

	if rpcResp.Error != nil {
		if rpcResp.Error.Code == -32601 || rpcResp.Error.Message == "not found" {
			return nil, &errs.NotFoundError{Kind: "contract data", ID: method}
		}
		return nil, &errs.ChainError{
			Op:     method,
			Code:   fmt.Sprintf("rpc_%d", rpcResp.Error.Code),
			Detail: rpcResp.Error.Message,
		}
	}

	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, &errs.NotFoundError{Kind: "contract data", ID: method}
	}

	return rpcResp.Result, nil
}
