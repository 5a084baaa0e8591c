package stellar

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Sequence is rendered as a JSON string by the ledger gateway but is a
// number everywhere else.
type Sequence int64

func (s *Sequence) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return err
		}
		*s = Sequence(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Sequence(n)
	return nil
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(s), 10))
}

// Balance is one asset line on an account. AssetType is "native" for
// the ledger's own asset.
type Balance struct {
	AssetType string          `json:"asset_type"`
	AssetCode string          `json:"asset_code,omitempty"`
	Amount    decimal.Decimal `json:"balance"`
}

// AccountDetail is the gateway's view of an account.
type AccountDetail struct {
	AccountID string    `json:"account_id"`
	Sequence  Sequence  `json:"sequence"`
	Balances  []Balance `json:"balances"`
}

// NativeBalance returns the native-asset balance, zero if the account
// holds none.
func (a *AccountDetail) NativeBalance() decimal.Decimal {
	for _, b := range a.Balances {
		if b.AssetType == "native" {
			return b.Amount
		}
	}
	return decimal.Zero
}

// SubmitResponse is a confirmed submission.
type SubmitResponse struct {
	Hash       string `json:"hash"`
	Ledger     int64  `json:"ledger"`
	Successful bool   `json:"successful"`
}

// TransactionRecord is a transaction looked up by hash.
type TransactionRecord struct {
	Hash          string `json:"hash"`
	Ledger        int64  `json:"ledger"`
	Successful    bool   `json:"successful"`
	SourceAccount string `json:"source_account"`
	Memo          string `json:"memo,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// gatewayProblem is the problem+json body the gateway returns on
// rejection. ResultCodes carry the chain-level reason (insufficient
// balance, bad sequence, bad destination).
type gatewayProblem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Extras struct {
		ResultCodes struct {
			Transaction string   `json:"transaction"`
			Operations  []string `json:"operations"`
		} `json:"result_codes"`
	} `json:"extras"`
}
