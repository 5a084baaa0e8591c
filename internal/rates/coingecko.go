package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"aidchain/internal/errs"
)

// CoinGecko fetches spot prices from a CoinGecko-compatible endpoint.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
}

func NewCoinGecko(baseURL string) *CoinGecko {
	return &CoinGecko{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Price returns the asset's rate in vsCurrency. The response shape is
// {"<asset>": {"<vsCurrency>": 28.6}}.
func (g *CoinGecko) Price(ctx context.Context, asset, vsCurrency string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		g.baseURL, url.QueryEscape(asset), url.QueryEscape(vsCurrency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, &errs.NetworkError{Op: "price fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &errs.NetworkError{Op: "price fetch", Err: fmt.Errorf("oracle status %d", resp.StatusCode)}
	}

	var body map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, &errs.NetworkError{Op: "price fetch", Err: fmt.Errorf("decoding response: %w", err)}
	}

	rate, ok := body[asset][vsCurrency]
	if !ok {
		return decimal.Zero, &errs.NetworkError{Op: "price fetch", Err: fmt.Errorf("no %s/%s rate in response", asset, vsCurrency)}
	}
	return rate, nil
}
