package cambio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/govalues/decimal"
)

// defaultAPIURL is the free official-dollar endpoint; no token required.
const defaultAPIURL = "https://dolarapi.com/v1/dolares/oficial"

// rateFetcher pulls the daily reference rate from an external JSON provider.
// The client timeout bounds the call so a stuck provider can never hold up a
// generation run.
type rateFetcher struct {
	url    string
	client *http.Client
}

func newRateFetcher(url string) *rateFetcher {
	if url == "" {
		url = defaultAPIURL
	}
	return &rateFetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type rateResponse struct {
	Compra float64 `json:"compra"`
	Venta  float64 `json:"venta"`
}

func (f *rateFetcher) fetch(ctx context.Context) (compra, venta decimal.Decimal, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("rate provider returned %d", resp.StatusCode)
	}
	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("decode rate response: %w", err)
	}
	compra, err = decimal.NewFromFloat64(body.Compra)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	venta, err = decimal.NewFromFloat64(body.Venta)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return compra, venta, nil
}
