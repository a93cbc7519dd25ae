// Package market provides exchange market data access for the straddle engine:
// a Binance REST client, a Redis-backed caching layer, a deterministic mock for
// dry runs, and a stablecoin liquidity ranker.
package market

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Kline represents a candlestick
type Kline struct {
	OpenTime         int64   `json:"openTime"`
	Open             float64 `json:"open,string"`
	High             float64 `json:"high,string"`
	Low              float64 `json:"low,string"`
	Close            float64 `json:"close,string"`
	Volume           float64 `json:"volume,string"`
	CloseTime        int64   `json:"closeTime"`
	QuoteAssetVolume float64 `json:"quoteAssetVolume,string"`
	NumberOfTrades   int     `json:"numberOfTrades"`
}

// Ticker24hr represents 24hr ticker price change statistics
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	LastPrice          float64 `json:"lastPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
}

// DataSource provides live price/volume data. Implementations must return at
// least the requested number of bars or an error when history is insufficient.
type DataSource interface {
	GetCurrentPrice(symbol string) (float64, error)
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
	Get24hrTickers() ([]Ticker24hr, error)
	GetBalance(asset string) (float64, error)
}

// Client is a thin Binance spot REST client
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

var _ DataSource = (*Client)(nil)

func NewClient(apiKey, secretKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKlines fetches candlestick data
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 9 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		klines[i] = Kline{
			OpenTime:         int64(raw[0].(float64)),
			Open:             parseFloat(raw[1]),
			High:             parseFloat(raw[2]),
			Low:              parseFloat(raw[3]),
			Close:            parseFloat(raw[4]),
			Volume:           parseFloat(raw[5]),
			CloseTime:        int64(raw[6].(float64)),
			QuoteAssetVolume: parseFloat(raw[7]),
			NumberOfTrades:   int(raw[8].(float64)),
		}
	}

	if len(klines) < limit {
		return klines, fmt.Errorf("insufficient history for %s %s: got %d bars, need %d", symbol, interval, len(klines), limit)
	}

	return klines, nil
}

// GetCurrentPrice fetches the latest trade price for a symbol
func (c *Client) GetCurrentPrice(symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API error: %s", string(body))
	}

	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}

	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", result.Price, err)
	}

	return price, nil
}

// Get24hrTickers fetches 24hr ticker data for all symbols
func (c *Client) Get24hrTickers() ([]Ticker24hr, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr", c.baseURL)

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching tickers: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var tickers []Ticker24hr
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("error parsing tickers: %w", err)
	}

	return tickers, nil
}

// GetBalance returns the free balance for a single asset
func (c *Client) GetBalance(asset string) (float64, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	signature := c.sign(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("signature", signature)

	endpoint := fmt.Sprintf("%s/api/v3/account?%s", c.baseURL, values.Encode())

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error fetching account: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API error: %s", string(body))
	}

	var account struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return 0, fmt.Errorf("error parsing account: %w", err)
	}

	for _, b := range account.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid balance %q: %w", b.Free, err)
			}
			return free, nil
		}
	}

	return 0, nil
}

// sign creates an HMAC SHA256 signature over sorted query params
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := ""
	for i, k := range keys {
		if i > 0 {
			query += "&"
		}
		query += k + "=" + params[k]
	}

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}
