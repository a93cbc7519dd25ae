package swap

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// BinanceExecutor converts assets through the Binance Convert API: request a
// quote, then accept it within the quote's validity window.
type BinanceExecutor struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Executor = (*BinanceExecutor)(nil)

func NewBinanceExecutor(apiKey, secretKey, baseURL string) *BinanceExecutor {
	return &BinanceExecutor{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.WithComponent("swap"),
	}
}

type quoteResponse struct {
	QuoteID        string `json:"quoteId"`
	Ratio          string `json:"ratio"`
	InverseRatio   string `json:"inverseRatio"`
	ValidTimestamp int64  `json:"validTimestamp"`
	ToAmount       string `json:"toAmount"`
	FromAmount     string `json:"fromAmount"`
}

type acceptResponse struct {
	OrderID     string `json:"orderId"`
	CreateTime  int64  `json:"createTime"`
	OrderStatus string `json:"orderStatus"`
}

// Swap requests a convert quote for fromSymbol -> toSymbol and accepts it.
// fromSymbol/toSymbol are asset names (BTC, USDT), not trading pairs.
func (e *BinanceExecutor) Swap(ctx context.Context, fromSymbol, toSymbol string, amount float64) (*Result, error) {
	if err := validateRequest(fromSymbol, toSymbol, amount); err != nil {
		return nil, err
	}

	quote, err := e.getQuote(ctx, fromSymbol, toSymbol, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to get convert quote: %w", err)
	}

	accept, err := e.acceptQuote(ctx, quote.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept convert quote %s: %w", quote.QuoteID, err)
	}

	if accept.OrderStatus != "PROCESS" && accept.OrderStatus != "SUCCESS" {
		return nil, fmt.Errorf("convert order %s in unexpected status %s", accept.OrderID, accept.OrderStatus)
	}

	rate, _ := strconv.ParseFloat(quote.Ratio, 64)
	toAmount, _ := strconv.ParseFloat(quote.ToAmount, 64)
	if toAmount <= 0 || rate <= 0 {
		return nil, fmt.Errorf("convert quote %s returned invalid amounts (to=%s rate=%s)",
			quote.QuoteID, quote.ToAmount, quote.Ratio)
	}

	// Convert fees are baked into the quoted ratio
	result := &Result{
		TransactionID: accept.OrderID,
		FromSymbol:    fromSymbol,
		ToSymbol:      toSymbol,
		FromAmount:    amount,
		ToAmount:      toAmount,
		Rate:          rate,
		Timestamp:     time.Now().UTC(),
	}

	e.logger.Info().
		Str("from", fromSymbol).
		Str("to", toSymbol).
		Float64("from_amount", amount).
		Float64("to_amount", toAmount).
		Float64("rate", rate).
		Str("order_id", accept.OrderID).
		Msg("swap executed")

	return result, nil
}

func (e *BinanceExecutor) getQuote(ctx context.Context, fromAsset, toAsset string, amount float64) (*quoteResponse, error) {
	params := url.Values{}
	params.Set("fromAsset", fromAsset)
	params.Set("toAsset", toAsset)
	params.Set("fromAmount", strconv.FormatFloat(amount, 'f', -1, 64))

	var quote quoteResponse
	if err := e.signedPost(ctx, "/sapi/v1/convert/getQuote", params, &quote); err != nil {
		return nil, err
	}
	if quote.QuoteID == "" {
		return nil, fmt.Errorf("empty quote for %s -> %s", fromAsset, toAsset)
	}
	return &quote, nil
}

func (e *BinanceExecutor) acceptQuote(ctx context.Context, quoteID string) (*acceptResponse, error) {
	params := url.Values{}
	params.Set("quoteId", quoteID)

	var accept acceptResponse
	if err := e.signedPost(ctx, "/sapi/v1/convert/acceptQuote", params, &accept); err != nil {
		return nil, err
	}
	return &accept, nil
}

func (e *BinanceExecutor) signedPost(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(e.secretKey))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+path, strings.NewReader(query))
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", e.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error on %s: %s", path, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", path, err)
	}
	return nil
}
