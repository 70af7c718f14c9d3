package dex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultJupiterAPI is the public Jupiter v6 swap API root.
const DefaultJupiterAPI = "https://quote-api.jup.ag/v6"

// JupiterAPI is a REST client for the Jupiter quote and swap endpoints.
type JupiterAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewJupiterAPI creates a client. An empty baseURL selects DefaultJupiterAPI.
func NewJupiterAPI(baseURL string) *JupiterAPI {
	if baseURL == "" {
		baseURL = DefaultJupiterAPI
	}
	return &JupiterAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// QuoteParams selects a route.
type QuoteParams struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
	// Dexes restricts routing to the named venues (e.g. "Raydium").
	Dexes []string
}

// QuoteResponse is a route returned by /quote. Raw is passed back to /swap
// untouched.
type QuoteResponse struct {
	InputMint            string
	OutputMint           string
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	Raw                  json.RawMessage
}

type apiQuote struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	Error                string `json:"error"`
}

// Quote fetches the best route for p.
func (j *JupiterAPI) Quote(ctx context.Context, p QuoteParams) (*QuoteResponse, error) {
	params := url.Values{}
	params.Set("inputMint", p.InputMint)
	params.Set("outputMint", p.OutputMint)
	params.Set("amount", strconv.FormatUint(p.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(p.SlippageBps))
	if len(p.Dexes) > 0 {
		params.Set("dexes", strings.Join(p.Dexes, ","))
	}

	body, err := j.do(ctx, http.MethodGet, "/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter: quote: %w", err)
	}

	var q apiQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("jupiter: decode quote: %w", err)
	}
	if q.Error != "" {
		return nil, fmt.Errorf("jupiter: quote: %s", q.Error)
	}

	resp := &QuoteResponse{
		InputMint:  q.InputMint,
		OutputMint: q.OutputMint,
		Raw:        json.RawMessage(body),
	}
	if resp.InAmount, err = parseAmount(q.InAmount); err != nil {
		return nil, fmt.Errorf("jupiter: inAmount: %w", err)
	}
	if resp.OutAmount, err = parseAmount(q.OutAmount); err != nil {
		return nil, fmt.Errorf("jupiter: outAmount: %w", err)
	}
	if resp.OtherAmountThreshold, err = parseAmount(q.OtherAmountThreshold); err != nil {
		return nil, fmt.Errorf("jupiter: otherAmountThreshold: %w", err)
	}
	return resp, nil
}

// SwapTransaction asks /swap to build an unsigned transaction for quote and
// returns it base64-encoded.
func (j *JupiterAPI) SwapTransaction(ctx context.Context, quote *QuoteResponse, userPublicKey string, priorityFeeLamports uint64) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"quoteResponse":             quote.Raw,
		"userPublicKey":             userPublicKey,
		"wrapAndUnwrapSol":          true,
		"prioritizationFeeLamports": priorityFeeLamports,
	})
	if err != nil {
		return "", fmt.Errorf("jupiter: marshal swap request: %w", err)
	}

	body, err := j.do(ctx, http.MethodPost, "/swap", payload)
	if err != nil {
		return "", fmt.Errorf("jupiter: swap: %w", err)
	}

	var resp struct {
		SwapTransaction string `json:"swapTransaction"`
		Error           string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("jupiter: decode swap: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("jupiter: swap: %s", resp.Error)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter: swap: empty transaction")
	}
	return resp.SwapTransaction, nil
}

func (j *JupiterAPI) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, j.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
