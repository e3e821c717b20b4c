// Package binance implements the signed Binance Pay API client: order
// creation, order query and certificate fetch, all sharing one
// request-signing contract.
package binance

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/httpapi"
)

const apiPath = "/binancepay/openapi/"

// Signature headers attached to every outbound call. The API key acts as the
// certificate serial identifying the merchant credential.
const (
	headerTimestamp     = "BinancePay-Timestamp"
	headerNonce         = "BinancePay-Nonce"
	headerCertificateSN = "BinancePay-Certificate-SN"
	headerSignature     = "BinancePay-Signature"
)

// Config carries the merchant credentials for the processor API.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// Client issues signed requests against the processor API. It is safe for
// concurrent use; each call signs with its own timestamp and nonce.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      httpapi.Doer
}

// NewClient builds a client from the merchant config. A nil doer falls back
// to a default http.Client with a 30s timeout.
func NewClient(cfg Config, doer httpapi.Doer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      doer,
	}
}

// signedRequest carries the signing material for exactly one outbound call.
// Timestamp and nonce are fixed at construction and must never be reused:
// a second call needs a fresh signedRequest. The body must not be mutated
// after signing.
type signedRequest struct {
	timestamp int64
	nonce     string
	body      []byte
	signature string
}

func (c *Client) newSignedRequest(body []byte) (*signedRequest, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	r := &signedRequest{
		timestamp: time.Now().UnixMilli(),
		nonce:     nonce,
		body:      body,
	}
	r.signature = Sign(r.timestamp, r.nonce, r.body, c.apiSecret)
	return r, nil
}

// newNonce returns 32 hex characters (128 bits) from crypto/rand.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Sign computes the request signature: uppercase hex HMAC-SHA512 of the
// canonical payload "timestamp\nnonce\nbody\n". The newline-delimited order
// is part of the wire contract; any deviation breaks server-side verification.
func Sign(timestamp int64, nonce string, body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("\n"))
	mac.Write([]byte(nonce))
	mac.Write([]byte("\n"))
	mac.Write(body)
	mac.Write([]byte("\n"))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// apiResponse is the envelope the processor wraps every response body in.
type apiResponse struct {
	Status       string          `json:"status"`
	Code         string          `json:"code"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"errorMessage"`
}

// post signs and sends one request, decoding the data field of a successful
// envelope into out. Non-2xx responses map to the httpapi error table; a 2xx
// FAIL envelope maps to APIError.
func (c *Client) post(ctx context.Context, path string, reqBody any, out any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	signed, err := c.newSignedRequest(jsonBody)
	if err != nil {
		return err
	}

	url := c.baseURL + apiPath + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(signed.body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerTimestamp, strconv.FormatInt(signed.timestamp, 10))
	httpReq.Header.Set(headerNonce, signed.nonce)
	httpReq.Header.Set(headerCertificateSN, c.apiKey)
	httpReq.Header.Set(headerSignature, signed.signature)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpapi.StatusError(http.MethodPost, url, resp.StatusCode, respBody)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Status != "SUCCESS" {
		return &APIError{Code: envelope.Code, Message: envelope.ErrorMessage}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
