// Package chapa implements a thin client for the Chapa payment API.
// It covers the two calls the ticket flow needs: transaction
// initialization (returns the hosted checkout URL) and verification by
// reference.  The client never retries; callers own the retry policy.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the production Chapa API endpoint.
	DefaultBaseURL = "https://api.chapa.co"

	initializeTimeout = 30 * time.Second
	verifyTimeout     = 20 * time.Second
)

// Op identifies which API call produced an Error.  Verification
// failures are surfaced separately because callers must treat them as
// "try again later" rather than "payment failed".
const (
	OpInitialize = "initialize"
	OpVerify     = "verify"
)

// Error wraps transport failures, non-2xx responses and malformed JSON
// bodies from the Chapa API.  StatusCode is zero when the request never
// produced a response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chapa %s: %v", e.Op, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("chapa %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chapa %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsVerification reports whether err is a gateway error from the verify
// call.  Handlers use it to pick the HTTP status that makes the
// provider retry the webhook.
func IsVerification(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Op == OpVerify
}

// Client talks to the Chapa API using bearer authentication.
type Client struct {
	baseURL string
	secret  string
	hc      *http.Client
}

// New returns a Client for the given secret key.  An empty baseURL
// selects the production endpoint.
func New(secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		hc:      &http.Client{},
	}
}

// InitializeRequest carries the parameters for a hosted checkout
// transaction.  Amount is transmitted in currency-major units; no
// conversion is performed.
type InitializeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	TxRef       string
	CallbackURL string
	ReturnURL   string
	Meta        map[string]any
}

// InitializeResponse is the gateway's reply to an initialize call.
type InitializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		ID          string `json:"id"`
	} `json:"data"`
}

// OK reports whether the gateway accepted the transaction and returned
// a usable checkout URL.
func (r *InitializeResponse) OK() bool {
	return strings.EqualFold(r.Status, "success") && r.Data.CheckoutURL != ""
}

// VerifyData is the inner payload of a verification response.
type VerifyData struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	TxRef     string          `json:"tx_ref"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// VerifyResponse is the gateway's reply to a verify call.
type VerifyResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Data    VerifyData `json:"data"`
}

// Paid reports whether the gateway confirms the transaction as settled.
// Anything else (pending, failed, unknown envelope) is not paid.
func (r *VerifyResponse) Paid() bool {
	if !strings.EqualFold(r.Status, "success") {
		return false
	}
	s := strings.ToLower(r.Data.Status)
	return s == "success" || s == "paid"
}

// GatewayRef returns the provider's own transaction identifier,
// preferring its reference over the echoed tx_ref.
func (r *VerifyResponse) GatewayRef() string {
	if r.Data.Reference != "" {
		return r.Data.Reference
	}
	return r.Data.TxRef
}

// Initialize creates a transaction and returns the hosted checkout URL
// envelope.  Transport failures, non-2xx statuses and malformed bodies
// all come back as *Error with Op set to "initialize".
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	payload := map[string]any{
		"amount":       req.Amount.String(),
		"currency":     req.Currency,
		"email":        req.Email,
		"first_name":   req.FirstName,
		"tx_ref":       req.TxRef,
		"callback_url": req.CallbackURL,
		"return_url":   req.ReturnURL,
	}
	if len(req.Meta) > 0 {
		payload["meta"] = req.Meta
	}

	var out InitializeResponse
	if err := c.post(ctx, OpInitialize, "/v1/transaction/initialize", payload, initializeTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify fetches the authoritative state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	var out VerifyResponse
	path := "/v1/transaction/verify/" + url.PathEscape(reference)
	if err := c.get(ctx, OpVerify, path, verifyTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any, timeout time.Duration, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *Client) get(ctx context.Context, op, path string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: snippet(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "invalid JSON response", Err: err}
	}
	return nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}
