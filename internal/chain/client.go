package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stargazerlabs/tonstars/internal/logger"
)

// Client talks to a toncenter-compatible HTTP indexer.
type Client struct {
	BaseURL string
	APIKey  string
	http    *http.Client
}

// NewClient creates an indexer client for the given base URL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query string) (json.RawMessage, error) {
	url := c.BaseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPC response: %v", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed RPC response: %v", err)
	}

	if !envelope.OK {
		if envelope.Error != "" {
			return nil, fmt.Errorf("RPC error %d: %s", envelope.Code, envelope.Error)
		}
		return nil, fmt.Errorf("RPC returned status %d", resp.StatusCode)
	}

	return envelope.Result, nil
}

// GetAddressInformation fetches the account state and native balance.
func (c *Client) GetAddressInformation(ctx context.Context, addr string) (*AddressInfo, error) {
	raw, err := c.get(ctx, "/getAddressInformation", "address="+addr)
	if err != nil {
		return nil, err
	}

	var info AddressInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("malformed address information: %v", err)
	}

	return &info, nil
}

// SendBoc submits a serialized external message to the network.
func (c *Client) SendBoc(ctx context.Context, bocBase64 string) (*BroadcastResponse, error) {
	raw, err := c.post(ctx, "/sendBoc", map[string]string{"boc": bocBase64})
	if err != nil {
		return nil, err
	}

	return &BroadcastResponse{Raw: raw}, nil
}

// RunGetMethod executes a get method against a deployed contract.
func (c *Client) RunGetMethod(ctx context.Context, addr, method string, stack [][]interface{}) (*GetMethodResult, error) {
	if stack == nil {
		stack = [][]interface{}{}
	}

	raw, err := c.post(ctx, "/runGetMethod", map[string]interface{}{
		"address": addr,
		"method":  method,
		"stack":   stack,
	})
	if err != nil {
		return nil, err
	}

	return decodeGetMethodResult(raw)
}

// Seqno reads the wallet's current sequence number. An uninitialized wallet
// has no seqno method yet and counts as 0.
func (c *Client) Seqno(ctx context.Context, addr string) (uint64, error) {
	result, err := c.RunGetMethod(ctx, addr, "seqno", nil)
	if err != nil {
		return 0, err
	}

	if result.ExitCode != 0 || len(result.Stack) == 0 {
		logger.Infof("seqno method unavailable for %s (exit code %d), treating wallet as fresh", addr, result.ExitCode)
		return 0, nil
	}

	n, err := parseStackNum(result.Stack[0].Num)
	if err != nil {
		return 0, fmt.Errorf("bad seqno value: %v", err)
	}

	return n.Uint64(), nil
}
