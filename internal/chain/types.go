package chain

import (
	"encoding/json"
	"fmt"
)

// apiResponse is the toncenter envelope around every result.
type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Code   int             `json:"code"`
}

// AddressInfo is the subset of getAddressInformation this wallet needs.
type AddressInfo struct {
	Balance string `json:"balance"`
	State   string `json:"state"`
}

// BroadcastResponse wraps the raw sendBoc result. Indexers answer with either
// a bare string or an object keyed by one of several names, so the reference
// is extracted explicitly rather than decoded into a loose map.
type BroadcastResponse struct {
	Raw json.RawMessage
}

// referenceKeys are tried in order when the response is an object.
var referenceKeys = []string{"hash", "tx_hash", "transaction_id", "result"}

// Reference extracts a transaction identifier from the response, following
// nested objects one level at a time. ok is false when no usable string is
// found anywhere in the shape.
func (r *BroadcastResponse) Reference() (string, bool) {
	return extractReference(r.Raw, 0)
}

func extractReference(raw json.RawMessage, depth int) (string, bool) {
	if depth > 3 || len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}

	for _, key := range referenceKeys {
		if inner, ok := obj[key]; ok {
			if ref, found := extractReference(inner, depth+1); found {
				return ref, true
			}
		}
	}

	return "", false
}

// StackEntry is one element of a get-method result stack.
type StackEntry struct {
	Type  string
	Num   string // for "num" entries: decimal or 0x-hex string
	Bytes string // for "cell"/"slice" entries: base64 BOC
}

// GetMethodResult is the decoded outcome of runGetMethod.
type GetMethodResult struct {
	ExitCode int
	Stack    []StackEntry
}

type rawGetMethodResult struct {
	ExitCode int               `json:"exit_code"`
	Stack    []json.RawMessage `json:"stack"`
}

func decodeGetMethodResult(raw json.RawMessage) (*GetMethodResult, error) {
	var r rawGetMethodResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("malformed get method result: %v", err)
	}

	out := &GetMethodResult{ExitCode: r.ExitCode}
	for _, entry := range r.Stack {
		var pair []json.RawMessage
		if err := json.Unmarshal(entry, &pair); err != nil || len(pair) < 2 {
			continue
		}

		var typ string
		if err := json.Unmarshal(pair[0], &typ); err != nil {
			continue
		}

		se := StackEntry{Type: typ}
		switch typ {
		case "num":
			_ = json.Unmarshal(pair[1], &se.Num)
		case "cell", "slice", "tvm.cell", "tvm.slice":
			var wrapped struct {
				Bytes string `json:"bytes"`
			}
			if err := json.Unmarshal(pair[1], &wrapped); err == nil && wrapped.Bytes != "" {
				se.Bytes = wrapped.Bytes
			} else {
				// some gateways return the base64 directly
				_ = json.Unmarshal(pair[1], &se.Bytes)
			}
		}
		out.Stack = append(out.Stack, se)
	}

	return out, nil
}
