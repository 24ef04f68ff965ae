package transaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/stargazerlabs/tonstars/internal/chain"
	"github.com/stargazerlabs/tonstars/internal/logger"
)

// RPC is the slice of the indexer client broadcast needs.
type RPC interface {
	SendBoc(ctx context.Context, bocBase64 string) (*chain.BroadcastResponse, error)
}

// errorIndicators mark a broadcast "reference" that is actually an error
// message smuggled into the result field.
var errorIndicators = []string{
	"error",
	"exception",
	"exit",
	"rate limit",
	"ratelimit",
	"timeout",
	"duplicate",
	"invalid",
	"not found",
}

// Broadcast submits the signed envelope and extracts a transaction reference
// from whatever shape the indexer answers with. An unreachable RPC is a real
// error; an answer we cannot interpret yields an empty reference and no error,
// leaving the caller to decide whether to proceed.
func Broadcast(ctx context.Context, rpc RPC, env *Envelope) (string, error) {
	resp, err := rpc.SendBoc(ctx, env.Base64())
	if err != nil {
		return "", fmt.Errorf("broadcast failed: %v", err)
	}

	ref, ok := resp.Reference()
	if !ok {
		logger.Error("broadcast response carried no recognizable reference")
		return "", nil
	}

	if !LooksLikeTxRef(ref) {
		logger.Errorf("broadcast response %q does not look like a transaction reference", ref)
		return "", nil
	}

	logger.Infof("broadcast accepted, reference %s", ref)
	return ref, nil
}

// LooksLikeTxRef reports whether s is plausibly a real transaction reference
// rather than an error string. References are long hex or base64 blobs with
// no spaces and none of the known error markers.
func LooksLikeTxRef(s string) bool {
	if len(s) < 32 {
		return false
	}

	lower := strings.ToLower(s)
	for _, marker := range errorIndicators {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=' || r == '-' || r == '_':
		default:
			return false
		}
	}

	return true
}
