package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/stargazerlabs/tonstars/internal/logger"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Balances holds the wallet's native and token holdings in minor units.
type Balances struct {
	Native uint64
	Token  uint64
}

// GetBalances reads the native coin balance and, when tokenMaster is set, the
// token balance held by the wallet's token sub-account. Any lookup failure
// yields a zero balance for that asset: a balance we cannot prove is a balance
// we refuse to spend.
func (c *Client) GetBalances(ctx context.Context, addr string, tokenMaster string) Balances {
	var b Balances

	info, err := c.GetAddressInformation(ctx, addr)
	if err != nil {
		logger.Errorf("native balance lookup failed for %s: %v", addr, err)
	} else if n, perr := parseStackNum(info.Balance); perr != nil {
		logger.Errorf("unparsable native balance %q: %v", info.Balance, perr)
	} else {
		b.Native = n.Uint64()
	}

	if tokenMaster != "" {
		tokens, err := c.tokenBalance(ctx, addr, tokenMaster)
		if err != nil {
			logger.Errorf("token balance lookup failed for %s: %v", addr, err)
		} else {
			b.Token = tokens
		}
	}

	return b
}

// TokenWalletAddress resolves the per-owner token sub-account from the token's
// master contract.
func (c *Client) TokenWalletAddress(ctx context.Context, master, owner string) (*address.Address, error) {
	ownerAddr, err := address.ParseAddr(owner)
	if err != nil {
		return nil, fmt.Errorf("bad owner address: %v", err)
	}

	ownerSlice := cell.BeginCell().MustStoreAddr(ownerAddr).EndCell()
	stack := [][]interface{}{
		{"tc.slice", base64.StdEncoding.EncodeToString(ownerSlice.ToBOC())},
	}

	result, err := c.RunGetMethod(ctx, master, "get_wallet_address", stack)
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 || len(result.Stack) == 0 {
		return nil, fmt.Errorf("get_wallet_address returned exit code %d", result.ExitCode)
	}

	addr, err := decodeStackAddress(result.Stack[0])
	if err != nil {
		return nil, fmt.Errorf("unresolvable token wallet address: %v", err)
	}

	return addr, nil
}

// tokenBalance performs the two-step token lookup: master contract resolves
// the sub-account, then the sub-account reports its stored balance. A wallet
// that never received tokens has no deployed sub-account and holds 0.
func (c *Client) tokenBalance(ctx context.Context, owner, master string) (uint64, error) {
	sub, err := c.TokenWalletAddress(ctx, master, owner)
	if err != nil {
		logger.Infof("no token sub-account for %s: %v", owner, err)
		return 0, nil
	}

	result, err := c.RunGetMethod(ctx, sub.String(), "get_wallet_data", nil)
	if err != nil {
		return 0, err
	}

	if result.ExitCode != 0 || len(result.Stack) == 0 {
		// sub-account not deployed yet
		return 0, nil
	}

	n, err := parseStackNum(result.Stack[0].Num)
	if err != nil {
		return 0, fmt.Errorf("bad token balance value: %v", err)
	}

	return n.Uint64(), nil
}

// addressDecoder is one strategy for reading an address out of a stack entry.
type addressDecoder func(StackEntry) (*address.Address, error)

// stackAddressDecoders are tried in order; the first one that produces an
// address wins. Gateways encode slice results in several different ways.
var stackAddressDecoders = []addressDecoder{
	decodeAddressFromBOC,
	decodeAddressFromRaw,
	decodeAddressFromFriendly,
}

func decodeStackAddress(entry StackEntry) (*address.Address, error) {
	var lastErr error
	for _, decode := range stackAddressDecoders {
		addr, err := decode(entry)
		if err == nil && addr != nil {
			return addr, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no decoder matched stack entry type %q", entry.Type)
	}
	return nil, lastErr
}

func decodeAddressFromBOC(entry StackEntry) (*address.Address, error) {
	if entry.Bytes == "" {
		return nil, fmt.Errorf("no cell bytes present")
	}
	raw, err := base64.StdEncoding.DecodeString(entry.Bytes)
	if err != nil {
		return nil, err
	}
	c, err := cell.FromBOC(raw)
	if err != nil {
		return nil, err
	}
	return c.BeginParse().LoadAddr()
}

func decodeAddressFromRaw(entry StackEntry) (*address.Address, error) {
	if !strings.Contains(entry.Num, ":") {
		return nil, fmt.Errorf("not a raw address")
	}
	return address.ParseRawAddr(entry.Num)
}

func decodeAddressFromFriendly(entry StackEntry) (*address.Address, error) {
	if entry.Num == "" {
		return nil, fmt.Errorf("no address string present")
	}
	return address.ParseAddr(entry.Num)
}

// parseStackNum parses a numeric value that may arrive as a decimal string or
// a 0x-prefixed hex string.
func parseStackNum(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty numeric value")
	}

	n := new(big.Int)
	if _, ok := n.SetString(s, 0); !ok {
		return nil, fmt.Errorf("cannot parse %q as a number", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %q", s)
	}

	return n, nil
}
