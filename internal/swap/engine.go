package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stargazerlabs/tonstars/internal/chain"
	"github.com/stargazerlabs/tonstars/internal/logger"
	"github.com/stargazerlabs/tonstars/internal/wallet"
	"github.com/stargazerlabs/tonstars/lib/transaction"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ErrSlippageExceeded aborts a swap whose live route price fell below the
// held quote's minimum. A worse rate is never substituted silently.
var ErrSlippageExceeded = errors.New("quote slippage exceeded")

const (
	opJettonTransfer = 0x0f8a7ea5
	opSwap           = 0x25938561

	// gas attached to the token transfer and the portion forwarded to the
	// venue router for the swap itself, in nanotons
	swapGasAmount     = 300000000
	swapForwardAmount = 185000000

	envelopeTTL = 120 * time.Second
)

// Quote is a single-use conversion quote. MinAskUnits is the floor the swap
// must clear; it is re-validated against the live route before execution.
type Quote struct {
	OfferUnits  uint64
	AskUnits    uint64
	MinAskUnits uint64
	Router      string
}

// Result is the outcome of an executed swap.
type Result struct {
	Success bool
	TxRef   string
}

// chainAPI is the slice of the indexer client the engine needs.
type chainAPI interface {
	TokenWalletAddress(ctx context.Context, master, owner string) (*address.Address, error)
	Seqno(ctx context.Context, addr string) (uint64, error)
	SendBoc(ctx context.Context, bocBase64 string) (*chain.BroadcastResponse, error)
}

// Engine converts token holdings into native coin through the swap venue.
type Engine struct {
	APIBase     string // simulate-swap HTTP API
	OfferMaster string // token being sold
	AskAddress  string // native-coin proxy asset on the venue
	Slippage    string // tolerance passed to the venue, e.g. "0.01"

	rpc  chainAPI
	http *http.Client
}

// NewEngine creates a swap engine over the given indexer client.
func NewEngine(apiBase, offerMaster, askAddress, slippage string, rpc chainAPI, timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		APIBase:     apiBase,
		OfferMaster: offerMaster,
		AskAddress:  askAddress,
		Slippage:    slippage,
		rpc:         rpc,
		http:        &http.Client{Timeout: timeout},
	}
}

type simulateResponse struct {
	OfferUnits    string `json:"offer_units"`
	AskUnits      string `json:"ask_units"`
	MinAskUnits   string `json:"min_ask_units"`
	RouterAddress string `json:"router_address"`
}

// Quote simulates the conversion and returns a single-use quote, or an error
// when the venue cannot route it.
func (e *Engine) Quote(ctx context.Context, offerUnits uint64) (*Quote, error) {
	q := url.Values{}
	q.Set("offer_address", e.OfferMaster)
	q.Set("ask_address", e.AskAddress)
	q.Set("units", strconv.FormatUint(offerUnits, 10))
	q.Set("slippage_tolerance", e.Slippage)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.APIBase+"/v1/swap/simulate?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap simulation failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap simulation returned status %d: %s", resp.StatusCode, string(body))
	}

	var sim simulateResponse
	if err := json.Unmarshal(body, &sim); err != nil {
		return nil, fmt.Errorf("malformed simulation response: %v", err)
	}

	quote, err := quoteFromSimulation(&sim, offerUnits)
	if err != nil {
		return nil, err
	}

	logger.Infof("swap quote: %d offer -> %d ask (min %d)", quote.OfferUnits, quote.AskUnits, quote.MinAskUnits)
	return quote, nil
}

func quoteFromSimulation(sim *simulateResponse, offerUnits uint64) (*Quote, error) {
	ask, err := strconv.ParseUint(sim.AskUnits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad ask units %q", sim.AskUnits)
	}
	minAsk, err := strconv.ParseUint(sim.MinAskUnits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad min ask units %q", sim.MinAskUnits)
	}
	if minAsk > ask {
		return nil, fmt.Errorf("simulation inverted: min %d above ask %d", minAsk, ask)
	}
	if sim.RouterAddress == "" {
		return nil, fmt.Errorf("simulation returned no router")
	}

	return &Quote{
		OfferUnits:  offerUnits,
		AskUnits:    ask,
		MinAskUnits: minAsk,
		Router:      sim.RouterAddress,
	}, nil
}

// Execute re-validates the quote against the live route and, when it still
// holds, signs and broadcasts the token transfer that performs the swap.
// Quotes go stale; a live minimum below the held one aborts with
// ErrSlippageExceeded before anything is built.
func (e *Engine) Execute(ctx context.Context, sc *wallet.SigningContext, q *Quote) (*Result, error) {
	live, err := e.Quote(ctx, q.OfferUnits)
	if err != nil {
		return nil, fmt.Errorf("quote re-validation failed: %v", err)
	}
	if live.MinAskUnits < q.MinAskUnits {
		logger.Errorf("swap aborted: live minimum %d below quoted minimum %d", live.MinAskUnits, q.MinAskUnits)
		return nil, ErrSlippageExceeded
	}

	payload, dest, err := e.buildSwapTransfer(ctx, sc, q)
	if err != nil {
		return nil, err
	}

	seqno, err := e.rpc.Seqno(ctx, sc.Address.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet seqno: %v", err)
	}

	env, err := transaction.BuildEnvelope(sc, []transaction.OutboundMessage{{
		Dest:    dest,
		Amount:  swapGasAmount,
		Payload: payload,
		Bounce:  true,
	}}, seqno, time.Now().Add(envelopeTTL).Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to build swap envelope: %v", err)
	}

	ref, err := transaction.Broadcast(ctx, e.rpc, env)
	if err != nil {
		return nil, err
	}

	return &Result{Success: true, TxRef: ref}, nil
}

// buildSwapTransfer assembles the token transfer carrying the venue's swap
// instruction as its forward payload. The transfer goes to the wallet's own
// token sub-account; the router receives the tokens plus the instruction.
func (e *Engine) buildSwapTransfer(ctx context.Context, sc *wallet.SigningContext, q *Quote) (*cell.Cell, *address.Address, error) {
	ownWallet, err := e.rpc.TokenWalletAddress(ctx, e.OfferMaster, sc.Address.String())
	if err != nil {
		return nil, nil, fmt.Errorf("cannot resolve own token wallet: %v", err)
	}

	router, err := address.ParseAddr(q.Router)
	if err != nil {
		return nil, nil, fmt.Errorf("bad router address %q: %v", q.Router, err)
	}

	// the router pays out from its own sub-account of the ask asset
	routerAskWallet, err := e.rpc.TokenWalletAddress(ctx, e.AskAddress, q.Router)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot resolve router ask wallet: %v", err)
	}

	swapPayload := cell.BeginCell().
		MustStoreUInt(opSwap, 32).
		MustStoreAddr(routerAskWallet).
		MustStoreCoins(q.MinAskUnits).
		MustStoreAddr(sc.Address).
		MustStoreBoolBit(false). // no referral
		EndCell()

	body := cell.BeginCell().
		MustStoreUInt(opJettonTransfer, 32).
		MustStoreUInt(uint64(time.Now().UnixNano()), 64). // query id
		MustStoreCoins(q.OfferUnits).
		MustStoreAddr(router).
		MustStoreAddr(sc.Address). // response destination for excess gas
		MustStoreBoolBit(false).   // no custom payload
		MustStoreCoins(swapForwardAmount).
		MustStoreBoolBit(true).
		MustStoreRef(swapPayload).
		EndCell()

	return body, ownWallet, nil
}
