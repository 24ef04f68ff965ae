package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"

	"github.com/stargazerlabs/tonstars/internal/chain"
	"github.com/stargazerlabs/tonstars/internal/wallet"
)

const testMnemonic = "abandon ability able about above absent absorb yard absurd abuse access accident account accuse achieve acid acoustic acquire across act action actor actress actual"

func testAddr(tail byte) *address.Address {
	data := make([]byte, 32)
	data[31] = tail
	return address.NewAddress(0, 0, data)
}

type fakeRPC struct {
	mu          sync.Mutex
	walletCalls []string // master addresses passed to TokenWalletAddress
	seqno       uint64
	sendRaw     string
	sent        []string
}

func (f *fakeRPC) TokenWalletAddress(ctx context.Context, master, owner string) (*address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walletCalls = append(f.walletCalls, master)
	return testAddr(byte(len(f.walletCalls))), nil
}

func (f *fakeRPC) Seqno(ctx context.Context, addr string) (uint64, error) {
	return f.seqno, nil
}

func (f *fakeRPC) SendBoc(ctx context.Context, bocBase64 string) (*chain.BroadcastResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, bocBase64)
	return &chain.BroadcastResponse{Raw: json.RawMessage(f.sendRaw)}, nil
}

// simulateServer answers the simulate endpoint with min_ask values taken from
// the sequence, one per call, repeating the last.
func simulateServer(t *testing.T, minAsks ...uint64) *httptest.Server {
	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/swap/simulate", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("offer_address"))
		assert.NotEmpty(t, r.URL.Query().Get("units"))

		minAsk := minAsks[call]
		if call < len(minAsks)-1 {
			call++
		}
		fmt.Fprintf(w, `{"offer_units": "%s", "ask_units": "900000000", "min_ask_units": "%d", "router_address": "%s"}`,
			r.URL.Query().Get("units"), minAsk, testAddr(0xee).String())
	}))
}

func newTestEngine(apiBase string, rpc *fakeRPC) *Engine {
	return NewEngine(apiBase, "offer-master", "ask-address", "0.01", rpc, time.Second)
}

func TestQuoteParsesSimulation(t *testing.T) {
	srv := simulateServer(t, 890000000)
	defer srv.Close()

	e := newTestEngine(srv.URL, &fakeRPC{})
	q, err := e.Quote(context.Background(), 960000)
	require.NoError(t, err)

	assert.Equal(t, uint64(960000), q.OfferUnits)
	assert.Equal(t, uint64(900000000), q.AskUnits)
	assert.Equal(t, uint64(890000000), q.MinAskUnits)
	assert.Equal(t, testAddr(0xee).String(), q.Router)
}

func TestQuoteRejectsInvertedSimulation(t *testing.T) {
	_, err := quoteFromSimulation(&simulateResponse{
		AskUnits:      "100",
		MinAskUnits:   "200",
		RouterAddress: "router",
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted")
}

func TestQuoteRejectsMissingRouter(t *testing.T) {
	_, err := quoteFromSimulation(&simulateResponse{
		AskUnits:    "200",
		MinAskUnits: "100",
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "router")
}

func TestExecuteAbortsOnSlippage(t *testing.T) {
	// the live route re-simulates worse than the held quote
	srv := simulateServer(t, 880000000)
	defer srv.Close()

	rpc := &fakeRPC{}
	e := newTestEngine(srv.URL, rpc)

	sc, err := wallet.Derive(testMnemonic)
	require.NoError(t, err)

	held := &Quote{OfferUnits: 960000, AskUnits: 900000000, MinAskUnits: 890000000, Router: testAddr(0xee).String()}
	_, err = e.Execute(context.Background(), sc, held)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	// aborted before anything was built or sent
	assert.Empty(t, rpc.walletCalls)
	assert.Empty(t, rpc.sent)
}

func TestExecuteBroadcastsSwapTransfer(t *testing.T) {
	srv := simulateServer(t, 890000000)
	defer srv.Close()

	rpc := &fakeRPC{seqno: 5, sendRaw: `"3a94f1c08be76d5210f44aa39cbd02ee13857ac2f09b8e6641d20c75a1b3f4d8"`}
	e := newTestEngine(srv.URL, rpc)

	sc, err := wallet.Derive(testMnemonic)
	require.NoError(t, err)

	held := &Quote{OfferUnits: 960000, AskUnits: 900000000, MinAskUnits: 890000000, Router: testAddr(0xee).String()}
	res, err := e.Execute(context.Background(), sc, held)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.TxRef)
	require.Len(t, rpc.sent, 1)

	// own token wallet plus the router's ask-side wallet get resolved
	require.Len(t, rpc.walletCalls, 2)
	assert.Equal(t, "offer-master", rpc.walletCalls[0])
	assert.Equal(t, "ask-address", rpc.walletCalls[1])
}

func TestExecuteToleratesBetterLiveQuote(t *testing.T) {
	// a live minimum above the held one is acceptable
	srv := simulateServer(t, 895000000)
	defer srv.Close()

	rpc := &fakeRPC{seqno: 0, sendRaw: `"3a94f1c08be76d5210f44aa39cbd02ee13857ac2f09b8e6641d20c75a1b3f4d8"`}
	e := newTestEngine(srv.URL, rpc)

	sc, err := wallet.Derive(testMnemonic)
	require.NoError(t, err)

	held := &Quote{OfferUnits: 960000, AskUnits: 900000000, MinAskUnits: 890000000, Router: testAddr(0xee).String()}
	res, err := e.Execute(context.Background(), sc, held)
	require.NoError(t, err)
	assert.True(t, res.Success)
}
