package fragment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srvURL string) *Client {
	return NewClient(srvURL, nil, time.Second)
}

func TestInitSessionCapturesCookiesAndHash(t *testing.T) {
	var gotCookie string

	mux := http.NewServeMux()
	mux.HandleFunc("/stars/buy", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "stel_ssid", Value: "abc123"})
		fmt.Fprint(w, `<html><script>var apiUrl = "/api?hash=deadbeef1234";</script></html>`)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		assert.Equal(t, "deadbeef1234", r.URL.Query().Get("hash"))
		fmt.Fprint(w, `{"ok": true, "state": {}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.InitSession(context.Background()))
	assert.Equal(t, "deadbeef1234", c.Hash())

	valid, err := c.CheckSessionValid(context.Background())
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Contains(t, gotCookie, "stel_ssid=abc123")
}

func TestHashRotationFromAnyResponse(t *testing.T) {
	calls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/stars/buy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/api?hash=aaaa1111">x</a>`)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// session rotated: the error page carries the fresh hash
			fmt.Fprint(w, `<html>expired, use /api?hash=bbbb2222 now</html>`)
			return
		}
		assert.Equal(t, "bbbb2222", r.URL.Query().Get("hash"))
		fmt.Fprint(w, `{"ok": true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.InitSession(context.Background()))
	assert.Equal(t, "aaaa1111", c.Hash())

	// first call gets the HTML "expired" body, which is not valid JSON but
	// still rotates the hash for the next call
	_, err := c.CheckSessionValid(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "bbbb2222", c.Hash())

	err = c.RefreshPricing(context.Background(), 100)
	require.NoError(t, err)
}

func TestLookupRecipient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "searchStarsRecipient", r.PostForm.Get("method"))
		assert.Equal(t, "alice", r.PostForm.Get("query"))
		fmt.Fprint(w, `{"ok": true, "found": {"recipient": "rcpt-1", "name": "Alice"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	rcpt, err := c.LookupRecipient(context.Background(), "alice", 50)
	require.NoError(t, err)
	assert.Equal(t, "rcpt-1", rcpt.ID)
	assert.Equal(t, "Alice", rcpt.Name)
}

func TestLookupRecipientNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "No recipient found"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.LookupRecipient(context.Background(), "nobody", 50)
	assert.Error(t, err)
}

func TestRequestBuySlot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "initBuyStarsRequest", r.PostForm.Get("method"))
		assert.Equal(t, "rcpt-1", r.PostForm.Get("recipient"))
		assert.Equal(t, "50", r.PostForm.Get("quantity"))
		fmt.Fprint(w, `{"ok": true, "req_id": "req-77", "amount": "0.4418"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	slot, err := c.RequestBuySlot(context.Background(), "rcpt-1", 50)
	require.NoError(t, err)
	assert.Equal(t, "req-77", slot.ID)
	assert.Equal(t, "0.4418", slot.Amount)
}

func TestPaymentInstructions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "getBuyStarsLink", r.PostForm.Get("method"))
		assert.Equal(t, "req-77", r.PostForm.Get("id"))
		fmt.Fprint(w, `{"ok": true, "transaction": {"messages": [{"address": "EQtest", "amount": 441800000, "payload": "cGF5"}]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	msgs, err := c.PaymentInstructions(context.Background(), "req-77")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "EQtest", msgs[0].Address)
	assert.Equal(t, "441800000", msgs[0].Amount.String())
	assert.Equal(t, "cGF5", msgs[0].Payload)
}

func TestConfirmSlot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "confirmReq", r.PostForm.Get("method"))
		assert.Equal(t, "req-77", r.PostForm.Get("id"))
		assert.NotEmpty(t, r.PostForm.Get("boc"))
		fmt.Fprint(w, `{"ok": true, "confirmed": true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	confirmed, err := c.ConfirmSlot(context.Background(), "req-77", "dGVzdA==", "EQwallet")
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestConfirmSlotRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "confirmed": false}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	confirmed, err := c.ConfirmSlot(context.Background(), "req-77", "dGVzdA==", "EQwallet")
	require.NoError(t, err)
	assert.False(t, confirmed)
}
