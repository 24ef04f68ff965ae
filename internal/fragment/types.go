package fragment

import "encoding/json"

// Recipient is a resolved stars recipient on the marketplace.
type Recipient struct {
	ID     string `json:"recipient"`
	Name   string `json:"name"`
	Photo  string `json:"photo"`
}

// BuySlot is a short-lived purchase reservation. Amount is kept as the raw
// string the marketplace sent; the orchestrator normalizes it.
type BuySlot struct {
	ID     string
	Amount string
}

// TransferInstruction is one payment message the marketplace asks the wallet
// to send.
type TransferInstruction struct {
	Address string      `json:"address"`
	Amount  json.Number `json:"amount"`
	Payload string      `json:"payload"` // base64-encoded cell, may be empty
}

type searchResponse struct {
	OK    bool       `json:"ok"`
	Found *Recipient `json:"found"`
	Error string     `json:"error"`
}

type stateResponse struct {
	OK    bool            `json:"ok"`
	State json.RawMessage `json:"state"`
	Error string          `json:"error"`
}

type initBuyResponse struct {
	OK     bool        `json:"ok"`
	ReqID  string      `json:"req_id"`
	Amount json.Number `json:"amount"`
	Error  string      `json:"error"`
}

type buyLinkResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	Transaction struct {
		Messages []TransferInstruction `json:"messages"`
	} `json:"transaction"`
}

type confirmResponse struct {
	OK        bool   `json:"ok"`
	Confirmed bool   `json:"confirmed"`
	Error     string `json:"error"`
}
