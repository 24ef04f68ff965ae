package transaction

import (
	"encoding/base64"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	// MaxMessagesPerEnvelope is the wallet v4 limit on outbound messages in
	// one external message.
	MaxMessagesPerEnvelope = 4

	// sendMode pays fees from the wallet balance and ignores per-message
	// action errors so one bad message cannot wedge the seqno.
	sendMode = 3

	// walletOpTransfer is the v4 body opcode for a plain signed transfer.
	walletOpTransfer = 0
)

// OutboundMessage is one value transfer carried by a signed envelope.
type OutboundMessage struct {
	Dest    *address.Address
	Amount  uint64 // minor units (nanotons)
	Payload *cell.Cell
	Bounce  bool
}

// Envelope is a fully signed external message ready for broadcast.
type Envelope struct {
	cell *cell.Cell
}

// Hash returns the representation hash of the signed envelope.
func (e *Envelope) Hash() []byte {
	return e.cell.Hash()
}

// Bytes returns the serialized bag of cells.
func (e *Envelope) Bytes() []byte {
	return e.cell.ToBOC()
}

// Base64 returns the serialized envelope in the form the indexer accepts.
func (e *Envelope) Base64() string {
	return base64.StdEncoding.EncodeToString(e.cell.ToBOC())
}

// Cell exposes the underlying cell, mainly for tests that pick the
// envelope apart.
func (e *Envelope) Cell() *cell.Cell {
	return e.cell
}

// DecodePayload parses an optional base64-encoded payload cell. An empty
// string means no payload.
func DecodePayload(b64 string) (*cell.Cell, error) {
	if b64 == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}

	return cell.FromBOC(raw)
}
