package transaction

import (
	"crypto/ed25519"
	"fmt"

	"github.com/stargazerlabs/tonstars/internal/logger"
	"github.com/stargazerlabs/tonstars/internal/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// BuildEnvelope assembles and signs an external message carrying the given
// transfers. The wallet's deployment payload is attached only at sequence
// number 0, the first transaction a fresh wallet ever sends. Validation
// failures happen before any cryptography or network activity.
func BuildEnvelope(sc *wallet.SigningContext, msgs []OutboundMessage, seqno uint64, validUntil int64) (*Envelope, error) {
	if sc == nil || len(sc.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing context is missing key material")
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("envelope requires at least one message")
	}
	if len(msgs) > MaxMessagesPerEnvelope {
		return nil, fmt.Errorf("envelope holds at most %d messages, got %d", MaxMessagesPerEnvelope, len(msgs))
	}

	body := cell.BeginCell().
		MustStoreUInt(wallet.DefaultSubwallet, 32).
		MustStoreUInt(uint64(validUntil), 32).
		MustStoreUInt(seqno, 32).
		MustStoreUInt(walletOpTransfer, 8)

	for i, msg := range msgs {
		inner, err := buildInternalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %v", i, err)
		}
		body.MustStoreUInt(sendMode, 8)
		body.MustStoreRef(inner)
	}

	toSign := body.EndCell()
	signature := ed25519.Sign(sc.PrivateKey, toSign.Hash())

	signedBody := cell.BeginCell().
		MustStoreSlice(signature, 512).
		MustStoreBuilder(toSign.ToBuilder()).
		EndCell()

	ext := cell.BeginCell().
		MustStoreUInt(0b10, 2). // ext_in_msg_info
		MustStoreUInt(0, 2).    // src: addr_none
		MustStoreAddr(sc.Address).
		MustStoreCoins(0) // import fee

	if seqno == 0 {
		// first-ever transaction deploys the wallet contract
		ext.MustStoreBoolBit(true).
			MustStoreBoolBit(true).
			MustStoreRef(sc.StateInit)
		logger.Infof("attaching deployment payload for fresh wallet %s", sc.Address.String())
	} else {
		ext.MustStoreBoolBit(false)
	}

	ext.MustStoreBoolBit(true).MustStoreRef(signedBody)

	return &Envelope{cell: ext.EndCell()}, nil
}

// buildInternalMessage lays out one transfer: destination, amount and the
// optional payload carried as a reference cell.
func buildInternalMessage(msg OutboundMessage) (*cell.Cell, error) {
	if msg.Dest == nil {
		return nil, fmt.Errorf("destination address is required")
	}
	if msg.Amount == 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	b := cell.BeginCell().
		MustStoreUInt(0, 1). // int_msg_info
		MustStoreBoolBit(true). // ihr disabled
		MustStoreBoolBit(msg.Bounce).
		MustStoreBoolBit(false). // not bounced
		MustStoreUInt(0, 2).     // src: addr_none, filled in by the wallet
		MustStoreAddr(msg.Dest).
		MustStoreCoins(msg.Amount).
		MustStoreUInt(0, 1+4+4+64+32). // no extra currencies, fees and timestamps set on-chain
		MustStoreBoolBit(false)        // no state init

	if msg.Payload != nil {
		b.MustStoreBoolBit(true).MustStoreRef(msg.Payload)
	} else {
		b.MustStoreBoolBit(false)
	}

	return b.EndCell(), nil
}

// Verify checks the envelope body signature against the wallet public key.
func Verify(sc *wallet.SigningContext, env *Envelope) (bool, error) {
	slice := env.cell.BeginParse()

	// skip the external message header down to the body reference
	if _, err := slice.LoadUInt(2); err != nil {
		return false, err
	}
	if _, err := slice.LoadUInt(2); err != nil {
		return false, err
	}
	if _, err := slice.LoadAddr(); err != nil {
		return false, err
	}
	if _, err := slice.LoadCoins(); err != nil {
		return false, err
	}

	hasInit, err := slice.LoadBoolBit()
	if err != nil {
		return false, err
	}
	if hasInit {
		if _, err := slice.LoadBoolBit(); err != nil {
			return false, err
		}
		if _, err := slice.LoadRef(); err != nil {
			return false, err
		}
	}

	if _, err := slice.LoadBoolBit(); err != nil {
		return false, err
	}
	bodyRef, err := slice.LoadRef()
	if err != nil {
		return false, err
	}

	signature, err := bodyRef.LoadSlice(512)
	if err != nil {
		return false, err
	}

	rest, err := bodyRef.ToCell()
	if err != nil {
		return false, err
	}

	return ed25519.Verify(sc.PublicKey, rest.Hash(), signature), nil
}
