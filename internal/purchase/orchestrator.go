package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stargazerlabs/tonstars/internal/chain"
	purchasedb "github.com/stargazerlabs/tonstars/internal/database"
	"github.com/stargazerlabs/tonstars/internal/fragment"
	"github.com/stargazerlabs/tonstars/internal/logger"
	"github.com/stargazerlabs/tonstars/internal/swap"
	"github.com/stargazerlabs/tonstars/internal/wallet"
	"github.com/stargazerlabs/tonstars/lib/transaction"
	"github.com/xssnick/tonutils-go/address"
)

const (
	buySlotAttempts = 3
	envelopeTTL     = 120 * time.Second
)

// Marketplace is the session client surface the orchestrator drives.
type Marketplace interface {
	InitSession(ctx context.Context) error
	CheckSessionValid(ctx context.Context) (bool, error)
	LookupRecipient(ctx context.Context, handle string, quantity int64) (*fragment.Recipient, error)
	RefreshPricing(ctx context.Context, quantity int64) error
	RequestBuySlot(ctx context.Context, recipientID string, quantity int64) (*fragment.BuySlot, error)
	PaymentInstructions(ctx context.Context, slotID string) ([]fragment.TransferInstruction, error)
	ConfirmSlot(ctx context.Context, slotID, signedBoc, walletAddr string) (bool, error)
}

// Chain is the indexer surface the orchestrator needs.
type Chain interface {
	GetBalances(ctx context.Context, addr, tokenMaster string) chain.Balances
	Seqno(ctx context.Context, addr string) (uint64, error)
	SendBoc(ctx context.Context, bocBase64 string) (*chain.BroadcastResponse, error)
}

// Swapper converts token holdings to native coin.
type Swapper interface {
	Quote(ctx context.Context, offerUnits uint64) (*swap.Quote, error)
	Execute(ctx context.Context, sc *wallet.SigningContext, q *swap.Quote) (*swap.Result, error)
}

// Store persists the purchase audit trail.
type Store interface {
	SavePurchase(record *purchasedb.PurchaseRecord) error
	UpdatePurchase(record *purchasedb.PurchaseRecord) error
}

// Result is the successful outcome of a purchase.
type Result struct {
	RequestID string
	TxRef     string
	Record    *purchasedb.PurchaseRecord
}

// Orchestrator runs one purchase end to end: session, buy slot, funding,
// signing, broadcast, confirmation, audit record.
type Orchestrator struct {
	Market Marketplace
	Chain  Chain
	Swap   Swapper
	Store  Store
	Notify Notifier

	Mnemonic    string
	TokenMaster string

	MinQuantity int64
	MaxQuantity int64

	FeeReserve         uint64 // nanotons kept aside for gas
	StarPriceToken     uint64 // token minor units per star
	SwapReservePercent uint64 // extra token swapped on top of the requirement

	SettleDelay     time.Duration // wait after broadcast before confirming
	SwapSettleDelay time.Duration // wait after a swap before paying
	RetryDelay      time.Duration // stagger between buy slot attempts

	guard Guard
}

// New creates an orchestrator with the standard timing parameters. Delays are
// exported so tests can zero them.
func New(market Marketplace, ch Chain, swapper Swapper, store Store, notify Notifier, mnemonic, tokenMaster string) *Orchestrator {
	return &Orchestrator{
		Market:             market,
		Chain:              ch,
		Swap:               swapper,
		Store:              store,
		Notify:             notify,
		Mnemonic:           mnemonic,
		TokenMaster:        tokenMaster,
		MinQuantity:        50,
		MaxQuantity:        1000000,
		FeeReserve:         100000000,
		StarPriceToken:     16000,
		SwapReservePercent: 20,
		SettleDelay:        3 * time.Second,
		SwapSettleDelay:    2 * time.Second,
		RetryDelay:         500 * time.Millisecond,
	}
}

// Purchase executes one stars purchase. It is single-flight: a second call
// while one is running returns ErrQueueBusy without touching the database.
func (o *Orchestrator) Purchase(ctx context.Context, requesterID int64, recipient string, quantity int64, isTest bool) (*Result, error) {
	if quantity < o.MinQuantity || quantity > o.MaxQuantity {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidAmount, quantity, o.MinQuantity, o.MaxQuantity)
	}

	release, ok := o.guard.TryAcquire()
	if !ok {
		return nil, ErrQueueBusy
	}
	defer release()

	record := &purchasedb.PurchaseRecord{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Recipient:   recipient,
		Quantity:    quantity,
		Status:      purchasedb.StatusPending,
		IsTest:      isTest,
	}
	if err := o.Store.SavePurchase(record); err != nil {
		return nil, fmt.Errorf("failed to create purchase record: %v", err)
	}

	logger.Infof("purchase %s started: %d stars for %s", record.ID, quantity, recipient)

	err := o.execute(ctx, record)

	// Terminal step: the record update and the user notification happen
	// together, whatever happened above.
	if err != nil {
		record.Status = purchasedb.StatusFailed
		record.ErrorDetail = err.Error()
		if uerr := o.Store.UpdatePurchase(record); uerr != nil {
			logger.Errorf("failed to persist failed purchase %s: %v", record.ID, uerr)
		}
		o.Notify.OnError(errorKind(err), err.Error())
		return nil, err
	}

	record.Status = purchasedb.StatusCompleted
	if uerr := o.Store.UpdatePurchase(record); uerr != nil {
		logger.Errorf("failed to persist completed purchase %s: %v", record.ID, uerr)
	}
	o.Notify.OnSuccess(record)

	return &Result{RequestID: record.RequestID, TxRef: record.TxRef, Record: record}, nil
}

// execute runs the purchase pipeline, mutating the record in memory. The
// caller owns the terminal persistence step.
func (o *Orchestrator) execute(ctx context.Context, record *purchasedb.PurchaseRecord) error {
	if err := o.Market.InitSession(ctx); err != nil {
		return err
	}

	valid, err := o.Market.CheckSessionValid(ctx)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("marketplace session is not valid")
	}

	rcpt, err := o.Market.LookupRecipient(ctx, record.Recipient, record.Quantity)
	if err != nil {
		return err
	}

	if err := o.Market.RefreshPricing(ctx, record.Quantity); err != nil {
		return err
	}

	slot, err := o.requestSlotWithRetry(ctx, rcpt.ID, record.Quantity)
	if err != nil {
		return err
	}
	record.RequestID = slot.ID
	logger.Infof("buy slot %s granted, amount %s", slot.ID, slot.Amount)

	required, err := NormalizeBuyAmount(slot.Amount)
	if err != nil {
		return err
	}
	requiredTotal := required + o.FeeReserve

	sc, err := wallet.Derive(o.Mnemonic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	if err := o.ensureFunding(ctx, sc, record.Quantity, requiredTotal); err != nil {
		return err
	}

	txRef, err := o.pay(ctx, sc, slot.ID)
	if err != nil {
		return err
	}

	if transaction.LooksLikeTxRef(txRef) {
		record.TxRef = txRef
	} else {
		record.NeedsReview = true
		logger.Errorf("purchase %s completed without a usable tx reference", record.ID)
	}

	return nil
}

// requestSlotWithRetry races up to three buy slot attempts. Each retry
// re-refreshes pricing and staggers by the retry delay. The first success
// wins; attempts still in flight are ignored, not cancelled. When every
// attempt fails the last error propagates.
func (o *Orchestrator) requestSlotWithRetry(ctx context.Context, recipientID string, quantity int64) (*fragment.BuySlot, error) {
	type attemptResult struct {
		slot *fragment.BuySlot
		err  error
	}

	results := make(chan attemptResult, buySlotAttempts)
	launched := 0
	received := 0
	var lastErr error

	launch := func() {
		launched++
		go func() {
			slot, err := o.Market.RequestBuySlot(ctx, recipientID, quantity)
			results <- attemptResult{slot: slot, err: err}
		}()
	}

	launch()
	for i := 1; i < buySlotAttempts; i++ {
		// take any result that already arrived before paying for a retry
		settled := false
		for received < launched && !settled {
			select {
			case r := <-results:
				received++
				if r.err == nil {
					return r.slot, nil
				}
				lastErr = r.err
				logger.Errorf("buy slot attempt failed: %v", r.err)
			default:
				settled = true
			}
		}

		if err := o.Market.RefreshPricing(ctx, quantity); err != nil {
			logger.Errorf("pricing refresh before retry failed: %v", err)
		}
		time.Sleep(o.RetryDelay)
		launch()
	}

	for received < launched {
		r := <-results
		received++
		if r.err == nil {
			return r.slot, nil
		}
		lastErr = r.err
		logger.Errorf("buy slot attempt failed: %v", r.err)
	}

	return nil, lastErr
}

// ensureFunding decides the funding path and executes a swap when required.
// A nonzero token balance always takes the swap path, even when native funds
// would cover the purchase: spending tokens first keeps the native reserve
// intact for fees. A short token balance is a hard stop, never a silent
// fallback to native payment.
func (o *Orchestrator) ensureFunding(ctx context.Context, sc *wallet.SigningContext, quantity int64, requiredTotal uint64) error {
	balances := o.Chain.GetBalances(ctx, sc.Address.String(), o.TokenMaster)
	logger.Infof("balances: %d native, %d token", balances.Native, balances.Token)

	if balances.Token > 0 {
		requiredToken := uint64(quantity) * o.StarPriceToken
		requiredToken += requiredToken * o.SwapReservePercent / 100

		if balances.Token < requiredToken {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientToken, balances.Token, requiredToken)
		}

		quote, err := o.Swap.Quote(ctx, requiredToken)
		if err != nil {
			return fmt.Errorf("failed to quote swap: %v", err)
		}

		if _, err := o.Swap.Execute(ctx, sc, quote); err != nil {
			if errors.Is(err, swap.ErrSlippageExceeded) {
				return fmt.Errorf("%w: %v", ErrQuoteSlippageExceeded, err)
			}
			return err
		}

		time.Sleep(o.SwapSettleDelay)
		return nil
	}

	if balances.Native < requiredTotal {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balances.Native, requiredTotal)
	}

	return nil
}

// pay signs and broadcasts the marketplace's payment messages, waits for the
// settle delay, then confirms. Confirmation runs even when the broadcast
// answer looked wrong: the network may have accepted the message anyway, and
// abandoning it here would lose a real payment.
func (o *Orchestrator) pay(ctx context.Context, sc *wallet.SigningContext, slotID string) (string, error) {
	instructions, err := o.Market.PaymentInstructions(ctx, slotID)
	if err != nil {
		return "", err
	}

	msgs, err := buildMessages(instructions)
	if err != nil {
		return "", err
	}

	seqno, err := o.Chain.Seqno(ctx, sc.Address.String())
	if err != nil {
		return "", fmt.Errorf("%w: cannot read wallet seqno: %v", ErrBroadcastFailed, err)
	}

	env, err := transaction.BuildEnvelope(sc, msgs, seqno, time.Now().Add(envelopeTTL).Unix())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	txRef, err := transaction.Broadcast(ctx, o.Chain, env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	time.Sleep(o.SettleDelay)

	confirmed, err := o.Market.ConfirmSlot(ctx, slotID, env.Base64(), sc.Address.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfirmationFailed, err)
	}
	if !confirmed {
		return "", ErrConfirmationFailed
	}

	return txRef, nil
}

// buildMessages converts marketplace transfer instructions into outbound
// messages, normalizing each amount and decoding the optional payload cell.
func buildMessages(instructions []fragment.TransferInstruction) ([]transaction.OutboundMessage, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("%w: no payment messages", ErrInvalidBuyAmount)
	}
	if len(instructions) > transaction.MaxMessagesPerEnvelope {
		return nil, fmt.Errorf("%w: %d payment messages exceed the envelope limit", ErrInvalidBuyAmount, len(instructions))
	}

	msgs := make([]transaction.OutboundMessage, 0, len(instructions))
	for i, in := range instructions {
		dest, err := address.ParseAddr(in.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d has a bad destination: %v", ErrInvalidBuyAmount, i, err)
		}

		amount, err := NormalizeBuyAmount(in.Amount.String())
		if err != nil {
			return nil, err
		}

		payload, err := transaction.DecodePayload(in.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d has a bad payload: %v", ErrInvalidBuyAmount, i, err)
		}

		msgs = append(msgs, transaction.OutboundMessage{
			Dest:    dest,
			Amount:  amount,
			Payload: payload,
		})
	}

	return msgs, nil
}
