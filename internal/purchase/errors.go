package purchase

import "errors"

// Purchase error taxonomy. Each failure mode gets a sentinel so callers and
// notifications can react without string matching.
var (
	// ErrQueueBusy rejects a purchase while another is in flight. The caller
	// may retry later; nothing was persisted.
	ErrQueueBusy = errors.New("another purchase is already in progress")

	// ErrInvalidAmount rejects a quantity outside the allowed bounds before
	// any side effect.
	ErrInvalidAmount = errors.New("requested quantity is out of bounds")

	// ErrInvalidBuyAmount rejects a malformed or non-positive payment amount
	// from the marketplace.
	ErrInvalidBuyAmount = errors.New("marketplace returned an unusable payment amount")

	// ErrInsufficientToken stops the purchase when the token balance is
	// nonzero but short. There is no silent fallback to native funds.
	ErrInsufficientToken = errors.New("token balance below the swap requirement")

	// ErrInsufficientFunds stops the purchase when no funding path covers the
	// required total.
	ErrInsufficientFunds = errors.New("native balance below the required total")

	// ErrQuoteSlippageExceeded aborts a swap whose live rate no longer meets
	// the quoted minimum.
	ErrQuoteSlippageExceeded = errors.New("swap quote no longer meets its minimum")

	// ErrSigningFailure marks a local signing problem. Never retried blindly:
	// re-signing with a stale sequence number can double-spend.
	ErrSigningFailure = errors.New("failed to sign the transaction")

	// ErrBroadcastFailed marks an unreachable RPC before anything was sent.
	ErrBroadcastFailed = errors.New("failed to submit the transaction")

	// ErrConfirmationFailed is the terminal failure when the marketplace does
	// not acknowledge the payment.
	ErrConfirmationFailed = errors.New("marketplace did not confirm the purchase")
)

// errorKind maps an error to the notification kind string.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrQueueBusy):
		return "queue_busy"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidBuyAmount):
		return "invalid_buy_amount"
	case errors.Is(err, ErrInsufficientToken):
		return "insufficient_token"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrQuoteSlippageExceeded):
		return "quote_slippage"
	case errors.Is(err, ErrSigningFailure):
		return "signing_failure"
	case errors.Is(err, ErrBroadcastFailed):
		return "broadcast_failed"
	case errors.Is(err, ErrConfirmationFailed):
		return "confirmation_failed"
	default:
		return "internal_error"
	}
}
