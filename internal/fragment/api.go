package fragment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/stargazerlabs/tonstars/internal/logger"
)

// InitSession loads the stars landing page to collect the session cookies and
// the initial api hash.
func (c *Client) InitSession(ctx context.Context) error {
	if err := c.getPage(ctx, "/stars/buy"); err != nil {
		return fmt.Errorf("failed to establish marketplace session: %v", err)
	}

	if c.Hash() == "" {
		return fmt.Errorf("marketplace session established but no api hash found")
	}

	logger.Info("marketplace session established")
	return nil
}

// CheckSessionValid asks the marketplace for the current buy state; a valid
// session answers ok.
func (c *Client) CheckSessionValid(ctx context.Context) (bool, error) {
	fields := url.Values{}
	fields.Set("mode", "new")
	fields.Set("dh", "1")

	body, err := c.postAPI(ctx, "updateStarsBuyState", fields)
	if err != nil {
		return false, err
	}

	var resp stateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("malformed buy state response: %v", err)
	}

	if resp.Error != "" {
		logger.Errorf("session check rejected: %s", resp.Error)
		return false, nil
	}

	return resp.OK, nil
}

// LookupRecipient resolves a handle to a marketplace recipient id.
func (c *Client) LookupRecipient(ctx context.Context, handle string, quantity int64) (*Recipient, error) {
	fields := url.Values{}
	fields.Set("query", handle)
	fields.Set("quantity", strconv.FormatInt(quantity, 10))

	body, err := c.postAPI(ctx, "searchStarsRecipient", fields)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed recipient response: %v", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("recipient lookup failed: %s", resp.Error)
	}
	if resp.Found == nil || resp.Found.ID == "" {
		return nil, fmt.Errorf("recipient %q not found", handle)
	}

	return resp.Found, nil
}

// RefreshPricing re-primes the marketplace pricing state for the given
// quantity. The marketplace requires this before granting a buy slot.
func (c *Client) RefreshPricing(ctx context.Context, quantity int64) error {
	fields := url.Values{}
	fields.Set("stars", strconv.FormatInt(quantity, 10))
	fields.Set("quantity", strconv.FormatInt(quantity, 10))

	body, err := c.postAPI(ctx, "updateStarsPrices", fields)
	if err != nil {
		return err
	}

	var resp stateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("malformed pricing response: %v", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("pricing refresh failed: %s", resp.Error)
	}

	return nil
}

// RequestBuySlot asks the marketplace to reserve a purchase for the recipient
// and quantity, returning the slot id and the required payment amount.
func (c *Client) RequestBuySlot(ctx context.Context, recipientID string, quantity int64) (*BuySlot, error) {
	fields := url.Values{}
	fields.Set("recipient", recipientID)
	fields.Set("quantity", strconv.FormatInt(quantity, 10))

	body, err := c.postAPI(ctx, "initBuyStarsRequest", fields)
	if err != nil {
		return nil, err
	}

	var resp initBuyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed buy slot response: %v", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("buy slot request failed: %s", resp.Error)
	}
	if resp.ReqID == "" {
		return nil, fmt.Errorf("buy slot request returned no request id")
	}

	return &BuySlot{ID: resp.ReqID, Amount: resp.Amount.String()}, nil
}

// PaymentInstructions fetches the transfer messages (destination, amount,
// payload) the marketplace expects for a granted buy slot.
func (c *Client) PaymentInstructions(ctx context.Context, slotID string) ([]TransferInstruction, error) {
	fields := url.Values{}
	fields.Set("transaction", "1")
	fields.Set("id", slotID)
	fields.Set("show_sender", "0")

	body, err := c.postAPI(ctx, "getBuyStarsLink", fields)
	if err != nil {
		return nil, err
	}

	var resp buyLinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed payment instructions: %v", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("payment instructions failed: %s", resp.Error)
	}
	if len(resp.Transaction.Messages) == 0 {
		return nil, fmt.Errorf("payment instructions carried no messages")
	}

	return resp.Transaction.Messages, nil
}

// ConfirmSlot reports the signed payment back to the marketplace. Only a
// confirmed answer counts as a completed purchase.
func (c *Client) ConfirmSlot(ctx context.Context, slotID, signedBoc, walletAddr string) (bool, error) {
	account, err := json.Marshal(map[string]string{"address": walletAddr})
	if err != nil {
		return false, err
	}

	fields := url.Values{}
	fields.Set("id", slotID)
	fields.Set("boc", signedBoc)
	fields.Set("account", string(account))

	body, err := c.postAPI(ctx, "confirmReq", fields)
	if err != nil {
		return false, err
	}

	var resp confirmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("malformed confirmation response: %v", err)
	}

	if resp.Error != "" {
		logger.Errorf("confirmation rejected: %s", resp.Error)
		return false, nil
	}

	return resp.OK && resp.Confirmed, nil
}
