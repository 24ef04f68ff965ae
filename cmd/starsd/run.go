package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/stargazerlabs/tonstars/internal/chain"
	"github.com/stargazerlabs/tonstars/internal/config"
	purchasedb "github.com/stargazerlabs/tonstars/internal/database"
	"github.com/stargazerlabs/tonstars/internal/fragment"
	"github.com/stargazerlabs/tonstars/internal/proxy"
	"github.com/stargazerlabs/tonstars/internal/purchase"
	"github.com/stargazerlabs/tonstars/internal/swap"
	"github.com/stargazerlabs/tonstars/internal/wallet"
)

// sqliteStore adapts the database package to the orchestrator's Store contract.
type sqliteStore struct{}

func (sqliteStore) SavePurchase(record *purchasedb.PurchaseRecord) error {
	return purchasedb.SavePurchase(record)
}

func (sqliteStore) UpdatePurchase(record *purchasedb.PurchaseRecord) error {
	return purchasedb.UpdatePurchase(record)
}

// pTONAddress is the venue's native-coin proxy asset.
const pTONAddress = "EQCM3B12QK1e4yZSf8GtBRT0aLMNyEsBc_DhVfRRtOEffLez"

func buildOrchestrator() (*purchase.Orchestrator, error) {
	mnemonic := config.Mnemonic()
	if mnemonic == "" {
		return nil, fmt.Errorf("WALLET_MNEMONIC is not set")
	}

	timeout := viper.GetDuration("http_timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rpc := chain.NewClient(viper.GetString("toncenter_url"), config.ToncenterAPIKey(), timeout)
	pool := proxy.NewPool(viper.GetStringSlice("proxies"))
	market := fragment.NewClient(viper.GetString("fragment_url"), pool, timeout)
	engine := swap.NewEngine(
		viper.GetString("stonfi_url"),
		viper.GetString("usdt_master"),
		pTONAddress,
		viper.GetString("slippage_tolerance"),
		rpc,
		timeout,
	)

	o := purchase.New(market, rpc, engine, sqliteStore{}, purchase.LogNotifier{}, mnemonic, viper.GetString("usdt_master"))
	o.MinQuantity = viper.GetInt64("min_stars")
	o.MaxQuantity = viper.GetInt64("max_stars")
	o.FeeReserve = viper.GetUint64("fee_reserve")
	o.StarPriceToken = viper.GetUint64("star_price_token")
	o.SwapReservePercent = viper.GetUint64("swap_reserve_percent")

	return o, nil
}

func runBuy(recipient string, quantity int64, isTest bool) error {
	o, err := buildOrchestrator()
	if err != nil {
		return err
	}

	result, err := o.Purchase(contextForRun(), 0, recipient, quantity, isTest)
	if err != nil {
		return err
	}

	fmt.Printf("Purchase completed. Request id: %s\n", result.RequestID)
	if result.TxRef != "" {
		fmt.Printf("Transaction reference: %s\n", result.TxRef)
	} else {
		fmt.Println("No transaction reference captured; flagged for manual follow-up.")
	}

	return nil
}

func runBalance() error {
	mnemonic := config.Mnemonic()
	if mnemonic == "" {
		return fmt.Errorf("WALLET_MNEMONIC is not set")
	}

	sc, err := wallet.Derive(mnemonic)
	if err != nil {
		return err
	}

	rpc := chain.NewClient(viper.GetString("toncenter_url"), config.ToncenterAPIKey(), viper.GetDuration("http_timeout"))
	balances := rpc.GetBalances(contextForRun(), sc.Address.String(), viper.GetString("usdt_master"))

	fmt.Printf("Wallet:  %s\n", sc.Address.String())
	fmt.Printf("Native:  %d (minor units)\n", balances.Native)
	fmt.Printf("Token:   %d (minor units)\n", balances.Token)

	return nil
}

func runAddress() error {
	mnemonic := config.Mnemonic()
	if mnemonic == "" {
		return fmt.Errorf("WALLET_MNEMONIC is not set")
	}

	sc, err := wallet.Derive(mnemonic)
	if err != nil {
		return err
	}

	fmt.Println(sc.Address.String())
	return nil
}

func runHistory(count int) error {
	records, err := purchasedb.RecentPurchases(count)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No purchases recorded yet.")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-9s  %6d stars -> %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.Quantity, r.Recipient)
		if r.TxRef != "" {
			line += "  tx=" + r.TxRef
		}
		if r.NeedsReview {
			line += "  [needs review]"
		}
		if r.ErrorDetail != "" {
			line += "  error=" + r.ErrorDetail
		}
		fmt.Println(line)
	}

	return nil
}
