package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stargazerlabs/tonstars/internal/config"
	purchasedb "github.com/stargazerlabs/tonstars/internal/database"
	"github.com/stargazerlabs/tonstars/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "starsd",
	Short: "Stars purchase CLI",
	Long:  `Buys marketplace stars through an on-chain wallet, with both interactive and CLI modes.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() {
	err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := logger.Init(viper.GetString("log_file")); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}

	if err := purchasedb.InitSQLiteDB(viper.GetString("purchase_db_path")); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
}

func main() {
	initConfig()
	defer logger.Cleanup()

	if len(os.Args) > 1 {
		// CLI mode
		if err := rootCmd.Execute(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	} else {
		// Interactive mode
		interactiveMode()
	}
}

func interactiveMode() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nStars Purchase Manager")
		fmt.Println("1. Buy stars")
		fmt.Println("2. Show wallet balances")
		fmt.Println("3. Show wallet address")
		fmt.Println("4. Show purchase history")
		fmt.Println("5. Exit")
		fmt.Print("\nEnter your choice (1, 2, 3, 4, or 5): ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		switch choice {
		case "1":
			fmt.Print("Recipient handle: ")
			recipient, _ := reader.ReadString('\n')
			fmt.Print("Quantity: ")
			qtyStr, _ := reader.ReadString('\n')
			qty, err := strconv.ParseInt(strings.TrimSpace(qtyStr), 10, 64)
			if err != nil {
				fmt.Println("Invalid quantity. Please try again.")
				continue
			}
			if err := runBuy(strings.TrimSpace(recipient), qty, false); err != nil {
				log.Printf("Error buying stars: %s", err)
			}
		case "2":
			if err := runBalance(); err != nil {
				log.Printf("Error reading balances: %s", err)
			}
		case "3":
			if err := runAddress(); err != nil {
				log.Printf("Error deriving address: %s", err)
			}
		case "4":
			if err := runHistory(10); err != nil {
				log.Printf("Error reading history: %s", err)
			}
		case "5":
			fmt.Println("Exiting program. Goodbye!")
			return
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

var buyCmd = &cobra.Command{
	Use:   "buy [recipient] [quantity]",
	Short: "Buy stars for a recipient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %v", args[1], err)
		}
		test, _ := cmd.Flags().GetBool("test")
		return runBuy(args[0], qty, test)
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show wallet balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBalance()
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the wallet address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAddress()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [count]",
	Short: "Show recent purchase attempts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := 10
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid count %q: %v", args[0], err)
			}
			count = n
		}
		return runHistory(count)
	},
}

func init() {
	buyCmd.Flags().Bool("test", false, "run as a test purchase")
}

func contextForRun() context.Context {
	return context.Background()
}
