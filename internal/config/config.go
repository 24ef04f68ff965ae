package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads the configuration and sets default values for development/production
func LoadConfig() error {
	// Secrets (wallet mnemonic, API keys) live in the environment, not the config file
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create a default one
			return createDefaultConfig()
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	// Ensure we have sensible defaults in case they are not in the config file
	setDefaults()

	return nil
}

// setDefaults sets default configuration values based on the environment
func setDefaults() {
	env := viper.GetString("ENV")
	if env == "" {
		env = "development"
		viper.Set("ENV", env)
	}

	if env == "development" {
		viper.SetDefault("purchase_db_path", "./dev_purchases.db")
		viper.SetDefault("log_level", "debug")
		viper.SetDefault("toncenter_url", "https://testnet.toncenter.com/api/v2")
	} else if env == "production" {
		viper.SetDefault("purchase_db_path", "/var/lib/tonstars/purchases.db")
		viper.SetDefault("log_level", "info")
		viper.SetDefault("toncenter_url", "https://toncenter.com/api/v2")
	}

	// Common defaults for both environments
	viper.SetDefault("log_file", "./tonstars.log")
	viper.SetDefault("fragment_url", "https://fragment.com")
	viper.SetDefault("stonfi_url", "https://api.ston.fi")
	viper.SetDefault("usdt_master", "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs")
	viper.SetDefault("min_stars", 50)
	viper.SetDefault("max_stars", 1000000)
	viper.SetDefault("fee_reserve", 100000000)       // in nanotons, kept aside for gas
	viper.SetDefault("star_price_token", 16000)      // token minor units per star
	viper.SetDefault("swap_reserve_percent", 20)     // extra token swapped on top of the requirement
	viper.SetDefault("slippage_tolerance", "0.01")
	viper.SetDefault("http_timeout", "30s")
	viper.SetDefault("proxies", []string{})
}

// createDefaultConfig creates a new configuration file if it doesn't exist
func createDefaultConfig() error {
	setDefaults()

	err := viper.SafeWriteConfig()
	if err != nil {
		if os.IsExist(err) {
			// If the config already exists, attempt to overwrite it
			err = viper.WriteConfig()
			if err != nil {
				return fmt.Errorf("error writing config file: %w", err)
			}
		} else {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	fmt.Println("Created default configuration file")
	return nil
}

// Mnemonic returns the wallet recovery phrase from the environment.
func Mnemonic() string {
	return os.Getenv("WALLET_MNEMONIC")
}

// ToncenterAPIKey returns the optional toncenter API key from the environment.
func ToncenterAPIKey() string {
	return os.Getenv("TONCENTER_API_KEY")
}
