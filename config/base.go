// config/base.go
package config

import (
	"github.com/spf13/viper"
)

type BaseConfig struct {
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            int    `mapstructure:"DB_PORT"`
	DBName            string `mapstructure:"DB_NAME"`
	DBUser            string `mapstructure:"DB_USER"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBDebug           bool   `mapstructure:"DB_DEBUG"`
	HorizonURL        string `mapstructure:"HORIZON_URL"`
	SorobanRPCURL     string `mapstructure:"SOROBAN_RPC_URL"`
	ContractID        string `mapstructure:"CONTRACT_ID"`
	BaseAccountSecret string `mapstructure:"BASE_ACCOUNT_SECRET"`
	LedgerMaxInflight int64  `mapstructure:"LEDGER_MAX_INFLIGHT"`
	RateOracleURL     string `mapstructure:"RATE_ORACLE_URL"`
	RateAsset         string `mapstructure:"RATE_ASSET"`
	RateCurrency      string `mapstructure:"RATE_CURRENCY"`
	IPFSAPIURL        string `mapstructure:"IPFS_API_URL"`
	IPFSGatewayURL    string `mapstructure:"IPFS_GATEWAY_URL"`
	IPFSJWT           string `mapstructure:"IPFS_JWT"`
}

func LoadBase() (*BaseConfig, error) {
	v := viper.New()

	v.SetConfigName("base")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// Default values
	v.SetDefault("DB_HOST", "mysql")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_NAME", "aidchain")
	v.SetDefault("DB_USER", "aidchain")
	v.SetDefault("DB_PASSWORD", "aidchain")
	v.SetDefault("DB_DEBUG", false)
	v.SetDefault("HORIZON_URL", "https://horizon-testnet.stellar.org")
	v.SetDefault("SOROBAN_RPC_URL", "https://soroban-testnet.stellar.org")
	v.SetDefault("LEDGER_MAX_INFLIGHT", 8)
	v.SetDefault("RATE_ORACLE_URL", "https://api.coingecko.com/api/v3")
	v.SetDefault("RATE_ASSET", "stellar")
	v.SetDefault("RATE_CURRENCY", "inr")
	v.SetDefault("IPFS_API_URL", "https://uploads.pinata.cloud/v3")
	v.SetDefault("IPFS_GATEWAY_URL", "https://gateway.pinata.cloud")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config BaseConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
