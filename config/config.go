package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lynxwallet/walletcore/schema"
)

type Config struct {
	DbDir     string
	VaultDir  string
	SqliteDir string
	MysqlDSN  string
	UseSqlite bool

	Providers []schema.ChainProvider

	FiatSymbol string

	SyncInterval time.Duration
	RateInterval time.Duration

	KafkaURI string // "" disables event export

	Port string
}

func Default() *Config {
	return &Config{
		DbDir:        "./data/bolt",
		VaultDir:     "./data/vault",
		SqliteDir:    "./data/sqlite",
		UseSqlite:    true,
		FiatSymbol:   "USD",
		SyncInterval: 3 * time.Minute,
		RateInterval: 5 * time.Minute,
		Port:         ":8575",
	}
}

// LoadProviders reads a chain provider list from a JSON file.
func (c *Config) LoadProviders(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	providers := make([]schema.ChainProvider, 0)
	if err := json.Unmarshal(raw, &providers); err != nil {
		return err
	}
	c.Providers = providers
	return nil
}

// Provider returns the configured provider for a chain id.
func (c *Config) Provider(chainID string) (schema.ChainProvider, bool) {
	for _, p := range c.Providers {
		if p.ChainID == chainID {
			return p, true
		}
	}
	return schema.ChainProvider{}, false
}
