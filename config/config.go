package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"reflectledger/crypto"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	TokenName    string `toml:"TokenName"`
	TokenSymbol  string `toml:"TokenSymbol"`
	OwnerAddress string `toml:"OwnerAddress"`
	Env          string `toml:"Env"`
}

// Load reads the configuration from the given path, creating a default file
// on first run. The generated default carries a freshly generated owner
// address so a development node is operable immediately.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for completeness.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TokenName) == "" {
		return fmt.Errorf("config: TokenName required")
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		return fmt.Errorf("config: TokenSymbol required")
	}
	owner := strings.TrimSpace(c.OwnerAddress)
	if owner == "" {
		return fmt.Errorf("config: OwnerAddress required")
	}
	addr, err := crypto.DecodeAddress(owner)
	if err != nil {
		return fmt.Errorf("config: OwnerAddress: %w", err)
	}
	if addr.Prefix() != crypto.RFLPrefix {
		return fmt.Errorf("config: OwnerAddress must carry the %q prefix", crypto.RFLPrefix)
	}
	return nil
}

// Owner returns the parsed owner address. Call Validate first.
func (c *Config) Owner() (crypto.Address, error) {
	return crypto.DecodeAddress(strings.TrimSpace(c.OwnerAddress))
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./reflect-data"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	owner, err := crypto.GenerateAddress()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		RPCAddress:   ":8645",
		DataDir:      "./reflect-data",
		TokenName:    "MyToken",
		TokenSymbol:  "MTK",
		OwnerAddress: owner.String(),
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
