package config

import (
	"errors"
	"fmt"
	"strings"
)

// Network names a chain preset.
type Network string

const (
	NetworkBaseSepolia Network = "base-sepolia"
	NetworkBase        Network = "base"
)

// DefaultPolicyID is the paymaster policy shared by both presets.
const DefaultPolicyID = "186aaa4a-5f57-4156-83fb-e456365a8820"

// ChainConfig holds the network the agent transacts on. Empty fields are
// filled from the preset selected by Network.
type ChainConfig struct {
	Network              Network `env:"NETWORK"                envDefault:"base-sepolia"`
	RPCURL               string  `env:"RPC_URL"`
	ChainID              int64   `env:"CHAIN_ID"`
	ContractAddress      string  `env:"CONTRACT_ADDRESS"`
	PaymentTokenAddress  string  `env:"PAYMENT_TOKEN_ADDRESS"`
	PaymentTokenDecimals int     `env:"PAYMENT_TOKEN_DECIMALS"`
	APIURL               string  `env:"API_URL"`
	RelayURL             string  `env:"RELAY_URL"`
	PolicyID             string  `env:"POLICY_ID"`
}

// Preset returns the stock settings for network.
func Preset(network Network) (ChainConfig, bool) {
	switch network {
	case NetworkBaseSepolia:
		return ChainConfig{
			Network:              NetworkBaseSepolia,
			RPCURL:               "https://sepolia.base.org",
			ChainID:              84532,
			ContractAddress:      "0x8Db6B1c839Fc8f6bd35777E194677B67b4D51928",
			PaymentTokenAddress:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			PaymentTokenDecimals: 6,
			APIURL:               "https://acpx.virtuals.gg/api",
			RelayURL:             "https://alchemy-proxy.virtuals.io/api/proxy/wallet",
			PolicyID:             DefaultPolicyID,
		}, true
	case NetworkBase:
		return ChainConfig{
			Network:              NetworkBase,
			RPCURL:               "https://mainnet.base.org",
			ChainID:              8453,
			ContractAddress:      "0x6a1FE26D54ab0d3E1e3168f2e0c0cDa5cC0A0A4A",
			PaymentTokenAddress:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			PaymentTokenDecimals: 6,
			APIURL:               "https://acpx.virtuals.io/api",
			RelayURL:             "https://alchemy-proxy-prod.virtuals.io/api/proxy/wallet",
			PolicyID:             DefaultPolicyID,
		}, true
	}
	return ChainConfig{}, false
}

// Sanitize fills unset fields from the preset. An unknown network keeps
// whatever was set explicitly; Validate reports what is missing.
func (c *ChainConfig) Sanitize() {
	c.Network = Network(strings.ToLower(strings.TrimSpace(string(c.Network))))
	if c.Network == "" {
		c.Network = NetworkBaseSepolia
	}
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	c.ContractAddress = strings.TrimSpace(c.ContractAddress)
	c.PaymentTokenAddress = strings.TrimSpace(c.PaymentTokenAddress)
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.RelayURL = strings.TrimRight(strings.TrimSpace(c.RelayURL), "/")
	c.PolicyID = strings.TrimSpace(c.PolicyID)

	p, ok := Preset(c.Network)
	if !ok {
		return
	}
	if c.RPCURL == "" {
		c.RPCURL = p.RPCURL
	}
	if c.ChainID <= 0 {
		c.ChainID = p.ChainID
	}
	if c.ContractAddress == "" {
		c.ContractAddress = p.ContractAddress
	}
	if c.PaymentTokenAddress == "" {
		c.PaymentTokenAddress = p.PaymentTokenAddress
	}
	if c.PaymentTokenDecimals <= 0 {
		c.PaymentTokenDecimals = p.PaymentTokenDecimals
	}
	if c.APIURL == "" {
		c.APIURL = p.APIURL
	}
	if c.RelayURL == "" {
		c.RelayURL = p.RelayURL
	}
	if c.PolicyID == "" {
		c.PolicyID = p.PolicyID
	}
}

// Validate checks that every field needed to transact is present.
func (c *ChainConfig) Validate() error {
	var errs []error
	if _, ok := Preset(c.Network); !ok {
		errs = append(errs, fmt.Errorf("unknown network %q (valid options: %s, %s)", c.Network, NetworkBaseSepolia, NetworkBase))
	}
	if c.ChainID <= 0 {
		errs = append(errs, errors.New("chain id is required"))
	}
	if !IsAddress(c.ContractAddress) {
		errs = append(errs, fmt.Errorf("invalid contract address %q", c.ContractAddress))
	}
	if !IsAddress(c.PaymentTokenAddress) {
		errs = append(errs, fmt.Errorf("invalid payment token address %q", c.PaymentTokenAddress))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is required"))
	}
	if c.RelayURL == "" {
		errs = append(errs, errors.New("relay url is required"))
	}
	return errors.Join(errs...)
}

// IsAddress reports whether s is a 0x-prefixed 20 byte hex address.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
