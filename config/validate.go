package config

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	if cfg.Fees.MintFeeMerkle < cfg.Fees.MintFee {
		return fmt.Errorf("fees.mint_merkle (%d) must not be below fees.mint (%d)", cfg.Fees.MintFeeMerkle, cfg.Fees.MintFee)
	}
	if (cfg.Fees.MintFee > 0 || cfg.Fees.MintFeeMerkle > 0) && cfg.Fees.Recipient == "" {
		return fmt.Errorf("fees.recipient is required when fees are nonzero")
	}
	if err := validateAddress(cfg.Fees.Recipient, "fees.recipient"); err != nil {
		return err
	}
	if err := validateAddress(cfg.Sink, "sink"); err != nil {
		return err
	}

	return nil
}

// validateAddress checks an optional hex address setting.
func validateAddress(s, field string) error {
	if s == "" {
		return nil
	}
	if _, err := types.HexToAddress(s); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// FeeRecipient returns the parsed fee recipient address; zero when unset.
func (c *Config) FeeRecipient() types.Address {
	addr, _ := types.HexToAddress(c.Fees.Recipient)
	return addr
}

// SinkAddress returns the parsed sink address; zero when unset.
func (c *Config) SinkAddress() types.Address {
	addr, _ := types.HexToAddress(c.Sink)
	return addr
}
