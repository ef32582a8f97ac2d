// Package config centralizes the engine's bootstrap configuration: admin
// identity, token references, contract addresses and deadlines.
// Flags are bound through spf13/viper the way the teacher's node
// entrypoint does (cmd/quantum-node/main.go), so every value Load reads
// can come from a flag or an environment variable. Load does not fill
// Config.Schedule.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/emitlabs/reward-engine/internal/schedule"
	"github.com/emitlabs/reward-engine/internal/types"
)

// Config is the daemon's resolved bootstrap configuration.
type Config struct {
	DataDir     string
	HTTPAddr    string
	WSAddr      string
	MetricsAddr string

	Admin          types.Address
	GovTokenAddr   types.Address
	GovTokenHash   types.Hash
	Deadline       uint64
	PoolClaimBlock uint64
	PrngSeed       string

	MasterAddr     types.Address
	LPStakingAddr  types.Address
	DevFundAddr    types.Address
	Beneficiary    types.Address
	RewardTokenAddr types.Address
	IncTokenAddr   types.Address

	Schedule []schedule.Segment
}

// Load resolves a Config from whatever spf13/viper has bound: flags and
// environment variables (prefixed REWARD_ENGINE_). No config file is
// read, and Schedule is left empty.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:        v.GetString("data-dir"),
		HTTPAddr:       v.GetString("http-addr"),
		WSAddr:         v.GetString("ws-addr"),
		MetricsAddr:    v.GetString("metrics-addr"),
		Deadline:       v.GetUint64("deadline"),
		PoolClaimBlock: v.GetUint64("pool-claim-block"),
		PrngSeed:       v.GetString("prng-seed"),
	}

	adminStr := v.GetString("admin")
	if adminStr == "" {
		return Config{}, fmt.Errorf("config: --admin is required")
	}
	admin, err := types.HexToAddress(adminStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: --admin: %w", err)
	}
	cfg.Admin = admin

	if govAddr := v.GetString("gov-token-address"); govAddr != "" {
		addr, err := types.HexToAddress(govAddr)
		if err != nil {
			return Config{}, fmt.Errorf("config: --gov-token-address: %w", err)
		}
		cfg.GovTokenAddr = addr
	}
	if govHash := v.GetString("gov-token-hash"); govHash != "" {
		hash, err := types.HexToHash(govHash)
		if err != nil {
			return Config{}, fmt.Errorf("config: --gov-token-hash: %w", err)
		}
		cfg.GovTokenHash = hash
	}

	for _, f := range []struct {
		name string
		dst  *types.Address
	}{
		{"master-address", &cfg.MasterAddr},
		{"lpstaking-address", &cfg.LPStakingAddr},
		{"devfund-address", &cfg.DevFundAddr},
		{"beneficiary", &cfg.Beneficiary},
		{"reward-token-address", &cfg.RewardTokenAddr},
		{"inc-token-address", &cfg.IncTokenAddr},
	} {
		s := v.GetString(f.name)
		if s == "" {
			return Config{}, fmt.Errorf("config: --%s is required", f.name)
		}
		a, err := types.HexToAddress(s)
		if err != nil {
			return Config{}, fmt.Errorf("config: --%s: %w", f.name, err)
		}
		*f.dst = a
	}

	return cfg, nil
}

// BindDaemonFlags registers the flag set the masterd entrypoint exposes
// and binds it into v, mirroring viper.BindPFlags(rootCmd.PersistentFlags())
// in the teacher's node entrypoint.
func BindDaemonFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.String("data-dir", "./data", "data directory for the transactional store")
	fs.String("http-addr", ":8080", "HTTP API listen address")
	fs.String("ws-addr", ":8081", "unused; the /ws event stream is served on --http-addr")
	fs.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	fs.String("admin", "", "admin address for the master allocator")
	fs.String("gov-token-address", "", "governance token contract address")
	fs.String("gov-token-hash", "", "governance token contract code hash")
	fs.Uint64("deadline", 0, "staking engine reward epoch deadline (block height)")
	fs.Uint64("pool-claim-block", 0, "block height after which ClaimRewardPool is permitted")
	fs.String("prng-seed", "", "viewing-key derivation seed, hex or raw string")
	fs.String("master-address", "", "address this daemon's master allocator is deployed at")
	fs.String("lpstaking-address", "", "address the LP staking engine is registered under")
	fs.String("devfund-address", "", "address the dev-fund sink is registered under")
	fs.String("beneficiary", "", "dev-fund beneficiary address")
	fs.String("reward-token-address", "", "reward token contract address")
	fs.String("inc-token-address", "", "staked (incentivized) token contract address")

	_ = v.BindPFlags(fs)
}
