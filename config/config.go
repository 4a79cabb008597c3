// Package config binds the engine's tunables — network selection, batch
// sizes, bloom sizing, recycle-bin policy — to viper, following the
// AddConfigFlag/ProcessViperConfig split the rest of the pack uses: flags
// declare the surface, an optional --config file supplies defaults, and
// viper reconciles the two.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rooch-network/rooch-sub004/gc"
)

// Config holds every value the gc/store/applier packages need at
// startup. Zero value is not valid; use Load.
type Config struct {
	DataDir string
	Network string

	MarkBatchSize  int
	SweepBatchSize int
	MarkWorkers    int

	BloomHintMultiplier float64
	UseAtomicBloom      bool
	PersistentMarker    bool

	RecycleBinEnabled bool
	StrongBackup      bool

	ProtectedRootOverride int
}

const envPrefix = "ROOCH_STATE"

// AddFlags registers every Config field as a persistent flag on cmd and
// binds it into v, mirroring the pack's AddConfigFlag/ProcessViperConfig
// convention: flags are the canonical surface, --config only supplies
// defaults underneath them.
func AddFlags(cmd *cobra.Command, v *viper.Viper) {
	registerFlags(cmd.PersistentFlags())
	_ = v.BindPFlags(cmd.PersistentFlags())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// registerFlags declares the flag surface against the concrete
// *pflag.FlagSet type rather than cobra's wrapper, so the flag set can
// also be reused directly by callers (tests, alternate front-ends) that
// don't want to build a full cobra.Command.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("data-dir", "./data", "root directory holding one database subdirectory per network")
	flags.String("network", "dev", "local, dev, test, main, or custom")
	flags.Int("mark-batch-size", 4096, "nodes visited between reachability-marking flush points")
	flags.Int("sweep-batch-size", 4096, "stale-index entries visited between sweep checkpoints")
	flags.Int("mark-workers", 8, "worker count for the parallel reachability marker")
	flags.Float64("bloom-hint-multiplier", 1.5, "expected-node-count multiplier used to size the bloom filter")
	flags.Bool("atomic-bloom", false, "use the lock-free bitset marker instead of the mutex-guarded one")
	flags.Bool("persistent-marker", false, "back the marker with an exact on-disk set instead of a bloom filter")
	flags.Bool("recycle-bin", true, "stage deleted node bytes in the recycle bin before removing them")
	flags.Bool("strong-backup", true, "the recycle bin is enabled only when both this and --recycle-bin are true")
	flags.Int("protected-roots", 0, "override the network-derived protected root count (0 = use network default)")
}

// AddConfigFlag registers the --config flag that points at an optional
// YAML/TOML/JSON file viper merges underneath the flag defaults above.
func AddConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "path to a config file merged underneath flag defaults")
}

// Load reads any --config file into v (if set) and materializes a Config
// from the merged view. Call after cmd.ParseFlags / inside a cobra
// PreRunE, same sequencing the pack's ProcessViperConfig uses.
func Load(cmd *cobra.Command, v *viper.Viper) (*Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := &Config{
		DataDir:               v.GetString("data-dir"),
		Network:               v.GetString("network"),
		MarkBatchSize:         v.GetInt("mark-batch-size"),
		SweepBatchSize:        v.GetInt("sweep-batch-size"),
		MarkWorkers:           v.GetInt("mark-workers"),
		BloomHintMultiplier:   v.GetFloat64("bloom-hint-multiplier"),
		UseAtomicBloom:        v.GetBool("atomic-bloom"),
		PersistentMarker:      v.GetBool("persistent-marker"),
		RecycleBinEnabled:     v.GetBool("recycle-bin") && v.GetBool("strong-backup"),
		StrongBackup:          v.GetBool("strong-backup"),
		ProtectedRootOverride: v.GetInt("protected-roots"),
	}
	if _, err := cfg.NetworkValue(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NetworkValue parses the Network string into a gc.Network.
func (c *Config) NetworkValue() (gc.Network, error) {
	switch strings.ToLower(c.Network) {
	case "local":
		return gc.NetworkLocal, nil
	case "dev":
		return gc.NetworkDev, nil
	case "test":
		return gc.NetworkTest, nil
	case "main", "mainnet":
		return gc.NetworkMain, nil
	case "custom":
		return gc.NetworkCustom, nil
	default:
		return 0, fmt.Errorf("config: unknown network %q", c.Network)
	}
}

// ProtectedRootCount resolves the effective protected-root count: the
// explicit override if set, else the network default.
func (c *Config) ProtectedRootCount() int {
	if c.ProtectedRootOverride > 0 {
		return c.ProtectedRootOverride
	}
	n, _ := c.NetworkValue()
	return gc.ProtectedRootCount(n)
}
