package deployer

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
)

// NetworkConfig is one [networks.<name>] table of a networks file. Fee caps are decimal
// strings in wei so values above 2^63 survive TOML.
type NetworkConfig struct {
	RPCURL           string `toml:"rpc-url"`
	ChainID          uint64 `toml:"chain-id"`
	GasFeeCap        string `toml:"gas-fee-cap"`
	GasTipCap        string `toml:"gas-tip-cap"`
	ArtifactsLocator string `toml:"artifacts-locator"`
	InitialOwner     string `toml:"initial-owner"`
}

// Apply fills the fields of cfg that were not set on the command line.
func (n *NetworkConfig) Apply(cfg *MigrateConfig) error {
	if cfg.RPCURL == "" {
		cfg.RPCURL = n.RPCURL
	}
	if cfg.ExpectedChainID == 0 {
		cfg.ExpectedChainID = n.ChainID
	}
	if cfg.InitialOwner == "" {
		cfg.InitialOwner = n.InitialOwner
	}
	if cfg.ArtifactsLocator == nil && n.ArtifactsLocator != "" {
		loc := new(artifacts.Locator)
		if err := loc.UnmarshalText([]byte(n.ArtifactsLocator)); err != nil {
			return fmt.Errorf("invalid artifacts-locator: %w", err)
		}
		cfg.ArtifactsLocator = loc
	}
	var err error
	if cfg.GasFeeCap == nil {
		if cfg.GasFeeCap, err = parseWei(n.GasFeeCap); err != nil {
			return fmt.Errorf("invalid gas-fee-cap: %w", err)
		}
	}
	if cfg.GasTipCap == nil {
		if cfg.GasTipCap, err = parseWei(n.GasTipCap); err != nil {
			return fmt.Errorf("invalid gas-tip-cap: %w", err)
		}
	}
	return nil
}

func parseWei(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("not a wei amount: %q", s)
	}
	return n, nil
}

type NetworksFile struct {
	Networks map[string]*NetworkConfig `toml:"networks"`
}

func LoadNetworks(fs afero.Fs, path string) (*NetworksFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file %s: %w", path, err)
	}
	var out NetworksFile
	md, err := toml.Decode(string(data), &out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode networks file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in networks file %s: %s", path, strings.Join(keys, ", "))
	}
	return &out, nil
}

func (n *NetworksFile) Network(name string) (*NetworkConfig, error) {
	if name == "" {
		return nil, errors.New("network name must be specified")
	}
	cfg, ok := n.Networks[name]
	if !ok {
		known := make([]string, 0, len(n.Networks))
		for k := range n.Networks {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown network %q, known networks: %s", name, strings.Join(known, ", "))
	}
	return cfg, nil
}
