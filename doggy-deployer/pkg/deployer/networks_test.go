package deployer

import (
	"math/big"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
)

const testNetworks = `
[networks.sepolia]
rpc-url = "https://sepolia.example.org"
chain-id = 11155111
gas-fee-cap = "40000000000"
gas-tip-cap = "2000000000"
artifacts-locator = "file:///srv/build/contracts"

[networks.local]
rpc-url = "http://localhost:8545"
chain-id = 1337
initial-owner = "0x00000000000000000000000000000000000000bb"
`

func TestLoadNetworks(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/networks.toml", []byte(testNetworks), 0o644))

	networks, err := LoadNetworks(fs, "/networks.toml")
	require.NoError(t, err)
	require.Len(t, networks.Networks, 2)

	sepolia, err := networks.Network("sepolia")
	require.NoError(t, err)
	require.Equal(t, uint64(11155111), sepolia.ChainID)

	_, err = networks.Network("mainnet")
	require.ErrorContains(t, err, `unknown network "mainnet", known networks: local, sepolia`)
	_, err = networks.Network("")
	require.ErrorContains(t, err, "network name must be specified")
}

func TestLoadNetworksRejectsUnknownKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/networks.toml", []byte("[networks.local]\nrpc = \"http://localhost:8545\"\n"), 0o644))
	_, err := LoadNetworks(fs, "/networks.toml")
	require.ErrorContains(t, err, "unknown keys")
	require.ErrorContains(t, err, "networks.local.rpc")
}

func TestNetworkConfigApply(t *testing.T) {
	net := &NetworkConfig{
		RPCURL:           "https://sepolia.example.org",
		ChainID:          11155111,
		GasFeeCap:        "40000000000",
		GasTipCap:        "2000000000",
		ArtifactsLocator: "file:///srv/build/contracts",
		InitialOwner:     "0x00000000000000000000000000000000000000bb",
	}

	t.Run("fills unset fields", func(t *testing.T) {
		var cfg MigrateConfig
		require.NoError(t, net.Apply(&cfg))
		require.Equal(t, "https://sepolia.example.org", cfg.RPCURL)
		require.Equal(t, uint64(11155111), cfg.ExpectedChainID)
		require.Equal(t, big.NewInt(40_000_000_000), cfg.GasFeeCap)
		require.Equal(t, big.NewInt(2_000_000_000), cfg.GasTipCap)
		require.Equal(t, "/srv/build/contracts", cfg.ArtifactsLocator.Dir())
		require.Equal(t, "0x00000000000000000000000000000000000000bb", cfg.InitialOwner)
	})

	t.Run("flags win", func(t *testing.T) {
		cfg := MigrateConfig{
			RPCURL:           "http://localhost:8545",
			GasFeeCap:        big.NewInt(7),
			ArtifactsLocator: artifacts.MustNewFileLocator("/other"),
			InitialOwner:     "0x00000000000000000000000000000000000000cc",
		}
		require.NoError(t, net.Apply(&cfg))
		require.Equal(t, "http://localhost:8545", cfg.RPCURL)
		require.Equal(t, big.NewInt(7), cfg.GasFeeCap)
		require.Equal(t, "/other", cfg.ArtifactsLocator.Dir())
		require.Equal(t, "0x00000000000000000000000000000000000000cc", cfg.InitialOwner)
	})

	t.Run("invalid fee", func(t *testing.T) {
		var cfg MigrateConfig
		err := (&NetworkConfig{GasFeeCap: "lots"}).Apply(&cfg)
		require.ErrorContains(t, err, "invalid gas-fee-cap")
	})
}
