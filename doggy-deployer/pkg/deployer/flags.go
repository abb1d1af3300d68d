package deployer

import (
	"github.com/urfave/cli/v2"

	oplog "github.com/doggyprojects/contracts/doggy-service/log"
)

const EnvVarPrefix = "DOGGY_DEPLOYER"

const (
	RPCURLFlagName           = "rpc-url"
	PrivateKeyFlagName       = "private-key"
	ArtifactsLocatorFlagName = "artifacts-locator"
	StateDirFlagName         = "state-dir"
	InitialOwnerFlagName     = "initial-owner"
	GasFeeCapFlagName        = "gas-fee-cap"
	GasTipCapFlagName        = "gas-tip-cap"
	NetworksFlagName         = "networks"
	NetworkFlagName          = "network"
	OutfileFlagName          = "outfile"
	MetricsTextfileFlagName  = "metrics-textfile"
	ChainIDFlagName          = "chain-id"
)

func PrefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	RPCURLFlag = &cli.StringFlag{
		Name:    RPCURLFlagName,
		Usage:   "RPC URL of the network to deploy to.",
		EnvVars: PrefixEnvVar("RPC_URL"),
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    PrivateKeyFlagName,
		Usage:   "Private key of the deployer account.",
		EnvVars: PrefixEnvVar("PRIVATE_KEY"),
	}
	ArtifactsLocatorFlag = &cli.StringFlag{
		Name:    ArtifactsLocatorFlagName,
		Usage:   "Location of the compiled contract artifacts, as a file:// URL or a path.",
		EnvVars: PrefixEnvVar("ARTIFACTS_LOCATOR"),
	}
	StateDirFlag = &cli.StringFlag{
		Name:    StateDirFlagName,
		Usage:   "Directory holding the per-network deployment manifests.",
		EnvVars: PrefixEnvVar("STATE_DIR"),
		Value:   DefaultStateDir,
	}
	InitialOwnerFlag = &cli.StringFlag{
		Name:    InitialOwnerFlagName,
		Usage:   "Initial owner handed to initializers. Defaults to the owner each migration declares.",
		EnvVars: PrefixEnvVar("INITIAL_OWNER"),
	}
	GasFeeCapFlag = &cli.StringFlag{
		Name:    GasFeeCapFlagName,
		Usage:   "Max fee per gas in wei. Derived from the latest base fee when unset.",
		EnvVars: PrefixEnvVar("GAS_FEE_CAP"),
	}
	GasTipCapFlag = &cli.StringFlag{
		Name:    GasTipCapFlagName,
		Usage:   "Max priority fee per gas in wei. Suggested by the node when unset.",
		EnvVars: PrefixEnvVar("GAS_TIP_CAP"),
	}
	NetworksFlag = &cli.StringFlag{
		Name:    NetworksFlagName,
		Usage:   "TOML file describing named networks.",
		EnvVars: PrefixEnvVar("NETWORKS"),
	}
	NetworkFlag = &cli.StringFlag{
		Name:    NetworkFlagName,
		Usage:   "Name of the network in the networks file to deploy to.",
		EnvVars: PrefixEnvVar("NETWORK"),
	}
	OutfileFlag = &cli.StringFlag{
		Name:    OutfileFlagName,
		Usage:   "Output file for the deployment report, YAML when it ends in .yaml. Use - for stdout.",
		EnvVars: PrefixEnvVar("OUTFILE"),
		Value:   "-",
	}
	MetricsTextfileFlag = &cli.StringFlag{
		Name:    MetricsTextfileFlagName,
		Usage:   "Write transaction metrics to this file in the node-exporter textfile format.",
		EnvVars: PrefixEnvVar("METRICS_TEXTFILE"),
	}
	ChainIDFlag = &cli.Uint64Flag{
		Name:    ChainIDFlagName,
		Usage:   "Chain ID of the network to inspect.",
		EnvVars: PrefixEnvVar("CHAIN_ID"),
	}
)

var GlobalFlags = append([]cli.Flag{}, oplog.CLIFlags(EnvVarPrefix)...)

var MigrateFlags = []cli.Flag{
	RPCURLFlag,
	PrivateKeyFlag,
	ArtifactsLocatorFlag,
	StateDirFlag,
	InitialOwnerFlag,
	GasFeeCapFlag,
	GasTipCapFlag,
	NetworksFlag,
	NetworkFlag,
	OutfileFlag,
	MetricsTextfileFlag,
}
