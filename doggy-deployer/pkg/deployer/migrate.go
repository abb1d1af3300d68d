package deployer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/broadcaster"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/env"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/migrations"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/upgrades"
	"github.com/doggyprojects/contracts/doggy-service/cliutil"
	"github.com/doggyprojects/contracts/doggy-service/ctxinterrupt"
	"github.com/doggyprojects/contracts/doggy-service/ioutil"
	oplog "github.com/doggyprojects/contracts/doggy-service/log"
)

type MigrateConfig struct {
	RPCURL           string             `cli:"rpc-url"`
	PrivateKey       string             `cli:"private-key"`
	ArtifactsLocator *artifacts.Locator `cli:"artifacts-locator"`
	StateDir         string             `cli:"state-dir"`
	InitialOwner     string             `cli:"initial-owner"`
	GasFeeCap        *big.Int           `cli:"gas-fee-cap"`
	GasTipCap        *big.Int           `cli:"gas-tip-cap"`
	MetricsTextfile  string             `cli:"metrics-textfile"`

	// ExpectedChainID guards against pointing a named network at the wrong RPC. Zero skips the check.
	ExpectedChainID uint64

	Logger log.Logger

	privateKeyECDSA *ecdsa.PrivateKey
}

// Check validates the config and reports every problem at once.
func (c *MigrateConfig) Check() error {
	var result *multierror.Error
	if c.RPCURL == "" {
		result = multierror.Append(result, errors.New("RPC URL must be specified"))
	}
	if c.PrivateKey == "" {
		result = multierror.Append(result, errors.New("private key must be specified"))
	} else {
		privECDSA, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to parse private key: %w", err))
		}
		c.privateKeyECDSA = privECDSA
	}
	if c.ArtifactsLocator == nil {
		result = multierror.Append(result, errors.New("artifacts locator must be specified"))
	}
	if c.StateDir == "" {
		result = multierror.Append(result, errors.New("state dir must be specified"))
	}
	if c.InitialOwner != "" && !common.IsHexAddress(c.InitialOwner) {
		result = multierror.Append(result, fmt.Errorf("initial owner %q is not an address", c.InitialOwner))
	}
	if c.GasFeeCap != nil && c.GasFeeCap.Sign() < 0 {
		result = multierror.Append(result, fmt.Errorf("gas fee cap %s must not be negative", c.GasFeeCap))
	}
	if c.GasTipCap != nil && c.GasTipCap.Sign() < 0 {
		result = multierror.Append(result, fmt.Errorf("gas tip cap %s must not be negative", c.GasTipCap))
	}
	if c.GasFeeCap != nil && c.GasTipCap != nil && c.GasFeeCap.Cmp(c.GasTipCap) < 0 {
		result = multierror.Append(result, errors.New("gas fee cap must not be below gas tip cap"))
	}
	if c.Logger == nil {
		result = multierror.Append(result, errors.New("logger must be specified"))
	}
	return result.ErrorOrNil()
}

// MigrateReport summarizes a migrate run for the --outfile output.
type MigrateReport struct {
	ChainID                uint64                      `json:"chainId"`
	Deployer               common.Address              `json:"deployer"`
	Applied                []int                       `json:"applied"`
	LastCompletedMigration int                         `json:"lastCompletedMigration"`
	Admin                  *manifest.AdminDeployment   `json:"admin,omitempty"`
	Proxies                []*manifest.ProxyDeployment `json:"proxies"`
}

func MigrateCLI(cliCtx *cli.Context) error {
	logCfg := oplog.ReadCLIConfig(cliCtx)
	l := oplog.NewLogger(oplog.AppOut(cliCtx), logCfg)
	oplog.SetGlobalLogHandler(l.Handler())

	var cfg MigrateConfig
	if err := cliutil.PopulateStruct(&cfg, cliCtx); err != nil {
		return fmt.Errorf("failed to populate config: %w", err)
	}
	cfg.Logger = l

	if networksPath := cliCtx.String(NetworksFlagName); networksPath != "" {
		networks, err := LoadNetworks(afero.NewOsFs(), networksPath)
		if err != nil {
			return err
		}
		network, err := networks.Network(cliCtx.String(NetworkFlagName))
		if err != nil {
			return err
		}
		if err := network.Apply(&cfg); err != nil {
			return fmt.Errorf("failed to apply network %s: %w", cliCtx.String(NetworkFlagName), err)
		}
	}

	ctx := ctxinterrupt.WithCancelOnInterrupt(cliCtx.Context)
	outfile := cliCtx.String(OutfileFlagName)
	report, err := Migrate(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if err := WriteOutput(report, outfile, ioutil.ToStdOutOrFileOrNoop(outfile, 0o644)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, cfg MigrateConfig) (*MigrateReport, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config for migrate: %w", err)
	}

	store, err := artifacts.OpenStore(cfg.ArtifactsLocator)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	if err := CreateStateDir(fs, cfg.StateDir); err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	metrics := broadcaster.NewMetrics()
	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				cfg.Logger.Warn("failed to write metrics", "err", err)
			}
		}()
	}

	return MigrateWithClient(ctx, MigrateOpts{
		Logger:          cfg.Logger,
		Client:          client,
		Key:             cfg.privateKeyECDSA,
		Artifacts:       store,
		Manifests:       manifest.NewStore(fs, cfg.StateDir),
		InitialOwner:    cfg.InitialOwner,
		GasFeeCap:       cfg.GasFeeCap,
		GasTipCap:       cfg.GasTipCap,
		ExpectedChainID: cfg.ExpectedChainID,
		Metrics:         metrics,
	})
}

// MigrateOpts is a resolved migrate run against a connected client.
type MigrateOpts struct {
	Logger          log.Logger
	Client          broadcaster.EthClient
	Key             *ecdsa.PrivateKey
	Artifacts       upgrades.ArtifactResolver
	Manifests       *manifest.Store
	InitialOwner    string
	GasFeeCap       *big.Int
	GasTipCap       *big.Int
	ExpectedChainID uint64
	Metrics         broadcaster.Metricer
	PollInterval    time.Duration
}

// MigrateWithClient applies the pending migrations through opts.Client and reports the
// resulting manifest.
func MigrateWithClient(ctx context.Context, opts MigrateOpts) (*MigrateReport, error) {
	lgr := opts.Logger
	if lgr == nil {
		lgr = log.Root()
	}
	chainID, err := opts.Client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if opts.ExpectedChainID != 0 && chainID.Uint64() != opts.ExpectedChainID {
		return nil, fmt.Errorf("RPC reports chain ID %d, expected %d", chainID, opts.ExpectedChainID)
	}
	lgr = lgr.New("chainID", chainID)

	bcaster, err := broadcaster.NewKeyedBroadcaster(broadcaster.KeyedBroadcasterOpts{
		Logger:       lgr,
		ChainID:      chainID,
		Client:       opts.Client,
		Key:          opts.Key,
		GasFeeCap:    opts.GasFeeCap,
		GasTipCap:    opts.GasTipCap,
		Metrics:      opts.Metrics,
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcaster: %w", err)
	}

	backend, err := upgrades.NewChainBackend(upgrades.ChainBackendOpts{
		Logger:    lgr,
		ChainID:   chainID.Uint64(),
		Chain:     bcaster,
		Artifacts: opts.Artifacts,
		Manifests: opts.Manifests,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy backend: %w", err)
	}

	deployEnv := &env.Env{
		Logger:       lgr,
		Artifacts:    opts.Artifacts,
		Upgrades:     upgrades.NewFramework(lgr, backend),
		Deployer:     bcaster.From(),
		InitialOwner: opts.InitialOwner,
	}
	lgr.Info("starting migrations", "deployer", deployEnv.Deployer)

	runner := migrations.NewRunner(lgr, chainID.Uint64(), opts.Manifests, migrations.All())
	applied, err := runner.Run(ctx, deployEnv)
	if err != nil {
		return nil, err
	}

	m, err := opts.Manifests.Load(chainID.Uint64())
	if err != nil {
		return nil, err
	}
	lgr.Info("migrations complete", "applied", len(applied), "lastCompleted", m.LastCompletedMigration())
	return NewMigrateReport(chainID.Uint64(), deployEnv.Deployer, applied, m), nil
}

func NewMigrateReport(chainID uint64, deployer common.Address, applied []int, m *manifest.Manifest) *MigrateReport {
	if applied == nil {
		applied = []int{}
	}
	return &MigrateReport{
		ChainID:                chainID,
		Deployer:               deployer,
		Applied:                applied,
		LastCompletedMigration: m.LastCompletedMigration(),
		Admin:                  m.Admin,
		Proxies:                m.Proxies,
	}
}
