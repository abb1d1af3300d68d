package upgrades

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/lmittmann/w3"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
)

const (
	ProxyAdminContract       = "ProxyAdmin"
	TransparentProxyContract = "TransparentUpgradeableProxy"
)

// EIP-1967 storage slots.
var (
	ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	AdminSlot          = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)

var eventAdminChanged = w3.MustNewEvent("AdminChanged(address previousAdmin, address newAdmin)")

// Chain sends transactions from a single account. broadcaster.KeyedBroadcaster implements it.
type Chain interface {
	From() common.Address
	Deploy(ctx context.Context, initCode []byte) (*types.Receipt, common.Address, error)
	Call(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
}

type ArtifactResolver interface {
	Require(name string) (*artifacts.Artifact, error)
}

type ManifestStore interface {
	Load(chainID uint64) (*manifest.Manifest, error)
	Save(chainID uint64, m *manifest.Manifest) error
}

type ChainBackendOpts struct {
	Logger    log.Logger
	ChainID   uint64
	Chain     Chain
	Artifacts ArtifactResolver
	Manifests ManifestStore
}

// ChainBackend deploys proxies on a live network and records them in the network manifest.
type ChainBackend struct {
	lgr       log.Logger
	chainID   uint64
	chain     Chain
	artifacts ArtifactResolver
	manifests ManifestStore
}

var _ Backend = (*ChainBackend)(nil)

func NewChainBackend(opts ChainBackendOpts) (*ChainBackend, error) {
	if opts.Chain == nil {
		return nil, errors.New("chain must be specified")
	}
	if opts.Artifacts == nil {
		return nil, errors.New("artifacts must be specified")
	}
	if opts.Manifests == nil {
		return nil, errors.New("manifest store must be specified")
	}
	lgr := opts.Logger
	if lgr == nil {
		lgr = log.Root()
	}
	return &ChainBackend{
		lgr:       lgr,
		chainID:   opts.ChainID,
		chain:     opts.Chain,
		artifacts: opts.Artifacts,
		manifests: opts.Manifests,
	}, nil
}

func (b *ChainBackend) DeployOrReuseProxy(ctx context.Context, artifact *artifacts.Artifact, init *InitializerCall, opts Options) (*Deployment, error) {
	if opts.Deployer != (common.Address{}) && opts.Deployer != b.chain.From() {
		return nil, fmt.Errorf("deployer %s does not match signer %s", opts.Deployer, b.chain.From())
	}
	if opts.Kind == "" {
		opts.Kind = ProxyKindTransparent
	}
	m, err := b.manifests.Load(b.chainID)
	if err != nil {
		return nil, err
	}
	lgr := b.lgr.New("contract", artifact.ContractName)

	if recorded := m.ProxyFor(artifact.ContractName); recorded != nil {
		live, err := b.hasCode(ctx, recorded.Address)
		if err != nil {
			return nil, err
		}
		if live {
			return b.reuseProxy(ctx, lgr, m, recorded), nil
		}
		lgr.Warn("recorded proxy has no code, redeploying", "proxy", recorded.Address)
	}

	impl, err := b.deployOrReuseImplementation(ctx, lgr, m, artifact)
	if err != nil {
		return nil, err
	}
	adminArg, err := b.proxyAdminArg(ctx, lgr, m)
	if err != nil {
		return nil, err
	}

	proxyArt, err := b.artifacts.Require(TransparentProxyContract)
	if err != nil {
		return nil, err
	}
	initData := []byte{}
	if init != nil {
		initData = init.Data
	}
	ctorArgs, err := proxyArt.ABI.Pack("", impl, adminArg, initData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy constructor: %w", err)
	}
	lgr.Info("deploying proxy", "implementation", impl, "admin", adminArg, "initialize", init != nil)
	receipt, proxy, err := b.chain.Deploy(ctx, initCode(proxyArt.Bytecode, ctorArgs))
	if err != nil {
		return nil, fmt.Errorf("failed to deploy proxy: %w", err)
	}

	admin, err := b.proxyAdmin(ctx, receipt, proxy)
	if err != nil {
		lgr.Warn("could not read proxy admin, recording constructor argument", "proxy", proxy, "err", err)
		admin = adminArg
	}
	if m.Admin != nil && admin != m.Admin.Address {
		lgr.Warn("proxy reports a different admin than the shared proxy admin", "proxy", proxy, "admin", admin, "shared", m.Admin.Address)
	}
	m.RecordProxy(&manifest.ProxyDeployment{
		ContractName:   artifact.ContractName,
		Address:        proxy,
		Implementation: impl,
		Admin:          admin,
		TxHash:         receipt.TxHash,
		Kind:           opts.Kind,
		Initialized:    init != nil,
	})
	if err := b.manifests.Save(b.chainID, m); err != nil {
		return nil, err
	}
	lgr.Info("proxy deployed", "proxy", proxy, "admin", admin)

	return &Deployment{
		ContractName:   artifact.ContractName,
		Proxy:          proxy,
		Implementation: impl,
		Admin:          admin,
		TxHash:         receipt.TxHash,
		Kind:           opts.Kind,
		Created:        true,
		Initialized:    init != nil,
	}, nil
}

func (b *ChainBackend) CallInitializer(ctx context.Context, deployment *Deployment, init *InitializerCall) error {
	if init == nil {
		return errors.New("initializer must be specified")
	}
	if _, err := b.chain.Call(ctx, deployment.Proxy, init.Data); err != nil {
		return err
	}
	m, err := b.manifests.Load(b.chainID)
	if err != nil {
		return err
	}
	recorded := m.ProxyFor(deployment.ContractName)
	if recorded == nil || recorded.Address != deployment.Proxy {
		return fmt.Errorf("proxy %s for %s is not recorded", deployment.Proxy, deployment.ContractName)
	}
	recorded.Initialized = true
	return b.manifests.Save(b.chainID, m)
}

func (b *ChainBackend) reuseProxy(ctx context.Context, lgr log.Logger, m *manifest.Manifest, recorded *manifest.ProxyDeployment) *Deployment {
	d := &Deployment{
		ContractName:   recorded.ContractName,
		Proxy:          recorded.Address,
		Implementation: recorded.Implementation,
		Admin:          recorded.Admin,
		TxHash:         recorded.TxHash,
		Kind:           recorded.Kind,
		Initialized:    recorded.Initialized,
	}
	if d.Admin == (common.Address{}) && m.Admin != nil {
		d.Admin = m.Admin.Address
	}
	lgr = lgr.New("proxy", recorded.Address)
	slot, err := b.chain.StorageAt(ctx, recorded.Address, ImplementationSlot)
	if err != nil {
		lgr.Warn("could not read proxy implementation slot", "err", err)
	} else if onchain := common.BytesToAddress(slot.Bytes()); onchain != recorded.Implementation {
		lgr.Warn("proxy implementation differs from manifest, not upgrading", "recorded", recorded.Implementation, "onchain", onchain)
		d.Implementation = onchain
	}
	lgr.Info("reusing proxy", "implementation", d.Implementation, "initialized", d.Initialized)
	return d
}

// proxyAdmin returns the admin the proxy settled on, from its AdminChanged event or, failing
// that, its EIP-1967 admin slot.
func (b *ChainBackend) proxyAdmin(ctx context.Context, receipt *types.Receipt, proxy common.Address) (common.Address, error) {
	for _, l := range receipt.Logs {
		if l.Address != proxy {
			continue
		}
		var previous, admin common.Address
		if err := eventAdminChanged.DecodeArgs(l, &previous, &admin); err == nil {
			return admin, nil
		}
	}
	slot, err := b.chain.StorageAt(ctx, proxy, AdminSlot)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(slot.Bytes()), nil
}

func (b *ChainBackend) deployOrReuseImplementation(ctx context.Context, lgr log.Logger, m *manifest.Manifest, artifact *artifacts.Artifact) (common.Address, error) {
	hash := artifact.BytecodeHash()
	if recorded := m.ImplementationFor(hash); recorded != nil {
		live, err := b.hasCode(ctx, recorded.Address)
		if err != nil {
			return common.Address{}, err
		}
		if live {
			lgr.Info("implementation deployment not needed", "implementation", recorded.Address)
			return recorded.Address, nil
		}
		lgr.Warn("recorded implementation has no code, redeploying", "implementation", recorded.Address)
	}
	if len(artifact.ABI.Constructor.Inputs) != 0 {
		return common.Address{}, fmt.Errorf("implementation %s must not take constructor arguments", artifact.ContractName)
	}

	lgr.Info("deploying implementation", "bytecodeHash", hash)
	receipt, addr, err := b.chain.Deploy(ctx, artifact.Bytecode)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy implementation: %w", err)
	}
	m.RecordImplementation(hash, &manifest.ImplDeployment{
		ContractName: artifact.ContractName,
		Address:      addr,
		TxHash:       receipt.TxHash,
	})
	if err := b.manifests.Save(b.chainID, m); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// proxyAdminArg returns the admin argument of the proxy constructor. ProxyAdmin releases that take
// an initial owner are created by each proxy itself and owned by that argument, so the deployer
// is passed instead of a shared admin.
func (b *ChainBackend) proxyAdminArg(ctx context.Context, lgr log.Logger, m *manifest.Manifest) (common.Address, error) {
	adminArt, err := b.artifacts.Require(ProxyAdminContract)
	if err != nil {
		return common.Address{}, err
	}
	switch n := len(adminArt.ABI.Constructor.Inputs); n {
	case 0:
		return b.deployOrReuseAdmin(ctx, lgr, m, adminArt)
	case 1:
		lgr.Info("proxy creates its own admin", "owner", b.chain.From())
		return b.chain.From(), nil
	default:
		return common.Address{}, fmt.Errorf("unsupported %s constructor with %d inputs", ProxyAdminContract, n)
	}
}

func (b *ChainBackend) deployOrReuseAdmin(ctx context.Context, lgr log.Logger, m *manifest.Manifest, adminArt *artifacts.Artifact) (common.Address, error) {
	if m.Admin != nil {
		live, err := b.hasCode(ctx, m.Admin.Address)
		if err != nil {
			return common.Address{}, err
		}
		if live {
			lgr.Info("proxy admin deployment not needed", "admin", m.Admin.Address)
			return m.Admin.Address, nil
		}
		lgr.Warn("recorded proxy admin has no code, redeploying", "admin", m.Admin.Address)
	}

	lgr.Info("deploying proxy admin")
	receipt, addr, err := b.chain.Deploy(ctx, adminArt.Bytecode)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy proxy admin: %w", err)
	}
	m.Admin = &manifest.AdminDeployment{Address: addr, TxHash: receipt.TxHash}
	if err := b.manifests.Save(b.chainID, m); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func (b *ChainBackend) hasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := b.chain.CodeAt(ctx, addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func initCode(bytecode, ctorArgs []byte) []byte {
	out := make([]byte, 0, len(bytecode)+len(ctorArgs))
	out = append(out, bytecode...)
	return append(out, ctorArgs...)
}
