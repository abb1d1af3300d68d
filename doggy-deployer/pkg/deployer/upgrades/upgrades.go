// Package upgrades deploys contracts behind transparent upgradeable proxies. It deploys or
// reuses the implementation and the proxy admin, then deploys the proxy with the initializer
// call passed to its constructor.
package upgrades

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
)

var ErrInitializerNotFound = errors.New("initializer not found in contract abi")

type ProxyKind = manifest.ProxyKind

const ProxyKindTransparent = manifest.ProxyKindTransparent

type Options struct {
	// Deployer is the account expected to send the deployment transactions.
	Deployer    common.Address
	Initializer string
	Kind        ProxyKind
}

// Deployment describes a proxied contract after DeployProxy returns.
type Deployment struct {
	ContractName   string         `json:"contractName"`
	Proxy          common.Address `json:"proxy"`
	Implementation common.Address `json:"implementation"`
	Admin          common.Address `json:"admin"`
	TxHash         common.Hash    `json:"txHash"`
	Kind           ProxyKind      `json:"kind"`
	// Created is false when an existing proxy was reused.
	Created     bool `json:"created"`
	Initialized bool `json:"initialized"`
}

// InitializerCall is an initializer invocation encoded against the implementation ABI.
type InitializerCall struct {
	Name string
	Args []any
	Data []byte
}

// NewInitializerCall encodes the call of initializer with args, converting string arguments to
// the types the ABI expects. args itself is left untouched.
func NewInitializerCall(artifact *artifacts.Artifact, initializer string, args []any) (*InitializerCall, error) {
	method, ok := artifact.ABI.Methods[initializer]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrInitializerNotFound, initializer, artifact.ContractName)
	}
	converted, err := convertArgs(method.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("invalid %s arguments: %w", initializer, err)
	}
	data, err := artifact.ABI.Pack(initializer, converted...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s call: %w", initializer, err)
	}
	return &InitializerCall{Name: initializer, Args: args, Data: data}, nil
}

// ProxyDeployer deploys an upgradeable contract and initializes it with args.
type ProxyDeployer interface {
	DeployProxy(ctx context.Context, artifact *artifacts.Artifact, args []any, opts Options) (*Deployment, error)
}

// Backend performs the individual steps DeployProxy sequences.
type Backend interface {
	// DeployOrReuseProxy returns the recorded proxy for artifact when it is still live. Otherwise
	// it deploys one, running init (when non-nil) from the proxy constructor so the proxy is never
	// observable uninitialized.
	DeployOrReuseProxy(ctx context.Context, artifact *artifacts.Artifact, init *InitializerCall, opts Options) (*Deployment, error)
	// CallInitializer runs init on a proxy that exists but was never initialized.
	CallInitializer(ctx context.Context, deployment *Deployment, init *InitializerCall) error
}

type Framework struct {
	lgr     log.Logger
	backend Backend
}

var _ ProxyDeployer = (*Framework)(nil)

func NewFramework(lgr log.Logger, backend Backend) *Framework {
	return &Framework{lgr: lgr, backend: backend}
}

func (f *Framework) DeployProxy(ctx context.Context, artifact *artifacts.Artifact, args []any, opts Options) (*Deployment, error) {
	if artifact == nil {
		return nil, errors.New("artifact must be specified")
	}
	if opts.Kind == "" {
		opts.Kind = ProxyKindTransparent
	}
	if opts.Kind != ProxyKindTransparent {
		return nil, fmt.Errorf("unsupported proxy kind %q", opts.Kind)
	}
	lgr := f.lgr.New("contract", artifact.ContractName, "kind", opts.Kind)

	var init *InitializerCall
	if opts.Initializer != "" {
		var err error
		if init, err = NewInitializerCall(artifact, opts.Initializer, args); err != nil {
			return nil, err
		}
	}

	deployment, err := f.backend.DeployOrReuseProxy(ctx, artifact, init, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy proxy for %s: %w", artifact.ContractName, err)
	}
	lgr = lgr.New("proxy", deployment.Proxy, "created", deployment.Created)
	switch {
	case init == nil:
		lgr.Info("proxy ready without initializer")
		return deployment, nil
	case deployment.Initialized && deployment.Created:
		lgr.Info("proxy deployed and initialized", "implementation", deployment.Implementation)
		return deployment, nil
	case deployment.Initialized:
		lgr.Info("proxy already initialized, initializer not run")
		return deployment, nil
	}

	lgr.Info("calling initializer", "initializer", init.Name, "args", len(init.Args))
	if err := f.backend.CallInitializer(ctx, deployment, init); err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", init.Name, artifact.ContractName, err)
	}
	deployment.Initialized = true
	lgr.Info("proxy initialized", "implementation", deployment.Implementation)
	return deployment, nil
}
