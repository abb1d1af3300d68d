package env

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/upgrades"
)

type ArtifactResolver interface {
	Require(name string) (*artifacts.Artifact, error)
}

// Env is the handle migrations deploy through.
type Env struct {
	Logger    log.Logger
	Artifacts ArtifactResolver
	Upgrades  upgrades.ProxyDeployer
	// Deployer is the account sending the deployment transactions.
	Deployer common.Address
	// InitialOwner overrides the owner migrations hand to initializers. Empty keeps their default.
	InitialOwner string
}
