package migrations

import (
	"context"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/env"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/upgrades"
)

const (
	DoggyProjectsV1            = "DoggyProjectsV1"
	DoggyProjectsV1Initializer = "initialize"
	// DoggyProjectsV1InitialOwner is passed to the initializer exactly as written.
	DoggyProjectsV1InitialOwner = "0x15D6F888c24C491A9b21f47627565E2330ff23c6"
)

// DeployDoggyProjectsV1 deploys DoggyProjectsV1 behind a proxy and initializes it with its
// initial owner. Errors are returned as the collaborators produced them.
func DeployDoggyProjectsV1(ctx context.Context, e *env.Env) error {
	artifact, err := e.Artifacts.Require(DoggyProjectsV1)
	if err != nil {
		return err
	}
	owner := DoggyProjectsV1InitialOwner
	if e.InitialOwner != "" {
		owner = e.InitialOwner
	}
	_, err = e.Upgrades.DeployProxy(ctx, artifact, []any{owner}, upgrades.Options{
		Deployer:    e.Deployer,
		Initializer: DoggyProjectsV1Initializer,
	})
	return err
}
