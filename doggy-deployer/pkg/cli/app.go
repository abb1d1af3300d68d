package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/inspect"
	"github.com/doggyprojects/contracts/doggy-service/cliapp"
)

// NewApp creates and configures a new CLI application
func NewApp(versionWithMeta string) *cli.App {
	app := cli.NewApp()
	app.Version = versionWithMeta
	app.Name = "doggy-deployer"
	app.Usage = "Deploys the DoggyProjects contracts behind upgradeable proxies."
	app.Flags = cliapp.ProtectFlags(deployer.GlobalFlags)
	app.Commands = []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "runs the pending deployment migrations against a network",
			Flags:  cliapp.ProtectFlags(deployer.MigrateFlags),
			Action: deployer.MigrateCLI,
		},
		{
			Name:        "inspect",
			Usage:       "inspects the recorded deployments of a network",
			Subcommands: inspect.Commands,
		},
	}
	return app
}
