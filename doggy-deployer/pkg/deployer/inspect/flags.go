package inspect

import (
	"github.com/urfave/cli/v2"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer"
	"github.com/doggyprojects/contracts/doggy-service/cliapp"
)

var ProxiesFlags = []cli.Flag{
	deployer.StateDirFlag,
	deployer.ChainIDFlag,
}

var Commands = []*cli.Command{
	{
		Name:   "proxies",
		Usage:  "lists the proxy admin, implementations and proxies recorded for a network",
		Flags:  cliapp.ProtectFlags(ProxiesFlags),
		Action: ProxiesCLI,
	},
}
