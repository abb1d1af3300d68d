package inspect

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
	oplog "github.com/doggyprojects/contracts/doggy-service/log"
)

func ProxiesCLI(cliCtx *cli.Context) error {
	chainID := cliCtx.Uint64(deployer.ChainIDFlagName)
	if chainID == 0 {
		return errors.New("chain ID must be specified")
	}
	store := manifest.NewStore(afero.NewOsFs(), cliCtx.String(deployer.StateDirFlagName))
	exists, err := afero.Exists(afero.NewOsFs(), store.Path(chainID))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no manifest for chain %d at %s", chainID, store.Path(chainID))
	}
	m, err := store.Load(chainID)
	if err != nil {
		return err
	}
	return Proxies(oplog.AppOut(cliCtx), m)
}

// Proxies renders the recorded deployments of m as a table.
func Proxies(w io.Writer, m *manifest.Manifest) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Contract", "Address", "Implementation", "Tx"})
	table.SetAutoWrapText(false)

	if m.Admin != nil {
		table.Append([]string{"admin", "ProxyAdmin", m.Admin.Address.Hex(), "", m.Admin.TxHash.Hex()})
	}

	hashes := make([]common.Hash, 0, len(m.Impls))
	for h := range m.Impls {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return m.Impls[hashes[i]].ContractName+hashes[i].Hex() < m.Impls[hashes[j]].ContractName+hashes[j].Hex()
	})
	for _, h := range hashes {
		impl := m.Impls[h]
		table.Append([]string{"implementation", impl.ContractName, impl.Address.Hex(), "", impl.TxHash.Hex()})
	}

	for _, p := range m.Proxies {
		table.Append([]string{"proxy (" + string(p.Kind) + ")", p.ContractName, p.Address.Hex(), p.Implementation.Hex(), p.TxHash.Hex()})
	}
	table.SetFooter([]string{"", "", "", "last migration", strconv.Itoa(m.LastCompletedMigration())})
	table.Render()
	return nil
}
