package upgrades

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/artifacts"
)

const (
	doggyABI = `[
		{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"initialOwner","type":"address"}],"outputs":[]}
	]`
	proxyAdminABI = `[
		{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
	]`
	proxyAdminV5ABI = `[
		{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"initialOwner","type":"address"}]},
		{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
	]`
	proxyAdminTwoArgsABI = `[
		{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"guardian","type":"address"}]}
	]`
	proxyABI = `[
		{"type":"constructor","stateMutability":"payable","inputs":[{"name":"_logic","type":"address"},{"name":"admin_","type":"address"},{"name":"_data","type":"bytes"}]}
	]`
)

func newArtifact(t *testing.T, name, abiJSON string, bytecode []byte) *artifacts.Artifact {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	require.NoError(t, err)
	return &artifacts.Artifact{ContractName: name, ABI: parsed, Bytecode: bytecode}
}

type artifactMap map[string]*artifacts.Artifact

func (a artifactMap) Require(name string) (*artifacts.Artifact, error) {
	art, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", artifacts.ErrArtifactNotFound, name)
	}
	return art, nil
}
