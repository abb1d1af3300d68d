package inspect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
)

func TestProxies(t *testing.T) {
	m := manifest.New()
	admin := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	impl := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	proxy := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	m.Admin = &manifest.AdminDeployment{Address: admin}
	m.RecordImplementation(common.Hash{0x01}, &manifest.ImplDeployment{ContractName: "DoggyProjectsV1", Address: impl})
	m.RecordProxy(&manifest.ProxyDeployment{
		ContractName:   "DoggyProjectsV1",
		Address:        proxy,
		Implementation: impl,
		Kind:           manifest.ProxyKindTransparent,
	})
	m.SetLastCompletedMigration(1)

	var buf bytes.Buffer
	require.NoError(t, Proxies(&buf, m))
	out := buf.String()

	require.Contains(t, out, admin.Hex())
	require.Contains(t, out, proxy.Hex())
	require.Contains(t, out, "proxy (transparent)")
	require.Contains(t, out, "DoggyProjectsV1")
	require.Equal(t, 2, strings.Count(out, impl.Hex()), "implementation appears on its own row and on the proxy row")
}

func TestProxiesEmptyManifest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Proxies(&buf, manifest.New()))
	require.Contains(t, buf.String(), "CONTRACT")
}
