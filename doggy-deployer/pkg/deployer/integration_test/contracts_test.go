package integration_test

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/migrations"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/upgrades"
)

// The contracts below are hand-assembled stand-ins for the compiled OpenZeppelin artifacts. They
// keep the behavior the deployer relies on: EIP-1967 slots, the AdminChanged event, the
// initializer call made from the proxy constructor, and an initializer that only runs once.

const (
	doggyProjectsABI = `[
		{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"initialOwner","type":"address"}],"outputs":[]},
		{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
	]`
	proxyAdminABI = `[]`
	proxyABI      = `[
		{"type":"constructor","stateMutability":"payable","inputs":[{"name":"_logic","type":"address"},{"name":"admin_","type":"address"},{"name":"_data","type":"bytes"}]},
		{"type":"event","name":"AdminChanged","anonymous":false,"inputs":[{"name":"previousAdmin","type":"address","indexed":false},{"name":"newAdmin","type":"address","indexed":false}]}
	]`
)

func asm(parts ...string) []byte {
	return common.FromHex(strings.Join(parts, ""))
}

// doggyProjectsBytecode stores the initialize argument in slot 0, reverting when slot 0 is
// already set. Any call without a 36 byte payload returns slot 0 as owner().
func doggyProjectsBytecode() []byte {
	runtime := asm(
		"6024", "36", "14", "6012", "57", // jump to 0x12 when calldatasize == 36
		"6000", "54", "6000", "52", "6020", "6000", "f3", // return sload(0)
		"5b", "6000", "54", "15", "601e", "57", // 0x12: continue at 0x1e when slot 0 is empty
		"6000", "80", "fd", // revert
		"5b", "6004", "35", "6000", "55", "00", // 0x1e: sstore(0, calldataload(4))
	)
	return append(asm("6026", "80", "600b", "6000", "39", "6000", "f3"), runtime...)
}

// proxyAdminBytecode deploys a single STOP opcode.
func proxyAdminBytecode() []byte {
	return asm("6001", "80", "600b", "6000", "39", "6000", "f3", "00")
}

const (
	proxyCtorLen    = 0xac
	proxyRuntimeLen = 0x43
)

// proxyBytecode implements constructor(address logic, address admin, bytes data): it fills the
// EIP-1967 slots, emits AdminChanged(0, admin) and delegatecalls data into logic when data is
// not empty. The runtime forwards every call to the implementation.
func proxyBytecode() []byte {
	topic := crypto.Keccak256Hash([]byte("AdminChanged(address,address)"))
	word := func(h common.Hash) string { return "7f" + strings.TrimPrefix(h.Hex(), "0x") }

	ctor := asm(
		"6100ef", "38", "03", "6100ef", "6040", "39", // codecopy(0x40, len, codesize-len)
		"604051", word(upgrades.ImplementationSlot), "55", // implementation slot = logic
		"606051", word(upgrades.AdminSlot), "55", // admin slot = admin
		"606051", "602052", word(topic), "6040", "6000", "a1", // AdminChanged(0, admin)
		"60a051", "15", "61009f", "57", // skip the call when data is empty
		"6000", "6000", "60a051", "60c0", "604051", "5a", "f4", // delegatecall(gas, logic, 0xc0, len(data), 0, 0)
		"61009f", "57", "6000", "80", "fd", // revert on failure
		"5b", "6043", "80", "6100ac", "6000", "39", "6000", "f3", // 0x9f: return runtime
	)
	runtime := asm(
		"36", "6000", "6000", "37", // calldatacopy(0, 0, calldatasize)
		"6000", "6000", "36", "6000", word(upgrades.ImplementationSlot), "54", "5a", "f4",
		"3d", "6000", "6000", "3e", // returndatacopy(0, 0, returndatasize)
		"603e", "57", "3d", "6000", "fd", // revert with the return data on failure
		"5b", "3d", "6000", "f3", // 0x3e: return the return data
	)
	if len(ctor) != proxyCtorLen || len(runtime) != proxyRuntimeLen {
		panic(fmt.Sprintf("proxy bytecode layout changed: ctor %d runtime %d", len(ctor), len(runtime)))
	}
	return append(ctor, runtime...)
}

type truffleArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

func writeArtifacts(t *testing.T, fs afero.Fs, dir string) {
	for _, art := range []truffleArtifact{
		{ContractName: migrations.DoggyProjectsV1, ABI: json.RawMessage(doggyProjectsABI), Bytecode: hexutil.Encode(doggyProjectsBytecode())},
		{ContractName: upgrades.ProxyAdminContract, ABI: json.RawMessage(proxyAdminABI), Bytecode: hexutil.Encode(proxyAdminBytecode())},
		{ContractName: upgrades.TransparentProxyContract, ABI: json.RawMessage(proxyABI), Bytecode: hexutil.Encode(proxyBytecode())},
	} {
		data, err := json.Marshal(art)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, path.Join(dir, art.ContractName+".json"), data, 0o644))
	}
}
