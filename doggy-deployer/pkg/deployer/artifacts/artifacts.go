package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/afero"
)

var (
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrLinkingUnsupported  = errors.New("cannot load bytecode with unlinked library references")
	ErrEmptyBytecode       = errors.New("artifact has no creation bytecode")
	ErrMissingContractName = errors.New("contract name must be specified")
)

// Artifact is a compiled contract: its ABI and creation/runtime bytecode.
type Artifact struct {
	ContractName     string
	ABI              abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
}

// BytecodeHash identifies an implementation by its creation code.
func (a *Artifact) BytecodeHash() common.Hash {
	return crypto.Keccak256Hash(a.Bytecode)
}

// rawArtifact covers both the Truffle layout, where bytecode fields are hex strings, and the
// Forge layout, where they are objects with an "object" field.
type rawArtifact struct {
	ContractName     string          `json:"contractName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         json.RawMessage `json:"bytecode"`
	DeployedBytecode json.RawMessage `json:"deployedBytecode"`
}

type forgeBytecode struct {
	Object string `json:"object"`
}

// Store resolves contract names to artifacts inside a build directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// OpenStore opens the artifacts directory behind loc on the OS filesystem.
func OpenStore(loc *Locator) (*Store, error) {
	if loc == nil || loc.URL == nil {
		return nil, errors.New("artifacts locator must be specified")
	}
	dir := loc.Dir()
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifacts dir %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("artifacts path %s is not a directory", dir)
	}
	return NewStore(afero.NewOsFs(), dir), nil
}

func (s *Store) candidates(name string) []string {
	return []string{
		path.Join(s.dir, name+".json"),
		path.Join(s.dir, name+".sol", name+".json"),
	}
}

// Require loads the artifact for the named contract.
func (s *Store) Require(name string) (*Artifact, error) {
	if name == "" {
		return nil, ErrMissingContractName
	}
	for _, p := range s.candidates(name) {
		data, err := afero.ReadFile(s.fs, p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", p, err)
		}
		art, err := parseArtifact(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse artifact %s: %w", p, err)
		}
		return art, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, s.dir)
}

func parseArtifact(name string, data []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.ContractName != "" && raw.ContractName != name {
		return nil, fmt.Errorf("artifact is for contract %s, not %s", raw.ContractName, name)
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}
	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}
	bytecode, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	if len(bytecode) == 0 {
		return nil, ErrEmptyBytecode
	}
	deployed, err := decodeBytecode(raw.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("deployed bytecode: %w", err)
	}
	return &Artifact{
		ContractName:     name,
		ABI:              parsedABI,
		Bytecode:         bytecode,
		DeployedBytecode: deployed,
	}, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var hexStr string
	if raw[0] == '{' {
		var fb forgeBytecode
		if err := json.Unmarshal(raw, &fb); err != nil {
			return nil, err
		}
		hexStr = fb.Object
	} else if err := json.Unmarshal(raw, &hexStr); err != nil {
		return nil, err
	}
	if strings.Contains(hexStr, "__") {
		return nil, ErrLinkingUnsupported
	}
	if hexStr == "" || hexStr == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(hexStr, "0x") {
		hexStr = "0x" + hexStr
	}
	return hexutil.Decode(hexStr)
}
