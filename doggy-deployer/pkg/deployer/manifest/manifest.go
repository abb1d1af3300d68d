// Package manifest records what has been deployed on each network: the proxy admin, the
// implementations keyed by bytecode hash, the proxies keyed by contract name, and how far the
// migrations got.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"

	"github.com/doggyprojects/contracts/doggy-service/ioutil"
	"github.com/doggyprojects/contracts/doggy-service/jsonutil"
)

const CurrentVersion = "1.0.0"

var ErrUnsupportedVersion = errors.New("unsupported manifest version")

type ProxyKind string

const ProxyKindTransparent ProxyKind = "transparent"

type AdminDeployment struct {
	Address common.Address `json:"address"`
	TxHash  common.Hash    `json:"txHash"`
}

type ImplDeployment struct {
	ContractName string         `json:"contractName"`
	Address      common.Address `json:"address"`
	TxHash       common.Hash    `json:"txHash"`
}

type ProxyDeployment struct {
	ContractName   string         `json:"contractName"`
	Address        common.Address `json:"address"`
	Implementation common.Address `json:"implementation"`
	// Admin is the proxy's admin as reported by the proxy itself.
	Admin       common.Address `json:"admin"`
	TxHash      common.Hash    `json:"txHash"`
	Kind        ProxyKind      `json:"kind"`
	Initialized bool           `json:"initialized"`
}

type MigrationProgress struct {
	LastCompletedMigration int `json:"lastCompletedMigration"`
}

type Manifest struct {
	ManifestVersion string                          `json:"manifestVersion"`
	Admin           *AdminDeployment                `json:"admin,omitempty"`
	Impls           map[common.Hash]*ImplDeployment `json:"impls"`
	Proxies         []*ProxyDeployment              `json:"proxies"`
	Migrations      *MigrationProgress              `json:"migrations,omitempty"`
}

func New() *Manifest {
	return &Manifest{
		ManifestVersion: CurrentVersion,
		Impls:           make(map[common.Hash]*ImplDeployment),
		Proxies:         make([]*ProxyDeployment, 0),
	}
}

// Check accepts manifests written by any release with the same major version.
func (m *Manifest) Check() error {
	v, err := semver.NewVersion(m.ManifestVersion)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnsupportedVersion, m.ManifestVersion, err)
	}
	current := semver.MustParse(CurrentVersion)
	if v.Major() != current.Major() {
		return fmt.Errorf("%w: %s, expected %d.x", ErrUnsupportedVersion, v, current.Major())
	}
	return nil
}

func (m *Manifest) ImplementationFor(hash common.Hash) *ImplDeployment {
	return m.Impls[hash]
}

func (m *Manifest) ProxyFor(contractName string) *ProxyDeployment {
	for _, p := range m.Proxies {
		if p.ContractName == contractName {
			return p
		}
	}
	return nil
}

func (m *Manifest) RecordImplementation(hash common.Hash, impl *ImplDeployment) {
	if m.Impls == nil {
		m.Impls = make(map[common.Hash]*ImplDeployment)
	}
	m.Impls[hash] = impl
}

// RecordProxy adds p, replacing any proxy recorded under the same contract name.
func (m *Manifest) RecordProxy(p *ProxyDeployment) {
	for i, existing := range m.Proxies {
		if existing.ContractName == p.ContractName {
			m.Proxies[i] = p
			return
		}
	}
	m.Proxies = append(m.Proxies, p)
}

func (m *Manifest) LastCompletedMigration() int {
	if m.Migrations == nil {
		return 0
	}
	return m.Migrations.LastCompletedMigration
}

func (m *Manifest) SetLastCompletedMigration(id int) {
	if m.Migrations == nil {
		m.Migrations = new(MigrationProgress)
	}
	m.Migrations.LastCompletedMigration = id
}

// Store keeps one manifest file per chain ID inside a state directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) Path(chainID uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(chainID, 10)+".json")
}

// Load reads the manifest for chainID. A missing file yields an empty manifest.
func (s *Store) Load(chainID uint64) (*Manifest, error) {
	path := s.Path(chainID)
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest %s: %w", path, err)
	}
	if !exists {
		return New(), nil
	}
	m, err := jsonutil.LoadJSON[Manifest](s.fs, path)
	if err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if m.Impls == nil {
		m.Impls = make(map[common.Hash]*ImplDeployment)
	}
	return m, nil
}

func (s *Store) Save(chainID uint64, m *Manifest) error {
	if err := jsonutil.WriteJSON(m, ioutil.ToStdOutOrFileOrNoopFs(s.fs, os.Stdout, s.Path(chainID), 0o644)); err != nil {
		return fmt.Errorf("failed to save manifest for chain %d: %w", chainID, err)
	}
	return nil
}
