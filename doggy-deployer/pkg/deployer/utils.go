package deployer

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/doggyprojects/contracts/doggy-service/ioutil"
	"github.com/doggyprojects/contracts/doggy-service/jsonutil"
)

const DefaultStateDir = "deployments"

func CreateStateDir(fs afero.Fs, stateDir string) error {
	if err := fs.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	return nil
}

// WriteOutput writes value to outfile as YAML when the name says so, JSON otherwise.
func WriteOutput[X any](value X, outfile string, target ioutil.OutputTarget) error {
	if ioutil.IsYAMLPath(outfile) {
		return jsonutil.WriteYAML(value, target)
	}
	return jsonutil.WriteJSON(value, target)
}
