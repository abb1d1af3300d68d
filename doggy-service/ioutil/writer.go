package ioutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// OutputTarget opens the destination of a command's output.
type OutputTarget func() (io.Writer, io.Closer, Aborter, error)

// Aborter discards a partially written output.
type Aborter func()

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func NoOutputStream() OutputTarget {
	return func() (io.Writer, io.Closer, Aborter, error) {
		return nil, nil, nil, nil
	}
}

// ToStdOutOrFileOrNoop writes to stdout for "-", skips output for "", and otherwise writes
// the file at outputPath atomically.
func ToStdOutOrFileOrNoop(outputPath string, perm os.FileMode) OutputTarget {
	return ToStdOutOrFileOrNoopFs(afero.NewOsFs(), os.Stdout, outputPath, perm)
}

func ToStdOutOrFileOrNoopFs(fs afero.Fs, stdout io.Writer, outputPath string, perm os.FileMode) OutputTarget {
	return func() (io.Writer, io.Closer, Aborter, error) {
		switch outputPath {
		case "":
			return nil, nil, nil, nil
		case "-":
			return stdout, noopCloser{}, func() {}, nil
		default:
			f, err := NewAtomicWriter(fs, outputPath, perm)
			if err != nil {
				return nil, nil, nil, err
			}
			return f, f, f.Abort, nil
		}
	}
}

// IsYAMLPath reports whether path names a YAML document.
func IsYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
