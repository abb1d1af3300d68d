package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/doggyprojects/contracts/doggy-service/ioutil"
)

// LoadJSON decodes the JSON file at path. Unknown fields are rejected.
func LoadJSON[X any](fs afero.Fs, path string) (*X, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}
	defer f.Close()
	var state X
	decoder := json.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode file %q: %w", path, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected trailing data in file %q", path)
	}
	return &state, nil
}

// WriteJSON encodes value as indented JSON into target.
func WriteJSON[X any](value X, target ioutil.OutputTarget) error {
	return write(value, target, func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// WriteYAML encodes value as YAML into target. Types with JSON tags only are converted
// through JSON first so field names match the JSON output.
func WriteYAML[X any](value X, target ioutil.OutputTarget) error {
	return write(value, target, func(w io.Writer, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	})
}

func write(value any, target ioutil.OutputTarget, encode func(io.Writer, any) error) error {
	out, closer, abort, err := target()
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := encode(out, value); err != nil {
		abort()
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
