package cliapp

import (
	"fmt"
	"reflect"

	"github.com/urfave/cli/v2"
)

// CloneableGeneric is a cli.Generic that can hand out an independent copy of itself.
type CloneableGeneric interface {
	cli.Generic
	Clone() any
}

// ProtectFlags returns copies of the given flags, so that applying them to a flag set never
// mutates shared package-level flag values. Generic flag values must be CloneableGeneric.
func ProtectFlags(flags []cli.Flag) []cli.Flag {
	out := make([]cli.Flag, 0, len(flags))
	for _, f := range flags {
		fCopy, err := cloneFlag(f)
		if err != nil {
			panic(fmt.Errorf("failed to clone flag %q: %w", f.Names()[0], err))
		}
		out = append(out, fCopy)
	}
	return out
}

func cloneFlag(f cli.Flag) (cli.Flag, error) {
	switch typedFlag := f.(type) {
	case *cli.GenericFlag:
		cpy := *typedFlag
		if typedFlag.Value != nil {
			genValue, ok := typedFlag.Value.(CloneableGeneric)
			if !ok {
				return nil, fmt.Errorf("generic flag value of type %T is not cloneable", typedFlag.Value)
			}
			cpy.Value = genValue.Clone().(cli.Generic)
		}
		return &cpy, nil
	default:
		v := reflect.ValueOf(f)
		if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("unsupported flag type %T", f)
		}
		cpy := reflect.New(v.Elem().Type())
		cpy.Elem().Set(v.Elem())
		return cpy.Interface().(cli.Flag), nil
	}
}
