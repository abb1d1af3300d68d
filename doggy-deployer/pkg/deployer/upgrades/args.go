package upgrades

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// convertArgs returns a copy of args with string values converted to the Go types the abi
// encoder expects for inputs. Non-string values are passed through.
func convertArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			out[i] = arg
			continue
		}
		converted, err := convertString(inputs[i].Type, s)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, inputs[i].Name, err)
		}
		out[i] = converted
	}
	return out, nil
}

func convertString(typ abi.Type, s string) (any, error) {
	switch typ.T {
	case abi.StringTy:
		return s, nil
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if typ.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %q for %s", s, typ)
		}
		target := typ.GetType()
		if target == bigIntType {
			if typ.T == abi.UintTy && n.BitLen() > typ.Size {
				return nil, fmt.Errorf("value %q overflows %s", s, typ)
			}
			return n, nil
		}
		var v reflect.Value
		switch {
		case typ.T == abi.UintTy && n.IsUint64():
			v = reflect.ValueOf(n.Uint64())
		case typ.T == abi.IntTy && n.IsInt64():
			v = reflect.ValueOf(n.Int64())
		default:
			return nil, fmt.Errorf("value %q overflows %s", s, typ)
		}
		if v.Convert(target).Convert(v.Type()).Interface() != v.Interface() {
			return nil, fmt.Errorf("value %q overflows %s", s, typ)
		}
		return v.Convert(target).Interface(), nil
	default:
		return nil, fmt.Errorf("cannot convert string to %s", typ)
	}
}
