package cliutil

import (
	"encoding"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

var (
	addressType  = reflect.TypeOf(common.Address{})
	durationType = reflect.TypeOf(time.Duration(0))
	bigIntType   = reflect.TypeOf(new(big.Int))
)

// PopulateStruct fills the fields of cfg tagged with `cli:"<flag-name>"` from ctx.
// Flags that were not set leave addresses, big integers and text-unmarshalled pointers
// untouched, so callers can pre-seed defaults.
func PopulateStruct(cfg any, ctx *cli.Context) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		flag := field.Tag.Get("cli")
		if flag == "" {
			continue
		}
		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		if err := setFieldValue(fieldValue, field.Type, ctx, flag); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setFieldValue(fieldValue reflect.Value, fieldType reflect.Type, ctx *cli.Context, flag string) error {
	switch {
	case fieldType == addressType:
		if !ctx.IsSet(flag) {
			return nil
		}
		addrStr := ctx.String(flag)
		if !common.IsHexAddress(addrStr) {
			return fmt.Errorf("invalid address: %s", addrStr)
		}
		fieldValue.Set(reflect.ValueOf(common.HexToAddress(addrStr)))
		return nil
	case fieldType == durationType:
		fieldValue.SetInt(int64(ctx.Duration(flag)))
		return nil
	case fieldType == bigIntType:
		if !ctx.IsSet(flag) {
			return nil
		}
		n, ok := new(big.Int).SetString(ctx.String(flag), 10)
		if !ok {
			return fmt.Errorf("invalid integer: %s", ctx.String(flag))
		}
		fieldValue.Set(reflect.ValueOf(n))
		return nil
	}

	switch fieldType.Kind() {
	case reflect.String:
		fieldValue.SetString(ctx.String(flag))
	case reflect.Bool:
		fieldValue.SetBool(ctx.Bool(flag))
	case reflect.Int, reflect.Int64:
		fieldValue.SetInt(ctx.Int64(flag))
	case reflect.Uint, reflect.Uint64:
		fieldValue.SetUint(ctx.Uint64(flag))
	case reflect.Ptr:
		if !ctx.IsSet(flag) {
			return nil
		}
		elem := reflect.New(fieldType.Elem())
		unmarshaler, ok := elem.Interface().(encoding.TextUnmarshaler)
		if !ok {
			return fmt.Errorf("unsupported pointer type: %v", fieldType)
		}
		if err := unmarshaler.UnmarshalText([]byte(ctx.String(flag))); err != nil {
			return err
		}
		fieldValue.Set(elem)
	default:
		return fmt.Errorf("unsupported type: %v", fieldType)
	}
	return nil
}
