package evaluator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goxq/pkg/types"
)

// ToValue converts a Go value to a sequence. It accepts items, sequences,
// booleans, strings, integers, floats, decimals and slices of those.
func ToValue(v any) (types.Value, error) {
	switch x := v.(type) {
	case nil:
		return types.Empty, nil
	case types.Value:
		return x, nil
	case types.Item:
		return types.Value{x}, nil
	case bool:
		return types.Value{types.Bln(x)}, nil
	case string:
		return types.Value{types.Str(x)}, nil
	case int:
		return types.Value{types.Int(x)}, nil
	case int32:
		return types.Value{types.Int(x)}, nil
	case int64:
		return types.Value{types.Int(x)}, nil
	case float32:
		return types.Value{types.Dbl(x)}, nil
	case float64:
		return types.Value{types.Dbl(x)}, nil
	case decimal.Decimal:
		return types.Value{types.Dec{V: x}}, nil
	case []types.Item:
		return types.Value(x), nil
	case []any:
		out := make(types.Value, 0, len(x))
		for i, e := range x {
			val, err := ToValue(e)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, val...)
		}
		return out, nil
	case []string:
		out := make(types.Value, len(x))
		for i, s := range x {
			out[i] = types.Str(s)
		}
		return out, nil
	case []int:
		out := make(types.Value, len(x))
		for i, n := range x {
			out[i] = types.Int(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}
