package types_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/types"
)

func dec(t *testing.T, s string) types.Dec {
	t.Helper()
	d, err := types.NewDec(s)
	require.NoError(t, err)
	return d
}

func TestCalcEval(t *testing.T) {
	tests := []struct {
		name string
		calc types.Calc
		a, b types.Item
		want string
	}{
		{"integer add", types.CalcAdd, types.Int(2), types.Int(3), "5"},
		{"integer idiv truncates", types.CalcIDiv, types.Int(7), types.Int(2), "3"},
		{"negative idiv truncates", types.CalcIDiv, types.Int(-7), types.Int(2), "-3"},
		{"mod keeps sign of dividend", types.CalcMod, types.Int(-7), types.Int(2), "-1"},
		{"integer div is decimal", types.CalcDiv, types.Int(1), types.Int(4), "0.25"},
		{"decimal mul", types.CalcMul, dec(t, "1.5"), types.Int(2), "3"},
		{"decimal idiv", types.CalcIDiv, dec(t, "1.5"), dec(t, "0.5"), "3"},
		{"untyped promotes to double", types.CalcMul, types.Untyped("2"), types.Int(3), "6"},
		{"double div by zero is infinite", types.CalcDiv, types.Dbl(1), types.Dbl(0), "INF"},
		{"double mod", types.CalcMod, types.Dbl(5.5), types.Int(2), "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.calc.Eval(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCalcResultTypes(t *testing.T) {
	v, err := types.CalcDiv.Eval(types.Int(1), types.Int(2))
	require.NoError(t, err)
	assert.IsType(t, types.Dec{}, v)

	v, err = types.CalcMul.Eval(types.Untyped("2"), types.Int(3))
	require.NoError(t, err)
	assert.Equal(t, types.Dbl(6), v)

	assert.Equal(t, types.TypeInteger, types.CalcAdd.ResultType(types.TypeInteger, types.TypeInteger))
	assert.Equal(t, types.TypeDecimal, types.CalcDiv.ResultType(types.TypeInteger, types.TypeInteger))
	assert.Equal(t, types.TypeDouble, types.CalcAdd.ResultType(types.TypeInteger, types.TypeDouble))
	assert.Equal(t, types.TypeDouble, types.CalcSub.ResultType(types.TypeUntyped, types.TypeInteger))
	assert.Equal(t, types.TypeInteger, types.CalcIDiv.ResultType(types.TypeDouble, types.TypeDecimal))
	assert.Equal(t, types.TypeDecimal, types.CalcMul.ResultType(types.TypeDecimal, types.TypeInteger))
	assert.Equal(t, types.TypeAnyAtomic, types.CalcAdd.ResultType(types.TypeString, types.TypeInteger))
}

func TestCalcErrors(t *testing.T) {
	tests := []struct {
		name string
		calc types.Calc
		a, b types.Item
		code types.ErrorCode
	}{
		{"integer div by zero", types.CalcDiv, types.Int(1), types.Int(0), types.ErrDivByZero},
		{"integer idiv by zero", types.CalcIDiv, types.Int(1), types.Int(0), types.ErrDivByZero},
		{"integer mod by zero", types.CalcMod, types.Int(1), types.Int(0), types.ErrDivByZero},
		{"decimal div by zero", types.CalcDiv, dec(t, "1.5"), types.Int(0), types.ErrDivByZero},
		{"double idiv by zero", types.CalcIDiv, types.Dbl(1), types.Dbl(0), types.ErrDivByZero},
		{"add overflow", types.CalcAdd, types.Int(math.MaxInt64), types.Int(1), types.ErrNumericOverflow},
		{"sub overflow", types.CalcSub, types.Int(math.MinInt64), types.Int(1), types.ErrNumericOverflow},
		{"mul overflow", types.CalcMul, types.Int(math.MaxInt64), types.Int(2), types.ErrNumericOverflow},
		{"idiv overflow", types.CalcIDiv, types.Int(math.MinInt64), types.Int(-1), types.ErrNumericOverflow},
		{"idiv of infinity", types.CalcIDiv, types.Dbl(math.Inf(1)), types.Dbl(2), types.ErrNumericOverflow},
		{"string operand", types.CalcAdd, types.Str("1"), types.Int(1), types.ErrTypeMismatch},
		{"bad untyped", types.CalcAdd, types.Untyped("one"), types.Int(1), types.ErrInvalidCast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.calc.Eval(tt.a, tt.b)
			qe, ok := types.AsError(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.code.Code(), qe.Code)
		})
	}
}

func TestParseCalc(t *testing.T) {
	for _, c := range []types.Calc{types.CalcAdd, types.CalcSub, types.CalcMul, types.CalcDiv, types.CalcIDiv, types.CalcMod} {
		got, ok := types.ParseCalc(c.String())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := types.ParseCalc("**")
	assert.False(t, ok)
}

func TestDoubleFormatting(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "-0"},
		{1.5, "1.5"},
		{1e6, "1.0E6"},
		{-2.5e10, "-2.5E10"},
		{1.25e-7, "1.25E-7"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-INF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, types.Dbl(tt.f).String(), "%v", tt.f)
	}
	assert.Equal(t, "2e0", types.Value{types.Dbl(2)}.String())
	assert.Equal(t, `xs:double("1.5")`, types.Value{types.Dbl(1.5)}.String())
}
