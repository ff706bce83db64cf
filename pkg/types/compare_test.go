package types_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sandrolain/goxq/pkg/types"
)

// foldCollator compares strings case-insensitively.
type foldCollator struct{}

func (foldCollator) CompareString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func TestCompareGeneral(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Item
		op   types.CmpOp
		want bool
	}{
		{"untyped promoted to number", types.Untyped("10"), types.Int(9), types.OpGT, true},
		{"untyped against string compares text", types.Untyped("10"), types.Str("9"), types.OpLT, true},
		{"untyped promoted to boolean", types.Untyped("1"), types.Bln(true), types.OpEQ, true},
		{"boolean against untyped", types.Bln(false), types.Untyped("true"), types.OpLT, true},
		{"integer and decimal", types.Int(1), dec(t, "1.0"), types.OpEQ, true},
		{"decimal precision", dec(t, "0.1"), dec(t, "0.10000000000000001"), types.OpLT, true},
		{"integer and double", types.Int(2), types.Dbl(1.5), types.OpGE, true},
		{"NaN is unequal", types.Dbl(math.NaN()), types.Dbl(math.NaN()), types.OpEQ, false},
		{"NaN is not equal to itself", types.Dbl(math.NaN()), types.Dbl(math.NaN()), types.OpNE, true},
		{"strings", types.Str("abc"), types.Str("abd"), types.OpLT, true},
		{"booleans", types.Bln(true), types.Bln(false), types.OpGT, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.CompareGeneral(tt.a, tt.b, tt.op, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareErrors(t *testing.T) {
	_, err := types.CompareValues(types.Str("1"), types.Int(1), types.OpEQ, nil)
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrTypeMismatch.Code(), qe.Code)

	_, err = types.CompareGeneral(types.Untyped("maybe"), types.Bln(true), types.OpEQ, nil)
	qe, ok = types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrInvalidCast.Code(), qe.Code)
}

func TestCompareCollation(t *testing.T) {
	eq, err := types.CompareValues(types.Str("ABC"), types.Str("abc"), types.OpEQ, foldCollator{})
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = types.CompareValues(types.Str("ABC"), types.Str("abc"), types.OpEQ, nil)
	require.NoError(t, err)
	assert.False(t, eq)

	// "ä" sorts after "z" by codepoint but before it in German
	de := collate.New(language.German)
	lt, err := types.CompareValues(types.Str("ä"), types.Str("z"), types.OpLT, de)
	require.NoError(t, err)
	assert.True(t, lt)
	lt, err = types.CompareValues(types.Str("ä"), types.Str("z"), types.OpLT, nil)
	require.NoError(t, err)
	assert.False(t, lt)
}

func TestEquiv(t *testing.T) {
	assert.True(t, types.Equiv(types.Dbl(math.NaN()), types.Dbl(math.NaN()), nil))
	assert.True(t, types.Equiv(types.Int(1), dec(t, "1.0"), nil))
	assert.True(t, types.Equiv(types.Untyped("a"), types.Str("a"), nil))
	assert.True(t, types.Equiv(types.Str("A"), types.Str("a"), foldCollator{}))
	assert.False(t, types.Equiv(types.Str("1"), types.Int(1), nil))
	assert.False(t, types.Equiv(types.Bln(true), types.Int(1), nil))
}

func TestCmpOps(t *testing.T) {
	swaps := map[types.CmpOp]types.CmpOp{
		types.OpEQ: types.OpEQ, types.OpNE: types.OpNE,
		types.OpLT: types.OpGT, types.OpLE: types.OpGE,
		types.OpGT: types.OpLT, types.OpGE: types.OpLE,
	}
	for op, want := range swaps {
		assert.Equal(t, want, op.Swap(), op.String())
		got, ok := types.ParseCmpOp(op.String())
		require.True(t, ok)
		assert.Equal(t, op, got)
	}
	_, ok := types.ParseCmpOp("<>")
	assert.False(t, ok)
}

func TestNameTest(t *testing.T) {
	myX := types.QName{Prefix: "my", Local: "x"}
	yourX := types.QName{Prefix: "your", Local: "x"}
	bare := types.QName{Local: "x"}

	tests := []struct {
		test    string
		matches []types.QName
		misses  []types.QName
	}{
		{"*", []types.QName{myX, yourX, bare}, nil},
		{"my:*", []types.QName{myX}, []types.QName{yourX, bare}},
		{"*:x", []types.QName{myX, yourX, bare}, nil},
		{"my:x", []types.QName{myX}, []types.QName{yourX, bare}},
		{"x", []types.QName{bare}, []types.QName{myX}},
	}
	for _, tt := range tests {
		t.Run(tt.test, func(t *testing.T) {
			nt := types.ParseNameTest(tt.test)
			assert.Equal(t, tt.test, nt.String())
			for _, n := range tt.matches {
				assert.True(t, nt.Matches(n), n.String())
			}
			for _, n := range tt.misses {
				assert.False(t, nt.Matches(n), n.String())
			}
		})
	}

	assert.Equal(t, types.QName{Local: "x"}, types.ParseQName("x"))
	assert.Equal(t, myX, types.ParseQName("my:x"))
	assert.True(t, types.ParseNameTest("x").Matches(types.ParseQName("x")))
	assert.False(t, types.ParseNameTest("x").Matches(types.ErrorCode("x").Code()))

	assert.True(t, types.AnyName.Subsumes(types.ParseNameTest("my:*")))
	assert.True(t, types.ParseNameTest("my:*").Subsumes(types.ParseNameTest("my:x")))
	assert.False(t, types.ParseNameTest("my:x").Subsumes(types.ParseNameTest("my:*")))
	assert.False(t, types.ParseNameTest("my:*").Subsumes(types.ParseNameTest("*:x")))
}

func TestErrorClassification(t *testing.T) {
	qe := types.NewError(types.ErrDivByZero, "division by zero", -1)
	assert.Equal(t, "err:FOAR0001: division by zero", qe.Error())
	qe.WithPosition(3).WithPosition(9)
	assert.Equal(t, 3, qe.Position)
	assert.Equal(t, "err:FOAR0001 at position 3: division by zero", qe.Error())

	wrapped := fmt.Errorf("evaluating: %w", qe)
	got, ok := types.AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, qe, got)
	assert.True(t, types.IsCatchable(wrapped))

	assert.False(t, types.IsCatchable(types.NotExpected("unreachable %d", 1)))
	assert.False(t, types.IsCatchable(context.Canceled))
	assert.False(t, types.IsCatchable(fmt.Errorf("stop: %w", context.DeadlineExceeded)))

	cause := errors.New("io")
	assert.ErrorIs(t, types.NewError(types.ErrUserError, "x", -1).WithCause(cause), cause)
}
