package expr_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/types"
)

func TestDeferredError(t *testing.T) {
	x := expr.NewVar("x")
	q := compile(t, expr.NewIf(-1, ref(x), expr.NewArith(7, types.CalcDiv, num(1), num(0)), num(2)))

	assert.Contains(t, codes(q), expr.OptError)
	assert.Equal(t, types.SeqIntegerO, q.Root.SeqType())

	v := eval(t, q, env{vars: map[*expr.Var]types.Value{x: {types.Bln(false)}}})
	assert.Equal(t, ints(2), v)

	_, err1 := run(q, env{vars: map[*expr.Var]types.Value{x: {types.Bln(true)}}})
	_, err2 := run(q, env{vars: map[*expr.Var]types.Value{x: {types.Bln(true)}}})
	qe1, ok := types.AsError(err1)
	require.True(t, ok, "%v", err1)
	qe2, ok := types.AsError(err2)
	require.True(t, ok)
	assert.Equal(t, types.ErrDivByZero.Code(), qe1.Code)
	assert.Equal(t, 7, qe1.Position)
	assert.Same(t, qe1, qe2)
}

func TestInlinedErrorIsDeferred(t *testing.T) {
	x, b, c := expr.NewVar("x"), expr.NewVar("b"), expr.NewVar("c")
	q := compile(t, expr.NewLet(-1, x, num(0),
		expr.NewAnd(-1, ref(b), expr.NewArith(5, types.CalcIDiv, num(1), ref(x)), ref(c))))

	l, ok := q.Root.(*expr.Logical)
	require.True(t, ok, q.String())
	require.Len(t, l.Exprs, 2, "operands after the error are dead")
	r, ok := l.Exprs[1].(*expr.Raise)
	require.True(t, ok, q.String())
	assert.Equal(t, types.ErrDivByZero.Code(), r.Err.Code)
	assert.Contains(t, codes(q), expr.OptError)

	v := eval(t, q, env{vars: map[*expr.Var]types.Value{b: {types.Bln(false)}}})
	assert.Equal(t, types.Value{types.Bln(false)}, v)
	_, err := run(q, env{vars: map[*expr.Var]types.Value{b: {types.Bln(true)}}})
	qe, ok := types.AsError(err)
	require.True(t, ok, "%v", err)
	assert.Same(t, r.Err, qe)
}

func TestInlinedErrorInFirstOperand(t *testing.T) {
	x, b := expr.NewVar("x"), expr.NewVar("b")
	_, err := expr.Compile(expr.NewLet(-1, x, num(0),
		expr.NewAnd(-1, expr.NewArith(5, types.CalcIDiv, num(1), ref(x)), ref(b))))
	qe, ok := types.AsError(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, types.ErrDivByZero.Code(), qe.Code)
}

func TestTryAroundInlinedError(t *testing.T) {
	handled := func() *expr.Catch { return expr.NewCatch([]types.NameTest{types.AnyName}, str("handled")) }
	b := expr.NewVar("b")
	body := func(first bool) expr.Expr {
		x := expr.NewVar("x")
		failing := expr.NewArith(-1, types.CalcIDiv, num(1), ref(x))
		and := expr.NewAnd(-1, ref(b), failing)
		if first {
			and = expr.NewAnd(-1, failing, ref(b))
		}
		return expr.NewLet(-1, x, num(0), and)
	}

	// the error is raised at compile time and caught immediately
	q := compile(t, expr.NewTry(-1, body(true), handled()))
	assert.Equal(t, `"handled"`, q.String())

	q = compile(t, expr.NewTry(-1, body(false), handled()))
	require.Equal(t, expr.KindTry, q.Root.Kind(), q.String())
	v := eval(t, q, env{vars: map[*expr.Var]types.Value{b: {types.Bln(true)}}})
	assert.Equal(t, types.Value{types.Str("handled")}, v)
	v = eval(t, q, env{vars: map[*expr.Var]types.Value{b: {types.Bln(false)}}})
	assert.Equal(t, types.Value{types.Bln(false)}, v)

	// the binding is inlined into the guarded expression
	x := expr.NewVar("x")
	guarded := expr.NewAnd(-1, expr.NewArith(-1, types.CalcIDiv, num(1), ref(x)), ref(b))
	q = compile(t, expr.NewLet(-1, x, num(0), expr.NewTry(-1, guarded, handled())))
	assert.Equal(t, `"handled"`, q.String())
}

func TestSharedErrorKeepsPosition(t *testing.T) {
	shared := types.NewError(types.ErrUserError, "shared", -1)
	y := typedVar("y", types.TypeInteger, types.OccOne)
	raise := expr.NewCompileContext().Error(shared, ref(y))
	q := compile(t, expr.NewArith(4, types.CalcAdd, raise, num(1)))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := run(q, env{})
			qe, ok := types.AsError(err)
			if assert.True(t, ok, "%v", err) {
				assert.Equal(t, 4, qe.Position)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, -1, shared.Position)
}

func TestStrictCompileError(t *testing.T) {
	_, err := expr.Compile(expr.NewArith(3, types.CalcIDiv, num(1), num(0)))
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrDivByZero.Code(), qe.Code)
	assert.Equal(t, 3, qe.Position)
}

func TestLogicalShortCircuit(t *testing.T) {
	x := expr.NewVar("x")
	q := compile(t, expr.NewAnd(-1, ref(x), call(t, "error")))
	v := eval(t, q, env{vars: map[*expr.Var]types.Value{x: {types.Bln(false)}}})
	assert.Equal(t, types.Value{types.Bln(false)}, v)

	_, err := run(q, env{vars: map[*expr.Var]types.Value{x: {types.Bln(true)}}})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUserError.Code(), qe.Code)

	q = compile(t, expr.NewOr(-1, ref(x), call(t, "error")))
	v = eval(t, q, env{vars: map[*expr.Var]types.Value{x: {types.Str("yes")}}})
	assert.Equal(t, types.Value{types.Bln(true)}, v)
}

func TestTryAtRuntime(t *testing.T) {
	c := expr.NewCatch([]types.NameTest{types.ParseNameTest("my:*")}, nil)
	c.Expr = expr.NewList(-1, ref(c.Code), ref(c.Desc), ref(c.Val))
	raise := call(t, "error", str("my:x"), str("boom"), expr.NewList(-1, num(1), num(2)))
	q := compile(t, expr.NewTry(-1, raise, c))

	v := eval(t, q, env{})
	assert.Equal(t, types.Value{types.Str("my:x"), types.Str("boom"), types.Int(1), types.Int(2)}, v)

	other := expr.NewCatch([]types.NameTest{types.ParseNameTest("my:*")}, num(0))
	q = compile(t, expr.NewTry(-1, call(t, "error", str("your:x")), other))
	_, err := run(q, env{})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.QName{Prefix: "your", Local: "x"}, qe.Code)
}

func TestHandlerErrorsNotCaught(t *testing.T) {
	inner := expr.NewCatch([]types.NameTest{types.AnyName}, call(t, "error", str("err:second")))
	q := compile(t, expr.NewTry(-1, call(t, "error", str("err:first")), inner))
	_, err := run(q, env{})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "second", qe.Code.Local)
}

func TestTryDoesNotCatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	i := expr.NewVar("i")
	loop := expr.NewFor(-1, i, expr.NewRange(-1, num(1), num(1000)), expr.NewArith(-1, types.CalcMul, ref(i), num(2)))
	c := expr.NewCatch([]types.NameTest{types.AnyName}, num(0))
	q := compile(t, expr.NewTry(-1, loop, c))

	_, err := run(q, env{ctx: ctx})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLazyEvaluation(t *testing.T) {
	q := compile(t, expr.NewList(-1, num(1), call(t, "error")))
	qc := expr.NewQueryContext(context.Background(), q, nil)
	it := q.Root.Iter(qc)

	item, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, types.Int(1), item)
	_, err = it.Next()
	require.Error(t, err)

	// taking the first item of a huge range does not enumerate it
	r := compile(t, expr.NewFilter(-1, expr.NewRange(-1, num(1), num(1<<40)), num(1)))
	it = r.Root.Iter(expr.NewQueryContext(context.Background(), r, nil))
	item, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, types.Int(1), item)
}

func TestCatchUnprefixedCode(t *testing.T) {
	bare := func() *expr.Catch { return expr.NewCatch([]types.NameTest{types.ParseNameTest("x")}, str("bare")) }
	builtin := func() *expr.Catch {
		return expr.NewCatch([]types.NameTest{types.ParseNameTest("err:x")}, str("builtin"))
	}

	q := compile(t, expr.NewTry(-1, call(t, "error", str("x")), builtin(), bare()))
	assert.Equal(t, types.Value{types.Str("bare")}, eval(t, q, env{}))

	q = compile(t, expr.NewTry(-1, call(t, "error", str("err:x")), bare(), builtin()))
	assert.Equal(t, types.Value{types.Str("builtin")}, eval(t, q, env{}))
}

func TestMissingContext(t *testing.T) {
	q := compile(t, expr.NewContextValue(5))
	_, err := run(q, env{})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNoContext.Code(), qe.Code)
	assert.Equal(t, 5, qe.Position)

	v := eval(t, q, env{focus: types.Int(3)})
	assert.Equal(t, ints(3), v)
}

func TestUnboundVariable(t *testing.T) {
	x := expr.NewVar("x")
	q := compile(t, ref(x))
	_, err := run(q, env{})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUndefinedVariable.Code(), qe.Code)
}

func TestTypeErrors(t *testing.T) {
	x := expr.NewVar("x")
	q := compile(t, expr.NewArith(-1, types.CalcAdd, ref(x), num(1)))
	_, err := run(q, env{vars: map[*expr.Var]types.Value{x: ints(1, 2)}})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrTypeMismatch.Code(), qe.Code)

	v := eval(t, q, env{vars: map[*expr.Var]types.Value{x: {types.Untyped("41")}}})
	assert.Equal(t, types.Value{types.Dbl(42)}, v)

	v = eval(t, q, env{vars: map[*expr.Var]types.Value{x: types.Empty}})
	assert.Empty(t, v)
}

func TestSwitchAtRuntime(t *testing.T) {
	x := expr.NewVar("x")
	sw, err := expr.NewSwitch(-1, ref(x),
		&expr.SwitchGroup{Cases: []expr.Expr{expr.NewValue(-1, types.Empty)}, Return: str("empty")},
		&expr.SwitchGroup{Cases: []expr.Expr{num(1), str("one")}, Return: str("first")},
		&expr.SwitchGroup{Return: str("other")},
	)
	require.NoError(t, err)
	q := compile(t, sw)

	tests := []struct {
		in   types.Value
		want string
	}{
		{types.Empty, "empty"},
		{types.Value{types.Dbl(1)}, "first"},
		{types.Value{types.Untyped("one")}, "first"},
		{types.Value{types.Str("two")}, "other"},
	}
	for _, tt := range tests {
		v := eval(t, q, env{vars: map[*expr.Var]types.Value{x: tt.in}})
		assert.Equal(t, types.Value{types.Str(tt.want)}, v, tt.in.String())
	}
}

func TestOutputAndRandom(t *testing.T) {
	q := compile(t, expr.NewList(-1, call(t, "output", str("side")), call(t, "random")))
	qc := expr.NewQueryContext(context.Background(), q, nil)
	v, err := types.Collect(q.Root.Iter(qc))
	require.NoError(t, err)
	require.Len(t, v, 1)
	f, ok := v[0].(types.Dbl)
	require.True(t, ok)
	assert.True(t, f >= 0 && f < 1)
	assert.Equal(t, types.Value{types.Str("side")}, qc.Output())
}

func TestInternalErrorsAreFatal(t *testing.T) {
	var ie *types.InternalError
	_, err := expr.NewSwitch(-1, num(1))
	assert.True(t, errors.As(err, &ie))
}
