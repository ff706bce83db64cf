package expr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/types"
)

func num(n int64) expr.Expr     { return expr.NewValue(-1, types.Value{types.Int(n)}) }
func str(s string) expr.Expr    { return expr.NewValue(-1, types.Value{types.Str(s)}) }
func bln(b bool) expr.Expr      { return expr.NewValue(-1, types.Value{types.Bln(b)}) }
func ref(v *expr.Var) expr.Expr { return expr.NewVarRef(-1, v) }

func typedVar(name string, t types.Type, o types.Occ) *expr.Var {
	v := expr.NewVar(name)
	v.Type = types.NewSeqType(t, o)
	return v
}

func call(t *testing.T, name string, args ...expr.Expr) expr.Expr {
	t.Helper()
	f, err := expr.NewFunc(name, -1, args...)
	require.NoError(t, err)
	return f
}

func compile(t *testing.T, e expr.Expr, opts ...expr.CompileOption) *expr.Query {
	t.Helper()
	q, err := expr.Compile(e, opts...)
	require.NoError(t, err)
	return q
}

// env is the dynamic environment of a test evaluation.
type env struct {
	ctx   context.Context
	focus types.Item
	vars  map[*expr.Var]types.Value
}

func run(q *expr.Query, e env) (types.Value, error) {
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	qc := expr.NewQueryContext(e.ctx, q, nil)
	for v, val := range e.vars {
		qc = qc.Bind(v, val)
	}
	if e.focus != nil {
		qc = qc.WithFocus(e.focus, 1)
	}
	return types.Collect(q.Root.Iter(qc))
}

func eval(t *testing.T, q *expr.Query, e env) types.Value {
	t.Helper()
	v, err := run(q, e)
	require.NoError(t, err)
	return v
}

func codes(q *expr.Query) []string {
	out := make([]string, len(q.Diagnostics))
	for i, d := range q.Diagnostics {
		out[i] = d.Code
	}
	return out
}

func ints(ns ...int64) types.Value {
	v := make(types.Value, len(ns))
	for i, n := range ns {
		v[i] = types.Int(n)
	}
	return v
}
