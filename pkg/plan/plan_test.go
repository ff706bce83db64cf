package plan_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/types"
)

func TestGoldenPlans(t *testing.T) {
	files, err := filepath.Glob("testdata/plans/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(file)
			require.NoError(t, err)
			q, err := plan.Compile(src)
			require.NoError(t, err)
			g.Assert(t, name, []byte(q.String()+"\n"))
		})
	}
}

func dec(s string) types.Dec {
	d, err := types.NewDec(s)
	if err != nil {
		panic(err)
	}
	return d
}

func literal(t *testing.T, src string) types.Value {
	t.Helper()
	p, err := plan.Parse([]byte(src))
	require.NoError(t, err)
	v, ok := p.Root.(*expr.Value)
	require.True(t, ok, "literal expected, got %T", p.Root)
	return v.Value
}

func TestScalars(t *testing.T) {
	tests := []struct {
		src  string
		want types.Item
	}{
		{`42`, types.Int(42)},
		{`1.5`, dec("1.5")},
		{`1e3`, types.Dbl(1000)},
		{`abc`, types.Str("abc")},
		{`"7"`, types.Str("7")},
		{`true`, types.Bln(true)},
		{`{int: "3"}`, types.Int(3)},
		{`{dbl: "2"}`, types.Dbl(2)},
		{`{str: 12}`, types.Str("12")},
		{`{untyped: "x"}`, types.Untyped("x")},
		{`{bool: "false"}`, types.Bln(false)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := literal(t, tt.src)
			require.Len(t, v, 1)
			assert.True(t, types.Equiv(tt.want, v[0], nil), "%s: got %s", tt.src, v)
			assert.Equal(t, tt.want.Type(), v[0].Type())
		})
	}

	assert.Empty(t, literal(t, `~`))
	assert.Empty(t, literal(t, `[]`))
}

func TestExternals(t *testing.T) {
	p, err := plan.Parse([]byte(`
let: a
be: {var: x}
return: [{var: a}, {var: x}, {var: y}]
`))
	require.NoError(t, err)
	require.Len(t, p.Externals, 2)
	assert.Equal(t, "x", p.Externals[0].Name)
	assert.Equal(t, "y", p.Externals[1].Name)

	q, err := p.Compile()
	require.NoError(t, err)
	assert.Contains(t, q.Externals, "x")
	assert.Contains(t, q.Externals, "y")
	assert.NotContains(t, q.Externals, "a")
}

func TestScopes(t *testing.T) {
	p, err := plan.Parse([]byte(`
for: i
in: [1, 2]
return:
  let: i
  be: {"+": [{var: i}, 1]}
  return: {var: i}
`))
	require.NoError(t, err)
	assert.Empty(t, p.Externals)

	f, ok := p.Root.(*expr.For)
	require.True(t, ok)
	l, ok := f.Return.(*expr.Let)
	require.True(t, ok)
	assert.NotSame(t, f.Var, l.Var)
	assert.Same(t, l.Var, l.Return.(*expr.VarRef).Var)
}

func TestCatchVariables(t *testing.T) {
	q, err := plan.Compile([]byte(`
try: {call: error, args: [{str: "my:code"}, {str: "boom"}]}
catch:
  - codes: ["my:*"]
    return: [{var: "err:code"}, {var: "err:description"}]
`))
	require.NoError(t, err)
	assert.Empty(t, q.Externals)
}

func TestPositions(t *testing.T) {
	_, err := plan.Compile([]byte(`{at: 17, "+": [{str: a}, 1]}`))
	var qe *types.Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, types.ErrTypeMismatch.Code(), qe.Code)
	assert.Equal(t, 17, qe.Position)
}

func TestMalformed(t *testing.T) {
	tests := map[string]string{
		"unknown":      `{frobnicate: 1}`,
		"missing then": `{if: true}`,
		"arity":        `{"+": [1]}`,
		"bad axis":     "path: ~\nsteps: [{axis: sideways}]",
		"bad int":      `{int: x}`,
		"no default":   "switch: 1\ncases: [{case: 1, return: 2}]",
		"no steps":     "path: ~\nsteps: []",
		"duplicate":    "{var: x, var: y}",
		"function":     "function: x\nbody: 1",
		"position":     `{at: here, ctx: ~}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := plan.Parse([]byte(src))
			require.Error(t, err)
		})
	}

	_, err := plan.Parse([]byte(`{frobnicate: 1}`))
	var pe *plan.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
}

func TestUnknownFunction(t *testing.T) {
	_, err := plan.Parse([]byte(`{call: nope}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XPST0017")
}

func TestParseFile(t *testing.T) {
	p, err := plan.ParseFile("testdata/plans/switch_const.yaml")
	require.NoError(t, err)
	assert.Equal(t, expr.KindSwitch, p.Root.Kind())

	_, err = plan.ParseFile("testdata/plans/missing.yaml")
	require.Error(t, err)
}
