package goxq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/types"
)

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		plan     string
		compiled string
		want     types.Value
	}{
		{
			name:     "for over range with neutral addition",
			plan:     `{for: i, in: {to: [1, 2]}, return: {"+": [{var: i}, 0]}}`,
			compiled: "1 to 2",
			want:     types.Value{types.Int(1), types.Int(2)},
		},
		{
			name:     "constant switch",
			plan:     `{switch: 2, cases: [{case: 1, return: a}, {case: 2, return: b}], default: c}`,
			compiled: `"b"`,
			want:     types.Value{types.Str("b")},
		},
		{
			name:     "try around division by zero",
			plan:     `{try: {div: [1, 0]}, catch: [{codes: ["*"], return: caught}]}`,
			compiled: `"caught"`,
			want:     types.Value{types.Str("caught")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := goxq.CompilePlan([]byte(tt.plan))
			require.NoError(t, err)
			assert.Equal(t, tt.compiled, q.String())

			seq, err := goxq.Eval(context.Background(), q, nil)
			require.NoError(t, err)
			v, err := seq.All()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalPlanOverDocument(t *testing.T) {
	doc, err := goxq.OpenXML(`<r><a>1</a><b><a>2</a></b></r>`)
	require.NoError(t, err)

	seq, err := goxq.EvalPlan(context.Background(), []byte(`{path: {root: ~}, steps: [{axis: descendant, test: a}]}`), doc)
	require.NoError(t, err)
	v, err := seq.All()
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.Equal(t, "1", v[0].(types.Node).StringValue())
	assert.Equal(t, "2", v[1].(types.Node).StringValue())
}

func TestMustCompile(t *testing.T) {
	q := goxq.MustCompile(expr.NewValue(-1, types.Value{types.Int(1)}))
	assert.Equal(t, "1", q.String())

	assert.Panics(t, func() {
		goxq.MustCompile(expr.NewArith(-1, types.CalcIDiv, expr.NewValue(-1, types.Value{types.Int(1)}), expr.NewValue(-1, types.Value{types.Int(0)})))
	})
}

func TestOpen(t *testing.T) {
	doc, err := goxq.OpenXML(`<r/>`)
	require.NoError(t, err)
	r := goxq.Open(doc.Accessor(), 1)
	assert.Equal(t, "r", r.Name())
	assert.True(t, r.Root().Is(doc))
	assert.NotEmpty(t, goxq.Version())
}
