package evaluator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/evaluator"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/storage"
	"github.com/sandrolain/goxq/pkg/types"
)

func strs(v types.Value) []string {
	out := make([]string, len(v))
	for i, it := range v {
		if n, ok := it.(types.Node); ok {
			out[i] = n.StringValue()
			continue
		}
		out[i] = it.String()
	}
	return out
}

func document(t *testing.T, xml string) *nav.Node {
	t.Helper()
	table, err := storage.ParseXMLString(xml)
	require.NoError(t, err)
	return nav.Open(table, 0)
}

func TestEvalPlan(t *testing.T) {
	ev := evaluator.New()
	doc := document(t, `<r><b>1</b><c><b>2</b></c></r>`)

	seq, err := ev.EvalPlan(context.Background(), []byte(`
path: {root: ~}
steps:
  - {axis: descendant, test: b}
`), doc, nil)
	require.NoError(t, err)
	v, err := seq.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, strs(v))
}

func TestEvalWithBindings(t *testing.T) {
	ev := evaluator.New()
	q, err := plan.Compile([]byte(`{"*": [{var: x}, {var: y}]}`))
	require.NoError(t, err)

	v, err := ev.Collect(context.Background(), q, nil, map[string]any{"x": 6, "y": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, types.Value{types.Int(42)}, v)

	_, err = ev.Collect(context.Background(), q, nil, map[string]any{"x": 1})
	require.ErrorIs(t, err, evaluator.ErrMissingExternal)

	_, err = ev.Collect(context.Background(), q, nil, map[string]any{"x": 1, "y": struct{}{}})
	require.Error(t, err)
}

func TestLazyResult(t *testing.T) {
	ev := evaluator.New()
	seq, err := ev.EvalPlan(context.Background(), []byte(`[1, {call: error, args: [{str: "err:FOER0000"}, {str: "stop"}]}]`), nil, nil)
	require.NoError(t, err)

	item, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, types.Int(1), item)

	_, err = seq.Next()
	var qe *types.Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, types.ErrUserError.Code(), qe.Code)
	assert.Equal(t, "stop", qe.Message)
	assert.Same(t, err, seq.Err())
}

func TestTimeout(t *testing.T) {
	ev := evaluator.New(evaluator.WithTimeout(time.Nanosecond))
	seq, err := ev.EvalPlan(context.Background(), []byte(`{to: [1, 1000000000]}`), nil, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	_, err = seq.All()
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelDuringIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := evaluator.New(evaluator.WithTimeout(0))
	seq, err := ev.EvalPlan(ctx, []byte(`
for: i
in: {to: [1, 1000000000]}
return: {"+": [{var: i}, 1]}
`), nil, nil)
	require.NoError(t, err)

	item, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, types.Int(2), item)
	cancel()
	_, err = seq.Next()
	require.ErrorIs(t, err, context.Canceled)
}

func TestCaching(t *testing.T) {
	ev := evaluator.New(evaluator.WithCaching(true), evaluator.WithCacheSize(8))
	require.NotNil(t, ev.Cache())
	src := []byte(`{"+": [1, 2]}`)

	q1, err := ev.Compile(src)
	require.NoError(t, err)
	q2, err := ev.Compile(src)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
	assert.Equal(t, 1, ev.Cache().Len())

	assert.Nil(t, evaluator.New().Cache())
}

func TestOutput(t *testing.T) {
	ev := evaluator.New()
	seq, err := ev.EvalPlan(context.Background(), []byte(`[{call: output, args: [{str: "log"}]}, 1]`), nil, nil)
	require.NoError(t, err)
	v, err := seq.All()
	require.NoError(t, err)
	assert.Equal(t, types.Value{types.Int(1)}, v)
	assert.Equal(t, types.Value{types.Str("log")}, seq.Output())
}

func TestContextItem(t *testing.T) {
	ev := evaluator.New()
	q, err := plan.Compile([]byte(`{ctx: ~}`))
	require.NoError(t, err)

	v, err := ev.Collect(context.Background(), q, "here", nil)
	require.NoError(t, err)
	assert.Equal(t, types.Value{types.Str("here")}, v)

	_, err = ev.Collect(context.Background(), q, nil, nil)
	var qe *types.Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, types.ErrNoContext.Code(), qe.Code)

	_, err = ev.Collect(context.Background(), q, []any{1, 2}, nil)
	require.Error(t, err)
}

func TestToValue(t *testing.T) {
	v, err := evaluator.ToValue([]any{1, "a", true, 1.5, nil, []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, types.Value{types.Int(1), types.Str("a"), types.Bln(true), types.Dbl(1.5), types.Str("x")}, v)

	_, err = evaluator.ToValue(map[string]any{})
	require.Error(t, err)
}
