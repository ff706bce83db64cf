package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/storage"
	"github.com/sandrolain/goxq/pkg/types"
)

// 0 doc
// 1   r @x=2
// 3     a
// 4       b
// 5         "t"
// 6     a @y=7
// 8       b
const nestedXML = `<r x="1"><a><b>t</b></a><a y="2"><b/></a></r>`

func doc(t *testing.T) *nav.Node {
	t.Helper()
	table, err := storage.ParseXMLString(nestedXML)
	require.NoError(t, err)
	require.Equal(t, 9, table.Len())
	return nav.Open(table, 0)
}

func step(axis nav.Axis, name string, preds ...expr.Expr) *expr.Step {
	return expr.NewStep(-1, axis, expr.NameTest(axis, name), preds...)
}

func kindStep(axis nav.Axis, t types.Type) *expr.Step {
	return expr.NewStep(-1, axis, expr.NodeTest{Type: t})
}

func rooted(steps ...*expr.Step) expr.Expr {
	return expr.NewPath(-1, expr.NewRoot(-1), steps...)
}

func pres(t *testing.T, v types.Value) []int {
	t.Helper()
	out := []int{}
	for _, it := range v {
		n, ok := it.(*nav.Node)
		require.True(t, ok, "node expected, got %s", it)
		out = append(out, n.Pre())
	}
	return out
}

func TestPathOrder(t *testing.T) {
	d := doc(t)
	tests := []struct {
		name string
		path expr.Expr
		ddo  bool
		want []int
	}{
		{"child chain", rooted(step(nav.AxisChild, "r"), step(nav.AxisChild, "a"), step(nav.AxisChild, "b")), true, []int{4, 8}},
		{"descendant then child", rooted(step(nav.AxisDescendant, "a"), step(nav.AxisChild, "b")), false, []int{4, 8}},
		{"ancestors", rooted(step(nav.AxisDescendant, "b"), kindStep(nav.AxisAncestor, types.TypeNode)), false, []int{0, 1, 3, 6}},
		{"parents", rooted(step(nav.AxisDescendant, "b"), kindStep(nav.AxisParent, types.TypeNode)), false, []int{3, 6}},
		{"single parent", rooted(kindStep(nav.AxisSelf, types.TypeNode), kindStep(nav.AxisParent, types.TypeNode)), true, []int{}},
		{"attributes", rooted(step(nav.AxisDescendantOrSelf, "*"), step(nav.AxisAttribute, "*")), true, []int{2, 7}},
		{"text", rooted(kindStep(nav.AxisDescendant, types.TypeText)), true, []int{5}},
		{"following siblings", rooted(step(nav.AxisChild, "r"), step(nav.AxisChild, "a"), kindStep(nav.AxisFollowingSibling, types.TypeNode)), false, []int{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := compile(t, tt.path)
			require.Equal(t, expr.KindPath, q.Root.Kind(), q.String())
			assert.Equal(t, tt.ddo, q.Root.DDO())
			assert.Equal(t, tt.want, pres(t, eval(t, q, env{focus: d})))
		})
	}
}

func TestPathPredicates(t *testing.T) {
	d := doc(t)

	// positions are counted per context node
	q := compile(t, rooted(step(nav.AxisDescendant, "a", num(2))))
	assert.Equal(t, []int{6}, pres(t, eval(t, q, env{focus: d})))

	q = compile(t, rooted(step(nav.AxisDescendant, "a"), step(nav.AxisChild, "b", num(1))))
	assert.Equal(t, []int{4, 8}, pres(t, eval(t, q, env{focus: d})))

	hasY := expr.NewPath(-1, nil, step(nav.AxisAttribute, "y"))
	q = compile(t, rooted(step(nav.AxisDescendant, "a", hasY)))
	assert.Equal(t, []int{6}, pres(t, eval(t, q, env{focus: d})))

	q = compile(t, rooted(step(nav.AxisDescendant, "a", bln(false))))
	assert.Equal(t, "()", q.String())
}

func TestPathStatic(t *testing.T) {
	q := compile(t, rooted(step(nav.AxisAttribute, "x"), step(nav.AxisChild, "a")))
	assert.Equal(t, "()", q.String())

	q = compile(t, rooted(kindStep(nav.AxisDescendant, types.TypeText), kindStep(nav.AxisDescendant, types.TypeNode)))
	assert.Equal(t, "()", q.String())

	q = compile(t, rooted(step(nav.AxisChild, "r"), step(nav.AxisAttribute, "x")))
	assert.Equal(t, "/child::r/attribute::x", q.String())

	_, err := expr.Compile(expr.NewPath(-1, num(1), step(nav.AxisChild, "a")))
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrPathNotNode.Code(), qe.Code)
}

func TestPathContext(t *testing.T) {
	q := compile(t, expr.NewPath(-1, nil, step(nav.AxisChild, "a")))

	_, err := run(q, env{focus: types.Int(1)})
	qe, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrContextNotNode.Code(), qe.Code)

	r := nav.Open(doc(t).Accessor(), 1)
	assert.Equal(t, []int{3, 6}, pres(t, eval(t, q, env{focus: r})))

	q = compile(t, expr.NewRoot(-1))
	_, err = run(q, env{focus: types.Str("x")})
	qe, ok = types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrContextNotNode.Code(), qe.Code)
}

func TestPathOverVariable(t *testing.T) {
	d := doc(t)
	x := expr.NewVar("x")
	q := compile(t, expr.NewPath(-1, ref(x), step(nav.AxisChild, "b")))
	assert.False(t, q.Root.DDO())

	as := compile(t, rooted(step(nav.AxisDescendant, "a")))
	nodes := eval(t, as, env{focus: d})
	reversed := types.Value{nodes[1], nodes[0]}
	assert.Equal(t, []int{4, 8}, pres(t, eval(t, q, env{vars: map[*expr.Var]types.Value{x: reversed}})))
}

func TestPathAcrossDocuments(t *testing.T) {
	d1, d2 := doc(t), doc(t)
	as := compile(t, rooted(step(nav.AxisDescendant, "a")))
	first := eval(t, as, env{focus: d1})
	second := eval(t, as, env{focus: d2})

	x := expr.NewVar("x")
	q := compile(t, expr.NewPath(-1, ref(x), step(nav.AxisChild, "b")))
	mixed := types.Value{second[0], first[1], first[0], second[1]}
	got := eval(t, q, env{vars: map[*expr.Var]types.Value{x: mixed}})

	owners := make([]storage.Accessor, len(got))
	for i, item := range got {
		owners[i] = item.(*nav.Node).Accessor()
	}
	acc1, acc2 := d1.Accessor(), d2.Accessor()
	assert.Equal(t, []storage.Accessor{acc1, acc1, acc2, acc2}, owners)
	assert.Equal(t, []int{4, 8, 4, 8}, pres(t, got))
}
