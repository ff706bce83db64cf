package expr

import (
	"sort"
	"strings"

	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/types"
)

// NodeTest restricts the nodes selected by a step.
type NodeTest struct {
	// Type is the node kind; TypeNode matches all kinds.
	Type types.Type
	// Name is the required node name, or empty for any name.
	Name string
}

// AnyNode matches every node.
var AnyNode = NodeTest{Type: types.TypeNode}

// NameTest returns a test for nodes of the principal kind of axis a with the
// given name. "*" matches any name.
func NameTest(a nav.Axis, name string) NodeTest {
	t := NodeTest{Type: types.TypeElement}
	if a == nav.AxisAttribute {
		t.Type = types.TypeAttribute
	}
	if name != types.Wildcard {
		t.Name = name
	}
	return t
}

// Matches reports whether n passes the test.
func (t NodeTest) Matches(n *nav.Node) bool {
	return n.Type().InstanceOf(t.Type) && (t.Name == "" || n.Name() == t.Name)
}

func (t NodeTest) String() string {
	switch {
	case t.Name != "" && (t.Type == types.TypeElement || t.Type == types.TypeAttribute):
		return t.Name
	case t.Type == types.TypeElement || t.Type == types.TypeAttribute:
		return "*"
	}
	return strings.TrimPrefix(t.Type.String(), "xs:")
}

// Step is an axis step with a node test and predicates. It is evaluated with
// a node as focus.
type Step struct {
	base
	Axis  nav.Axis
	Test  NodeTest
	Preds []Expr
}

// NewStep returns an axis step.
func NewStep(pos int, axis nav.Axis, test NodeTest, preds ...Expr) *Step {
	s := &Step{base: newBase(pos, types.SeqNodeZM), Axis: axis, Test: test, Preds: preds}
	s.st = s.stepType()
	return s
}

func (s *Step) stepType() types.SeqType {
	occ := types.OccZeroOrMore
	switch s.Axis {
	case nav.AxisSelf, nav.AxisParent:
		occ = types.OccZeroOrOne
	case nav.AxisAttribute:
		if s.Test.Name != "" {
			occ = types.OccZeroOrOne
		}
	}
	t := s.Test.Type
	if s.Axis == nav.AxisAttribute && t == types.TypeNode {
		t = types.TypeAttribute
	}
	return types.NewSeqType(t, occ)
}

// Kind implements Expr.
func (s *Step) Kind() Kind { return KindStep }

// Compile implements Expr.
func (s *Step) Compile(cc *CompileContext) (Expr, error) {
	if err := compilePreds(cc, s.Preds, s.stepType()); err != nil {
		return nil, err
	}
	return s.Optimize(cc)
}

// Optimize implements Expr.
func (s *Step) Optimize(cc *CompileContext) (Expr, error) {
	preds, ok := optimizePreds(cc, s.Preds)
	if !ok {
		return cc.ReplaceWith(s, NewValue(s.pos, types.Empty)), nil
	}
	s.Preds = preds
	s.st = s.stepType()
	for _, p := range preds {
		if _, ok := intLiteral(p); ok {
			s.st = s.st.With(types.OccZeroOrOne)
		}
	}
	return s, nil
}

// vacuousAfter reports whether the step never yields nodes when applied to
// nodes of type t.
func (s *Step) vacuousAfter(t types.Type) bool {
	leaf := t == types.TypeAttribute || t == types.TypeText || t == types.TypeComment || t == types.TypePI
	switch s.Axis {
	case nav.AxisChild, nav.AxisDescendant, nav.AxisAttribute:
		return leaf
	}
	return false
}

// Inline implements Expr.
func (s *Step) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	cc.PushFocus(s.stepType().With(types.OccOne))
	changed, err := inlineStrict(cc, s.Preds, t, repl)
	cc.RemoveFocus()
	if err != nil || !changed {
		return nil, err
	}
	return s.Optimize(cc)
}

// Iter implements Expr.
func (s *Step) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		item, err := qc.contextItem(s.pos)
		if err != nil {
			return nil, err
		}
		n, ok := item.(*nav.Node)
		if !ok {
			return nil, types.Errorf(types.ErrContextNotNode, s.pos, "context value is not a node: %s", item)
		}
		return s.from(n, qc), nil
	})
}

// from applies the step to n.
func (s *Step) from(n *nav.Node, qc *QueryContext) types.Iter {
	axis := n.Iter(s.Axis)
	var it types.Iter = types.IterFunc(func() (types.Item, error) {
		for c := axis.Next(); c != nil; c = axis.Next() {
			if s.Test.Matches(c) {
				return c, nil
			}
		}
		return nil, nil
	})
	for _, p := range s.Preds {
		it = &predIter{in: it, pred: p, qc: qc}
	}
	return it
}

// Has implements Expr.
func (s *Step) Has(flags ...Flag) bool {
	for _, f := range flags {
		if f == FlagCTX {
			return true
		}
	}
	inner := without(flags, FlagCTX, FlagPOS)
	return len(inner) > 0 && hasAny(s.Preds, inner)
}

// Inlineable implements Expr.
func (s *Step) Inlineable(v *Var) bool { return countAll(s.Preds, v) == UsageNever }

// Count implements Expr.
func (s *Step) Count(v *Var) VarUsage {
	return countAll(s.Preds, v).Times(types.OccZeroOrMore)
}

// Copy implements Expr.
func (s *Step) Copy() Expr {
	c := *s
	c.Preds = copyAll(s.Preds)
	return &c
}

// Equal implements Expr.
func (s *Step) Equal(o Expr) bool {
	os, ok := o.(*Step)
	return ok && os.Axis == s.Axis && os.Test == s.Test && equalAll(s.Preds, os.Preds)
}

func (s *Step) String() string {
	var sb strings.Builder
	sb.WriteString(s.Axis.String() + "::" + s.Test.String())
	for _, p := range s.Preds {
		sb.WriteString("[" + p.String() + "]")
	}
	return sb.String()
}

// Path is a location path. A nil Root starts at the context node.
type Path struct {
	base
	Root  Expr
	Steps []*Step
	ddo   bool
}

// NewPath returns a location path.
func NewPath(pos int, root Expr, steps ...*Step) *Path {
	return &Path{base: newBase(pos, types.SeqNodeZM), Root: root, Steps: steps}
}

// Kind implements Expr.
func (p *Path) Kind() Kind { return KindPath }

func (p *Path) rootType(cc *CompileContext) types.SeqType {
	if p.Root != nil {
		return p.Root.SeqType()
	}
	if st, ok := cc.Focus(); ok {
		return st.With(types.OccOne)
	}
	return types.SeqItemO
}

// Compile implements Expr.
func (p *Path) Compile(cc *CompileContext) (Expr, error) {
	if p.Root != nil {
		root, err := p.Root.Compile(cc)
		if err != nil {
			return nil, err
		}
		p.Root = root
	}
	st := p.rootType(cc)
	for i, s := range p.Steps {
		cc.PushFocus(st.With(types.OccOne))
		e, err := s.Compile(cc)
		cc.RemoveFocus()
		if err != nil {
			return nil, err
		}
		step, ok := e.(*Step)
		if !ok {
			// a step was statically empty
			return cc.ReplaceWith(p, e), nil
		}
		p.Steps[i] = step
		st = step.SeqType()
	}
	return p.Optimize(cc)
}

// Optimize implements Expr.
func (p *Path) Optimize(cc *CompileContext) (Expr, error) {
	rst := p.rootType(cc)
	if rst.Zero() {
		return cc.ReplaceWith(p, NewValue(p.pos, types.Empty)), nil
	}
	if len(p.Steps) == 0 && p.Root != nil {
		return cc.ReplaceWith(p, p.Root), nil
	}
	if !rst.Type.InstanceOf(types.TypeNode) && rst.Type != types.TypeItem {
		return nil, types.Errorf(types.ErrPathNotNode, p.pos, "path root must yield nodes, %s found", rst)
	}

	t := rst.Type
	for _, s := range p.Steps {
		if s.vacuousAfter(t) {
			cc.Info(OptRemove, p, "remove path with vacuous step %s", s)
			return cc.ReplaceWith(p, NewValue(p.pos, types.Empty)), nil
		}
		t = s.SeqType().Type
	}
	p.ddo = p.orderPreserving(rst)

	last := p.Steps[len(p.Steps)-1].SeqType()
	occ := types.OccZeroOrMore
	if p.single(rst) {
		occ = last.Occ
	}
	p.st = types.NewSeqType(last.Type, occ)
	return p, nil
}

// single reports whether the path yields at most one node.
func (p *Path) single(rst types.SeqType) bool {
	if !rst.ZeroOrOne() {
		return false
	}
	for _, s := range p.Steps {
		if !s.SeqType().ZeroOrOne() {
			return false
		}
	}
	return true
}

// orderPreserving reports whether the steps yield nodes in document order
// without duplicates when applied to the root, so that no sorting is needed.
// This is the case if the root is a single node and no child or descendant
// step follows a descendant step.
func (p *Path) orderPreserving(rst types.SeqType) bool {
	if !rst.ZeroOrOne() {
		return false
	}
	single := true
	desc := false
	for _, s := range p.Steps {
		switch s.Axis {
		case nav.AxisSelf:
		case nav.AxisAttribute:
			single = false
		case nav.AxisChild:
			if desc {
				return false
			}
			single = false
		case nav.AxisDescendant, nav.AxisDescendantOrSelf:
			if desc {
				return false
			}
			desc = true
			single = false
		case nav.AxisParent:
			if !single {
				return false
			}
		case nav.AxisFollowing, nav.AxisFollowingSibling:
			if !single {
				return false
			}
			single = false
		default:
			return false
		}
	}
	return true
}

// Inline implements Expr.
func (p *Path) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	changed := false
	if p.Root != nil {
		root, err := Inline(p.Root, t, repl, cc)
		if err != nil {
			return nil, err
		}
		if root != nil {
			p.Root = root
			changed = true
		}
	}
	for i, s := range p.Steps {
		e, err := s.Inline(t, repl, cc)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		step, ok := e.(*Step)
		if !ok {
			return cc.ReplaceWith(p, e), nil
		}
		p.Steps[i] = step
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return p.Optimize(cc)
}

// Iter implements Expr.
func (p *Path) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		var roots types.Iter
		if p.Root != nil {
			roots = p.Root.Iter(qc)
		} else {
			item, err := qc.contextItem(p.pos)
			if err != nil {
				return nil, err
			}
			if _, ok := item.(*nav.Node); !ok {
				return nil, types.Errorf(types.ErrContextNotNode, p.pos, "context value is not a node: %s", item)
			}
			roots = types.Value{item}.Iter()
		}
		it := roots
		for _, s := range p.Steps {
			it = &stepIter{in: it, step: s, qc: qc, pos: p.pos}
		}
		if p.ddo {
			return it, nil
		}
		return sortNodes(it)
	})
}

// stepIter applies a step to every node of its input.
type stepIter struct {
	in   types.Iter
	step *Step
	qc   *QueryContext
	cur  types.Iter
	pos  int
}

func (s *stepIter) Next() (types.Item, error) {
	for {
		if s.cur != nil {
			item, err := s.cur.Next()
			if err != nil || item != nil {
				return item, err
			}
			s.cur = nil
		}
		if err := s.qc.Check(); err != nil {
			return nil, err
		}
		item, err := s.in.Next()
		if err != nil || item == nil {
			return nil, err
		}
		n, ok := item.(*nav.Node)
		if !ok {
			return nil, types.Errorf(types.ErrPathNotNode, s.pos, "path step applied to non-node %s", item)
		}
		s.cur = s.step.from(n, s.qc)
	}
}

// sortNodes materializes nodes in document order without duplicates.
func sortNodes(it types.Iter) (types.Iter, error) {
	v, err := types.Collect(it)
	if err != nil {
		return nil, err
	}
	nodes := make([]*nav.Node, len(v))
	for i, item := range v {
		nodes[i] = item.(*nav.Node)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Diff(nodes[j]) < 0
	})
	out := make(types.Value, 0, len(nodes))
	for i, n := range nodes {
		if i > 0 && n.Is(nodes[i-1]) {
			continue
		}
		out = append(out, n)
	}
	return out.Iter(), nil
}

// Has implements Expr.
func (p *Path) Has(flags ...Flag) bool {
	if p.Root == nil {
		for _, f := range flags {
			if f == FlagCTX {
				return true
			}
		}
	} else if p.Root.Has(flags...) {
		return true
	}
	inner := without(flags, FlagCTX, FlagPOS)
	for _, s := range p.Steps {
		if len(inner) > 0 && s.Has(inner...) {
			return true
		}
	}
	return false
}

// Inlineable implements Expr.
func (p *Path) Inlineable(v *Var) bool {
	if p.Root != nil && !p.Root.Inlineable(v) {
		return false
	}
	for _, s := range p.Steps {
		if !s.Inlineable(v) {
			return false
		}
	}
	return true
}

// Count implements Expr.
func (p *Path) Count(v *Var) VarUsage {
	u := UsageNever
	if p.Root != nil {
		u = p.Root.Count(v)
	}
	for _, s := range p.Steps {
		u = u.Plus(s.Count(v))
	}
	return u
}

// DDO implements Expr.
func (p *Path) DDO() bool { return p.ddo }

// Copy implements Expr.
func (p *Path) Copy() Expr {
	c := *p
	if p.Root != nil {
		c.Root = p.Root.Copy()
	}
	c.Steps = make([]*Step, len(p.Steps))
	for i, s := range p.Steps {
		c.Steps[i] = s.Copy().(*Step)
	}
	return &c
}

// Equal implements Expr.
func (p *Path) Equal(o Expr) bool {
	op, ok := o.(*Path)
	if !ok || len(op.Steps) != len(p.Steps) || (p.Root == nil) != (op.Root == nil) {
		return false
	}
	if p.Root != nil && !p.Root.Equal(op.Root) {
		return false
	}
	for i, s := range p.Steps {
		if !s.Equal(op.Steps[i]) {
			return false
		}
	}
	return true
}

func (p *Path) String() string {
	parts := make([]string, 0, len(p.Steps)+1)
	for _, s := range p.Steps {
		parts = append(parts, s.String())
	}
	steps := strings.Join(parts, "/")
	switch p.Root.(type) {
	case nil:
		return steps
	case *Root:
		return "/" + steps
	}
	return p.Root.String() + "/" + steps
}
