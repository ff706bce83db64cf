package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// TypeCheck checks that a value matches a sequence type. With Coerce set,
// untyped atomic items are cast to the expected atomic type first.
type TypeCheck struct {
	base
	Expr   Expr
	Target types.SeqType
	Coerce bool
}

// NewTypeCheck returns a type check.
func NewTypeCheck(pos int, e Expr, target types.SeqType, coerce bool) *TypeCheck {
	return &TypeCheck{base: newBase(pos, target), Expr: e, Target: target, Coerce: coerce}
}

// Kind implements Expr.
func (t *TypeCheck) Kind() Kind { return KindTypeCheck }

// Compile implements Expr.
func (t *TypeCheck) Compile(cc *CompileContext) (Expr, error) {
	e, err := t.Expr.Compile(cc)
	if err != nil {
		return nil, err
	}
	t.Expr = e
	return t.Optimize(cc)
}

// Optimize implements Expr.
func (t *TypeCheck) Optimize(cc *CompileContext) (Expr, error) {
	if t.Expr.SeqType().InstanceOf(t.Target) {
		return cc.ReplaceWith(t, t.Expr), nil
	}
	if isValue(t.Expr) {
		return cc.PreEval(t)
	}
	t.st = t.Target
	return t, nil
}

// Inline implements Expr.
func (t *TypeCheck) Inline(tg Target, repl Expr, cc *CompileContext) (Expr, error) {
	e, err := Inline(t.Expr, tg, repl, cc)
	if err != nil || e == nil {
		return nil, err
	}
	t.Expr = e
	return t.Optimize(cc)
}

// Iter implements Expr.
func (t *TypeCheck) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		v, err := types.Collect(t.Expr.Iter(qc))
		if err != nil {
			return nil, err
		}
		out := make(types.Value, len(v))
		for i, item := range v {
			if out[i], err = t.check(item); err != nil {
				return nil, err
			}
		}
		if st := out.SeqType(); !t.Target.Occ.Covers(st.Occ) {
			return nil, types.Errorf(types.ErrTypeMismatch, t.pos, "%s expected, %s found", t.Target, st)
		}
		return out.Iter(), nil
	})
}

func (t *TypeCheck) check(item types.Item) (types.Item, error) {
	want := t.Target.Type
	if item.Type().InstanceOf(want) {
		return item, nil
	}
	if t.Coerce && want.InstanceOf(types.TypeAnyAtomic) {
		a, err := types.Atomize(item)
		if err != nil {
			return nil, at(err, t.pos)
		}
		if a.Type().InstanceOf(want) {
			return a, nil
		}
		if a.Type() == types.TypeUntyped {
			c, err := cast(a, want)
			return c, at(err, t.pos)
		}
	}
	return nil, types.Errorf(types.ErrTypeMismatch, t.pos, "%s expected, %s found", want, item.Type())
}

// cast converts an untyped item to an atomic type.
func cast(item types.Item, want types.Type) (types.Item, error) {
	switch want {
	case types.TypeBoolean:
		return types.CastBoolean(item)
	case types.TypeString, types.TypeAnyAtomic:
		return types.Str(item.String()), nil
	case types.TypeDouble, types.TypeNumeric:
		f, err := types.ToDouble(item)
		return types.Dbl(f), err
	case types.TypeDecimal:
		d, err := types.NewDec(item.String())
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidCast, -1, "cannot cast %q to xs:decimal", item.String())
		}
		return d, nil
	case types.TypeInteger:
		d, err := types.NewDec(item.String())
		if err != nil || !d.V.IsInteger() {
			return nil, types.Errorf(types.ErrInvalidCast, -1, "cannot cast %q to xs:integer", item.String())
		}
		return types.Int(d.V.IntPart()), nil
	}
	return nil, types.Errorf(types.ErrTypeMismatch, -1, "%s expected, %s found", want, item.Type())
}

// Has implements Expr.
func (t *TypeCheck) Has(flags ...Flag) bool { return t.Expr.Has(flags...) }

// Inlineable implements Expr.
func (t *TypeCheck) Inlineable(v *Var) bool { return t.Expr.Inlineable(v) }

// Count implements Expr.
func (t *TypeCheck) Count(v *Var) VarUsage { return t.Expr.Count(v) }

// DDO implements Expr.
func (t *TypeCheck) DDO() bool { return t.Expr.DDO() }

// Copy implements Expr.
func (t *TypeCheck) Copy() Expr {
	c := *t
	c.Expr = t.Expr.Copy()
	return &c
}

// Equal implements Expr.
func (t *TypeCheck) Equal(o Expr) bool {
	ot, ok := o.(*TypeCheck)
	return ok && ot.Target.Eq(t.Target) && ot.Coerce == t.Coerce && t.Expr.Equal(ot.Expr)
}

func (t *TypeCheck) String() string {
	op := " treat as "
	if t.Coerce {
		op = " coerce to "
	}
	return "(" + t.Expr.String() + op + t.Target.String() + ")"
}

// Filter applies predicates to a sequence. Each predicate is evaluated with
// the current item as focus; numeric predicate values select by position.
type Filter struct {
	base
	Root  Expr
	Preds []Expr
}

// NewFilter returns a filter expression.
func NewFilter(pos int, root Expr, preds ...Expr) *Filter {
	return &Filter{base: newBase(pos, types.SeqItemZM), Root: root, Preds: preds}
}

// Kind implements Expr.
func (f *Filter) Kind() Kind { return KindFilter }

// Compile implements Expr.
func (f *Filter) Compile(cc *CompileContext) (Expr, error) {
	root, err := f.Root.Compile(cc)
	if err != nil {
		return nil, err
	}
	f.Root = root
	if err := compilePreds(cc, f.Preds, root.SeqType()); err != nil {
		return nil, err
	}
	return f.Optimize(cc)
}

func compilePreds(cc *CompileContext, preds []Expr, st types.SeqType) error {
	cc.PushFocus(st.With(types.OccOne))
	defer cc.RemoveFocus()
	return compileStrict(cc, preds)
}

// optimizePreds simplifies predicates. It returns false if a predicate is
// statically false.
func optimizePreds(cc *CompileContext, preds []Expr) ([]Expr, bool) {
	out := make([]Expr, 0, len(preds))
	for _, p := range preds {
		if v, ok := p.(*Value); ok {
			if it, ok := v.item(); ok && types.IsNumeric(it) {
				out = append(out, p)
				continue
			}
			b, err := types.EBV(v.Value.Iter())
			if err == nil {
				if !b {
					return nil, false
				}
				cc.Info(OptRemove, p, "remove predicate %s", p)
				continue
			}
		}
		if bf, ok := p.(*StaticFunc); ok && bf.Def.Name == "boolean" && !positional(bf.Args[0]) {
			cc.Info(OptSimplify, p, "simplify %s", describe(p))
			p = bf.Args[0]
		}
		if isBool(p, true) {
			cc.Info(OptRemove, p, "remove predicate %s", p)
			continue
		}
		if isBool(p, false) {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// positional reports whether the predicate may select by position.
func positional(p Expr) bool {
	return p.SeqType().Type.InstanceOf(types.TypeNumeric) || p.SeqType().Type == types.TypeItem ||
		p.SeqType().Type == types.TypeAnyAtomic || p.Has(FlagPOS)
}

// Optimize implements Expr.
func (f *Filter) Optimize(cc *CompileContext) (Expr, error) {
	rst := f.Root.SeqType()
	if rst.Zero() {
		return cc.ReplaceWith(f, f.Root), nil
	}
	preds, ok := optimizePreds(cc, f.Preds)
	if !ok {
		return cc.ReplaceWith(f, NewValue(f.pos, types.Empty)), nil
	}
	f.Preds = preds
	if len(preds) == 0 {
		return cc.ReplaceWith(f, f.Root), nil
	}
	occ := rst.Occ.Union(types.OccZero)
	for _, p := range preds {
		if _, ok := intLiteral(p); ok {
			occ = types.OccZeroOrOne
		}
	}
	f.st = types.NewSeqType(rst.Type, occ)
	return f, nil
}

// Inline implements Expr.
func (f *Filter) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	root, err := Inline(f.Root, t, repl, cc)
	if err != nil {
		return nil, err
	}
	changed := root != nil
	if changed {
		f.Root = root
	}
	cc.PushFocus(f.Root.SeqType().With(types.OccOne))
	ch, err := inlineStrict(cc, f.Preds, t, repl)
	cc.RemoveFocus()
	if err != nil {
		return nil, err
	}
	if !changed && !ch {
		return nil, nil
	}
	return f.Optimize(cc)
}

// Iter implements Expr.
func (f *Filter) Iter(qc *QueryContext) types.Iter {
	it := f.Root.Iter(qc)
	for _, p := range f.Preds {
		it = &predIter{in: it, pred: p, qc: qc}
	}
	return it
}

// predIter applies one predicate to a sequence.
type predIter struct {
	in   types.Iter
	pred Expr
	qc   *QueryContext
	pos  int
}

func (p *predIter) Next() (types.Item, error) {
	for {
		if err := p.qc.Check(); err != nil {
			return nil, err
		}
		item, err := p.in.Next()
		if err != nil || item == nil {
			return nil, err
		}
		p.pos++
		ok, err := predicate(p.pred, p.qc.WithFocus(item, p.pos), p.pos)
		if err != nil {
			return nil, err
		}
		if ok {
			return item, nil
		}
	}
}

// predicate evaluates a predicate for the item at position pos.
func predicate(pred Expr, qc *QueryContext, pos int) (bool, error) {
	v, err := types.Collect(pred.Iter(qc))
	if err != nil {
		return false, err
	}
	if len(v) == 1 && types.IsNumeric(v[0]) {
		f, err := types.ToDouble(v[0])
		return err == nil && f == float64(pos), err
	}
	b, err := types.EBV(v.Iter())
	return b, at(err, pred.Position())
}

// Has implements Expr. The predicates are evaluated with their own focus.
func (f *Filter) Has(flags ...Flag) bool {
	if f.Root.Has(flags...) {
		return true
	}
	inner := without(flags, FlagCTX, FlagPOS)
	return len(inner) > 0 && hasAny(f.Preds, inner)
}

// Inlineable implements Expr. References inside predicates see a different
// focus.
func (f *Filter) Inlineable(v *Var) bool {
	return f.Root.Inlineable(v) && countAll(f.Preds, v) == UsageNever
}

// Count implements Expr.
func (f *Filter) Count(v *Var) VarUsage {
	u := countAll(f.Preds, v).Times(f.Root.SeqType().Occ)
	return f.Root.Count(v).Plus(u)
}

// Vacuous implements Expr.
func (f *Filter) Vacuous() bool { return f.Root.Vacuous() }

// DDO implements Expr.
func (f *Filter) DDO() bool { return f.Root.DDO() }

// Copy implements Expr.
func (f *Filter) Copy() Expr {
	c := *f
	c.Root = f.Root.Copy()
	c.Preds = copyAll(f.Preds)
	return &c
}

// Equal implements Expr.
func (f *Filter) Equal(o Expr) bool {
	of, ok := o.(*Filter)
	return ok && f.Root.Equal(of.Root) && equalAll(f.Preds, of.Preds)
}

func (f *Filter) String() string {
	s := f.Root.String()
	for _, p := range f.Preds {
		s += "[" + p.String() + "]"
	}
	return s
}
