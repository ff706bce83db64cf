package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// List is a comma-separated sequence of expressions.
type List struct {
	base
	Exprs []Expr
}

// NewList returns a sequence expression.
func NewList(pos int, exprs ...Expr) *List {
	return &List{base: newBase(pos, types.SeqItemZM), Exprs: exprs}
}

// Kind implements Expr.
func (l *List) Kind() Kind { return KindList }

// Compile implements Expr.
func (l *List) Compile(cc *CompileContext) (Expr, error) {
	if err := compileStrict(cc, l.Exprs); err != nil {
		return nil, err
	}
	return l.Optimize(cc)
}

// Optimize implements Expr.
func (l *List) Optimize(cc *CompileContext) (Expr, error) {
	exprs := make([]Expr, 0, len(l.Exprs))
	for _, e := range l.Exprs {
		switch {
		case e.SeqType().Zero() && !e.Has(FlagNDT, FlagUPD) && !alwaysRaises(e):
			cc.Info(OptRemove, e, "remove empty %s from list", describe(e))
		case e.Kind() == KindList:
			cc.Info(OptFlatten, e, "flatten nested list")
			exprs = append(exprs, e.(*List).Exprs...)
		default:
			exprs = append(exprs, e)
		}
	}
	l.Exprs = exprs

	switch len(exprs) {
	case 0:
		return cc.ReplaceWith(l, NewValue(l.pos, types.Empty)), nil
	case 1:
		return cc.ReplaceWith(l, exprs[0]), nil
	}
	values := true
	for _, e := range exprs {
		values = values && isValue(e)
	}
	if values {
		return cc.PreEval(l)
	}

	st := exprs[0].SeqType()
	for _, e := range exprs[1:] {
		est := e.SeqType()
		occ := st.Occ.Add(est.Occ)
		st = st.Union(est).With(occ)
	}
	l.st = st
	return l, nil
}

// Inline implements Expr.
func (l *List) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	changed, err := inlineStrict(cc, l.Exprs, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	return l.Optimize(cc)
}

// Iter implements Expr.
func (l *List) Iter(qc *QueryContext) types.Iter {
	its := make([]types.Iter, len(l.Exprs))
	for i, e := range l.Exprs {
		its[i] = e.Iter(qc)
	}
	return &concat{its: its}
}

// Has implements Expr.
func (l *List) Has(flags ...Flag) bool { return hasAny(l.Exprs, flags) }

// Inlineable implements Expr.
func (l *List) Inlineable(v *Var) bool { return inlineableAll(l.Exprs, v) }

// Count implements Expr.
func (l *List) Count(v *Var) VarUsage { return countAll(l.Exprs, v) }

// Vacuous implements Expr.
func (l *List) Vacuous() bool {
	for _, e := range l.Exprs {
		if !e.Vacuous() {
			return false
		}
	}
	return true
}

// DDO implements Expr.
func (l *List) DDO() bool { return false }

// Copy implements Expr.
func (l *List) Copy() Expr {
	c := *l
	c.Exprs = copyAll(l.Exprs)
	return &c
}

// Equal implements Expr.
func (l *List) Equal(o Expr) bool {
	ol, ok := o.(*List)
	return ok && equalAll(l.Exprs, ol.Exprs)
}

func (l *List) String() string {
	return "(" + joinExprs(l.Exprs, ", ") + ")"
}

// Range is an integer range expression, "from to to".
type Range struct {
	base
	From Expr
	To   Expr
}

// NewRange returns a range expression.
func NewRange(pos int, from, to Expr) *Range {
	return &Range{base: newBase(pos, types.SeqIntegerZM), From: from, To: to}
}

// Kind implements Expr.
func (r *Range) Kind() Kind { return KindRange }

// Compile implements Expr.
func (r *Range) Compile(cc *CompileContext) (Expr, error) {
	ops := []Expr{r.From, r.To}
	if err := compileStrict(cc, ops); err != nil {
		return nil, err
	}
	r.From, r.To = ops[0], ops[1]
	return r.Optimize(cc)
}

// Optimize implements Expr. Constant bounds yield an exact occurrence
// indicator; the range itself is not materialized.
func (r *Range) Optimize(cc *CompileContext) (Expr, error) {
	if r.From.SeqType().Zero() || r.To.SeqType().Zero() {
		return cc.ReplaceWith(r, NewValue(r.pos, types.Empty)), nil
	}
	lo, lok := intLiteral(r.From)
	hi, hok := intLiteral(r.To)
	switch {
	case lok && hok && hi < lo:
		return cc.ReplaceWith(r, NewValue(r.pos, types.Empty)), nil
	case lok && hok && hi == lo:
		return cc.ReplaceWith(r, NewValue(r.pos, types.Value{types.Int(lo)})), nil
	case lok && hok && hi-lo+1 > 0:
		r.st = types.NewSeqType(types.TypeInteger, types.OccOf(int(hi-lo+1)))
	}
	return r, nil
}

func intLiteral(e Expr) (int64, bool) {
	v, ok := e.(*Value)
	if !ok {
		return 0, false
	}
	it, ok := v.item()
	if !ok {
		return 0, false
	}
	i, ok := it.(types.Int)
	return int64(i), ok
}

// Inline implements Expr.
func (r *Range) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := []Expr{r.From, r.To}
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	r.From, r.To = ops[0], ops[1]
	return r.Optimize(cc)
}

func (r *Range) bound(e Expr, qc *QueryContext) (int64, bool, error) {
	item, err := atomItem(e, qc)
	if err != nil || item == nil {
		return 0, false, err
	}
	switch x := item.(type) {
	case types.Int:
		return int64(x), true, nil
	case types.Untyped:
		f, err := types.ToDouble(x)
		if err != nil {
			return 0, false, err
		}
		if f != float64(int64(f)) {
			return 0, false, types.Errorf(types.ErrInvalidCast, r.pos, "cannot cast %q to xs:integer", string(x))
		}
		return int64(f), true, nil
	}
	return 0, false, types.Errorf(types.ErrTypeMismatch, r.pos, "xs:integer expected, %s found", item.Type())
}

// Iter implements Expr.
func (r *Range) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		lo, ok, err := r.bound(r.From, qc)
		if err != nil || !ok {
			return nil, at(err, r.pos)
		}
		hi, ok, err := r.bound(r.To, qc)
		if err != nil || !ok {
			return nil, at(err, r.pos)
		}
		next, done := lo, lo > hi
		return types.IterFunc(func() (types.Item, error) {
			if done {
				return nil, nil
			}
			i := next
			if (i-lo)&1023 == 1023 {
				if err := qc.Check(); err != nil {
					return nil, err
				}
			}
			if next == hi {
				done = true
			} else {
				next++
			}
			return types.Int(i), nil
		}), nil
	})
}

// Has implements Expr.
func (r *Range) Has(flags ...Flag) bool {
	return r.From.Has(flags...) || r.To.Has(flags...)
}

// Inlineable implements Expr.
func (r *Range) Inlineable(v *Var) bool {
	return r.From.Inlineable(v) && r.To.Inlineable(v)
}

// Count implements Expr.
func (r *Range) Count(v *Var) VarUsage {
	return r.From.Count(v).Plus(r.To.Count(v))
}

// Copy implements Expr.
func (r *Range) Copy() Expr {
	c := *r
	c.From, c.To = r.From.Copy(), r.To.Copy()
	return &c
}

// Equal implements Expr.
func (r *Range) Equal(o Expr) bool {
	or, ok := o.(*Range)
	return ok && r.From.Equal(or.From) && r.To.Equal(or.To)
}

func (r *Range) String() string {
	return r.From.String() + " to " + r.To.String()
}
