package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// For iterates over a sequence and evaluates Return for every item.
type For struct {
	base
	Var    *Var
	In     Expr
	Return Expr
}

// NewFor returns a for expression.
func NewFor(pos int, v *Var, in, ret Expr) *For {
	return &For{base: newBase(pos, types.SeqItemZM), Var: v, In: in, Return: ret}
}

// Kind implements Expr.
func (f *For) Kind() Kind { return KindFor }

// Compile implements Expr.
func (f *For) Compile(cc *CompileContext) (Expr, error) {
	in, err := f.In.Compile(cc)
	if err != nil {
		return nil, err
	}
	f.In = in
	f.Var.Type = in.SeqType().With(types.OccOne)
	ret, err := f.Return.Compile(cc)
	if err != nil {
		return nil, err
	}
	f.Return = ret
	return f.Optimize(cc)
}

// Optimize implements Expr.
func (f *For) Optimize(cc *CompileContext) (Expr, error) {
	ist := f.In.SeqType()
	if ist.Zero() {
		return cc.ReplaceWith(f, NewValue(f.pos, types.Empty)), nil
	}
	f.Var.Type = ist.With(types.OccOne)
	if ref, ok := f.Return.(*VarRef); ok && ref.Var == f.Var {
		return cc.ReplaceWith(f, f.In), nil
	}
	if ist.One() {
		// a single iteration is a let binding
		cc.Info(OptRewrite, f, "rewrite for %s over single item to let", f.Var)
		l, err := NewLet(f.pos, f.Var, f.In, f.Return).Optimize(cc)
		if err != nil {
			return nil, err
		}
		return cc.ReplaceWith(f, l), nil
	}
	rst := f.Return.SeqType()
	f.st = rst.With(rst.Occ.Multiply(ist.Occ))
	return f, nil
}

// Inline implements Expr.
func (f *For) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := []Expr{f.In, f.Return}
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	f.In, f.Return = ops[0], ops[1]
	return f.Optimize(cc)
}

// Iter implements Expr.
func (f *For) Iter(qc *QueryContext) types.Iter {
	var in, cur types.Iter
	return types.IterFunc(func() (types.Item, error) {
		if in == nil {
			in = f.In.Iter(qc)
		}
		for {
			if cur != nil {
				item, err := cur.Next()
				if err != nil || item != nil {
					return item, err
				}
				cur = nil
			}
			if err := qc.Check(); err != nil {
				return nil, err
			}
			item, err := in.Next()
			if err != nil || item == nil {
				return nil, err
			}
			cur = f.Return.Iter(qc.Bind(f.Var, types.Value{item}))
		}
	})
}

// Has implements Expr.
func (f *For) Has(flags ...Flag) bool {
	return f.In.Has(flags...) || f.Return.Has(flags...)
}

// Inlineable implements Expr.
func (f *For) Inlineable(v *Var) bool {
	return f.In.Inlineable(v) && f.Return.Inlineable(v)
}

// Count implements Expr.
func (f *For) Count(v *Var) VarUsage {
	return f.In.Count(v).Plus(f.Return.Count(v).Times(f.In.SeqType().Occ))
}

// Vacuous implements Expr.
func (f *For) Vacuous() bool { return f.Return.Vacuous() }

// DDO implements Expr.
func (f *For) DDO() bool { return f.st.ZeroOrOne() }

// MarkTailCalls implements Expr.
func (f *For) MarkTailCalls(cc *CompileContext) {
	if f.In.SeqType().ZeroOrOne() {
		f.Return.MarkTailCalls(cc)
	}
}

// Copy implements Expr.
func (f *For) Copy() Expr {
	c := *f
	c.In, c.Return = f.In.Copy(), f.Return.Copy()
	return &c
}

// Equal implements Expr.
func (f *For) Equal(o Expr) bool {
	of, ok := o.(*For)
	return ok && of.Var == f.Var && f.In.Equal(of.In) && f.Return.Equal(of.Return)
}

func (f *For) String() string {
	return "for " + f.Var.String() + " in " + f.In.String() + " return " + f.Return.String()
}

// Let binds a value to a variable.
type Let struct {
	base
	Var    *Var
	Expr   Expr
	Return Expr
}

// NewLet returns a let expression.
func NewLet(pos int, v *Var, e, ret Expr) *Let {
	return &Let{base: newBase(pos, types.SeqItemZM), Var: v, Expr: e, Return: ret}
}

// Kind implements Expr.
func (l *Let) Kind() Kind { return KindLet }

// Compile implements Expr.
func (l *Let) Compile(cc *CompileContext) (Expr, error) {
	e, err := l.Expr.Compile(cc)
	if err != nil {
		return nil, err
	}
	l.Expr = e
	l.Var.Type = e.SeqType()
	ret, err := l.Return.Compile(cc)
	if err != nil {
		return nil, err
	}
	l.Return = ret
	return l.Optimize(cc)
}

// Optimize implements Expr. The binding is inlined if this cannot duplicate
// work or change the focus of the bound expression.
func (l *Let) Optimize(cc *CompileContext) (Expr, error) {
	l.Var.Type = l.Expr.SeqType()
	count := l.Return.Count(l.Var)
	if count == UsageNever && !l.Expr.Has(FlagNDT, FlagUPD) {
		cc.Info(OptRemove, l, "remove unused variable %s", l.Var)
		return cc.ReplaceWith(l, l.Return), nil
	}
	if l.inlineable(count) {
		cc.Info(OptInline, l, "inline %s", l.Var)
		ret, err := Inline(l.Return, Target{Var: l.Var}, l.Expr, cc)
		if err != nil {
			return nil, err
		}
		if ret == nil {
			ret = l.Return
		}
		return cc.ReplaceWith(l, ret), nil
	}
	l.st = l.Return.SeqType()
	return l, nil
}

func (l *Let) inlineable(count VarUsage) bool {
	switch l.Expr.(type) {
	case *Value, *VarRef:
		return true
	}
	if count != UsageOnce || l.Expr.Has(FlagNDT, FlagUPD) {
		return false
	}
	return !l.Expr.Has(FlagCTX, FlagPOS) || l.Return.Inlineable(l.Var)
}

// Inline implements Expr.
func (l *Let) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := []Expr{l.Expr, l.Return}
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	l.Expr, l.Return = ops[0], ops[1]
	return l.Optimize(cc)
}

// Iter implements Expr.
func (l *Let) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		v, err := types.Collect(l.Expr.Iter(qc))
		if err != nil {
			return nil, err
		}
		return l.Return.Iter(qc.Bind(l.Var, v)), nil
	})
}

// Has implements Expr.
func (l *Let) Has(flags ...Flag) bool {
	return l.Expr.Has(flags...) || l.Return.Has(flags...)
}

// Inlineable implements Expr.
func (l *Let) Inlineable(v *Var) bool {
	return l.Expr.Inlineable(v) && l.Return.Inlineable(v)
}

// Count implements Expr.
func (l *Let) Count(v *Var) VarUsage {
	return l.Expr.Count(v).Plus(l.Return.Count(v))
}

// Vacuous implements Expr.
func (l *Let) Vacuous() bool { return l.Return.Vacuous() }

// DDO implements Expr.
func (l *Let) DDO() bool { return l.Return.DDO() }

// MarkTailCalls implements Expr.
func (l *Let) MarkTailCalls(cc *CompileContext) { l.Return.MarkTailCalls(cc) }

// Copy implements Expr.
func (l *Let) Copy() Expr {
	c := *l
	c.Expr, c.Return = l.Expr.Copy(), l.Return.Copy()
	return &c
}

// Equal implements Expr.
func (l *Let) Equal(o Expr) bool {
	ol, ok := o.(*Let)
	return ok && ol.Var == l.Var && l.Expr.Equal(ol.Expr) && l.Return.Equal(ol.Return)
}

func (l *Let) String() string {
	return "let " + l.Var.String() + " := " + l.Expr.String() + " return " + l.Return.String()
}
