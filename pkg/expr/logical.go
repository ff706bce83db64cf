package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// Logical is an and or or expression. Operands are evaluated left to right
// until the result is known.
type Logical struct {
	base
	Or    bool
	Exprs []Expr
}

// NewAnd returns a conjunction.
func NewAnd(pos int, exprs ...Expr) *Logical {
	return &Logical{base: newBase(pos, types.SeqBooleanO), Exprs: exprs}
}

// NewOr returns a disjunction.
func NewOr(pos int, exprs ...Expr) *Logical {
	return &Logical{base: newBase(pos, types.SeqBooleanO), Or: true, Exprs: exprs}
}

// Kind implements Expr.
func (l *Logical) Kind() Kind {
	if l.Or {
		return KindOr
	}
	return KindAnd
}

func (l *Logical) name() string {
	if l.Or {
		return "or"
	}
	return "and"
}

// Compile implements Expr.
func (l *Logical) Compile(cc *CompileContext) (Expr, error) {
	if err := compileAll(cc, l.Exprs, true); err != nil {
		return nil, err
	}
	return l.Optimize(cc)
}

// Optimize implements Expr.
func (l *Logical) Optimize(cc *CompileContext) (Expr, error) {
	ops := make([]Expr, 0, len(l.Exprs))
	queue := append([]Expr(nil), l.Exprs...)
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		e = simplifyEBV(cc, e)
		if nested, ok := e.(*Logical); ok && nested.Or == l.Or {
			cc.Info(OptFlatten, e, "flatten nested %s expression", l.name())
			queue = append(append([]Expr(nil), nested.Exprs...), queue...)
			continue
		}
		if v, ok := e.(*Value); ok {
			if b, ok := boolLiteral(v); ok {
				if b == l.Or {
					return cc.ReplaceWith(l, NewValue(l.pos, types.BoolValue(l.Or))), nil
				}
				cc.Info(OptRemove, e, "remove %s from %s expression", e, l.name())
				continue
			}
		}
		if !e.Has(FlagNDT) && containsExpr(ops, e) {
			cc.Info(OptRemove, e, "remove duplicate %s from %s expression", describe(e), l.name())
			continue
		}
		ops = append(ops, e)
	}

	switch len(ops) {
	case 0:
		return cc.ReplaceWith(l, NewValue(l.pos, types.BoolValue(!l.Or))), nil
	case 1:
		f, err := cc.Function("boolean", l.pos, ops[0])
		if err != nil {
			return nil, err
		}
		return cc.ReplaceWith(l, f), nil
	}
	l.Exprs = ops
	return l, nil
}

// Inline implements Expr.
func (l *Logical) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	exprs, changed, err := inlineAll(cc, l.Exprs, t, repl, true)
	if err != nil || !changed {
		return nil, err
	}
	l.Exprs = exprs
	return l.Optimize(cc)
}

// Iter implements Expr.
func (l *Logical) Iter(qc *QueryContext) types.Iter {
	return single(func() (types.Item, error) {
		for _, e := range l.Exprs {
			b, err := ebv(e, qc)
			if err != nil {
				return nil, err
			}
			if b == l.Or {
				return types.Bln(l.Or), nil
			}
		}
		return types.Bln(!l.Or), nil
	})
}

// Has implements Expr.
func (l *Logical) Has(flags ...Flag) bool { return hasAny(l.Exprs, flags) }

// Inlineable implements Expr.
func (l *Logical) Inlineable(v *Var) bool { return inlineableAll(l.Exprs, v) }

// Count implements Expr.
func (l *Logical) Count(v *Var) VarUsage { return countAll(l.Exprs, v) }

// MarkTailCalls implements Expr.
func (l *Logical) MarkTailCalls(cc *CompileContext) {
	if len(l.Exprs) == 0 {
		return
	}
	last := l.Exprs[len(l.Exprs)-1]
	if last.SeqType().Eq(types.SeqBooleanO) {
		last.MarkTailCalls(cc)
	}
}

// Copy implements Expr.
func (l *Logical) Copy() Expr {
	c := *l
	c.Exprs = copyAll(l.Exprs)
	return &c
}

// Equal implements Expr.
func (l *Logical) Equal(o Expr) bool {
	ol, ok := o.(*Logical)
	return ok && ol.Or == l.Or && equalAll(l.Exprs, ol.Exprs)
}

func (l *Logical) String() string {
	return "(" + joinExprs(l.Exprs, " "+l.name()+" ") + ")"
}

// boolLiteral returns the value of a boolean singleton literal.
func boolLiteral(v *Value) (bool, bool) {
	it, ok := v.item()
	if !ok {
		return false, false
	}
	b, ok := it.(types.Bln)
	return bool(b), ok
}

// simplifyEBV simplifies an expression whose effective boolean value is
// requested: boolean(E) is reduced to E, and literals are replaced with their
// boolean value.
func simplifyEBV(cc *CompileContext, e Expr) Expr {
	for {
		f, ok := e.(*StaticFunc)
		if !ok || f.Def.Name != "boolean" {
			break
		}
		cc.Info(OptSimplify, e, "simplify %s", describe(e))
		e = f.Args[0]
	}
	if v, ok := e.(*Value); ok {
		if _, ok := boolLiteral(v); ok {
			return e
		}
		b, err := types.EBV(v.Value.Iter())
		if err != nil {
			return e
		}
		return cc.ReplaceWith(e, NewValue(e.Position(), types.BoolValue(b)))
	}
	return e
}

// simplifyAtom simplifies an expression whose atomized value is requested.
func simplifyAtom(cc *CompileContext, e Expr) Expr {
	f, ok := e.(*StaticFunc)
	if ok && f.Def.Name == "data" && len(f.Args) == 1 {
		cc.Info(OptSimplify, e, "simplify %s", describe(e))
		return f.Args[0]
	}
	return e
}
