package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// If is a conditional expression.
type If struct {
	base
	Cond Expr
	Then Expr
	Else Expr
}

// NewIf returns a conditional expression.
func NewIf(pos int, cond, then, els Expr) *If {
	return &If{base: newBase(pos, types.SeqItemZM), Cond: cond, Then: then, Else: els}
}

// Kind implements Expr.
func (e *If) Kind() Kind { return KindIf }

// Compile implements Expr.
func (e *If) Compile(cc *CompileContext) (Expr, error) {
	cond, err := e.Cond.Compile(cc)
	if err != nil {
		return nil, err
	}
	e.Cond = cond
	if e.Then, err = compileDeferred(cc, e.Then); err != nil {
		return nil, err
	}
	if e.Else, err = compileDeferred(cc, e.Else); err != nil {
		return nil, err
	}
	return e.Optimize(cc)
}

// Optimize implements Expr.
func (e *If) Optimize(cc *CompileContext) (Expr, error) {
	e.Cond = simplifyEBV(cc, e.Cond)
	if v, ok := e.Cond.(*Value); ok {
		if b, ok := boolLiteral(v); ok {
			if b {
				return cc.ReplaceWith(e, e.Then), nil
			}
			return cc.ReplaceWith(e, e.Else), nil
		}
	}
	if e.Then.Equal(e.Else) && !e.Cond.Has(FlagNDT, FlagUPD) {
		return cc.ReplaceWith(e, e.Then), nil
	}
	if isBool(e.Then, true) && isBool(e.Else, false) {
		f, err := cc.Function("boolean", e.pos, e.Cond)
		if err != nil {
			return nil, err
		}
		return cc.ReplaceWith(e, f), nil
	}
	if isBool(e.Then, false) && isBool(e.Else, true) {
		f, err := cc.Function("not", e.pos, e.Cond)
		if err != nil {
			return nil, err
		}
		return cc.ReplaceWith(e, f), nil
	}
	e.st = branchType(e.Then, e.Else)
	return e, nil
}

// branchType returns the union type of alternative branches. Branches that
// always raise an error do not contribute.
func branchType(branches ...Expr) types.SeqType {
	var st types.SeqType
	first := true
	for _, b := range branches {
		if alwaysRaises(b) {
			continue
		}
		if first {
			st = b.SeqType()
			first = false
		} else {
			st = st.Union(b.SeqType())
		}
	}
	if first {
		return types.SeqItemZM
	}
	return st
}

func isBool(e Expr, b bool) bool {
	v, ok := e.(*Value)
	if !ok {
		return false
	}
	lit, ok := boolLiteral(v)
	return ok && lit == b
}

// Inline implements Expr.
func (e *If) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	cond, err := Inline(e.Cond, t, repl, cc)
	if err != nil {
		return nil, err
	}
	changed := cond != nil
	if changed {
		e.Cond = cond
	}
	branches := []Expr{e.Then, e.Else}
	ch, err := inlineEach(cc, branches, t, repl)
	if err != nil {
		return nil, err
	}
	if !changed && !ch {
		return nil, nil
	}
	e.Then, e.Else = branches[0], branches[1]
	return e.Optimize(cc)
}

// Iter implements Expr.
func (e *If) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		b, err := ebv(e.Cond, qc)
		if err != nil {
			return nil, err
		}
		if b {
			return e.Then.Iter(qc), nil
		}
		return e.Else.Iter(qc), nil
	})
}

// Has implements Expr.
func (e *If) Has(flags ...Flag) bool {
	return e.Cond.Has(flags...) || e.Then.Has(flags...) || e.Else.Has(flags...)
}

// Inlineable implements Expr.
func (e *If) Inlineable(v *Var) bool {
	return e.Cond.Inlineable(v) && e.Then.Inlineable(v) && e.Else.Inlineable(v)
}

// Count implements Expr.
func (e *If) Count(v *Var) VarUsage {
	return e.Cond.Count(v).Plus(e.Then.Count(v).Max(e.Else.Count(v)))
}

// Vacuous implements Expr.
func (e *If) Vacuous() bool {
	return e.Then.Vacuous() && e.Else.Vacuous()
}

// DDO implements Expr.
func (e *If) DDO() bool {
	return e.Then.DDO() && e.Else.DDO()
}

// MarkTailCalls implements Expr.
func (e *If) MarkTailCalls(cc *CompileContext) {
	e.Then.MarkTailCalls(cc)
	e.Else.MarkTailCalls(cc)
}

// Copy implements Expr.
func (e *If) Copy() Expr {
	c := *e
	c.Cond, c.Then, c.Else = e.Cond.Copy(), e.Then.Copy(), e.Else.Copy()
	return &c
}

// Equal implements Expr.
func (e *If) Equal(o Expr) bool {
	oe, ok := o.(*If)
	return ok && e.Cond.Equal(oe.Cond) && e.Then.Equal(oe.Then) && e.Else.Equal(oe.Else)
}

func (e *If) String() string {
	return "if (" + e.Cond.String() + ") then " + e.Then.String() + " else " + e.Else.String()
}
