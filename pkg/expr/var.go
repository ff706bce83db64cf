package expr

import (
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/types"
)

// VarRef references a variable.
type VarRef struct {
	base
	Var *Var
}

// NewVarRef returns a reference to v.
func NewVarRef(pos int, v *Var) *VarRef {
	return &VarRef{base: newBase(pos, v.Type), Var: v}
}

// Kind implements Expr.
func (r *VarRef) Kind() Kind { return KindVarRef }

// Compile implements Expr.
func (r *VarRef) Compile(cc *CompileContext) (Expr, error) { return r.Optimize(cc) }

// Optimize implements Expr.
func (r *VarRef) Optimize(_ *CompileContext) (Expr, error) {
	r.st = r.Var.Type
	return r, nil
}

// Inline implements Expr.
func (r *VarRef) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	if t.Var != r.Var {
		return nil, nil
	}
	e := repl.Copy()
	cc.Info(OptInline, r, "inline %s", r.Var)
	return e, nil
}

// Iter implements Expr.
func (r *VarRef) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		v, ok := qc.Lookup(r.Var)
		if !ok {
			return nil, types.Errorf(types.ErrUndefinedVariable, r.pos, "undeclared variable %s", r.Var)
		}
		return v.Iter(), nil
	})
}

// Has implements Expr.
func (r *VarRef) Has(...Flag) bool { return false }

// Inlineable implements Expr.
func (r *VarRef) Inlineable(*Var) bool { return true }

// Count implements Expr.
func (r *VarRef) Count(v *Var) VarUsage {
	if r.Var == v {
		return UsageOnce
	}
	return UsageNever
}

// Copy implements Expr.
func (r *VarRef) Copy() Expr {
	c := *r
	return &c
}

// Equal implements Expr.
func (r *VarRef) Equal(o Expr) bool {
	or, ok := o.(*VarRef)
	return ok && or.Var == r.Var
}

func (r *VarRef) String() string { return r.Var.String() }

// ContextValue is the context item ".".
type ContextValue struct {
	base
}

// NewContextValue returns a context item reference.
func NewContextValue(pos int) *ContextValue {
	return &ContextValue{base: newBase(pos, types.SeqItemO)}
}

// Kind implements Expr.
func (c *ContextValue) Kind() Kind { return KindContext }

// Compile implements Expr.
func (c *ContextValue) Compile(cc *CompileContext) (Expr, error) { return c.Optimize(cc) }

// Optimize implements Expr.
func (c *ContextValue) Optimize(cc *CompileContext) (Expr, error) {
	if st, ok := cc.Focus(); ok {
		c.st = st.With(types.OccOne)
	}
	return c, nil
}

// Inline implements Expr.
func (c *ContextValue) Inline(Target, Expr, *CompileContext) (Expr, error) { return nil, nil }

// Iter implements Expr.
func (c *ContextValue) Iter(qc *QueryContext) types.Iter {
	return single(func() (types.Item, error) {
		return qc.contextItem(c.pos)
	})
}

// Has implements Expr.
func (c *ContextValue) Has(flags ...Flag) bool {
	for _, f := range flags {
		if f == FlagCTX {
			return true
		}
	}
	return false
}

// Inlineable implements Expr.
func (c *ContextValue) Inlineable(*Var) bool { return true }

// Count implements Expr.
func (c *ContextValue) Count(*Var) VarUsage { return UsageNever }

// Copy implements Expr.
func (c *ContextValue) Copy() Expr {
	cp := *c
	return &cp
}

// Equal implements Expr.
func (c *ContextValue) Equal(o Expr) bool {
	_, ok := o.(*ContextValue)
	return ok
}

func (c *ContextValue) String() string { return "." }

// Root is the root of the tree containing the context node, "/".
type Root struct {
	base
}

// NewRoot returns a root node reference.
func NewRoot(pos int) *Root {
	return &Root{base: newBase(pos, types.NewSeqType(types.TypeNode, types.OccOne))}
}

// Kind implements Expr.
func (r *Root) Kind() Kind { return KindRoot }

// Compile implements Expr.
func (r *Root) Compile(cc *CompileContext) (Expr, error) { return r.Optimize(cc) }

// Optimize implements Expr.
func (r *Root) Optimize(cc *CompileContext) (Expr, error) {
	if st, ok := cc.Focus(); ok && st.Type == types.TypeDocument {
		r.st = types.SeqDocumentO
	}
	return r, nil
}

// Inline implements Expr.
func (r *Root) Inline(Target, Expr, *CompileContext) (Expr, error) { return nil, nil }

// Iter implements Expr.
func (r *Root) Iter(qc *QueryContext) types.Iter {
	return single(func() (types.Item, error) {
		item, err := qc.contextItem(r.pos)
		if err != nil {
			return nil, err
		}
		n, ok := item.(*nav.Node)
		if !ok {
			return nil, types.Errorf(types.ErrContextNotNode, r.pos, "context value is not a node: %s", item)
		}
		return n.Root(), nil
	})
}

// Has implements Expr.
func (r *Root) Has(flags ...Flag) bool {
	for _, f := range flags {
		if f == FlagCTX {
			return true
		}
	}
	return false
}

// Inlineable implements Expr.
func (r *Root) Inlineable(*Var) bool { return true }

// Count implements Expr.
func (r *Root) Count(*Var) VarUsage { return UsageNever }

// Copy implements Expr.
func (r *Root) Copy() Expr {
	c := *r
	return &c
}

// Equal implements Expr.
func (r *Root) Equal(o Expr) bool {
	_, ok := o.(*Root)
	return ok
}

func (r *Root) String() string { return "/" }
