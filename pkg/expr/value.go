package expr

import (
	"fmt"

	"github.com/sandrolain/goxq/pkg/types"
)

// Value is a literal sequence.
type Value struct {
	base
	Value types.Value
}

// NewValue returns a literal node for v.
func NewValue(pos int, v types.Value) *Value {
	return &Value{base: newBase(pos, v.SeqType()), Value: v}
}

// Kind implements Expr.
func (v *Value) Kind() Kind { return KindValue }

// Compile implements Expr.
func (v *Value) Compile(_ *CompileContext) (Expr, error) { return v, nil }

// Optimize implements Expr.
func (v *Value) Optimize(_ *CompileContext) (Expr, error) { return v, nil }

// Inline implements Expr.
func (v *Value) Inline(Target, Expr, *CompileContext) (Expr, error) { return nil, nil }

// Iter implements Expr.
func (v *Value) Iter(_ *QueryContext) types.Iter { return v.Value.Iter() }

// Has implements Expr.
func (v *Value) Has(...Flag) bool { return false }

// Inlineable implements Expr.
func (v *Value) Inlineable(*Var) bool { return true }

// Count implements Expr.
func (v *Value) Count(*Var) VarUsage { return UsageNever }

// DDO implements Expr.
func (v *Value) DDO() bool {
	return len(v.Value) <= 1
}

// Copy implements Expr.
func (v *Value) Copy() Expr {
	c := *v
	return &c
}

// Equal implements Expr.
func (v *Value) Equal(o Expr) bool {
	ov, ok := o.(*Value)
	if !ok || len(ov.Value) != len(v.Value) {
		return false
	}
	for i, it := range v.Value {
		if ov.Value[i] == it {
			continue
		}
		if ov.Value[i].Type() != it.Type() || !types.Equiv(it, ov.Value[i], nil) {
			return false
		}
	}
	return true
}

func (v *Value) String() string { return v.Value.String() }

// item returns the single item of a singleton literal.
func (v *Value) item() (types.Item, bool) {
	if len(v.Value) != 1 {
		return nil, false
	}
	return v.Value[0], true
}

func isValue(e Expr) bool {
	_, ok := e.(*Value)
	return ok
}

// isInt reports whether e is the integer literal n.
func isInt(e Expr, n int64) bool {
	v, ok := e.(*Value)
	if !ok {
		return false
	}
	it, ok := v.item()
	if !ok {
		return false
	}
	i, ok := it.(types.Int)
	return ok && int64(i) == n
}

// isNumber reports whether e is a numeric literal equal to n.
func isNumber(e Expr, n float64) bool {
	v, ok := e.(*Value)
	if !ok {
		return false
	}
	it, ok := v.item()
	if !ok || !types.IsNumeric(it) {
		return false
	}
	f, err := types.ToDouble(it)
	return err == nil && f == n
}

// Raise is a node that always raises an error. It replaces a sub-expression
// whose compilation failed with a catchable error that is only reported if
// the sub-expression is evaluated.
type Raise struct {
	base
	Err *types.Error
}

// Kind implements Expr.
func (r *Raise) Kind() Kind { return KindRaise }

// Compile implements Expr.
func (r *Raise) Compile(_ *CompileContext) (Expr, error) { return r, nil }

// Optimize implements Expr.
func (r *Raise) Optimize(_ *CompileContext) (Expr, error) { return r, nil }

// Inline implements Expr.
func (r *Raise) Inline(Target, Expr, *CompileContext) (Expr, error) { return nil, nil }

// Iter implements Expr.
func (r *Raise) Iter(_ *QueryContext) types.Iter { return failing(r.Err) }

// Has implements Expr.
func (r *Raise) Has(...Flag) bool { return false }

// Inlineable implements Expr.
func (r *Raise) Inlineable(*Var) bool { return true }

// Count implements Expr.
func (r *Raise) Count(*Var) VarUsage { return UsageNever }

// Vacuous implements Expr.
func (r *Raise) Vacuous() bool { return false }

// Copy implements Expr.
func (r *Raise) Copy() Expr {
	c := *r
	return &c
}

// Equal implements Expr.
func (r *Raise) Equal(o Expr) bool {
	or, ok := o.(*Raise)
	return ok && or.Err == r.Err
}

func (r *Raise) String() string {
	return fmt.Sprintf("error(xs:QName(%q), %q)", r.Err.Code.String(), r.Err.Message)
}

// alwaysRaises reports whether evaluating e never yields a value.
func alwaysRaises(e Expr) bool {
	switch x := e.(type) {
	case *Raise:
		return true
	case *StaticFunc:
		return x.Def.Name == "error"
	}
	return false
}
