package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// CmpG is a general comparison. It is true if any pair of atomized items
// satisfies the operator.
type CmpG struct {
	base
	Op    types.CmpOp
	Left  Expr
	Right Expr
}

// NewCmpG returns a general comparison.
func NewCmpG(pos int, left, right Expr, op types.CmpOp) *CmpG {
	return &CmpG{base: newBase(pos, types.SeqBooleanO), Op: op, Left: left, Right: right}
}

// Kind implements Expr.
func (c *CmpG) Kind() Kind { return KindCmpG }

// Compile implements Expr.
func (c *CmpG) Compile(cc *CompileContext) (Expr, error) {
	ops := []Expr{c.Left, c.Right}
	if err := compileStrict(cc, ops); err != nil {
		return nil, err
	}
	c.Left, c.Right = ops[0], ops[1]
	return c.Optimize(cc)
}

// Optimize implements Expr.
func (c *CmpG) Optimize(cc *CompileContext) (Expr, error) {
	c.Left, c.Right = simplifyAtom(cc, c.Left), simplifyAtom(cc, c.Right)
	if c.Left.SeqType().Zero() || c.Right.SeqType().Zero() {
		return cc.ReplaceWith(c, NewValue(c.pos, types.False)), nil
	}
	// literals on the right
	if isValue(c.Left) && !isValue(c.Right) {
		cc.Info(OptSimplify, c, "swap operands of %s", describe(c))
		c.Left, c.Right, c.Op = c.Right, c.Left, c.Op.Swap()
	}
	if isValue(c.Left) && isValue(c.Right) {
		return cc.PreEval(c)
	}
	return c, nil
}

// Inline implements Expr.
func (c *CmpG) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := []Expr{c.Left, c.Right}
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	c.Left, c.Right = ops[0], ops[1]
	return c.Optimize(cc)
}

// Iter implements Expr.
func (c *CmpG) Iter(qc *QueryContext) types.Iter {
	return single(func() (types.Item, error) {
		b, err := c.test(qc)
		if err != nil {
			return nil, at(err, c.pos)
		}
		return types.Bln(b), nil
	})
}

func (c *CmpG) test(qc *QueryContext) (bool, error) {
	right, err := types.Collect(types.AtomIter(c.Right.Iter(qc)))
	if err != nil || len(right) == 0 {
		return false, err
	}
	left := types.AtomIter(c.Left.Iter(qc))
	for {
		l, err := left.Next()
		if err != nil || l == nil {
			return false, err
		}
		for _, r := range right {
			ok, err := types.CompareGeneral(l, r, c.Op, qc.session.coll)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
}

// Has implements Expr.
func (c *CmpG) Has(flags ...Flag) bool {
	return c.Left.Has(flags...) || c.Right.Has(flags...)
}

// Inlineable implements Expr.
func (c *CmpG) Inlineable(v *Var) bool {
	return c.Left.Inlineable(v) && c.Right.Inlineable(v)
}

// Count implements Expr.
func (c *CmpG) Count(v *Var) VarUsage {
	return c.Left.Count(v).Plus(c.Right.Count(v))
}

// Copy implements Expr.
func (c *CmpG) Copy() Expr {
	cp := *c
	cp.Left, cp.Right = c.Left.Copy(), c.Right.Copy()
	return &cp
}

// Equal implements Expr.
func (c *CmpG) Equal(o Expr) bool {
	oc, ok := o.(*CmpG)
	return ok && oc.Op == c.Op && c.Left.Equal(oc.Left) && c.Right.Equal(oc.Right)
}

func (c *CmpG) String() string {
	return "(" + c.Left.String() + " " + c.Op.String() + " " + c.Right.String() + ")"
}
