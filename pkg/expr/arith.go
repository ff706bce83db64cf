package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// Arith is a binary arithmetic expression.
type Arith struct {
	base
	Calc  types.Calc
	Left  Expr
	Right Expr
}

// NewArith returns an arithmetic expression.
func NewArith(pos int, calc types.Calc, left, right Expr) *Arith {
	return &Arith{base: newBase(pos, types.SeqNumericZO), Calc: calc, Left: left, Right: right}
}

// Kind implements Expr.
func (a *Arith) Kind() Kind { return KindArith }

// Compile implements Expr.
func (a *Arith) Compile(cc *CompileContext) (Expr, error) {
	ops := []Expr{a.Left, a.Right}
	if err := compileStrict(cc, ops); err != nil {
		return nil, err
	}
	a.Left, a.Right = ops[0], ops[1]
	return a.Optimize(cc)
}

// Optimize implements Expr.
func (a *Arith) Optimize(cc *CompileContext) (Expr, error) {
	lt, rt := a.Left.SeqType().Atomized(), a.Right.SeqType().Atomized()
	if lt.Zero() || rt.Zero() {
		return cc.ReplaceWith(a, NewValue(a.pos, types.Empty)), nil
	}
	occ := types.OccZeroOrOne
	if lt.One() && rt.One() {
		occ = types.OccOne
	}
	a.st = types.NewSeqType(a.Calc.ResultType(lt.Type, rt.Type), occ)

	if isValue(a.Left) && isValue(a.Right) {
		return cc.PreEval(a)
	}
	if e := a.fold(lt, rt); e != nil {
		return cc.ReplaceWith(a, e), nil
	}
	return a, nil
}

// fold applies neutral and absorbing numbers. Addition and multiplication
// only fold integer operands: for floating-point operands, x + 0 or x * 0
// may change the sign of zero or the value of NaN and infinity. Division by
// one is exact for decimals and doubles. x div x and x idiv x are folded for
// single decimals and integers; a zero operand then yields 1 instead of an
// error.
func (a *Arith) fold(lt, rt types.SeqType) Expr {
	integer := func(st types.SeqType) bool {
		return st.ZeroOrOne() && st.Type.InstanceOf(types.TypeInteger)
	}
	switch a.Calc {
	case types.CalcAdd:
		if isInt(a.Right, 0) && integer(lt) {
			return a.Left
		}
		if isInt(a.Left, 0) && integer(rt) {
			return a.Right
		}
	case types.CalcSub:
		if isInt(a.Right, 0) && integer(lt) {
			return a.Left
		}
		if lt.One() && lt.Type.InstanceOf(types.TypeInteger) && a.Left.Equal(a.Right) && !a.Left.Has(FlagNDT) {
			return NewValue(a.pos, types.Value{types.Int(0)})
		}
	case types.CalcMul:
		if isInt(a.Right, 1) && integer(lt) {
			return a.Left
		}
		if isInt(a.Left, 1) && integer(rt) {
			return a.Right
		}
		if isInt(a.Right, 0) && lt.One() && lt.Type.InstanceOf(types.TypeInteger) && !a.Left.Has(FlagNDT) {
			return a.Right
		}
		if isInt(a.Left, 0) && rt.One() && rt.Type.InstanceOf(types.TypeInteger) && !a.Right.Has(FlagNDT) {
			return a.Left
		}
	case types.CalcDiv:
		// integer operands are promoted to decimal, so only exact types fold
		if isNumber(a.Right, 1) && lt.ZeroOrOne() && fractional(lt.Type) && a.Calc.ResultType(lt.Type, rt.Type) == lt.Type {
			return a.Left
		}
		if lt.One() && lt.Type == types.TypeDecimal && a.Left.Equal(a.Right) && !a.Left.Has(FlagNDT) {
			return NewValue(a.pos, types.Value{types.DecOf(1)})
		}
	case types.CalcIDiv:
		if isNumber(a.Right, 1) && integer(lt) {
			return a.Left
		}
		if lt.One() && lt.Type.InstanceOf(types.TypeInteger) && a.Left.Equal(a.Right) && !a.Left.Has(FlagNDT) {
			return NewValue(a.pos, types.Value{types.Int(1)})
		}
	}
	return nil
}

func fractional(t types.Type) bool {
	return t == types.TypeDecimal || t == types.TypeDouble
}

// Inline implements Expr.
func (a *Arith) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := []Expr{a.Left, a.Right}
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	a.Left, a.Right = ops[0], ops[1]
	return a.Optimize(cc)
}

// Iter implements Expr.
func (a *Arith) Iter(qc *QueryContext) types.Iter {
	return single(func() (types.Item, error) {
		l, err := atomItem(a.Left, qc)
		if err != nil || l == nil {
			return nil, at(err, a.pos)
		}
		r, err := atomItem(a.Right, qc)
		if err != nil || r == nil {
			return nil, at(err, a.pos)
		}
		res, err := a.Calc.Eval(l, r)
		return res, at(err, a.pos)
	})
}

// Has implements Expr.
func (a *Arith) Has(flags ...Flag) bool {
	return a.Left.Has(flags...) || a.Right.Has(flags...)
}

// Inlineable implements Expr.
func (a *Arith) Inlineable(v *Var) bool {
	return a.Left.Inlineable(v) && a.Right.Inlineable(v)
}

// Count implements Expr.
func (a *Arith) Count(v *Var) VarUsage {
	return a.Left.Count(v).Plus(a.Right.Count(v))
}

// Copy implements Expr.
func (a *Arith) Copy() Expr {
	c := *a
	c.Left, c.Right = a.Left.Copy(), a.Right.Copy()
	return &c
}

// Equal implements Expr.
func (a *Arith) Equal(o Expr) bool {
	oa, ok := o.(*Arith)
	return ok && oa.Calc == a.Calc && a.Left.Equal(oa.Left) && a.Right.Equal(oa.Right)
}

func (a *Arith) String() string {
	return "(" + a.Left.String() + " " + a.Calc.String() + " " + a.Right.String() + ")"
}
