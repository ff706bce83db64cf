package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// Calc is an arithmetic operator.
type Calc uint8

// Arithmetic operators.
const (
	CalcAdd Calc = iota
	CalcSub
	CalcMul
	CalcDiv
	CalcIDiv
	CalcMod
)

var calcNames = [...]string{"+", "-", "*", "div", "idiv", "mod"}

// String returns the operator symbol.
func (c Calc) String() string {
	return calcNames[c]
}

// ParseCalc returns the operator for a symbol.
func ParseCalc(s string) (Calc, bool) {
	for i, n := range calcNames {
		if n == s {
			return Calc(i), true
		}
	}
	return 0, false
}

// ResultType returns the static item type of a op b.
func (c Calc) ResultType(a, b Type) Type {
	if a == TypeUntyped {
		a = TypeDouble
	}
	if b == TypeUntyped {
		b = TypeDouble
	}
	if !a.InstanceOf(TypeNumeric) || !b.InstanceOf(TypeNumeric) {
		return TypeAnyAtomic
	}
	switch {
	case c == CalcIDiv:
		return TypeInteger
	case a == TypeDouble || b == TypeDouble:
		return TypeDouble
	case a == TypeInteger && b == TypeInteger:
		if c == CalcDiv {
			return TypeDecimal
		}
		return TypeInteger
	case a.InstanceOf(TypeDecimal) && b.InstanceOf(TypeDecimal):
		return TypeDecimal
	}
	return TypeNumeric
}

// Eval applies the operator to two atomic items.
func (c Calc) Eval(a, b Item) (Item, error) {
	if _, ok := a.(Untyped); ok {
		f, err := ToDouble(a)
		if err != nil {
			return nil, err
		}
		a = Dbl(f)
	}
	if _, ok := b.(Untyped); ok {
		f, err := ToDouble(b)
		if err != nil {
			return nil, err
		}
		b = Dbl(f)
	}
	if !IsNumeric(a) || !IsNumeric(b) {
		return nil, Errorf(ErrTypeMismatch, -1, "%s %s %s is not defined", a.Type(), c, b.Type())
	}

	ia, aInt := a.(Int)
	ib, bInt := b.(Int)
	if aInt && bInt {
		return c.integers(int64(ia), int64(ib))
	}
	if da, ok := ToDecimal(a); ok {
		if db, ok := ToDecimal(b); ok {
			return c.decimals(da, db)
		}
	}
	fa, _ := ToDouble(a)
	fb, _ := ToDouble(b)
	return c.doubles(fa, fb)
}

func (c Calc) integers(a, b int64) (Item, error) {
	switch c {
	case CalcAdd:
		r := a + b
		if (r > a) != (b > 0) {
			return nil, overflow()
		}
		return Int(r), nil
	case CalcSub:
		r := a - b
		if (r < a) != (b > 0) {
			return nil, overflow()
		}
		return Int(r), nil
	case CalcMul:
		if a == 0 || b == 0 {
			return Int(0), nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return nil, overflow()
		}
		return Int(r), nil
	case CalcDiv:
		if b == 0 {
			return nil, divByZero()
		}
		return Dec{V: decimal.NewFromInt(a).Div(decimal.NewFromInt(b))}, nil
	case CalcIDiv:
		if b == 0 {
			return nil, divByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return nil, overflow()
		}
		return Int(a / b), nil
	default:
		if b == 0 {
			return nil, divByZero()
		}
		if b == -1 {
			return Int(0), nil
		}
		return Int(a % b), nil
	}
}

func (c Calc) decimals(a, b decimal.Decimal) (Item, error) {
	switch c {
	case CalcAdd:
		return Dec{V: a.Add(b)}, nil
	case CalcSub:
		return Dec{V: a.Sub(b)}, nil
	case CalcMul:
		return Dec{V: a.Mul(b)}, nil
	}
	if b.IsZero() {
		return nil, divByZero()
	}
	switch c {
	case CalcDiv:
		return Dec{V: a.Div(b)}, nil
	case CalcIDiv:
		q, _ := a.QuoRem(b, 0)
		if !q.IsInteger() || q.Cmp(decimal.NewFromInt(math.MaxInt64)) > 0 || q.Cmp(decimal.NewFromInt(math.MinInt64)) < 0 {
			return nil, overflow()
		}
		return Int(q.IntPart()), nil
	default:
		return Dec{V: a.Mod(b)}, nil
	}
}

func (c Calc) doubles(a, b float64) (Item, error) {
	switch c {
	case CalcAdd:
		return Dbl(a + b), nil
	case CalcSub:
		return Dbl(a - b), nil
	case CalcMul:
		return Dbl(a * b), nil
	case CalcDiv:
		return Dbl(a / b), nil
	case CalcIDiv:
		if b == 0 {
			return nil, divByZero()
		}
		q := math.Trunc(a / b)
		if math.IsNaN(q) || math.IsInf(q, 0) || q >= math.MaxInt64 || q < math.MinInt64 {
			return nil, NewError(ErrNumericOverflow, "integer division of non-finite value", -1)
		}
		return Int(int64(q)), nil
	default:
		return Dbl(math.Mod(a, b)), nil
	}
}

func divByZero() *Error {
	return NewError(ErrDivByZero, "division by zero", -1)
}

func overflow() *Error {
	return NewError(ErrNumericOverflow, "integer overflow", -1)
}
