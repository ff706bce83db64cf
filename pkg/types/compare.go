package types

import (
	"math"
	"strings"
)

// Collator compares strings. *collate.Collator from golang.org/x/text
// satisfies it. A nil Collator compares by Unicode codepoints.
type Collator interface {
	CompareString(a, b string) int
}

// CmpOp is a comparison operator.
type CmpOp uint8

// Comparison operators.
const (
	OpEQ CmpOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

var cmpNames = [...]string{"=", "!=", "<", "<=", ">", ">="}

// String returns the general comparison symbol.
func (op CmpOp) String() string {
	return cmpNames[op]
}

// Swap returns the operator for swapped operands.
func (op CmpOp) Swap() CmpOp {
	switch op {
	case OpLT:
		return OpGT
	case OpLE:
		return OpGE
	case OpGT:
		return OpLT
	case OpGE:
		return OpLE
	}
	return op
}

// ParseCmpOp returns the operator for a symbol.
func ParseCmpOp(s string) (CmpOp, bool) {
	for i, n := range cmpNames {
		if n == s {
			return CmpOp(i), true
		}
	}
	return 0, false
}

func (op CmpOp) test(c int) bool {
	switch op {
	case OpEQ:
		return c == 0
	case OpNE:
		return c != 0
	case OpLT:
		return c < 0
	case OpLE:
		return c <= 0
	case OpGT:
		return c > 0
	default:
		return c >= 0
	}
}

func compareStrings(a, b string, coll Collator) int {
	if coll != nil {
		return coll.CompareString(a, b)
	}
	return strings.Compare(a, b)
}

func isStringLike(it Item) bool {
	return it.Type().IsStringOrUntyped()
}

// CompareGeneral compares two atomic items as a general comparison does:
// untyped operands are promoted to the type of the other operand.
func CompareGeneral(a, b Item, op CmpOp, coll Collator) (bool, error) {
	_, ua := a.(Untyped)
	_, ub := b.(Untyped)
	switch {
	case ua && IsNumeric(b), ub && IsNumeric(a):
		return compareNumbers(a, b, op)
	case ua && b.Type() == TypeBoolean:
		v, err := CastBoolean(a)
		if err != nil {
			return false, err
		}
		return compareBooleans(bool(v), bool(b.(Bln)), op), nil
	case ub && a.Type() == TypeBoolean:
		v, err := CastBoolean(b)
		if err != nil {
			return false, err
		}
		return compareBooleans(bool(a.(Bln)), bool(v), op), nil
	}
	return CompareValues(a, b, op, coll)
}

// CompareValues compares two atomic items of comparable types.
func CompareValues(a, b Item, op CmpOp, coll Collator) (bool, error) {
	switch {
	case isStringLike(a) && isStringLike(b):
		return op.test(compareStrings(a.String(), b.String(), coll)), nil
	case IsNumeric(a) && IsNumeric(b):
		return compareNumbers(a, b, op)
	case a.Type() == TypeBoolean && b.Type() == TypeBoolean:
		return compareBooleans(bool(a.(Bln)), bool(b.(Bln)), op), nil
	}
	return false, Errorf(ErrTypeMismatch, -1, "%s and %s cannot be compared", a.Type(), b.Type())
}

func compareBooleans(a, b bool, op CmpOp) bool {
	c := 0
	switch {
	case a && !b:
		c = 1
	case !a && b:
		c = -1
	}
	return op.test(c)
}

func compareNumbers(a, b Item, op CmpOp) (bool, error) {
	if da, ok := ToDecimal(a); ok {
		if db, ok := ToDecimal(b); ok {
			return op.test(da.Cmp(db)), nil
		}
	}
	fa, err := ToDouble(a)
	if err != nil {
		return false, err
	}
	fb, err := ToDouble(b)
	if err != nil {
		return false, err
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return op == OpNE, nil
	}
	c := 0
	switch {
	case fa < fb:
		c = -1
	case fa > fb:
		c = 1
	}
	return op.test(c), nil
}

// Equiv reports whether two atomic items are equivalent in the sense of
// deep-equal: incomparable items are unequal and NaN equals NaN.
func Equiv(a, b Item, coll Collator) bool {
	switch {
	case isStringLike(a) && isStringLike(b):
		return compareStrings(a.String(), b.String(), coll) == 0
	case IsNumeric(a) && IsNumeric(b):
		fa, _ := ToDouble(a)
		fb, _ := ToDouble(b)
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		eq, err := compareNumbers(a, b, OpEQ)
		return err == nil && eq
	case a.Type() == TypeBoolean && b.Type() == TypeBoolean:
		return a.(Bln) == b.(Bln)
	}
	return false
}
