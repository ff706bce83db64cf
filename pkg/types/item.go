package types

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a single value of a sequence.
type Item interface {
	// Type returns the dynamic item type.
	Type() Type
	// String returns the lexical form used for output and diagnostics.
	String() string
}

// Node is an item backed by a tree node.
type Node interface {
	Item
	// StringValue returns the concatenated text content of the node.
	StringValue() string
}

// Function is a function item.
type Function interface {
	Item
	Arity() int
}

// Int is an xs:integer.
type Int int64

// Dec is an xs:decimal.
type Dec struct {
	V decimal.Decimal
}

// Dbl is an xs:double.
type Dbl float64

// Str is an xs:string.
type Str string

// Bln is an xs:boolean.
type Bln bool

// Untyped is an xs:untypedAtomic, the result of atomizing a stored node.
type Untyped string

// Type implements Item.
func (Int) Type() Type     { return TypeInteger }
func (Dec) Type() Type     { return TypeDecimal }
func (Dbl) Type() Type     { return TypeDouble }
func (Str) Type() Type     { return TypeString }
func (Bln) Type() Type     { return TypeBoolean }
func (Untyped) Type() Type { return TypeUntyped }

func (i Int) String() string     { return strconv.FormatInt(int64(i), 10) }
func (d Dec) String() string     { return d.V.String() }
func (d Dbl) String() string     { return formatDouble(float64(d)) }
func (s Str) String() string     { return string(s) }
func (b Bln) String() string     { return strconv.FormatBool(bool(b)) }
func (u Untyped) String() string { return string(u) }

// NewDec returns a decimal item parsed from s.
func NewDec(s string) (Dec, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Dec{}, Errorf(ErrInvalidCast, -1, "cannot cast %q to xs:decimal", s)
	}
	return Dec{V: v}, nil
}

// DecOf returns the decimal value of an integer.
func DecOf(i int64) Dec {
	return Dec{V: decimal.NewFromInt(i)}
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}
	if a := math.Abs(f); a >= 1e-6 && a < 1e6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

// Value is a materialized sequence of items.
type Value []Item

// Empty is the empty sequence.
var Empty = Value(nil)

// True and False are the boolean singletons.
var (
	True  = Value{Bln(true)}
	False = Value{Bln(false)}
)

// BoolValue returns the singleton sequence of b.
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// Iter returns an iterator over the items.
func (v Value) Iter() Iter {
	return &valueIter{v: v}
}

// SeqType returns the exact static type of the value.
func (v Value) SeqType() SeqType {
	if len(v) == 0 {
		return SeqEmpty
	}
	t := v[0].Type()
	for _, it := range v[1:] {
		t = t.Union(it.Type())
	}
	return NewSeqType(t, OccOf(len(v)))
}

// String returns the value in a parenthesized literal form.
func (v Value) String() string {
	switch len(v) {
	case 0:
		return "()"
	case 1:
		return literal(v[0])
	}
	parts := make([]string, len(v))
	for i, it := range v {
		parts[i] = literal(it)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func literal(it Item) string {
	switch x := it.(type) {
	case Str:
		return strconv.Quote(string(x))
	case Untyped:
		return "xs:untypedAtomic(" + strconv.Quote(string(x)) + ")"
	case Bln:
		return x.String() + "()"
	case Dbl:
		if f := float64(x); !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e6 {
			return strconv.FormatFloat(f, 'f', -1, 64) + "e0"
		}
		return "xs:double(\"" + x.String() + "\")"
	case Dec:
		s := x.String()
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	default:
		return it.String()
	}
}

// Iter is a pull-based cursor over items. Next returns (nil, nil) after the
// last item.
type Iter interface {
	Next() (Item, error)
}

type valueIter struct {
	v Value
	i int
}

func (it *valueIter) Next() (Item, error) {
	if it.i >= len(it.v) {
		return nil, nil
	}
	item := it.v[it.i]
	it.i++
	return item, nil
}

// IterFunc adapts a function to the Iter interface.
type IterFunc func() (Item, error)

// Next implements Iter.
func (f IterFunc) Next() (Item, error) { return f() }

// Collect drains an iterator into a value.
func Collect(it Iter) (Value, error) {
	var v Value
	for {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return v, nil
		}
		v = append(v, item)
	}
}

// IsNumeric reports whether the item is a number.
func IsNumeric(it Item) bool {
	return it.Type().InstanceOf(TypeNumeric)
}

// Atomize returns the atomic value of an item.
func Atomize(it Item) (Item, error) {
	switch x := it.(type) {
	case Node:
		return Untyped(x.StringValue()), nil
	case Function:
		return nil, Errorf(ErrTypeMismatch, -1, "items of type %s cannot be atomized", it.Type())
	default:
		return it, nil
	}
}

// AtomIter wraps an iterator and atomizes every item.
func AtomIter(it Iter) Iter {
	return IterFunc(func() (Item, error) {
		item, err := it.Next()
		if err != nil || item == nil {
			return item, err
		}
		return Atomize(item)
	})
}

// EBV computes the effective boolean value of a sequence.
func EBV(it Iter) (bool, error) {
	first, err := it.Next()
	if err != nil || first == nil {
		return false, err
	}
	if _, ok := first.(Node); ok {
		return true, nil
	}
	next, err := it.Next()
	if err != nil {
		return false, err
	}
	if next != nil {
		return false, NewError(ErrEBV, "effective boolean value of a sequence of more than one atomic item", -1)
	}
	return itemEBV(first)
}

// itemEBV computes the effective boolean value of a single item.
func itemEBV(it Item) (bool, error) {
	switch x := it.(type) {
	case Bln:
		return bool(x), nil
	case Str:
		return x != "", nil
	case Untyped:
		return x != "", nil
	case Int:
		return x != 0, nil
	case Dec:
		return !x.V.IsZero(), nil
	case Dbl:
		return x != 0 && !math.IsNaN(float64(x)), nil
	case Node:
		return true, nil
	}
	return false, Errorf(ErrEBV, -1, "effective boolean value not defined for %s", it.Type())
}

// ToDouble converts a numeric or untyped item to a float.
func ToDouble(it Item) (float64, error) {
	switch x := it.(type) {
	case Int:
		return float64(x), nil
	case Dec:
		f, _ := x.V.Float64()
		return f, nil
	case Dbl:
		return float64(x), nil
	case Untyped:
		return parseDouble(string(x))
	}
	return 0, Errorf(ErrTypeMismatch, -1, "%s cannot be converted to xs:double", it.Type())
}

func parseDouble(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "xXpP_") {
		return 0, Errorf(ErrInvalidCast, -1, "cannot cast %q to xs:double", s)
	}
	return f, nil
}

// ToDecimal converts an integer or decimal item to a decimal.
func ToDecimal(it Item) (decimal.Decimal, bool) {
	switch x := it.(type) {
	case Int:
		return decimal.NewFromInt(int64(x)), true
	case Dec:
		return x.V, true
	}
	return decimal.Decimal{}, false
}

// CastBoolean converts an item to xs:boolean following function coercion
// rules: booleans pass, untyped values are cast, everything else fails.
func CastBoolean(it Item) (Bln, error) {
	switch x := it.(type) {
	case Bln:
		return x, nil
	case Untyped:
		switch strings.TrimSpace(string(x)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, Errorf(ErrInvalidCast, -1, "cannot cast %q to xs:boolean", string(x))
	}
	return false, Errorf(ErrTypeMismatch, -1, "xs:boolean expected, %s found", it.Type())
}
