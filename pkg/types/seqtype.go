package types

import "math"

// Type is an item type of the static type lattice.
type Type uint8

// Item types. The order of declaration is irrelevant; the hierarchy is
// defined by the parents table.
const (
	TypeItem Type = iota
	TypeAnyAtomic
	TypeUntyped
	TypeString
	TypeBoolean
	TypeNumeric
	TypeDouble
	TypeDecimal
	TypeInteger
	TypeNode
	TypeDocument
	TypeElement
	TypeAttribute
	TypeText
	TypeComment
	TypePI
	TypeFunction
)

var typeParents = [...]Type{
	TypeItem:      TypeItem,
	TypeAnyAtomic: TypeItem,
	TypeUntyped:   TypeAnyAtomic,
	TypeString:    TypeAnyAtomic,
	TypeBoolean:   TypeAnyAtomic,
	TypeNumeric:   TypeAnyAtomic,
	TypeDouble:    TypeNumeric,
	TypeDecimal:   TypeNumeric,
	TypeInteger:   TypeDecimal,
	TypeNode:      TypeItem,
	TypeDocument:  TypeNode,
	TypeElement:   TypeNode,
	TypeAttribute: TypeNode,
	TypeText:      TypeNode,
	TypeComment:   TypeNode,
	TypePI:        TypeNode,
	TypeFunction:  TypeItem,
}

var typeNames = [...]string{
	TypeItem:      "item()",
	TypeAnyAtomic: "xs:anyAtomicType",
	TypeUntyped:   "xs:untypedAtomic",
	TypeString:    "xs:string",
	TypeBoolean:   "xs:boolean",
	TypeNumeric:   "xs:numeric",
	TypeDouble:    "xs:double",
	TypeDecimal:   "xs:decimal",
	TypeInteger:   "xs:integer",
	TypeNode:      "node()",
	TypeDocument:  "document-node()",
	TypeElement:   "element()",
	TypeAttribute: "attribute()",
	TypeText:      "text()",
	TypeComment:   "comment()",
	TypePI:        "processing-instruction()",
	TypeFunction:  "function(*)",
}

// String returns the type name.
func (t Type) String() string {
	return typeNames[t]
}

// Parent returns the direct supertype. The parent of item() is item().
func (t Type) Parent() Type {
	return typeParents[t]
}

// InstanceOf reports whether t is o or a subtype of o.
func (t Type) InstanceOf(o Type) bool {
	for {
		if t == o {
			return true
		}
		if t == TypeItem {
			return false
		}
		t = t.Parent()
	}
}

// Union returns the least common supertype.
func (t Type) Union(o Type) Type {
	for !o.InstanceOf(t) {
		t = t.Parent()
	}
	return t
}

// IsNode reports whether t is a node type.
func (t Type) IsNode() bool {
	return t.InstanceOf(TypeNode)
}

// IsStringOrUntyped reports whether values of t compare as strings.
func (t Type) IsStringOrUntyped() bool {
	return t == TypeString || t == TypeUntyped
}

// Atomized returns the type of the atomized values of t.
func (t Type) Atomized() Type {
	switch {
	case t.IsNode():
		return TypeUntyped
	case t == TypeItem:
		return TypeAnyAtomic
	default:
		return t
	}
}

const unbounded = math.MaxInt

// Occ is an occurrence indicator: the minimum and maximum number of items.
type Occ struct {
	min, max int
}

// Occurrence indicators.
var (
	OccZero       = Occ{0, 0}
	OccOne        = Occ{1, 1}
	OccZeroOrOne  = Occ{0, 1}
	OccZeroOrMore = Occ{0, unbounded}
	OccOneOrMore  = Occ{1, unbounded}
)

// Min returns the minimum number of items.
func (o Occ) Min() int { return o.min }

// Max returns the maximum number of items; math.MaxInt means unbounded.
func (o Occ) Max() int { return o.max }

// Union returns the smallest occurrence covering both.
func (o Occ) Union(p Occ) Occ {
	return Occ{min(o.min, p.min), max(o.max, p.max)}
}

// Multiply returns the occurrence of a concatenation of o-many sequences of p.
func (o Occ) Multiply(p Occ) Occ {
	return Occ{mul(o.min, p.min), mul(o.max, p.max)}
}

// Add returns the occurrence of the concatenation of two sequences.
func (o Occ) Add(p Occ) Occ {
	return Occ{add(o.min, p.min), add(o.max, p.max)}
}

func mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a == unbounded || b == unbounded {
		return unbounded
	}
	return min(a*b, unbounded)
}

func add(a, b int) int {
	if a == unbounded || b == unbounded {
		return unbounded
	}
	return a + b
}

// Covers reports whether every count allowed by p is allowed by o.
func (o Occ) Covers(p Occ) bool {
	return o.min <= p.min && p.max <= o.max
}

// OccOf returns the indicator for exactly n items.
func OccOf(n int) Occ {
	switch n {
	case 0:
		return OccZero
	case 1:
		return OccOne
	default:
		return OccOneOrMore
	}
}

// String returns the indicator suffix.
func (o Occ) String() string {
	switch o {
	case OccOne:
		return ""
	case OccZeroOrOne:
		return "?"
	case OccOneOrMore:
		return "+"
	case OccZero:
		return "0"
	default:
		return "*"
	}
}

// normalize collapses counts the lattice cannot express.
func (o Occ) normalize() Occ {
	switch {
	case o.max == 0:
		return OccZero
	case o.min == 1 && o.max == 1:
		return OccOne
	case o.min == 0 && o.max == 1:
		return OccZeroOrOne
	case o.min == 0:
		return OccZeroOrMore
	default:
		return OccOneOrMore
	}
}

// SeqType is an occurrence-annotated static type.
type SeqType struct {
	Type Type
	Occ  Occ
}

// Frequently used sequence types.
var (
	SeqEmpty     = SeqType{TypeItem, OccZero}
	SeqItemZM    = SeqType{TypeItem, OccZeroOrMore}
	SeqItemO     = SeqType{TypeItem, OccOne}
	SeqBooleanO  = SeqType{TypeBoolean, OccOne}
	SeqIntegerO  = SeqType{TypeInteger, OccOne}
	SeqIntegerZM = SeqType{TypeInteger, OccZeroOrMore}
	SeqStringO   = SeqType{TypeString, OccOne}
	SeqDoubleO   = SeqType{TypeDouble, OccOne}
	SeqNumericZO = SeqType{TypeNumeric, OccZeroOrOne}
	SeqNodeZM    = SeqType{TypeNode, OccZeroOrMore}
	SeqDocumentO = SeqType{TypeDocument, OccOne}
	SeqFunctionO = SeqType{TypeFunction, OccOne}
)

// NewSeqType returns a normalized sequence type.
func NewSeqType(t Type, o Occ) SeqType {
	return SeqType{Type: t, Occ: o.normalize()}
}

// One reports whether exactly one item is produced.
func (s SeqType) One() bool { return s.Occ == OccOne }

// Zero reports whether no item is ever produced.
func (s SeqType) Zero() bool { return s.Occ.max == 0 }

// ZeroOrOne reports whether at most one item is produced.
func (s SeqType) ZeroOrOne() bool { return s.Occ.max <= 1 }

// MayBeEmpty reports whether the empty sequence can be produced.
func (s SeqType) MayBeEmpty() bool { return s.Occ.min == 0 }

// With returns the type with a different occurrence indicator.
func (s SeqType) With(o Occ) SeqType {
	return NewSeqType(s.Type, o)
}

// Union returns the least upper bound of two sequence types.
func (s SeqType) Union(o SeqType) SeqType {
	t := s.Type.Union(o.Type)
	switch {
	case s.Zero():
		t = o.Type
	case o.Zero():
		t = s.Type
	}
	return NewSeqType(t, s.Occ.Union(o.Occ))
}

// InstanceOf reports whether every value of s is a value of o.
func (s SeqType) InstanceOf(o SeqType) bool {
	if !o.Occ.Covers(s.Occ) {
		return false
	}
	return s.Zero() || s.Type.InstanceOf(o.Type)
}

// Eq reports whether both types are identical.
func (s SeqType) Eq(o SeqType) bool {
	return s == o
}

// Atomized returns the type of the atomized sequence.
func (s SeqType) Atomized() SeqType {
	return SeqType{Type: s.Type.Atomized(), Occ: s.Occ}
}

// String returns the type in sequence type syntax.
func (s SeqType) String() string {
	if s.Zero() {
		return "empty-sequence()"
	}
	return s.Type.String() + s.Occ.String()
}
