package types

// Wildcard matches any prefix or local name in a NameTest.
const Wildcard = "*"

// NameTest is a pattern over QNames, as used by catch clauses.
// Either part may be the Wildcard.
type NameTest struct {
	Prefix string
	Local  string
}

// AnyName matches every QName.
var AnyName = NameTest{Prefix: Wildcard, Local: Wildcard}

// ParseNameTest parses "*", "prefix:*", "*:local", "prefix:local" or "local".
func ParseNameTest(s string) NameTest {
	if s == Wildcard {
		return AnyName
	}
	q := ParseQName(s)
	return NameTest{Prefix: q.Prefix, Local: q.Local}
}

// Matches reports whether name satisfies the test.
func (t NameTest) Matches(name QName) bool {
	return (t.Prefix == Wildcard || t.Prefix == name.Prefix) &&
		(t.Local == Wildcard || t.Local == name.Local)
}

// Subsumes reports whether every name matched by o is also matched by t.
func (t NameTest) Subsumes(o NameTest) bool {
	return subsumes(t.Prefix, o.Prefix) && subsumes(t.Local, o.Local)
}

func subsumes(general, specific string) bool {
	return general == Wildcard || general == specific
}

// String returns the lexical form of the test.
func (t NameTest) String() string {
	switch {
	case t.Prefix == Wildcard && t.Local == Wildcard:
		return Wildcard
	case t.Prefix == "":
		return t.Local
	default:
		return t.Prefix + ":" + t.Local
	}
}
