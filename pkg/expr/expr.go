// Package expr implements the expression tree of compiled queries.
//
// A raw expression tree is built by a front end (see package plan) and handed
// to Compile. Every node compiles its children, then optimizes itself and
// returns either itself or a cheaper, semantically equivalent replacement.
// The parent stores whatever its child returns, so rewrites always replace a
// child slot and never modify a child from outside.
//
// # Error policy
//
// Static errors raised while compiling an operand that is evaluated
// unconditionally (the first operand of a logical expression, the condition
// of if and switch) are fatal. Errors raised in operands that may never be
// evaluated are deferred: the operand is replaced with a Raise node that
// re-raises the original error when it is evaluated.
//
// # Evaluation
//
// Iter returns a lazy iterator. No work is done before the first call to
// Next, and errors are reported by Next.
package expr

import (
	"strings"

	"github.com/sandrolain/goxq/pkg/types"
)

// Kind identifies the variant of an expression.
type Kind uint8

// Expression kinds.
const (
	KindValue Kind = iota
	KindVarRef
	KindContext
	KindRoot
	KindAnd
	KindOr
	KindIf
	KindSwitch
	KindTry
	KindArith
	KindCmpG
	KindList
	KindRange
	KindFor
	KindLet
	KindClosure
	KindDynFuncCall
	KindFunc
	KindTypeCheck
	KindFilter
	KindPath
	KindStep
	KindRaise
)

var kindNames = [...]string{
	"Value", "VarRef", "ContextValue", "Root", "And", "Or", "If", "Switch", "Try",
	"Arith", "CmpG", "List", "Range", "For", "Let", "Closure", "DynFuncCall",
	"StaticFunc", "TypeCheck", "Filter", "Path", "Step", "Raise",
}

// String returns the kind name.
func (k Kind) String() string {
	return kindNames[k]
}

// Flag is a property of an expression tree queried by Has.
type Flag uint8

// Flags.
const (
	// FlagNDT marks non-deterministic expressions.
	FlagNDT Flag = iota
	// FlagCTX marks expressions that depend on the focus.
	FlagCTX
	// FlagPOS marks expressions that depend on the focus position.
	FlagPOS
	// FlagUPD marks updating expressions.
	FlagUPD
	// FlagHOF marks dynamic function calls.
	FlagHOF
)

// Expr is a node of a compiled query.
type Expr interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Compile compiles the children and returns the optimized node.
	Compile(cc *CompileContext) (Expr, error)
	// Optimize applies local rewrites and returns the node or a replacement.
	Optimize(cc *CompileContext) (Expr, error)
	// Inline substitutes the target with repl. It returns nil if nothing
	// was changed.
	Inline(t Target, repl Expr, cc *CompileContext) (Expr, error)
	// Iter returns a lazy iterator over the result.
	Iter(qc *QueryContext) types.Iter
	// SeqType returns the static type.
	SeqType() types.SeqType
	// Has reports whether the tree has any of the flags.
	Has(flags ...Flag) bool
	// Inlineable reports whether references to v may be replaced by an
	// expression that depends on the focus.
	Inlineable(v *Var) bool
	// Count reports how often v is referenced per evaluation.
	Count(v *Var) VarUsage
	// Vacuous reports whether the expression statically yields nothing.
	Vacuous() bool
	// DDO reports whether resulting nodes are statically known to be in
	// document order and duplicate free.
	DDO() bool
	// MarkTailCalls marks function calls in tail position.
	MarkTailCalls(cc *CompileContext)
	// Copy returns a deep copy.
	Copy() Expr
	// Equal reports syntactic identity.
	Equal(o Expr) bool
	// Position returns the source position, or -1.
	Position() int
	String() string
}

// base carries the fields shared by all variants.
type base struct {
	pos int
	st  types.SeqType
}

func newBase(pos int, st types.SeqType) base {
	return base{pos: pos, st: st}
}

func (b *base) Position() int                   { return b.pos }
func (b *base) SeqType() types.SeqType          { return b.st }
func (b *base) Vacuous() bool                   { return b.st.Zero() }
func (b *base) DDO() bool                       { return b.st.ZeroOrOne() }
func (b *base) MarkTailCalls(_ *CompileContext) {}

// VarUsage counts variable references.
type VarUsage uint8

// Usage counts.
const (
	UsageNever VarUsage = iota
	UsageOnce
	UsageMore
)

var usageNames = [...]string{"never", "once", "more"}

// String returns the usage name.
func (u VarUsage) String() string { return usageNames[u] }

// Plus returns the usage of two sequential evaluations.
func (u VarUsage) Plus(o VarUsage) VarUsage {
	return min(u+o, UsageMore)
}

// Max returns the usage of alternative evaluations.
func (u VarUsage) Max(o VarUsage) VarUsage {
	return max(u, o)
}

// Times returns the usage of an expression evaluated for a sequence of the
// given occurrence.
func (u VarUsage) Times(o types.Occ) VarUsage {
	switch {
	case u == UsageNever || o.Max() == 0:
		return UsageNever
	case o.Max() == 1:
		return u
	}
	return UsageMore
}

// Target is what Inline substitutes: references to Var, or every
// sub-expression equal to Expr.
type Target struct {
	Var  *Var
	Expr Expr
}

// Inline substitutes the target in e. It returns nil if e was not changed.
func Inline(e Expr, t Target, repl Expr, cc *CompileContext) (Expr, error) {
	if t.Expr != nil && t.Expr.Equal(e) {
		return repl.Copy(), nil
	}
	return e.Inline(t, repl, cc)
}

// compileDeferred compiles e. Catchable errors are deferred to evaluation time.
func compileDeferred(cc *CompileContext, e Expr) (Expr, error) {
	c, err := e.Compile(cc)
	if err != nil {
		qe, ok := types.AsError(err)
		if !ok {
			return nil, err
		}
		return cc.Error(qe, e), nil
	}
	return c, nil
}

// compileAll compiles every expression. The first one is compiled eagerly if
// eager is set; catchable errors in the others are deferred.
func compileAll(cc *CompileContext, exprs []Expr, eager bool) error {
	for i, e := range exprs {
		var err error
		if i == 0 && eager {
			exprs[i], err = e.Compile(cc)
		} else {
			exprs[i], err = compileDeferred(cc, e)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// compileStrict compiles every expression and propagates all errors.
func compileStrict(cc *CompileContext, exprs []Expr) error {
	for i, e := range exprs {
		c, err := e.Compile(cc)
		if err != nil {
			return err
		}
		exprs[i] = c
	}
	return nil
}

// inlineAll inlines into every expression in place. If eager is set, errors
// of the first expression propagate; a catchable error in any other
// expression truncates the list: the failing expression is replaced with an
// error node and all later ones are dropped as they are dead. The returned
// slice may be shorter than exprs.
func inlineAll(cc *CompileContext, exprs []Expr, t Target, repl Expr, eager bool) ([]Expr, bool, error) {
	changed := false
	for i, e := range exprs {
		inlined, err := Inline(e, t, repl, cc)
		if err != nil {
			qe, ok := types.AsError(err)
			if !ok || i == 0 && eager {
				return nil, false, err
			}
			exprs = append(exprs[:i:i], cc.Error(qe, e))
			return exprs, true, nil
		}
		if inlined != nil {
			exprs[i] = inlined
			changed = true
		}
	}
	return exprs, changed, nil
}

// inlineEach inlines into every expression in place; catchable errors
// replace only the failing expression.
func inlineEach(cc *CompileContext, exprs []Expr, t Target, repl Expr) (bool, error) {
	changed := false
	for i, e := range exprs {
		inlined, err := inlineDeferred(cc, e, t, repl)
		if err != nil {
			return false, err
		}
		if inlined != nil {
			exprs[i] = inlined
			changed = true
		}
	}
	return changed, nil
}

// inlineDeferred inlines into e and defers catchable errors.
func inlineDeferred(cc *CompileContext, e Expr, t Target, repl Expr) (Expr, error) {
	inlined, err := Inline(e, t, repl, cc)
	if err != nil {
		qe, ok := types.AsError(err)
		if !ok {
			return nil, err
		}
		return cc.Error(qe, e), nil
	}
	return inlined, nil
}

// inlineStrict inlines into every expression and propagates errors.
func inlineStrict(cc *CompileContext, exprs []Expr, t Target, repl Expr) (bool, error) {
	changed := false
	for i, e := range exprs {
		inlined, err := Inline(e, t, repl, cc)
		if err != nil {
			return false, err
		}
		if inlined != nil {
			exprs[i] = inlined
			changed = true
		}
	}
	return changed, nil
}

func hasAny(exprs []Expr, flags []Flag) bool {
	for _, e := range exprs {
		if e.Has(flags...) {
			return true
		}
	}
	return false
}

func inlineableAll(exprs []Expr, v *Var) bool {
	for _, e := range exprs {
		if !e.Inlineable(v) {
			return false
		}
	}
	return true
}

func countAll(exprs []Expr, v *Var) VarUsage {
	u := UsageNever
	for _, e := range exprs {
		u = u.Plus(e.Count(v))
	}
	return u
}

func copyAll(exprs []Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.Copy()
	}
	return out
}

func equalAll(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func containsExpr(exprs []Expr, e Expr) bool {
	for _, x := range exprs {
		if x.Equal(e) {
			return true
		}
	}
	return false
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// without removes flags from a flag list.
func without(flags []Flag, drop ...Flag) []Flag {
	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		keep := true
		for _, d := range drop {
			if f == d {
				keep = false
			}
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}
