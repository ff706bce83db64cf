package expr

import (
	"strings"

	"github.com/sandrolain/goxq/pkg/types"
)

// Catch is a catch clause. Code, Desc and Val are bound to the code,
// description and value of the caught error.
type Catch struct {
	Tests []types.NameTest
	Expr  Expr
	Code  *Var
	Desc  *Var
	Val   *Var
}

// NewCatch returns a catch clause with fresh error variables.
func NewCatch(tests []types.NameTest, e Expr) *Catch {
	c := &Catch{
		Tests: tests,
		Expr:  e,
		Code:  NewVar(types.ErrPrefix + ":code"),
		Desc:  NewVar(types.ErrPrefix + ":description"),
		Val:   NewVar(types.ErrPrefix + ":value"),
	}
	c.Code.Type = types.NewSeqType(types.TypeString, types.OccOne)
	c.Desc.Type = types.NewSeqType(types.TypeString, types.OccZeroOrOne)
	c.Val.Type = types.SeqItemZM
	return c
}

// Matches reports whether the clause catches an error with the given code.
func (c *Catch) Matches(code types.QName) bool {
	for _, t := range c.Tests {
		if t.Matches(code) {
			return true
		}
	}
	return false
}

func (c *Catch) vars() []*Var { return []*Var{c.Code, c.Desc, c.Val} }

func errorValues(qe *types.Error) []types.Value {
	desc := types.Empty
	if qe.Message != "" {
		desc = types.Value{types.Str(qe.Message)}
	}
	return []types.Value{{types.Str(qe.Code.String())}, desc, qe.Value}
}

// inlineError substitutes the error variables of the clause with the values
// of a caught error.
func (c *Catch) inlineError(qe *types.Error, cc *CompileContext) (Expr, error) {
	e := c.Expr
	vals := errorValues(qe)
	for i, v := range c.vars() {
		inlined, err := Inline(e, Target{Var: v}, NewValue(c.Expr.Position(), vals[i]), cc)
		if err != nil {
			return nil, err
		}
		if inlined != nil {
			e = inlined
		}
	}
	return e, nil
}

// simplify removes tests that are subsumed by a test of an earlier clause.
// It reports false if no test is left.
func (c *Catch) simplify(seen *[]types.NameTest, cc *CompileContext) bool {
	tests := make([]types.NameTest, 0, len(c.Tests))
	for _, t := range c.Tests {
		subsumed := false
		for _, s := range *seen {
			if s.Subsumes(t) {
				subsumed = true
				break
			}
		}
		if subsumed {
			cc.Info(OptRemove, c.Expr, "remove catch test %s", t)
			continue
		}
		tests = append(tests, t)
		*seen = append(*seen, t)
	}
	c.Tests = tests
	return len(tests) > 0
}

func (c *Catch) copy() *Catch {
	cp := *c
	cp.Tests = append([]types.NameTest(nil), c.Tests...)
	cp.Expr = c.Expr.Copy()
	return &cp
}

func (c *Catch) equal(o *Catch) bool {
	if len(c.Tests) != len(o.Tests) {
		return false
	}
	for i, t := range c.Tests {
		if t != o.Tests[i] {
			return false
		}
	}
	return c.Code == o.Code && c.Expr.Equal(o.Expr)
}

func (c *Catch) String() string {
	tests := make([]string, len(c.Tests))
	for i, t := range c.Tests {
		tests[i] = t.String()
	}
	return "catch " + strings.Join(tests, " | ") + " { " + c.Expr.String() + " }"
}

// Try is a try/catch expression.
type Try struct {
	base
	Expr    Expr
	Catches []*Catch
}

// NewTry returns a try/catch expression.
func NewTry(pos int, e Expr, catches ...*Catch) *Try {
	return &Try{base: newBase(pos, types.SeqItemZM), Expr: e, Catches: catches}
}

// Kind implements Expr.
func (t *Try) Kind() Kind { return KindTry }

// CheckUp fails if updating and non-updating branches are mixed.
func (t *Try) CheckUp() error {
	exprs := []Expr{t.Expr}
	for _, c := range t.Catches {
		exprs = append(exprs, c.Expr)
	}
	return checkAllUp(t.pos, exprs...)
}

// Compile implements Expr. A catchable error raised while compiling the
// guarded expression is handled by the first matching clause, whose
// expression then replaces the whole try expression.
func (t *Try) Compile(cc *CompileContext) (Expr, error) {
	if err := t.CheckUp(); err != nil {
		return nil, err
	}
	e, err := t.Expr.Compile(cc)
	if err != nil {
		qe, ok := types.AsError(err)
		if !ok {
			return nil, err
		}
		for _, c := range t.Catches {
			if !c.Matches(qe.Code) {
				continue
			}
			h, err := c.Expr.Compile(cc)
			if err != nil {
				return nil, err
			}
			c.Expr = h
			if h, err = c.inlineError(qe, cc); err != nil {
				return nil, err
			}
			cc.Info(OptRewrite, t, "catch %s at compile time", qe.Code)
			return cc.ReplaceWith(t, h), nil
		}
		return nil, err
	}
	t.Expr = e
	for _, c := range t.Catches {
		if c.Expr, err = compileDeferred(cc, c.Expr); err != nil {
			return nil, err
		}
	}
	return t.Optimize(cc)
}

// Optimize implements Expr.
func (t *Try) Optimize(cc *CompileContext) (Expr, error) {
	if isValue(t.Expr) {
		return cc.ReplaceWith(t, t.Expr), nil
	}
	var seen []types.NameTest
	catches := make([]*Catch, 0, len(t.Catches))
	for _, c := range t.Catches {
		if c.simplify(&seen, cc) {
			catches = append(catches, c)
		} else {
			cc.Info(OptRemove, c.Expr, "remove unreachable catch clause")
		}
	}
	t.Catches = catches

	branches := []Expr{t.Expr}
	for _, c := range t.Catches {
		branches = append(branches, c.Expr)
	}
	t.st = branchType(branches...)
	return t, nil
}

// Inline implements Expr. Errors raised while inlining into the guarded
// expression are handled like compile-time errors.
func (t *Try) Inline(tg Target, repl Expr, cc *CompileContext) (Expr, error) {
	e, err := Inline(t.Expr, tg, repl, cc)
	if err != nil {
		qe, ok := types.AsError(err)
		if !ok {
			return nil, err
		}
		for _, c := range t.Catches {
			if c.Matches(qe.Code) {
				h, err := Inline(c.Expr, tg, repl, cc)
				if err != nil {
					return nil, err
				}
				if h != nil {
					c.Expr = h
				}
				if h, err = c.inlineError(qe, cc); err != nil {
					return nil, err
				}
				return cc.ReplaceWith(t, h), nil
			}
		}
		return nil, err
	}
	changed := e != nil
	if changed {
		t.Expr = e
	}
	for _, c := range t.Catches {
		h, err := inlineDeferred(cc, c.Expr, tg, repl)
		if err != nil {
			return nil, err
		}
		if h != nil {
			c.Expr = h
			changed = true
		}
	}
	if !changed {
		return nil, nil
	}
	return t.Optimize(cc)
}

// Iter implements Expr. The guarded expression is evaluated completely, so
// that all of its errors are raised inside the try expression.
func (t *Try) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		v, err := types.Collect(t.Expr.Iter(qc))
		if err == nil {
			return v.Iter(), nil
		}
		qe, ok := types.AsError(err)
		if !ok {
			return nil, err
		}
		for _, c := range t.Catches {
			if !c.Matches(qe.Code) {
				continue
			}
			vals := errorValues(qe)
			hqc := qc
			for i, cv := range c.vars() {
				hqc = hqc.Bind(cv, vals[i])
			}
			return c.Expr.Iter(hqc), nil
		}
		return nil, err
	})
}

// Has implements Expr.
func (t *Try) Has(flags ...Flag) bool {
	if t.Expr.Has(flags...) {
		return true
	}
	for _, c := range t.Catches {
		if c.Expr.Has(flags...) {
			return true
		}
	}
	return false
}

// Inlineable implements Expr.
func (t *Try) Inlineable(v *Var) bool {
	if !t.Expr.Inlineable(v) {
		return false
	}
	for _, c := range t.Catches {
		if !c.Expr.Inlineable(v) {
			return false
		}
	}
	return true
}

// Count implements Expr.
func (t *Try) Count(v *Var) VarUsage {
	u := UsageNever
	for _, c := range t.Catches {
		u = u.Max(c.Expr.Count(v))
	}
	return t.Expr.Count(v).Plus(u)
}

// Vacuous implements Expr.
func (t *Try) Vacuous() bool {
	if !t.Expr.Vacuous() {
		return false
	}
	for _, c := range t.Catches {
		if !c.Expr.Vacuous() {
			return false
		}
	}
	return true
}

// DDO implements Expr.
func (t *Try) DDO() bool {
	if !t.Expr.DDO() {
		return false
	}
	for _, c := range t.Catches {
		if !c.Expr.DDO() {
			return false
		}
	}
	return true
}

// MarkTailCalls implements Expr. Only handlers are in tail position.
func (t *Try) MarkTailCalls(cc *CompileContext) {
	for _, c := range t.Catches {
		c.Expr.MarkTailCalls(cc)
	}
}

// Copy implements Expr.
func (t *Try) Copy() Expr {
	c := *t
	c.Expr = t.Expr.Copy()
	c.Catches = make([]*Catch, len(t.Catches))
	for i, ct := range t.Catches {
		c.Catches[i] = ct.copy()
	}
	return &c
}

// Equal implements Expr.
func (t *Try) Equal(o Expr) bool {
	ot, ok := o.(*Try)
	if !ok || !t.Expr.Equal(ot.Expr) || len(t.Catches) != len(ot.Catches) {
		return false
	}
	for i, c := range t.Catches {
		if !c.equal(ot.Catches[i]) {
			return false
		}
	}
	return true
}

func (t *Try) String() string {
	var sb strings.Builder
	sb.WriteString("try { " + t.Expr.String() + " }")
	for _, c := range t.Catches {
		sb.WriteString(" " + c.String())
	}
	return sb.String()
}
