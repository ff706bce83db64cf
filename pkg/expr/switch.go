package expr

import (
	"strings"

	"github.com/sandrolain/goxq/pkg/types"
)

// SwitchGroup is a list of case values sharing a return expression. A group
// without cases is the default group.
type SwitchGroup struct {
	Cases  []Expr
	Return Expr
}

func (g *SwitchGroup) copy() *SwitchGroup {
	return &SwitchGroup{Cases: copyAll(g.Cases), Return: g.Return.Copy()}
}

func (g *SwitchGroup) equal(o *SwitchGroup) bool {
	return equalAll(g.Cases, o.Cases) && g.Return.Equal(o.Return)
}

// Switch is a switch expression. The last group is the default group.
type Switch struct {
	base
	Cond   Expr
	Groups []*SwitchGroup
}

// NewSwitch returns a switch expression. It fails if the last group is not
// a default group or if any other group has no cases.
func NewSwitch(pos int, cond Expr, groups ...*SwitchGroup) (*Switch, error) {
	s := &Switch{base: newBase(pos, types.SeqItemZM), Cond: cond, Groups: groups}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Switch) validate() error {
	if len(s.Groups) == 0 {
		return types.NotExpected("switch without groups")
	}
	for i, g := range s.Groups {
		if last := i == len(s.Groups)-1; last != (len(g.Cases) == 0) {
			return types.NotExpected("switch group %d: default group must come last", i)
		}
	}
	return nil
}

// Kind implements Expr.
func (s *Switch) Kind() Kind { return KindSwitch }

// CheckUp checks that the condition and the cases are not updating and that
// the return expressions are either all updating or all non-updating.
func (s *Switch) CheckUp() error {
	if s.Cond.Has(FlagUPD) {
		return types.NewError(types.ErrMixedUpdates, "no updating expression allowed in switch condition", s.Cond.Position())
	}
	returns := make([]Expr, 0, len(s.Groups))
	for _, g := range s.Groups {
		for _, c := range g.Cases {
			if c.Has(FlagUPD) {
				return types.NewError(types.ErrMixedUpdates, "no updating expression allowed in switch case", c.Position())
			}
		}
		returns = append(returns, g.Return)
	}
	return checkAllUp(s.pos, returns...)
}

// checkAllUp fails if updating and non-updating expressions are mixed.
// Vacuous expressions count as either.
func checkAllUp(pos int, exprs ...Expr) error {
	var upd, plain int
	for _, e := range exprs {
		switch {
		case e.Has(FlagUPD):
			upd++
		case !e.Vacuous():
			plain++
		}
	}
	if upd > 0 && plain > 0 {
		return types.NewError(types.ErrMixedUpdates, "all expressions must be updating or return an empty sequence", pos)
	}
	return nil
}

// Compile implements Expr.
func (s *Switch) Compile(cc *CompileContext) (Expr, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := s.CheckUp(); err != nil {
		return nil, err
	}
	cond, err := s.Cond.Compile(cc)
	if err != nil {
		return nil, err
	}
	s.Cond = cond
	for _, g := range s.Groups {
		if err := compileAll(cc, g.Cases, false); err != nil {
			return nil, err
		}
		if g.Return, err = compileDeferred(cc, g.Return); err != nil {
			return nil, err
		}
	}
	return s.Optimize(cc)
}

// Optimize implements Expr.
func (s *Switch) Optimize(cc *CompileContext) (Expr, error) {
	s.Cond = simplifyAtom(cc, s.Cond)
	e, err := s.opt(cc)
	if err != nil {
		return nil, err
	}
	if e != s {
		return cc.ReplaceWith(s, e), nil
	}
	returns := make([]Expr, len(s.Groups))
	for i, g := range s.Groups {
		returns[i] = g.Return
	}
	s.st = branchType(returns...)
	return s, nil
}

func (s *Switch) opt(cc *CompileContext) (Expr, error) {
	// pre-evaluate a constant condition
	var item types.Item
	cv, constant := s.Cond.(*Value)
	if constant {
		var err error
		if item, err = atomItem(cv, cc.static); err != nil {
			return nil, err
		}
	}

	var seen []Expr
	dynamic := false
	groups := make([]*SwitchGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		cases := make([]Expr, 0, len(g.Cases))
		for _, c := range g.Cases {
			if constant && !dynamic && isValue(c) {
				ci, err := atomItem(c, cc.static)
				if err != nil {
					return nil, err
				}
				if switchMatch(item, ci, cc.coll) {
					return g.Return, nil
				}
				cc.Info(OptRemove, c, "remove %s from switch expression", c)
				continue
			}
			if containsExpr(seen, c) {
				cc.Info(OptRemove, c, "remove duplicate %s from switch expression", describe(c))
				continue
			}
			if !isValue(c) {
				dynamic = true
			}
			seen = append(seen, c)
			cases = append(cases, c)
		}
		if len(cases) > 0 || len(g.Cases) == 0 {
			g.Cases = cases
			groups = append(groups, g)
		}
	}
	if len(groups) != len(s.Groups) {
		cc.Info(OptSimplify, s, "remove %d groups from switch expression", len(s.Groups)-len(groups))
		s.Groups = groups
	}

	if e := s.simplify(); e != s {
		return e, nil
	}
	return s.toIf(cc)
}

// switchMatch compares a condition with a case value. The empty sequence
// only matches the empty sequence.
func switchMatch(item, c types.Item, coll types.Collator) bool {
	if item == nil || c == nil {
		return item == nil && c == nil
	}
	return types.Equiv(item, c, coll)
}

// simplify returns the single return expression if all groups return the
// same expression.
func (s *Switch) simplify() Expr {
	r := s.Groups[0].Return
	for _, g := range s.Groups[1:] {
		if !g.Return.Equal(r) {
			return s
		}
	}
	return r
}

// toIf rewrites a switch with one case group to a conditional expression
// with a general comparison. This is only done if the condition and the
// cases yield single strings or single decimals, for which equivalence and
// general equality agree.
func (s *Switch) toIf(cc *CompileContext) (Expr, error) {
	if len(s.Groups) != 2 {
		return s, nil
	}
	comparable := func(st types.SeqType) (str, dec bool) {
		if !st.One() {
			return false, false
		}
		return st.Type.IsStringOrUntyped(), st.Type.InstanceOf(types.TypeDecimal)
	}
	str, dec := comparable(s.Cond.SeqType())
	if !str && !dec {
		return s, nil
	}
	for _, c := range s.Groups[0].Cases {
		cs, cd := comparable(c.SeqType())
		if !(str && cs || dec && cd) {
			return s, nil
		}
	}

	cases := s.Groups[0].Cases
	var list Expr
	if len(cases) == 1 {
		list = cases[0]
	} else {
		var err error
		if list, err = NewList(s.pos, cases...).Optimize(cc); err != nil {
			return nil, err
		}
	}
	cmp, err := NewCmpG(s.pos, s.Cond, list, types.OpEQ).Optimize(cc)
	if err != nil {
		return nil, err
	}
	return NewIf(s.pos, cmp, s.Groups[0].Return, s.Groups[1].Return).Optimize(cc)
}

// Inline implements Expr.
func (s *Switch) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	cond, err := Inline(s.Cond, t, repl, cc)
	if err != nil {
		return nil, err
	}
	changed := cond != nil
	if changed {
		s.Cond = cond
	}
	for _, g := range s.Groups {
		ch, err := inlineEach(cc, g.Cases, t, repl)
		if err != nil {
			return nil, err
		}
		r, err := inlineDeferred(cc, g.Return, t, repl)
		if err != nil {
			return nil, err
		}
		if r != nil {
			g.Return = r
		}
		changed = changed || ch || r != nil
	}
	if !changed {
		return nil, nil
	}
	return s.Optimize(cc)
}

// Iter implements Expr.
func (s *Switch) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		item, err := atomItem(s.Cond, qc)
		if err != nil {
			return nil, at(err, s.pos)
		}
		for _, g := range s.Groups {
			if len(g.Cases) == 0 {
				return g.Return.Iter(qc), nil
			}
			for _, c := range g.Cases {
				ci, err := atomItem(c, qc)
				if err != nil {
					return nil, at(err, c.Position())
				}
				if switchMatch(item, ci, qc.session.coll) {
					return g.Return.Iter(qc), nil
				}
			}
		}
		return nil, types.NotExpected("switch without matching group")
	})
}

// Has implements Expr.
func (s *Switch) Has(flags ...Flag) bool {
	if s.Cond.Has(flags...) {
		return true
	}
	for _, g := range s.Groups {
		if hasAny(g.Cases, flags) || g.Return.Has(flags...) {
			return true
		}
	}
	return false
}

// Inlineable implements Expr.
func (s *Switch) Inlineable(v *Var) bool {
	if !s.Cond.Inlineable(v) {
		return false
	}
	for _, g := range s.Groups {
		if !inlineableAll(g.Cases, v) || !g.Return.Inlineable(v) {
			return false
		}
	}
	return true
}

// Count implements Expr. Cases are evaluated in order until one matches, so
// the cases of all earlier groups count for each return expression.
func (s *Switch) Count(v *Var) VarUsage {
	maxUse, cases := UsageNever, UsageNever
	for _, g := range s.Groups {
		cases = cases.Plus(countAll(g.Cases, v))
		maxUse = maxUse.Max(cases.Plus(g.Return.Count(v)))
	}
	return maxUse.Plus(s.Cond.Count(v))
}

// Vacuous implements Expr.
func (s *Switch) Vacuous() bool {
	for _, g := range s.Groups {
		if !g.Return.Vacuous() {
			return false
		}
	}
	return true
}

// DDO implements Expr.
func (s *Switch) DDO() bool {
	for _, g := range s.Groups {
		if !g.Return.DDO() {
			return false
		}
	}
	return true
}

// MarkTailCalls implements Expr.
func (s *Switch) MarkTailCalls(cc *CompileContext) {
	for _, g := range s.Groups {
		g.Return.MarkTailCalls(cc)
	}
}

// Copy implements Expr.
func (s *Switch) Copy() Expr {
	c := *s
	c.Cond = s.Cond.Copy()
	c.Groups = make([]*SwitchGroup, len(s.Groups))
	for i, g := range s.Groups {
		c.Groups[i] = g.copy()
	}
	return &c
}

// Equal implements Expr.
func (s *Switch) Equal(o Expr) bool {
	os, ok := o.(*Switch)
	if !ok || !s.Cond.Equal(os.Cond) || len(s.Groups) != len(os.Groups) {
		return false
	}
	for i, g := range s.Groups {
		if !g.equal(os.Groups[i]) {
			return false
		}
	}
	return true
}

func (s *Switch) String() string {
	var sb strings.Builder
	sb.WriteString("switch (" + s.Cond.String() + ")")
	for _, g := range s.Groups {
		if len(g.Cases) == 0 {
			sb.WriteString(" default")
		}
		for _, c := range g.Cases {
			sb.WriteString(" case " + c.String())
		}
		sb.WriteString(" return " + g.Return.String())
	}
	return sb.String()
}
