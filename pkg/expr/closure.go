package expr

import (
	"strings"

	"github.com/sandrolain/goxq/pkg/types"
)

// Closure is an inline function expression.
type Closure struct {
	base
	Params []*Var
	Body   Expr
}

// NewClosure returns an inline function.
func NewClosure(pos int, params []*Var, body Expr) *Closure {
	return &Closure{base: newBase(pos, types.SeqFunctionO), Params: params, Body: body}
}

// Kind implements Expr.
func (c *Closure) Kind() Kind { return KindClosure }

// Compile implements Expr. The body is not necessarily invoked, so its
// errors are deferred.
func (c *Closure) Compile(cc *CompileContext) (Expr, error) {
	body, err := compileDeferred(cc, c.Body)
	if err != nil {
		return nil, err
	}
	c.Body = body
	c.Body.MarkTailCalls(cc)
	return c.Optimize(cc)
}

// Optimize implements Expr.
func (c *Closure) Optimize(_ *CompileContext) (Expr, error) { return c, nil }

// Inline implements Expr.
func (c *Closure) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	body, err := inlineDeferred(cc, c.Body, t, repl)
	if err != nil || body == nil {
		return nil, err
	}
	c.Body = body
	return c.Optimize(cc)
}

// Iter implements Expr.
func (c *Closure) Iter(qc *QueryContext) types.Iter {
	return types.Value{&FuncItem{Closure: c, qc: qc}}.Iter()
}

// Has implements Expr. The body is evaluated in its own context and does not
// contribute.
func (c *Closure) Has(...Flag) bool { return false }

// Inlineable implements Expr.
func (c *Closure) Inlineable(v *Var) bool {
	return c.Body.Count(v) == UsageNever
}

// Count implements Expr. A closure may be invoked any number of times.
func (c *Closure) Count(v *Var) VarUsage {
	if c.Body.Count(v) == UsageNever {
		return UsageNever
	}
	return UsageMore
}

// Copy implements Expr.
func (c *Closure) Copy() Expr {
	cp := *c
	cp.Body = c.Body.Copy()
	return &cp
}

// Equal implements Expr.
func (c *Closure) Equal(o Expr) bool {
	oc, ok := o.(*Closure)
	if !ok || len(oc.Params) != len(c.Params) {
		return false
	}
	for i, p := range c.Params {
		if oc.Params[i] != p {
			return false
		}
	}
	return c.Body.Equal(oc.Body)
}

func (c *Closure) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.String()
	}
	return "function(" + strings.Join(params, ", ") + ") { " + c.Body.String() + " }"
}

// FuncItem is a function item created by evaluating a closure. It keeps the
// dynamic context of its creation.
type FuncItem struct {
	Closure *Closure
	qc      *QueryContext
}

var _ types.Function = (*FuncItem)(nil)

// Type implements types.Item.
func (f *FuncItem) Type() types.Type { return types.TypeFunction }

// Arity implements types.Function.
func (f *FuncItem) Arity() int { return len(f.Closure.Params) }

func (f *FuncItem) String() string { return f.Closure.String() }

// Invoke evaluates the function body with the given arguments.
func (f *FuncItem) Invoke(args []types.Value) types.Iter {
	qc := f.qc
	for i, p := range f.Closure.Params {
		qc = qc.Bind(p, args[i])
	}
	return f.Closure.Body.Iter(qc)
}

// DynFuncCall is a dynamic function call.
type DynFuncCall struct {
	base
	Fn   Expr
	Args []Expr
	// Tail is set if the call is in tail position of a function body.
	Tail bool
}

// NewDynFuncCall returns a dynamic function call.
func NewDynFuncCall(pos int, fn Expr, args ...Expr) *DynFuncCall {
	return &DynFuncCall{base: newBase(pos, types.SeqItemZM), Fn: fn, Args: args}
}

// Kind implements Expr.
func (d *DynFuncCall) Kind() Kind { return KindDynFuncCall }

// Compile implements Expr.
func (d *DynFuncCall) Compile(cc *CompileContext) (Expr, error) {
	fn, err := d.Fn.Compile(cc)
	if err != nil {
		return nil, err
	}
	d.Fn = fn
	if err := compileStrict(cc, d.Args); err != nil {
		return nil, err
	}
	return d.Optimize(cc)
}

// Optimize implements Expr. Calls of inline functions are rewritten to let
// bindings of the parameters.
func (d *DynFuncCall) Optimize(cc *CompileContext) (Expr, error) {
	fst := d.Fn.SeqType()
	if !fst.Zero() && !fst.Type.InstanceOf(types.TypeFunction) && fst.Type.Atomized() == fst.Type {
		return nil, types.Errorf(types.ErrTypeMismatch, d.pos, "function expected, %s found", fst)
	}
	c, ok := d.Fn.(*Closure)
	if !ok {
		return d, nil
	}
	if len(c.Params) != len(d.Args) {
		return nil, types.Errorf(types.ErrTypeMismatch, d.pos, "%s: %d arguments supplied, %d expected", describe(c), len(d.Args), len(c.Params))
	}
	cc.Info(OptInline, d, "inline %s", describe(c))
	body := c.Body.Copy()
	for i := len(c.Params) - 1; i >= 0; i-- {
		body = NewLet(d.pos, c.Params[i], d.Args[i], body)
	}
	e, err := body.Optimize(cc)
	if err != nil {
		return nil, err
	}
	return cc.ReplaceWith(d, e), nil
}

// Inline implements Expr.
func (d *DynFuncCall) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	ops := append([]Expr{d.Fn}, d.Args...)
	changed, err := inlineStrict(cc, ops, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	d.Fn, d.Args = ops[0], ops[1:]
	return d.Optimize(cc)
}

// Iter implements Expr.
func (d *DynFuncCall) Iter(qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		fv, err := types.Collect(d.Fn.Iter(qc))
		if err != nil {
			return nil, err
		}
		if len(fv) != 1 {
			return nil, types.Errorf(types.ErrTypeMismatch, d.pos, "single function expected, %d items found", len(fv))
		}
		fn, ok := fv[0].(*FuncItem)
		if !ok {
			return nil, types.Errorf(types.ErrTypeMismatch, d.pos, "function expected, %s found", fv[0].Type())
		}
		if fn.Arity() != len(d.Args) {
			return nil, types.Errorf(types.ErrTypeMismatch, d.pos, "%d arguments supplied, %d expected", len(d.Args), fn.Arity())
		}
		args := make([]types.Value, len(d.Args))
		for i, a := range d.Args {
			if args[i], err = types.Collect(a.Iter(qc)); err != nil {
				return nil, err
			}
		}
		return fn.Invoke(args), nil
	})
}

// Has implements Expr.
func (d *DynFuncCall) Has(flags ...Flag) bool {
	for _, f := range flags {
		if f == FlagHOF || f == FlagNDT {
			return true
		}
	}
	return d.Fn.Has(flags...) || hasAny(d.Args, flags)
}

// Inlineable implements Expr.
func (d *DynFuncCall) Inlineable(v *Var) bool {
	return d.Fn.Inlineable(v) && inlineableAll(d.Args, v)
}

// Count implements Expr.
func (d *DynFuncCall) Count(v *Var) VarUsage {
	return d.Fn.Count(v).Plus(countAll(d.Args, v))
}

// Vacuous implements Expr.
func (d *DynFuncCall) Vacuous() bool { return false }

// DDO implements Expr.
func (d *DynFuncCall) DDO() bool { return false }

// MarkTailCalls implements Expr.
func (d *DynFuncCall) MarkTailCalls(cc *CompileContext) {
	if !d.Tail {
		cc.Info(OptTailCall, d, "mark tail call %s", describe(d))
		d.Tail = true
	}
}

// Copy implements Expr.
func (d *DynFuncCall) Copy() Expr {
	c := *d
	c.Fn = d.Fn.Copy()
	c.Args = copyAll(d.Args)
	return &c
}

// Equal implements Expr.
func (d *DynFuncCall) Equal(o Expr) bool {
	od, ok := o.(*DynFuncCall)
	return ok && d.Fn.Equal(od.Fn) && equalAll(d.Args, od.Args)
}

func (d *DynFuncCall) String() string {
	return d.Fn.String() + "(" + joinExprs(d.Args, ", ") + ")"
}
