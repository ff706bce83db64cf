package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// FuncDef describes a built-in function.
type FuncDef struct {
	Name     string
	Min, Max int
	// Flags are the properties of the function itself, independent of its
	// arguments.
	Flags []Flag
	// Focus is set if the function uses the context item when called
	// without arguments.
	Focus bool
	// Type returns the static result type for the given arguments.
	Type func(args []Expr) types.SeqType
	// Opt optimizes a call. It returns the call itself if nothing applies.
	Opt func(f *StaticFunc, cc *CompileContext) (Expr, error)
	// Eval evaluates a call lazily.
	Eval func(f *StaticFunc, qc *QueryContext) types.Iter
}

func fixed(st types.SeqType) func([]Expr) types.SeqType {
	return func([]Expr) types.SeqType { return st }
}

var builtins map[string]*FuncDef

// StaticFunc is a call of a built-in function.
type StaticFunc struct {
	base
	Def  *FuncDef
	Args []Expr
}

// NewFunc returns a call of the built-in function name.
func NewFunc(name string, pos int, args ...Expr) (*StaticFunc, error) {
	def, ok := builtins[name]
	if !ok {
		return nil, types.Errorf(types.ErrUndefinedFunction, pos, "unknown function %s#%d", name, len(args))
	}
	if len(args) < def.Min || len(args) > def.Max {
		return nil, types.Errorf(types.ErrUndefinedFunction, pos, "function %s does not accept %d arguments", name, len(args))
	}
	f := &StaticFunc{base: newBase(pos, types.SeqItemZM), Def: def, Args: args}
	f.st = def.Type(args)
	return f, nil
}

// Kind implements Expr.
func (f *StaticFunc) Kind() Kind { return KindFunc }

// Compile implements Expr.
func (f *StaticFunc) Compile(cc *CompileContext) (Expr, error) {
	if err := compileStrict(cc, f.Args); err != nil {
		return nil, err
	}
	return f.Optimize(cc)
}

// Optimize implements Expr. Calls of deterministic, context-independent
// functions with literal arguments are pre-evaluated.
func (f *StaticFunc) Optimize(cc *CompileContext) (Expr, error) {
	f.st = f.Def.Type(f.Args)
	if f.Def.Opt != nil {
		e, err := f.Def.Opt(f, cc)
		if err != nil {
			return nil, at(err, f.pos)
		}
		if e != f {
			return cc.ReplaceWith(f, e), nil
		}
	}
	if f.foldable() {
		return cc.PreEval(f)
	}
	return f, nil
}

func (f *StaticFunc) foldable() bool {
	if f.ownFlags(FlagNDT, FlagCTX, FlagPOS, FlagUPD, FlagHOF) {
		return false
	}
	for _, a := range f.Args {
		if !isValue(a) {
			return false
		}
	}
	return true
}

func (f *StaticFunc) ownFlags(flags ...Flag) bool {
	for _, fl := range flags {
		if fl == FlagCTX && f.Def.Focus && len(f.Args) == 0 {
			return true
		}
		for _, own := range f.Def.Flags {
			if own == fl {
				return true
			}
		}
	}
	return false
}

// Inline implements Expr.
func (f *StaticFunc) Inline(t Target, repl Expr, cc *CompileContext) (Expr, error) {
	changed, err := inlineStrict(cc, f.Args, t, repl)
	if err != nil || !changed {
		return nil, err
	}
	return f.Optimize(cc)
}

// Iter implements Expr.
func (f *StaticFunc) Iter(qc *QueryContext) types.Iter {
	return f.Def.Eval(f, qc)
}

// Has implements Expr.
func (f *StaticFunc) Has(flags ...Flag) bool {
	return f.ownFlags(flags...) || hasAny(f.Args, flags)
}

// Inlineable implements Expr.
func (f *StaticFunc) Inlineable(v *Var) bool { return inlineableAll(f.Args, v) }

// Count implements Expr.
func (f *StaticFunc) Count(v *Var) VarUsage { return countAll(f.Args, v) }

// Vacuous implements Expr.
func (f *StaticFunc) Vacuous() bool {
	return f.st.Zero() && !f.ownFlags(FlagUPD)
}

// Copy implements Expr.
func (f *StaticFunc) Copy() Expr {
	c := *f
	c.Args = copyAll(f.Args)
	return &c
}

// Equal implements Expr.
func (f *StaticFunc) Equal(o Expr) bool {
	of, ok := o.(*StaticFunc)
	return ok && of.Def == f.Def && equalAll(f.Args, of.Args)
}

func (f *StaticFunc) String() string {
	return f.Def.Name + "(" + joinExprs(f.Args, ", ") + ")"
}

// singleItem evaluates a function body that yields at most one item.
func (f *StaticFunc) singleItem(g func() (types.Item, error)) types.Iter {
	return single(func() (types.Item, error) {
		item, err := g()
		return item, at(err, f.pos)
	})
}

func init() {
	defs := []*FuncDef{
		{
			Name: "true", Type: fixed(types.SeqBooleanO),
			Eval: func(f *StaticFunc, _ *QueryContext) types.Iter { return types.True.Iter() },
		},
		{
			Name: "false", Type: fixed(types.SeqBooleanO),
			Eval: func(f *StaticFunc, _ *QueryContext) types.Iter { return types.False.Iter() },
		},
		{
			Name: "boolean", Min: 1, Max: 1, Type: fixed(types.SeqBooleanO),
			Opt: func(f *StaticFunc, cc *CompileContext) (Expr, error) {
				f.Args[0] = simplifyEBV(cc, f.Args[0])
				if f.Args[0].SeqType().Eq(types.SeqBooleanO) {
					return f.Args[0], nil
				}
				return f, nil
			},
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					b, err := ebv(f.Args[0], qc)
					return types.Bln(b), err
				})
			},
		},
		{
			Name: "not", Min: 1, Max: 1, Type: fixed(types.SeqBooleanO),
			Opt: func(f *StaticFunc, cc *CompileContext) (Expr, error) {
				f.Args[0] = simplifyEBV(cc, f.Args[0])
				if inner, ok := f.Args[0].(*StaticFunc); ok && inner.Def.Name == "not" {
					return cc.Function("boolean", f.pos, inner.Args[0])
				}
				return f, nil
			},
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					b, err := ebv(f.Args[0], qc)
					return types.Bln(!b), err
				})
			},
		},
		{
			Name: "empty", Min: 1, Max: 1, Type: fixed(types.SeqBooleanO),
			Opt:  optExists(false),
			Eval: evalExists(false),
		},
		{
			Name: "exists", Min: 1, Max: 1, Type: fixed(types.SeqBooleanO),
			Opt:  optExists(true),
			Eval: evalExists(true),
		},
		{
			Name: "count", Min: 1, Max: 1, Type: fixed(types.SeqIntegerO),
			Opt: func(f *StaticFunc, cc *CompileContext) (Expr, error) {
				occ := f.Args[0].SeqType().Occ
				if occ.Min() == occ.Max() && !f.Args[0].Has(FlagNDT, FlagUPD) {
					return NewValue(f.pos, types.Value{types.Int(occ.Min())}), nil
				}
				return f, nil
			},
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					it := f.Args[0].Iter(qc)
					var n int64
					for {
						item, err := it.Next()
						if err != nil {
							return nil, err
						}
						if item == nil {
							return types.Int(n), nil
						}
						n++
					}
				})
			},
		},
		{
			Name: "data", Min: 1, Max: 1,
			Type: func(args []Expr) types.SeqType { return args[0].SeqType().Atomized() },
			Opt: func(f *StaticFunc, cc *CompileContext) (Expr, error) {
				if st := f.Args[0].SeqType(); st.Type.InstanceOf(types.TypeAnyAtomic) || st.Zero() {
					return f.Args[0], nil
				}
				return f, nil
			},
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return types.AtomIter(f.Args[0].Iter(qc))
			},
		},
		{
			Name: "string", Max: 1, Focus: true, Type: fixed(types.SeqStringO),
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					var item types.Item
					var err error
					if len(f.Args) == 0 {
						item, err = qc.contextItem(f.pos)
					} else {
						item, err = singleOf(f.Args[0], qc)
					}
					if err != nil {
						return nil, err
					}
					return stringValue(item)
				})
			},
		},
		{
			Name: "error", Max: 3, Flags: []Flag{FlagNDT}, Type: fixed(types.SeqItemZM),
			Eval: evalError,
		},
		{
			Name: "position", Flags: []Flag{FlagCTX, FlagPOS}, Type: fixed(types.SeqIntegerO),
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					if qc.focus == nil {
						return nil, types.NewError(types.ErrNoContext, "no context value bound", f.pos)
					}
					return types.Int(qc.focus.pos), nil
				})
			},
		},
		{
			Name: "random", Flags: []Flag{FlagNDT}, Type: fixed(types.SeqDoubleO),
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return f.singleItem(func() (types.Item, error) {
					return types.Dbl(qc.session.rnd.Float64()), nil
				})
			},
		},
		{
			Name: "output", Min: 1, Max: 1, Flags: []Flag{FlagUPD, FlagNDT}, Type: fixed(types.SeqEmpty),
			Eval: func(f *StaticFunc, qc *QueryContext) types.Iter {
				return deferred(func() (types.Iter, error) {
					v, err := types.Collect(f.Args[0].Iter(qc))
					if err != nil {
						return nil, err
					}
					qc.session.output = append(qc.session.output, v...)
					return nil, nil
				})
			},
		},
		{
			Name: "filter", Min: 2, Max: 2,
			Type: func(args []Expr) types.SeqType {
				st := args[0].SeqType()
				return st.With(st.Occ.Union(types.OccZero))
			},
			Opt: optFilter,
			Eval: func(f *StaticFunc, _ *QueryContext) types.Iter {
				return failing(types.NotExpected("filter() is rewritten at compile time"))
			},
		},
	}
	builtins = make(map[string]*FuncDef, len(defs))
	for _, d := range defs {
		if d.Max < d.Min {
			d.Max = d.Min
		}
		builtins[d.Name] = d
	}
}

func optExists(exists bool) func(*StaticFunc, *CompileContext) (Expr, error) {
	return func(f *StaticFunc, cc *CompileContext) (Expr, error) {
		a := f.Args[0]
		if a.Has(FlagNDT, FlagUPD) {
			return f, nil
		}
		occ := a.SeqType().Occ
		switch {
		case occ.Max() == 0 && !alwaysRaises(a):
			return NewValue(f.pos, types.BoolValue(!exists)), nil
		case occ.Min() > 0:
			return NewValue(f.pos, types.BoolValue(exists)), nil
		}
		return f, nil
	}
}

func evalExists(exists bool) func(*StaticFunc, *QueryContext) types.Iter {
	return func(f *StaticFunc, qc *QueryContext) types.Iter {
		return f.singleItem(func() (types.Item, error) {
			item, err := f.Args[0].Iter(qc).Next()
			if err != nil {
				return nil, err
			}
			return types.Bln((item != nil) == exists), nil
		})
	}
}

// singleOf evaluates e to at most one item without atomizing it.
func singleOf(e Expr, qc *QueryContext) (types.Item, error) {
	v, err := types.Collect(e.Iter(qc))
	if err != nil {
		return nil, err
	}
	switch len(v) {
	case 0:
		return nil, nil
	case 1:
		return v[0], nil
	}
	return nil, types.Errorf(types.ErrTypeMismatch, e.Position(), "item expected, sequence found: %s", describe(e))
}

func stringValue(item types.Item) (types.Item, error) {
	switch x := item.(type) {
	case nil:
		return types.Str(""), nil
	case types.Node:
		return types.Str(x.StringValue()), nil
	case types.Function:
		return nil, types.Errorf(types.ErrTypeMismatch, -1, "items of type %s have no string value", x.Type())
	}
	return types.Str(item.String()), nil
}

func evalError(f *StaticFunc, qc *QueryContext) types.Iter {
	return deferred(func() (types.Iter, error) {
		qe := types.NewError(types.ErrUserError, "", f.pos)
		if len(f.Args) > 0 {
			code, err := singleOf(f.Args[0], qc)
			if err != nil {
				return nil, err
			}
			if code != nil {
				qe.Code = types.ParseQName(code.String())
			}
		}
		if len(f.Args) > 1 {
			desc, err := atomItem(f.Args[1], qc)
			if err != nil {
				return nil, err
			}
			if desc != nil {
				qe.Message = desc.String()
			}
		}
		if len(f.Args) > 2 {
			v, err := types.Collect(f.Args[2].Iter(qc))
			if err != nil {
				return nil, err
			}
			qe.Value = v
		}
		if qe.Message == "" && len(f.Args) == 0 {
			qe.Message = "error raised by fn:error()"
		}
		return nil, qe
	})
}

// optFilter rewrites filter($items, $fn) to a filter expression with the
// boolean result of the function call as predicate.
func optFilter(f *StaticFunc, cc *CompileContext) (Expr, error) {
	items, fn := f.Args[0], f.Args[1]
	st := items.SeqType()
	if st.Zero() {
		return items, nil
	}
	if c, ok := fn.(*Closure); ok && len(c.Params) != 1 {
		return nil, types.Errorf(types.ErrTypeMismatch, f.pos, "%s: function with arity 1 expected", describe(c))
	}

	cc.PushFocus(st.With(types.OccOne))
	pred, err := func() (Expr, error) {
		defer cc.RemoveFocus()
		ctx, err := NewContextValue(f.pos).Optimize(cc)
		if err != nil {
			return nil, err
		}
		call, err := NewDynFuncCall(f.pos, fn, ctx).Optimize(cc)
		if err != nil {
			return nil, err
		}
		return NewTypeCheck(f.pos, call, types.SeqBooleanO, true).Optimize(cc)
	}()
	if err != nil {
		return nil, err
	}
	b, err := cc.Function("boolean", f.pos, pred)
	if err != nil {
		return nil, err
	}
	return NewFilter(f.pos, items, b).Optimize(cc)
}
