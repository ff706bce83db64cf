package expr

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sandrolain/goxq/pkg/types"
)

// Diagnostic codes reported while compiling.
const (
	OptPreEval  = "OPTPRE"
	OptRewrite  = "OPTREWRITE"
	OptRemove   = "OPTREMOVE"
	OptSimplify = "OPTSIMPLE"
	OptInline   = "OPTINLINE"
	OptError    = "OPTERROR"
	OptTailCall = "OPTTCE"
	OptFlatten  = "OPTFLAT"
)

// Diagnostic describes one applied rewrite.
type Diagnostic struct {
	Code     string
	Message  string
	Position int
}

// String returns the diagnostic in "CODE: message" form.
func (d Diagnostic) String() string {
	return d.Code + ": " + d.Message
}

// Sink receives compiler diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(d Diagnostic)

// Report implements Sink.
func (f SinkFunc) Report(d Diagnostic) { f(d) }

// CompileOptions holds compiler configuration.
type CompileOptions struct {
	Logger    *slog.Logger
	Sink      Sink
	Collation language.Tag
	Debug     bool
	Externals []*Var
}

// CompileOption configures compilation.
type CompileOption func(*CompileOptions)

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(o *CompileOptions) {
		o.Logger = logger
	}
}

// WithSink sets an additional receiver of diagnostics.
func WithSink(sink Sink) CompileOption {
	return func(o *CompileOptions) {
		o.Sink = sink
	}
}

// WithCollation sets the default collation for string comparisons.
// language.Und selects codepoint comparison.
func WithCollation(tag language.Tag) CompileOption {
	return func(o *CompileOptions) {
		o.Collation = tag
	}
}

// WithDebug enables debug logging of every rewrite.
func WithDebug(enabled bool) CompileOption {
	return func(o *CompileOptions) {
		o.Debug = enabled
	}
}

// WithExternals declares variables that are bound at evaluation time.
func WithExternals(vars ...*Var) CompileOption {
	return func(o *CompileOptions) {
		o.Externals = append(o.Externals, vars...)
	}
}

// newCollator returns a collator for tag, or nil for codepoint comparison.
func newCollator(tag language.Tag) types.Collator {
	if tag == language.Und {
		return nil
	}
	return collate.New(tag)
}

// CompileContext is the static environment of one compilation. It is owned
// by a single compilation and must not be shared.
type CompileContext struct {
	id     uuid.UUID
	opts   CompileOptions
	logger *slog.Logger
	coll   types.Collator
	focus  []types.SeqType
	diags  []Diagnostic
	static *QueryContext
}

// NewCompileContext creates a compile context.
func NewCompileContext(opts ...CompileOption) *CompileContext {
	o := CompileOptions{Collation: language.Und}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	cc := &CompileContext{
		id:     id,
		opts:   o,
		logger: logger.With("query", id.String()),
		coll:   newCollator(o.Collation),
	}
	cc.static = newQueryContext(context.Background(), cc.coll, cc.logger)
	return cc
}

// ID returns the identifier of the compiled query.
func (cc *CompileContext) ID() uuid.UUID { return cc.id }

// Collator returns the default collator, or nil.
func (cc *CompileContext) Collator() types.Collator { return cc.coll }

// Diagnostics returns all reported diagnostics in order.
func (cc *CompileContext) Diagnostics() []Diagnostic { return cc.diags }

// PushFocus declares the type of the context item for the following
// compilation steps.
func (cc *CompileContext) PushFocus(st types.SeqType) {
	cc.focus = append(cc.focus, st)
}

// RemoveFocus restores the previous focus.
func (cc *CompileContext) RemoveFocus() {
	cc.focus = cc.focus[:len(cc.focus)-1]
}

// Focus returns the static type of the context item, if one is declared.
func (cc *CompileContext) Focus() (types.SeqType, bool) {
	if len(cc.focus) == 0 {
		return types.SeqType{}, false
	}
	return cc.focus[len(cc.focus)-1], true
}

// Info reports a diagnostic for a rewrite of e.
func (cc *CompileContext) Info(code string, e Expr, format string, args ...any) {
	d := Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Position: -1}
	if e != nil {
		d.Position = e.Position()
	}
	cc.diags = append(cc.diags, d)
	if cc.opts.Sink != nil {
		cc.opts.Sink.Report(d)
	}
	if cc.opts.Debug {
		cc.logger.Debug("rewrite", "code", d.Code, "message", d.Message, "position", d.Position)
	}
}

// ReplaceWith records the replacement of old by e and returns e. The
// replacement inherits the position of old if it has none.
func (cc *CompileContext) ReplaceWith(old, e Expr) Expr {
	if old != e {
		if p, ok := e.(positioned); ok && e.Position() < 0 {
			p.setPosition(old.Position())
		}
		cc.Info(OptRewrite, old, "rewrite %s to %s", describe(old), describe(e))
	}
	return e
}

// Error returns a node that raises err when evaluated in place of e.
func (cc *CompileContext) Error(err *types.Error, e Expr) Expr {
	r := &Raise{base: newBase(e.Position(), e.SeqType()), Err: err}
	cc.Info(OptError, e, "deferred: %s", err.Error())
	return r
}

// Function creates and optimizes a call to a built-in function.
func (cc *CompileContext) Function(name string, pos int, args ...Expr) (Expr, error) {
	f, err := NewFunc(name, pos, args...)
	if err != nil {
		return nil, err
	}
	return f.Optimize(cc)
}

// PreEval evaluates e at compile time and returns the resulting value.
func (cc *CompileContext) PreEval(e Expr) (Expr, error) {
	v, err := types.Collect(e.Iter(cc.static))
	if err != nil {
		return nil, err
	}
	val := NewValue(e.Position(), v)
	cc.Info(OptPreEval, e, "pre-evaluate %s to %s", describe(e), val)
	return val, nil
}

type positioned interface {
	setPosition(pos int)
}

func (b *base) setPosition(pos int) { b.pos = pos }

func describe(e Expr) string {
	s := e.String()
	if len(s) > 64 {
		s = s[:61] + "..."
	}
	return s
}

// QueryContext is the dynamic environment of an evaluation. It is immutable:
// binding a variable or setting the focus returns a derived context, so
// lazy iterators keep the environment they were created with.
type QueryContext struct {
	session *session
	vars    *frame
	focus   *focus
}

type session struct {
	ctx    context.Context
	coll   types.Collator
	logger *slog.Logger
	output types.Value
	rnd    *rand.Rand
}

type frame struct {
	v    *Var
	val  types.Value
	next *frame
}

type focus struct {
	item types.Item
	pos  int
}

// NewQueryContext creates the root dynamic context of a query evaluation.
func NewQueryContext(ctx context.Context, q *Query, logger *slog.Logger) *QueryContext {
	if logger == nil {
		logger = slog.Default()
	}
	return newQueryContext(ctx, newCollator(q.Collation), logger)
}

func newQueryContext(ctx context.Context, coll types.Collator, logger *slog.Logger) *QueryContext {
	return &QueryContext{session: &session{
		ctx:    ctx,
		coll:   coll,
		logger: logger,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}}
}

// WithFocus returns a context with item as context item at position pos.
func (qc *QueryContext) WithFocus(item types.Item, pos int) *QueryContext {
	return &QueryContext{session: qc.session, vars: qc.vars, focus: &focus{item: item, pos: pos}}
}

// Bind returns a context in which v is bound to val.
func (qc *QueryContext) Bind(v *Var, val types.Value) *QueryContext {
	return &QueryContext{session: qc.session, vars: &frame{v: v, val: val, next: qc.vars}, focus: qc.focus}
}

// Lookup returns the value bound to v.
func (qc *QueryContext) Lookup(v *Var) (types.Value, bool) {
	for f := qc.vars; f != nil; f = f.next {
		if f.v == v {
			return f.val, true
		}
	}
	return nil, false
}

// Check returns the cancellation error of the evaluation, if any.
func (qc *QueryContext) Check() error {
	return qc.session.ctx.Err()
}

// Output returns the items emitted by output() so far.
func (qc *QueryContext) Output() types.Value {
	return qc.session.output
}

func (qc *QueryContext) contextItem(pos int) (types.Item, error) {
	if qc.focus == nil {
		return nil, types.NewError(types.ErrNoContext, "no context value bound", pos)
	}
	return qc.focus.item, nil
}
