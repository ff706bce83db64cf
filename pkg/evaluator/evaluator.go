// Package evaluator evaluates compiled queries.
//
// The evaluator binds external variables and the initial context item,
// applies the configured timeout and returns results as a lazy Sequence:
// items are produced on demand and the query is evaluated only as far as
// the caller consumes it.
//
// # Example
//
//	ev := evaluator.New(evaluator.WithTimeout(5 * time.Second))
//	seq, err := ev.Eval(ctx, query, doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer seq.Close()
//	items, err := seq.All()
//
// Plans in YAML form are compiled through EvalPlan, which caches the
// compiled query when caching is enabled.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandrolain/goxq/pkg/cache"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/types"
)

// Evaluator evaluates compiled queries.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	cache  *cache.Cache // non-nil when caching is enabled
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables caching of plans compiled by EvalPlan.
	Caching bool
	// CacheSize sets the capacity of the default cache.
	CacheSize int
	// Timeout bounds a single evaluation, including lazy consumption of the
	// result. Zero disables it.
	Timeout time.Duration
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// CompileOptions are passed to the compiler by EvalPlan.
	CompileOptions []expr.CompileOption
}

// ErrMissingExternal is returned when an external variable has no binding.
var ErrMissingExternal = errors.New("evaluator: unbound external variable")

// New creates an evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	var c *cache.Cache
	if options.Caching {
		c = cache.New(options.CacheSize)
	}

	return &Evaluator{opts: options, logger: options.Logger, cache: c}
}

// Cache returns the query cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Eval evaluates q with data as context item. data may be nil, an item,
// a types.Value or a Go value accepted by ToValue.
func (e *Evaluator) Eval(ctx context.Context, q *expr.Query, data any) (*Sequence, error) {
	return e.EvalWithBindings(ctx, q, data, nil)
}

// EvalWithBindings evaluates q with data as context item and the given
// values bound to the external variables of the same name.
func (e *Evaluator) EvalWithBindings(ctx context.Context, q *expr.Query, data any, bindings map[string]any) (*Sequence, error) {
	if q == nil || q.Root == nil {
		return nil, fmt.Errorf("evaluator: invalid query")
	}

	cancel := context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}

	qc := expr.NewQueryContext(ctx, q, e.logger)
	for name, v := range q.Externals {
		raw, ok := bindings[name]
		if !ok {
			cancel()
			return nil, fmt.Errorf("%w: $%s", ErrMissingExternal, name)
		}
		val, err := ToValue(raw)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("evaluator: binding $%s: %w", name, err)
		}
		qc = qc.Bind(v, val)
	}
	if data != nil {
		val, err := ToValue(data)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("evaluator: context item: %w", err)
		}
		if len(val) != 1 {
			cancel()
			return nil, types.Errorf(types.ErrTypeMismatch, -1, "context item must be a single item, %d found", len(val))
		}
		qc = qc.WithFocus(val[0], 1)
	}

	if e.opts.Debug {
		e.logger.Debug("evaluating query", "id", q.ID, "plan", q.String())
	}
	return newSequence(ctx, cancel, q.Root.Iter(qc), qc), nil
}

// Collect evaluates q and materializes the result.
func (e *Evaluator) Collect(ctx context.Context, q *expr.Query, data any, bindings map[string]any) (types.Value, error) {
	seq, err := e.EvalWithBindings(ctx, q, data, bindings)
	if err != nil {
		return nil, err
	}
	defer seq.Close()
	return seq.All()
}

// Compile compiles a YAML plan, using the cache when enabled.
func (e *Evaluator) Compile(src []byte) (*expr.Query, error) {
	compile := func() (*expr.Query, error) {
		opts := append([]expr.CompileOption{expr.WithLogger(e.logger), expr.WithDebug(e.opts.Debug)}, e.opts.CompileOptions...)
		return plan.Compile(src, opts...)
	}
	if e.cache == nil {
		return compile()
	}
	return e.cache.GetOrCompile(string(src), compile)
}

// EvalPlan compiles a YAML plan and evaluates it.
func (e *Evaluator) EvalPlan(ctx context.Context, src []byte, data any, bindings map[string]any) (*Sequence, error) {
	q, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	return e.EvalWithBindings(ctx, q, data, bindings)
}

// EvalOption configures an Evaluator.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables plan caching.
func WithCaching(enabled bool) EvalOption {
	return func(o *EvalOptions) {
		o.Caching = enabled
	}
}

// WithCacheSize sets the capacity of the default cache.
func WithCacheSize(size int) EvalOption {
	return func(o *EvalOptions) {
		o.CacheSize = size
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(o *EvalOptions) {
		o.Timeout = timeout
	}
}

// WithDebug enables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(o *EvalOptions) {
		o.Debug = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(o *EvalOptions) {
		o.Logger = logger
	}
}

// WithCompileOptions passes options to the plan compiler.
func WithCompileOptions(opts ...expr.CompileOption) EvalOption {
	return func(o *EvalOptions) {
		o.CompileOptions = append(o.CompileOptions, opts...)
	}
}
