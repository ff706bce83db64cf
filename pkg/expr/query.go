package expr

import (
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/sandrolain/goxq/pkg/types"
)

var varIDs atomic.Int64

// Var is a variable declaration. References compare by identity.
type Var struct {
	Name string
	ID   int64
	// Type is the static type of the bound value. It is refined while
	// compiling the binding expression.
	Type types.SeqType
}

// NewVar declares a variable.
func NewVar(name string) *Var {
	return &Var{Name: name, ID: varIDs.Add(1), Type: types.SeqItemZM}
}

// String returns the variable name with a leading dollar sign.
func (v *Var) String() string {
	return "$" + v.Name
}

// Query is a compiled query. It is immutable and may be evaluated
// concurrently.
type Query struct {
	ID          uuid.UUID
	Root        Expr
	Externals   map[string]*Var
	Diagnostics []Diagnostic
	Collation   language.Tag
}

// Compile compiles a raw expression tree.
func Compile(root Expr, opts ...CompileOption) (*Query, error) {
	cc := NewCompileContext(opts...)
	cc.logger.Debug("compiling query", "expr", describe(root))
	e, err := root.Compile(cc)
	if err != nil {
		return nil, err
	}
	e.MarkTailCalls(cc)
	ext := make(map[string]*Var, len(cc.opts.Externals))
	for _, v := range cc.opts.Externals {
		ext[v.Name] = v
	}
	return &Query{
		ID:          cc.id,
		Root:        e,
		Externals:   ext,
		Diagnostics: cc.Diagnostics(),
		Collation:   cc.opts.Collation,
	}, nil
}

// String returns the compiled plan.
func (q *Query) String() string {
	return q.Root.String()
}
