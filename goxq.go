// Package goxq provides an embeddable XQuery-style expression compiler and
// a lazy navigator over pre/size encoded node tables.
//
// Queries are built as raw expression trees (package expr) or loaded from
// YAML plans (package plan). Compilation type-checks the tree, folds
// constants, prunes dead branches and rewrites control flow. Evaluation is
// lazy: results are pulled one item at a time and the query does only as
// much work as the caller consumes.
//
// # Quick Start
//
//	// Load a document and evaluate a plan against it
//	doc, err := goxq.OpenXML(`<r><a>1</a><a>2</a></r>`)
//	seq, err := goxq.EvalPlan(ctx, []byte(`{path: {root: ~}, steps: [{axis: descendant, test: a}]}`), doc)
//	items, err := seq.All()
//
//	// Compile once, evaluate many times
//	q, err := goxq.Compile(root)
//	seq1, _ := goxq.Eval(ctx, q, doc1)
//	seq2, _ := goxq.Eval(ctx, q, doc2)
//
// # More Information
//
// For detailed documentation, see:
//   - Expressions and compiler: github.com/sandrolain/goxq/pkg/expr
//   - Plans: github.com/sandrolain/goxq/pkg/plan
//   - Evaluator: github.com/sandrolain/goxq/pkg/evaluator
//   - Navigation: github.com/sandrolain/goxq/pkg/nav
//   - Storage: github.com/sandrolain/goxq/pkg/storage
package goxq

import (
	"context"
	"fmt"

	"github.com/sandrolain/goxq/pkg/evaluator"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/storage"
)

// Version returns the current version of goxq.
func Version() string {
	return "v0.1.0-dev"
}

// Compile compiles a raw expression tree.
//
// The compiled query can be evaluated multiple times against different
// documents. It is safe for concurrent use.
func Compile(root expr.Expr, opts ...expr.CompileOption) (*expr.Query, error) {
	return expr.Compile(root, opts...)
}

// CompilePlan compiles a YAML plan.
func CompilePlan(src []byte, opts ...expr.CompileOption) (*expr.Query, error) {
	return plan.Compile(src, opts...)
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(root expr.Expr) *expr.Query {
	q, err := Compile(root)
	if err != nil {
		panic(fmt.Sprintf("goxq: Compile(%s): %v", root, err))
	}
	return q
}

// Eval evaluates q with focus as context item. The result is lazy and must
// be consumed or closed.
func Eval(ctx context.Context, q *expr.Query, focus any, opts ...evaluator.EvalOption) (*evaluator.Sequence, error) {
	return evaluator.New(opts...).Eval(ctx, q, focus)
}

// EvalPlan is a convenience function that compiles and evaluates a YAML plan
// in a single call.
//
// For repeated evaluations of the same plan, use CompilePlan instead.
func EvalPlan(ctx context.Context, src []byte, focus any, opts ...evaluator.EvalOption) (*evaluator.Sequence, error) {
	return evaluator.New(opts...).EvalPlan(ctx, src, focus, nil)
}

// Open returns a reference to node pre of acc.
func Open(acc storage.Accessor, pre int) *nav.Node {
	return nav.Open(acc, pre)
}

// OpenXML parses an XML document and returns its document node.
func OpenXML(s string, opts ...storage.XMLOption) (*nav.Node, error) {
	table, err := storage.ParseXMLString(s, opts...)
	if err != nil {
		return nil, err
	}
	return nav.Open(table, 0), nil
}
