// Package plan decodes raw expression trees from YAML documents.
//
// A plan is a YAML value. Scalars are literals, sequences are comma
// expressions and mappings select an expression by a distinguished key:
//
//	for: i
//	in: {to: [1, 2]}
//	return: {"+": [{var: i}, 0]}
//
// Integers, decimals, doubles (a float with an exponent), strings and
// booleans map to the corresponding atomic types; null and [] are the empty
// sequence. Variables that are referenced but never bound become external
// variables of the query and must be bound at evaluation time.
//
// Every mapping may carry an "at" key with the source position of the
// expression, which is reported in errors and diagnostics.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goxq/pkg/expr"
)

// Plan is a decoded raw expression tree.
type Plan struct {
	Root      expr.Expr
	Externals []*expr.Var
}

// Error is a malformed plan.
type Error struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("plan: line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parse decodes a plan.
func Parse(src []byte) (*Plan, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &Error{Line: doc.Line, Column: doc.Column, Message: "empty plan"}
	}
	d := newDecoder()
	root, err := d.expr(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return &Plan{Root: root, Externals: d.externals}, nil
}

// ParseFile decodes the plan stored in a file.
func ParseFile(path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return Parse(src)
}

// Compile decodes and compiles a plan.
func Compile(src []byte, opts ...expr.CompileOption) (*expr.Query, error) {
	p, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return p.Compile(opts...)
}

// Compile compiles the plan. External variables are declared automatically.
func (p *Plan) Compile(opts ...expr.CompileOption) (*expr.Query, error) {
	opts = append(opts, expr.WithExternals(p.Externals...))
	return expr.Compile(p.Root, opts...)
}
