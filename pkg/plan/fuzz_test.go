package plan_test

import (
	"context"
	"testing"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/types"
)

func FuzzCompile(f *testing.F) {
	seeds := []string{
		`{for: i, in: {to: [1, 2]}, return: {"+": [{var: i}, 0]}}`,
		`{switch: 2, cases: [{case: 1, return: a}], default: c}`,
		`{try: {div: [1, 0]}, catch: [{codes: ["*"], return: caught}]}`,
		`{and: [true, {var: x}]}`,
		`{path: {root: ~}, steps: [{axis: descendant, test: b, where: [1]}]}`,
		`[1, 2.5, 1e3, "s", ~]`,
		`{call: filter, args: [{to: [1, 3]}, {function: [v], body: true}]}`,
		``,
		`{`,
		`{if: 1}`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		q, err := plan.Compile([]byte(input))
		if err != nil || len(q.Externals) > 0 {
			return
		}
		// closed queries must evaluate without internal errors
		qc := expr.NewQueryContext(context.Background(), q, nil)
		it := q.Root.Iter(qc)
		for range 64 {
			item, err := it.Next()
			if err != nil {
				if _, ok := types.AsError(err); !ok {
					t.Fatalf("%s: %v", q, err)
				}
				return
			}
			if item == nil {
				return
			}
		}
	})
}
