package evaluator

import (
	"context"
	"sync"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/types"
)

// Sequence is the lazily evaluated result of a query. It is not safe for
// concurrent use. Close releases the evaluation timeout; it is called
// automatically once the sequence is exhausted or fails.
type Sequence struct {
	ctx    context.Context
	cancel context.CancelFunc
	it     types.Iter
	qc     *expr.QueryContext
	err    error
	done   bool
	once   sync.Once
}

func newSequence(ctx context.Context, cancel context.CancelFunc, it types.Iter, qc *expr.QueryContext) *Sequence {
	return &Sequence{ctx: ctx, cancel: cancel, it: it, qc: qc}
}

// Next returns the next item, or nil when the sequence is exhausted.
func (s *Sequence) Next() (types.Item, error) {
	if s.done {
		return nil, s.err
	}
	if err := s.ctx.Err(); err != nil {
		return nil, s.finish(err)
	}
	item, err := s.it.Next()
	if err != nil {
		return nil, s.finish(err)
	}
	if item == nil {
		return nil, s.finish(nil)
	}
	return item, nil
}

// All consumes the remaining items.
func (s *Sequence) All() (types.Value, error) {
	out := types.Value{}
	for {
		item, err := s.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return out, nil
		}
		out = append(out, item)
	}
}

// Output returns the items emitted by output() so far.
func (s *Sequence) Output() types.Value {
	return s.qc.Output()
}

// Err returns the error that terminated the sequence, if any.
func (s *Sequence) Err() error {
	return s.err
}

// Close stops the evaluation.
func (s *Sequence) Close() {
	s.once.Do(s.cancel)
	s.done = true
}

func (s *Sequence) finish(err error) error {
	s.err = err
	s.Close()
	return err
}
