package expr

import (
	"github.com/sandrolain/goxq/pkg/types"
)

// lazy defers the construction of an iterator to the first call to Next.
type lazy struct {
	open func() (types.Iter, error)
	it   types.Iter
	err  error
}

func deferred(open func() (types.Iter, error)) types.Iter {
	return &lazy{open: open}
}

func (l *lazy) Next() (types.Item, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.it == nil {
		if l.open == nil {
			return nil, nil
		}
		l.it, l.err = l.open()
		l.open = nil
		if l.err != nil {
			return nil, l.err
		}
		if l.it == nil {
			return nil, nil
		}
	}
	return l.it.Next()
}

// single returns a lazy iterator over the item computed by f. A nil item
// yields the empty sequence.
func single(f func() (types.Item, error)) types.Iter {
	return deferred(func() (types.Iter, error) {
		item, err := f()
		if err != nil || item == nil {
			return nil, err
		}
		return types.Value{item}.Iter(), nil
	})
}

// failing returns an iterator that raises err.
func failing(err error) types.Iter {
	return types.IterFunc(func() (types.Item, error) { return nil, err })
}

// at attaches a position to a catchable error that has none. Errors may be
// shared by concurrent evaluations, so a positioned copy is returned.
func at(err error, pos int) error {
	qe, ok := types.AsError(err)
	if !ok || qe.Position >= 0 || pos < 0 {
		return err
	}
	c := *qe
	return c.WithPosition(pos)
}

// atomItem evaluates e to at most one atomic item.
func atomItem(e Expr, qc *QueryContext) (types.Item, error) {
	it := e.Iter(qc)
	first, err := it.Next()
	if err != nil || first == nil {
		return nil, err
	}
	next, err := it.Next()
	if err != nil {
		return nil, err
	}
	if next != nil {
		return nil, types.Errorf(types.ErrTypeMismatch, e.Position(), "item expected, sequence found: %s", describe(e))
	}
	return types.Atomize(first)
}

// ebv computes the effective boolean value of e.
func ebv(e Expr, qc *QueryContext) (bool, error) {
	b, err := types.EBV(e.Iter(qc))
	return b, at(err, e.Position())
}

// concat chains iterators.
type concat struct {
	its []types.Iter
}

func (c *concat) Next() (types.Item, error) {
	for len(c.its) > 0 {
		item, err := c.its[0].Next()
		if err != nil || item != nil {
			return item, err
		}
		c.its = c.its[1:]
	}
	return nil, nil
}
