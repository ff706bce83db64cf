package nav

import "github.com/sandrolain/goxq/pkg/storage"

// Iter is a lazy cursor over nodes. Next returns nil once the axis is
// exhausted and keeps returning nil afterwards.
type Iter interface {
	Next() *Node
}

// Axis is a navigation direction.
type Axis uint8

// Axes.
const (
	AxisSelf Axis = iota
	AxisChild
	AxisDescendant
	AxisDescendantOrSelf
	AxisAttribute
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowingSibling
	AxisFollowing
)

var axisNames = [...]string{
	"self", "child", "descendant", "descendant-or-self", "attribute",
	"parent", "ancestor", "ancestor-or-self", "following-sibling", "following",
}

// String returns the axis name.
func (a Axis) String() string {
	return axisNames[a]
}

// ParseAxis returns the axis with the given name.
func ParseAxis(name string) (Axis, bool) {
	for i, n := range axisNames {
		if n == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// Iter returns an iterator over the nodes on axis a.
func (n *Node) Iter(a Axis) Iter {
	switch a {
	case AxisSelf:
		return Self(n)
	case AxisChild:
		return Child(n)
	case AxisDescendant:
		return Descendant(n)
	case AxisDescendantOrSelf:
		return DescendantOrSelf(n)
	case AxisAttribute:
		return Attribute(n)
	case AxisParent:
		return Parent(n)
	case AxisAncestor:
		return Ancestor(n)
	case AxisAncestorOrSelf:
		return AncestorOrSelf(n)
	case AxisFollowingSibling:
		return FollowingSibling(n)
	default:
		return Following(n)
	}
}

// emptyIter yields nothing. It is stateless and may be shared.
type emptyIter struct{}

func (emptyIter) Next() *Node { return nil }

var empty Iter = emptyIter{}

// oneIter yields a single node, then stops.
type oneIter struct {
	n *Node
}

func (it *oneIter) Next() *Node {
	n := it.n
	it.n = nil
	return n
}

// Self yields the node itself.
func Self(n *Node) Iter {
	return &oneIter{n: n}
}

// Parent yields the parent node, if any.
func Parent(n *Node) Iter {
	return &parentIter{n: n}
}

type parentIter struct {
	n    *Node
	done bool
}

func (it *parentIter) Next() *Node {
	if it.done {
		return nil
	}
	it.done = true
	return it.n.Parent()
}

// Ancestor yields all ancestors, nearest first.
func Ancestor(n *Node) Iter {
	return &ancestorIter{n: n}
}

// AncestorOrSelf yields the node followed by its ancestors.
func AncestorOrSelf(n *Node) Iter {
	return &ancestorIter{n: n, self: true}
}

type ancestorIter struct {
	n    *Node
	self bool
}

func (it *ancestorIter) Next() *Node {
	if it.n == nil {
		return nil
	}
	if it.self {
		it.self = false
		return it.n
	}
	it.n = it.n.Parent()
	return it.n
}

// rangeIter walks [pos, end), advancing by a per-node step.
type rangeIter struct {
	n     *Node
	pos   int
	end   int
	score float64
	// step returns the distance to the next position.
	step func(acc storage.Accessor, pre int) int
	// kind forces the kind of every yielded node if set.
	kind *storage.Kind
}

func (it *rangeIter) Next() *Node {
	if it.pos >= it.end {
		it.pos = it.end
		return nil
	}
	acc := it.n.acc
	p := it.pos
	k := acc.Kind(p)
	if it.kind != nil {
		k = *it.kind
	}
	it.pos += it.step(acc, p)
	return it.n.at(p, k, it.score)
}

func bySize(acc storage.Accessor, pre int) int    { return acc.Size(pre) }
func byAttSize(acc storage.Accessor, pre int) int { return acc.AttSize(pre) }
func byOne(storage.Accessor, int) int             { return 1 }

// Child yields the children of the node in document order.
func Child(n *Node) Iter {
	acc := n.acc
	return &rangeIter{
		n:     n,
		pos:   n.pre + acc.AttSize(n.pre),
		end:   n.pre + acc.Size(n.pre),
		score: StepScore(n.Score),
		step:  bySize,
	}
}

// Descendant yields the descendants of the node in document order.
func Descendant(n *Node) Iter {
	acc := n.acc
	return &rangeIter{
		n:     n,
		pos:   n.pre + acc.AttSize(n.pre),
		end:   n.pre + acc.Size(n.pre),
		score: StepScore(n.Score),
		step:  byAttSize,
	}
}

// DescendantOrSelf yields the node followed by its descendants.
func DescendantOrSelf(n *Node) Iter {
	return &rangeIter{
		n:     n,
		pos:   n.pre,
		end:   n.pre + n.acc.Size(n.pre),
		score: n.Score,
		step:  byAttSize,
	}
}

var attributeKind = storage.KindAttribute

// Attribute yields the attributes of the node.
func Attribute(n *Node) Iter {
	return &rangeIter{
		n:     n,
		pos:   n.pre + 1,
		end:   n.pre + n.acc.AttSize(n.pre),
		score: n.Score,
		step:  byOne,
		kind:  &attributeKind,
	}
}

// FollowingSibling yields the siblings after the node in document order.
// Attributes and roots have no siblings.
func FollowingSibling(n *Node) Iter {
	acc := n.acc
	if n.kind == storage.KindAttribute {
		return empty
	}
	par := acc.Parent(n.pre)
	if par < 0 {
		return empty
	}
	return &rangeIter{
		n:     n,
		pos:   n.pre + acc.Size(n.pre),
		end:   par + acc.Size(par),
		score: n.Score,
		step:  bySize,
	}
}

// Following yields all nodes after the node in document order that are not
// its descendants, excluding attributes.
func Following(n *Node) Iter {
	acc := n.acc
	root := n.pre
	for p := acc.Parent(root); p >= 0; p = acc.Parent(root) {
		root = p
	}
	return &followingIter{
		n:   n,
		pos: n.pre + acc.Size(n.pre),
		end: root + acc.Size(root),
	}
}

type followingIter struct {
	n        *Node
	pos, end int
}

func (it *followingIter) Next() *Node {
	acc := it.n.acc
	for it.pos < it.end && acc.Kind(it.pos) == storage.KindAttribute {
		it.pos++
	}
	if it.pos >= it.end {
		it.pos = it.end
		return nil
	}
	p := it.pos
	it.pos += acc.AttSize(p)
	return it.n.at(p, acc.Kind(p), it.n.Score)
}
