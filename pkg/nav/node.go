// Package nav implements lazy navigation over pre-order encoded trees.
//
// A Node is a lightweight view of one position of a storage.Accessor. Axis
// iterators are single-use, forward-only cursors: each call to Next computes
// the next position from the accessor, and the full axis is never
// materialized.
//
// # Example
//
//	root := nav.Open(table, 0)
//	for it := root.Iter(nav.AxisDescendant); ; {
//	    n := it.Next()
//	    if n == nil {
//	        break
//	    }
//	    fmt.Println(n.Pre, n.Kind())
//	}
//
// # Concurrency
//
// Nodes are immutable and may be shared. Iterators hold cursor state and must
// not be pulled from multiple goroutines.
package nav

import (
	"strconv"
	"strings"

	"github.com/sandrolain/goxq/pkg/storage"
	"github.com/sandrolain/goxq/pkg/types"
)

// StepScore returns the score of a node reached by one child, descendant or
// parent step from a node with score sc. Full-text scoring replaces it to
// propagate relevance along location paths.
var StepScore = func(sc float64) float64 { return sc }

// Node references a position of a stored tree.
type Node struct {
	acc  storage.Accessor
	pre  int
	kind storage.Kind
	// par is an explicitly assigned parent; if nil, the parent is looked up
	// in the accessor.
	par *Node
	// Score is the full-text score of the node.
	Score float64
}

var _ types.Node = (*Node)(nil)

// Open returns the node at pre.
func Open(acc storage.Accessor, pre int) *Node {
	return &Node{acc: acc, pre: pre, kind: acc.Kind(pre)}
}

func (n *Node) at(pre int, kind storage.Kind, score float64) *Node {
	return &Node{acc: n.acc, pre: pre, kind: kind, Score: score}
}

// Pre returns the pre value of the node.
func (n *Node) Pre() int { return n.pre }

// Kind returns the node kind.
func (n *Node) Kind() storage.Kind { return n.kind }

// Accessor returns the storage the node belongs to.
func (n *Node) Accessor() storage.Accessor { return n.acc }

// Type implements types.Item.
func (n *Node) Type() types.Type {
	switch n.kind {
	case storage.KindDocument:
		return types.TypeDocument
	case storage.KindElement:
		return types.TypeElement
	case storage.KindAttribute:
		return types.TypeAttribute
	case storage.KindComment:
		return types.TypeComment
	case storage.KindPI:
		return types.TypePI
	default:
		return types.TypeText
	}
}

// Name returns the node name, or an empty string for unnamed nodes.
func (n *Node) Name() string {
	t, ok := n.acc.(storage.Textual)
	if !ok {
		return ""
	}
	switch n.kind {
	case storage.KindElement, storage.KindAttribute, storage.KindPI:
		return t.Name(n.pre)
	}
	return ""
}

// StringValue implements types.Node. The string value of documents and
// elements is the concatenation of their descendant text nodes.
func (n *Node) StringValue() string {
	t, ok := n.acc.(storage.Textual)
	if !ok {
		return ""
	}
	switch n.kind {
	case storage.KindDocument, storage.KindElement:
		var sb strings.Builder
		end := n.pre + n.acc.Size(n.pre)
		for p := n.pre; p < end; p += n.acc.AttSize(p) {
			if n.acc.Kind(p) == storage.KindText {
				sb.WriteString(t.Value(p))
			}
		}
		return sb.String()
	}
	return t.Value(n.pre)
}

// SetParent assigns an explicit parent, as done for nodes that are attached
// to constructed fragments.
func (n *Node) SetParent(p *Node) {
	n.par = p
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	if n.par != nil {
		return n.par
	}
	p := n.acc.Parent(n.pre)
	if p < 0 {
		return nil
	}
	return n.at(p, n.acc.Kind(p), StepScore(n.Score))
}

// Root returns the topmost ancestor of the node.
func (n *Node) Root() *Node {
	r := n
	for p := r.Parent(); p != nil; p = r.Parent() {
		r = p
	}
	return r
}

// Is reports whether both references identify the same node.
func (n *Node) Is(o *Node) bool {
	return n == o || n.acc == o.acc && n.pre == o.pre
}

// Diff compares the document order of two nodes. Nodes of different
// accessors are ordered by accessor id. The result is negative if n
// precedes o.
func (n *Node) Diff(o *Node) int {
	if n.acc != o.acc {
		if a, b := n.acc.ID(), o.acc.ID(); a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return n.pre - o.pre
}

// String implements types.Item.
func (n *Node) String() string {
	name := n.Name()
	switch n.kind {
	case storage.KindDocument:
		dn := ""
		if t, ok := n.acc.(storage.Textual); ok {
			dn = t.Name(n.pre)
		}
		return "document-node { " + strconv.Quote(dn) + " }"
	case storage.KindElement:
		return "element " + name + " { ... }"
	case storage.KindAttribute:
		return "attribute " + name + " { " + strconv.Quote(n.StringValue()) + " }"
	case storage.KindPI:
		return "processing-instruction " + name + " { " + strconv.Quote(n.StringValue()) + " }"
	case storage.KindComment:
		return "comment { " + strconv.Quote(n.StringValue()) + " }"
	default:
		return "text { " + strconv.Quote(n.StringValue()) + " }"
	}
}
