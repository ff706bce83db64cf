// Package storage implements the pre-order table encoding of a tree.
//
// Every node of a document is identified by its pre value, the position of
// the node in a pre-order traversal. For each pre value the table stores:
//   - the node kind (document, element, text, attribute, comment, pi)
//   - the subtree size: the subtree of a node occupies [pre, pre+size)
//   - the attribute size: the attributes of an element occupy [pre+1, pre+attSize)
//   - the distance to the parent node
//
// Tables are immutable once built and may be shared by any number of
// concurrent navigation sessions.
//
// # Example
//
//	b := storage.NewBuilder()
//	b.OpenDocument("doc.xml")
//	b.OpenElement("a")
//	b.Attribute("id", "1")
//	b.Text("hello")
//	b.Close()
//	b.Close()
//	table, err := b.Finish()
package storage
