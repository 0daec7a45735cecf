// Package document provides a small read-only tree over provider responses.
//
// Weather Underground serves the same forecast either as XML or as JSON. Both
// are loaded into the same Node tree so the forecast parser does not care
// which wire format was requested.
package document

import "strings"

// Node is a read-only view of one element of a response document.
type Node interface {
	// Name returns the element tag (XML) or object key (JSON).
	Name() string
	// Text returns the direct text content with surrounding whitespace trimmed.
	// Self-closing or empty elements return an empty string.
	Text() string
	// Children returns the direct child nodes in document order.
	Children() []Node
}

type element struct {
	name     string
	text     string
	children []Node
}

func (e *element) Name() string     { return e.name }
func (e *element) Text() string     { return e.text }
func (e *element) Children() []Node { return e.children }

// NewElement builds a node with the given name, text and children.
func NewElement(name, text string, children ...Node) Node {
	return &element{
		name:     name,
		text:     strings.TrimSpace(text),
		children: children,
	}
}

// FindAll returns every descendant of n named tag in document order.
// n itself is never included.
func FindAll(n Node, tag string) []Node {
	var found []Node
	walk(n, func(child Node) bool {
		if child.Name() == tag {
			found = append(found, child)
		}
		return true
	})
	return found
}

// First returns the first descendant of n named tag.
func First(n Node, tag string) (Node, bool) {
	var found Node
	walk(n, func(child Node) bool {
		if child.Name() == tag {
			found = child
			return false
		}
		return true
	})
	return found, found != nil
}

// walk visits descendants depth-first until visit returns false.
func walk(n Node, visit func(Node) bool) bool {
	if n == nil {
		return true
	}
	for _, child := range n.Children() {
		if !visit(child) {
			return false
		}
		if !walk(child, visit) {
			return false
		}
	}
	return true
}
