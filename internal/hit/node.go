// Package hit parses the hierarchical input text ("hit") format used by test
// specification files.
//
// A hit document is a tree of named sections holding ordered key/value fields:
//
//	[Tests]
//	  design = 'Diffusion.md'
//	  issues = '#1234'
//	  [diffusion]
//	    type = Exodiff
//	    input = 'diffusion.i'
//	    requirement = "The system shall solve the diffusion equation."
//	  []
//	[]
//
// Both the current `[name]` ... `[]` section syntax and the legacy
// `[./name]` ... `[../]` syntax are accepted. The parser keeps field and
// child order exactly as written.
package hit

import (
	"errors"
	"strings"
)

// ErrNoTopLevelBlock is returned by TopLevel when a document has no sections.
var ErrNoTopLevelBlock = errors.New("document has no top-level block")

// Field is a single key/value pair inside a section.
type Field struct {
	Key   string
	Value string
	Line  int
}

// Node is a section of a hit document. The document root is an unnamed Node.
type Node struct {
	name     string
	line     int
	parent   *Node
	fields   []Field
	children []*Node
}

// Name returns the section name; empty for the document root.
func (n *Node) Name() string {
	return n.name
}

// Line returns the line on which the section header appeared.
func (n *Node) Line() int {
	return n.line
}

// Parent returns the enclosing section, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// FullPath returns the slash separated path from the root to this node.
func (n *Node) FullPath() string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Children returns the direct child sections in document order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Find resolves a slash separated path of section names below n.
func (n *Node) Find(path string) *Node {
	cur := n
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		cur = cur.Child(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Fields returns the fields of this section in document order.
func (n *Node) Fields() []Field {
	return n.fields
}

// Has reports whether the section declares the field key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Get returns the value of key and whether it is declared. A declared field
// with an empty value returns ("", true).
func (n *Node) Get(key string) (string, bool) {
	for _, f := range n.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// GetDefault returns the value of key, or def when it is not declared.
func (n *Node) GetDefault(key, def string) string {
	if v, ok := n.Get(key); ok {
		return v
	}
	return def
}

// TopLevel returns the first child section of the document root.
func (n *Node) TopLevel() (*Node, error) {
	if len(n.children) == 0 {
		return nil, ErrNoTopLevelBlock
	}
	return n.children[0], nil
}

func (n *Node) addChild(name string, line int) *Node {
	child := &Node{name: name, line: line, parent: n}
	n.children = append(n.children, child)
	return child
}
