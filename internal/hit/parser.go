package hit

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// ParseError reports a syntax error with its position in the source.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

// ParseFile opens and parses the hit document at path.
// Syntax errors are *ParseError.
func ParseFile(path string) (*Node, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec file: %w", err)
	}
	defer file.Close()

	return Parse(path, file)
}

// Parse reads a hit document from r. name is used in error positions.
func Parse(name string, r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	p := &parser{
		name: name,
		src:  []rune(string(data)),
		line: 1,
		col:  1,
	}
	return p.parse()
}

// frame is an open section header. restore is the node that becomes current
// again when the header is closed; a nested header like [a/b] opens two nodes
// but is closed by a single [].
type frame struct {
	node    *Node
	restore *Node
	line    int
	col     int
}

type parser struct {
	name string
	src  []rune
	pos  int
	line int
	col  int
}

func (p *parser) parse() (*Node, error) {
	root := &Node{line: 1}
	stack := []frame{{node: root}}

	for {
		p.skipSpaceAndComments()
		r, ok := p.peek()
		if !ok {
			break
		}

		cur := stack[len(stack)-1].node
		line, col := p.line, p.col

		switch r {
		case '[':
			header, err := p.readHeader()
			if err != nil {
				return nil, err
			}

			if header == "" || header == "../" {
				if len(stack) == 1 {
					return nil, p.errorAt(line, col, "section close without matching open")
				}
				stack = stack[:len(stack)-1]
				continue
			}

			parts, err := splitHeader(header)
			if err != nil {
				return nil, p.errorAt(line, col, err.Error())
			}
			node := cur
			for _, part := range parts {
				node = node.addChild(part, line)
			}
			stack = append(stack, frame{node: node, restore: cur, line: line, col: col})

		case ']', '=', '\'', '"':
			return nil, p.errorAt(line, col, fmt.Sprintf("unexpected %q", r))

		default:
			field, err := p.readField()
			if err != nil {
				return nil, err
			}
			if _, dup := cur.Get(field.Key); dup {
				return nil, p.errorAt(line, col, fmt.Sprintf("duplicate parameter %q in [%s]", field.Key, cur.FullPath()))
			}
			cur.fields = append(cur.fields, field)
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1]
		return nil, p.errorAt(open.line, open.col, fmt.Sprintf("section [%s] is never closed", open.node.FullPath()))
	}
	return root, nil
}

// splitHeader turns "./name" or "a/b" into its section names.
func splitHeader(header string) ([]string, error) {
	header = strings.TrimPrefix(header, "./")
	if strings.IndexFunc(header, unicode.IsSpace) >= 0 || strings.ContainsAny(header, "=[]'\"#") {
		return nil, fmt.Errorf("invalid section name %q", header)
	}

	var parts []string
	for _, part := range strings.Split(header, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("invalid section name %q", header)
	}
	return parts, nil
}

func (p *parser) readHeader() (string, error) {
	line, col := p.line, p.col
	p.next() // [

	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok || r == '\n' {
			return "", p.errorAt(line, col, "unterminated section header")
		}
		p.next()
		if r == ']' {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String()), nil
}

func (p *parser) readField() (Field, error) {
	line, col := p.line, p.col

	var key strings.Builder
	for {
		r, ok := p.peek()
		if !ok || unicode.IsSpace(r) || strings.ContainsRune("=#[]'\"", r) {
			break
		}
		key.WriteRune(r)
		p.next()
	}
	if key.Len() == 0 {
		r, _ := p.peek()
		return Field{}, p.errorAt(line, col, fmt.Sprintf("unexpected %q", r))
	}

	p.skipBlanks()
	if r, ok := p.peek(); !ok || r != '=' {
		return Field{}, p.errorAt(p.line, p.col, fmt.Sprintf("expected '=' after parameter %q", key.String()))
	}
	p.next()
	p.skipBlanks()

	value, err := p.readValue(key.String())
	if err != nil {
		return Field{}, err
	}
	return Field{Key: key.String(), Value: value, Line: line}, nil
}

func (p *parser) readValue(key string) (string, error) {
	r, ok := p.peek()
	if !ok || r == '\n' || r == '\r' || r == '#' {
		return "", p.errorAt(p.line, p.col, fmt.Sprintf("missing value for parameter %q", key))
	}
	if r == '\'' || r == '"' {
		return p.readQuoted(r)
	}

	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok || unicode.IsSpace(r) || r == '#' || r == '[' || r == ']' {
			break
		}
		b.WriteRune(r)
		p.next()
	}
	return b.String(), nil
}

// readQuoted reads a quoted string that may span lines. A backslash before
// the quote character escapes it.
func (p *parser) readQuoted(quote rune) (string, error) {
	line, col := p.line, p.col
	p.next()

	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok {
			return "", p.errorAt(line, col, "unterminated string")
		}
		p.next()
		if r == '\\' {
			if nr, ok := p.peek(); ok && nr == quote {
				p.next()
				b.WriteRune(quote)
				continue
			}
		}
		if r == quote {
			return b.String(), nil
		}
		b.WriteRune(r)
	}
}

func (p *parser) skipSpaceAndComments() {
	for {
		r, ok := p.peek()
		if !ok {
			return
		}
		switch {
		case unicode.IsSpace(r):
			p.next()
		case r == '#':
			for {
				r, ok := p.peek()
				if !ok || r == '\n' {
					break
				}
				p.next()
			}
		default:
			return
		}
	}
}

// skipBlanks skips spaces and tabs but not newlines.
func (p *parser) skipBlanks() {
	for {
		r, ok := p.peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		p.next()
	}
}

func (p *parser) peek() (rune, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *parser) errorAt(line, col int, msg string) error {
	return &ParseError{File: p.name, Line: line, Column: col, Msg: msg}
}
