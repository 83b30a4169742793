// Package design resolves the design tokens of requirements to markdown
// documents and reads their titles.
package design

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/reqtrace/internal/fileutil"
)

// Doc is a markdown document a design token resolved to.
type Doc struct {
	Token string
	Path  string
	Title string
}

// Resolver maps design tokens to markdown files found under a set of roots.
type Resolver struct {
	roots    []string
	markdown goldmark.Markdown
	byName   map[string][]string
	titles   map[string]string
}

// NewResolver indexes every .md file under roots. Missing roots are an error.
func NewResolver(roots []string) (*Resolver, error) {
	r := &Resolver{
		roots:    roots,
		markdown: goldmark.New(),
		byName:   make(map[string][]string),
		titles:   make(map[string]string),
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("docs directory %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("docs directory %s is not a directory", root)
		}

		result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{Recursive: true})
		if err != nil {
			return nil, fmt.Errorf("scan docs directory %s: %w", root, err)
		}
		for _, path := range result.Files {
			if !strings.EqualFold(filepath.Ext(path), ".md") {
				continue
			}
			name := filepath.Base(path)
			r.byName[name] = append(r.byName[name], path)
		}
	}

	for name := range r.byName {
		sort.Strings(r.byName[name])
	}
	return r, nil
}

// Enabled reports whether any docs roots are configured.
func (r *Resolver) Enabled() bool {
	return r != nil && len(r.roots) > 0
}

// Resolve finds the document for a design token. A token matches a file with
// the same basename, or with ".md" appended. Tokens containing a slash must
// also match the trailing path components. The lexically first match wins.
func (r *Resolver) Resolve(token string) (*Doc, bool) {
	if r == nil || token == "" {
		return nil, false
	}

	slashed := filepath.ToSlash(token)
	name := pathBase(slashed)
	candidates := r.byName[name]
	if len(candidates) == 0 && !strings.EqualFold(filepath.Ext(name), ".md") {
		candidates = r.byName[name+".md"]
		slashed += ".md"
	}

	for _, path := range candidates {
		if strings.Contains(slashed, "/") && !strings.HasSuffix(filepath.ToSlash(path), "/"+strings.TrimPrefix(slashed, "/")) {
			continue
		}
		return &Doc{Token: token, Path: path, Title: r.title(path)}, true
	}
	return nil, false
}

// Unresolved returns the tokens that do not resolve, in input order.
func (r *Resolver) Unresolved(tokens []string) []string {
	var missing []string
	for _, token := range tokens {
		if _, ok := r.Resolve(token); !ok {
			missing = append(missing, token)
		}
	}
	return missing
}

func (r *Resolver) title(path string) string {
	if t, ok := r.titles[path]; ok {
		return t
	}
	t, err := Title(r.markdown, path)
	if err != nil {
		t = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	r.titles[path] = t
	return t
}

// Title returns the document title: a `title` key in YAML frontmatter, else
// the text of the first heading, else the file name without extension.
func Title(md goldmark.Markdown, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if md == nil {
		md = goldmark.New()
	}

	body, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var meta struct {
			Title string `yaml:"title"`
		}
		if err := yaml.Unmarshal(frontmatter, &meta); err == nil && meta.Title != "" {
			return meta.Title, nil
		}
	}

	doc := md.Parser().Parse(text.NewReader(body))

	var title string
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(extractText(heading, body))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk %s: %w", path, err)
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return title, nil
}

// extractText concatenates the text segments below n, including those
// nested in emphasis or code spans.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
			if v.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		default:
			buf.WriteString(extractText(c, source))
		}
	}
	return buf.String()
}

func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			return bytes.Join(lines[i+1:], []byte("\n")), bytes.Join(lines[1:i], []byte("\n"))
		}
	}
	return content, nil
}

func pathBase(slashed string) string {
	if i := strings.LastIndex(slashed, "/"); i >= 0 {
		return slashed[i+1:]
	}
	return slashed
}
