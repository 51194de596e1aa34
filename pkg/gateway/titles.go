package gateway

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gm_ast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxTitles is the number of suggestions kept from a model answer.
const MaxTitles = 3

// SplitTitles turns a one-title-per-line answer into at most MaxTitles
// titles. The answer is read as markdown so list markers, numbering,
// emphasis and headings are stripped; blank lines are dropped.
func SplitTitles(raw string) []string {
	out := make([]string, 0, MaxTitles)
	for _, line := range strings.Split(PlainText(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxTitles {
			break
		}
	}
	return out
}

// PlainText renders markdown as plain text with one line per block or line
// break.
func PlainText(md string) string {
	source := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var b bytes.Buffer
	_ = gm_ast.Walk(doc, func(n gm_ast.Node, entering bool) (gm_ast.WalkStatus, error) {
		if !entering {
			if n.Type() == gm_ast.TypeBlock {
				b.WriteByte('\n')
			}
			return gm_ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gm_ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *gm_ast.String:
			b.Write(node.Value)
		case *gm_ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gm_ast.Text); ok {
					b.Write(t.Segment.Value(source))
				}
			}
			return gm_ast.WalkSkipChildren, nil
		case *gm_ast.FencedCodeBlock, *gm_ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
			return gm_ast.WalkSkipChildren, nil
		case *gm_ast.ThematicBreak:
			return gm_ast.WalkSkipChildren, nil
		}
		return gm_ast.WalkContinue, nil
	})
	return b.String()
}
