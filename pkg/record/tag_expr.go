package record

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TagQuery is a compiled boolean expression over record tags, for example
// `cat and (sunset or night) and not draft`. Operators are and/&&, or/||,
// not/!, and parentheses. Tags containing spaces or operators can be quoted.
// Matching is case-insensitive.
type TagQuery struct {
	root  tagNode
	input string
}

// ParseTagQuery compiles raw. An empty expression is an error.
func ParseTagQuery(raw string) (*TagQuery, error) {
	toks, err := lexTags(raw)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, fmt.Errorf("tag expression is empty")
	}
	p := &tagParser{toks: toks}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tkEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos+1)
	}
	return &TagQuery{root: root, input: strings.TrimSpace(raw)}, nil
}

// Match reports whether a record carrying tags satisfies the query.
func (q *TagQuery) Match(tags []string) bool {
	if q == nil || q.root == nil {
		return true
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return q.root.match(set)
}

func (q *TagQuery) String() string {
	if q == nil {
		return ""
	}
	return q.input
}

type tagNode interface {
	match(set map[string]struct{}) bool
}

type tagLit string

func (n tagLit) match(set map[string]struct{}) bool {
	_, ok := set[string(n)]
	return ok
}

type tagNot struct{ x tagNode }

func (n tagNot) match(set map[string]struct{}) bool { return !n.x.match(set) }

type tagAnd struct{ l, r tagNode }

func (n tagAnd) match(set map[string]struct{}) bool { return n.l.match(set) && n.r.match(set) }

type tagOr struct{ l, r tagNode }

func (n tagOr) match(set map[string]struct{}) bool { return n.l.match(set) || n.r.match(set) }

type tokKind int

const (
	tkEOF tokKind = iota
	tkTag
	tkAnd
	tkOr
	tkNot
	tkOpen
	tkClose
)

type tagTok struct {
	kind tokKind
	text string
	pos  int
}

func isTagDelim(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("()!&|'\"", r)
}

func lexTags(raw string) ([]tagTok, error) {
	var toks []tagTok
	i := 0
	for i < len(raw) {
		r, w := utf8.DecodeRuneInString(raw[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r == '(':
			toks = append(toks, tagTok{tkOpen, "(", i})
			i++
		case r == ')':
			toks = append(toks, tagTok{tkClose, ")", i})
			i++
		case r == '!':
			toks = append(toks, tagTok{tkNot, "!", i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(raw) || raw[i+1] != raw[i] {
				return nil, fmt.Errorf("unexpected %q at position %d", string(r), i+1)
			}
			kind := tkAnd
			if r == '|' {
				kind = tkOr
			}
			toks = append(toks, tagTok{kind, raw[i : i+2], i})
			i += 2
		case r == '"' || r == '\'':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(raw) {
				c := raw[i]
				if c == '\\' && i+1 < len(raw) {
					b.WriteByte(raw[i+1])
					i += 2
					continue
				}
				i++
				if rune(c) == r {
					closed = true
					break
				}
				b.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote at position %d", start+1)
			}
			toks = append(toks, tagTok{tkTag, strings.ToLower(b.String()), start})
		default:
			start := i
			for i < len(raw) {
				r, w := utf8.DecodeRuneInString(raw[i:])
				if isTagDelim(r) {
					break
				}
				i += w
			}
			word := raw[start:i]
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, tagTok{tkAnd, word, start})
			case "or":
				toks = append(toks, tagTok{tkOr, word, start})
			case "not":
				toks = append(toks, tagTok{tkNot, word, start})
			default:
				toks = append(toks, tagTok{tkTag, strings.ToLower(word), start})
			}
		}
	}
	return append(toks, tagTok{kind: tkEOF, pos: len(raw)}), nil
}

// tagParser is a recursive descent parser; precedence is not > and > or.
type tagParser struct {
	toks []tagTok
	i    int
}

func (p *tagParser) peek() tagTok { return p.toks[p.i] }

func (p *tagParser) advance() tagTok {
	t := p.toks[p.i]
	if t.kind != tkEOF {
		p.i++
	}
	return t
}

func (p *tagParser) or() (tagNode, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkOr {
		p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = tagOr{left, right}
	}
	return left, nil
}

func (p *tagParser) and() (tagNode, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkAnd {
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = tagAnd{left, right}
	}
	return left, nil
}

func (p *tagParser) unary() (tagNode, error) {
	if p.peek().kind == tkNot {
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return tagNot{x}, nil
	}
	return p.primary()
}

func (p *tagParser) primary() (tagNode, error) {
	t := p.advance()
	switch t.kind {
	case tkTag:
		return tagLit(t.text), nil
	case tkOpen:
		x, err := p.or()
		if err != nil {
			return nil, err
		}
		if c := p.advance(); c.kind != tkClose {
			return nil, fmt.Errorf("expected ')' at position %d", c.pos+1)
		}
		return x, nil
	case tkEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos+1)
	}
}
