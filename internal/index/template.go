package index

import (
	"fmt"
	"strings"
)

// Template is a compiled iamc variable template: literal segments
// interleaved with column references. Compiling once at load time makes
// an unresolved placeholder a configuration-time condition instead of a
// formatting surprise halfway through a run.
type Template struct {
	raw  string
	segs []segment
}

// segment is either a literal (Col == "") or a column reference.
type segment struct {
	Lit string
	Col string
}

// ParseTemplate compiles an iamc template string. Placeholders use
// {column} syntax; doubled braces escape a literal brace.
func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %q: unclosed placeholder", s)
			}
			col := s[i+1 : i+end]
			if col == "" {
				return nil, fmt.Errorf("template %q: empty placeholder", s)
			}
			if strings.ContainsAny(col, "{} ") {
				return nil, fmt.Errorf("template %q: bad placeholder %q", s, col)
			}
			if lit.Len() > 0 {
				t.segs = append(t.segs, segment{Lit: lit.String()})
				lit.Reset()
			}
			t.segs = append(t.segs, segment{Col: col})
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("template %q: stray '}'", s)
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		t.segs = append(t.segs, segment{Lit: lit.String()})
	}
	return t, nil
}

// String returns the original template text.
func (t *Template) String() string { return t.raw }

// IsLiteral reports whether the template has no column references.
func (t *Template) IsLiteral() bool {
	for _, seg := range t.segs {
		if seg.Col != "" {
			return false
		}
	}
	return true
}

// Literal renders a placeholder-free template. It panics on templates
// with references; callers check IsLiteral first.
func (t *Template) Literal() string {
	if !t.IsLiteral() {
		panic("index: Literal called on template with placeholders")
	}
	var b strings.Builder
	for _, seg := range t.segs {
		b.WriteString(seg.Lit)
	}
	return b.String()
}

// Columns returns the distinct referenced columns in order of first use.
func (t *Template) Columns() []string {
	var cols []string
	seen := map[string]bool{}
	for _, seg := range t.segs {
		if seg.Col != "" && !seen[seg.Col] {
			seen[seg.Col] = true
			cols = append(cols, seg.Col)
		}
	}
	return cols
}

// Render substitutes each column reference using get. get reports
// ok=false for columns it cannot resolve, which surfaces as an error
// naming the column.
func (t *Template) Render(get func(col string) (string, bool)) (string, error) {
	var b strings.Builder
	for _, seg := range t.segs {
		if seg.Col == "" {
			b.WriteString(seg.Lit)
			continue
		}
		v, ok := get(seg.Col)
		if !ok {
			return "", &UnresolvedColumnError{Template: t.raw, Column: seg.Col}
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
