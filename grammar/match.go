// grammar/match.go
package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"simonwaldherr.de/go/kestrel/diag"
)

// Matcher compiles source lines against a catalog.
type Matcher struct {
	catalog *Catalog
}

func NewMatcher(c *Catalog) *Matcher {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Matcher{catalog: c}
}

// Match returns the statement of the first template that consumes the whole
// line. Lines no template accepts are UnknownStatement syntax errors.
func (m *Matcher) Match(line string, lineNo int) (*Statement, error) {
	src := strings.TrimSpace(line)
	if src == "" {
		return nil, diag.Syntaxf(diag.TagUnknownStatement, "empty statement").At("", lineNo)
	}
	for _, t := range m.catalog.templates {
		if t.Prefix != "" && !strings.HasPrefix(src, t.Prefix) {
			continue
		}
		st := &matchState{line: src, groups: t.Groups}
		toks, ok := st.group(0, 0, nil)
		if !ok {
			continue
		}
		return &Statement{
			Kind:   t.Kind,
			Tokens: toks,
			Opens:  t.Opens,
			Closes: t.Closes,
			Scope:  t.Scope,
			Line:   lineNo,
			Source: src,
		}, nil
	}
	return nil, diag.Syntaxf(diag.TagUnknownStatement, "unknown statement %q", src).At("", lineNo)
}

type matchState struct {
	line   string
	groups []Group
}

func push(toks []Token, t Token) []Token {
	return append(toks[:len(toks):len(toks)], t)
}

func (s *matchState) skipSpace(pos int) int {
	for pos < len(s.line) && (s.line[pos] == ' ' || s.line[pos] == '\t') {
		pos++
	}
	return pos
}

// start returns where token si of group gi begins scanning.
func (s *matchState) start(gi, si, pos int) int {
	if si == 0 && s.groups[gi].Adjacent {
		return pos
	}
	return s.skipSpace(pos)
}

func (s *matchState) group(gi, pos int, toks []Token) ([]Token, bool) {
	if gi == len(s.groups) {
		if s.skipSpace(pos) == len(s.line) {
			return toks, true
		}
		return nil, false
	}
	g := s.groups[gi]
	var res []Token
	var ok bool
	switch g.Rule {
	case GroupAll:
		res, ok = s.all(gi, 0, pos, toks)
	case GroupExactlyOne:
		res, ok = s.exactlyOne(gi, pos, toks)
	case GroupAny:
		res, ok = s.any(gi, 0, pos, toks)
	}
	if !ok && g.Optional {
		return s.group(gi+1, pos, toks)
	}
	return res, ok
}

func (s *matchState) all(gi, si, pos int, toks []Token) ([]Token, bool) {
	specs := s.groups[gi].Specs
	if si == len(specs) {
		return s.group(gi+1, pos, toks)
	}
	tok, end, ok := s.scan(gi, si, s.start(gi, si, pos))
	if !ok {
		return nil, false
	}
	return s.all(gi, si+1, end, push(toks, tok))
}

func (s *matchState) exactlyOne(gi, pos int, toks []Token) ([]Token, bool) {
	for si := range s.groups[gi].Specs {
		tok, end, ok := s.scan(gi, si, s.start(gi, 0, pos))
		if !ok {
			continue
		}
		if res, ok := s.group(gi+1, end, push(toks, tok)); ok {
			return res, true
		}
	}
	return nil, false
}

func (s *matchState) any(gi, si, pos int, toks []Token) ([]Token, bool) {
	specs := s.groups[gi].Specs
	if si == len(specs) {
		return s.group(gi+1, pos, toks)
	}
	if tok, end, ok := s.scan(gi, si, s.start(gi, si, pos)); ok {
		if res, ok := s.any(gi, si+1, end, push(toks, tok)); ok {
			return res, true
		}
	}
	return s.any(gi, si+1, pos, toks)
}

// scan extracts token si of group gi at pos.
func (s *matchState) scan(gi, si, pos int) (Token, int, bool) {
	spec := s.groups[gi].Specs[si]
	switch spec.Kind {
	case TokSyntax, TokScopeStart, TokScopeEnd:
		end, ok := s.literal(spec.Literal, pos)
		return Token{Kind: spec.Kind, Text: spec.Literal}, end, ok
	case TokIdentifier:
		parts, end := s.dotted(pos)
		if parts == nil {
			return Token{}, pos, false
		}
		return Token{Kind: TokIdentifier, Text: strings.Join(parts, "."), Parts: parts}, end, true
	case TokDeclIdent:
		end := s.ident(pos)
		if end == pos {
			return Token{}, pos, false
		}
		return Token{Kind: TokDeclIdent, Text: s.line[pos:end]}, end, true
	case TokExpression:
		end := s.expressionEnd(gi, si, pos)
		text := strings.TrimSpace(s.line[pos:end])
		if text == "" {
			return Token{}, pos, false
		}
		return Token{Kind: TokExpression, Text: text}, end, true
	case TokArgs:
		inner, end, ok := s.bracketed(pos, '(', ')')
		if !ok {
			return Token{}, pos, false
		}
		parts := []string{}
		if strings.TrimSpace(inner) != "" {
			for _, p := range splitTopLevel(inner, ',') {
				parts = append(parts, strings.TrimSpace(p))
			}
		}
		return Token{Kind: TokArgs, Text: inner, Parts: parts}, end, true
	case TokIndex:
		inner, end, ok := s.bracketed(pos, '[', ']')
		if !ok || strings.TrimSpace(inner) == "" {
			return Token{}, pos, false
		}
		return Token{Kind: TokIndex, Text: strings.TrimSpace(inner)}, end, true
	case TokString:
		end, ok := s.quoted(pos)
		if !ok {
			return Token{}, pos, false
		}
		return Token{Kind: TokString, Text: s.line[pos:end]}, end, true
	}
	return Token{}, pos, false
}

// literal matches lit at pos with word boundaries for alphabetic literals.
func (s *matchState) literal(lit string, pos int) (int, bool) {
	if !strings.HasPrefix(s.line[pos:], lit) {
		return pos, false
	}
	end := pos + len(lit)
	if !literalBoundary(s.line, pos, end, lit) {
		return pos, false
	}
	return end, true
}

func literalBoundary(line string, pos, end int, lit string) bool {
	if isWordLiteral(lit) {
		if end < len(line) {
			r, _ := utf8.DecodeRuneInString(line[end:])
			if isIdentRune(r) {
				return false
			}
		}
		if pos > 0 {
			r, _ := utf8.DecodeLastRuneInString(line[:pos])
			if isIdentRune(r) {
				return false
			}
		}
		return true
	}
	// "=" must not swallow the head of "==" or the tail of "<=", "!=" etc.
	if lit == "=" {
		if end < len(line) && line[end] == '=' {
			return false
		}
		if pos > 0 && strings.IndexByte("=!<>+-*/", line[pos-1]) >= 0 {
			return false
		}
	}
	return true
}

func isWordLiteral(lit string) bool {
	r, _ := utf8.DecodeRuneInString(lit)
	return isIdentStart(r)
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentRune(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

func (s *matchState) ident(pos int) int {
	r, n := utf8.DecodeRuneInString(s.line[pos:])
	if n == 0 || !isIdentStart(r) {
		return pos
	}
	end := pos + n
	for end < len(s.line) {
		r, n = utf8.DecodeRuneInString(s.line[end:])
		if !isIdentRune(r) {
			break
		}
		end += n
	}
	return end
}

func (s *matchState) dotted(pos int) ([]string, int) {
	var parts []string
	for {
		end := s.ident(pos)
		if end == pos {
			return nil, pos
		}
		parts = append(parts, s.line[pos:end])
		if end < len(s.line) && s.line[end] == '.' {
			pos = end + 1
			continue
		}
		return parts, end
	}
}

// bracketed returns the text between open at pos and its matching close.
func (s *matchState) bracketed(pos int, open, close byte) (string, int, bool) {
	if pos >= len(s.line) || s.line[pos] != open {
		return "", pos, false
	}
	depth, inStr := 0, false
	for i := pos; i < len(s.line); i++ {
		c := s.line[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				if c != close {
					return "", pos, false
				}
				return s.line[pos+1 : i], i + 1, true
			}
		}
	}
	return "", pos, false
}

func (s *matchState) quoted(pos int) (int, bool) {
	if pos >= len(s.line) || s.line[pos] != '"' {
		return pos, false
	}
	for i := pos + 1; i < len(s.line); i++ {
		switch s.line[i] {
		case '\\':
			i++
		case '"':
			return i + 1, true
		}
	}
	return pos, false
}

// stopLiterals collects the literals that may follow token si of group gi:
// the rest of the group, then following groups up to the first mandatory one.
func (s *matchState) stopLiterals(gi, si int) []string {
	var out []string
	g := s.groups[gi]
	if si+1 < len(g.Specs) {
		next := g.Specs[si+1]
		if next.Literal != "" {
			out = append(out, next.Literal)
		}
		if g.Rule == GroupAll {
			return out
		}
	}
	for _, ng := range s.groups[gi+1:] {
		switch ng.Rule {
		case GroupAll:
			if lit := ng.Specs[0].Literal; lit != "" {
				out = append(out, lit)
			}
		default:
			for _, sp := range ng.Specs {
				if sp.Literal != "" {
					out = append(out, sp.Literal)
				}
			}
		}
		if !ng.Optional && ng.Rule != GroupAny {
			break
		}
	}
	return out
}

// expressionEnd finds the first depth-0 occurrence of a following literal
// outside string literals; with no candidates the expression takes the rest.
func (s *matchState) expressionEnd(gi, si, pos int) int {
	stops := s.stopLiterals(gi, si)
	if len(stops) == 0 {
		return len(s.line)
	}
	depth, inStr := 0, false
	for i := pos; i < len(s.line); i++ {
		c := s.line[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
			continue
		case '(', '[':
			depth++
			continue
		case ')', ']':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		for _, lit := range stops {
			if strings.HasPrefix(s.line[i:], lit) && literalBoundary(s.line, i, i+len(lit), lit) {
				return i
			}
		}
	}
	return len(s.line)
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth, start, inStr := 0, 0, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if c == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
