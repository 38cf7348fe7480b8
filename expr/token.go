// expr/token.go
package expr

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/value"
)

type tokenKind int

const (
	tokValue tokenKind = iota // literal or already reduced
	tokOperator
	tokOpen
	tokClose
	tokVariable
	tokFunction
	tokModule
	tokIndexer
	tokArray
	tokRead
)

type token struct {
	kind tokenKind
	text string
	val  *value.Value
	args []string // call arguments or array elements
}

const readMarker = '@'
const infinity = "∞"

func invalid(format string, args ...any) *diag.Error {
	return diag.Syntaxf(diag.TagInvalidExpression, format, args...)
}

// producesValue reports whether a token ends an operand, which decides
// whether a following '[' indexes or opens an array literal.
func (t token) producesValue() bool {
	switch t.kind {
	case tokValue, tokVariable, tokFunction, tokArray, tokRead, tokClose, tokIndexer:
		return true
	}
	return false
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentRune(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

type lexer struct {
	src  string
	pos  int
	ops  *Table
	toks []token
}

func tokenize(src string, ops *Table) ([]token, error) {
	lx := &lexer{src: src, ops: ops}
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.src) {
			return lx.toks, nil
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case ' ', '\t', '\r', '\n':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *lexer) last() (token, bool) {
	if len(lx.toks) == 0 {
		return token{}, false
	}
	return lx.toks[len(lx.toks)-1], true
}

func (lx *lexer) emit(t token) { lx.toks = append(lx.toks, t) }

func (lx *lexer) next() error {
	rest := lx.src[lx.pos:]
	c := rest[0]
	r, _ := utf8.DecodeRuneInString(rest)
	switch {
	case c == '"':
		return lx.str()
	case c >= '0' && c <= '9':
		return lx.number()
	case strings.HasPrefix(rest, infinity):
		lx.pos += len(infinity)
		lx.emit(token{kind: tokValue, text: infinity, val: value.NewNumber(math.Inf(1))})
		return nil
	case c == '(':
		lx.pos++
		lx.emit(token{kind: tokOpen, text: "("})
		return nil
	case c == ')':
		lx.pos++
		lx.emit(token{kind: tokClose, text: ")"})
		return nil
	case c == '[':
		return lx.bracket()
	case c == readMarker:
		lx.pos++
		lx.emit(token{kind: tokRead, text: "@"})
		return nil
	case isIdentStart(r):
		return lx.ident()
	}
	if sym, ok := lx.ops.matchSymbol(rest); ok {
		lx.pos += len(sym)
		lx.emit(token{kind: tokOperator, text: sym})
		return nil
	}
	return invalid("unexpected character %q in %q", r, lx.src)
}

func (lx *lexer) str() error {
	start := lx.pos
	for i := start + 1; i < len(lx.src); i++ {
		switch lx.src[i] {
		case '\\':
			i++
		case '"':
			lit := lx.src[start : i+1]
			s, err := value.Unquote(lit)
			if err != nil {
				return invalid("malformed string literal %s", lit)
			}
			lx.pos = i + 1
			lx.emit(token{kind: tokValue, text: lit, val: value.NewString(s)})
			return nil
		}
	}
	return invalid("unterminated string literal in %q", lx.src)
}

func (lx *lexer) number() error {
	start := lx.pos
	i := start
	digits := func() {
		for i < len(lx.src) && lx.src[i] >= '0' && lx.src[i] <= '9' {
			i++
		}
	}
	digits()
	if i+1 < len(lx.src) && lx.src[i] == '.' && lx.src[i+1] >= '0' && lx.src[i+1] <= '9' {
		i++
		digits()
	}
	if i < len(lx.src) && (lx.src[i] == 'e' || lx.src[i] == 'E') {
		j := i + 1
		if j < len(lx.src) && (lx.src[j] == '+' || lx.src[j] == '-') {
			j++
		}
		if j < len(lx.src) && lx.src[j] >= '0' && lx.src[j] <= '9' {
			i = j
			digits()
		}
	}
	text := lx.src[start:i]
	v, err := value.FromText(value.KindNumber, text)
	if err != nil {
		return invalid("malformed number %q", text)
	}
	lx.pos = i
	lx.emit(token{kind: tokValue, text: text, val: v})
	return nil
}

// span returns the end of the bracket group opening at lx.pos.
func (lx *lexer) span() (int, error) {
	depth, inStr := 0, false
	for i := lx.pos; i < len(lx.src); i++ {
		c := lx.src[i]
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
				return i, nil
			}
		}
	}
	return 0, invalid("unbalanced brackets in %q", lx.src)
}

func splitArgs(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := value.SplitTopLevel(inner, ',')
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (lx *lexer) bracket() error {
	end, err := lx.span()
	if err != nil {
		return err
	}
	inner := lx.src[lx.pos+1 : end]
	text := lx.src[lx.pos : end+1]
	lx.pos = end + 1
	if prev, ok := lx.last(); ok && prev.producesValue() {
		if strings.TrimSpace(inner) == "" {
			return invalid("empty index in %q", lx.src)
		}
		lx.emit(token{kind: tokIndexer, text: strings.TrimSpace(inner)})
		return nil
	}
	lx.emit(token{kind: tokArray, text: text, args: splitArgs(inner)})
	return nil
}

func (lx *lexer) ident() error {
	start := lx.pos
	i := start
	for i < len(lx.src) {
		r, n := utf8.DecodeRuneInString(lx.src[i:])
		if !isIdentRune(r) {
			break
		}
		i += n
	}
	name := lx.src[start:i]
	lx.pos = i
	if i < len(lx.src) {
		switch lx.src[i] {
		case '(':
			end, err := lx.span()
			if err != nil {
				return err
			}
			lx.emit(token{kind: tokFunction, text: name, args: splitArgs(lx.src[i+1 : end])})
			lx.pos = end + 1
			return nil
		case '.':
			if r, _ := utf8.DecodeRuneInString(lx.src[i+1:]); isIdentStart(r) {
				lx.emit(token{kind: tokModule, text: name})
				lx.pos = i + 1
				return nil
			}
		}
	}
	lx.emit(token{kind: tokVariable, text: name})
	return nil
}
