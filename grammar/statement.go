// grammar/statement.go
package grammar

import (
	"fmt"
	"strings"
)

// StatementKind identifies the winning template of a compiled line.
type StatementKind int

const (
	StmtScopeClose StatementKind = iota
	StmtDirective
	StmtDeclare
	StmtIf
	StmtElseIf
	StmtElse
	StmtWhile
	StmtBreak
	StmtContinue
	StmtFunction
	StmtReturn
	StmtClass
	StmtTry
	StmtCatch
	StmtBlock
	StmtAcquireOnce
	StmtAcquire
	StmtRelease
	StmtRaise
	StmtRethrow
	StmtAssert
	StmtExit
	StmtClear
	StmtCompound
	StmtIndexAssign
	StmtAssign
	StmtCall
)

var statementNames = map[StatementKind]string{
	StmtScopeClose:  "ScopeClose",
	StmtDirective:   "Directive",
	StmtDeclare:     "Declare",
	StmtIf:          "If",
	StmtElseIf:      "ElseIf",
	StmtElse:        "Else",
	StmtWhile:       "While",
	StmtBreak:       "Break",
	StmtContinue:    "Continue",
	StmtFunction:    "Function",
	StmtReturn:      "Return",
	StmtClass:       "Class",
	StmtTry:         "Try",
	StmtCatch:       "Catch",
	StmtBlock:       "Block",
	StmtAcquireOnce: "AcquireOnce",
	StmtAcquire:     "Acquire",
	StmtRelease:     "Release",
	StmtRaise:       "Raise",
	StmtRethrow:     "Rethrow",
	StmtAssert:      "Assert",
	StmtExit:        "Exit",
	StmtClear:       "Clear",
	StmtCompound:    "Compound",
	StmtIndexAssign: "IndexAssign",
	StmtAssign:      "Assign",
	StmtCall:        "Call",
}

func (k StatementKind) String() string {
	if n, ok := statementNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Statement(%d)", int(k))
}

// ScopeKind tags the control-flow role of a scope.
type ScopeKind int

const (
	ScopeTopLevel ScopeKind = iota
	ScopeIf
	ScopeElse
	ScopeFunction
	ScopeGeneric
	ScopeTry
	ScopeCatch
	ScopeLoop
	ScopeClass
	ScopeInternal
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeTopLevel:
		return "topLevel"
	case ScopeIf:
		return "ifScope"
	case ScopeElse:
		return "elseScope"
	case ScopeFunction:
		return "functionScope"
	case ScopeGeneric:
		return "genericScope"
	case ScopeTry:
		return "tryScope"
	case ScopeCatch:
		return "catchScope"
	case ScopeLoop:
		return "loopScope"
	case ScopeClass:
		return "classScope"
	case ScopeInternal:
		return "internal"
	}
	return fmt.Sprintf("scope(%d)", int(k))
}

// Token is one extracted slot: a leaf Text, or Parts for identifiers and args.
type Token struct {
	Kind  TokenKind
	Text  string
	Parts []string
}

// Statement is a compiled source line.
type Statement struct {
	Kind   StatementKind
	Tokens []Token
	Opens  bool
	Closes bool
	Scope  ScopeKind

	Line   int
	Source string
}

// First returns the first token of kind k.
func (s *Statement) First(k TokenKind) (Token, bool) {
	for _, t := range s.Tokens {
		if t.Kind == k {
			return t, true
		}
	}
	return Token{}, false
}

// All returns every token of kind k, in order.
func (s *Statement) All(k TokenKind) []Token {
	var out []Token
	for _, t := range s.Tokens {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// HasSyntax reports whether the literal lit was matched.
func (s *Statement) HasSyntax(lit string) bool {
	for _, t := range s.Tokens {
		if t.Kind == TokSyntax && t.Text == lit {
			return true
		}
	}
	return false
}

func (s *Statement) String() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	for _, t := range s.Tokens {
		b.WriteByte(' ')
		b.WriteString(t.String())
	}
	return b.String()
}

func (t Token) String() string {
	if t.Parts != nil {
		return t.Kind.String() + "[" + strings.Join(t.Parts, "|") + "]"
	}
	return t.Kind.String() + "(" + t.Text + ")"
}
