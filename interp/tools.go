// interp/tools.go
package interp

import (
	"fmt"
	"strings"

	"simonwaldherr.de/go/kestrel/grammar"
	"simonwaldherr.de/go/kestrel/source"
)

// FormatSource re-indents a script by scope depth, one tab per level.
// It returns the original source and an error when a line does not match
// the grammar or the scopes do not balance.
func FormatSource(src string) (string, error) {
	m := grammar.NewMatcher(nil)
	lines := strings.Split(src, "\n")
	out := make([]string, len(lines))
	depth := 0
	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		pieces := source.Split(source.StripComment(text))
		for _, p := range pieces {
			if _, err := m.Match(p, i+1); err != nil {
				return src, err
			}
		}
		lead := depth
		for _, p := range pieces {
			if p == ";" || source.IsBorder(p) {
				lead--
				if source.IsBorder(p) {
					break
				}
				continue
			}
			break
		}
		if lead < 0 {
			return src, fmt.Errorf("line %d: ';' closes the top level", i+1)
		}
		out[i] = strings.Repeat("\t", lead) + text
		depth += source.Depth(text)
	}
	if depth != 0 {
		return src, fmt.Errorf("%d scope(s) left open", depth)
	}
	return strings.Join(out, "\n"), nil
}

// VetIssue describes a potential problem found by VetSource.
type VetIssue struct {
	Line    int
	Column  int
	Message string
}

func (v VetIssue) String() string {
	return fmt.Sprintf("%d:%d: %s", v.Line, v.Column, v.Message)
}

type vetBlock struct {
	kind       grammar.ScopeKind
	line       int
	terminated bool
	reported   bool
}

// VetSource checks a script without running it: unreachable statements,
// self-assignments, misplaced borders and unbalanced scopes. A line the
// grammar rejects is returned as an error.
func VetSource(src string) ([]VetIssue, error) {
	m := grammar.NewMatcher(nil)
	file := source.Parse("vet", src)
	cols := newColumns(src)
	stack := []vetBlock{{kind: grammar.ScopeTopLevel}}
	var issues []VetIssue
	for _, p := range file.Pieces {
		st, err := m.Match(p.Text, p.Line)
		if err != nil {
			return nil, err
		}
		col := cols.of(p)
		report := func(p source.Piece, format string, args ...any) {
			issues = append(issues, VetIssue{Line: p.Line, Column: col, Message: fmt.Sprintf(format, args...)})
		}
		top := &stack[len(stack)-1]
		if top.terminated && !top.reported && !st.Closes {
			report(p, "unreachable code")
			top.reported = true
		}
		switch {
		case st.Opens && st.Closes:
			want := grammar.ScopeIf
			if st.Kind == grammar.StmtCatch {
				want = grammar.ScopeTry
			}
			if len(stack) == 1 || top.kind != want {
				report(p, "%s without a matching %s", strings.ToLower(st.Kind.String()), want)
				continue
			}
			*top = vetBlock{kind: st.Scope, line: p.Line}
		case st.Opens:
			if st.Kind == grammar.StmtFunction && top.kind != grammar.ScopeTopLevel && top.kind != grammar.ScopeClass {
				report(p, "function declared inside %s", top.kind)
			}
			stack = append(stack, vetBlock{kind: st.Scope, line: p.Line})
		case st.Closes:
			if len(stack) == 1 {
				report(p, "';' closes the top level")
				continue
			}
			stack = stack[:len(stack)-1]
		default:
			if terminates(st.Kind) {
				top.terminated = true
			}
			if selfAssignment(st) {
				name, _ := st.First(grammar.TokIdentifier)
				report(p, "self-assignment: %s = %s has no effect", name.Text, name.Text)
			}
		}
	}
	for i := len(stack) - 1; i > 0; i-- {
		issues = append(issues, VetIssue{Line: stack[i].line, Column: 1, Message: fmt.Sprintf("%s is never closed", stack[i].kind)})
	}
	return issues, nil
}

// terminates reports whether a statement unconditionally leaves its scope.
func terminates(k grammar.StatementKind) bool {
	switch k {
	case grammar.StmtReturn, grammar.StmtBreak, grammar.StmtContinue, grammar.StmtExit,
		grammar.StmtRaise, grammar.StmtRethrow:
		return true
	}
	return false
}

func selfAssignment(st *grammar.Statement) bool {
	if st.Kind != grammar.StmtAssign {
		return false
	}
	name, _ := st.First(grammar.TokIdentifier)
	val, _ := st.First(grammar.TokExpression)
	return name.Text == val.Text
}

// columns maps pieces back to their 1-based column in the physical line.
type columns struct {
	lines []string
	next  map[int]int
}

func newColumns(src string) *columns {
	return &columns{lines: strings.Split(src, "\n"), next: map[int]int{}}
}

func (c *columns) of(p source.Piece) int {
	if p.Line < 1 || p.Line > len(c.lines) {
		return 1
	}
	line := c.lines[p.Line-1]
	from := c.next[p.Line]
	i := strings.Index(line[from:], p.Text)
	if i < 0 {
		return 1
	}
	c.next[p.Line] = from + i + len(p.Text)
	return from + i + 1
}
