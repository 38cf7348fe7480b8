// diag/errors.go
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Category decides how far an error may travel before it terminates a run.
type Category int

const (
	Syntax Category = iota
	Runtime
	Critical
)

func (c Category) String() string {
	switch c {
	case Syntax:
		return "syntax"
	case Runtime:
		return "runtime"
	case Critical:
		return "critical"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Error tags. Scripts may raise arbitrary tags; those are Runtime errors.
const (
	TagUnknownStatement  = "UnknownStatement"
	TagInvalidExpression = "InvalidExpression"
	TagMissingOperand    = "MissingOperand"

	TagName             = "NameError"
	TagType             = "TypeError"
	TagValue            = "ValueError"
	TagOverload         = "OverloadError"
	TagIndex            = "IndexError"
	TagConversion       = "ConversionError"
	TagAssertion        = "AssertionError"
	TagIllegalOperation = "IllegalOperation"
	TagModule           = "ModuleError"
	TagDirective        = "DirectiveError"
	TagUnset            = "UnsetError"
	TagReadonly         = "ReadonlyError"

	TagStackOverflow = "StackOverflow"
	TagScopeLeak     = "ScopeLeak"
	TagInternal      = "InternalError"
	TagInterrupted   = "Interrupted"
)

// Error is the single error type surfaced by the interpreter.
type Error struct {
	Category Category
	Tag      string
	Message  string
	Info     string
	Hint     string

	File  string
	Line  int
	Trace []string

	// set by assertion failures
	Expected string
	Actual   string

	// set for recovered host faults
	Incident string
}

func (e *Error) Error() string {
	if e.Tag == "" {
		return e.Message
	}
	return e.Tag + ": " + e.Message
}

// New builds an error from a message template.
func New(cat Category, tag, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Category: cat, Tag: tag, Message: msg}
}

func Syntaxf(tag, format string, args ...any) *Error   { return New(Syntax, tag, format, args...) }
func Runtimef(tag, format string, args ...any) *Error  { return New(Runtime, tag, format, args...) }
func Criticalf(tag, format string, args ...any) *Error { return New(Critical, tag, format, args...) }

// WithInfo attaches the structured info string and the hint registered for it.
func (e *Error) WithInfo(info string) *Error {
	e.Info = info
	if h, ok := hints[info]; ok {
		e.Hint = h
	}
	return e
}

// At records the originating location unless one is already set.
func (e *Error) At(file string, line int) *Error {
	if e.File == "" && e.Line == 0 {
		e.File, e.Line = file, line
	}
	return e
}

// Catchable reports whether a try scope may capture the error.
func (e *Error) Catchable() bool { return e.Category == Runtime }

// Report renders the error with location, hint and call-stack trace.
func (e *Error) Report() string {
	var b strings.Builder
	if e.Tag == TagInternal {
		b.WriteString("internal error, please report")
		if e.Incident != "" {
			b.WriteString(" (incident " + e.Incident + ")")
		}
		b.WriteByte('\n')
	}
	b.WriteString(e.Category.String())
	b.WriteString(" error: ")
	b.WriteString(e.Error())
	b.WriteByte('\n')
	if e.File != "" || e.Line > 0 {
		fmt.Fprintf(&b, "  at %s:%d\n", e.File, e.Line)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, "  expected: %s\n  actual:   %s\n", e.Expected, e.Actual)
	}
	if e.Hint != "" {
		b.WriteString("  hint: " + e.Hint + "\n")
	}
	if len(e.Trace) > 0 {
		b.WriteString("  trace:\n")
		for _, t := range e.Trace {
			b.WriteString("    " + t + "\n")
		}
	}
	return b.String()
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Wrap turns an arbitrary Go error into a Runtime error, keeping *Error as is.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if de, ok := As(err); ok {
		return de
	}
	return Runtimef(TagValue, "%s", err.Error())
}
