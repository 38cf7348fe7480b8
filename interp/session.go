// interp/session.go
package interp

import (
	"context"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/source"
)

// Session runs input line by line against one persistent top-level frame.
// Lines that open scopes are buffered until the construct is complete.
type Session struct {
	vm      *Interpreter
	mod     *Module
	frame   *Frame
	pending []source.Piece
	depth   int
	line    int
}

// NewSession registers an interactive module named name as the entry module.
func (vm *Interpreter) NewSession(name string) *Session {
	mod := newModule(name, "")
	vm.modules[name] = mod
	vm.entry = name
	return &Session{vm: vm, mod: mod, frame: newFrame(name, mod, nil, mod.Scope)}
}

// Pending reports whether a multi-line construct is still open.
func (s *Session) Pending() bool { return s.depth > 0 }

// Frame exposes the persistent frame.
func (s *Session) Frame() *Frame { return s.frame }

// Feed executes one input line. A single line the grammar rejects is
// evaluated as an expression and its value returned for echoing.
func (s *Session) Feed(ctx context.Context, input string) (echo string, err error) {
	vm := s.vm
	defer func() {
		if r := recover(); r != nil {
			err = vm.internalFault(r)
		}
		if err != nil {
			s.reset()
		}
	}()
	s.line++
	pieces := source.Split(source.StripComment(input))
	for _, p := range pieces {
		s.pending = append(s.pending, source.Piece{Line: s.line, Text: p})
	}
	s.depth += source.Depth(input)
	if s.depth > 0 {
		return "", nil
	}
	batch := s.pending
	s.pending, s.depth = nil, 0
	if len(batch) == 0 {
		return "", nil
	}

	code, cerr := vm.compile(s.mod.Name, batch)
	if cerr != nil {
		if len(batch) != 1 || len(s.frame.Scopes) != 1 {
			return "", cerr
		}
		vm.ctx = ctx
		var out string
		err = vm.withFrame(s.frame, func() error {
			v, err := vm.evalIn(s.frame, batch[0].Text)
			if err != nil {
				return diag.Wrap(err).At(s.mod.Name, s.line)
			}
			out = vm.Format(v)
			return nil
		})
		return out, err
	}

	vm.ctx = ctx
	vm.exited = false
	s.frame.Code = append(s.frame.Code, code...)
	return "", vm.withFrame(s.frame, func() error { return vm.execFrame(s.frame) })
}

// Discard drops the buffered lines of an unfinished construct.
func (s *Session) Discard() { s.pending, s.depth = nil, 0 }

// reset drops buffered input and unwinds to the top-level scope.
func (s *Session) reset() {
	s.pending, s.depth = nil, 0
	s.frame.Scopes = s.frame.Scopes[:1]
	s.frame.Scopes[0].Ignore = false
	s.frame.Cursor = len(s.frame.Code)
	s.frame.stop = false
}

// Exited reports whether the session ran an exit statement.
func (s *Session) Exited() bool { return s.vm.exited }
