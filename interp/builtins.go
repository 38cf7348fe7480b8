// interp/builtins.go
package interp

import (
	"math"
	"sort"

	"simonwaldherr.de/go/kestrel/diag"
	"simonwaldherr.de/go/kestrel/value"
)

// superglobals builds the read-only constant table visible from every file.
func superglobals() map[string]*value.Value {
	unset := value.NewUnset()
	unset.Unsetable = true
	sg := map[string]*value.Value{
		"true":  value.NewBool(true),
		"false": value.NewBool(false),
		"none":  value.NewNone(),
		"unset": unset,
		"NaN":   value.NewNumber(math.NaN()),
	}
	for _, k := range value.Kinds {
		sg[k.String()] = value.NewType(k)
	}
	for _, v := range sg {
		v.Readonly = true
	}
	return sg
}

// directive is a typed global configuration slot.
type directive struct {
	kind  value.Kind
	val   *value.Value
	apply func(v *value.Value) error
}

func (vm *Interpreter) directiveSlots() map[string]*directive {
	return map[string]*directive{
		"precision": {kind: value.KindNumber, val: value.NewNumber(-1), apply: func(v *value.Value) error {
			n, ok := v.Integer()
			if !ok || n < -1 || n > 32 {
				return diag.Runtimef(diag.TagValue, "precision must be an integer between -1 and 32, got %s", v.Display())
			}
			vm.precision = int(n)
			return nil
		}},
		"maxframes": {kind: value.KindNumber, val: value.NewNumber(float64(vm.maxFrames)), apply: func(v *value.Value) error {
			n, ok := v.Integer()
			if !ok || n < 1 {
				return diag.Runtimef(diag.TagValue, "maxframes must be a positive integer, got %s", v.Display())
			}
			vm.maxFrames = int(n)
			return nil
		}},
		"strict": {kind: value.KindBool, val: value.NewBool(false), apply: func(v *value.Value) error {
			vm.strict = v.Bool()
			return nil
		}},
	}
}

// Directive returns the current value of a directive slot.
func (vm *Interpreter) Directive(name string) (*value.Value, bool) {
	d, ok := vm.directives[name]
	if !ok {
		return nil, false
	}
	return d.val, true
}

// Directives lists the registered slot names.
func (vm *Interpreter) Directives() []string {
	names := make([]string, 0, len(vm.directives))
	for n := range vm.directives {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetDirective assigns a slot from text, as read from a config file.
func (vm *Interpreter) SetDirective(name, text string) error {
	d, ok := vm.directives[name]
	if !ok {
		return diag.Runtimef(diag.TagDirective, "unknown directive '%s'", name)
	}
	v, err := value.FromText(d.kind, text)
	if err != nil {
		return err
	}
	return vm.setDirective(name, v)
}

func (vm *Interpreter) setDirective(name string, v *value.Value) error {
	d, ok := vm.directives[name]
	if !ok {
		return diag.Runtimef(diag.TagDirective, "unknown directive '%s'", name)
	}
	k := v.Kind()
	if k == value.KindInt {
		k = value.KindNumber
	}
	if k != d.kind {
		return diag.Runtimef(diag.TagType, "directive '%s' expects %s, got %s", name, d.kind, v.Kind())
	}
	if err := d.apply(v); err != nil {
		return err
	}
	d.val = v.Copy()
	vm.log.Info("directive set", "name", name, "value", v.Display())
	return nil
}
