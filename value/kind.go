// value/kind.go
package value

import "fmt"

// Kind is the closed set of runtime value categories.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindUnset
	KindAny
	KindInt
	KindArray
	KindModule
	KindType
	KindIndexer
	KindError
	KindGroupType
	KindFunction
	KindNone
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindString, KindNumber, KindBool, KindUnset, KindAny, KindInt, KindArray,
	KindModule, KindType, KindIndexer, KindError, KindGroupType, KindFunction, KindNone,
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindUnset:
		return "Unset"
	case KindAny:
		return "Any"
	case KindInt:
		return "Int"
	case KindArray:
		return "Array"
	case KindModule:
		return "Module"
	case KindType:
		return "Type"
	case KindIndexer:
		return "Indexer"
	case KindError:
		return "Error"
	case KindGroupType:
		return "GroupType"
	case KindFunction:
		return "Function"
	case KindNone:
		return "None"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code is the one-character tag used in operator signatures.
func (k Kind) Code() byte {
	switch k {
	case KindString:
		return 's'
	case KindNumber:
		return 'n'
	case KindBool:
		return 'b'
	case KindUnset:
		return 'u'
	case KindAny:
		return 'a'
	case KindInt:
		return 'i'
	case KindArray:
		return 'r'
	case KindModule:
		return 'm'
	case KindType:
		return 't'
	case KindIndexer:
		return 'x'
	case KindError:
		return 'e'
	case KindGroupType:
		return 'g'
	case KindFunction:
		return 'f'
	case KindNone:
		return 'o'
	}
	return '?'
}

// AbsentCode marks a missing operand in an operator signature.
const AbsentCode byte = '_'

// KindByName resolves a kind from its display name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// KindByCode resolves a kind from its signature code.
func KindByCode(c byte) (Kind, bool) {
	for _, k := range Kinds {
		if k.Code() == c {
			return k, true
		}
	}
	return 0, false
}
