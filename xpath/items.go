package xpath

import (
	"math"
	"time"

	"github.com/midbel/xfn/xml"
)

// Item is the unit of a Sequence: an atomic value, a node or a function.
type Item interface {
	Node() xml.Node
	Value() any
	True() bool
	Atomic() bool
}

type literalItem struct {
	value any
}

func NewLiteralItem(value any) Item {
	return createLiteral(value)
}

func createLiteral(value any) Item {
	if i, ok := value.(literalItem); ok {
		return i
	}
	var v any
	switch e := value.(type) {
	default:
		v = value
	case int:
		v = int64(e)
	case int32:
		v = int64(e)
	case uint64:
		v = int64(e)
	case float32:
		v = float64(e)
	case literal:
		v = e.value
	}
	return literalItem{
		value: v,
	}
}

func (i literalItem) Atomic() bool {
	return true
}

func (i literalItem) True() bool {
	switch v := i.value.(type) {
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int64:
		return v != 0
	case string:
		return v != ""
	case bool:
		return v
	case time.Time:
		return !v.IsZero()
	default:
		return false
	}
}

func (i literalItem) Node() xml.Node {
	str, _ := toString(i.value)
	return xml.NewText(str)
}

func (i literalItem) Value() any {
	return i.value
}

type nodeItem struct {
	node xml.Node
}

func NewNodeItem(node xml.Node) Item {
	return createNode(node)
}

func createNode(node xml.Node) Item {
	return nodeItem{
		node: node,
	}
}

func (i nodeItem) Atomic() bool {
	return false
}

func (i nodeItem) Node() xml.Node {
	return i.node
}

func (i nodeItem) True() bool {
	return true
}

func (i nodeItem) Value() any {
	return i.node.Value()
}

// SameIdentity reports whether two items are identical: the same node, the
// same function value or atomically equal values.
func SameIdentity(left, right Item) bool {
	switch x := left.(type) {
	case nodeItem:
		y, ok := right.(nodeItem)
		return ok && xml.Same(x.node, y.node)
	case FunctionItem:
		y, ok := right.(FunctionItem)
		return ok && x == y
	default:
		return AtomicEquals(left, right)
	}
}

// AtomicEquals compares two atomic items. xs:integer and xs:double values are
// compared after numeric promotion; values of unrelated types are never equal.
func AtomicEquals(left, right Item) bool {
	if left == nil || right == nil || !left.Atomic() || !right.Atomic() {
		return false
	}
	switch x := left.Value().(type) {
	case int64:
		switch y := right.Value().(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
	case float64:
		switch y := right.Value().(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
	case string:
		y, ok := right.Value().(string)
		return ok && x == y
	case bool:
		y, ok := right.Value().(bool)
		return ok && x == y
	case xml.QName:
		y, ok := right.Value().(xml.QName)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := right.Value().(time.Time)
		return ok && x.Equal(y)
	}
	return false
}

func atomizeItem(item Item) (Item, error) {
	switch i := item.(type) {
	case FunctionItem:
		return nil, createError(ErrType, CodeAtomize, "%s can not be atomized", displayName(i))
	case nodeItem:
		return createLiteral(i.node.Value()), nil
	default:
		return item, nil
	}
}

func stringValue(item Item) (string, error) {
	switch i := item.(type) {
	case FunctionItem:
		return "", createError(ErrType, CodeString, "%s has no string value", displayName(i))
	case nodeItem:
		return i.node.Value(), nil
	default:
		return toString(item.Value())
	}
}
