package xpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/midbel/xfn/xml"
)

const (
	fnNS     = "http://www.w3.org/2005/xpath-functions"
	schemaNS = "http://www.w3.org/2001/XMLSchema"
	hofNS    = "http://basex.org/modules/hof"
)

// atomicType is a node of the atomic type derivation tree. float64 values
// stand for both xs:double and xs:decimal; int64 values are xs:integer.
type atomicType struct {
	name   xml.QName
	parent *atomicType
	accept func(any) bool
	cast   func(any) (any, error)
}

var (
	xsAtomic = &atomicType{
		name:   schemaName("anyAtomicType"),
		accept: isAtomicValue,
		cast:   castAtomic,
	}
	xsString = &atomicType{
		name:   schemaName("string"),
		parent: xsAtomic,
		accept: acceptOf[string],
		cast:   castWith(toString),
	}
	xsBool = &atomicType{
		name:   schemaName("boolean"),
		parent: xsAtomic,
		accept: acceptOf[bool],
		cast:   castWith(toBool),
	}
	xsNumeric = &atomicType{
		name:   schemaName("numeric"),
		parent: xsAtomic,
		accept: isNumeric,
		cast:   castWith(toNumber),
	}
	xsDecimal = &atomicType{
		name:   schemaName("decimal"),
		parent: xsNumeric,
		accept: isNumeric,
		cast:   castWith(toFloat),
	}
	xsInteger = &atomicType{
		name:   schemaName("integer"),
		parent: xsDecimal,
		accept: acceptOf[int64],
		cast:   castWith(toInt),
	}
	xsDouble = &atomicType{
		name:   schemaName("double"),
		parent: xsNumeric,
		accept: acceptOf[float64],
		cast:   castWith(toFloat),
	}
	xsQName = &atomicType{
		name:   schemaName("QName"),
		parent: xsAtomic,
		accept: acceptOf[xml.QName],
		cast:   castWith(toQName),
	}
	xsDateTime = &atomicType{
		name:   schemaName("dateTime"),
		parent: xsAtomic,
		accept: acceptOf[time.Time],
		cast:   castWith(toTime),
	}
)

var supportedTypes = indexTypes(
	xsAtomic,
	xsString,
	xsBool,
	xsNumeric,
	xsDecimal,
	xsInteger,
	xsDouble,
	xsQName,
	xsDateTime,
)

func indexTypes(all ...*atomicType) map[string]*atomicType {
	set := make(map[string]*atomicType)
	for _, t := range all {
		set[t.name.LocalName()] = t
	}
	return set
}

func schemaName(local string) xml.QName {
	return xml.ExpandedName(local, "xs", schemaNS)
}

func (t *atomicType) Match(item Item) bool {
	return item != nil && item.Atomic() && t.accept(item.Value())
}

func (t *atomicType) Subsumes(other ItemType) bool {
	x, ok := other.(*atomicType)
	if !ok {
		return false
	}
	return x.derives(t)
}

func (t *atomicType) String() string {
	return t.name.QualifiedName()
}

func (t *atomicType) derives(from *atomicType) bool {
	for curr := t; curr != nil; curr = curr.parent {
		if curr == from {
			return true
		}
	}
	return false
}

// Cast converts item to a value of type t. Nodes are atomized first.
func (t *atomicType) Cast(item Item) (Item, error) {
	item, err := atomizeItem(item)
	if err != nil {
		return nil, err
	}
	v, err := t.cast(item.Value())
	if err != nil {
		return nil, createError(ErrCast, CodeCast, "%v can not be cast to %s", item.Value(), t)
	}
	return createLiteral(v), nil
}

// typeOf returns the most specific atomic type of a Go value.
func typeOf(value any) *atomicType {
	switch value.(type) {
	case string:
		return xsString
	case bool:
		return xsBool
	case int64:
		return xsInteger
	case float64:
		return xsDouble
	case xml.QName:
		return xsQName
	case time.Time:
		return xsDateTime
	default:
		return nil
	}
}

func acceptOf[T any](value any) bool {
	_, ok := value.(T)
	return ok
}

func isAtomicValue(value any) bool {
	switch value.(type) {
	case string, bool, int64, float64, xml.QName, time.Time:
		return true
	default:
		return false
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

func castWith[T any](do func(any) (T, error)) func(any) (any, error) {
	return func(value any) (any, error) {
		return do(value)
	}
}

func castAtomic(value any) (any, error) {
	if !isAtomicValue(value) {
		return nil, ErrCast
	}
	return value, nil
}

func toString(value any) (string, error) {
	var str string
	switch v := value.(type) {
	case int64:
		str = strconv.FormatInt(v, 10)
	case float64:
		str = formatDouble(v)
	case bool:
		str = strconv.FormatBool(v)
	case string:
		str = v
	case xml.QName:
		str = v.QualifiedName()
	case time.Time:
		str = v.Format(time.RFC3339)
	default:
		return "", ErrCast
	}
	return str, nil
}

func toNumber(value any) (any, error) {
	switch v := value.(type) {
	case int64, float64:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		return toFloat(v)
	default:
		return toFloat(value)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		switch v = strings.TrimSpace(v); v {
		case "NaN":
			return math.NaN(), nil
		case "INF":
			return math.Inf(1), nil
		case "-INF":
			return math.Inf(-1), nil
		}
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, ErrCast
		}
		return d, nil
	default:
		return 0, ErrCast
	}
}

func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrCast
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		d, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, ErrCast
		}
		return d, nil
	default:
		return 0, ErrCast
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case int64:
		return v != 0, nil
	case float64:
		return v != 0 && !math.IsNaN(v), nil
	case bool:
		return v, nil
	case string:
		switch strings.TrimSpace(v) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return false, ErrCast
		}
	default:
		return false, ErrCast
	}
}

func toQName(value any) (xml.QName, error) {
	switch v := value.(type) {
	case xml.QName:
		return v, nil
	case string:
		qn, err := xml.ParseName(strings.TrimSpace(v))
		if err != nil {
			return qn, ErrCast
		}
		return qn, nil
	default:
		return xml.QName{}, ErrCast
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return t, ErrCast
		}
		return t, nil
	default:
		return time.Time{}, ErrCast
	}
}

func formatDouble(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func formatValue(value any) string {
	str, err := toString(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return str
}
