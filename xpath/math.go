package xpath

import (
	"math"
	"strings"
	"time"

	"github.com/midbel/xfn/xml"
)

type BinaryFunc func(Sequence, Sequence) (Sequence, error)

var binaryOp = map[string]BinaryFunc{
	"+":   doAdd,
	"-":   doSub,
	"*":   doMul,
	"div": doDiv,
	"mod": doMod,
	"||":  doConcat,
	"and": doAnd,
	"or":  doOr,
	"=":   doEqual,
	"!=":  doNotEqual,
	"<":   doLesser,
	"<=":  doLessEq,
	">":   doGreater,
	">=":  doGreatEq,
}

func doAdd(left, right Sequence) (Sequence, error) {
	return apply(left, right, func(x, y int64) (any, error) {
		return x + y, nil
	}, func(x, y float64) (float64, error) {
		return x + y, nil
	})
}

func doSub(left, right Sequence) (Sequence, error) {
	return apply(left, right, func(x, y int64) (any, error) {
		return x - y, nil
	}, func(x, y float64) (float64, error) {
		return x - y, nil
	})
}

func doMul(left, right Sequence) (Sequence, error) {
	return apply(left, right, func(x, y int64) (any, error) {
		return x * y, nil
	}, func(x, y float64) (float64, error) {
		return x * y, nil
	})
}

func doDiv(left, right Sequence) (Sequence, error) {
	return apply(left, right, func(x, y int64) (any, error) {
		if y == 0 {
			return nil, ErrZero
		}
		if x%y == 0 {
			return x / y, nil
		}
		return float64(x) / float64(y), nil
	}, func(x, y float64) (float64, error) {
		return x / y, nil
	})
}

func doMod(left, right Sequence) (Sequence, error) {
	return apply(left, right, func(x, y int64) (any, error) {
		if y == 0 {
			return nil, ErrZero
		}
		return x % y, nil
	}, func(x, y float64) (float64, error) {
		return math.Mod(x, y), nil
	})
}

func doConcat(left, right Sequence) (Sequence, error) {
	str1, err := joinValues(left)
	if err != nil {
		return Sequence{}, err
	}
	str2, err := joinValues(right)
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(str1 + str2), nil
}

func joinValues(seq Sequence) (string, error) {
	var str strings.Builder
	for _, i := range seq.All() {
		s, err := stringValue(i)
		if err != nil {
			return "", err
		}
		str.WriteString(s)
	}
	return str.String(), nil
}

func doAnd(left, right Sequence) (Sequence, error) {
	return logical(left, right, func(x, y bool) bool {
		return x && y
	})
}

func doOr(left, right Sequence) (Sequence, error) {
	return logical(left, right, func(x, y bool) bool {
		return x || y
	})
}

func logical(left, right Sequence, do func(x, y bool) bool) (Sequence, error) {
	x, err := EffectiveBooleanValue(left)
	if err != nil {
		return Sequence{}, err
	}
	y, err := EffectiveBooleanValue(right)
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(do(x, y)), nil
}

func doEqual(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c == 0 })
	return Singleton(res), err
}

func doNotEqual(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c != 0 })
	return Singleton(res), err
}

func doLesser(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c < 0 })
	return Singleton(res), err
}

func doLessEq(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c <= 0 })
	return Singleton(res), err
}

func doGreater(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c > 0 })
	return Singleton(res), err
}

func doGreatEq(left, right Sequence) (Sequence, error) {
	res, err := compareItems(left, right, func(c int) bool { return c >= 0 })
	return Singleton(res), err
}

// apply computes an arithmetic operation on two singletons. Integer operands
// give an integer result, any double operand makes the result a double. The
// empty sequence is returned when one of the operands is empty.
func apply(left, right Sequence, ints func(x, y int64) (any, error), floats func(x, y float64) (float64, error)) (Sequence, error) {
	if left.Empty() || right.Empty() {
		return Sequence{}, nil
	}
	x, err := numericOperand(left)
	if err != nil {
		return Sequence{}, err
	}
	y, err := numericOperand(right)
	if err != nil {
		return Sequence{}, err
	}
	if a, ok := x.(int64); ok {
		if b, ok := y.(int64); ok {
			v, err := ints(a, b)
			if err != nil {
				return Sequence{}, err
			}
			return Singleton(v), nil
		}
	}
	a, _ := toFloat(x)
	b, _ := toFloat(y)
	v, err := floats(a, b)
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(v), nil
}

func numericOperand(seq Sequence) (any, error) {
	if !seq.Singleton() {
		return nil, typeError("arithmetic operand must be a single item")
	}
	item, err := atomizeItem(seq.First())
	if err != nil {
		return nil, err
	}
	v, err := toNumber(item.Value())
	if err != nil {
		return nil, typeError("%s is not a numeric value", describe(item))
	}
	return v, nil
}

// compareItems applies a general comparison: true if any pair of atomized
// items satisfies the test.
func compareItems(left, right Sequence, test func(int) bool) (bool, error) {
	left, err := left.Atomize()
	if err != nil {
		return false, err
	}
	right, err = right.Atomize()
	if err != nil {
		return false, err
	}
	for _, x := range left.All() {
		for _, y := range right.All() {
			c, err := compareAtomic(x, y)
			if err != nil {
				return false, err
			}
			if test(c) {
				return true, nil
			}
		}
	}
	return false, nil
}

// compareAtomic orders two atomic items. Numbers are compared after numeric
// promotion, other values must be of the same type.
func compareAtomic(left, right Item) (int, error) {
	switch x := left.Value().(type) {
	case int64:
		switch y := right.Value().(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case float64:
			return cmpOrdered(float64(x), y), nil
		}
	case float64:
		switch y := right.Value().(type) {
		case int64:
			return cmpOrdered(x, float64(y)), nil
		case float64:
			return cmpOrdered(x, y), nil
		}
	case string:
		if y, ok := right.Value().(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := right.Value().(bool); ok {
			return cmpOrdered(boolRank(x), boolRank(y)), nil
		}
	case time.Time:
		if y, ok := right.Value().(time.Time); ok {
			return x.Compare(y), nil
		}
	case xml.QName:
		if y, ok := right.Value().(xml.QName); ok {
			if x.Equal(y) {
				return 0, nil
			}
			return strings.Compare(x.ExpandedName(), y.ExpandedName()), nil
		}
	}
	return 0, typeError("%s and %s can not be compared", describe(left), describe(right))
}

func cmpOrdered[T int64 | float64 | int](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
