package xpath

import (
	"fmt"
	"slices"
)

// Invoke calls fn with args. The number of arguments must match the arity
// of fn. Each argument is converted to the declared parameter type before the
// call and the result is checked against the declared result type once the
// body returns.
func Invoke(ctx Context, fn FunctionItem, args []Sequence) (Sequence, error) {
	if len(args) != fn.Arity() {
		return Sequence{}, arityError(CodeType, "%s: expected %d argument(s), got %d", displayName(fn), fn.Arity(), len(args))
	}
	var (
		sig  = fn.Signature()
		name = displayName(fn)
		list = slices.Clone(args)
	)
	for i := range list {
		arg, err := coerceSequence(sig.Param(i), list[i])
		if err != nil {
			return Sequence{}, annotate(err, "%s: argument %d", name, i+1)
		}
		list[i] = arg
	}

	tracer := ctx.tracer()
	tracer.Enter(name)
	defer tracer.Leave(name)

	res, err := fn.call(ctx, list)
	if err != nil {
		err = asError(err)
		tracer.Error(name, err)
		return Sequence{}, err
	}
	if !sig.HasResult {
		return res, nil
	}
	res, err = coerceSequence(sig.Result, res)
	if err != nil {
		err = annotate(err, "%s: result", name)
		tracer.Error(name, err)
		return Sequence{}, err
	}
	return res, nil
}

// coerceSequence applies the function conversion rules: nodes are atomized
// when an atomic type is expected, xs:integer is promoted to xs:double and
// function items are wrapped when a typed function test is expected.
// function(*) accepts any function without wrapping it.
func coerceSequence(st SequenceType, seq Sequence) (Sequence, error) {
	if st.Occurs == OccurEmpty {
		if !seq.Empty() {
			return seq, typeError("empty sequence expected")
		}
		return seq, nil
	}
	if _, ok := st.Item.(anyItemType); ok {
		if !st.matchCardinality(seq) {
			return seq, typeError("cardinality mismatch: %s expected", st)
		}
		return seq, nil
	}
	var (
		list    []Item
		changed bool
	)
	for _, i := range seq.All() {
		c, err := coerceItem(st.Item, i)
		if err != nil {
			return seq, err
		}
		changed = changed || c != i
		list = append(list, c)
	}
	if !st.Occurs.allows(len(list)) {
		return seq, typeError("cardinality mismatch: %s expected, got %d item(s)", st, len(list))
	}
	if !changed {
		return seq, nil
	}
	return NewSequence(list...), nil
}

func coerceItem(it ItemType, item Item) (Item, error) {
	switch t := it.(type) {
	case functionType:
		fn, ok := item.(FunctionItem)
		if !ok {
			return nil, typeError("%s expected, got %s", t, describe(item))
		}
		return coerceFunction(fn, t)
	case *atomicType:
		if _, ok := item.(nodeItem); ok {
			return t.Cast(item)
		}
		if t.Match(item) {
			return item, nil
		}
		if xsDouble.derives(t) && xsInteger.Match(item) {
			v, _ := toFloat(item.Value())
			return createLiteral(v), nil
		}
		return nil, typeError("%s expected, got %s", t, describe(item))
	default:
		if !it.Match(item) {
			return nil, typeError("%s expected, got %s", it, describe(item))
		}
		return item, nil
	}
}

func describe(item Item) string {
	switch i := item.(type) {
	case FunctionItem:
		return displayName(i)
	case nodeItem:
		return "node()"
	default:
		if t := typeOf(item.Value()); t != nil {
			return t.String()
		}
		return "item()"
	}
}

func annotate(err error, msg string, args ...any) error {
	e, ok := asError(err).(*Error)
	if !ok {
		return err
	}
	x := *e
	x.Cause = fmt.Sprintf(msg, args...) + ": " + e.Cause
	return &x
}
