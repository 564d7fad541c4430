package suite

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/midbel/xfn/xml"
	"github.com/midbel/xfn/xpath"
)

// Eval calls the referenced function with the arguments of c.
func (c Call) Eval(ctx xpath.Context) (xpath.Sequence, error) {
	call, err := c.Expr()
	if err != nil {
		return xpath.Sequence{}, err
	}
	return xpath.EvalWithContext(call, ctx)
}

// Expr turns c into a dynamic call of the function reference.
func (c Call) Expr() (xpath.Expr, error) {
	name, arity, err := splitReference(c.Ref)
	if err != nil {
		return nil, err
	}
	args := make([]xpath.Expr, len(c.Args))
	for i, a := range c.Args {
		if args[i], err = a.Expr(); err != nil {
			return nil, err
		}
	}
	return xpath.DynCall(xpath.Ref(name, arity), args...), nil
}

// Expr gives the expression producing the sequence described by a. A nil
// argument is the empty sequence.
func (a *Arg) Expr() (xpath.Expr, error) {
	if a == nil || a.null || a.Empty {
		return xpath.Seq(), nil
	}
	switch {
	case a.Context:
		return xpath.ContextItem(), nil
	case a.Seq != nil:
		return valueOf(a.Seq)
	case len(a.Range) > 0:
		if len(a.Range) != 2 {
			return nil, fmt.Errorf("%w: range expects first and last values", ErrCase)
		}
		return xpath.To(xpath.Integer(a.Range[0]), xpath.Integer(a.Range[1])), nil
	case a.Ref != "":
		name, arity, err := splitReference(a.Ref)
		if err != nil {
			return nil, err
		}
		return xpath.Ref(name, arity), nil
	case a.Partial != "":
		return a.partial()
	case a.Inline != nil:
		sig, err := a.Inline.signature()
		if err != nil {
			return nil, err
		}
		fn := xpath.Inline(sig, a.Inline.body())
		return xpath.Value(xpath.NewSequence(fn)), nil
	case a.Apply != nil:
		return a.Apply.Expr()
	case a.Count != nil || a.String != nil:
		return nil, fmt.Errorf("%w: count and string can only be used in expectation", ErrCase)
	default:
		return valueOf(a.Value)
	}
}

// partial is a static call where the missing arguments are placeholders.
func (a *Arg) partial() (xpath.Expr, error) {
	name, arity, err := splitReference(a.Partial)
	if err != nil {
		return nil, err
	}
	if arity != len(a.With) {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), %d given", ErrCase, a.Partial, arity, len(a.With))
	}
	args := make([]xpath.Expr, len(a.With))
	for i, w := range a.With {
		if w == nil || w.null {
			args[i] = xpath.Placeholder()
			continue
		}
		if args[i], err = w.Expr(); err != nil {
			return nil, err
		}
	}
	return xpath.Call(name, args...), nil
}

func splitReference(ref string) (string, int, error) {
	_, arity, err := xpath.ParseReference(ref)
	if err != nil {
		return "", 0, err
	}
	return ref[:strings.LastIndex(ref, "#")], arity, nil
}

func valueOf(value any) (xpath.Expr, error) {
	seq, err := toSequence(value)
	if err != nil {
		return nil, err
	}
	return xpath.Value(seq), nil
}

func (i Inline) signature() (xpath.Signature, error) {
	sig := xpath.Untyped(len(i.Params))
	if len(i.Types) > len(i.Params) {
		return sig, fmt.Errorf("%w: more types than parameters", ErrCase)
	}
	for j, t := range i.Types {
		st, err := xpath.ParseType(t)
		if err != nil {
			return sig, err
		}
		sig.Params[j] = st
	}
	if i.Result != "" {
		st, err := xpath.ParseType(i.Result)
		if err != nil {
			return sig, err
		}
		sig.Result = st
		sig.HasResult = true
	}
	return sig, nil
}

// body compiles the program of the inline function each time it is called:
// the functions given to the program need the context of the call. Errors
// raised by the library while the program runs are reported as is.
func (i Inline) body() xpath.Body {
	return func(ctx xpath.Context, args []xpath.Sequence) (xpath.Sequence, error) {
		env := make(map[string]any)
		for j, p := range i.Params {
			env[p] = fromSequence(args[j])
		}
		var failure error
		prg, err := expr.Compile(i.Body, exprOptions(ctx, &failure)...)
		if err != nil {
			return xpath.Sequence{}, fmt.Errorf("%w: %s", ErrCase, err)
		}
		res, err := expr.Run(prg, env)
		if failure != nil {
			return xpath.Sequence{}, failure
		}
		if err != nil {
			return xpath.Sequence{}, err
		}
		return toSequence(res)
	}
}

func exprOptions(ctx xpath.Context, failure *error) []expr.Option {
	invoke := func(fn xpath.FunctionItem, params []any) (any, error) {
		args := make([]xpath.Sequence, len(params))
		for i, p := range params {
			seq, err := toSequence(p)
			if err != nil {
				return nil, err
			}
			args[i] = seq
		}
		res, err := xpath.Invoke(ctx, fn, args)
		if err != nil {
			if *failure == nil {
				*failure = err
			}
			return nil, err
		}
		return fromSequence(res), nil
	}
	return []expr.Option{
		expr.Function("call", func(params ...any) (any, error) {
			ref, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("call: function reference expected")
			}
			fn, err := ctx.Lookup(ref)
			if err != nil {
				*failure = err
				return nil, err
			}
			return invoke(fn, params[1:])
		}),
		expr.Function("apply", func(params ...any) (any, error) {
			fn, ok := params[0].(xpath.FunctionItem)
			if !ok {
				return nil, fmt.Errorf("apply: function item expected")
			}
			return invoke(fn, params[1:])
		}),
	}
}

// fromSequence gives the value seen by an expr program for seq: nil when
// empty, the value of the item for a singleton and a list otherwise.
func fromSequence(seq xpath.Sequence) any {
	if seq.Empty() {
		return nil
	}
	if seq.Singleton() {
		return fromItem(seq.First())
	}
	var list []any
	for _, i := range seq.All() {
		list = append(list, fromItem(i))
	}
	return list
}

func fromItem(item xpath.Item) any {
	switch {
	case item.Atomic():
		return item.Value()
	case item.Node() != nil:
		return xpath.NewSequence(item).String()
	default:
		return item
	}
}

func toSequence(value any) (xpath.Sequence, error) {
	switch v := value.(type) {
	case nil:
		return xpath.Sequence{}, nil
	case xpath.Sequence:
		return v, nil
	case xpath.Item:
		return xpath.NewSequence(v), nil
	case []any:
		var list []xpath.Sequence
		for _, x := range v {
			seq, err := toSequence(x)
			if err != nil {
				return xpath.Sequence{}, err
			}
			list = append(list, seq)
		}
		return xpath.Concat(list...), nil
	default:
		x, err := toValue(v)
		if err != nil {
			return xpath.Sequence{}, err
		}
		return xpath.Singleton(x), nil
	}
}

// toValue converts the values decoded from YAML or produced by expr to the
// types used for atomic values.
func toValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int64, float64, xml.QName, time.Time:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return toValue(uint64(v))
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("%w: %T can not be used as value", ErrCase, value)
	}
}
