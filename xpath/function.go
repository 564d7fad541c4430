package xpath

import (
	"fmt"
	"slices"
	"strings"

	"github.com/midbel/xfn/xml"
)

// Body is the implementation of a function. Arguments have already been
// checked against the signature when a body is called.
type Body func(Context, []Sequence) (Sequence, error)

// Signature describes the parameters and the result of a function. Params
// has one entry per parameter; a missing result type means item()*.
type Signature struct {
	Params    []SequenceType
	Result    SequenceType
	HasResult bool
}

// Untyped returns the signature of a function with n parameters of type
// item()* and no declared result.
func Untyped(n int) Signature {
	var sig Signature
	for range n {
		sig.Params = append(sig.Params, AnySequence)
	}
	return sig
}

// Typed builds a signature from the textual form of the result and parameter
// types. It panics when a type is malformed.
func Typed(result string, params ...string) Signature {
	sig := Signature{
		Result:    MustParseType(result),
		HasResult: true,
	}
	for _, p := range params {
		sig.Params = append(sig.Params, MustParseType(p))
	}
	return sig
}

func (s Signature) Param(i int) SequenceType {
	if i < 0 || i >= len(s.Params) || s.Params[i].Item == nil && s.Params[i].Occurs != OccurEmpty {
		return AnySequence
	}
	return s.Params[i]
}

func (s Signature) Returns() SequenceType {
	if !s.HasResult {
		return AnySequence
	}
	return s.Result
}

func (s Signature) String() string {
	var str strings.Builder
	str.WriteString("(")
	for i := range s.Params {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(s.Param(i).String())
	}
	str.WriteString(") as ")
	str.WriteString(s.Returns().String())
	return str.String()
}

// FunctionItem is a function value. Its arity never changes once it has been
// created.
type FunctionItem interface {
	Item
	Arity() int
	Name() (xml.QName, bool)
	Signature() Signature

	call(Context, []Sequence) (Sequence, error)
}

func displayName(fn FunctionItem) string {
	if n, ok := fn.Name(); ok {
		return fmt.Sprintf("%s#%d", n.QualifiedName(), fn.Arity())
	}
	return fmt.Sprintf("function#%d", fn.Arity())
}

type functionValue struct{}

func (functionValue) Node() xml.Node {
	return nil
}

func (functionValue) True() bool {
	return false
}

func (functionValue) Atomic() bool {
	return false
}

type namedFunction struct {
	functionValue
	name xml.QName
	sig  Signature
	body Body
}

// NewFunction creates a named function. Its arity is the number of
// parameters of the signature.
func NewFunction(name xml.QName, sig Signature, body Body) FunctionItem {
	return &namedFunction{
		name: name,
		sig:  sig,
		body: body,
	}
}

func (f *namedFunction) Value() any {
	return f
}

func (f *namedFunction) Arity() int {
	return len(f.sig.Params)
}

func (f *namedFunction) Name() (xml.QName, bool) {
	return f.name, true
}

func (f *namedFunction) Signature() Signature {
	return f.sig
}

func (f *namedFunction) call(ctx Context, args []Sequence) (Sequence, error) {
	return f.body(ctx, args)
}

type inlineFunction struct {
	functionValue
	sig  Signature
	body Body
}

// Inline creates an anonymous function.
func Inline(sig Signature, body Body) FunctionItem {
	return &inlineFunction{
		sig:  sig,
		body: body,
	}
}

func (f *inlineFunction) Value() any {
	return f
}

func (f *inlineFunction) Arity() int {
	return len(f.sig.Params)
}

func (f *inlineFunction) Name() (xml.QName, bool) {
	return xml.QName{}, false
}

func (f *inlineFunction) Signature() Signature {
	return f.sig
}

func (f *inlineFunction) call(ctx Context, args []Sequence) (Sequence, error) {
	return f.body(ctx, args)
}

// Slot is an argument of a partial application: either a bound value or a
// hole to be filled when the resulting function is called.
type Slot struct {
	value Sequence
	bound bool
}

func Hole() Slot {
	return Slot{}
}

func Bind(seq Sequence) Slot {
	return Slot{
		value: seq,
		bound: true,
	}
}

func (s Slot) IsHole() bool {
	return !s.bound
}

type partialFunction struct {
	functionValue
	base  FunctionItem
	slots []Slot
	holes []int
}

// PartiallyApply binds some arguments of fn. The returned function has no
// name and its arity is the number of holes. Bound arguments are converted
// to the parameter types of fn right away. Calling the result fills the holes
// in order and invokes fn.
func PartiallyApply(fn FunctionItem, slots ...Slot) (FunctionItem, error) {
	if len(slots) != fn.Arity() {
		return nil, arityError(CodeType, "%s: expected %d argument(s), got %d", displayName(fn), fn.Arity(), len(slots))
	}
	var (
		sig = fn.Signature()
		p   = partialFunction{
			base:  fn,
			slots: slices.Clone(slots),
		}
	)
	for i := range p.slots {
		if p.slots[i].IsHole() {
			p.holes = append(p.holes, i)
			continue
		}
		arg, err := coerceSequence(sig.Param(i), p.slots[i].value)
		if err != nil {
			return nil, annotate(err, "%s: argument %d", displayName(fn), i+1)
		}
		p.slots[i].value = arg
	}
	return &p, nil
}

func (f *partialFunction) Value() any {
	return f
}

func (f *partialFunction) Arity() int {
	return len(f.holes)
}

func (f *partialFunction) Name() (xml.QName, bool) {
	return xml.QName{}, false
}

func (f *partialFunction) Signature() Signature {
	var (
		base = f.base.Signature()
		sig  Signature
	)
	for _, h := range f.holes {
		sig.Params = append(sig.Params, base.Param(h))
	}
	sig.Result = base.Result
	sig.HasResult = base.HasResult
	return sig
}

func (f *partialFunction) call(ctx Context, args []Sequence) (Sequence, error) {
	all := make([]Sequence, len(f.slots))
	for i := range f.slots {
		all[i] = f.slots[i].value
	}
	for i, h := range f.holes {
		all[h] = args[i]
	}
	return Invoke(ctx, f.base, all)
}

// coercedFunction wraps a function passed where a typed function test is
// expected. Arguments and result are checked against the expected type.
type coercedFunction struct {
	functionValue
	base FunctionItem
	want functionType
}

func coerceFunction(fn FunctionItem, want functionType) (FunctionItem, error) {
	if fn.Arity() != len(want.params) {
		return nil, typeError("%s can not be coerced to %s: arity mismatch", displayName(fn), want)
	}
	if c, ok := fn.(*coercedFunction); ok && c.want.Subsumes(want) && want.Subsumes(c.want) {
		return c, nil
	}
	c := coercedFunction{
		base: fn,
		want: want,
	}
	return &c, nil
}

func (f *coercedFunction) Value() any {
	return f
}

func (f *coercedFunction) Arity() int {
	return f.base.Arity()
}

func (f *coercedFunction) Name() (xml.QName, bool) {
	return xml.QName{}, false
}

func (f *coercedFunction) Signature() Signature {
	return Signature{
		Params:    f.want.params,
		Result:    f.want.result,
		HasResult: true,
	}
}

func (f *coercedFunction) call(ctx Context, args []Sequence) (Sequence, error) {
	return Invoke(ctx, f.base, args)
}
