package xpath

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/midbel/xfn/xml"
)

type builtin struct {
	name xml.QName
	sig  Signature
	body Body
}

var builtinRegistry = NewRegistry()

// DefaultRegistry returns a copy of the built-in function library.
func DefaultRegistry() *Registry {
	return builtinRegistry.clone()
}

func init() {
	for _, b := range builtins() {
		builtinRegistry.Define(NewFunction(b.name, b.sig, b.body))
	}
}

func fnName(local string) xml.QName {
	return xml.ExpandedName(local, "fn", fnNS)
}

func hofName(local string) xml.QName {
	return xml.ExpandedName(local, "hof", hofNS)
}

func builtins() []builtin {
	list := []builtin{
		{
			name: fnName("filter"),
			sig:  Typed("item()*", "function(item()) as xs:boolean", "item()*"),
			body: callFilter,
		},
		{
			name: fnName("for-each"),
			sig:  Typed("item()*", "function(item()) as item()*", "item()*"),
			body: callForEach,
		},
		{
			name: fnName("map"),
			sig:  Typed("item()*", "function(item()) as item()*", "item()*"),
			body: callForEach,
		},
		{
			name: fnName("for-each-pair"),
			sig:  Typed("item()*", "function(item(), item()) as item()*", "item()*", "item()*"),
			body: callForEachPair,
		},
		{
			name: fnName("map-pairs"),
			sig:  Typed("item()*", "function(item(), item()) as item()*", "item()*", "item()*"),
			body: callForEachPair,
		},
		{
			name: fnName("fold-left"),
			sig:  Typed("item()*", "function(item()*, item()) as item()*", "item()*", "item()*"),
			body: callFoldLeft,
		},
		{
			name: fnName("fold-right"),
			sig:  Typed("item()*", "function(item(), item()*) as item()*", "item()*", "item()*"),
			body: callFoldRight,
		},
		{
			name: fnName("head"),
			sig:  Typed("item()?", "item()*"),
			body: callHead,
		},
		{
			name: fnName("tail"),
			sig:  Typed("item()*", "item()*"),
			body: callTail,
		},
		{
			name: fnName("function-name"),
			sig:  Typed("xs:QName?", "function(*)"),
			body: callFunctionName,
		},
		{
			name: fnName("function-arity"),
			sig:  Typed("xs:integer", "function(*)"),
			body: callFunctionArity,
		},
		{
			name: fnName("function-lookup"),
			sig:  Typed("function(*)?", "xs:QName", "xs:integer"),
			body: callFunctionLookup,
		},
		{
			name: fnName("partial-apply"),
			sig:  Typed("function(*)", "function(*)", "item()*"),
			body: callPartialApply,
		},
		{
			name: fnName("partial-apply"),
			sig:  Typed("function(*)", "function(*)", "item()*", "xs:integer"),
			body: callPartialApply,
		},
		{
			name: fnName("count"),
			sig:  Typed("xs:integer", "item()*"),
			body: callCount,
		},
		{
			name: fnName("empty"),
			sig:  Typed("xs:boolean", "item()*"),
			body: callEmpty,
		},
		{
			name: fnName("exists"),
			sig:  Typed("xs:boolean", "item()*"),
			body: callExists,
		},
		{
			name: fnName("reverse"),
			sig:  Typed("item()*", "item()*"),
			body: callReverse,
		},
		{
			name: fnName("subsequence"),
			sig:  Typed("item()*", "item()*", "xs:double"),
			body: callSubsequence,
		},
		{
			name: fnName("subsequence"),
			sig:  Typed("item()*", "item()*", "xs:double", "xs:double"),
			body: callSubsequence,
		},
		{
			name: fnName("data"),
			sig:  Typed("xs:anyAtomicType*", "item()*"),
			body: callData,
		},
		{
			name: fnName("string"),
			sig:  Typed("xs:string", "item()?"),
			body: callString,
		},
		{
			name: fnName("boolean"),
			sig:  Typed("xs:boolean", "item()*"),
			body: callBoolean,
		},
		{
			name: fnName("not"),
			sig:  Typed("xs:boolean", "item()*"),
			body: callNot,
		},
		{
			name: fnName("string-join"),
			sig:  Typed("xs:string", "xs:anyAtomicType*"),
			body: callStringJoin,
		},
		{
			name: fnName("string-join"),
			sig:  Typed("xs:string", "xs:anyAtomicType*", "xs:string"),
			body: callStringJoin,
		},
		{
			name: fnName("starts-with"),
			sig:  Typed("xs:boolean", "xs:string?", "xs:string?"),
			body: compareStrings(strings.HasPrefix),
		},
		{
			name: fnName("ends-with"),
			sig:  Typed("xs:boolean", "xs:string?", "xs:string?"),
			body: compareStrings(strings.HasSuffix),
		},
		{
			name: fnName("contains"),
			sig:  Typed("xs:boolean", "xs:string?", "xs:string?"),
			body: compareStrings(strings.Contains),
		},
		{
			name: fnName("upper-case"),
			sig:  Typed("xs:string", "xs:string?"),
			body: mapString(strings.ToUpper),
		},
		{
			name: fnName("lower-case"),
			sig:  Typed("xs:string", "xs:string?"),
			body: mapString(strings.ToLower),
		},
		{
			name: fnName("string-length"),
			sig:  Typed("xs:integer", "xs:string?"),
			body: callStringLength,
		},
		{
			name: fnName("substring-before"),
			sig:  Typed("xs:string", "xs:string?", "xs:string?"),
			body: callSubstringBefore,
		},
		{
			name: fnName("substring-after"),
			sig:  Typed("xs:string", "xs:string?", "xs:string?"),
			body: callSubstringAfter,
		},
		{
			name: fnName("translate"),
			sig:  Typed("xs:string", "xs:string?", "xs:string", "xs:string"),
			body: callTranslate,
		},
		{
			name: fnName("sum"),
			sig:  Typed("xs:anyAtomicType", "xs:anyAtomicType*"),
			body: callSum,
		},
		{
			name: fnName("abs"),
			sig:  Typed("xs:numeric?", "xs:numeric?"),
			body: callAbs,
		},
		{
			name: fnName("number"),
			sig:  Typed("xs:double", "xs:anyAtomicType?"),
			body: callNumber,
		},
		{
			name: hofName("id"),
			sig:  Typed("item()*", "item()*"),
			body: callIdentity,
		},
		{
			name: hofName("const"),
			sig:  Typed("item()*", "item()*", "item()*"),
			body: callConst,
		},
		{
			name: hofName("until"),
			sig:  Typed("item()*", "function(item()*) as xs:boolean", "function(item()*) as item()*", "item()*"),
			body: callUntil,
		},
		{
			name: hofName("fold-left1"),
			sig:  Typed("item()*", "function(item()*, item()) as item()*", "item()+"),
			body: callFoldLeft1,
		},
		{
			name: hofName("sort-with"),
			sig:  Typed("item()*", "function(item(), item()) as xs:boolean", "item()*"),
			body: callSortWith,
		},
		{
			name: hofName("top-k-by"),
			sig:  Typed("item()*", "item()*", "function(item()) as item()*", "xs:integer"),
			body: callTopKBy,
		},
		{
			name: hofName("top-k-with"),
			sig:  Typed("item()*", "item()*", "function(item()?, item()?) as xs:boolean", "xs:integer"),
			body: callTopKWith,
		},
	}
	for n := 2; n <= 8; n++ {
		var params []string
		for range n {
			params = append(params, "xs:anyAtomicType?")
		}
		list = append(list, builtin{
			name: fnName("concat"),
			sig:  Typed("xs:string", params...),
			body: callConcat,
		})
	}
	for _, t := range []*atomicType{xsString, xsBool, xsInteger, xsDecimal, xsDouble, xsQName, xsDateTime} {
		list = append(list, builtin{
			name: t.name,
			sig:  Typed(t.String()+"?", "xs:anyAtomicType?"),
			body: castTo(t),
		})
	}
	return list
}

func functionArg(args []Sequence, i int) FunctionItem {
	fn, _ := args[i].First().(FunctionItem)
	return fn
}

func stringArg(args []Sequence, i int) string {
	if i >= len(args) || args[i].Empty() {
		return ""
	}
	str, _ := toString(args[i].First().Value())
	return str
}

func integerArg(args []Sequence, i int) int64 {
	if i >= len(args) || args[i].Empty() {
		return 0
	}
	n, _ := toInt(args[i].First().Value())
	return n
}

func callFilter(ctx Context, args []Sequence) (Sequence, error) {
	return Filter(ctx, functionArg(args, 0), args[1])
}

func callForEach(ctx Context, args []Sequence) (Sequence, error) {
	return ForEach(ctx, functionArg(args, 0), args[1])
}

func callForEachPair(ctx Context, args []Sequence) (Sequence, error) {
	return ForEachPair(ctx, functionArg(args, 0), args[1], args[2])
}

func callFoldLeft(ctx Context, args []Sequence) (Sequence, error) {
	return FoldLeft(ctx, functionArg(args, 0), args[1], args[2])
}

func callFoldRight(ctx Context, args []Sequence) (Sequence, error) {
	return FoldRight(ctx, functionArg(args, 0), args[1], args[2])
}

func callHead(_ Context, args []Sequence) (Sequence, error) {
	return Head(args[0]), nil
}

func callTail(_ Context, args []Sequence) (Sequence, error) {
	return Tail(args[0]), nil
}

func callFunctionName(_ Context, args []Sequence) (Sequence, error) {
	return FunctionName(args[0].First())
}

func callFunctionArity(_ Context, args []Sequence) (Sequence, error) {
	return FunctionArity(args[0].First())
}

func callFunctionLookup(ctx Context, args []Sequence) (Sequence, error) {
	name, _ := args[0].First().Value().(xml.QName)
	arity := integerArg(args, 1)
	if arity < 0 || arity > MaxArity {
		return Sequence{}, nil
	}
	return FunctionLookup(ctx, name, int(arity))
}

func callPartialApply(_ Context, args []Sequence) (Sequence, error) {
	pos := int64(1)
	if len(args) == 3 {
		pos = integerArg(args, 2)
	}
	if pos < 1 || pos > MaxArity {
		return Sequence{}, createError(ErrIndex, CodeType, "partial-apply: invalid position %d", pos)
	}
	fn, err := PartialApply(functionArg(args, 0), args[1], int(pos))
	if err != nil {
		return Sequence{}, err
	}
	return NewSequence(fn), nil
}

func callCount(_ Context, args []Sequence) (Sequence, error) {
	return Singleton(int64(args[0].Len())), nil
}

func callEmpty(_ Context, args []Sequence) (Sequence, error) {
	return Singleton(args[0].Empty()), nil
}

func callExists(_ Context, args []Sequence) (Sequence, error) {
	return Singleton(!args[0].Empty()), nil
}

func callReverse(_ Context, args []Sequence) (Sequence, error) {
	return args[0].Reverse(), nil
}

// callSubsequence selects the items whose 1-based position p satisfies
// round(start) <= p < round(start) + round(length).
func callSubsequence(_ Context, args []Sequence) (Sequence, error) {
	start, _ := toFloat(args[1].First().Value())
	start = roundHalfUp(start)
	end := math.Inf(1)
	if len(args) == 3 {
		n, _ := toFloat(args[2].First().Value())
		end = start + roundHalfUp(n)
	}
	first := max(start, 1)
	if math.IsNaN(first) || math.IsNaN(end) || end <= first {
		return Sequence{}, nil
	}
	offset := int(min(first, MaxArity)) - 1
	if math.IsInf(end, 1) {
		return args[0].Subsequence(offset, -1), nil
	}
	return args[0].Subsequence(offset, int(min(end-first, MaxArity))), nil
}

func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

func callData(_ Context, args []Sequence) (Sequence, error) {
	return args[0].Atomize()
}

func callString(ctx Context, args []Sequence) (Sequence, error) {
	item := args[0].First()
	if item == nil {
		return Singleton(""), nil
	}
	str, err := stringValue(item)
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(str), nil
}

func callBoolean(_ Context, args []Sequence) (Sequence, error) {
	ok, err := EffectiveBooleanValue(args[0])
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(ok), nil
}

func callNot(_ Context, args []Sequence) (Sequence, error) {
	ok, err := EffectiveBooleanValue(args[0])
	if err != nil {
		return Sequence{}, err
	}
	return Singleton(!ok), nil
}

func callStringJoin(_ Context, args []Sequence) (Sequence, error) {
	var list []string
	for _, i := range args[0].All() {
		str, err := toString(i.Value())
		if err != nil {
			return Sequence{}, err
		}
		list = append(list, str)
	}
	return Singleton(strings.Join(list, stringArg(args, 1))), nil
}

func callConcat(_ Context, args []Sequence) (Sequence, error) {
	var str strings.Builder
	for i := range args {
		str.WriteString(stringArg(args, i))
	}
	return Singleton(str.String()), nil
}

func compareStrings(cmp func(string, string) bool) Body {
	return func(_ Context, args []Sequence) (Sequence, error) {
		ok := cmp(stringArg(args, 0), stringArg(args, 1))
		return Singleton(ok), nil
	}
}

func mapString(do func(string) string) Body {
	return func(_ Context, args []Sequence) (Sequence, error) {
		return Singleton(do(stringArg(args, 0))), nil
	}
}

func callStringLength(_ Context, args []Sequence) (Sequence, error) {
	n := len([]rune(stringArg(args, 0)))
	return Singleton(int64(n)), nil
}

func callSubstringBefore(_ Context, args []Sequence) (Sequence, error) {
	before, _, ok := strings.Cut(stringArg(args, 0), stringArg(args, 1))
	if !ok {
		before = ""
	}
	return Singleton(before), nil
}

func callSubstringAfter(_ Context, args []Sequence) (Sequence, error) {
	_, after, ok := strings.Cut(stringArg(args, 0), stringArg(args, 1))
	if !ok {
		after = ""
	}
	return Singleton(after), nil
}

func callTranslate(_ Context, args []Sequence) (Sequence, error) {
	var (
		from = []rune(stringArg(args, 1))
		to   = []rune(stringArg(args, 2))
		str  strings.Builder
	)
	for _, r := range stringArg(args, 0) {
		ix := slices.Index(from, r)
		if ix < 0 {
			str.WriteRune(r)
			continue
		}
		if ix < len(to) {
			str.WriteRune(to[ix])
		}
	}
	return Singleton(str.String()), nil
}

func callSum(_ Context, args []Sequence) (Sequence, error) {
	total := Singleton(int64(0))
	for _, i := range args[0].All() {
		res, err := doAdd(total, NewSequence(i))
		if err != nil {
			return Sequence{}, err
		}
		total = res
	}
	return total, nil
}

func callAbs(_ Context, args []Sequence) (Sequence, error) {
	switch v := args[0].First().(type) {
	case nil:
		return Sequence{}, nil
	default:
		switch n := v.Value().(type) {
		case int64:
			if n < 0 {
				n = -n
			}
			return Singleton(n), nil
		case float64:
			return Singleton(math.Abs(n)), nil
		default:
			return Sequence{}, typeError("abs: numeric value expected")
		}
	}
}

func callNumber(_ Context, args []Sequence) (Sequence, error) {
	if args[0].Empty() {
		return Singleton(math.NaN()), nil
	}
	f, err := toFloat(args[0].First().Value())
	if err != nil {
		f = math.NaN()
	}
	return Singleton(f), nil
}

func callIdentity(_ Context, args []Sequence) (Sequence, error) {
	return args[0], nil
}

func callConst(_ Context, args []Sequence) (Sequence, error) {
	return args[0], nil
}

func callUntil(ctx Context, args []Sequence) (Sequence, error) {
	return Until(ctx, functionArg(args, 0), functionArg(args, 1), args[2])
}

func callFoldLeft1(ctx Context, args []Sequence) (Sequence, error) {
	return FoldLeft1(ctx, functionArg(args, 0), args[1])
}

func callSortWith(ctx Context, args []Sequence) (Sequence, error) {
	return SortWith(ctx, functionArg(args, 0), args[1])
}

func callTopKBy(ctx Context, args []Sequence) (Sequence, error) {
	return TopKBy(ctx, args[0], functionArg(args, 1), int(integerArg(args, 2)))
}

func callTopKWith(ctx Context, args []Sequence) (Sequence, error) {
	return TopKWith(ctx, args[0], functionArg(args, 1), int(integerArg(args, 2)))
}

func castTo(t *atomicType) Body {
	return func(_ Context, args []Sequence) (Sequence, error) {
		item := args[0].First()
		if item == nil {
			return Sequence{}, nil
		}
		res, err := t.Cast(item)
		if err != nil {
			return Sequence{}, err
		}
		return NewSequence(res), nil
	}
}

// Signatures lists the built-in functions with their signature, one per
// line.
func Signatures(reg *Registry) []string {
	var list []string
	for _, fn := range reg.Functions() {
		name, _ := fn.Name()
		list = append(list, fmt.Sprintf("%s%s", name.QualifiedName(), fn.Signature()))
	}
	return list
}
