package xpath

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/midbel/xfn/xml"
)

func lambda(body Expr, params ...string) Expr {
	return FuncLit(params, Untyped(len(params)), body)
}

func TestHigherOrderFunctions(t *testing.T) {
	var nested strings.Builder
	for i := 1; i <= 13; i++ {
		fmt.Fprintf(&nested, "(%d+", i)
	}
	nested.WriteString("0" + strings.Repeat(")", 13))

	fruits := Seq(Literal("apple"), Literal("pear"), Literal("apricot"), Literal("advocado"), Literal("orange"))
	data := []struct {
		Name string
		Expr Expr
		Want string
	}{
		{
			Name: "filter-partial",
			Expr: Call("filter", Call("starts-with", Placeholder(), Literal("a")), fruits),
			Want: "seq(str(apple), str(apricot), str(advocado))",
		},
		{
			Name: "filter-ref",
			Expr: Call("fn:filter", Ref("fn:boolean", 1), Seq(Integer(0), Integer(1), Literal(""), Literal("x"))),
			Want: "seq(int(1), str(x))",
		},
		{
			Name: "filter-empty",
			Expr: Call("filter", Ref("boolean", 1), Seq()),
			Want: "seq()",
		},
		{
			Name: "fold-left-product",
			Expr: Call("fold-left", lambda(Binary("*", Var("a"), Var("b")), "a", "b"), Integer(1), Seq(Integer(2), Integer(3), Integer(5), Integer(7))),
			Want: "seq(int(210))",
		},
		{
			Name: "fold-right-nested",
			Expr: Call("fold-right", lambda(Call("concat", Literal("("), Var("a"), Literal("+"), Var("b"), Literal(")")), "a", "b"), Integer(0), To(Integer(1), Integer(13))),
			Want: "seq(str(" + nested.String() + "))",
		},
		{
			Name: "fold-left-concat",
			Expr: Call("fold-left", lambda(Call("concat", Var("a"), Literal("."), Var("b")), "a", "b"), Literal(""), To(Integer(1), Integer(5))),
			Want: "seq(str(.1.2.3.4.5))",
		},
		{
			Name: "fold-right-concat",
			Expr: Call("fold-right", lambda(Call("concat", Var("a"), Literal("."), Var("b")), "a", "b"), Literal(""), To(Integer(1), Integer(5))),
			Want: "seq(str(1.2.3.4.5.))",
		},
		{
			Name: "fold-left-empty",
			Expr: Call("fold-left", Ref("concat", 2), Literal("zero"), Seq()),
			Want: "seq(str(zero))",
		},
		{
			Name: "fold-right-empty",
			Expr: Call("fold-right", Ref("concat", 2), Seq(Integer(1), Integer(2)), Seq()),
			Want: "seq(int(1), int(2))",
		},
		{
			Name: "for-each",
			Expr: Call("for-each", lambda(Seq(Var("x"), Var("x")), "x"), To(Integer(1), Integer(3))),
			Want: "seq(int(1), int(1), int(2), int(2), int(3), int(3))",
		},
		{
			Name: "map-empty-results",
			Expr: Call("map", lambda(If(Binary("=", Binary("mod", Var("x"), Integer(2)), Integer(0)), Var("x"), Seq()), "x"), To(Integer(1), Integer(6))),
			Want: "seq(int(2), int(4), int(6))",
		},
		{
			Name: "for-each-pair",
			Expr: Call("for-each-pair", Ref("concat", 2), Seq(Literal("a"), Literal("b"), Literal("c")), Seq(Integer(1), Integer(2))),
			Want: "seq(str(a1), str(b2))",
		},
		{
			Name: "head",
			Expr: Call("head", To(Integer(10), Integer(1000000000))),
			Want: "seq(int(10))",
		},
		{
			Name: "head-empty",
			Expr: Call("head", Seq()),
			Want: "seq()",
		},
		{
			Name: "tail",
			Expr: Call("tail", Seq(Literal("a"), Literal("b"), Literal("c"))),
			Want: "seq(str(b), str(c))",
		},
		{
			Name: "tail-empty",
			Expr: Call("tail", Seq()),
			Want: "seq()",
		},
		{
			Name: "function-name-ref",
			Expr: Call("function-name", Ref("fn:head", 1)),
			Want: "seq(qname(fn:head))",
		},
		{
			Name: "function-name-partial",
			Expr: Call("function-name", Call("starts-with", Placeholder(), Literal("a"))),
			Want: "seq()",
		},
		{
			Name: "function-name-inline",
			Expr: Call("function-name", lambda(Var("x"), "x")),
			Want: "seq()",
		},
		{
			Name: "function-arity",
			Expr: Seq(Call("function-arity", Ref("fold-left", 3)), Call("function-arity", Call("fold-left", Placeholder(), Integer(0), Placeholder()))),
			Want: "seq(int(3), int(2))",
		},
		{
			Name: "function-lookup",
			Expr: DynCall(Call("function-lookup", Call("xs:QName", Literal("fn:upper-case")), Integer(1)), Literal("abc")),
			Want: "seq(str(ABC))",
		},
		{
			Name: "function-lookup-missing",
			Expr: Call("function-lookup", Call("xs:QName", Literal("fn:upper-case")), Integer(5)),
			Want: "seq()",
		},
		{
			Name: "partial-apply",
			Expr: DynCall(Call("partial-apply", Ref("concat", 3), Literal("x"), Integer(2)), Literal("a"), Literal("b")),
			Want: "seq(str(axb))",
		},
		{
			Name: "dynamic-call-placeholder",
			Expr: DynCall(DynCall(Ref("concat", 3), Placeholder(), Literal("-"), Placeholder()), Literal("a"), Literal("b")),
			Want: "seq(str(a-b))",
		},
		{
			Name: "closure",
			Expr: Let("n", Integer(10), Call("for-each", lambda(Binary("+", Var("x"), Var("n")), "x"), Seq(Integer(1), Integer(2)))),
			Want: "seq(int(11), int(12))",
		},
		{
			Name: "sort-with",
			Expr: Call("hof:sort-with", lambda(Binary(">", Var("a"), Var("b")), "a", "b"), Seq(Integer(3), Integer(1), Integer(2))),
			Want: "seq(int(3), int(2), int(1))",
		},
		{
			Name: "top-k-by",
			Expr: Call("hof:top-k-by", fruits, Ref("string-length", 1), Integer(2)),
			Want: "seq(str(advocado), str(apricot))",
		},
		{
			Name: "top-k-with",
			Expr: Call("hof:top-k-with", To(Integer(1), Integer(10)), lambda(Binary("<", Var("a"), Var("b")), "a", "b"), Integer(3)),
			Want: "seq(int(10), int(9), int(8))",
		},
		{
			Name: "until",
			Expr: Call("hof:until", lambda(Binary(">", Var("x"), Integer(100)), "x"), lambda(Binary("*", Var("x"), Integer(2)), "x"), Integer(1)),
			Want: "seq(int(128))",
		},
		{
			Name: "fold-left1",
			Expr: Call("hof:fold-left1", lambda(Binary("+", Var("a"), Var("b")), "a", "b"), To(Integer(1), Integer(4))),
			Want: "seq(int(10))",
		},
		{
			Name: "id-const",
			Expr: Seq(Call("hof:id", Literal("a")), Call("hof:const", Literal("b"), Integer(1))),
			Want: "seq(str(a), str(b))",
		},
		{
			Name: "subsequence",
			Expr: Seq(Call("subsequence", To(Integer(1), Integer(10)), Integer(3), Integer(2)), Call("subsequence", To(Integer(1), Integer(5)), Number(-1), Integer(3))),
			Want: "seq(int(3), int(4), int(1))",
		},
	}
	for _, d := range data {
		res, err := Eval(d.Expr, nil)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Name, err)
			continue
		}
		if got := res.CanonicalizeString(); got != d.Want {
			t.Errorf("%s: result mismatched!\nwant: %s\ngot:  %s", d.Name, d.Want, got)
		}
	}
}

func TestHigherOrderErrors(t *testing.T) {
	data := []struct {
		Name string
		Expr Expr
		Err  error
		Code string
	}{
		{
			Name: "filter-empty-predicate",
			Expr: Call("filter", lambda(If(Binary("=", Var("x"), Integer(2)), Seq(), Boolean(true)), "x"), To(Integer(1), Integer(3))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "filter-many-booleans",
			Expr: Call("filter", lambda(Seq(Boolean(true), Boolean(true)), "x"), To(Integer(1), Integer(3))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "filter-not-boolean",
			Expr: Call("filter", lambda(Var("x"), "x"), To(Integer(1), Integer(3))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "filter-arity",
			Expr: Call("filter", Ref("concat", 2), Seq(Literal("a"))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "fold-left-arity",
			Expr: Call("fold-left", Ref("head", 1), Integer(0), Seq(Integer(1))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "fold-left-accumulator",
			Expr: Call("fold-left", FuncLit([]string{"a", "b"}, Signature{Params: []SequenceType{MustParseType("xs:integer"), AnySequence}}, Seq(Var("a"), Var("b"))), Integer(0), Seq(Integer(1), Integer(2))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "function-name-atomic",
			Expr: Call("function-name", Integer(1)),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "dynamic-call-arity",
			Expr: DynCall(Ref("head", 1), Integer(1), Integer(2)),
			Err:  ErrArity,
			Code: CodeType,
		},
		{
			Name: "static-call-arity",
			Expr: Call("head", Integer(1), Integer(2)),
			Err:  ErrArity,
			Code: CodeUndefined,
		},
		{
			Name: "unknown-function",
			Expr: Ref("fn:nothing", 1),
			Err:  ErrUndefined,
			Code: CodeUndefined,
		},
		{
			Name: "fold-left1-empty",
			Expr: Call("hof:fold-left1", Ref("concat", 2), Seq()),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "partial-apply-position",
			Expr: Call("partial-apply", Ref("concat", 2), Literal("a"), Integer(3)),
			Err:  ErrIndex,
			Code: CodeType,
		},
		{
			Name: "string-of-function",
			Expr: Call("string", Ref("head", 1)),
			Err:  ErrType,
			Code: CodeString,
		},
		{
			Name: "data-of-function",
			Expr: Call("data", Ref("head", 1)),
			Err:  ErrType,
			Code: CodeAtomize,
		},
		{
			Name: "division-by-zero",
			Expr: Binary("div", Integer(1), Integer(0)),
			Err:  ErrZero,
			Code: CodeZero,
		},
		{
			Name: "context-item",
			Expr: ContextItem(),
			Err:  ErrUndefined,
			Code: CodeContext,
		},
		{
			Name: "placeholder",
			Expr: Placeholder(),
			Err:  ErrSyntax,
			Code: CodeSyntax,
		},
		{
			Name: "range-overflow",
			Expr: To(Integer(-1), Integer(math.MaxInt64)),
			Err:  ErrRange,
			Code: CodeOverflow,
		},
		{
			Name: "count-range-overflow",
			Expr: Call("count", To(Integer(-1), Integer(math.MaxInt64))),
			Err:  ErrRange,
			Code: CodeOverflow,
		},
		{
			Name: "head-range-overflow",
			Expr: Call("head", To(Integer(math.MinInt64), Integer(0))),
			Err:  ErrRange,
			Code: CodeOverflow,
		},
		{
			Name: "fold-right-range-overflow",
			Expr: Call("fold-right", Ref("concat", 2), Literal(""), To(Integer(-1), Integer(math.MaxInt64))),
			Err:  ErrRange,
			Code: CodeOverflow,
		},
		{
			Name: "partial-bound-argument",
			Expr: Call("starts-with", Placeholder(), Seq(Integer(1), Integer(2))),
			Err:  ErrType,
			Code: CodeType,
		},
		{
			Name: "dynamic-call-arity-before-arguments",
			Expr: DynCall(Ref("head", 1), ContextItem(), Integer(2)),
			Err:  ErrArity,
			Code: CodeType,
		},
	}
	for _, d := range data {
		_, err := Eval(d.Expr, nil)
		if !errors.Is(err, d.Err) {
			t.Errorf("%s: expected error %v, got %v", d.Name, d.Err, err)
			continue
		}
		if code := ErrorCode(err); code != d.Code {
			t.Errorf("%s: code mismatched! want %s, got %s (%s)", d.Name, d.Code, code, err)
		}
	}
}

func TestFilterArityChecked(t *testing.T) {
	var (
		ctx   = NewContext(nil)
		calls int
	)
	pred := Inline(Untyped(2), func(_ Context, _ []Sequence) (Sequence, error) {
		calls++
		return Singleton(true), nil
	})
	_, err := Filter(ctx, pred, ints(1, 2, 3))
	if !errors.Is(err, ErrType) {
		t.Errorf("type error expected, got %v", err)
	}
	if calls > 0 {
		t.Errorf("predicate called %d times", calls)
	}
}

func TestFilterProperties(t *testing.T) {
	var (
		ctx  = NewContext(nil)
		seqs = []Sequence{
			Sequence{},
			ints(1),
			Range(1, 50),
			Concat(strs("a", "b"), Range(1, 5), strs("c")),
		}
		preds = []Body{
			func(_ Context, args []Sequence) (Sequence, error) {
				return Singleton(true), nil
			},
			func(_ Context, args []Sequence) (Sequence, error) {
				return Singleton(false), nil
			},
			func(_ Context, args []Sequence) (Sequence, error) {
				_, ok := args[0].First().Value().(int64)
				return Singleton(ok), nil
			},
		}
	)
	for _, s := range seqs {
		for i, p := range preds {
			res, err := Filter(ctx, Inline(Untyped(1), p), s)
			if err != nil {
				t.Errorf("%d: unexpected error: %s", i, err)
				continue
			}
			if res.Len() > s.Len() {
				t.Errorf("%d: filter produces more items than its input", i)
			}
			var j int
			for _, item := range res.All() {
				var found bool
				for !found && j < s.Len() {
					other, _ := s.Nth(j)
					found = SameIdentity(item, other)
					j++
				}
				if !found {
					t.Errorf("%d: filter does not preserve order", i)
					break
				}
			}
		}
	}
}

func TestHeadTailReconstruct(t *testing.T) {
	seqs := []Sequence{
		ints(1),
		Range(1, 100),
		Concat(strs("a"), Singleton(xml.NewText("node")), Singleton(true)),
		Range(1, 10).Reverse(),
	}
	for _, s := range seqs {
		got := Concat(Head(s), Tail(s))
		if got.CanonicalizeString() != s.CanonicalizeString() {
			t.Errorf("head and tail do not rebuild %s: got %s", s.CanonicalizeString(), got.CanonicalizeString())
		}
	}
}

func TestForEachPairShortest(t *testing.T) {
	ctx := NewContext(nil)
	concat, err := ctx.Lookup("concat#2")
	if err != nil {
		t.Errorf("fail to resolve concat: %s", err)
		return
	}
	var calls int
	right := Generate(func() (Item, bool) {
		calls++
		if calls > 2 {
			return nil, false
		}
		return createLiteral(int64(calls)), true
	})
	data := []struct {
		Left  Sequence
		Right Sequence
		Want  string
	}{
		{Left: strs("a", "b", "c", "d"), Right: right, Want: "seq(str(a1), str(b2))"},
		{Left: strs("a"), Right: Range(1, 3), Want: "seq(str(a1))"},
		{Left: Range(1, 3), Right: Sequence{}, Want: "seq()"},
	}
	for _, d := range data {
		res, err := ForEachPair(ctx, concat, d.Left, d.Right)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Want, err)
			continue
		}
		if got := res.CanonicalizeString(); got != d.Want {
			t.Errorf("result mismatched! want %s, got %s", d.Want, got)
		}
	}
}

func TestMapIdentity(t *testing.T) {
	ctx := NewContext(nil)
	id, err := ctx.Lookup("hof:id#1")
	if err != nil {
		t.Errorf("fail to resolve hof:id: %s", err)
		return
	}
	seqs := []Sequence{
		Sequence{},
		Range(1, 20),
		Concat(strs("a", "b"), Singleton(2.5), NewSequence(id)),
	}
	for _, s := range seqs {
		res, err := ForEach(ctx, id, s)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", s.CanonicalizeString(), err)
			continue
		}
		if res.CanonicalizeString() != s.CanonicalizeString() {
			t.Errorf("map with identity mismatched! want %s, got %s", s.CanonicalizeString(), res.CanonicalizeString())
		}
	}
}

func TestFoldLeftLargeSequence(t *testing.T) {
	expr := Call("fold-left", lambda(Binary("+", Var("a"), Integer(1)), "a", "b"), Integer(0), To(Integer(1), Integer(1000000)))
	res, err := Eval(expr, nil)
	if err != nil {
		t.Errorf("unexpected error: %s", err)
		return
	}
	if got := res.CanonicalizeString(); got != "seq(int(1000000))" {
		t.Errorf("result mismatched! got %s", got)
	}
}

func TestFoldRightLargeSequence(t *testing.T) {
	var (
		ctx = NewContext(nil)
		add = Inline(Untyped(2), func(_ Context, args []Sequence) (Sequence, error) {
			return doAdd(args[0], args[1])
		})
	)
	res, err := FoldRight(ctx, add, ints(0), Range(1, 200000))
	if err != nil {
		t.Errorf("unexpected error: %s", err)
		return
	}
	if got := res.CanonicalizeString(); got != "seq(int(20000100000))" {
		t.Errorf("result mismatched! got %s", got)
	}
}

func TestParallelDeterminism(t *testing.T) {
	fail := Inline(Untyped(1), func(_ Context, args []Sequence) (Sequence, error) {
		n, _ := args[0].First().Value().(int64)
		if n%10 == 7 {
			return Sequence{}, createError(ErrType, CodeType, "item %d", n)
		}
		return args[0], nil
	})
	even := Inline(Untyped(1), func(_ Context, args []Sequence) (Sequence, error) {
		n, _ := args[0].First().Value().(int64)
		return Singleton(n%2 == 0), nil
	})
	ctx := NewContext(nil, WithParallel(8))
	for range 20 {
		_, err := ForEach(ctx, fail, Range(1, 100))
		var e *Error
		if !errors.As(err, &e) || e.Cause != "item 7" {
			t.Errorf("first failing item expected, got %v", err)
		}
		res, err := ForEach(ctx, fail, Range(1, 6))
		if err != nil {
			t.Errorf("unexpected error: %s", err)
			continue
		}
		if got, want := res.CanonicalizeString(), Range(1, 6).CanonicalizeString(); got != want {
			t.Errorf("order not preserved! want %s, got %s", want, got)
		}
		res, err = Filter(ctx, even, Range(1, 10))
		if err != nil {
			t.Errorf("unexpected error: %s", err)
			continue
		}
		if got := res.CanonicalizeString(); got != "seq(int(2), int(4), int(6), int(8), int(10))" {
			t.Errorf("order not preserved! got %s", got)
		}
	}
}
