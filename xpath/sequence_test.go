package xpath

import (
	"errors"
	"math"
	"testing"

	"github.com/midbel/xfn/xml"
)

func ints(values ...int64) Sequence {
	var list []Item
	for _, v := range values {
		list = append(list, createLiteral(v))
	}
	return NewSequence(list...)
}

func strs(values ...string) Sequence {
	var list []Item
	for _, v := range values {
		list = append(list, createLiteral(v))
	}
	return NewSequence(list...)
}

func TestSequenceConcat(t *testing.T) {
	data := []struct {
		Seq  Sequence
		Want string
		Len  int
	}{
		{
			Seq:  Concat(),
			Want: "seq()",
		},
		{
			Seq:  Concat(Sequence{}, NewSequence(), Sequence{}),
			Want: "seq()",
		},
		{
			Seq:  Concat(ints(1, 2), Concat(Range(3, 4), Sequence{}), Singleton("x")),
			Want: "seq(int(1), int(2), int(3), int(4), str(x))",
			Len:  5,
		},
		{
			Seq:  Concat(Concat(ints(1), ints(2)), Concat(ints(3), Concat(ints(4), ints(5)))),
			Want: "seq(int(1), int(2), int(3), int(4), int(5))",
			Len:  5,
		},
		{
			Seq:  Singleton([]Item{createLiteral(true), createLiteral(2.5)}),
			Want: "seq(bool(true), double(2.5))",
			Len:  2,
		},
		{
			Seq:  Range(5, 1),
			Want: "seq()",
		},
	}
	for _, d := range data {
		if got := d.Seq.CanonicalizeString(); got != d.Want {
			t.Errorf("sequence mismatched! want %s, got %s", d.Want, got)
		}
		if got := d.Seq.Len(); got != d.Len {
			t.Errorf("%s: length mismatched! want %d, got %d", d.Want, d.Len, got)
		}
		if d.Seq.Empty() != (d.Len == 0) {
			t.Errorf("%s: empty test failed", d.Want)
		}
	}
}

func TestSequenceNth(t *testing.T) {
	seq := Concat(ints(1, 2), Range(10, 12))
	for i, want := range []int64{1, 2, 10, 11, 12} {
		item, err := seq.Nth(i)
		if err != nil {
			t.Errorf("%d: unexpected error: %s", i, err)
			continue
		}
		if got := item.Value(); got != want {
			t.Errorf("%d: item mismatched! want %d, got %v", i, want, got)
		}
	}
	for _, i := range []int{-1, 5, 100} {
		_, err := seq.Nth(i)
		if !errors.Is(err, ErrIndex) {
			t.Errorf("%d: index error expected, got %v", i, err)
			continue
		}
		if code := ErrorCode(err); code != CodeIndex {
			t.Errorf("%d: code mismatched! want %s, got %s", i, CodeIndex, code)
		}
	}
}

func TestNewRange(t *testing.T) {
	data := []struct {
		First int64
		Last  int64
		Len   int
		Err   error
	}{
		{First: 1, Last: 3, Len: 3},
		{First: 3, Last: 1, Len: 0},
		{First: math.MaxInt64, Last: math.MaxInt64, Len: 1},
		{First: math.MinInt64, Last: math.MinInt64 + 9, Len: 10},
		{First: 0, Last: math.MaxInt - 1, Len: math.MaxInt},
		{First: -1, Last: math.MaxInt64, Err: ErrRange},
		{First: math.MinInt64, Last: -1, Err: ErrRange},
		{First: math.MinInt64, Last: math.MaxInt64, Err: ErrRange},
	}
	for _, d := range data {
		seq, err := NewRange(d.First, d.Last)
		if d.Err != nil {
			if !errors.Is(err, d.Err) {
				t.Errorf("%d to %d: expected error %v, got %v", d.First, d.Last, d.Err, err)
				continue
			}
			if code := ErrorCode(err); code != CodeOverflow {
				t.Errorf("%d to %d: code mismatched! want %s, got %s", d.First, d.Last, CodeOverflow, code)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d to %d: unexpected error: %s", d.First, d.Last, err)
			continue
		}
		if n := seq.Len(); n != d.Len {
			t.Errorf("%d to %d: length mismatched! want %d, got %d", d.First, d.Last, d.Len, n)
			continue
		}
		if d.Len == 0 {
			if !seq.Empty() {
				t.Errorf("%d to %d: sequence should be empty", d.First, d.Last)
			}
			continue
		}
		if got := seq.First().Value(); got != d.First {
			t.Errorf("%d to %d: first item mismatched! got %v", d.First, d.Last, got)
		}
		last, err := seq.Nth(d.Len - 1)
		if err != nil || last.Value() != d.Last {
			t.Errorf("%d to %d: last item mismatched! got %v (%v)", d.First, d.Last, last, err)
		}
		if n := seq.Tail().Len(); n != d.Len-1 {
			t.Errorf("%d to %d: tail length mismatched! want %d, got %d", d.First, d.Last, d.Len-1, n)
		}
	}
}

func TestRangePanics(t *testing.T) {
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrRange) {
			t.Errorf("range error expected, got %v", err)
		}
	}()
	Range(-1, math.MaxInt64)
}

func TestSequenceLazyHead(t *testing.T) {
	var calls int
	seq := Generate(func() (Item, bool) {
		calls++
		if calls > 3 {
			return nil, false
		}
		return createLiteral(int64(calls)), true
	})
	head := seq.Head()
	if got := head.CanonicalizeString(); got != "seq(int(1))" {
		t.Errorf("head mismatched! got %s", got)
	}
	if calls != 1 {
		t.Errorf("head evaluated %d items", calls)
	}
	for range 2 {
		if got := seq.CanonicalizeString(); got != "seq(int(1), int(2), int(3))" {
			t.Errorf("sequence mismatched! got %s", got)
		}
	}
	if calls != 4 {
		t.Errorf("producer called %d times, want 4", calls)
	}
}

func TestSequenceSubsequence(t *testing.T) {
	data := []struct {
		Seq  Sequence
		Want string
	}{
		{
			Seq:  Range(1, 10).Subsequence(2, 3),
			Want: "seq(int(3), int(4), int(5))",
		},
		{
			Seq:  Range(1, 10).Subsequence(8, -1),
			Want: "seq(int(9), int(10))",
		},
		{
			Seq:  Range(1, 10).Subsequence(2, 3).Tail(),
			Want: "seq(int(4), int(5))",
		},
		{
			Seq:  Range(1, 10).Subsequence(-2, 3),
			Want: "seq(int(1))",
		},
		{
			Seq:  Range(1, 3).Subsequence(5, 2),
			Want: "seq()",
		},
		{
			Seq:  Range(1, 4).Reverse(),
			Want: "seq(int(4), int(3), int(2), int(1))",
		},
		{
			Seq:  Range(1, 4).Reverse().Reverse().Tail(),
			Want: "seq(int(2), int(3), int(4))",
		},
		{
			Seq:  Sequence{}.Tail(),
			Want: "seq()",
		},
	}
	for _, d := range data {
		if got := d.Seq.CanonicalizeString(); got != d.Want {
			t.Errorf("sequence mismatched! want %s, got %s", d.Want, got)
		}
	}
}

func TestEffectiveBooleanValue(t *testing.T) {
	node := xml.NewElement(xml.LocalName("item"))
	data := []struct {
		Seq  Sequence
		Want bool
		Fail bool
	}{
		{Seq: Sequence{}, Want: false},
		{Seq: Singleton(""), Want: false},
		{Seq: Singleton("false"), Want: true},
		{Seq: Singleton(int64(0)), Want: false},
		{Seq: Singleton(0.5), Want: true},
		{Seq: Singleton(true), Want: true},
		{Seq: Singleton(node), Want: true},
		{Seq: Concat(Singleton(node), ints(0)), Want: true},
		{Seq: ints(1, 2), Fail: true},
		{Seq: Singleton(Inline(Untyped(0), nil)), Fail: true},
	}
	for _, d := range data {
		got, err := EffectiveBooleanValue(d.Seq)
		if d.Fail {
			if ErrorCode(err) != CodeBoolean {
				t.Errorf("%s: FORG0006 expected, got %v", d.Seq.CanonicalizeString(), err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Seq.CanonicalizeString(), err)
			continue
		}
		if got != d.Want {
			t.Errorf("%s: boolean value mismatched! want %t, got %t", d.Seq.CanonicalizeString(), d.Want, got)
		}
	}
}

func TestSameIdentity(t *testing.T) {
	var (
		n1 = xml.NewElement(xml.LocalName("item"))
		n2 = xml.NewElement(xml.LocalName("item"))
		fn = Inline(Untyped(1), nil)
	)
	data := []struct {
		Left  Item
		Right Item
		Want  bool
	}{
		{Left: createNode(n1), Right: createNode(n1), Want: true},
		{Left: createNode(n1), Right: createNode(n2), Want: false},
		{Left: createLiteral(int64(2)), Right: createLiteral(2.0), Want: true},
		{Left: createLiteral("2"), Right: createLiteral(int64(2)), Want: false},
		{Left: fn, Right: fn, Want: true},
		{Left: fn, Right: Inline(Untyped(1), nil), Want: false},
	}
	for i, d := range data {
		if got := SameIdentity(d.Left, d.Right); got != d.Want {
			t.Errorf("%d: identity mismatched! want %t, got %t", i, d.Want, got)
		}
	}
}
