package xpath

import (
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/midbel/xfn/xml"
)

// Filter returns the items of seq for which pred returns true. pred must
// accept one argument and return exactly one xs:boolean for every item.
func Filter(ctx Context, pred FunctionItem, seq Sequence) (Sequence, error) {
	if pred.Arity() != 1 {
		return Sequence{}, typeError("filter: predicate must accept 1 argument, %s given", displayName(pred))
	}
	test := func(_ int, item Item) (Sequence, error) {
		res, err := Invoke(ctx, pred, []Sequence{NewSequence(item)})
		if err != nil {
			return Sequence{}, err
		}
		ok, err := booleanResult(res)
		if err != nil || !ok {
			return Sequence{}, err
		}
		return NewSequence(item), nil
	}
	parts, err := eachItem(ctx, seq, test)
	if err != nil {
		return Sequence{}, err
	}
	return Concat(parts...), nil
}

func booleanResult(res Sequence) (bool, error) {
	if !res.Singleton() {
		return false, typeError("predicate must return exactly one xs:boolean, got %d item(s)", res.countUpTo(2))
	}
	b, ok := res.First().Value().(bool)
	if !ok || !res.First().Atomic() {
		return false, typeError("predicate must return xs:boolean, got %s", describe(res.First()))
	}
	return b, nil
}

// ForEach applies fn to every item of seq and concatenates the results.
func ForEach(ctx Context, fn FunctionItem, seq Sequence) (Sequence, error) {
	if fn.Arity() != 1 {
		return Sequence{}, typeError("for-each: function must accept 1 argument, %s given", displayName(fn))
	}
	parts, err := eachItem(ctx, seq, func(_ int, item Item) (Sequence, error) {
		return Invoke(ctx, fn, []Sequence{NewSequence(item)})
	})
	if err != nil {
		return Sequence{}, err
	}
	return Concat(parts...), nil
}

// ForEachPair applies fn to the items of s1 and s2 at the same position. It
// stops at the end of the shortest sequence.
func ForEachPair(ctx Context, fn FunctionItem, s1, s2 Sequence) (Sequence, error) {
	if fn.Arity() != 2 {
		return Sequence{}, typeError("for-each-pair: function must accept 2 arguments, %s given", displayName(fn))
	}
	var parts []Sequence
	for i, left := range s1.All() {
		right, err := s2.Nth(i)
		if errors.Is(err, ErrIndex) {
			break
		}
		if err != nil {
			return Sequence{}, err
		}
		res, err := Invoke(ctx, fn, []Sequence{NewSequence(left), NewSequence(right)})
		if err != nil {
			return Sequence{}, err
		}
		parts = append(parts, res)
	}
	return Concat(parts...), nil
}

// FoldLeft computes fn(...fn(fn(zero, item1), item2)..., itemN). Each
// accumulator is checked against the first parameter type of fn before the
// next call.
func FoldLeft(ctx Context, fn FunctionItem, zero, seq Sequence) (Sequence, error) {
	if fn.Arity() != 2 {
		return Sequence{}, typeError("fold-left: function must accept 2 arguments, %s given", displayName(fn))
	}
	acc := zero
	for _, item := range seq.All() {
		res, err := Invoke(ctx, fn, []Sequence{acc, NewSequence(item)})
		if err != nil {
			return Sequence{}, err
		}
		acc = res
	}
	return acc, nil
}

// FoldRight computes fn(item1, fn(item2, ... fn(itemN, zero))) by walking
// seq backward.
func FoldRight(ctx Context, fn FunctionItem, zero, seq Sequence) (Sequence, error) {
	if fn.Arity() != 2 {
		return Sequence{}, typeError("fold-right: function must accept 2 arguments, %s given", displayName(fn))
	}
	acc := zero
	for _, item := range seq.Backward() {
		res, err := Invoke(ctx, fn, []Sequence{NewSequence(item), acc})
		if err != nil {
			return Sequence{}, err
		}
		acc = res
	}
	return acc, nil
}

func Head(seq Sequence) Sequence {
	return seq.Head()
}

func Tail(seq Sequence) Sequence {
	return seq.Tail()
}

// FunctionName returns the name of a function item or the empty sequence
// when the function has no name.
func FunctionName(item Item) (Sequence, error) {
	fn, ok := item.(FunctionItem)
	if !ok {
		return Sequence{}, typeError("function-name: function item expected, got %s", describeItem(item))
	}
	if n, ok := fn.Name(); ok {
		return Singleton(n), nil
	}
	return Sequence{}, nil
}

func FunctionArity(item Item) (Sequence, error) {
	fn, ok := item.(FunctionItem)
	if !ok {
		return Sequence{}, typeError("function-arity: function item expected, got %s", describeItem(item))
	}
	return Singleton(int64(fn.Arity())), nil
}

// FunctionLookup returns the function registered under name and arity or the
// empty sequence when there is none.
func FunctionLookup(ctx Context, name xml.QName, arity int) (Sequence, error) {
	fn, err := ctx.lookup(name, arity)
	if err != nil {
		return Sequence{}, nil
	}
	return NewSequence(fn), nil
}

// Apply calls fn with an explicit list of arguments.
func Apply(ctx Context, fn FunctionItem, args []Sequence) (Sequence, error) {
	return Invoke(ctx, fn, args)
}

// PartialApply binds arg to the parameter at the 1-based position pos of fn.
func PartialApply(fn FunctionItem, arg Sequence, pos int) (FunctionItem, error) {
	if pos < 1 || pos > fn.Arity() {
		return nil, createError(ErrIndex, CodeType, "partial-apply: position %d out of range [1:%d] for %s", pos, fn.Arity(), displayName(fn))
	}
	slots := make([]Slot, fn.Arity())
	slots[pos-1] = Bind(arg)
	return PartiallyApply(fn, slots...)
}

// Until applies fn to start until pred returns true.
func Until(ctx Context, pred, fn FunctionItem, start Sequence) (Sequence, error) {
	if pred.Arity() != 1 || fn.Arity() != 1 {
		return Sequence{}, typeError("until: predicate and function must accept 1 argument")
	}
	curr := start
	for {
		res, err := Invoke(ctx, pred, []Sequence{curr})
		if err != nil {
			return Sequence{}, err
		}
		ok, err := booleanResult(res)
		if err != nil {
			return Sequence{}, err
		}
		if ok {
			return curr, nil
		}
		if curr, err = Invoke(ctx, fn, []Sequence{curr}); err != nil {
			return Sequence{}, err
		}
	}
}

// FoldLeft1 is FoldLeft with the first item of seq as zero. seq can not be
// empty.
func FoldLeft1(ctx Context, fn FunctionItem, seq Sequence) (Sequence, error) {
	if seq.Empty() {
		return Sequence{}, createError(ErrEmpty, CodeType, "fold-left1: non empty sequence expected")
	}
	return FoldLeft(ctx, fn, seq.Head(), seq.Tail())
}

// TopKBy returns the k items of seq with the highest key, highest first.
func TopKBy(ctx Context, seq Sequence, key FunctionItem, k int) (Sequence, error) {
	if key.Arity() != 1 {
		return Sequence{}, typeError("top-k-by: key function must accept 1 argument, %s given", displayName(key))
	}
	type keyed struct {
		item Item
		key  Sequence
	}
	var list []keyed
	for _, item := range seq.All() {
		res, err := Invoke(ctx, key, []Sequence{NewSequence(item)})
		if err != nil {
			return Sequence{}, err
		}
		if res, err = res.Atomize(); err != nil {
			return Sequence{}, err
		}
		list = append(list, keyed{item: item, key: res})
	}
	var cmpErr error
	slices.SortStableFunc(list, func(a, b keyed) int {
		c, err := compareKeys(b.key, a.key)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return Sequence{}, cmpErr
	}
	var items []Item
	for i := 0; i < len(list) && i < k; i++ {
		items = append(items, list[i].item)
	}
	return NewSequence(items...), nil
}

// TopKWith returns the k highest items of seq ordered with less, highest
// first.
func TopKWith(ctx Context, seq Sequence, less FunctionItem, k int) (Sequence, error) {
	if less.Arity() != 2 {
		return Sequence{}, typeError("top-k-with: comparison function must accept 2 arguments, %s given", displayName(less))
	}
	var (
		items  = seq.Items()
		cmpErr error
	)
	slices.SortStableFunc(items, func(a, b Item) int {
		if cmpErr != nil {
			return 0
		}
		c, err := compareWith(ctx, less, b, a)
		if err != nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return Sequence{}, cmpErr
	}
	return NewSequence(items[:max(min(k, len(items)), 0)]...), nil
}

// SortWith sorts seq in ascending order with less. Equal items keep their
// relative order.
func SortWith(ctx Context, less FunctionItem, seq Sequence) (Sequence, error) {
	if less.Arity() != 2 {
		return Sequence{}, typeError("sort-with: comparison function must accept 2 arguments, %s given", displayName(less))
	}
	var (
		items  = seq.Items()
		cmpErr error
	)
	slices.SortStableFunc(items, func(a, b Item) int {
		if cmpErr != nil {
			return 0
		}
		c, err := compareWith(ctx, less, a, b)
		if err != nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return Sequence{}, cmpErr
	}
	return NewSequence(items...), nil
}

// compareWith orders a and b with the less than function less.
func compareWith(ctx Context, less FunctionItem, a, b Item) (int, error) {
	isLess := func(a, b Item) (bool, error) {
		res, err := Invoke(ctx, less, []Sequence{NewSequence(a), NewSequence(b)})
		if err != nil {
			return false, err
		}
		return booleanResult(res)
	}
	if ok, err := isLess(a, b); err != nil || ok {
		return -1, err
	}
	if ok, err := isLess(b, a); err != nil || ok {
		return 1, err
	}
	return 0, nil
}

func compareKeys(left, right Sequence) (int, error) {
	switch {
	case left.Empty() && right.Empty():
		return 0, nil
	case left.Empty():
		return -1, nil
	case right.Empty():
		return 1, nil
	default:
		return compareAtomic(left.First(), right.First())
	}
}

func describeItem(item Item) string {
	if item == nil {
		return "empty-sequence()"
	}
	return describe(item)
}

// eachItem calls do for every item of seq and returns the results in the
// order of the items. With ctx.Parallel greater than 1, items are processed
// concurrently; the error reported is always the one of the first failing
// item, as in the sequential evaluation.
func eachItem(ctx Context, seq Sequence, do func(int, Item) (Sequence, error)) ([]Sequence, error) {
	if ctx.Parallel < 2 {
		var parts []Sequence
		for i, item := range seq.All() {
			res, err := do(i, item)
			if err != nil {
				return nil, err
			}
			parts = append(parts, res)
		}
		return parts, nil
	}
	var (
		items  = seq.Items()
		parts  = make([]Sequence, len(items))
		errs   = make([]error, len(items))
		mu     sync.Mutex
		failed = len(items)
		grp    errgroup.Group
	)
	grp.SetLimit(ctx.Parallel)
	for i, item := range items {
		grp.Go(func() error {
			mu.Lock()
			skip := i > failed
			mu.Unlock()
			if skip {
				return nil
			}
			res, err := do(i, item)
			if err != nil {
				mu.Lock()
				failed = min(failed, i)
				mu.Unlock()
				errs[i] = err
				return nil
			}
			parts[i] = res
			return nil
		})
	}
	grp.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return parts, nil
}
