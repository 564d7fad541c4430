package xpath

import (
	"iter"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/midbel/xfn/xml"
)

// source gives positional access to the items of a sequence. get must return
// the same item for the same index on every call.
type source interface {
	get(int) (Item, bool)
	size() int
}

// Sequence is an immutable, ordered and flat list of items. The zero value is
// the empty sequence. Items are computed on demand by the underlying source
// and can be read any number of times.
type Sequence struct {
	src source
}

func NewSequence(items ...Item) Sequence {
	if len(items) == 0 {
		return Sequence{}
	}
	return Sequence{
		src: sliceSource(items),
	}
}

// Singleton builds a sequence from a single Go value. Sequences are returned
// as is and slices of items are spliced.
func Singleton(value any) Sequence {
	var item Item
	switch value := value.(type) {
	case Sequence:
		return value
	case []Item:
		return NewSequence(value...)
	case Item:
		item = value
	case xml.Node:
		item = createNode(value)
	default:
		item = createLiteral(value)
	}
	return NewSequence(item)
}

// Concat returns the concatenation of all the given sequences. Nested
// concatenations are spliced so that the result stays flat.
func Concat(seqs ...Sequence) Sequence {
	var parts []Sequence
	for _, s := range seqs {
		if s.Empty() {
			continue
		}
		if c, ok := s.src.(*concatSource); ok {
			parts = append(parts, c.parts...)
			continue
		}
		parts = append(parts, s)
	}
	switch len(parts) {
	case 0:
		return Sequence{}
	case 1:
		return parts[0]
	default:
		return Sequence{
			src: &concatSource{
				parts: parts,
			},
		}
	}
}

// Range returns the integers from first to last inclusive. The result is
// empty when last is lower than first. It panics when the range can not be
// addressed; NewRange reports the error instead.
func Range(first, last int64) Sequence {
	seq, err := NewRange(first, last)
	if err != nil {
		panic(err)
	}
	return seq
}

// NewRange is like Range but fails with ErrRange when the number of integers
// from first to last does not fit in an int.
func NewRange(first, last int64) (Sequence, error) {
	if last < first {
		return Sequence{}, nil
	}
	if span := uint64(last) - uint64(first); span >= math.MaxInt {
		return Sequence{}, createError(ErrRange, CodeOverflow, "%d to %d: too many items in range", first, last)
	}
	seq := Sequence{
		src: rangeSource{
			first: first,
			last:  last,
		},
	}
	return seq, nil
}

// Generate returns a sequence whose items are produced by next until it
// reports false. Produced items are memoized so that next is never called
// twice for the same position.
func Generate(next func() (Item, bool)) Sequence {
	return Sequence{
		src: &generatorSource{
			next: next,
		},
	}
}

func (s Sequence) Empty() bool {
	if s.src == nil {
		return true
	}
	_, ok := s.src.get(0)
	return !ok
}

func (s Sequence) Singleton() bool {
	return s.countUpTo(2) == 1
}

func (s Sequence) Len() int {
	if s.src == nil {
		return 0
	}
	return s.src.size()
}

// Nth returns the item at the 0-based index i.
func (s Sequence) Nth(i int) (Item, error) {
	if s.src != nil && i >= 0 {
		if item, ok := s.src.get(i); ok {
			return item, nil
		}
	}
	return nil, indexError(i, s.Len())
}

func (s Sequence) First() Item {
	if s.src == nil {
		return nil
	}
	item, _ := s.src.get(0)
	return item
}

// Head returns the first item as a sequence without looking at any other
// item.
func (s Sequence) Head() Sequence {
	if item := s.First(); item != nil {
		return NewSequence(item)
	}
	return Sequence{}
}

func (s Sequence) Tail() Sequence {
	if s.Empty() {
		return Sequence{}
	}
	return s.sub(1, unbounded)
}

// Subsequence returns at most length items starting at the 0-based offset
// start. A negative length selects all the remaining items.
func (s Sequence) Subsequence(start, length int) Sequence {
	if start < 0 {
		if length >= 0 {
			length += start
			if length <= 0 {
				return Sequence{}
			}
		}
		start = 0
	}
	if length == 0 || s.Empty() {
		return Sequence{}
	}
	return s.sub(start, length)
}

func (s Sequence) sub(offset, limit int) Sequence {
	if x, ok := s.src.(subSource); ok {
		if x.limit != unbounded {
			if offset >= x.limit {
				return Sequence{}
			}
			if limit == unbounded || offset+limit > x.limit {
				limit = x.limit - offset
			}
		}
		offset += x.offset
		s.src = x.base
	}
	return Sequence{
		src: subSource{
			base:   s.src,
			offset: offset,
			limit:  limit,
		},
	}
}

func (s Sequence) Reverse() Sequence {
	switch x := s.src.(type) {
	case nil:
		return s
	case reverseSource:
		return Sequence{
			src: x.base,
		}
	default:
		return Sequence{
			src: reverseSource{
				base: s.src,
			},
		}
	}
}

// All iterates over the items in order.
func (s Sequence) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		if s.src == nil {
			return
		}
		for i := 0; ; i++ {
			item, ok := s.src.get(i)
			if !ok || !yield(i, item) {
				return
			}
		}
	}
}

// Backward iterates over the items from the last one to the first one.
func (s Sequence) Backward() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		if s.src == nil {
			return
		}
		for i := s.src.size() - 1; i >= 0; i-- {
			item, _ := s.src.get(i)
			if !yield(i, item) {
				return
			}
		}
	}
}

func (s Sequence) Items() []Item {
	var list []Item
	for _, i := range s.All() {
		list = append(list, i)
	}
	return list
}

func (s Sequence) Every(test func(i Item) bool) bool {
	for _, i := range s.All() {
		if !test(i) {
			return false
		}
	}
	return true
}

func (s Sequence) True() bool {
	ok, _ := EffectiveBooleanValue(s)
	return ok
}

// Atomize replaces every node by its string value. Function items can not be
// atomized.
func (s Sequence) Atomize() (Sequence, error) {
	var list []Item
	for _, i := range s.All() {
		a, err := atomizeItem(i)
		if err != nil {
			return Sequence{}, err
		}
		list = append(list, a)
	}
	return NewSequence(list...), nil
}

func (s Sequence) countUpTo(limit int) int {
	if s.src == nil {
		return 0
	}
	var n int
	for n < limit {
		if _, ok := s.src.get(n); !ok {
			break
		}
		n++
	}
	return n
}

// CanonicalizeString gives a textual form of the sequence where each item is
// tagged with its kind.
func (s Sequence) CanonicalizeString() string {
	var str strings.Builder
	str.WriteString("seq(")
	for j, i := range s.All() {
		if j > 0 {
			str.WriteString(", ")
		}
		writeCanonical(&str, i)
	}
	str.WriteString(")")
	return str.String()
}

func writeCanonical(str *strings.Builder, item Item) {
	switch x := item.(type) {
	case nodeItem:
		str.WriteString("node(")
		str.WriteString(x.node.Identity())
	case FunctionItem:
		str.WriteString("func(")
		str.WriteString(displayName(x))
	default:
		switch v := item.Value().(type) {
		case string:
			str.WriteString("str(")
			str.WriteString(v)
		case int64:
			str.WriteString("int(")
			str.WriteString(strconv.FormatInt(v, 10))
		case float64:
			str.WriteString("double(")
			str.WriteString(formatDouble(v))
		case bool:
			str.WriteString("bool(")
			str.WriteString(strconv.FormatBool(v))
		case xml.QName:
			str.WriteString("qname(")
			str.WriteString(v.QualifiedName())
		default:
			str.WriteString("atomic(")
			str.WriteString(formatValue(v))
		}
	}
	str.WriteString(")")
}

// String joins the string values of the items with a space. Function items
// are shown by their name and arity.
func (s Sequence) String() string {
	var list []string
	for _, i := range s.All() {
		if f, ok := i.(FunctionItem); ok {
			list = append(list, displayName(f))
			continue
		}
		str, _ := stringValue(i)
		list = append(list, str)
	}
	return strings.Join(list, " ")
}

// EffectiveBooleanValue computes the boolean value of a sequence. It fails
// for function items and for sequences of several atomic values.
func EffectiveBooleanValue(seq Sequence) (bool, error) {
	first := seq.First()
	if first == nil {
		return false, nil
	}
	if _, ok := first.(nodeItem); ok {
		return true, nil
	}
	if f, ok := first.(FunctionItem); ok {
		return false, createError(ErrType, CodeBoolean, "effective boolean value of %s is not defined", displayName(f))
	}
	if !seq.Singleton() {
		return false, createError(ErrType, CodeBoolean, "effective boolean value of a sequence of several atomic values is not defined")
	}
	switch x := first.Value().(type) {
	case string:
		return x != "", nil
	case float64:
		return x != 0 && !math.IsNaN(x), nil
	case int64:
		return x != 0, nil
	case bool:
		return x, nil
	default:
		return false, createError(ErrType, CodeBoolean, "effective boolean value of %s is not defined", typeOf(x))
	}
}

type sliceSource []Item

func (s sliceSource) get(i int) (Item, bool) {
	if i < 0 || i >= len(s) {
		return nil, false
	}
	return s[i], true
}

func (s sliceSource) size() int {
	return len(s)
}

type rangeSource struct {
	first int64
	last  int64
}

func (r rangeSource) get(i int) (Item, bool) {
	if i < 0 || int64(i) > r.last-r.first {
		return nil, false
	}
	return createLiteral(r.first + int64(i)), true
}

func (r rangeSource) size() int {
	return int(r.last - r.first + 1)
}

type concatSource struct {
	parts []Sequence

	mu      sync.Mutex
	offsets []int
}

// get walks the parts lazily: the size of a part is only computed once an
// index past its end is requested.
func (c *concatSource) get(i int) (Item, bool) {
	if i < 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	j := sort.SearchInts(c.offsets, i+1)
	if j < len(c.offsets) {
		return c.parts[j].src.get(i - c.base(j))
	}
	for ; j < len(c.parts); j++ {
		base := c.base(j)
		if item, ok := c.parts[j].src.get(i - base); ok {
			return item, true
		}
		c.offsets = append(c.offsets, base+c.parts[j].Len())
	}
	return nil, false
}

func (c *concatSource) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for j := len(c.offsets); j < len(c.parts); j++ {
		c.offsets = append(c.offsets, c.base(j)+c.parts[j].Len())
	}
	return c.offsets[len(c.offsets)-1]
}

func (c *concatSource) base(j int) int {
	if j == 0 {
		return 0
	}
	return c.offsets[j-1]
}

type subSource struct {
	base   source
	offset int
	limit  int
}

func (s subSource) get(i int) (Item, bool) {
	if i < 0 || (s.limit != unbounded && i >= s.limit) {
		return nil, false
	}
	return s.base.get(s.offset + i)
}

func (s subSource) size() int {
	n := max(s.base.size()-s.offset, 0)
	if s.limit != unbounded {
		n = min(n, s.limit)
	}
	return n
}

type reverseSource struct {
	base source
}

func (r reverseSource) get(i int) (Item, bool) {
	n := r.base.size()
	if i < 0 || i >= n {
		return nil, false
	}
	return r.base.get(n - 1 - i)
}

func (r reverseSource) size() int {
	return r.base.size()
}

type generatorSource struct {
	mu    sync.Mutex
	next  func() (Item, bool)
	items []Item
	done  bool
}

func (g *generatorSource) get(i int) (Item, bool) {
	if i < 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for len(g.items) <= i && !g.done {
		g.pull()
	}
	if i < len(g.items) {
		return g.items[i], true
	}
	return nil, false
}

func (g *generatorSource) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.done {
		g.pull()
	}
	return len(g.items)
}

func (g *generatorSource) pull() {
	item, ok := g.next()
	if !ok {
		g.done = true
		g.next = nil
		return
	}
	g.items = append(g.items, item)
}
