package xpath

import (
	"strings"

	"github.com/midbel/xfn/xml"
)

type ItemType interface {
	Match(Item) bool
	// Subsumes reports whether every instance of the given type is also an
	// instance of the receiver.
	Subsumes(ItemType) bool
	String() string
}

type anyItemType struct{}

func (anyItemType) Match(item Item) bool {
	return item != nil
}

func (anyItemType) Subsumes(_ ItemType) bool {
	return true
}

func (anyItemType) String() string {
	return "item()"
}

type nodeType struct{}

func (nodeType) Match(item Item) bool {
	_, ok := item.(nodeItem)
	return ok
}

func (nodeType) Subsumes(other ItemType) bool {
	_, ok := other.(nodeType)
	return ok
}

func (nodeType) String() string {
	return "node()"
}

type anyFunctionType struct{}

func (anyFunctionType) Match(item Item) bool {
	_, ok := item.(FunctionItem)
	return ok
}

func (anyFunctionType) Subsumes(other ItemType) bool {
	switch other.(type) {
	case anyFunctionType, functionType:
		return true
	default:
		return false
	}
}

func (anyFunctionType) String() string {
	return "function(*)"
}

// functionType is a typed function test. Matching follows function
// subtyping: same arity, contravariant parameters and covariant result.
type functionType struct {
	params []SequenceType
	result SequenceType
}

func FunctionType(result SequenceType, params ...SequenceType) ItemType {
	return functionType{
		params: params,
		result: result,
	}
}

func (t functionType) Match(item Item) bool {
	fn, ok := item.(FunctionItem)
	if !ok || fn.Arity() != len(t.params) {
		return false
	}
	sig := fn.Signature()
	for i := range t.params {
		if !sig.Param(i).Subsumes(t.params[i]) {
			return false
		}
	}
	return t.result.Subsumes(sig.Returns())
}

func (t functionType) Subsumes(other ItemType) bool {
	x, ok := other.(functionType)
	if !ok || len(x.params) != len(t.params) {
		return false
	}
	for i := range t.params {
		if !x.params[i].Subsumes(t.params[i]) {
			return false
		}
	}
	return t.result.Subsumes(x.result)
}

func (t functionType) String() string {
	var str strings.Builder
	str.WriteString("function(")
	for i := range t.params {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(t.params[i].String())
	}
	str.WriteString(") as ")
	str.WriteString(t.result.String())
	return str.String()
}

type Occurrence int8

const (
	OccurOne Occurrence = iota
	OccurOptional
	OccurMany
	OccurPlus
	OccurEmpty
)

const unbounded = -1

func (o Occurrence) bounds() (int, int) {
	switch o {
	case OccurOptional:
		return 0, 1
	case OccurMany:
		return 0, unbounded
	case OccurPlus:
		return 1, unbounded
	case OccurEmpty:
		return 0, 0
	default:
		return 1, 1
	}
}

func (o Occurrence) allows(n int) bool {
	lo, hi := o.bounds()
	return n >= lo && (hi == unbounded || n <= hi)
}

func (o Occurrence) contains(other Occurrence) bool {
	lo1, hi1 := o.bounds()
	lo2, hi2 := other.bounds()
	if lo2 < lo1 {
		return false
	}
	if hi1 == unbounded {
		return true
	}
	return hi2 != unbounded && hi2 <= hi1
}

func (o Occurrence) String() string {
	switch o {
	case OccurOptional:
		return "?"
	case OccurMany:
		return "*"
	case OccurPlus:
		return "+"
	default:
		return ""
	}
}

type SequenceType struct {
	Item   ItemType
	Occurs Occurrence
}

var (
	AnySequence   = SequenceType{Item: anyItemType{}, Occurs: OccurMany}
	EmptySequence = SequenceType{Occurs: OccurEmpty}
)

func OneOf(item ItemType) SequenceType {
	return SequenceType{
		Item:   item,
		Occurs: OccurOne,
	}
}

func (s SequenceType) Match(seq Sequence) bool {
	if !s.matchCardinality(seq) {
		return false
	}
	if s.Occurs == OccurEmpty {
		return true
	}
	if _, ok := s.Item.(anyItemType); ok {
		return true
	}
	return seq.Every(s.Item.Match)
}

func (s SequenceType) matchCardinality(seq Sequence) bool {
	lo, hi := s.Occurs.bounds()
	if lo == 0 && hi == unbounded {
		return true
	}
	limit := hi
	if hi == unbounded {
		limit = lo
	}
	return s.Occurs.allows(seq.countUpTo(limit + 1))
}

func (s SequenceType) Subsumes(other SequenceType) bool {
	if !s.Occurs.contains(other.Occurs) {
		return false
	}
	if other.Occurs == OccurEmpty {
		return true
	}
	if s.Occurs == OccurEmpty {
		return false
	}
	return s.Item.Subsumes(other.Item)
}

func (s SequenceType) String() string {
	if s.Occurs == OccurEmpty {
		return "empty-sequence()"
	}
	str := s.Item.String()
	if _, ok := s.Item.(functionType); ok && s.Occurs != OccurOne {
		str = "(" + str + ")"
	}
	return str + s.Occurs.String()
}

// ParseType reads the textual form of a sequence type such as xs:string?,
// function(item()) as xs:boolean or (function(*))+.
func ParseType(str string) (SequenceType, error) {
	p := typeParser{
		input: str,
	}
	st, err := p.parseSequenceType()
	if err != nil {
		return st, err
	}
	if p.skip(); !p.done() {
		return st, syntaxError("%s: unexpected %q in sequence type", str, p.input[p.pos:])
	}
	return st, nil
}

// MustParseType is like ParseType but panics on malformed input.
func MustParseType(str string) SequenceType {
	st, err := ParseType(str)
	if err != nil {
		panic(err)
	}
	return st
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) parseSequenceType() (SequenceType, error) {
	var st SequenceType
	if p.accept("empty-sequence()") {
		st.Occurs = OccurEmpty
		return st, nil
	}
	it, err := p.parseItemType()
	if err != nil {
		return st, err
	}
	st.Item = it
	st.Occurs = p.parseOccurrence()
	return st, nil
}

func (p *typeParser) parseOccurrence() Occurrence {
	switch {
	case p.accept("?"):
		return OccurOptional
	case p.accept("*"):
		return OccurMany
	case p.accept("+"):
		return OccurPlus
	default:
		return OccurOne
	}
}

func (p *typeParser) parseItemType() (ItemType, error) {
	switch {
	case p.accept("item()"):
		return anyItemType{}, nil
	case p.accept("node()"):
		return nodeType{}, nil
	case p.accept("function(*)"):
		return anyFunctionType{}, nil
	case p.accept("function("):
		return p.parseFunctionType()
	case p.accept("("):
		it, err := p.parseItemType()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, p.unexpected("')'")
		}
		return it, nil
	default:
		return p.parseAtomicType()
	}
}

func (p *typeParser) parseFunctionType() (ItemType, error) {
	var ft functionType
	for !p.accept(")") {
		if len(ft.params) > 0 && !p.accept(",") {
			return nil, p.unexpected("','")
		}
		st, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		ft.params = append(ft.params, st)
	}
	if !p.accept("as") {
		return nil, p.unexpected("'as'")
	}
	res, err := p.parseSequenceType()
	if err != nil {
		return nil, err
	}
	ft.result = res
	return ft, nil
}

func (p *typeParser) parseAtomicType() (ItemType, error) {
	p.skip()
	beg := p.pos
	for !p.done() && !strings.ContainsRune("?*+,() ", rune(p.input[p.pos])) {
		p.pos++
	}
	if beg == p.pos {
		return nil, p.unexpected("type name")
	}
	qn, err := xml.ParseName(p.input[beg:p.pos])
	if err != nil {
		return nil, syntaxError("%s: invalid type name", p.input[beg:p.pos])
	}
	if qn.Uri != "" && qn.Uri != schemaNS {
		return nil, undefinedError("%s: unknown type", qn.ExpandedName())
	}
	if qn.Uri == "" && qn.Space != "xs" {
		return nil, undefinedError("%s: unknown type", qn.QualifiedName())
	}
	t, ok := supportedTypes[qn.LocalName()]
	if !ok {
		return nil, undefinedError("%s: unknown type", qn.QualifiedName())
	}
	return t, nil
}

func (p *typeParser) accept(word string) bool {
	p.skip()
	if !strings.HasPrefix(p.input[p.pos:], word) {
		return false
	}
	p.pos += len(word)
	return true
}

func (p *typeParser) unexpected(want string) error {
	if p.done() {
		return syntaxError("%s: unexpected end of type, expected %s", p.input, want)
	}
	return syntaxError("%s: expected %s at position %d", p.input, want, p.pos)
}

func (p *typeParser) skip() {
	for !p.done() && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) done() bool {
	return p.pos >= len(p.input)
}
