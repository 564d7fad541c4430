package xml

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/midbel/xfn/environ"
)

const MaxDepth = 512

const attrXmlNS = "xmlns"

var ErrDocument = errors.New("invalid document")

type ParseError struct {
	Position
	Element string
	Message string
}

func (p ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", p.Line, p.Column, p.Element, p.Message)
}

func (p ParseError) Unwrap() error {
	return ErrDocument
}

// Parser builds the documents given as context item to queries. Comments
// and processing instructions are read and dropped.
type Parser struct {
	scan *scanner
	curr token
	peek token

	depth int

	TrimSpace bool
	MaxDepth  int

	namespaces environ.Environ[string]
}

func NewParser(r io.Reader) *Parser {
	p := Parser{
		scan:       scan(r),
		TrimSpace:  true,
		MaxDepth:   MaxDepth,
		namespaces: environ.Empty[string](),
	}
	p.next()
	p.next()
	return &p
}

func ParseFile(file string) (*Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ParseReader(r)
}

func ParseString(str string) (*Document, error) {
	return ParseReader(strings.NewReader(str))
}

func ParseReader(r io.Reader) (*Document, error) {
	return NewParser(r).Parse()
}

func (p *Parser) Parse() (*Document, error) {
	var root Node
	for !p.done() {
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		if node.Type() != TypeElement {
			return nil, p.createError("document", "text outside of root element")
		}
		if root != nil {
			return nil, p.createError("document", "only one root element allowed")
		}
		root = node
	}
	if root == nil {
		return nil, p.createError("document", "missing root element")
	}
	return NewDocument(root), nil
}

func (p *Parser) parseNode() (Node, error) {
	p.depth++
	defer func() {
		p.depth--
	}()
	if p.depth >= p.MaxDepth {
		return nil, p.createError("document", "maximum depth reached")
	}
	switch p.curr.Type {
	case openTag:
		return p.parseElement()
	case commentTag:
		p.next()
		return nil, nil
	case procInstTag:
		return nil, p.skipInstruction()
	case cdata:
		defer p.next()
		return NewText(p.curr.Literal), nil
	case literal:
		return p.parseText(), nil
	default:
		return nil, p.createError("document", "unexpected token "+p.curr.String())
	}
}

func (p *Parser) parseElement() (Node, error) {
	p.namespaces = environ.Enclosed(p.namespaces)
	defer func() {
		if u, ok := p.namespaces.(interface {
			Unwrap() environ.Environ[string]
		}); ok {
			p.namespaces = u.Unwrap()
		}
	}()
	p.next()
	var qn QName
	if p.is(namespace) {
		qn.Space = p.curr.Literal
		p.next()
	}
	if !p.is(name) {
		return nil, p.createError("element", "name is missing")
	}
	qn.Name = p.curr.Literal
	p.next()

	var attrs []*Attribute
	for !p.done() && !p.is(endTag) && !p.is(emptyElemTag) {
		a, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		for _, x := range attrs {
			if x.QualifiedName() == a.QualifiedName() {
				return nil, p.createError("attribute", a.QualifiedName()+" is already defined")
			}
		}
		attrs = append(attrs, a)
	}
	qn.Uri = p.resolve(qn.Space)
	elem := NewElement(qn)
	for _, a := range attrs {
		if a.Space != "" && a.Space != attrXmlNS {
			a.Uri = p.resolve(a.Space)
		}
		elem.Append(a)
	}
	switch p.curr.Type {
	case emptyElemTag:
		p.next()
		return elem, nil
	case endTag:
		p.next()
	default:
		return nil, p.createError("element", "end of element expected")
	}
	for !p.done() && !p.is(closeTag) {
		child, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if child != nil {
			elem.Append(child)
		}
	}
	if !p.is(closeTag) {
		return nil, p.createError("element", "closing element is missing")
	}
	p.next()
	return elem, p.parseCloseElement(qn)
}

func (p *Parser) parseCloseElement(qn QName) error {
	if p.is(namespace) {
		if qn.Space != p.curr.Literal {
			return p.createError("element", "namespace mismatched with opening element")
		}
		p.next()
	} else if qn.Space != "" {
		return p.createError("element", "closing element without namespace")
	}
	if !p.is(name) || p.curr.Literal != qn.Name {
		return p.createError("element", "name mismatched with opening element")
	}
	p.next()
	if !p.is(endTag) {
		return p.createError("element", "end of element expected")
	}
	p.next()
	return nil
}

func (p *Parser) parseAttr() (*Attribute, error) {
	var qn QName
	if p.is(namespace) {
		qn.Space = p.curr.Literal
		p.next()
	}
	if !p.is(attr) {
		return nil, p.createError("attribute", "name is expected")
	}
	qn.Name = p.curr.Literal
	p.next()
	if !p.is(literal) {
		return nil, p.createError("attribute", "value is missing")
	}
	a := NewAttribute(qn, p.curr.Literal)
	p.next()
	switch {
	case qn.Space == "" && qn.Name == attrXmlNS:
		p.namespaces.Define("", a.Datum)
	case qn.Space == attrXmlNS:
		p.namespaces.Define(qn.Name, a.Datum)
	}
	return a, nil
}

func (p *Parser) skipInstruction() error {
	p.next()
	for !p.done() && !p.is(procInstTag) {
		p.next()
	}
	if !p.is(procInstTag) {
		return p.createError("processing instruction", "end of element expected")
	}
	p.next()
	return nil
}

func (p *Parser) parseText() Node {
	str := p.curr.Literal
	if p.TrimSpace {
		str = strings.TrimSpace(str)
	}
	p.next()
	if str == "" {
		return nil
	}
	return NewText(str)
}

func (p *Parser) resolve(space string) string {
	uri, _ := p.namespaces.Resolve(space)
	return uri
}

func (p *Parser) createError(elem, msg string) error {
	return ParseError{
		Position: p.curr.Position,
		Element:  elem,
		Message:  msg,
	}
}

func (p *Parser) is(kind rune) bool {
	return p.curr.Type == kind
}

func (p *Parser) done() bool {
	return p.is(eof)
}

func (p *Parser) next() {
	p.curr = p.peek
	p.peek = p.scan.Scan()
}

const (
	eof rune = -(1 + iota)
	name
	namespace // name:
	attr      // name=
	literal
	cdata
	commentTag   // <!--
	openTag      // <
	endTag       // >
	closeTag     // </
	emptyElemTag // />
	procInstTag  // <?, ?>
	invalid
)

type Position struct {
	Line   int
	Column int
}

type token struct {
	Literal string
	Type    rune
	Position
}

func (t token) String() string {
	switch t.Type {
	case eof:
		return "<eof>"
	case name:
		return fmt.Sprintf("name(%s)", t.Literal)
	case namespace:
		return fmt.Sprintf("namespace(%s)", t.Literal)
	case attr:
		return fmt.Sprintf("attr(%s)", t.Literal)
	case literal:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case cdata:
		return fmt.Sprintf("chardata(%s)", t.Literal)
	case commentTag:
		return "<comment>"
	case openTag:
		return "<open-elem-tag>"
	case endTag:
		return "<end-elem-tag>"
	case closeTag:
		return "<close-elem-tag>"
	case emptyElemTag:
		return "<empty-elem-tag>"
	case procInstTag:
		return "<processing-instruction>"
	default:
		return "<invalid>"
	}
}

type scanner struct {
	input io.RuneScanner
	char  rune
	str   bytes.Buffer
	text  bool

	Position
}

func scan(r io.Reader) *scanner {
	rs := bufio.NewReader(r)
	if pk, _ := rs.Peek(3); bytes.Equal(pk, []byte{0xEF, 0xBB, 0xBF}) {
		rs.Discard(3)
	}
	s := scanner{
		input: rs,
	}
	s.Line = 1
	s.read()
	return &s
}

func (s *scanner) Scan() token {
	var tok token
	tok.Position = s.Position
	if s.done() {
		tok.Type = eof
		return tok
	}
	s.str.Reset()
	if s.text {
		s.scanText(&tok)
		return tok
	}
	switch {
	case s.char == '<':
		s.scanOpeningTag(&tok)
	case s.char == '>':
		tok.Type = endTag
		s.text = true
		s.read()
	case s.char == '/' || s.char == '?':
		s.scanClosingTag(&tok)
	case s.char == '"' || s.char == '\'':
		s.scanValue(&tok)
	case unicode.IsLetter(s.char) || s.char == '_':
		s.scanName(&tok)
	default:
		s.scanText(&tok)
	}
	return tok
}

func (s *scanner) scanOpeningTag(tok *token) {
	s.read()
	tok.Type = openTag
	switch s.char {
	case '!':
		s.read()
		switch s.char {
		case '[':
			s.scanUntil(tok, "]]>", cdata)
			if tok.Type == cdata {
				lit, ok := strings.CutPrefix(tok.Literal, "[CDATA[")
				if !ok {
					tok.Type = invalid
				}
				tok.Literal = lit
			}
		case '-':
			s.scanUntil(tok, "-->", commentTag)
		default:
			tok.Type = invalid
		}
	case '?':
		tok.Type = procInstTag
		s.read()
	case '/':
		tok.Type = closeTag
		s.read()
	}
}

// scanUntil reads everything up to the end marker. The marker is consumed
// but not part of the token literal.
func (s *scanner) scanUntil(tok *token, end string, kind rune) {
	for !s.done() {
		s.write()
		s.read()
		if str := s.str.String(); strings.HasSuffix(str, end) {
			tok.Type = kind
			tok.Literal = strings.TrimPrefix(str[:len(str)-len(end)], "-")
			s.text = true
			return
		}
	}
	tok.Type = invalid
}

func (s *scanner) scanClosingTag(tok *token) {
	tok.Type = invalid
	if s.char == '?' {
		tok.Type = procInstTag
	} else if s.char == '/' {
		tok.Type = emptyElemTag
	}
	s.read()
	if s.char != '>' {
		tok.Type = invalid
		return
	}
	s.text = true
	s.read()
}

func (s *scanner) scanValue(tok *token) {
	quote := s.char
	s.read()
	for !s.done() && s.char != quote {
		if s.char == '&' {
			s.str.WriteString(s.scanEntity())
			continue
		}
		s.write()
		s.read()
	}
	tok.Type = literal
	tok.Literal = s.str.String()
	if s.char != quote {
		tok.Type = invalid
	}
	s.read()
	s.skipBlank()
}

func (s *scanner) scanEntity() string {
	var str bytes.Buffer
	for !s.done() && s.char != ';' {
		str.WriteRune(s.char)
		s.read()
	}
	if s.char == ';' {
		str.WriteRune(s.char)
		s.read()
	}
	return html.UnescapeString(str.String())
}

func (s *scanner) scanText(tok *token) {
	for !s.done() && s.char != '<' {
		if s.char == '&' {
			s.str.WriteString(s.scanEntity())
			continue
		}
		s.write()
		s.read()
	}
	tok.Type = literal
	tok.Literal = s.str.String()
	s.text = false
}

func (s *scanner) scanName(tok *token) {
	accept := func() bool {
		return unicode.IsLetter(s.char) || unicode.IsDigit(s.char) ||
			s.char == '-' || s.char == '_' || s.char == '.'
	}
	for !s.done() && accept() {
		s.write()
		s.read()
	}
	tok.Type = name
	tok.Literal = s.str.String()
	switch s.char {
	case '=':
		tok.Type = attr
		s.read()
	case ':':
		tok.Type = namespace
		s.read()
	default:
		s.skipBlank()
	}
}

func (s *scanner) write() {
	s.str.WriteRune(s.char)
}

func (s *scanner) read() {
	if s.char == '\n' {
		s.Column = 0
		s.Line++
	}
	s.Column++
	char, _, err := s.input.ReadRune()
	if errors.Is(err, io.EOF) {
		char = utf8.RuneError
	}
	s.char = char
}

func (s *scanner) done() bool {
	return s.char == utf8.RuneError
}

func (s *scanner) skipBlank() {
	for !s.done() && unicode.IsSpace(s.char) {
		s.read()
	}
}
