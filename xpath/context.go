package xpath

import (
	"time"

	"github.com/midbel/xfn/environ"
	"github.com/midbel/xfn/xml"
)

// Context is the dynamic context of an evaluation. It is passed by value:
// nested scopes never leak definitions into the enclosing one.
type Context struct {
	Item  Item
	Index int
	Size  int

	environ.Environ[Expr]
	Functions  *Registry
	Namespaces environ.Environ[string]
	Tracer
	// Parallel is the number of items for-each and filter may process at the
	// same time. Values lower than 2 select the sequential evaluation.
	Parallel int
	Now      time.Time
}

type Option func(*Context)

func WithNamespace(prefix, uri string) Option {
	return func(ctx *Context) {
		ctx.Namespaces.Define(prefix, uri)
	}
}

func WithTracer(tracer Tracer) Option {
	return func(ctx *Context) {
		ctx.Tracer = tracer
	}
}

func WithParallel(n int) Option {
	return func(ctx *Context) {
		ctx.Parallel = n
	}
}

func WithFunctions(reg *Registry) Option {
	return func(ctx *Context) {
		ctx.Functions = reg
	}
}

// WithVariable binds name to a value converted with Singleton.
func WithVariable(name string, value any) Option {
	return func(ctx *Context) {
		ctx.Define(name, Value(Singleton(value)))
	}
}

func NewContext(item Item, options ...Option) Context {
	ctx := Context{
		Item:       item,
		Index:      1,
		Size:       1,
		Environ:    environ.Empty[Expr](),
		Functions:  DefaultRegistry(),
		Namespaces: defaultNamespaces(),
		Tracer:     discardTracer{},
		Now:        time.Now(),
	}
	if item == nil {
		ctx.Index, ctx.Size = 0, 0
	}
	for _, o := range options {
		o(&ctx)
	}
	return ctx
}

// DefaultContext creates a context whose context item is node, or a context
// without context item when node is nil.
func DefaultContext(node xml.Node) Context {
	if node == nil {
		return NewContext(nil)
	}
	return NewContext(createNode(node))
}

func defaultNamespaces() environ.Environ[string] {
	ns := environ.Empty[string]()
	ns.Define("fn", fnNS)
	ns.Define("xs", schemaNS)
	ns.Define("hof", hofNS)
	return environ.Enclosed(ns)
}

func (c Context) Nest() Context {
	c.Environ = environ.Enclosed(c.Environ)
	return c
}

func (c Context) Sub(item Item, pos, size int) Context {
	c.Item = item
	c.Index = pos
	c.Size = size
	return c
}

// ResolveName binds the prefix of name to its namespace URI. Names without
// prefix are in the function namespace.
func (c Context) ResolveName(name xml.QName) (xml.QName, error) {
	if name.Uri != "" {
		return name, nil
	}
	if name.Space == "" {
		name.Space = "fn"
	}
	uri, err := c.namespaces().Resolve(name.Space)
	if err != nil {
		return name, undefinedError("%s: prefix not bound to a namespace", name.Space)
	}
	name.Uri = uri
	return name, nil
}

// Lookup resolves a reference written as name#arity.
func (c Context) Lookup(ref string) (FunctionItem, error) {
	name, arity, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}
	return c.lookup(name, arity)
}

func (c Context) lookup(name xml.QName, arity int) (FunctionItem, error) {
	name, err := c.ResolveName(name)
	if err != nil {
		return nil, err
	}
	return c.registry().Lookup(name, arity)
}

func (c Context) registry() *Registry {
	if c.Functions == nil {
		return DefaultRegistry()
	}
	return c.Functions
}

func (c Context) namespaces() environ.Environ[string] {
	if c.Namespaces == nil {
		return defaultNamespaces()
	}
	return c.Namespaces
}

func (c Context) tracer() Tracer {
	if c.Tracer == nil {
		return discardTracer{}
	}
	return c.Tracer
}
