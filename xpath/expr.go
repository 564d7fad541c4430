package xpath

import (
	"slices"
	"sync"

	"github.com/midbel/xfn/environ"
	"github.com/midbel/xfn/xml"
)

type Expr interface {
	Find(xml.Node) (Sequence, error)
	find(Context) (Sequence, error)
}

// Eval evaluates expr with node as context item.
func Eval(expr Expr, node xml.Node, options ...Option) (Sequence, error) {
	var item Item
	if node != nil {
		item = createNode(node)
	}
	return EvalWithContext(expr, NewContext(item, options...))
}

func EvalWithContext(expr Expr, ctx Context) (Sequence, error) {
	res, err := expr.find(ctx)
	return res, asError(err)
}

type literal struct {
	value any
}

func Literal(str string) Expr {
	return literal{
		value: str,
	}
}

func Number(f float64) Expr {
	return literal{
		value: f,
	}
}

func Integer(i int64) Expr {
	return literal{
		value: i,
	}
}

func Boolean(b bool) Expr {
	return literal{
		value: b,
	}
}

func (i literal) Find(node xml.Node) (Sequence, error) {
	return i.find(DefaultContext(node))
}

func (i literal) find(_ Context) (Sequence, error) {
	return Singleton(i.value), nil
}

type value struct {
	seq Sequence
}

// Value wraps an already computed sequence.
func Value(seq Sequence) Expr {
	return value{
		seq: seq,
	}
}

func (v value) Find(node xml.Node) (Sequence, error) {
	return v.find(DefaultContext(node))
}

func (v value) find(_ Context) (Sequence, error) {
	return v.seq, nil
}

type sequence struct {
	all []Expr
}

func Seq(exprs ...Expr) Expr {
	return sequence{
		all: exprs,
	}
}

func (s sequence) Find(node xml.Node) (Sequence, error) {
	return s.find(DefaultContext(node))
}

func (s sequence) find(ctx Context) (Sequence, error) {
	list := make([]Sequence, 0, len(s.all))
	for _, e := range s.all {
		res, err := e.find(ctx)
		if err != nil {
			return Sequence{}, err
		}
		list = append(list, res)
	}
	return Concat(list...), nil
}

type rng struct {
	left  Expr
	right Expr
}

func To(left, right Expr) Expr {
	return rng{
		left:  left,
		right: right,
	}
}

func (r rng) Find(node xml.Node) (Sequence, error) {
	return r.find(DefaultContext(node))
}

func (r rng) find(ctx Context) (Sequence, error) {
	beg, ok, err := evalInteger(ctx, r.left)
	if err != nil || !ok {
		return Sequence{}, err
	}
	end, ok, err := evalInteger(ctx, r.right)
	if err != nil || !ok {
		return Sequence{}, err
	}
	return NewRange(beg, end)
}

func evalInteger(ctx Context, expr Expr) (int64, bool, error) {
	res, err := expr.find(ctx)
	if err != nil || res.Empty() {
		return 0, false, err
	}
	res, err = coerceSequence(OneOf(xsInteger), res)
	if err != nil {
		return 0, false, err
	}
	n, _ := res.First().Value().(int64)
	return n, true, nil
}

type identifier struct {
	ident string
}

func Var(name string) Expr {
	return identifier{
		ident: name,
	}
}

func (i identifier) Find(node xml.Node) (Sequence, error) {
	return i.find(DefaultContext(node))
}

func (i identifier) find(ctx Context) (Sequence, error) {
	if ctx.Environ == nil {
		return Sequence{}, undefinedError("$%s: variable not defined", i.ident)
	}
	expr, err := ctx.Resolve(i.ident)
	if err != nil {
		return Sequence{}, undefinedError("$%s: variable not defined", i.ident)
	}
	return expr.find(ctx)
}

type let struct {
	ident string
	expr  Expr
	body  Expr
}

// Let binds the value of expr to name while evaluating body.
func Let(name string, expr, body Expr) Expr {
	return let{
		ident: name,
		expr:  expr,
		body:  body,
	}
}

func (e let) Find(node xml.Node) (Sequence, error) {
	return e.find(DefaultContext(node))
}

func (e let) find(ctx Context) (Sequence, error) {
	res, err := e.expr.find(ctx)
	if err != nil {
		return Sequence{}, err
	}
	nest := ctx.Nest()
	nest.Define(e.ident, Value(res))
	return e.body.find(nest)
}

type conditional struct {
	test Expr
	csq  Expr
	alt  Expr
}

func If(test, csq, alt Expr) Expr {
	return conditional{
		test: test,
		csq:  csq,
		alt:  alt,
	}
}

func (c conditional) Find(node xml.Node) (Sequence, error) {
	return c.find(DefaultContext(node))
}

func (c conditional) find(ctx Context) (Sequence, error) {
	res, err := c.test.find(ctx)
	if err != nil {
		return Sequence{}, err
	}
	ok, err := EffectiveBooleanValue(res)
	if err != nil {
		return Sequence{}, err
	}
	if ok {
		return c.csq.find(ctx)
	}
	return c.alt.find(ctx)
}

type binary struct {
	op    string
	left  Expr
	right Expr
}

// Binary combines two expressions with one of the operators + - * div mod
// || = != < <= > >= and or.
func Binary(op string, left, right Expr) Expr {
	return binary{
		op:    op,
		left:  left,
		right: right,
	}
}

func (b binary) Find(node xml.Node) (Sequence, error) {
	return b.find(DefaultContext(node))
}

func (b binary) find(ctx Context) (Sequence, error) {
	fn, ok := binaryOp[b.op]
	if !ok {
		return Sequence{}, syntaxError("%s: unknown operator", b.op)
	}
	left, err := b.left.find(ctx)
	if err != nil {
		return Sequence{}, err
	}
	switch b.op {
	case "and", "or":
		ok, err := EffectiveBooleanValue(left)
		if err != nil {
			return Sequence{}, err
		}
		if (b.op == "and" && !ok) || (b.op == "or" && ok) {
			return Singleton(ok), nil
		}
	}
	right, err := b.right.find(ctx)
	if err != nil {
		return Sequence{}, err
	}
	return fn(left, right)
}

type contextItem struct{}

func ContextItem() Expr {
	return contextItem{}
}

func (c contextItem) Find(node xml.Node) (Sequence, error) {
	return c.find(DefaultContext(node))
}

func (_ contextItem) find(ctx Context) (Sequence, error) {
	if ctx.Item == nil {
		return Sequence{}, createError(ErrUndefined, CodeContext, "context item is not defined")
	}
	return NewSequence(ctx.Item), nil
}

// callSite keeps the function resolved for a static call or a named
// reference so that the lookup is done once per registry.
type callSite struct {
	mu  sync.Mutex
	reg *Registry
	ns  environ.Environ[string]
	fn  FunctionItem
}

func (s *callSite) resolve(ctx Context, name xml.QName, arity int) (FunctionItem, error) {
	reg := ctx.registry()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn != nil && s.reg == reg && s.ns == ctx.Namespaces {
		return s.fn, nil
	}
	fn, err := ctx.lookup(name, arity)
	if err != nil {
		return nil, err
	}
	s.reg, s.ns, s.fn = reg, ctx.Namespaces, fn
	return fn, nil
}

type funcRef struct {
	name  xml.QName
	arity int
	err   error
	site  *callSite
}

// Ref is a named function reference: name#arity.
func Ref(name string, arity int) Expr {
	qn, err := xml.ParseName(name)
	if err != nil {
		err = syntaxError("%s: invalid function name", name)
	}
	return funcRef{
		name:  qn,
		arity: arity,
		err:   err,
		site:  new(callSite),
	}
}

func (f funcRef) Find(node xml.Node) (Sequence, error) {
	return f.find(DefaultContext(node))
}

func (f funcRef) find(ctx Context) (Sequence, error) {
	if f.err != nil {
		return Sequence{}, f.err
	}
	fn, err := f.site.resolve(ctx, f.name, f.arity)
	if err != nil {
		return Sequence{}, err
	}
	return NewSequence(fn), nil
}

type funcLit struct {
	params []string
	sig    Signature
	body   Expr
}

// FuncLit is an inline function. Parameters are bound by position to the
// given names; sig gives their types and the result type.
func FuncLit(params []string, sig Signature, body Expr) Expr {
	for len(sig.Params) < len(params) {
		sig.Params = append(sig.Params, AnySequence)
	}
	return funcLit{
		params: params,
		sig:    sig,
		body:   body,
	}
}

func (f funcLit) Find(node xml.Node) (Sequence, error) {
	return f.find(DefaultContext(node))
}

func (f funcLit) find(ctx Context) (Sequence, error) {
	closure := ctx
	fn := Inline(f.sig, func(call Context, args []Sequence) (Sequence, error) {
		nest := closure.Nest()
		nest.Item, nest.Index, nest.Size = nil, 0, 0
		nest.Tracer = call.Tracer
		nest.Parallel = call.Parallel
		for i, p := range f.params {
			nest.Define(p, Value(args[i]))
		}
		return f.body.find(nest)
	})
	return NewSequence(fn), nil
}

type placeholder struct{}

// Placeholder marks an argument of Call or DynCall left open: the call then
// produces a partial application.
func Placeholder() Expr {
	return placeholder{}
}

func (p placeholder) Find(node xml.Node) (Sequence, error) {
	return p.find(DefaultContext(node))
}

func (_ placeholder) find(_ Context) (Sequence, error) {
	return Sequence{}, syntaxError("argument placeholder used outside of a function call")
}

type call struct {
	name xml.QName
	args []Expr
	err  error
	site *callSite
}

// Call is a static function call. The function is found by name and by the
// number of arguments.
func Call(name string, args ...Expr) Expr {
	qn, err := xml.ParseName(name)
	if err != nil {
		err = syntaxError("%s: invalid function name", name)
	}
	return call{
		name: qn,
		args: args,
		err:  err,
		site: new(callSite),
	}
}

func (c call) Find(node xml.Node) (Sequence, error) {
	return c.find(DefaultContext(node))
}

func (c call) find(ctx Context) (Sequence, error) {
	if c.err != nil {
		return Sequence{}, c.err
	}
	fn, err := c.site.resolve(ctx, c.name, len(c.args))
	if err != nil {
		return Sequence{}, err
	}
	return callFunction(ctx, fn, c.args)
}

type dynCall struct {
	fn   Expr
	args []Expr
}

// DynCall calls the function item computed by fn.
func DynCall(fn Expr, args ...Expr) Expr {
	return dynCall{
		fn:   fn,
		args: args,
	}
}

func (c dynCall) Find(node xml.Node) (Sequence, error) {
	return c.find(DefaultContext(node))
}

func (c dynCall) find(ctx Context) (Sequence, error) {
	res, err := c.fn.find(ctx)
	if err != nil {
		return Sequence{}, err
	}
	fn, ok := res.First().(FunctionItem)
	if !ok || !res.Singleton() {
		return Sequence{}, typeError("dynamic call: single function item expected")
	}
	return callFunction(ctx, fn, c.args)
}

func callFunction(ctx Context, fn FunctionItem, args []Expr) (Sequence, error) {
	if len(args) != fn.Arity() {
		return Sequence{}, arityError(CodeType, "%s: expected %d argument(s), got %d", displayName(fn), fn.Arity(), len(args))
	}
	var (
		list    = make([]Sequence, len(args))
		partial = slices.ContainsFunc(args, isPlaceholder)
	)
	for i, a := range args {
		if isPlaceholder(a) {
			continue
		}
		res, err := a.find(ctx)
		if err != nil {
			return Sequence{}, err
		}
		list[i] = res
	}
	if !partial {
		return Invoke(ctx, fn, list)
	}
	slots := make([]Slot, len(args))
	for i := range args {
		if isPlaceholder(args[i]) {
			slots[i] = Hole()
		} else {
			slots[i] = Bind(list[i])
		}
	}
	p, err := PartiallyApply(fn, slots...)
	if err != nil {
		return Sequence{}, err
	}
	return NewSequence(p), nil
}

func isPlaceholder(e Expr) bool {
	_, ok := e.(placeholder)
	return ok
}
