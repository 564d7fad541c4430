package xpath

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/midbel/xfn/environ"
	"github.com/midbel/xfn/xml"
)

// MaxArity is the highest arity accepted in a name#arity reference.
const MaxArity = math.MaxInt32

// Registry maps a function name and an arity to a function item. Names are
// compared by expanded name.
type Registry struct {
	env environ.Environ[FunctionItem]
}

func NewRegistry() *Registry {
	return &Registry{
		env: environ.Empty[FunctionItem](),
	}
}

// Define registers a named function under its name and arity.
func (r *Registry) Define(fn FunctionItem) error {
	name, ok := fn.Name()
	if !ok {
		return fmt.Errorf("anonymous function can not be registered: %w", ErrType)
	}
	r.env.Define(functionKey(name, fn.Arity()), fn)
	return nil
}

func (r *Registry) Lookup(name xml.QName, arity int) (FunctionItem, error) {
	if arity < 0 || arity > MaxArity {
		return nil, arityError(CodeUndefined, "%s#%d: arity out of range [0:%d]", name.QualifiedName(), arity, MaxArity)
	}
	fn, err := r.env.Resolve(functionKey(name, arity))
	if err == nil {
		return fn, nil
	}
	if arities := r.arities(name); len(arities) > 0 {
		return nil, arityError(CodeUndefined, "%s#%d: function not defined with this arity (defined with %v)", name.QualifiedName(), arity, arities)
	}
	return nil, undefinedError("%s#%d: function not defined", name.QualifiedName(), arity)
}

// Resolve finds the function referenced by name#arity. Only the fn, xs and
// hof prefixes are known; unprefixed names are in the fn namespace.
func (r *Registry) Resolve(ref string) (FunctionItem, error) {
	name, arity, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}
	ctx := Context{
		Functions:  r,
		Namespaces: defaultNamespaces(),
	}
	return ctx.lookup(name, arity)
}

// Names returns the qualified names and arities of all the registered
// functions.
func (r *Registry) Names() []string {
	var list []string
	for _, k := range r.env.Names() {
		fn, err := r.env.Resolve(k)
		if err != nil {
			continue
		}
		list = append(list, displayName(fn))
	}
	slices.Sort(list)
	return list
}

// Functions returns all the registered functions ordered by name and arity.
func (r *Registry) Functions() []FunctionItem {
	var list []FunctionItem
	for _, k := range r.env.Names() {
		if fn, err := r.env.Resolve(k); err == nil {
			list = append(list, fn)
		}
	}
	slices.SortFunc(list, func(a, b FunctionItem) int {
		return strings.Compare(displayName(a), displayName(b))
	})
	return list
}

// Enclosed creates a registry for user-declared functions layered on top of
// r. Definitions in the returned registry are invisible from r.
func (r *Registry) Enclosed() *Registry {
	return &Registry{
		env: environ.Enclosed(r.env),
	}
}

func (r *Registry) clone() *Registry {
	c, ok := r.env.(interface {
		Clone() environ.Environ[FunctionItem]
	})
	if !ok {
		return r.Enclosed()
	}
	return &Registry{
		env: c.Clone(),
	}
}

func (r *Registry) arities(name xml.QName) []int {
	var (
		list   []int
		prefix = functionKey(name, 0)
	)
	prefix = prefix[:strings.LastIndexByte(prefix, '#')+1]
	for _, k := range r.env.Names() {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil {
			list = append(list, n)
		}
	}
	slices.Sort(list)
	return list
}

func functionKey(name xml.QName, arity int) string {
	return fmt.Sprintf("Q{%s}%s#%d", name.Uri, name.Name, arity)
}

// ParseReference splits a reference written as name#arity. The arity must be
// a non-negative decimal integer; an arity larger than MaxArity is reported
// as an arity error.
func ParseReference(ref string) (xml.QName, int, error) {
	var qn xml.QName
	ix := strings.LastIndexByte(ref, '#')
	if ix <= 0 {
		return qn, 0, syntaxError("%s: missing arity in function reference", ref)
	}
	name, digits := ref[:ix], ref[ix+1:]
	if digits == "" {
		return qn, 0, syntaxError("%s: missing arity in function reference", ref)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return qn, 0, syntaxError("%s: arity must be a non-negative integer", ref)
		}
	}
	qn, err := xml.ParseName(name)
	if err != nil {
		return qn, 0, syntaxError("%s: invalid function name", ref)
	}
	digits = strings.TrimLeft(digits, "0")
	if len(digits) > len(strconv.Itoa(MaxArity)) {
		return qn, 0, arityError(CodeUndefined, "%s: arity exceeds %d", ref, MaxArity)
	}
	arity, err := strconv.Atoi(digits)
	if digits == "" {
		arity, err = 0, nil
	}
	if err != nil || arity > MaxArity {
		return qn, 0, arityError(CodeUndefined, "%s: arity exceeds %d", ref, MaxArity)
	}
	return qn, arity, nil
}
