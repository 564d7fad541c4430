package xpath

import (
	"errors"
	"testing"

	"github.com/midbel/xfn/xml"
)

func TestParseReference(t *testing.T) {
	data := []struct {
		Ref   string
		Name  string
		Arity int
		Err   error
		Code  string
	}{
		{Ref: "fn:filter#2", Name: "fn:filter", Arity: 2},
		{Ref: "head#1", Name: "head", Arity: 1},
		{Ref: "hof:id#007", Name: "hof:id", Arity: 7},
		{Ref: "true#0", Name: "true", Arity: 0},
		{Ref: "Q{http://www.w3.org/2005/xpath-functions}tail#1", Name: "tail", Arity: 1},
		{Ref: "fn:filter#2147483647", Name: "fn:filter", Arity: MaxArity},
		{Ref: "fn:filter", Err: ErrSyntax, Code: CodeSyntax},
		{Ref: "fn:filter#", Err: ErrSyntax, Code: CodeSyntax},
		{Ref: "#2", Err: ErrSyntax, Code: CodeSyntax},
		{Ref: "fn:filter#-1", Err: ErrSyntax, Code: CodeSyntax},
		{Ref: "fn:filter#1.5", Err: ErrSyntax, Code: CodeSyntax},
		{Ref: "fn:filter#2147483648", Err: ErrArity, Code: CodeUndefined},
		{Ref: "fn:filter#99999999999999999999999999999999", Err: ErrArity, Code: CodeUndefined},
	}
	for _, d := range data {
		qn, arity, err := ParseReference(d.Ref)
		if d.Err != nil {
			if !errors.Is(err, d.Err) {
				t.Errorf("%s: expected error %v, got %v", d.Ref, d.Err, err)
				continue
			}
			if code := ErrorCode(err); code != d.Code {
				t.Errorf("%s: code mismatched! want %s, got %s", d.Ref, d.Code, code)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Ref, err)
			continue
		}
		if qn.QualifiedName() != d.Name || arity != d.Arity {
			t.Errorf("%s: reference mismatched! want %s#%d, got %s#%d", d.Ref, d.Name, d.Arity, qn.QualifiedName(), arity)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	data := []struct {
		Ref  string
		Name string
		Err  error
		Code string
	}{
		{Ref: "fn:filter#2", Name: "filter"},
		{Ref: "for-each#2", Name: "for-each"},
		{Ref: "Q{http://www.w3.org/2005/xpath-functions}head#1", Name: "head"},
		{Ref: "hof:top-k-by#3", Name: "top-k-by"},
		{Ref: "xs:integer#1", Name: "integer"},
		{Ref: "concat#8", Name: "concat"},
		{Ref: "fn:filter#3", Err: ErrArity, Code: CodeUndefined},
		{Ref: "concat#1", Err: ErrArity, Code: CodeUndefined},
		{Ref: "fn:filter#2147483647", Err: ErrArity, Code: CodeUndefined},
		{Ref: "fn:unknown#1", Err: ErrUndefined, Code: CodeUndefined},
		{Ref: "foo:filter#2", Err: ErrUndefined, Code: CodeUndefined},
	}
	reg := DefaultRegistry()
	for _, d := range data {
		fn, err := reg.Resolve(d.Ref)
		if d.Err != nil {
			if !errors.Is(err, d.Err) {
				t.Errorf("%s: expected error %v, got %v", d.Ref, d.Err, err)
				continue
			}
			if code := ErrorCode(err); code != d.Code {
				t.Errorf("%s: code mismatched! want %s, got %s", d.Ref, d.Code, code)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Ref, err)
			continue
		}
		name, ok := fn.Name()
		if !ok || name.LocalName() != d.Name {
			t.Errorf("%s: name mismatched! want %s, got %s", d.Ref, d.Name, name)
		}
	}
}

func TestRegistryEnclosed(t *testing.T) {
	var (
		base = DefaultRegistry()
		user = base.Enclosed()
		name = xml.ExpandedName("double", "local", "urn:local")
	)
	double := NewFunction(name, Typed("xs:integer", "xs:integer"), func(_ Context, args []Sequence) (Sequence, error) {
		n, _ := args[0].First().Value().(int64)
		return Singleton(n * 2), nil
	})
	if err := user.Define(double); err != nil {
		t.Errorf("fail to define function: %s", err)
		return
	}
	if err := user.Define(Inline(Untyped(1), nil)); err == nil {
		t.Errorf("anonymous function should not be registered")
	}
	if _, err := user.Lookup(name, 1); err != nil {
		t.Errorf("user function not found: %s", err)
	}
	if _, err := user.Lookup(fnName("head"), 1); err != nil {
		t.Errorf("builtin function not found from enclosed registry: %s", err)
	}
	if _, err := base.Lookup(name, 1); !errors.Is(err, ErrUndefined) {
		t.Errorf("user function visible from base registry: %v", err)
	}
	if _, err := DefaultRegistry().Lookup(name, 1); !errors.Is(err, ErrUndefined) {
		t.Errorf("user function leaked into the builtin registry: %v", err)
	}

	ctx := NewContext(nil, WithFunctions(user), WithNamespace("local", "urn:local"))
	res, err := EvalWithContext(Call("local:double", Integer(21)), ctx)
	if err != nil {
		t.Errorf("fail to call user function: %s", err)
		return
	}
	if got := res.CanonicalizeString(); got != "seq(int(42))" {
		t.Errorf("result mismatched! got %s", got)
	}
}

func TestRegistryNames(t *testing.T) {
	names := DefaultRegistry().Names()
	for _, want := range []string{"fn:filter#2", "fn:fold-left#3", "fn:fold-right#3", "fn:head#1", "fn:tail#1", "fn:function-name#1", "hof:until#3"} {
		var found bool
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s: builtin function not listed", want)
		}
	}
}
