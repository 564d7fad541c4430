package suite

import (
	"errors"
	"strings"
	"testing"

	"github.com/midbel/xfn/xpath"
)

func TestSuites(t *testing.T) {
	list, err := LoadAll("testdata/*.yaml")
	if err != nil {
		t.Errorf("fail to load suites: %s", err)
		return
	}
	if len(list) == 0 {
		t.Errorf("no suite found in testdata")
		return
	}
	for _, s := range list {
		res, err := s.Run()
		if err != nil {
			t.Errorf("%s: fail to run suite: %s", s.Name, err)
			continue
		}
		for _, r := range res {
			if r.Status != Fail {
				continue
			}
			t.Errorf("%s/%s: %s", r.Suite, r.Case, r.Message)
			if r.Diff != "" {
				t.Logf("diff:\n%s", r.Diff)
			}
		}
		if _, _, skip := Summary(res); skip > 0 {
			t.Logf("%s: %d case(s) skipped", s.Name, skip)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	data := []struct {
		Name  string
		Input string
	}{
		{
			Name:  "missing-name",
			Input: "cases:\n  - call: fn:head#1\n    error: XPTY0004\n",
		},
		{
			Name:  "missing-call",
			Input: "cases:\n  - name: test\n    error: XPTY0004\n",
		},
		{
			Name:  "missing-expectation",
			Input: "cases:\n  - name: test\n    call: fn:head#1\n",
		},
		{
			Name:  "both-expectations",
			Input: "cases:\n  - name: test\n    call: fn:head#1\n    expect: {empty: true}\n    error: XPTY0004\n",
		},
	}
	for _, d := range data {
		_, err := Parse(strings.NewReader(d.Input))
		if !errors.Is(err, ErrCase) {
			t.Errorf("%s: invalid case error expected, got %v", d.Name, err)
		}
	}
}

func TestRunStatus(t *testing.T) {
	const input = `
name: status
cases:
  - name: pass
    call: fn:tail#1
    args:
      - {seq: [1, 2, 3]}
    expect: {seq: [2, 3]}
  - name: mismatch
    call: fn:tail#1
    args:
      - {seq: [1, 2, 3]}
    expect: {seq: [2, 4]}
  - name: missing-error
    call: fn:head#1
    args:
      - {seq: [1, 2]}
    error: XPTY0004
  - name: skipped
    skip: not ready
    call: fn:head#1
    error: XPTY0004
`
	s, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Errorf("fail to parse suite: %s", err)
		return
	}
	res, err := s.Run()
	if err != nil {
		t.Errorf("fail to run suite: %s", err)
		return
	}
	want := []Status{Pass, Fail, Fail, Skip}
	if len(res) != len(want) {
		t.Errorf("results mismatched! want %d, got %d", len(want), len(res))
		return
	}
	for i := range want {
		if res[i].Status != want[i] {
			t.Errorf("%s: status mismatched! want %s, got %s (%s)", res[i].Case, want[i], res[i].Status, res[i].Message)
		}
	}
	if diff := res[1].Diff; !strings.Contains(diff, "-int(4)") || !strings.Contains(diff, "+int(3)") {
		t.Errorf("unexpected diff:\n%s", diff)
	}
	pass, fail, skip := Summary(res)
	if pass != 1 || fail != 2 || skip != 1 {
		t.Errorf("summary mismatched! got %d/%d/%d", pass, fail, skip)
	}
}

func TestDiff(t *testing.T) {
	var (
		want = xpath.Concat(xpath.Singleton("a"), xpath.Singleton(int64(1)), xpath.Singleton(true))
		got  = xpath.Concat(xpath.Singleton("a"), xpath.Singleton(2.5), xpath.Singleton(true))
	)
	diff := Diff(want, got)
	for _, line := range []string{" str(a)\n", "-int(1)\n", "+double(2.5)\n", " bool(true)\n"} {
		if !strings.Contains(diff, line) {
			t.Errorf("%q not found in diff:\n%s", line, diff)
		}
	}
	if diff := Diff(want, want); strings.ContainsAny(diff, "+-") {
		t.Errorf("identical sequences should not differ:\n%s", diff)
	}
}

func TestUserFunctionNamespace(t *testing.T) {
	const input = `
functions:
  - name: twice
    params: [x]
    body: "x * 2"
cases: []
`
	s, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Errorf("fail to parse suite: %s", err)
		return
	}
	if _, err := s.Run(); err == nil {
		t.Errorf("function without namespace should be rejected")
	}
}

func TestCallExpr(t *testing.T) {
	call := Call{
		Ref: "fn:filter#2",
		Args: []*Arg{
			{Partial: "fn:starts-with#2", With: []*Arg{nil, {Value: "a"}}},
			{Range: []int64{1, 3}},
		},
	}
	expr, err := call.Expr()
	if err != nil {
		t.Errorf("fail to build expression: %s", err)
		return
	}
	want := `dyncall(ref(fn:filter#2), call(fn:starts-with)(?, value(seq(str(a)))), range(number(1), number(3)))`
	if got := xpath.Debug(expr); got != want {
		t.Errorf("expression mismatched!\nwant: %s\ngot:  %s", want, got)
	}

	call.Args[0].With = call.Args[0].With[:1]
	if _, err := call.Expr(); !errors.Is(err, ErrCase) {
		t.Errorf("invalid case error expected for partial application, got %v", err)
	}
}

func TestParseCall(t *testing.T) {
	data := []struct {
		Input string
		Want  string
		Err   bool
	}{
		{
			Input: "fn:upper-case#1 abc",
			Want:  "seq(str(ABC))",
		},
		{
			Input: "  fn:concat#3 a, 1, true ",
			Want:  "seq(str(a1true))",
		},
		{
			Input: "fn:filter#2 {ref: fn:boolean#1}, [0, 1, '', x]",
			Want:  "seq(int(1), str(x))",
		},
		{
			Input: "fn:fold-left#3 {inline: {params: [a, b], body: 'a + b'}}, 0, {range: [1, 10]}",
			Want:  "seq(int(55))",
		},
		{
			Input: "fn:for-each#2 {partial: 'fn:concat#2', with: [~, '!']}, [a, b]",
			Want:  "seq(str(a!), str(b!))",
		},
		{
			Input: "hof:id#1 {empty: true}",
			Want:  "seq()",
		},
		{
			Input: "fn:count#1 ~",
			Want:  "seq(int(0))",
		},
		{
			Input: "  ",
			Err:   true,
		},
		{
			Input: "fn:head#1 [1, 2",
			Err:   true,
		},
	}
	for _, d := range data {
		c, err := ParseCall(d.Input)
		if d.Err {
			if err == nil {
				t.Errorf("%q: error expected", d.Input)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %s", d.Input, err)
			continue
		}
		res, err := c.Eval(xpath.NewContext(nil))
		if err != nil {
			t.Errorf("%q: fail to evaluate call: %s", d.Input, err)
			continue
		}
		if got := res.CanonicalizeString(); got != d.Want {
			t.Errorf("%q: result mismatched! want %s, got %s", d.Input, d.Want, got)
		}
	}
}

func TestParseArg(t *testing.T) {
	data := []struct {
		Input string
		Want  string
	}{
		{Input: "42", Want: "seq(int(42))"},
		{Input: "-1.5", Want: "seq(double(-1.5))"},
		{Input: "hello", Want: "seq(str(hello))"},
		{Input: "'42'", Want: "seq(str(42))"},
		{Input: "[1, a]", Want: "seq(int(1), str(a))"},
		{Input: "{empty: true}", Want: "seq()"},
		{Input: "{range: [3, 5]}", Want: "seq(int(3), int(4), int(5))"},
		{Input: "{apply: {call: 'fn:reverse#1', args: [[1, 2]]}}", Want: "seq(int(2), int(1))"},
	}
	for _, d := range data {
		a, err := ParseArg(d.Input)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", d.Input, err)
			continue
		}
		expr, err := a.Expr()
		if err != nil {
			t.Errorf("%q: fail to build expression: %s", d.Input, err)
			continue
		}
		res, err := xpath.EvalWithContext(expr, xpath.NewContext(nil))
		if err != nil {
			t.Errorf("%q: fail to evaluate argument: %s", d.Input, err)
			continue
		}
		if got := res.CanonicalizeString(); got != d.Want {
			t.Errorf("%q: argument mismatched! want %s, got %s", d.Input, d.Want, got)
		}
	}
}
