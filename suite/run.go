package suite

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/midbel/xfn/xpath"
	"github.com/sergi/go-diff/diffmatchpatch"
)

type Status int8

const (
	Pass Status = iota
	Fail
	Skip
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

type Result struct {
	Suite string
	Case  string
	Status
	Message string
	// Diff lists the items of the expected and actual results, one per line,
	// prefixed with - when only expected and + when only produced.
	Diff    string
	Elapsed time.Duration
}

// Summary counts the results by status.
func Summary(list []Result) (pass, fail, skip int) {
	for _, r := range list {
		switch r.Status {
		case Pass:
			pass++
		case Fail:
			fail++
		case Skip:
			skip++
		}
	}
	return
}

// Run executes every case of the suite. options are applied after the ones
// derived from the suite itself.
func (s *Suite) Run(options ...xpath.Option) ([]Result, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	var item xpath.Item
	if s.doc != nil {
		item = xpath.NewNodeItem(s.doc)
	}
	base := append(s.options(), xpath.WithFunctions(reg))
	base = append(base, options...)

	var list []Result
	for _, c := range s.Cases {
		list = append(list, s.run(c, item, base))
	}
	return list, nil
}

func (s *Suite) run(c Case, item xpath.Item, options []xpath.Option) Result {
	res := Result{
		Suite: s.Name,
		Case:  c.Name,
	}
	if c.Skip != "" {
		res.Status = Skip
		res.Message = c.Skip
		return res
	}
	if c.Parallel > 0 {
		options = append(slices.Clone(options), xpath.WithParallel(c.Parallel))
	}
	var (
		now      = time.Now()
		ctx      = xpath.NewContext(item, options...)
		got, err = c.Eval(ctx)
	)
	res.Elapsed = time.Since(now)

	if c.Error != "" {
		if err == nil {
			res.Status = Fail
			res.Message = fmt.Sprintf("error %s expected, got %s", c.Error, got.CanonicalizeString())
		} else if code := xpath.ErrorCode(err); code != c.Error {
			res.Status = Fail
			res.Message = fmt.Sprintf("error %s expected, got %s (%s)", c.Error, code, err)
		}
		return res
	}
	if err != nil {
		res.Status = Fail
		res.Message = err.Error()
		return res
	}
	if msg, diff := compare(ctx, c.Expect, got); msg != "" {
		res.Status = Fail
		res.Message = msg
		res.Diff = diff
	}
	return res
}

func compare(ctx xpath.Context, want *Arg, got xpath.Sequence) (string, string) {
	switch {
	case want.Count != nil:
		if n := got.Len(); n != *want.Count {
			return fmt.Sprintf("%d item(s) expected, got %d", *want.Count, n), ""
		}
		return "", ""
	case want.String != nil:
		if str := got.String(); str != *want.String {
			return fmt.Sprintf("string %q expected, got %q", *want.String, str), ""
		}
		return "", ""
	}
	expr, err := want.Expr()
	if err != nil {
		return err.Error(), ""
	}
	seq, err := xpath.EvalWithContext(expr, ctx)
	if err != nil {
		return err.Error(), ""
	}
	if seq.CanonicalizeString() == got.CanonicalizeString() {
		return "", ""
	}
	return "result mismatched", Diff(seq, got)
}

// Diff compares two sequences item by item.
func Diff(want, got xpath.Sequence) string {
	var (
		dmp           = diffmatchpatch.New()
		src, dst, all = dmp.DiffLinesToChars(itemLines(want), itemLines(got))
		diffs         = dmp.DiffMain(src, dst, false)
		str           strings.Builder
	)
	for _, d := range dmp.DiffCharsToLines(diffs, all) {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			str.WriteString(prefix)
			str.WriteString(line)
		}
	}
	return str.String()
}

func itemLines(seq xpath.Sequence) string {
	var str strings.Builder
	for _, i := range seq.All() {
		line := xpath.NewSequence(i).CanonicalizeString()
		line = strings.TrimPrefix(line, "seq(")
		line = strings.TrimSuffix(line, ")")
		str.WriteString(line)
		str.WriteString("\n")
	}
	return str.String()
}
