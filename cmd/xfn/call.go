package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/midbel/cli"
	"github.com/midbel/xfn/suite"
	"github.com/midbel/xfn/xml"
	"github.com/midbel/xfn/xpath"
)

var callCmd = cli.Command{
	Name:    "call",
	Summary: "call a function with arguments written in YAML",
	Handler: &CallCmd{},
}

var debugCmd = cli.Command{
	Name:    "debug",
	Summary: "print the expression built for a function call",
	Handler: &DebugCmd{},
}

type CallCmd struct {
	Canonical bool
	Time      bool
	Config
}

const callInfo = "call took %s - %d item(s) returned by %s"

func (c *CallCmd) Run(args []string) error {
	set := flag.NewFlagSet("call", flag.ContinueOnError)
	set.BoolVar(&c.Canonical, "canonical", false, "print the canonical form of the result")
	set.BoolVar(&c.Time, "time", false, "print the time taken by the call")
	c.Config.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	call, err := parseCall(set.Args())
	if err != nil {
		return err
	}
	ctx, err := c.Config.Context()
	if err != nil {
		return err
	}
	var (
		styles = getStyles(c.Color)
		now    = time.Now()
	)
	res, err := call.Eval(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render(err.Error()))
		return errFail
	}
	elapsed := time.Since(now)
	printSequence(styles, res, c.Canonical)
	if c.Time {
		fmt.Fprintln(os.Stdout, styles.Faint.Render(fmt.Sprintf(callInfo, elapsed, res.Len(), call.Ref)))
	}
	return nil
}

type DebugCmd struct{}

func (d *DebugCmd) Run(args []string) error {
	set := cli.NewFlagSet("debug")
	if err := set.Parse(args); err != nil {
		return err
	}
	call, err := parseCall(set.Args())
	if err != nil {
		return err
	}
	expr, err := call.Expr()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, xpath.Debug(expr))
	return nil
}

func parseCall(args []string) (suite.Call, error) {
	var call suite.Call
	if len(args) == 0 {
		return call, fmt.Errorf("missing function reference")
	}
	call.Ref = args[0]
	for _, str := range args[1:] {
		a, err := suite.ParseArg(str)
		if err != nil {
			return call, fmt.Errorf("%s: %w", str, err)
		}
		call.Args = append(call.Args, a)
	}
	return call, nil
}

// printSequence writes one item per line. Nodes are serialized, function
// items are shown by their name and arity.
func printSequence(styles Styles, seq xpath.Sequence, canonical bool) {
	if canonical {
		fmt.Fprintln(os.Stdout, seq.CanonicalizeString())
		return
	}
	if seq.Empty() {
		fmt.Fprintln(os.Stdout, styles.Faint.Render("()"))
		return
	}
	for _, i := range seq.All() {
		switch {
		case i.Node() != nil:
			fmt.Fprintln(os.Stdout, xml.WriteNode(i.Node()))
		case !i.Atomic():
			fmt.Fprintln(os.Stdout, styles.Name.Render(xpath.NewSequence(i).String()))
		default:
			fmt.Fprintln(os.Stdout, xpath.NewSequence(i).String())
		}
	}
}
