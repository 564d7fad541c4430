package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
)

var errFail = errors.New("fail")

var (
	summary = "xfn calls and tests the higher order functions library"
	help    = `xfn gives access to the function library from the command line.

Arguments of functions are written in YAML: plain scalars are atomic
values, lists are sequences and mappings describe function references,
partial applications, inline functions and nested calls.

	xfn call fn:filter#2 '{ref: fn:boolean#1}' '[0, 1, 2]'
	xfn run suite/testdata/*.yaml
`
)

func main() {
	var (
		set  = cli.NewFlagSet("xfn")
		root = prepare()
	)
	root.SetSummary(summary)
	root.SetHelp(help)
	if err := set.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			root.Help()
			os.Exit(2)
		}
	}
	err := root.Execute(set.Args())
	if err != nil {
		if s, ok := err.(cli.SuggestionError); ok && len(s.Others) > 0 {
			fmt.Fprintln(os.Stderr, "similar command(s)")
			for _, n := range s.Others {
				fmt.Fprintln(os.Stderr, "-", n)
			}
		}
		if !errors.Is(err, errFail) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func prepare() *cli.CommandTrie {
	root := cli.New()
	root.Register([]string{"run"}, &runCmd)
	root.Register([]string{"test"}, &runCmd)
	root.Register([]string{"call"}, &callCmd)
	root.Register([]string{"call", "debug"}, &debugCmd)
	root.Register([]string{"debug"}, &debugCmd)
	root.Register([]string{"funcs"}, &funcsCmd)
	root.Register([]string{"repl"}, &replCmd)

	return root
}
