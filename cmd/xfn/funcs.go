package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/midbel/cli"
	"github.com/midbel/xfn/xpath"
)

var funcsCmd = cli.Command{
	Name:    "funcs",
	Alias:   []string{"functions"},
	Summary: "list the functions of the library with their signature",
	Handler: &FuncsCmd{},
}

type FuncsCmd struct {
	Names bool
	Color string
}

func (f *FuncsCmd) Run(args []string) error {
	set := cli.NewFlagSet("funcs")
	set.BoolVar(&f.Names, "n", false, "only print name and arity")
	set.StringVar(&f.Color, "color", colorAuto, "colorize output: auto, always or never")
	if err := set.Parse(args); err != nil {
		return err
	}
	var (
		styles = getStyles(f.Color)
		reg    = xpath.DefaultRegistry()
		list   []string
	)
	if f.Names {
		list = reg.Names()
	} else {
		list = xpath.Signatures(reg)
	}
	for _, str := range list {
		if !matchPrefix(str, set.Args()) {
			continue
		}
		name, rest := splitSignature(str)
		fmt.Fprintln(os.Stdout, styles.Name.Render(name)+rest)
	}
	return nil
}

func matchPrefix(str string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(str, p) {
			return true
		}
	}
	return false
}

func splitSignature(str string) (string, string) {
	ix := strings.IndexAny(str, "(#")
	if ix < 0 {
		return str, ""
	}
	return str[:ix], str[ix:]
}
