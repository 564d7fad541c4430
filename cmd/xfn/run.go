package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/midbel/cli"
	"github.com/midbel/xfn/suite"
)

var runCmd = cli.Command{
	Name:    "run",
	Summary: "run conformance suites written in YAML",
	Handler: &RunCmd{},
}

type RunCmd struct {
	Quiet   bool
	Verbose bool
	Config
}

func (r *RunCmd) Run(args []string) error {
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	set.BoolVar(&r.Quiet, "q", false, "only print the summary")
	set.BoolVar(&r.Verbose, "v", false, "print passing cases too")
	r.Config.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	files, err := expandFiles(set.Args())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no suite given")
	}
	var (
		styles  = getStyles(r.Color)
		spinner *Spinner
		results []suite.Result
		now     = time.Now()
	)
	if !r.Quiet && isTerminal(os.Stderr) {
		spinner = NewSpinner(os.Stderr)
		spinner.Start()
	}
	for _, f := range files {
		if spinner != nil {
			spinner.SetMessage("running " + filepath.Base(f))
		}
		s, err := suite.Load(f)
		if err != nil {
			if spinner != nil {
				spinner.Stop()
			}
			return err
		}
		res, err := s.Run(r.Config.Options()...)
		if err != nil {
			if spinner != nil {
				spinner.Stop()
			}
			return err
		}
		results = append(results, res...)
	}
	if spinner != nil {
		spinner.Stop()
	}
	if !r.Quiet {
		r.report(styles, results)
	}
	pass, fail, skip := suite.Summary(results)
	fmt.Fprintf(os.Stdout, "%s %d, %s %d, %s %d (%s)", styles.Pass.Render("pass"), pass, styles.Fail.Render("fail"), fail, styles.Skip.Render("skip"), skip, time.Since(now))
	fmt.Fprintln(os.Stdout)
	if fail > 0 {
		return errFail
	}
	return nil
}

func (r *RunCmd) report(styles Styles, results []suite.Result) {
	for _, res := range results {
		var status string
		switch res.Status {
		case suite.Pass:
			if !r.Verbose {
				continue
			}
			status = styles.Pass.Render("PASS")
		case suite.Fail:
			status = styles.Fail.Render("FAIL")
		case suite.Skip:
			status = styles.Skip.Render("SKIP")
		}
		fmt.Fprintf(os.Stdout, "%s %s/%s", status, res.Suite, styles.Name.Render(res.Case))
		if res.Status == suite.Pass {
			fmt.Fprintf(os.Stdout, " %s", styles.Faint.Render(res.Elapsed.String()))
		}
		fmt.Fprintln(os.Stdout)
		if res.Message != "" {
			fmt.Fprintf(os.Stdout, "    %s", styles.Error.Render(res.Message))
			fmt.Fprintln(os.Stdout)
		}
		if res.Diff != "" {
			fmt.Fprint(os.Stdout, styles.renderDiff(res.Diff))
		}
	}
}

// expandFiles replaces the directories by the YAML files they contain and
// expands the glob patterns.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		if s, err := os.Stat(a); err == nil && s.IsDir() {
			list, err := filepath.Glob(filepath.Join(a, "*.yaml"))
			if err != nil {
				return nil, err
			}
			files = append(files, list...)
			continue
		}
		list, err := filepath.Glob(a)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%s: no such file", a)
		}
		files = append(files, list...)
	}
	return files, nil
}
