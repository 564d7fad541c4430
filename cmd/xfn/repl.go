package main

import (
	"flag"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/midbel/cli"
	"github.com/midbel/xfn/suite"
	"github.com/midbel/xfn/xpath"
)

var replCmd = cli.Command{
	Name:    "repl",
	Summary: "call functions interactively",
	Handler: &ReplCmd{},
}

type ReplCmd struct {
	Config
}

func (r *ReplCmd) Run(args []string) error {
	set := flag.NewFlagSet("repl", flag.ContinueOnError)
	r.Config.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	ctx, err := r.Config.Context()
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(newRepl(ctx, getStyles(r.Color))).Run()
	return err
}

const (
	replPrompt  = "xfn> "
	replHelp    = "enter a call like fn:concat#2 a, b - :funcs [prefix], :debug <call>, :clear, :quit"
	replHistory = 200
)

type replModel struct {
	input  textinput.Model
	ctx    xpath.Context
	styles Styles

	output  []string
	history []string
	index   int
}

func newRepl(ctx xpath.Context, styles Styles) replModel {
	in := textinput.New()
	in.Prompt = replPrompt
	in.Placeholder = "fn:head#1 [1, 2, 3]"
	in.Focus()
	return replModel{
		input:  in,
		ctx:    ctx,
		styles: styles,
		output: []string{styles.Faint.Render(replHelp)},
	}
}

func (m replModel) Init() tea.Cmd {
	return nil
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "ctrl+c", "ctrl+d", "esc":
			return m, tea.Quit
		case "up":
			if m.index > 0 {
				m.index--
				m.input.SetValue(m.history[m.index])
			}
			return m, nil
		case "down":
			if m.index < len(m.history)-1 {
				m.index++
				m.input.SetValue(m.history[m.index])
			} else {
				m.index = len(m.history)
				m.input.SetValue("")
			}
			return m, nil
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, line)
			m.index = len(m.history)
			if line == ":q" || line == ":quit" {
				return m, tea.Quit
			}
			m.print(m.styles.Faint.Render(replPrompt + line))
			m.exec(line)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m replModel) View() tea.View {
	var str strings.Builder
	for _, line := range m.output {
		str.WriteString(line)
		str.WriteString("\n")
	}
	str.WriteString(m.input.View())
	return tea.NewView(str.String())
}

func (m *replModel) exec(line string) {
	cmd, rest := line, ""
	if ix := strings.IndexByte(line, ' '); ix > 0 {
		cmd, rest = line[:ix], strings.TrimSpace(line[ix+1:])
	}
	switch cmd {
	case ":clear":
		m.output = m.output[:0]
	case ":funcs":
		for _, str := range xpath.Signatures(m.ctx.Functions) {
			if strings.HasPrefix(str, rest) {
				m.print(str)
			}
		}
	case ":debug":
		call, err := suite.ParseCall(rest)
		if err != nil {
			m.fail(err)
			return
		}
		expr, err := call.Expr()
		if err != nil {
			m.fail(err)
			return
		}
		m.print(xpath.Debug(expr))
	default:
		if strings.HasPrefix(cmd, ":") {
			m.fail(fmt.Errorf("%s: unknown command", cmd))
			return
		}
		call, err := suite.ParseCall(line)
		if err != nil {
			m.fail(err)
			return
		}
		res, err := call.Eval(m.ctx)
		if err != nil {
			m.fail(err)
			return
		}
		m.print(res.CanonicalizeString())
	}
}

func (m *replModel) fail(err error) {
	m.print(m.styles.Error.Render(err.Error()))
}

func (m *replModel) print(line string) {
	m.output = append(m.output, line)
	if n := len(m.output); n > replHistory {
		m.output = m.output[n-replHistory:]
	}
}
