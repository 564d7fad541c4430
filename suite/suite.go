// Package suite runs conformance cases for the function library. Cases are
// described in YAML files: each one calls a function with arguments built from
// plain values, sequences, function references, partial applications or
// inline functions whose body is an expr-lang program.
package suite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/goccy/go-yaml"
	"github.com/midbel/xfn/xml"
	"github.com/midbel/xfn/xpath"
)

var ErrCase = errors.New("invalid case")

type Suite struct {
	Name       string            `yaml:"name"`
	File       string            `yaml:"-"`
	Namespaces map[string]string `yaml:"namespaces"`
	Document   string            `yaml:"document"`
	Parallel   int               `yaml:"parallel"`
	Functions  []Declaration     `yaml:"functions"`
	Cases      []Case            `yaml:"cases"`

	doc *xml.Document
}

// Declaration is a user function registered before the cases are run.
type Declaration struct {
	Inline `yaml:",inline"`

	Name string `yaml:"name"`
}

type Case struct {
	Call `yaml:",inline"`

	Name     string `yaml:"name"`
	Expect   *Arg   `yaml:"expect"`
	Error    string `yaml:"error"`
	Parallel int    `yaml:"parallel"`
	Skip     string `yaml:"skip"`
}

// Call is a function call: the function is given as a name#arity reference.
type Call struct {
	Ref  string `yaml:"call"`
	Args []*Arg `yaml:"args"`
}

// Arg describes how to build one argument or an expected result. Exactly one
// field should be set.
type Arg struct {
	Value   any     `yaml:"value"`
	Seq     []any   `yaml:"seq"`
	Range   []int64 `yaml:"range"`
	Empty   bool    `yaml:"empty"`
	Ref     string  `yaml:"ref"`
	Partial string  `yaml:"partial"`
	With    []*Arg  `yaml:"with"`
	Inline  *Inline `yaml:"inline"`
	Apply   *Call   `yaml:"apply"`
	Context bool    `yaml:"context"`
	Count   *int    `yaml:"count"`
	String  *string `yaml:"string"`

	null bool
}

// UnmarshalYAML accepts the mapping form of an argument as well as a plain
// scalar, used as value, or a plain list, used as sequence.
func (a *Arg) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	switch v := v.(type) {
	case map[string]any:
		type plain Arg
		var p plain
		if err := unmarshal(&p); err != nil {
			return err
		}
		*a = Arg(p)
	case []any:
		a.Seq = v
	case nil:
		a.null = true
	default:
		a.Value = v
	}
	return nil
}

// ParseArg decodes one argument written in YAML.
func ParseArg(str string) (*Arg, error) {
	var a Arg
	if err := yaml.Unmarshal([]byte(str), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ParseCall decodes a function reference followed by a comma separated list
// of arguments written in YAML, like "fn:concat#2 a, {seq: [1, 2]}".
func ParseCall(str string) (Call, error) {
	var (
		c         Call
		ref, rest = cutSpace(str)
	)
	if ref == "" {
		return c, fmt.Errorf("%w: missing function reference", ErrCase)
	}
	c.Ref = ref
	if rest == "" {
		return c, nil
	}
	if err := yaml.Unmarshal([]byte("["+rest+"]"), &c.Args); err != nil {
		return c, err
	}
	return c, nil
}

func cutSpace(str string) (string, string) {
	str = strings.TrimSpace(str)
	ix := strings.IndexFunc(str, unicode.IsSpace)
	if ix < 0 {
		return str, ""
	}
	return str[:ix], strings.TrimSpace(str[ix:])
}

// Inline is a function whose body is an expr-lang program. Parameters are
// available by name in the program.
type Inline struct {
	Params []string `yaml:"params"`
	Types  []string `yaml:"types"`
	Result string   `yaml:"result"`
	Body   string   `yaml:"body"`
}

func Load(file string) (*Suite, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	s, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	s.File = file
	if s.Name == "" {
		s.Name = filepath.Base(file)
	}
	return s, nil
}

// LoadAll loads every suite matching the given glob pattern, sorted by file
// name.
func LoadAll(pattern string) ([]*Suite, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	var list []*Suite
	for _, f := range files {
		s, err := Load(f)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func Parse(r io.Reader) (*Suite, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return nil, err
	}
	if s.Document != "" {
		doc, err := xml.ParseString(s.Document)
		if err != nil {
			return nil, err
		}
		s.doc = doc
	}
	for i, c := range s.Cases {
		if err := c.check(); err != nil {
			return nil, fmt.Errorf("case #%d (%s): %w", i+1, c.Name, err)
		}
	}
	return &s, nil
}

func (c Case) check() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrCase)
	}
	if c.Ref == "" {
		return fmt.Errorf("%w: missing function reference", ErrCase)
	}
	if c.Expect == nil && c.Error == "" {
		return fmt.Errorf("%w: expected result or error code should be given", ErrCase)
	}
	if c.Expect != nil && c.Error != "" {
		return fmt.Errorf("%w: expected result and error code are exclusive", ErrCase)
	}
	return nil
}

func (s *Suite) options() []xpath.Option {
	var list []xpath.Option
	for p, u := range s.Namespaces {
		list = append(list, xpath.WithNamespace(p, u))
	}
	if s.Parallel > 0 {
		list = append(list, xpath.WithParallel(s.Parallel))
	}
	return list
}

func (s *Suite) registry() (*xpath.Registry, error) {
	reg := xpath.DefaultRegistry().Enclosed()
	for _, d := range s.Functions {
		name, err := xml.ParseName(d.Name)
		if err != nil {
			return nil, err
		}
		uri, ok := s.Namespaces[name.Space]
		if !ok || name.Space == "" {
			return nil, fmt.Errorf("%s: function should be in a declared namespace", d.Name)
		}
		name.Uri = uri
		sig, err := d.signature()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		if err := reg.Define(xpath.NewFunction(name, sig, d.body())); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
