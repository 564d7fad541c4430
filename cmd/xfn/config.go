package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/midbel/xfn/xml"
	"github.com/midbel/xfn/xpath"
)

const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// Config holds the settings shared by all the commands. It can be loaded from
// a YAML file and then be overridden by flags.
type Config struct {
	Namespaces map[string]string `yaml:"namespaces"`
	Parallel   int               `yaml:"parallel"`
	Trace      bool              `yaml:"trace"`
	Color      string            `yaml:"color"`
	Document   string            `yaml:"document"`
}

func loadConfig(file string) (Config, error) {
	var cfg Config
	buf, err := os.ReadFile(file)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", file, err)
	}
	switch cfg.Color {
	case "", colorAuto, colorAlways, colorNever:
	default:
		return cfg, fmt.Errorf("%s: unknown color mode %q", file, cfg.Color)
	}
	return cfg, nil
}

func (c *Config) register(set *flag.FlagSet) {
	set.Func("config", "load settings from YAML file", func(file string) error {
		cfg, err := loadConfig(file)
		if err == nil {
			*c = cfg
		}
		return err
	})
	set.IntVar(&c.Parallel, "parallel", c.Parallel, "number of items processed at the same time by filter and for-each")
	set.BoolVar(&c.Trace, "trace", c.Trace, "trace function calls on stderr")
	set.StringVar(&c.Color, "color", colorAuto, "colorize output: auto, always or never")
	set.StringVar(&c.Document, "doc", c.Document, "XML document used as context item")
	set.Func("ns", "bind a prefix to a namespace (prefix=uri)", func(str string) error {
		prefix, uri, ok := cutNamespace(str)
		if !ok {
			return fmt.Errorf("%s: invalid namespace binding", str)
		}
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]string)
		}
		c.Namespaces[prefix] = uri
		return nil
	})
}

func (c Config) Options() []xpath.Option {
	var list []xpath.Option
	for p, u := range c.Namespaces {
		list = append(list, xpath.WithNamespace(p, u))
	}
	if c.Parallel > 1 {
		list = append(list, xpath.WithParallel(c.Parallel))
	}
	if c.Trace {
		list = append(list, xpath.WithTracer(xpath.TraceStderr()))
	}
	return list
}

// Context creates the evaluation context, with the document given in the
// configuration as context item.
func (c Config) Context() (xpath.Context, error) {
	var item xpath.Item
	if c.Document != "" {
		doc, err := xml.ParseFile(c.Document)
		if err != nil {
			return xpath.Context{}, err
		}
		item = xpath.NewNodeItem(doc)
	}
	return xpath.NewContext(item, c.Options()...), nil
}

func cutNamespace(str string) (string, string, bool) {
	prefix, uri, ok := strings.Cut(str, "=")
	return prefix, uri, ok && prefix != "" && uri != ""
}
