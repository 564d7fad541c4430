package xpath

import (
	"io"
	"strconv"
	"strings"
)

// Debug returns the tree of expr in a prefix notation.
func Debug(expr Expr) string {
	var str strings.Builder
	debugExpr(&str, expr)
	return str.String()
}

func debugExpr(w io.Writer, expr Expr) {
	switch v := expr.(type) {
	case literal:
		switch x := v.value.(type) {
		case string:
			io.WriteString(w, "literal")
			io.WriteString(w, "(")
			io.WriteString(w, strconv.Quote(x))
			io.WriteString(w, ")")
		case bool:
			io.WriteString(w, "boolean")
			io.WriteString(w, "(")
			io.WriteString(w, strconv.FormatBool(x))
			io.WriteString(w, ")")
		default:
			io.WriteString(w, "number")
			io.WriteString(w, "(")
			io.WriteString(w, formatValue(x))
			io.WriteString(w, ")")
		}
	case value:
		io.WriteString(w, "value")
		io.WriteString(w, "(")
		io.WriteString(w, v.seq.CanonicalizeString())
		io.WriteString(w, ")")
	case sequence:
		debugList(w, "sequence", v.all)
	case rng:
		io.WriteString(w, "range")
		io.WriteString(w, "(")
		debugExpr(w, v.left)
		io.WriteString(w, ", ")
		debugExpr(w, v.right)
		io.WriteString(w, ")")
	case identifier:
		io.WriteString(w, "identifier")
		io.WriteString(w, "(")
		io.WriteString(w, v.ident)
		io.WriteString(w, ")")
	case let:
		io.WriteString(w, "let")
		io.WriteString(w, "(")
		io.WriteString(w, v.ident)
		io.WriteString(w, ", ")
		debugExpr(w, v.expr)
		io.WriteString(w, ", ")
		debugExpr(w, v.body)
		io.WriteString(w, ")")
	case conditional:
		io.WriteString(w, "if")
		io.WriteString(w, "(")
		debugExpr(w, v.test)
		io.WriteString(w, ", ")
		debugExpr(w, v.csq)
		io.WriteString(w, ", ")
		debugExpr(w, v.alt)
		io.WriteString(w, ")")
	case binary:
		io.WriteString(w, "binary")
		io.WriteString(w, "(")
		io.WriteString(w, v.op)
		io.WriteString(w, ", ")
		debugExpr(w, v.left)
		io.WriteString(w, ", ")
		debugExpr(w, v.right)
		io.WriteString(w, ")")
	case contextItem:
		io.WriteString(w, "context")
	case placeholder:
		io.WriteString(w, "?")
	case funcRef:
		io.WriteString(w, "ref")
		io.WriteString(w, "(")
		io.WriteString(w, v.name.QualifiedName())
		io.WriteString(w, "#")
		io.WriteString(w, strconv.Itoa(v.arity))
		io.WriteString(w, ")")
	case funcLit:
		io.WriteString(w, "function")
		io.WriteString(w, "(")
		for i, p := range v.params {
			if i > 0 {
				io.WriteString(w, ", ")
			}
			io.WriteString(w, "$")
			io.WriteString(w, p)
			io.WriteString(w, " as ")
			io.WriteString(w, v.sig.Param(i).String())
		}
		io.WriteString(w, ")")
		io.WriteString(w, " as ")
		io.WriteString(w, v.sig.Returns().String())
		io.WriteString(w, " {")
		debugExpr(w, v.body)
		io.WriteString(w, "}")
	case call:
		debugList(w, "call("+v.name.QualifiedName()+")", v.args)
	case dynCall:
		io.WriteString(w, "dyncall")
		io.WriteString(w, "(")
		debugExpr(w, v.fn)
		for _, a := range v.args {
			io.WriteString(w, ", ")
			debugExpr(w, a)
		}
		io.WriteString(w, ")")
	default:
		io.WriteString(w, "unknown")
	}
}

func debugList(w io.Writer, name string, list []Expr) {
	io.WriteString(w, name)
	io.WriteString(w, "(")
	for i := range list {
		if i > 0 {
			io.WriteString(w, ", ")
		}
		debugExpr(w, list[i])
	}
	io.WriteString(w, ")")
}
