package xml

import (
	"errors"
	"fmt"
	"strings"
)

var ErrName = errors.New("invalid name")

type QName struct {
	Uri   string
	Space string
	Name  string
}

// ParseName reads a lexical QName (prefix:local or local) or an URI qualified
// name written as Q{uri}local.
func ParseName(name string) (QName, error) {
	var qn QName
	if rest, ok := strings.CutPrefix(name, "Q{"); ok {
		uri, local, ok := strings.Cut(rest, "}")
		if !ok || local == "" {
			return qn, fmt.Errorf("%s: %w", name, ErrName)
		}
		qn.Uri = uri
		qn.Name = local
		return qn, nil
	}
	var ok bool
	qn.Space, qn.Name, ok = strings.Cut(name, ":")
	if !ok {
		qn.Name, qn.Space = qn.Space, ""
	}
	if ok && qn.Space == "" {
		return qn, fmt.Errorf("%s: invalid namespace", name)
	}
	if qn.Name == "" || strings.ContainsAny(qn.Name, ":{}# ") {
		return qn, fmt.Errorf("%s: %w", name, ErrName)
	}
	return qn, nil
}

func ExpandedName(name, space, uri string) QName {
	return QName{
		Name:  name,
		Space: space,
		Uri:   uri,
	}
}

func LocalName(name string) QName {
	return ExpandedName(name, "", "")
}

func QualifiedName(name, space string) QName {
	return ExpandedName(name, space, "")
}

func (q QName) Zero() bool {
	return q.Space == "" && q.Name == "" && q.Uri == ""
}

func (q QName) Equal(other QName) bool {
	return q.Uri == other.Uri && q.Name == other.Name
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) ExpandedName() string {
	if q.Uri == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("Q{%s}%s", q.Uri, q.Name)
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

func (q QName) String() string {
	return q.QualifiedName()
}
