package environ

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var ErrDefined = errors.New("undefined identifier")

type Environ[T any] interface {
	Resolve(string) (T, error)
	Define(string, T)
	Names() []string
	Len() int
}

// Env is a scope of named values chained to an optional parent. Lookups walk
// the chain outward; definitions always land in the innermost scope. An Env
// can be read from several goroutines while no one defines into it.
type Env[T any] struct {
	mu     sync.RWMutex
	values map[string]T
	parent Environ[T]
}

func Empty[T any]() Environ[T] {
	return Enclosed[T](nil)
}

func Enclosed[T any](parent Environ[T]) Environ[T] {
	e := Env[T]{
		values: make(map[string]T),
		parent: parent,
	}
	return &e
}

func (e *Env[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values)
}

// Names returns the sorted names visible from this scope, parents included.
func (e *Env[T]) Names() []string {
	e.mu.RLock()
	names := slices.Collect(maps.Keys(e.values))
	e.mu.RUnlock()
	if e.parent != nil {
		names = append(names, e.parent.Names()...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (e *Env[T]) Define(ident string, value T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[ident] = value
}

func (e *Env[T]) Defined(ident string) bool {
	_, err := e.Resolve(ident)
	return err == nil
}

func (e *Env[T]) Resolve(ident string) (T, error) {
	e.mu.RLock()
	value, ok := e.values[ident]
	e.mu.RUnlock()
	if ok {
		return value, nil
	}
	if e.parent != nil {
		return e.parent.Resolve(ident)
	}
	var t T
	return t, fmt.Errorf("%s: %w", ident, ErrDefined)
}

func (e *Env[T]) Unwrap() Environ[T] {
	if e.parent == nil {
		return e
	}
	return e.parent
}

func (e *Env[T]) Merge(other Environ[T]) {
	x, ok := other.(*Env[T])
	if !ok || x == e {
		return
	}
	x.mu.RLock()
	values := maps.Clone(x.values)
	x.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	maps.Copy(e.values, values)
}

func (e *Env[T]) Clone() Environ[T] {
	var x Env[T]
	e.mu.RLock()
	x.values = maps.Clone(e.values)
	e.mu.RUnlock()

	if c, ok := e.parent.(interface{ Clone() Environ[T] }); ok {
		x.parent = c.Clone()
	} else {
		x.parent = e.parent
	}
	return &x
}
