package class

import (
	"slices"
	"sync"
)

// Method is a member function. R is *Object for instance methods and
// *Class for static methods.
type Method[R any] func(self R, args ...any) (any, error)

// Super calls the implementation an overload replaced, bound to the same
// receiver.
type Super func(args ...any) (any, error)

// MethodOverload wraps an existing method. super is the previous
// implementation.
type MethodOverload[R any] func(self R, super Super, args ...any) (any, error)

// Property is an accessor pair. Either side may be nil.
//
// Enumerable controls whether the property is listed by Keys. It defaults to
// false; data values set with SetValue are always enumerable.
type Property[R any] struct {
	Get        func(self R) (any, error)
	Set        func(self R, v any) error
	Enumerable bool
}

// Getter is shorthand for a read-only property.
func Getter[R any](get func(self R) (any, error)) Property[R] {
	return Property[R]{Get: get}
}

// PropertyOverload wraps one or both sides of an existing property.
type PropertyOverload[R any] struct {
	Get func(self R, super func() (any, error)) (any, error)
	Set func(self R, super func(v any) error, v any) error
}

// Members is the declarative body form: each entry is a Method[*Object], a
// Property[*Object], or any other value, which becomes a data member.
type Members map[string]any

// Kind tags a member.
type Kind int

const (
	// KindMethod is a callable member.
	KindMethod Kind = iota + 1
	// KindProperty is an accessor pair.
	KindProperty
	// KindValue is a plain data member.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

type member[R any] struct {
	kind   Kind
	method Method[R]
	prop   Property[R]
	value  any
}

// MemberInfo describes a member for introspection.
type MemberInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Getter     bool   `json:"getter,omitempty"`
	Setter     bool   `json:"setter,omitempty"`
	Enumerable bool   `json:"enumerable,omitempty"`
}

// memberTable is an insertion-ordered member map.
type memberTable[R any] struct {
	mu      sync.RWMutex
	entries map[string]*member[R]
	order   []string
}

func newMemberTable[R any]() *memberTable[R] {
	return &memberTable[R]{entries: make(map[string]*member[R])}
}

func (t *memberTable[R]) lookup(name string) (*member[R], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.entries[name]
	return m, ok
}

// put stores m under name, replacing any previous entry in place.
func (t *memberTable[R]) put(name string, m *member[R]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[name]; !ok {
		t.order = append(t.order, name)
	}
	t.entries[name] = m
}

// clone copies the table, skipping names for which skip returns true.
func (t *memberTable[R]) clone(skip func(string) bool) *memberTable[R] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := newMemberTable[R]()
	for _, name := range t.order {
		if skip(name) {
			continue
		}
		m := *t.entries[name]
		c.entries[name] = &m
		c.order = append(c.order, name)
	}
	return c
}

func (t *memberTable[R]) info() []MemberInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MemberInfo, 0, len(t.order))
	for _, name := range t.order {
		m := t.entries[name]
		mi := MemberInfo{Name: name, Kind: m.kind.String()}
		switch m.kind {
		case KindProperty:
			mi.Getter = m.prop.Get != nil
			mi.Setter = m.prop.Set != nil
			mi.Enumerable = m.prop.Enumerable
		case KindValue:
			mi.Enumerable = true
		}
		out = append(out, mi)
	}
	return out
}

func (t *memberTable[R]) enumerable() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for _, name := range t.order {
		m := t.entries[name]
		if m.kind == KindValue || (m.kind == KindProperty && m.prop.Enumerable) {
			names = append(names, name)
		}
	}
	return names
}

// define adds a new member. An existing name is a DuplicateDefinition
// unless replace is set (patch upgrade).
func (t *memberTable[R]) define(owner, name string, m *member[R], replace bool) error {
	if _, exists := t.lookup(name); exists && !replace {
		return duplicateError(owner, name)
	}
	t.put(name, m)
	return nil
}

// overloadMethod wraps an existing method with fn.
func (t *memberTable[R]) overloadMethod(owner, name string, fn MethodOverload[R]) error {
	prev, ok := t.lookup(name)
	if !ok || prev.kind != KindMethod {
		return undefinedError(owner, name)
	}
	inner := prev.method
	t.put(name, &member[R]{
		kind: KindMethod,
		method: func(self R, args ...any) (any, error) {
			super := func(superArgs ...any) (any, error) {
				return inner(self, superArgs...)
			}
			return fn(self, super, args...)
		},
	})
	return nil
}

// overloadProperty wraps each side of an existing property independently.
func (t *memberTable[R]) overloadProperty(owner, name string, o PropertyOverload[R]) error {
	prev, ok := t.lookup(name)
	if !ok || prev.kind != KindProperty {
		return undefinedError(owner, name)
	}
	next := prev.prop

	if o.Get != nil {
		inner := prev.prop.Get
		if inner == nil {
			return &Error{Code: ErrCodeNoGetter, Class: owner, Member: name, Message: "cannot overload a missing getter"}
		}
		get := o.Get
		next.Get = func(self R) (any, error) {
			return get(self, func() (any, error) { return inner(self) })
		}
	}

	if o.Set != nil {
		inner := prev.prop.Set
		if inner == nil {
			return &Error{Code: ErrCodeNoSetter, Class: owner, Member: name, Message: "cannot overload a missing setter"}
		}
		set := o.Set
		next.Set = func(self R, v any) error {
			return set(self, func(nv any) error { return inner(self, nv) }, v)
		}
	}

	t.put(name, &member[R]{kind: KindProperty, prop: next})
	return nil
}

// names returns member names in definition order.
func (t *memberTable[R]) names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}
