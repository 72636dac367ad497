package class

import (
	"maps"
	"slices"
	"sync"

	"github.com/roach88/kinda/internal/event"
)

// Object is an instance of a Class.
//
// Every object carries its own event.Emitter, whose parent is the
// prototype's emitter, so the emitter methods (Emit, EmitLater, On, ...) are
// available directly on the object.
type Object struct {
	*event.Emitter

	id    string
	class *Class
	scope *Scope

	mu     sync.RWMutex
	fields map[string]any
}

func newObject(c *Class, parent *Object) *Object {
	var ps *Scope
	if parent != nil {
		ps = parent.scope
	}
	o := &Object{
		id:     c.registry.ids.Generate(),
		class:  c,
		scope:  NewScope(ps),
		fields: make(map[string]any),
	}
	o.Emitter = event.NewEmitter(o, c.registry.session, c.proto.emitter)
	return o
}

// ID returns the object's identifier.
func (o *Object) ID() string {
	return o.id
}

// Class returns the class o was instantiated from.
func (o *Object) Class() *Class {
	return o.class
}

// Context returns the object's scope.
func (o *Object) Context() *Scope {
	return o.scope
}

// IsInstanceOf reports whether o's class is c or includes c at a compatible,
// not newer, version.
func (o *Object) IsInstanceOf(c *Class) bool {
	return o.class.IsSubclassOf(c)
}

// HasMember reports whether name is defined on o's prototype.
func (o *Object) HasMember(name string) bool {
	return o.class.proto.Has(name)
}

// Call invokes an instance method.
func (o *Object) Call(name string, args ...any) (any, error) {
	m, ok := o.class.proto.members.lookup(name)
	if !ok || m.kind != KindMethod {
		return nil, undefinedError(o.class.name, name)
	}
	return m.method(o, args...)
}

// Get reads a member. A property goes through its getter; an instance field
// shadows a prototype value; methods are returned bound to o.
func (o *Object) Get(name string) (any, error) {
	m, ok := o.class.proto.members.lookup(name)
	if ok && m.kind == KindProperty {
		if m.prop.Get == nil {
			return nil, &Error{Code: ErrCodeNoGetter, Class: o.class.name, Member: name, Message: "property has no getter"}
		}
		return m.prop.Get(o)
	}
	if v, found := o.Field(name); found {
		return v, nil
	}
	if !ok {
		return nil, undefinedError(o.class.name, name)
	}
	if m.kind == KindMethod {
		fn := m.method
		return func(args ...any) (any, error) { return fn(o, args...) }, nil
	}
	return m.value, nil
}

// Set assigns a member. A property goes through its setter; anything else
// is stored as an instance field.
func (o *Object) Set(name string, v any) error {
	if m, ok := o.class.proto.members.lookup(name); ok {
		switch m.kind {
		case KindProperty:
			if m.prop.Set == nil {
				return &Error{Code: ErrCodeNoSetter, Class: o.class.name, Member: name, Message: "property has no setter"}
			}
			return m.prop.Set(o, v)
		case KindMethod:
			return &Error{Code: ErrCodeDuplicateDefinition, Class: o.class.name, Member: name, Message: "cannot assign to a method"}
		}
	}
	o.SetField(name, v)
	return nil
}

// Field reads a raw instance slot, bypassing accessors.
func (o *Object) Field(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.fields[name]
	return v, ok
}

// SetField writes a raw instance slot, bypassing accessors.
func (o *Object) SetField(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

// Keys lists the enumerable prototype members in definition order, followed
// by the instance fields not already listed, sorted.
func (o *Object) Keys() []string {
	keys := o.class.proto.members.enumerable()
	o.mu.RLock()
	fields := slices.Sorted(maps.Keys(o.fields))
	o.mu.RUnlock()
	for _, f := range fields {
		if !slices.Contains(keys, f) {
			keys = append(keys, f)
		}
	}
	return keys
}

// Begin opens (or nests) the object's event session.
func (o *Object) Begin() {
	o.Session().Begin()
}

// End closes one level of the object's event session.
func (o *Object) End() error {
	return o.Session().End()
}

// Run calls fn inside the object's event session.
func (o *Object) Run(fn func() error) error {
	return o.Session().Run(fn)
}

// HasEventSession reports whether the object's session is open.
func (o *Object) HasEventSession() bool {
	return o.Session().Open()
}
