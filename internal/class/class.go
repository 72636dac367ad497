package class

import (
	"slices"
	"strings"

	"github.com/roach88/kinda/internal/version"
)

// ReservedPrefix marks static members that subclasses do not inherit.
const ReservedPrefix = "_"

// Class is a composable class descriptor.
//
// A Class is identified by pointer; Name and Version are metadata and two
// classes may share a name. Its prototype is built once, when the class is
// created by Extend, so definition errors surface at declaration time.
//
// After Extend returns, only static members may change.
type Class struct {
	registry *Registry
	name     string
	version  string
	parent   *Class
	body     func(*Builder)
	members  Members

	statics *memberTable[*Class]

	// staticsApplied holds the classes whose static effects are already
	// present in statics, either copied from the parent or applied by this
	// class's own build.
	staticsApplied map[*Class]bool

	proto *Prototype
}

// ExtendOption configures a class created by Extend.
type ExtendOption func(*Class)

// WithVersion sets the semantic version of the new class.
func WithVersion(v string) ExtendOption {
	return func(c *Class) {
		c.version = v
	}
}

// WithBody sets the function that defines the class's members.
func WithBody(body func(*Builder)) ExtendOption {
	return func(c *Class) {
		c.body = body
	}
}

// WithMembers sets declarative members. They are defined before the body
// runs, in sorted name order.
func WithMembers(m Members) ExtendOption {
	return func(c *Class) {
		c.members = m
	}
}

// Extend creates a subclass of c. An empty name becomes "Sub" + c.Name().
//
// The subclass starts with a copy of c's static members, except reserved
// ones, and its prototype is built immediately: c is included first, then
// the declarative members and the body are applied.
func (c *Class) Extend(name string, opts ...ExtendOption) (*Class, error) {
	if name == "" {
		name = "Sub" + c.name
	}
	child := &Class{
		registry: c.registry,
		name:     name,
		parent:   c,
	}
	for _, opt := range opts {
		opt(child)
	}
	if child.version != "" {
		if err := version.Validate(child.version); err != nil {
			return nil, &Error{Code: ErrCodeInvalidVersion, Class: name, Message: "invalid class version", Err: err}
		}
	}

	child.statics = c.statics.clone(func(n string) bool {
		return strings.HasPrefix(n, ReservedPrefix)
	})
	child.staticsApplied = make(map[*Class]bool, len(c.staticsApplied))
	for k := range c.staticsApplied {
		child.staticsApplied[k] = true
	}

	if err := child.build(); err != nil {
		return nil, err
	}
	c.registry.register(child)
	return child, nil
}

// newBaseClass creates a parentless class. Only the registry does this.
func newBaseClass(r *Registry, name string, body func(*Builder)) (*Class, error) {
	c := &Class{
		registry:       r,
		name:           name,
		body:           body,
		statics:        newMemberTable[*Class](),
		staticsApplied: make(map[*Class]bool),
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Class) build() error {
	c.proto = newPrototype(c)
	b := newBuilder(c)
	b.run(c, false)
	c.proto.superclasses = append(c.proto.superclasses, c)
	b.done = true
	if b.err != nil {
		return b.err
	}
	for k := range b.ran {
		c.staticsApplied[k] = true
	}
	c.registry.logger.Debug("class defined",
		"class", c.Ref().String(),
		"superclasses", len(c.proto.superclasses))
	return nil
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Version returns the class version, or "" when unversioned.
func (c *Class) Version() string {
	return c.version
}

// Ref returns the (name, version) pair used for identity checks.
func (c *Class) Ref() version.Ref {
	return version.Ref{Name: c.name, Version: c.version}
}

func (c *Class) String() string {
	return c.Ref().String()
}

// Parent returns the class c extends, or nil for a base class.
func (c *Class) Parent() *Class {
	return c.parent
}

// Registry returns the registry c belongs to.
func (c *Class) Registry() *Registry {
	return c.registry
}

// Prototype returns the member table shared by all instances.
func (c *Class) Prototype() *Prototype {
	return c.proto
}

// Superclasses returns the included classes in inclusion order, outermost
// ancestor first and c itself last.
func (c *Class) Superclasses() []*Class {
	return slices.Clone(c.proto.superclasses)
}

// IsSubclassOf reports whether other is c, or was included in c's prototype
// as the same class at a compatible, not newer, version.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, sc := range c.proto.superclasses {
		if sc == other || version.IsInstance(sc.Ref(), other.Ref()) {
			return true
		}
	}
	return false
}

// StaticMembers describes the class-level members in definition order.
func (c *Class) StaticMembers() []MemberInfo {
	return c.statics.info()
}

// Call invokes a static method.
func (c *Class) Call(name string, args ...any) (any, error) {
	m, ok := c.statics.lookup(name)
	if !ok || m.kind != KindMethod {
		return nil, undefinedError(c.name, name)
	}
	return m.method(c, args...)
}

// Get reads a static member. Methods are returned bound to c.
func (c *Class) Get(name string) (any, error) {
	m, ok := c.statics.lookup(name)
	if !ok {
		return nil, undefinedError(c.name, name)
	}
	switch m.kind {
	case KindProperty:
		if m.prop.Get == nil {
			return nil, &Error{Code: ErrCodeNoGetter, Class: c.name, Member: name, Message: "property has no getter"}
		}
		return m.prop.Get(c)
	case KindMethod:
		fn := m.method
		return func(args ...any) (any, error) { return fn(c, args...) }, nil
	default:
		return m.value, nil
	}
}

// Set assigns a static member. A property goes through its setter; any
// other name is stored as a static value.
func (c *Class) Set(name string, v any) error {
	m, ok := c.statics.lookup(name)
	if ok {
		switch m.kind {
		case KindProperty:
			if m.prop.Set == nil {
				return &Error{Code: ErrCodeNoSetter, Class: c.name, Member: name, Message: "property has no setter"}
			}
			return m.prop.Set(c, v)
		case KindMethod:
			return &Error{Code: ErrCodeDuplicateDefinition, Class: c.name, Member: name, Message: "cannot assign to a method"}
		}
	}
	c.statics.put(name, &member[*Class]{kind: KindValue, value: v})
	return nil
}
