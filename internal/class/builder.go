package class

import (
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/kinda/internal/event"
	"github.com/roach88/kinda/internal/version"
)

// Reserved method names behind the construction hooks.
const (
	InitializerName  = "_initializer"
	CreatorName      = "_creator"
	SerializerName   = "_serializer"
	UnserializerName = "_unserializer"
)

// Builder defines members while a class's prototype is under construction.
//
// Errors are sticky: the first failure is kept, later calls do nothing, and
// Extend returns it. Bodies that need to abort with their own error call
// Fail.
//
// A Builder is only valid while its Extend runs. Calls on a Builder kept
// past that point define nothing: they record NOT_CONSTRUCTING in Err and
// log a warning, since no caller is left to receive the error.
type Builder struct {
	target *Class
	proto  *Prototype
	logger *slog.Logger

	// current is the class whose body is running; patching is set while an
	// upgraded class replaces an older version.
	current  *Class
	patching bool

	stack []*Class
	ran   map[*Class]bool
	err   error
	done  bool
}

func newBuilder(target *Class) *Builder {
	return &Builder{
		target: target,
		proto:  target.proto,
		logger: target.registry.logger,
		ran:    make(map[*Class]bool),
	}
}

// Class returns the class being built.
func (b *Builder) Class() *Class {
	return b.target
}

// Current returns the class whose members are being applied. It differs
// from Class while an included class runs.
func (b *Builder) Current() *Class {
	return b.current
}

// Patching reports whether the current class is upgrading an older version
// of itself, which allows redefining existing members.
func (b *Builder) Patching() bool {
	return b.patching
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

// Fail records err and stops further definitions.
func (b *Builder) Fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *Builder) ok() bool {
	if b.done {
		err := &Error{Code: ErrCodeNotConstructing, Class: b.target.name, Message: "builder used after construction"}
		b.Fail(err)
		b.logger.Warn("class builder used after construction; call ignored", "class", b.target.String(), "error", err)
		return false
	}
	return b.err == nil
}

// Include mixes other into the prototype.
//
// When a class of the same name is already included, the two must have
// compatible versions. other is then skipped unless it is strictly newer, in
// which case it runs in patch mode and takes the older entry's place in the
// superclass list.
func (b *Builder) Include(other *Class) {
	if !b.ok() {
		return
	}
	if other == nil {
		b.Fail(errors.New("include: nil class"))
		return
	}
	if slices.Contains(b.stack, other) {
		return
	}

	for i, sc := range b.proto.superclasses {
		if sc == other {
			return
		}
		decision, err := version.Resolve(sc.Ref(), other.Ref())
		if err != nil {
			b.Fail(&Error{
				Code:    ErrCodeClassIncompatible,
				Class:   b.target.name,
				Member:  other.name,
				Message: "cannot include incompatible class",
				Err:     err,
			})
			return
		}
		switch decision {
		case version.Skip:
			b.logger.Debug("include skipped",
				"class", b.target.Ref().String(),
				"included", sc.Ref().String(),
				"incoming", other.Ref().String())
			return
		case version.Upgrade:
			b.logger.Debug("include upgraded",
				"class", b.target.Ref().String(),
				"from", sc.Ref().String(),
				"to", other.Ref().String())
			b.run(other, true)
			if b.err == nil {
				b.proto.superclasses[i] = other
			}
			return
		}
	}

	b.run(other, false)
	if b.err == nil {
		b.proto.superclasses = append(b.proto.superclasses, other)
	}
}

// run applies c's constructor effect: include its parent, then define its
// declarative members, then call its body.
func (b *Builder) run(c *Class, patch bool) {
	prevCurrent, prevPatching := b.current, b.patching
	b.stack = append(b.stack, c)
	defer func() {
		b.stack = b.stack[:len(b.stack)-1]
		b.current, b.patching = prevCurrent, prevPatching
	}()

	if c.parent != nil {
		b.current, b.patching = c, false
		b.Include(c.parent)
	}

	b.current, b.patching = c, patch
	if len(c.members) > 0 {
		b.defineMembers(c.members)
	}
	if c.body != nil && b.err == nil {
		c.body(b)
	}
	b.ran[c] = true
}

func (b *Builder) defineMembers(members Members) {
	for _, name := range slices.Sorted(maps.Keys(members)) {
		switch v := members[name].(type) {
		case Method[*Object]:
			b.SetMethod(name, v)
		case func(*Object, ...any) (any, error):
			b.SetMethod(name, v)
		case Property[*Object]:
			b.SetProperty(name, v)
		default:
			b.SetValue(name, v)
		}
	}
}

// staticsDone reports whether the current class's static effects are
// already present on the target, copied from the parent at extend time.
func (b *Builder) staticsDone() bool {
	return b.target.staticsApplied[b.current]
}

func (b *Builder) instance(name string, m *member[*Object]) {
	if !b.ok() {
		return
	}
	b.Fail(b.proto.members.define(b.target.name, name, m, b.patching))
}

func (b *Builder) static(name string, m *member[*Class]) {
	if !b.ok() || b.staticsDone() {
		return
	}
	b.Fail(b.target.statics.define(b.target.name, name, m, b.patching))
}

// SetMethod defines an instance method.
func (b *Builder) SetMethod(name string, fn Method[*Object]) {
	b.instance(name, &member[*Object]{kind: KindMethod, method: fn})
}

// OverloadMethod wraps an existing instance method.
func (b *Builder) OverloadMethod(name string, fn MethodOverload[*Object]) {
	if !b.ok() {
		return
	}
	b.Fail(b.proto.members.overloadMethod(b.target.name, name, fn))
}

// SetStaticMethod defines a class-level method.
func (b *Builder) SetStaticMethod(name string, fn Method[*Class]) {
	b.static(name, &member[*Class]{kind: KindMethod, method: fn})
}

// OverloadStaticMethod wraps an existing class-level method.
func (b *Builder) OverloadStaticMethod(name string, fn MethodOverload[*Class]) {
	if !b.ok() || b.staticsDone() {
		return
	}
	b.Fail(b.target.statics.overloadMethod(b.target.name, name, fn))
}

// SetProperty defines an instance accessor.
func (b *Builder) SetProperty(name string, p Property[*Object]) {
	b.instance(name, &member[*Object]{kind: KindProperty, prop: p})
}

// OverloadProperty wraps one or both sides of an instance accessor.
func (b *Builder) OverloadProperty(name string, o PropertyOverload[*Object]) {
	if !b.ok() {
		return
	}
	b.Fail(b.proto.members.overloadProperty(b.target.name, name, o))
}

// SetStaticProperty defines a class-level accessor.
func (b *Builder) SetStaticProperty(name string, p Property[*Class]) {
	b.static(name, &member[*Class]{kind: KindProperty, prop: p})
}

// OverloadStaticProperty wraps one or both sides of a class-level accessor.
func (b *Builder) OverloadStaticProperty(name string, o PropertyOverload[*Class]) {
	if !b.ok() || b.staticsDone() {
		return
	}
	b.Fail(b.target.statics.overloadProperty(b.target.name, name, o))
}

// SetValue defines a data member shared by all instances until an instance
// assigns its own.
func (b *Builder) SetValue(name string, v any) {
	b.instance(name, &member[*Object]{kind: KindValue, value: v})
}

// SetStaticValue defines a class-level data member.
func (b *Builder) SetStaticValue(name string, v any) {
	b.static(name, &member[*Class]{kind: KindValue, value: v})
}

// SetInitializer sets the function Instantiate runs on every new object.
func (b *Builder) SetInitializer(fn Method[*Object]) { b.SetMethod(InitializerName, fn) }

// OverloadInitializer wraps the initializer.
func (b *Builder) OverloadInitializer(fn MethodOverload[*Object]) {
	b.OverloadMethod(InitializerName, fn)
}

// SetCreator sets the function Create calls with its arguments.
func (b *Builder) SetCreator(fn Method[*Object]) { b.SetMethod(CreatorName, fn) }

// OverloadCreator wraps the creator.
func (b *Builder) OverloadCreator(fn MethodOverload[*Object]) { b.OverloadMethod(CreatorName, fn) }

// SetSerializer sets the function Serialize calls.
func (b *Builder) SetSerializer(fn Method[*Object]) { b.SetMethod(SerializerName, fn) }

// OverloadSerializer wraps the serializer.
func (b *Builder) OverloadSerializer(fn MethodOverload[*Object]) {
	b.OverloadMethod(SerializerName, fn)
}

// SetUnserializer sets the function Unserialize calls with the
// representation.
func (b *Builder) SetUnserializer(fn Method[*Object]) { b.SetMethod(UnserializerName, fn) }

// OverloadUnserializer wraps the unserializer.
func (b *Builder) OverloadUnserializer(fn MethodOverload[*Object]) {
	b.OverloadMethod(UnserializerName, fn)
}

// On registers a class-level listener on the prototype's emitter. Every
// instance dispatches to it after its own listeners.
func (b *Builder) On(name string, fn event.Listener) {
	if !b.ok() {
		return
	}
	b.proto.emitter.On(name, fn)
}
