package class

import (
	"github.com/roach88/kinda/internal/event"
)

// Prototype is the member table shared by all instances of one class, plus
// the class-level listener tables every instance dispatches to.
type Prototype struct {
	class        *Class
	emitter      *event.Emitter
	members      *memberTable[*Object]
	superclasses []*Class
}

func newPrototype(c *Class) *Prototype {
	p := &Prototype{
		class:   c,
		members: newMemberTable[*Object](),
	}
	p.emitter = event.NewEmitter(p, c.registry.session, nil)
	return p
}

// Events returns the prototype's emitter. Listeners registered on it run for
// every instance, after the instance's own.
func (p *Prototype) Events() *event.Emitter {
	return p.emitter
}

// Class returns the class owning p.
func (p *Prototype) Class() *Class {
	return p.class
}

// Members describes the instance members in definition order.
func (p *Prototype) Members() []MemberInfo {
	return p.members.info()
}

// Has reports whether name is an instance member.
func (p *Prototype) Has(name string) bool {
	_, ok := p.members.lookup(name)
	return ok
}

// Kind returns the kind of the named member, or 0 if it is not defined.
func (p *Prototype) Kind(name string) Kind {
	if m, ok := p.members.lookup(name); ok {
		return m.kind
	}
	return 0
}
