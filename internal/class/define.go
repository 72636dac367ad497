package class

import (
	"fmt"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/version"
)

// Define creates classes from declarative specs, in dependency order.
//
// Extends and Includes refer to classes in the same batch or already in the
// registry. A spec's body includes each listed class, then defines its
// values as instance data members and its statics as class-level values.
// Classes are returned in the order of specs.
func (r *Registry) Define(specs []ir.ClassSpec) ([]*Class, error) {
	d := &definer{
		registry: r,
		specs:    specs,
		built:    make([]*Class, len(specs)),
		state:    make([]visitState, len(specs)),
	}
	for i := range specs {
		if _, err := d.build(i); err != nil {
			return nil, err
		}
	}
	return d.built, nil
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

type definer struct {
	registry *Registry
	specs    []ir.ClassSpec
	built    []*Class
	state    []visitState
}

func (d *definer) build(i int) (*Class, error) {
	spec := d.specs[i]
	switch d.state[i] {
	case done:
		return d.built[i], nil
	case visiting:
		return nil, &Error{Code: ErrCodeUnresolvedClass, Class: spec.Name, Message: "class depends on itself"}
	}
	d.state[i] = visiting

	parent := d.registry.root
	if spec.Extends != "" {
		p, err := d.resolve(spec.Name, spec.Extends)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	includes := make([]*Class, 0, len(spec.Includes))
	for _, ref := range spec.Includes {
		c, err := d.resolve(spec.Name, ref)
		if err != nil {
			return nil, err
		}
		includes = append(includes, c)
	}

	opts := []ExtendOption{WithBody(func(b *Builder) {
		for _, inc := range includes {
			b.Include(inc)
		}
		for _, k := range spec.Values.SortedKeys() {
			b.SetValue(k, ir.ToGo(spec.Values[k]))
		}
		for _, k := range spec.Statics.SortedKeys() {
			b.SetStaticValue(k, ir.ToGo(spec.Statics[k]))
		}
	})}
	if spec.Version != "" {
		opts = append(opts, WithVersion(spec.Version))
	}

	c, err := parent.Extend(spec.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", version.Ref{Name: spec.Name, Version: spec.Version}, err)
	}
	d.built[i] = c
	d.state[i] = done
	return c, nil
}

// resolve finds ref among the batch first, then in the registry.
func (d *definer) resolve(from, s string) (*Class, error) {
	ref, err := version.ParseRef(s)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidVersion, Class: from, Member: s, Message: "invalid class reference", Err: err}
	}

	best := -1
	for j, spec := range d.specs {
		cand := version.Ref{Name: spec.Name, Version: spec.Version}
		if !version.Same(cand, ref) {
			continue
		}
		if ref.Version != "" {
			if spec.Version != "" && version.Compare(spec.Version, ref.Version) == 0 {
				best = j
			}
			continue
		}
		if best < 0 || version.Compare(spec.Version, d.specs[best].Version) >= 0 {
			best = j
		}
	}
	if best >= 0 {
		return d.build(best)
	}

	if c, ok := d.registry.Lookup(ref); ok {
		return c, nil
	}
	return nil, &Error{Code: ErrCodeUnresolvedClass, Class: from, Member: s, Message: "referenced class is not defined"}
}
