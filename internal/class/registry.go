package class

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/kinda/internal/event"
	"github.com/roach88/kinda/internal/version"
)

// Base class names every registry starts with.
const (
	EventManagerName = "EventManager"
	RootName         = "Object"
)

// Registry owns a family of classes: the event session their objects emit
// in, the ID generator for their objects, and the root class they all
// extend.
type Registry struct {
	session *event.Session
	logger  *slog.Logger
	ids     IDGenerator

	events *Class
	root   *Class

	mu      sync.RWMutex
	classes []*Class
}

// Option configures a Registry.
type Option func(*Registry)

// WithSession sets the session objects of this registry emit in. The
// default is event.DefaultSession().
func WithSession(s *event.Session) Option {
	return func(r *Registry) {
		r.session = s
	}
}

// WithLogger sets the logger used for definition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithIDGenerator sets the object ID generator. The default is
// UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) {
		r.ids = g
	}
}

// NewRegistry creates a registry with the EventManager and Object base
// classes.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		session: event.DefaultSession(),
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.events, err = newBaseClass(r, EventManagerName, nil)
	if err != nil {
		panic(fmt.Sprintf("class: building %s: %v", EventManagerName, err))
	}
	r.root, err = newBaseClass(r, RootName, func(b *Builder) {
		b.Include(r.events)
	})
	if err != nil {
		panic(fmt.Sprintf("class: building %s: %v", RootName, err))
	}
	r.classes = []*Class{r.events, r.root}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry()
})

// Default returns the process-wide registry, bound to event.DefaultSession.
func Default() *Registry {
	return defaultRegistry()
}

// Extend creates a class derived from the root class.
func Extend(name string, opts ...ExtendOption) (*Class, error) {
	return Default().Extend(name, opts...)
}

// Root returns the class every other class in r extends.
func (r *Registry) Root() *Class {
	return r.root
}

// EventManager returns the class that stands for event capability in every
// superclass list.
func (r *Registry) EventManager() *Class {
	return r.events
}

// Session returns the session objects of r emit in.
func (r *Registry) Session() *event.Session {
	return r.session
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Extend creates a class derived from r.Root().
func (r *Registry) Extend(name string, opts ...ExtendOption) (*Class, error) {
	return r.root.Extend(name, opts...)
}

// Classes returns every class of r in creation order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.classes)
}

// Lookup finds a class by reference. With a version, the match must be
// exact; without one, the newest class of that name wins, and unversioned
// classes lose to versioned ones. Among equals the latest defined wins.
func (r *Registry) Lookup(ref version.Ref) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Class
	for _, c := range r.classes {
		if !version.Same(c.Ref(), ref) {
			continue
		}
		if ref.Version != "" {
			if c.version != "" && version.Compare(c.version, ref.Version) == 0 {
				best = c
			}
			continue
		}
		if best == nil || version.Compare(c.version, best.version) >= 0 {
			best = c
		}
	}
	return best, best != nil
}

func (r *Registry) register(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, c)
}
