package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/text/unicode/norm"
)

// Ref identifies a class by name and optional semantic version.
// An empty Version means the class is unversioned.
type Ref struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// String renders the ref as "Name" or "Name@1.2.3".
func (r Ref) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + "@" + r.Version
}

// ParseRef parses "Name" or "Name@1.2.3".
func ParseRef(s string) (Ref, error) {
	name, ver, found := strings.Cut(s, "@")
	if name == "" {
		return Ref{}, fmt.Errorf("empty class name in %q", s)
	}
	if !found {
		return Ref{Name: name}, nil
	}
	if err := Validate(ver); err != nil {
		return Ref{}, err
	}
	return Ref{Name: name, Version: ver}, nil
}

// IncompatibleError reports two same-named classes whose versions cannot
// both be satisfied by a caret range.
type IncompatibleError struct {
	A Ref
	B Ref
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("class %q: version %s is incompatible with version %s", e.A.Name, e.A.Version, e.B.Version)
}

// IsIncompatible reports whether err wraps an IncompatibleError.
func IsIncompatible(err error) bool {
	var ie *IncompatibleError
	return errors.As(err, &ie)
}

// Validate checks that v is a MAJOR.MINOR.PATCH version. A leading "v" is
// accepted.
func Validate(v string) error {
	if v == "" {
		return nil
	}
	c := canonical(v)
	if !semver.IsValid(c) {
		return fmt.Errorf("invalid version %q", v)
	}
	core := strings.TrimPrefix(c, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	if strings.Count(core, ".") != 2 {
		return fmt.Errorf("invalid version %q: want MAJOR.MINOR.PATCH", v)
	}
	return nil
}

// Same reports whether a and b name the same class. Names are compared
// after NFC normalization.
func Same(a, b Ref) bool {
	return norm.NFC.String(a.Name) == norm.NFC.String(b.Name)
}

// Compatible reports whether either version satisfies the caret range of
// the other. A missing version is compatible with everything.
func Compatible(a, b Ref) bool {
	if a.Version == "" || b.Version == "" {
		return true
	}
	av, bv := canonical(a.Version), canonical(b.Version)
	return satisfiesCaret(av, bv) || satisfiesCaret(bv, av)
}

// LTE reports whether a's version is at most b's. Unversioned refs are never
// considered newer, so LTE is true whenever either version is missing.
func LTE(a, b Ref) bool {
	if a.Version == "" || b.Version == "" {
		return true
	}
	return semver.Compare(canonical(a.Version), canonical(b.Version)) <= 0
}

// Compare orders two versions numerically, returning -1, 0 or +1. An empty
// version sorts before any other.
func Compare(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	return semver.Compare(canonical(a), canonical(b))
}

// Decision is the outcome of resolving an inclusion against an already
// included class of the same name.
type Decision int

const (
	// Unrelated means the refs name different classes.
	Unrelated Decision = iota
	// Skip means the already included class is at least as new.
	Skip
	// Upgrade means the incoming class is newer and must patch the old one.
	Upgrade
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Upgrade:
		return "upgrade"
	default:
		return "unrelated"
	}
}

// Resolve decides how an incoming class relates to an included one.
// Same-named refs that are not compatible yield an IncompatibleError.
func Resolve(included, incoming Ref) (Decision, error) {
	if !Same(included, incoming) {
		return Unrelated, nil
	}
	if !Compatible(included, incoming) {
		return Unrelated, &IncompatibleError{A: included, B: incoming}
	}
	if LTE(incoming, included) {
		return Skip, nil
	}
	return Upgrade, nil
}

// IsInstance reports whether an object built from have counts as an
// instance of want. The check is directional: an older compatible version is
// an instance of a newer one, never the reverse.
func IsInstance(have, want Ref) bool {
	return Same(have, want) && Compatible(have, want) && LTE(have, want)
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// caretKey is the part of a version a caret range pins: the major for 1.x
// and up, major.minor for 0.x, and the full version for 0.0.x.
func caretKey(v string) string {
	if major := semver.Major(v); major != "v0" {
		return major
	}
	if mm := semver.MajorMinor(v); mm != "v0.0" {
		return mm
	}
	c := semver.Canonical(v)
	if p := semver.Prerelease(c); p != "" {
		c = strings.TrimSuffix(c, p)
	}
	return c
}

func satisfiesCaret(v, base string) bool {
	return semver.Compare(v, base) >= 0 && caretKey(v) == caretKey(base)
}
