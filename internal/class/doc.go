// Package class implements versioned class composition: classes built by
// extending other classes, mixins included into a prototype, and objects
// instantiated from the result.
//
// ARCHITECTURE:
//
// Registry:
// A Registry owns an event session, an object ID generator and two base
// classes. EventManager stands for event capability; Object includes it and
// is the root every other class extends. Default() is a process-wide
// registry bound to event.DefaultSession().
//
// Extend:
// Extend creates a Class and builds its Prototype immediately. Building runs
// the class's constructor effect through a Builder: include the parent, then
// apply declarative Members, then call the body. Definition errors are
// returned by Extend.
//
// Include and versions:
// Include linearizes the composition graph. A class already in the
// superclass list (same name, compatible version) is not applied twice,
// which resolves diamonds. A strictly newer compatible version runs in
// patch mode, may redefine members, and replaces the older entry in place.
// Same-named classes with incompatible versions fail with
// CLASS_INCOMPATIBLE. Version rules live in package version.
//
// Static members:
// A subclass starts with a copy of its parent's statics (reserved "_"
// names excluded). Static definitions of classes whose effects were copied
// are skipped while the subclass is built, so redefining one in the
// subclass's own body is a DUPLICATE_DEFINITION.
//
// Objects:
// An Object carries its own event.Emitter whose parent is the prototype's
// emitter, a field table and a context Scope. Create and Unserialize run the
// creator/unserializer hooks inside an event session and emit didCreate /
// didUnserialize.
package class
