package class

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes class errors.
type ErrorCode string

const (
	// ErrCodeDuplicateDefinition indicates a member was defined twice outside
	// a patch upgrade.
	ErrCodeDuplicateDefinition ErrorCode = "DUPLICATE_DEFINITION"

	// ErrCodeUndefinedMember indicates a member was overloaded, called or read
	// without a prior definition.
	ErrCodeUndefinedMember ErrorCode = "UNDEFINED_MEMBER"

	// ErrCodeNoGetter indicates a property getter was overloaded or read but
	// the property has none.
	ErrCodeNoGetter ErrorCode = "NO_GETTER"

	// ErrCodeNoSetter indicates a property setter was overloaded or assigned
	// but the property has none.
	ErrCodeNoSetter ErrorCode = "NO_SETTER"

	// ErrCodeClassIncompatible indicates two same-named classes with
	// incompatible versions met in one prototype.
	ErrCodeClassIncompatible ErrorCode = "CLASS_INCOMPATIBLE"

	// ErrCodeSerializerUndefined indicates Serialize was called on a class
	// without a serializer.
	ErrCodeSerializerUndefined ErrorCode = "SERIALIZER_UNDEFINED"

	// ErrCodeUnserializerUndefined indicates Unserialize was called on a
	// class without an unserializer.
	ErrCodeUnserializerUndefined ErrorCode = "UNSERIALIZER_UNDEFINED"

	// ErrCodeInvalidVersion indicates a malformed semantic version.
	ErrCodeInvalidVersion ErrorCode = "INVALID_VERSION"

	// ErrCodeNotConstructing indicates a Builder was used after its class
	// finished construction.
	ErrCodeNotConstructing ErrorCode = "NOT_CONSTRUCTING"

	// ErrCodeUnresolvedClass indicates a manifest referenced a class that is
	// neither defined nor being defined.
	ErrCodeUnresolvedClass ErrorCode = "UNRESOLVED_CLASS"
)

// Error is a class definition or member access failure.
//
// Class and Member identify where the failure happened; Err carries the
// underlying cause when there is one (e.g. a version.IncompatibleError).
type Error struct {
	Code    ErrorCode
	Class   string
	Member  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Class != "" && e.Member != "":
		return fmt.Sprintf("%s: %s (class=%s, member=%s)", e.Code, msg, e.Class, e.Member)
	case e.Class != "":
		return fmt.Sprintf("%s: %s (class=%s)", e.Code, msg, e.Class)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a class
// error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsDuplicateDefinition reports whether err is a DuplicateDefinition error.
func IsDuplicateDefinition(err error) bool { return CodeOf(err) == ErrCodeDuplicateDefinition }

// IsUndefinedMember reports whether err is an UndefinedMember error.
func IsUndefinedMember(err error) bool { return CodeOf(err) == ErrCodeUndefinedMember }

// IsNoGetter reports whether err is a NoGetter error.
func IsNoGetter(err error) bool { return CodeOf(err) == ErrCodeNoGetter }

// IsNoSetter reports whether err is a NoSetter error.
func IsNoSetter(err error) bool { return CodeOf(err) == ErrCodeNoSetter }

// IsClassIncompatible reports whether err is a ClassIncompatible error.
func IsClassIncompatible(err error) bool { return CodeOf(err) == ErrCodeClassIncompatible }

// IsSerializerUndefined reports whether err is a SerializerUndefined error.
func IsSerializerUndefined(err error) bool { return CodeOf(err) == ErrCodeSerializerUndefined }

// IsUnserializerUndefined reports whether err is an UnserializerUndefined error.
func IsUnserializerUndefined(err error) bool { return CodeOf(err) == ErrCodeUnserializerUndefined }

func duplicateError(class, member string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateDefinition,
		Class:   class,
		Member:  member,
		Message: "member is already defined",
	}
}

func undefinedError(class, member string) *Error {
	return &Error{
		Code:    ErrCodeUndefinedMember,
		Class:   class,
		Member:  member,
		Message: "member is not defined",
	}
}
