package class

import (
	"encoding/json"
)

// Events emitted while an object is being constructed.
const (
	DidCreate      = "didCreate"
	DidUnserialize = "didUnserialize"
)

// Instantiate creates an object and runs the initializer, if any.
func (c *Class) Instantiate() (*Object, error) {
	return c.instantiate(nil)
}

func (c *Class) instantiate(parent *Object) (*Object, error) {
	o := newObject(c, parent)
	if o.HasMember(InitializerName) {
		if _, err := o.Call(InitializerName); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Create instantiates an object, then, inside an event session, calls the
// creator with args and emits didCreate.
func (c *Class) Create(args ...any) (*Object, error) {
	return c.CreateIn(nil, args...)
}

// CreateIn is Create for an object whose context inherits from parent's.
func (c *Class) CreateIn(parent *Object, args ...any) (*Object, error) {
	o, err := c.instantiate(parent)
	if err != nil {
		return nil, err
	}
	err = o.Run(func() error {
		if o.HasMember(CreatorName) {
			if _, err := o.Call(CreatorName, args...); err != nil {
				return err
			}
		}
		return o.Emit(DidCreate)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Unserialize instantiates an object, then, inside an event session, calls
// the unserializer with rep and emits didUnserialize.
func (c *Class) Unserialize(rep any) (*Object, error) {
	return c.UnserializeIn(nil, rep)
}

// UnserializeIn is Unserialize for an object whose context inherits from
// parent's.
func (c *Class) UnserializeIn(parent *Object, rep any) (*Object, error) {
	o, err := c.instantiate(parent)
	if err != nil {
		return nil, err
	}
	if !o.HasMember(UnserializerName) {
		return nil, &Error{Code: ErrCodeUnserializerUndefined, Class: c.name, Member: UnserializerName, Message: "unserializer is undefined"}
	}
	err = o.Run(func() error {
		if _, err := o.Call(UnserializerName, rep); err != nil {
			return err
		}
		return o.Emit(DidUnserialize)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Serialize returns the representation produced by the serializer.
func (o *Object) Serialize() (any, error) {
	if !o.HasMember(SerializerName) {
		return nil, &Error{Code: ErrCodeSerializerUndefined, Class: o.class.name, Member: SerializerName, Message: "serializer is undefined"}
	}
	return o.Call(SerializerName)
}

// MarshalJSON encodes the serializer's representation.
func (o *Object) MarshalJSON() ([]byte, error) {
	rep, err := o.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rep)
}
