// Package person declares the "person" schema used by the demo surfaces.
package person

import (
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

const (
	SchemaName = "person"

	EventCreated = "created"
	EventDeleted = "deleted"

	ParamName     = "name"
	ParamAge      = "age"
	ParamHometown = "hometown"
)

// Person is a record of the person schema
type Person struct {
	Name     string  `json:"name" yaml:"name"`
	Age      float64 `json:"age" yaml:"age"`
	Hometown string  `json:"hometown" yaml:"hometown"`
}

// Field implements rules.Record
func (p Person) Field(key string) (any, bool) {
	switch key {
	case ParamName:
		return p.Name, true
	case ParamAge:
		return p.Age, true
	case ParamHometown:
		return p.Hometown, true
	default:
		return nil, false
	}
}

var _ rules.Record = Person{}

// Declare registers the person schema with reg
func Declare(reg *schema.Registry) error {
	return reg.Declare(SchemaName,
		[]string{EventCreated, EventDeleted},
		[]schema.ParamSpec{
			{Key: ParamName, Type: schema.TypeString},
			{Key: ParamAge, Type: schema.TypeNumber},
			{Key: ParamHometown, Type: schema.TypeString},
		})
}

// Created returns the trigger fired when a person is added
func Created() schema.Trigger {
	return schema.Trigger{Schema: SchemaName, Event: EventCreated}
}

// Deleted returns the trigger fired when a person is removed
func Deleted() schema.Trigger {
	return schema.Trigger{Schema: SchemaName, Event: EventDeleted}
}
