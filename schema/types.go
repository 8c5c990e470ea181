package schema

import "fmt"

// ParamType is the declared value type of a schema parameter
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
)

// Valid reports whether t is one of the supported parameter types
func (t ParamType) Valid() bool {
	return t == TypeString || t == TypeNumber
}

// ParamSpec declares one parameter key and its value type
type ParamSpec struct {
	Key  string    `json:"key" yaml:"key"`
	Type ParamType `json:"type" yaml:"type"`
}

// Schema is the immutable declaration of one kind of data record
type Schema struct {
	Name   string      `json:"name" yaml:"name"`
	Events []string    `json:"events" yaml:"events"`
	Params []ParamSpec `json:"params" yaml:"params"`
}

// Trigger identifies an event of a schema and is used as a dispatch key.
// Trigger values are comparable and safe to use as map keys.
type Trigger struct {
	Schema string `json:"schema"`
	Event  string `json:"event"`
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s/%s", t.Schema, t.Event)
}

// Param is a resolved reference to a parameter of a schema
type Param struct {
	Schema string    `json:"schema"`
	Key    string    `json:"key"`
	Type   ParamType `json:"type"`
}

func (p Param) String() string {
	return fmt.Sprintf("%s.%s", p.Schema, p.Key)
}
