package domain

// Schema is the subset of JSON Schema used to describe parameter and body
// values. It nests for structured types so call-time validation can do
// structural checks rather than presence checks only.
type Schema struct {
	Type        string            `json:"type,omitempty"` // "string", "number", "integer", "boolean", "array", "object"
	Description string            `json:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"` // for type "object"
	Required    []string          `json:"required,omitempty"`   // for type "object"
	Items       *Schema           `json:"items,omitempty"`      // for type "array"
	Format      string            `json:"format,omitempty"`     // e.g. "date-time", "uuid"
	Enum        []interface{}     `json:"enum,omitempty"`
	Default     interface{}       `json:"default,omitempty"`
}

// IsScalar reports whether the schema describes a scalar (string-coercible)
// value. Path parameters must satisfy this.
func (s Schema) IsScalar() bool {
	switch s.Type {
	case "string", "number", "integer", "boolean", "":
		return true
	}
	return false
}

// IsStructured reports whether the schema describes an object or array.
func (s Schema) IsStructured() bool {
	return s.Type == "object" || s.Type == "array"
}
