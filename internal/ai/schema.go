package ai

// Type is a JSON schema type understood by model providers.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema is a provider-neutral description of structured model output.
type Schema struct {
	Type        Type
	Description string
	// Properties and Order describe object fields; Order keeps field order
	// stable in the provider request.
	Properties map[string]*Schema
	Order      []string
	Required   []string
	Items      *Schema
	Enum       []string
	Minimum    *float64
	Maximum    *float64
	MinItems   *int64
	MaxItems   *int64
}

// Property is a named object field.
type Property struct {
	Name     string
	Schema   *Schema
	Optional bool
}

// Object builds an object schema; properties are required unless marked
// optional.
func Object(description string, props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Description: description, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Order = append(s.Order, p.Name)
		if !p.Optional {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

func Field(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Number builds a number schema bounded to [min, max].
func Number(description string, min, max float64) *Schema {
	return &Schema{Type: TypeNumber, Description: description, Minimum: &min, Maximum: &max}
}

// ArrayOf builds an array schema. Non-positive bounds are left unset.
func ArrayOf(description string, items *Schema, minItems, maxItems int64) *Schema {
	s := &Schema{Type: TypeArray, Description: description, Items: items}
	if minItems > 0 {
		s.MinItems = &minItems
	}
	if maxItems > 0 {
		s.MaxItems = &maxItems
	}
	return s
}
