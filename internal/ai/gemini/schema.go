package gemini

import (
	"google.golang.org/genai"

	"github.com/spigell/talenthub/internal/ai"
)

var schemaTypes = map[ai.Type]genai.Type{
	ai.TypeString:  genai.TypeString,
	ai.TypeNumber:  genai.TypeNumber,
	ai.TypeInteger: genai.TypeInteger,
	ai.TypeBoolean: genai.TypeBoolean,
	ai.TypeArray:   genai.TypeArray,
	ai.TypeObject:  genai.TypeObject,
}

func convertSchema(s *ai.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Enum:        s.Enum,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		MinItems:    s.MinItems,
		MaxItems:    s.MaxItems,
		Items:       convertSchema(s.Items),
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchema(prop)
		}
		out.PropertyOrdering = append([]string(nil), s.Order...)
	}
	return out
}
