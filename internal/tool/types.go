package tool

import (
	"context"
	"encoding/json"
)

// Tool is the contract every built-in or MCP-bridged tool implements.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// SchemaParam describes one parameter of a tool's JSON Schema.
type SchemaParam struct {
	Name        string
	Type        string // string, integer, number, boolean, array, object
	Description string
	Required    bool
	Enum        []string
}

type jsonSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]jsonSchemaProp `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type jsonSchemaProp struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// BuildSchema assembles a JSON Schema object from a list of parameters,
// in the shape the OpenAI function-calling API expects.
func BuildSchema(params ...SchemaParam) json.RawMessage {
	s := jsonSchema{Type: "object", Properties: map[string]jsonSchemaProp{}}
	for _, p := range params {
		s.Properties[p.Name] = jsonSchemaProp{Type: p.Type, Description: p.Description, Enum: p.Enum}
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return raw
}
