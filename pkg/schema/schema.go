// Package schema declares the parameter shape of each assistant tool and
// validates the raw arguments a model supplies before a handler runs.
//
// A Schema is both advertised to the model (JSONSchema) and enforced at the
// registry boundary (Validate). Validation is permissive about extra fields:
// anything not declared is dropped rather than rejected.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Type is a JSON primitive type a parameter may take.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
)

// Field describes a single named parameter.
type Field struct {
	Name        string
	Type        Type
	Description string
	Required    bool
}

// Schema is the full parameter shape of one tool.
type Schema struct {
	Fields []Field
}

// Object builds a Schema from fields.
func Object(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Required declares a required field.
func Required(name string, typ Type, description string) Field {
	return Field{Name: name, Type: typ, Description: description, Required: true}
}

// Optional declares an optional field.
func Optional(name string, typ Type, description string) Field {
	return Field{Name: name, Type: typ, Description: description}
}

// Args holds arguments that passed validation. Only declared fields are
// present, and numbers are normalized to float64.
type Args map[string]any

// String returns the named string argument, or "" if absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Float returns the named numeric argument and whether it was present.
func (a Args) Float(name string) (float64, bool) {
	f, ok := a[name].(float64)
	return f, ok
}

// Decode copies the arguments into a tagged parameter struct.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: false,
		ErrorUnused:      false,
	})
	if err != nil {
		return fmt.Errorf("schema: build decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("schema: decode args: %w", err)
	}
	return nil
}

// Validate checks raw against the schema and returns the declared subset.
// A nil raw map is treated as empty.
func (s Schema) Validate(raw map[string]any) (Args, error) {
	args := make(Args, len(s.Fields))
	var problems []FieldError

	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				problems = append(problems, FieldError{Field: f.Name, Problem: "is required"})
			}
			continue
		}

		norm, err := coerce(f.Type, v)
		if err != nil {
			problems = append(problems, FieldError{Field: f.Name, Problem: err.Error()})
			continue
		}
		args[f.Name] = norm
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}
	return args, nil
}

// JSONSchema renders the schema as a JSON Schema object.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		p := map[string]any{"type": string(f.Type)}
		if f.Description != "" {
			p["description"] = f.Description
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func coerce(typ Type, v any) (any, error) {
	switch typ {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, typeMismatch(typ, v)
		}
		return s, nil

	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeMismatch(typ, v)
		}
		return b, nil

	case Number, Integer:
		f, ok := toFloat(v)
		if !ok {
			return nil, typeMismatch(typ, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("must be a finite number")
		}
		if typ == Integer && f != math.Trunc(f) {
			return nil, fmt.Errorf("must be a whole number, got %v", f)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("has unsupported schema type %q", typ)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func typeMismatch(want Type, got any) error {
	return fmt.Errorf("expected %s, got %s", want, jsonKind(got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}
