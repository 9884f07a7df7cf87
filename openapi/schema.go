package openapi

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Primitive is a type token that serializes to a bare JSON Schema type.
type Primitive string

const (
	Integer Primitive = "integer"
	Number  Primitive = "number"
	String  Primitive = "string"
	Boolean Primitive = "boolean"
	Null    Primitive = "null"
)

// schemaKeywords are the JSON Schema type names a plain string may denote
// when no validator is registered under that name.
var schemaKeywords = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"object":  true,
	"array":   true,
	"null":    true,
}

// arrayOf marks an "array of" input.
type arrayOf struct {
	item any
}

// ArrayOf denotes an array whose items are described by item. It is
// equivalent to a one element []any.
func ArrayOf(item any) any {
	return arrayOf{item: item}
}

// Serializer converts validator-like values into JSON Schema fragments.
//
// Accepted inputs:
//
//	[]any{x}, []string{x}, ArrayOf(x)  -> {"type": "array", "items": <x>}
//	*Validator                          -> the validator schema
//	map[string]any                      -> the map itself
//	string                              -> registered validator, "#/..." reference or type keyword
//	Primitive, nil                      -> {"type": ...}
//	reflect.Type or struct value        -> schema generated from the Go type
type Serializer struct {
	registry *Registry
}

// NewSerializer returns a serializer that resolves names through registry.
func NewSerializer(registry *Registry) *Serializer {
	return &Serializer{registry: registry}
}

// Serialize returns the JSON Schema fragment for ref. The result is always a
// fresh value.
func (s *Serializer) Serialize(ref any) (map[string]any, error) {
	switch v := ref.(type) {
	case nil:
		return map[string]any{"type": string(Null)}, nil
	case leaf:
		return s.Serialize(v.value)
	case arrayOf:
		return s.array(v.item)
	case []any:
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: array input must have exactly one element, got %d", ErrUnsupportedSchemaInput, len(v))
		}
		return s.array(v[0])
	case []string:
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: array input must have exactly one element, got %d", ErrUnsupportedSchemaInput, len(v))
		}
		return s.array(v[0])
	case *Validator:
		if v == nil {
			return map[string]any{"type": string(Null)}, nil
		}
		return v.Schema(), nil
	case map[string]any:
		if v == nil {
			return map[string]any{}, nil
		}
		return copyMap(v), nil
	case Primitive:
		return map[string]any{"type": string(v)}, nil
	case string:
		return s.named(v)
	case reflect.Type:
		return typeSchema(v)
	}

	t := reflect.TypeOf(ref)
	if t.Kind() == reflect.Struct || (t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct) {
		return typeSchema(t)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSchemaInput, ref)
}

func (s *Serializer) array(item any) (map[string]any, error) {
	items, err := s.Serialize(item)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": "array", "items": items}, nil
}

// named resolves a string input. A registered validator wins over a local
// reference, which wins over a type keyword.
func (s *Serializer) named(name string) (map[string]any, error) {
	if s.registry != nil {
		if v, ok := s.registry.Lookup(name); ok {
			return v.Schema(), nil
		}
	}
	if strings.HasPrefix(name, "#/") {
		return map[string]any{"$ref": name}, nil
	}
	if schemaKeywords[name] {
		return map[string]any{"type": name}, nil
	}
	return nil, fmt.Errorf("%w: %q is neither a registered validator nor a schema type", ErrUnsupportedSchemaInput, name)
}

// typeSchema generates an inline schema for a Go type.
func typeSchema(t reflect.Type) (map[string]any, error) {
	schema := generateType(t, map[reflect.Type]bool{})
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSchemaInput, t)
	}
	return schema, nil
}

func generateType(t reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}

	schema := generateInlineType(t, visiting)
	if schema != nil && nullable {
		schema["nullable"] = true
	}
	return schema
}

func generateInlineType(t reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	if t == reflect.TypeOf(time.Time{}) {
		return map[string]any{"type": "string", "format": "date-time"}
	}

	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}

	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}

	case reflect.String:
		return map[string]any{"type": "string"}

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}
		}
		items := generateType(t.Elem(), visiting)
		if items == nil {
			items = map[string]any{}
		}
		return map[string]any{"type": "array", "items": items}

	case reflect.Map:
		schema := map[string]any{"type": "object"}
		if t.Key().Kind() == reflect.String {
			if additional := generateType(t.Elem(), visiting); additional != nil {
				schema["additionalProperties"] = additional
			}
		}
		return schema

	case reflect.Struct:
		if visiting[t] {
			return map[string]any{"type": "object"}
		}
		visiting[t] = true
		defer delete(visiting, t)
		return generateStructSchema(t, visiting)

	case reflect.Interface:
		return map[string]any{}
	}

	return nil
}

// generateStructSchema builds an object schema from exported struct fields
// using their json tags. Fields without omitempty are required.
func generateStructSchema(t reflect.Type, visiting map[reflect.Type]bool) map[string]any {
	properties := make(map[string]any)
	var required []any

	collectFields(t, visiting, properties, &required, false)

	schema := map[string]any{"type": "object"}
	if len(properties) > 0 {
		schema["properties"] = properties
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func collectFields(t reflect.Type, visiting map[reflect.Type]bool, properties map[string]any, required *[]any, allOptional bool) {
	for i := range t.NumField() {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, omitempty := parseJSONTag(jsonTag)

		// Embedded structs are promoted like encoding/json, even when the
		// embedded type itself is unexported.
		if field.Anonymous {
			ft := field.Type
			isPtr := ft.Kind() == reflect.Pointer
			if isPtr {
				ft = ft.Elem()
			}
			if !field.IsExported() && ft.Kind() != reflect.Struct {
				continue
			}
			if ft.Kind() == reflect.Struct && name == "" {
				collectFields(ft, visiting, properties, required, allOptional || isPtr)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		if name == "" {
			name = field.Name
		}

		fieldSchema := generateType(field.Type, visiting)
		if fieldSchema == nil {
			continue
		}
		applyOpenAPITag(fieldSchema, field.Tag.Get("openapi"))

		properties[name] = fieldSchema
		if !omitempty && !allOptional {
			*required = append(*required, name)
		}
	}
}

func parseJSONTag(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	name, rest, _ := strings.Cut(tag, ",")
	return name, strings.Contains(rest, "omitempty") || strings.Contains(rest, "omitzero")
}

// applyOpenAPITag applies `openapi:"description=...,minimum=1"` constraints.
func applyOpenAPITag(schema map[string]any, tag string) {
	if tag == "" {
		return
	}

	for part := range strings.SplitSeq(tag, ",") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "description", "format", "pattern":
			schema[key] = value
		case "minimum", "maximum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				schema[key] = v
			}
		case "minLength", "maxLength", "minItems", "maxItems":
			if v, err := strconv.Atoi(value); err == nil {
				schema[key] = v
			}
		case "enum":
			var enum []any
			for item := range strings.SplitSeq(value, "|") {
				enum = append(enum, item)
			}
			schema["enum"] = enum
		case "deprecated", "readOnly", "writeOnly":
			schema[key] = true
		}
	}
}
