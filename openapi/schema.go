package openapi

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentPrefix = "#/components/schemas/"

var timeType = reflect.TypeOf(time.Time{})

// schemaSet derives schemas from Go types. Named structs are registered as
// components once and referenced from then on; every reference carries the
// component's value so the document validates without a loader.
type schemaSet struct {
	components openapi3.Schemas
	names      map[reflect.Type]string
	owners     map[string]reflect.Type
}

func newSchemaSet(components openapi3.Schemas) *schemaSet {
	return &schemaSet{
		components: components,
		names:      make(map[reflect.Type]string),
		owners:     make(map[string]reflect.Type),
	}
}

func (s *schemaSet) of(v any) *openapi3.SchemaRef {
	if v == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return s.forType(reflect.TypeOf(v))
}

func (s *schemaSet) forType(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.Pointer:
		ref := s.forType(t.Elem())
		if ref.Ref == "" {
			ref.Value.Nullable = true
		}
		return ref
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().WithMin(0).NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		array := openapi3.NewArraySchema()
		array.Items = s.forType(t.Elem())
		return array.NewRef()
	case reflect.Map:
		object := openapi3.NewObjectSchema()
		object.AdditionalProperties = openapi3.AdditionalProperties{Schema: s.forType(t.Elem())}
		return object.NewRef()
	case reflect.Struct:
		if t == timeType {
			return openapi3.NewDateTimeSchema().NewRef()
		}
		if t.Name() == "" {
			return s.object(t).NewRef()
		}
		return s.component(t)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func (s *schemaSet) component(t reflect.Type) *openapi3.SchemaRef {
	if name, ok := s.names[t]; ok {
		return &openapi3.SchemaRef{Ref: componentPrefix + name, Value: s.components[name].Value}
	}

	name := t.Name()
	for i := 2; s.owners[name] != nil; i++ {
		name = t.Name() + strconv.Itoa(i)
	}
	s.names[t] = name
	s.owners[name] = t

	// Registered before the fields are walked so self references resolve
	// to the same value.
	schema := &openapi3.Schema{}
	s.components[name] = schema.NewRef()
	*schema = *s.object(t)

	return &openapi3.SchemaRef{Ref: componentPrefix + name, Value: schema}
}

func (s *schemaSet) object(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		ref := s.forType(field.Type)
		doc, example := field.Tag.Get("doc"), field.Tag.Get("example")
		switch {
		case ref.Ref != "" && doc != "":
			ref = &openapi3.SchemaRef{Value: &openapi3.Schema{
				AllOf:       openapi3.SchemaRefs{ref},
				Description: doc,
			}}
		case ref.Ref == "":
			ref.Value.Description = doc
			if example != "" {
				ref.Value.Example = example
			}
		}

		schema.Properties[name] = ref
		if !strings.Contains(opts, "omitempty") {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}
