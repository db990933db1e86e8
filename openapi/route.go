package openapi

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

// RouteBuilder collects one operation; Build adds it to the document.
type RouteBuilder struct {
	openapi   *OpenAPI
	method    string
	path      string
	operation *openapi3.Operation
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Description(description string) *RouteBuilder {
	rb.operation.Description = description
	return rb
}

func (rb *RouteBuilder) OperationID(id string) *RouteBuilder {
	rb.operation.OperationID = id
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) PathParam(name, description string) *ParamBuilder {
	return rb.param(openapi3.NewPathParameter(name), description)
}

func (rb *RouteBuilder) QueryParam(name, description string) *ParamBuilder {
	return rb.param(openapi3.NewQueryParameter(name), description)
}

func (rb *RouteBuilder) param(p *openapi3.Parameter, description string) *ParamBuilder {
	p.Description = description
	p.Schema = openapi3.NewStringSchema().NewRef()
	rb.operation.AddParameter(p)
	return &ParamBuilder{route: rb, param: p}
}

// Body declares a required JSON request body shaped like example.
func (rb *RouteBuilder) Body(example any, description string) *RouteBuilder {
	body := openapi3.NewRequestBody().
		WithDescription(description).
		WithRequired(true).
		WithJSONSchemaRef(rb.openapi.schemas.of(example))
	rb.operation.RequestBody = &openapi3.RequestBodyRef{Value: body}
	return rb
}

// Response declares the response for status. A nil example means no body.
func (rb *RouteBuilder) Response(status int, example any, description string) *RouteBuilder {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		resp.Content = openapi3.NewContentWithJSONSchemaRef(rb.openapi.schemas.of(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	return rb
}

// ResponseWithHeaders is Response plus string headers, keyed by name with
// their description as value.
func (rb *RouteBuilder) ResponseWithHeaders(status int, example any, description string, headers map[string]string) *RouteBuilder {
	rb.Response(status, example, description)

	resp := rb.operation.Responses.Value(strconv.Itoa(status)).Value
	resp.Headers = make(openapi3.Headers, len(headers))
	for name, desc := range headers {
		resp.Headers[name] = &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
			Description: desc,
			Schema:      openapi3.NewStringSchema().NewRef(),
		}}}
	}
	return rb
}

func (rb *RouteBuilder) Security(schemes ...string) *RouteBuilder {
	if rb.operation.Security == nil {
		rb.operation.Security = openapi3.NewSecurityRequirements()
	}
	for _, scheme := range schemes {
		rb.operation.Security.With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	}
	return rb
}

// NoSecurity marks the route public.
func (rb *RouteBuilder) NoSecurity() *RouteBuilder {
	rb.operation.Security = openapi3.NewSecurityRequirements()
	return rb
}

func (rb *RouteBuilder) Build() {
	rb.openapi.addOperation(rb.method, rb.path, rb.operation)
}

type ParamBuilder struct {
	route *RouteBuilder
	param *openapi3.Parameter
}

func (pb *ParamBuilder) Required() *ParamBuilder {
	pb.param.Required = true
	return pb
}

func (pb *ParamBuilder) TypeInt() *ParamBuilder {
	pb.param.Schema.Value.Type = &openapi3.Types{openapi3.TypeInteger}
	return pb
}

func (pb *ParamBuilder) Min(min float64) *ParamBuilder {
	pb.param.Schema.Value.Min = &min
	return pb
}

func (pb *ParamBuilder) Default(value any) *ParamBuilder {
	pb.param.Schema.Value.Default = value
	return pb
}

func (pb *ParamBuilder) QueryParam(name, description string) *ParamBuilder {
	return pb.route.QueryParam(name, description)
}

func (pb *ParamBuilder) Response(status int, example any, description string) *RouteBuilder {
	return pb.route.Response(status, example, description)
}
