// Package openapi describes echo routes as an OpenAPI 3 document and serves
// it as JSON or YAML. The document is built once at startup and only read
// afterwards.
package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

const renderError = "Could not render the API document."

type OpenAPI struct {
	doc     *openapi3.T
	schemas *schemaSet
}

func New(title, version string) *OpenAPI {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:         make(openapi3.Schemas),
			SecuritySchemes: make(openapi3.SecuritySchemes),
		},
	}

	return &OpenAPI{doc: doc, schemas: newSchemaSet(doc.Components.Schemas)}
}

func (o *OpenAPI) Description(desc string) *OpenAPI {
	o.doc.Info.Description = desc
	return o
}

func (o *OpenAPI) Server(url, description string) *OpenAPI {
	o.doc.Servers = append(o.doc.Servers, &openapi3.Server{URL: url, Description: description})
	return o
}

func (o *OpenAPI) Tag(name, description string) *OpenAPI {
	o.doc.Tags = append(o.doc.Tags, &openapi3.Tag{Name: name, Description: description})
	return o
}

// BearerAuth declares a JWT carried in the Authorization header.
func (o *OpenAPI) BearerAuth(name, description string) *OpenAPI {
	o.doc.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: openapi3.NewJWTSecurityScheme().WithDescription(description),
	}
	return o
}

// CookieAuth declares an API key carried in the named cookie.
func (o *OpenAPI) CookieAuth(name, cookieName, description string) *OpenAPI {
	o.doc.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			In:          "cookie",
			Name:        cookieName,
			Description: description,
		},
	}
	return o
}

func (o *OpenAPI) Spec() *openapi3.T {
	return o.doc
}

func (o *OpenAPI) Validate(ctx context.Context) error {
	return o.doc.Validate(ctx)
}

func (o *OpenAPI) JSON() ([]byte, error) {
	return json.MarshalIndent(o.doc, "", "  ")
}

func (o *OpenAPI) YAML() ([]byte, error) {
	tree, err := o.doc.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func (o *OpenAPI) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.JSON()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, renderError)
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (o *OpenAPI) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.YAML()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, renderError)
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

// Document starts the description of one route. path uses echo syntax.
func (o *OpenAPI) Document(method, path string) *RouteBuilder {
	return &RouteBuilder{
		openapi:   o,
		method:    strings.ToUpper(method),
		path:      echoPathToOpenAPI(path),
		operation: &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
}

func (o *OpenAPI) addOperation(method, path string, op *openapi3.Operation) {
	item := o.doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		o.doc.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

func echoPathToOpenAPI(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if name, ok := strings.CutPrefix(s, ":"); ok {
			segments[i] = "{" + name + "}"
		}
	}
	return strings.Join(segments, "/")
}
