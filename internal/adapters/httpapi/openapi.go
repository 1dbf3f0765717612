package httpapi

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

const apiKeyScheme = "apiKey"

var openapiSpec = sync.OnceValue(buildOpenAPI)

func buildOpenAPI() *openapi3.T {
	fieldSchema := openapi3.NewObjectSchema().
		WithProperty("key", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema().WithEnum(fieldTypeEnum()...)).
		WithProperty("nullable", openapi3.NewBoolSchema())
	fieldSchema.Required = []string{"key", "type"}

	definitionSchema := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("print_format", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(fieldSchema))
	definitionSchema.Required = []string{"print_format"}

	templateSchema := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("print_format", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(fieldSchema)).
		WithProperty("revision", openapi3.NewStringSchema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema()).
		WithProperty("updated_at", openapi3.NewDateTimeSchema())

	blockSchema := openapi3.NewObjectSchema().
		WithProperty("data", openapi3.NewSchema())
	blockSchema.Required = []string{"data"}

	errorSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema())

	nameParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("name").WithSchema(openapi3.NewStringSchema())}
	secured := openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(apiKeyScheme))

	jsonResponse := func(description string, schema *openapi3.Schema) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)}
	}
	responses := func(ok *openapi3.ResponseRef, errs ...int) *openapi3.Responses {
		opts := []openapi3.NewResponsesOption{openapi3.WithStatus(http.StatusOK, ok)}
		for _, code := range errs {
			opts = append(opts, openapi3.WithStatus(code, jsonResponse(http.StatusText(code), errorSchema)))
		}
		return openapi3.NewResponses(opts...)
	}

	listOp := openapi3.NewOperation()
	listOp.OperationID = "listTemplates"
	listOp.Summary = "List templates"
	listOp.Parameters = openapi3.Parameters{
		{Value: openapi3.NewQueryParameter("prefix").WithSchema(openapi3.NewStringSchema())},
		{Value: openapi3.NewQueryParameter("after").WithSchema(openapi3.NewStringSchema())},
		{Value: openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema())},
	}
	listOp.Responses = responses(jsonResponse("Templates", openapi3.NewObjectSchema().
		WithProperty("items", openapi3.NewArraySchema().WithItems(templateSchema))), http.StatusBadRequest)

	getOp := openapi3.NewOperation()
	getOp.OperationID = "getTemplate"
	getOp.Summary = "Get template"
	getOp.Parameters = openapi3.Parameters{nameParam}
	getOp.Responses = responses(jsonResponse("Template", templateSchema), http.StatusBadRequest, http.StatusNotFound)

	putOp := openapi3.NewOperation()
	putOp.OperationID = "upsertTemplate"
	putOp.Summary = "Create or replace template"
	putOp.Parameters = openapi3.Parameters{nameParam}
	putOp.Security = secured
	putOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(definitionSchema)}
	putOp.Responses = responses(jsonResponse("Template", templateSchema),
		http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity)

	deleteOp := openapi3.NewOperation()
	deleteOp.OperationID = "deleteTemplate"
	deleteOp.Summary = "Delete template"
	deleteOp.Parameters = openapi3.Parameters{nameParam}
	deleteOp.Security = secured
	deleteOp.Responses = responses(jsonResponse("Deleted", openapi3.NewObjectSchema().
		WithProperty("deleted", openapi3.NewBoolSchema())), http.StatusBadRequest, http.StatusUnauthorized)

	validateOp := openapi3.NewOperation()
	validateOp.OperationID = "validateBlock"
	validateOp.Summary = "Validate block data against a template"
	validateOp.Parameters = openapi3.Parameters{nameParam}
	validateOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(blockSchema)}
	validateOp.Responses = responses(jsonResponse("Valid", openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema())), http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity)

	renderOp := openapi3.NewOperation()
	renderOp.OperationID = "renderBlock"
	renderOp.Summary = "Render block data with a template"
	renderOp.Parameters = openapi3.Parameters{nameParam}
	renderOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(blockSchema)}
	renderOp.Responses = responses(jsonResponse("Rendered", openapi3.NewObjectSchema().
		WithProperty("output", openapi3.NewStringSchema())), http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity)

	healthOp := openapi3.NewOperation()
	healthOp.OperationID = "healthz"
	healthOp.Summary = "Liveness check"
	healthOp.Responses = responses(jsonResponse("OK", openapi3.NewObjectSchema().
		WithProperty("ok", openapi3.NewBoolSchema())))

	scheme := openapi3.NewSecurityScheme()
	scheme.Type = "apiKey"
	scheme.In = "header"
	scheme.Name = "X-API-Key"

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "editorjs",
			Version: "1.0.0",
		},
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				apiKeyScheme: &openapi3.SecuritySchemeRef{Value: scheme},
			},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/healthz", &openapi3.PathItem{Get: healthOp}),
			openapi3.WithPath("/v1/templates", &openapi3.PathItem{Get: listOp}),
			openapi3.WithPath("/v1/templates/{name}", &openapi3.PathItem{Get: getOp, Put: putOp, Delete: deleteOp}),
			openapi3.WithPath("/v1/templates/{name}/validate", &openapi3.PathItem{Post: validateOp}),
			openapi3.WithPath("/v1/templates/{name}/render", &openapi3.PathItem{Post: renderOp}),
		),
	}
}

func fieldTypeEnum() []any {
	types := domain.FieldTypes()
	out := make([]any, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
