package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/coopbank/coopbank-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

const (
	swagger2RefPrefix = "#/definitions/"
	openAPI3RefPrefix = "#/components/schemas/"
)

// OpenAPIDocument is the subset of an OpenAPI 3.0 document the portal tooling reads
type OpenAPIDocument struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// OpenAPIServer is a base URL the API is reachable at
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

var productionServer = OpenAPIServer{URL: "https://api.coopbank.app/api/v1", Description: "Production"}

// ServeOpenAPI3Spec serves the generated swagger 2.0 document converted to OpenAPI 3.0.
// The first server entry points at the host that served the request.
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read API documentation")
	}

	document, err := convertSwagger2([]byte(doc))
	if err != nil {
		return NewInternalError(c, "Failed to convert API documentation")
	}

	document.Servers = []OpenAPIServer{{
		URL:         c.Scheme() + "://" + c.Request().Host + docs.SwaggerInfo.BasePath,
		Description: "This server",
	}}
	if !strings.HasPrefix(productionServer.URL, document.Servers[0].URL) {
		document.Servers = append(document.Servers, productionServer)
	}

	return c.JSON(http.StatusOK, document)
}

// convertSwagger2 rewrites a swagger 2.0 document into OpenAPI 3.0 shape: refs move to
// components/schemas, body parameters become request bodies and response schemas gain a
// JSON media type.
func convertSwagger2(raw []byte) (*OpenAPIDocument, error) {
	var swagger2 map[string]interface{}
	if err := json.Unmarshal(raw, &swagger2); err != nil {
		return nil, err
	}

	info, _ := swagger2["info"].(map[string]interface{})
	paths, _ := swagger2["paths"].(map[string]interface{})

	converted := make(map[string]interface{}, len(paths))
	for path, item := range paths {
		operations, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		convertedOps := make(map[string]interface{}, len(operations))
		for method, op := range operations {
			if operation, ok := op.(map[string]interface{}); ok {
				convertedOps[method] = convertOperation(operation)
			}
		}
		converted[path] = convertedOps
	}

	components := make(map[string]interface{})
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = rewriteRefs(definitions)
	}

	return &OpenAPIDocument{
		OpenAPI:    "3.0.3",
		Info:       info,
		Paths:      converted,
		Components: components,
	}, nil
}

func convertOperation(op map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(op))
	for key, value := range op {
		switch key {
		case "parameters", "responses", "consumes", "produces":
		default:
			result[key] = rewriteRefs(value)
		}
	}

	if params, ok := op["parameters"].([]interface{}); ok {
		var converted []interface{}
		for _, p := range params {
			param, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			if param["in"] == "body" {
				result["requestBody"] = map[string]interface{}{
					"description": param["description"],
					"required":    param["required"],
					"content":     jsonContent(param["schema"]),
				}
				continue
			}
			converted = append(converted, convertParameter(param))
		}
		if len(converted) > 0 {
			result["parameters"] = converted
		}
	}

	if responses, ok := op["responses"].(map[string]interface{}); ok {
		converted := make(map[string]interface{}, len(responses))
		for status, r := range responses {
			response, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			out := map[string]interface{}{"description": response["description"]}
			if schema, ok := response["schema"]; ok {
				out["content"] = jsonContent(schema)
			}
			converted[status] = out
		}
		result["responses"] = converted
	}

	return result
}

// convertParameter moves the type fields of a non-body parameter under schema
func convertParameter(param map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	schema := make(map[string]interface{})
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			schema[field] = rewriteRefs(val)
		}
	}
	if len(schema) > 0 {
		result["schema"] = schema
	}
	return result
}

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": rewriteRefs(schema)},
	}
}

// rewriteRefs points every $ref at components/schemas
func rewriteRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				result[key] = strings.Replace(ref, swagger2RefPrefix, openAPI3RefPrefix, 1)
				continue
			}
			result[key] = rewriteRefs(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = rewriteRefs(item)
		}
		return result
	default:
		return data
	}
}
