package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeOpenAPI3Spec(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	req.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, ServeOpenAPI3Spec(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var document OpenAPIDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &document))
	assert.Equal(t, "3.0.3", document.OpenAPI)
	require.Len(t, document.Servers, 2)
	assert.Equal(t, "http://localhost:8080/api/v1", document.Servers[0].URL)
	assert.Equal(t, productionServer.URL, document.Servers[1].URL)
	assert.Contains(t, document.Paths, "/accounts/{id}/pay-maturity")
	assert.Contains(t, document.Components, "securitySchemes")
}

func TestConvertSwagger2_BodyAndResponses(t *testing.T) {
	raw := []byte(`{
		"info": {"title": "test"},
		"paths": {
			"/accounts/{id}/pay-maturity": {
				"post": {
					"summary": "pay",
					"consumes": ["application/json"],
					"parameters": [
						{"type": "integer", "name": "id", "in": "path", "required": true},
						{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CloseAccountRequest"}}
					],
					"responses": {
						"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ClosureResponse"}},
						"204": {"description": "No account selected"}
					}
				}
			}
		},
		"definitions": {
			"handler.ClosureResponse": {"properties": {"breakdown": {"$ref": "#/definitions/handler.PayoutBreakdownResponse"}}}
		}
	}`)

	document, err := convertSwagger2(raw)
	require.NoError(t, err)

	op := document.Paths["/accounts/{id}/pay-maturity"].(map[string]interface{})["post"].(map[string]interface{})
	assert.Equal(t, "pay", op["summary"])
	assert.NotContains(t, op, "consumes")

	params := op["parameters"].([]interface{})
	require.Len(t, params, 1)
	pathParam := params[0].(map[string]interface{})
	assert.Equal(t, "id", pathParam["name"])
	assert.Equal(t, map[string]interface{}{"type": "integer"}, pathParam["schema"])

	body := op["requestBody"].(map[string]interface{})
	bodySchema := body["content"].(map[string]interface{})["application/json"].(map[string]interface{})["schema"]
	assert.Equal(t, map[string]interface{}{"$ref": "#/components/schemas/handler.CloseAccountRequest"}, bodySchema)

	responses := op["responses"].(map[string]interface{})
	assert.Contains(t, responses["200"], "content")
	assert.NotContains(t, responses["204"], "content")

	schemas := document.Components["schemas"].(map[string]interface{})
	closure := schemas["handler.ClosureResponse"].(map[string]interface{})
	breakdown := closure["properties"].(map[string]interface{})["breakdown"]
	assert.Equal(t, map[string]interface{}{"$ref": "#/components/schemas/handler.PayoutBreakdownResponse"}, breakdown)
}

func TestConvertSwagger2_InvalidJSON(t *testing.T) {
	_, err := convertSwagger2([]byte("not json"))
	assert.Error(t, err)
}
