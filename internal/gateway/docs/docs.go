// Package docs is the swag-generated Swagger spec for internal/gateway,
// in the shape `swag init` produces (SwaggerInfo + docTemplate,
// registered into swag's instance registry on import) — mirroring the
// teacher's own internal/api/docs.go and its handlers' @Summary/
// @Router annotations, retargeted to this gateway's read-only
// feature-store routes instead of the teacher's ETF/bond endpoints.
//
// Hand-maintained rather than swag-CLI-generated (this module's build
// never shells out to the swag binary), but the shape, field names, and
// template delimiters match what the CLI emits so `swag init` could
// regenerate this file in place without touching callers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["Gateway"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/levels/{level}/size": {
            "get": {
                "tags": ["FeatureStore"],
                "summary": "Current row count for a feature-store level",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "description": "tick|minute|hour"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "unknown level"}
                }
            }
        },
        "/levels/{level}/ready": {
            "get": {
                "tags": ["FeatureStore"],
                "summary": "Whether a timeslot has been fully published",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "description": "tick|minute|hour"},
                    {"name": "date", "in": "query", "required": true, "type": "integer", "description": "YYYYMMDD"},
                    {"name": "t", "in": "query", "required": true, "type": "integer", "description": "row index"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "malformed date or t"}
                }
            }
        },
        "/levels/{level}/columns/{column}": {
            "get": {
                "tags": ["FeatureStore"],
                "summary": "Read one column's contiguous values",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "description": "tick|minute|hour"},
                    {"name": "column", "in": "path", "required": true, "type": "integer", "description": "column index"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "column must be an integer index"},
                    "404": {"description": "column index out of range"}
                }
            }
        },
        "/levels/{level}/parent-index": {
            "get": {
                "tags": ["FeatureStore"],
                "summary": "Read a level's parent-row back-reference column",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "description": "tick|minute|hour"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "unknown level"}
                }
            }
        },
        "/dates/{date}/complete": {
            "get": {
                "tags": ["FeatureStore"],
                "summary": "Whether a trading date has been marked complete",
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "integer", "description": "YYYYMMDD"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "date must be an integer YYYYMMDD"}
                }
            }
        }
    }
}`

// SwaggerInfo holds the API metadata swag's generated init() registers
// and gin-swagger's handler reads at request time.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Feature Store Gateway API",
	Description:      "Read-only HTTP view over a running pipeline's columnar feature store (spec §4.8), for downstream cross-sectional consumers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
