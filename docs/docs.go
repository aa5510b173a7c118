// Package docs registers the OpenAPI document served under /swagger.
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
        "/api": {
            "get": {
                "description": "Decode every stored response for one site, newest first",
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Site report",
                "parameters": [
                    {"type": "string", "description": "Site URL", "name": "url", "in": "query", "required": true},
                    {"type": "string", "description": "History type", "name": "type", "in": "query"},
                    {"type": "string", "description": "History action", "name": "action", "in": "query"},
                    {"type": "string", "description": "History status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Start of window (unix seconds or RFC3339)", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of window (unix seconds or RFC3339)", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Maximum rows", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Projection: full or count", "name": "summary", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ReportResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/aggregate": {
            "get": {
                "description": "Sum numeric response fields of every matching record per site URL",
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Aggregated report",
                "parameters": [
                    {"type": "string", "description": "Site URL (all sites when absent)", "name": "url", "in": "query"},
                    {"type": "string", "description": "History type", "name": "type", "in": "query"},
                    {"type": "string", "description": "History action", "name": "action", "in": "query"},
                    {"type": "string", "description": "History status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Start of window (unix seconds or RFC3339)", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of window (unix seconds or RFC3339)", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Maximum rows", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Projection: full or count", "name": "summary", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AggregateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.AggregateResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/model.AggregatedRecord"}}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.HealthResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "latency_ms": {"type": "number"},
                "status": {"type": "string"}
            }
        },
        "handler.ReportResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/model.NormalizedRecord"}},
                "url": {"type": "string"}
            }
        },
        "model.AggregatedRecord": {
            "type": "object",
            "properties": {
                "records": {"type": "integer"},
                "response": {"type": "object"},
                "url": {"type": "string"}
            }
        },
        "model.NormalizedRecord": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "added_at": {"type": "number"},
                "id": {"type": "string"},
                "response": {"type": "object"},
                "type": {"type": "string"},
                "url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/client_report_card",
	Schemes:          []string{},
	Title:            "Client Report Card API",
	Description:      "Decoded and aggregated client history reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
