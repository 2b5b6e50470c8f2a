// Package swagger registers the OpenAPI document of the admin API with swag.
// Regenerate with: swag init -g cmd/revmura/main.go -o docs/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Liveness check", "responses": {"200": {"description": "status: ok"}}}},
        "/health/ready": {"get": {"tags": ["Health"], "summary": "Readiness check", "responses": {"200": {"description": "modules booted"}, "503": {"description": "boot not finished"}}}},
        "/version": {"get": {"tags": ["System"], "summary": "Get service version", "responses": {"200": {"description": "Version information"}}}},
        "/content-types": {"get": {"tags": ["System"], "summary": "Registered content types and rewrite rules", "responses": {"200": {"description": "Registered entities"}}}},
        "/admin/login": {"post": {"tags": ["Admin"], "summary": "Admin login", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/admin.LoginRequest"}}], "responses": {"200": {"description": "Login successful"}, "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/httpjson.ErrorResponse"}}}}},
        "/admin/logout": {"post": {"security": [{"AdminAuth": []}], "tags": ["Admin"], "summary": "Admin logout", "responses": {"200": {"description": "Logged out"}}}},
        "/admin/me": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin"], "summary": "Current actor", "responses": {"200": {"description": "Actor"}}}},
        "/admin/modules": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Modules"], "summary": "List modules", "responses": {"200": {"description": "Module statuses"}}}},
        "/admin/modules/enabled": {"put": {"security": [{"AdminAuth": []}], "tags": ["Admin - Modules"], "summary": "Set enabled modules", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/admin.EnabledRequest"}}], "responses": {"200": {"description": "Toggle report"}, "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/httpjson.ErrorResponse"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpjson.ErrorResponse"}}}}},
        "/admin/modules/{id}/data": {"delete": {"security": [{"AdminAuth": []}], "tags": ["Admin - Modules"], "summary": "Delete module data", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Uninstall report"}, "409": {"description": "Module is enabled", "schema": {"$ref": "#/definitions/httpjson.ErrorResponse"}}}}},
        "/admin/notices": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Modules"], "summary": "List notices", "responses": {"200": {"description": "Notices"}}}, "delete": {"security": [{"AdminAuth": []}], "tags": ["Admin - Modules"], "summary": "Clear notices", "responses": {"204": {"description": "Cleared"}}}},
        "/admin/doctor": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - System"], "summary": "System health check", "responses": {"200": {"description": "Health check results"}, "503": {"description": "Unhealthy"}}}},
        "/admin/settings": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Settings"], "summary": "List settings", "responses": {"200": {"description": "Settings"}}}},
        "/admin/settings/{key}": {
            "get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Settings"], "summary": "Get setting", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}], "responses": {"200": {"description": "Setting"}, "404": {"description": "Not found"}}},
            "put": {"security": [{"AdminAuth": []}], "tags": ["Admin - Settings"], "summary": "Update setting", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "Setting"}, "400": {"description": "Invalid JSON"}}},
            "delete": {"security": [{"AdminAuth": []}], "tags": ["Admin - Settings"], "summary": "Delete setting", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/admin/panels": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Panels"], "summary": "List panels", "responses": {"200": {"description": "Panels"}}}},
        "/admin/panels/cpt/schema": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Panels"], "summary": "Current schema snapshot", "responses": {"200": {"description": "Snapshot"}}}},
        "/admin/panels/cpt/apply": {"post": {"security": [{"AdminAuth": []}], "tags": ["Admin - Panels"], "summary": "Apply a schema snapshot", "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "Registered entities"}, "400": {"description": "invalid_json"}}}},
        "/admin/panels/cpt/export/{key}": {"get": {"security": [{"AdminAuth": []}], "tags": ["Admin - Panels"], "summary": "Export one content type", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}], "responses": {"200": {"description": "cpt-<key>.json attachment"}}}},
        "/admin/panels/cpt/primary/{key}": {"delete": {"security": [{"AdminAuth": []}], "tags": ["Admin - Panels"], "summary": "Delete a content type", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}], "responses": {"200": {"description": "Remaining schema"}}}}
    },
    "definitions": {
        "admin.LoginRequest": {"type": "object", "properties": {"api_key": {"type": "string"}}},
        "admin.EnabledRequest": {"type": "object", "properties": {"enabled": {"type": "array", "items": {"type": "string"}}}},
        "httpjson.ErrorResponse": {"type": "object", "properties": {"error": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}}}}
    },
    "securityDefinitions": {
        "AdminAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Revmura Suite API",
	Description:      "Module host administration: lifecycle, schema and settings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
