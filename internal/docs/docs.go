// Package docs backs the /swagger/*any route with a hand-authored OpenAPI
// document. A real deployment would regenerate this via `swag init` against
// the @Summary/@Router annotations in internal/api; it is checked in here
// since that codegen step cannot run as part of this build.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/lcs/status": {
            "get": {
                "tags": ["lcs"],
                "summary": "Agent connection status",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/device-info": {
            "get": {
                "tags": ["lcs"],
                "summary": "Read the device name broadcast by the bus",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/lamps/{master}/{cu}/brightness": {
            "get": {
                "tags": ["lcs"],
                "summary": "Read lamp brightness for a control unit",
                "parameters": [
                    {"name": "master", "in": "path", "required": true, "type": "integer"},
                    {"name": "cu", "in": "path", "required": true, "type": "integer"},
                    {"name": "deviceType", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/lamps/{master}/{cu}/{lampNo}/control": {
            "post": {
                "tags": ["lcs"],
                "summary": "Dim a single lamp",
                "parameters": [
                    {"name": "master", "in": "path", "required": true, "type": "integer"},
                    {"name": "cu", "in": "path", "required": true, "type": "integer"},
                    {"name": "lampNo", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "ok"}, "400": {"description": "invalid argument"}}
            }
        },
        "/lcs/lamps/{master}/{cu}/{lampNo}/fade": {
            "post": {
                "tags": ["lcs"],
                "summary": "Fade a lamp between two brightness levels in the background",
                "responses": {"200": {"description": "started"}}
            }
        },
        "/lcs/lamps/{master}/{cu}/wave": {
            "post": {
                "tags": ["lcs"],
                "summary": "Dim a list of lamps in sequence with a fixed interval, in the background",
                "responses": {"200": {"description": "started"}}
            }
        },
        "/lcs/scenes/{master}/{cu}/{sceneNo}/execute": {
            "post": {
                "tags": ["lcs"],
                "summary": "Execute a stored scene",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/agents": {
            "get": {
                "tags": ["agents"],
                "summary": "List registered agents and their live connection state",
                "responses": {"200": {"description": "ok"}}
            },
            "post": {
                "tags": ["agents"],
                "summary": "Register a new agent",
                "responses": {"200": {"description": "ok"}, "400": {"description": "duplicate id"}}
            }
        },
        "/lcs/agents/{id}": {
            "delete": {
                "tags": ["agents"],
                "summary": "Remove an agent",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/agents/{id}/default": {
            "post": {
                "tags": ["agents"],
                "summary": "Set the default agent for unqualified requests",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/lcs/agents/{id}/reconnect": {
            "post": {
                "tags": ["agents"],
                "summary": "Force an agent through a disconnect/reconnect cycle",
                "responses": {"200": {"description": "ok"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger metadata, matching the shape `swag
// init` generates so gin-swagger's WrapHandler can serve it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "LCS Gateway API",
	Description:      "REST surface for the lighting-control-bus gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
