// Package docs holds the OpenAPI description served under /swagger/.
// Regenerate with: swag init -g cmd/enlisten/main.go -o docs
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
        "/compile": {
            "post": {
                "description": "Accepts a JSON compile request, or the raw script as text/plain with settings in the\nX-Enlisten-Settings header. Each sentence is synthesized and the clips are joined with\ninter-line and inter-question silences into one track.",
                "consumes": ["application/json", "text/plain"],
                "produces": ["application/json", "audio/wav", "audio/mpeg"],
                "tags": ["compile"],
                "summary": "Compile a listening-test script",
                "parameters": [
                    {
                        "description": "Compile request (JSON). For a raw script, POST the text directly with Content-Type text/plain.",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.CompileRequest"}
                    },
                    {"type": "boolean", "description": "Return the audio bytes instead of JSON", "name": "raw", "in": "query"},
                    {"type": "string", "description": "Sender identifier (used with text/plain uploads)", "name": "X-Enlisten-Source", "in": "header"},
                    {"type": "string", "description": "JSON-encoded Settings (used with text/plain uploads)", "name": "X-Enlisten-Settings", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "Compiled track and cue list", "schema": {"$ref": "#/definitions/message.CompileResult"}},
                    "400": {"description": "Invalid request, settings or script", "schema": {"$ref": "#/definitions/message.CompileResult"}},
                    "413": {"description": "Request body over 1 MiB", "schema": {"type": "string"}},
                    "502": {"description": "Synthesis backend failure", "schema": {"$ref": "#/definitions/message.CompileResult"}}
                }
            }
        },
        "/plan": {
            "post": {
                "description": "Runs segmentation, annotation and voice casting without synthesis.",
                "consumes": ["application/json", "text/plain"],
                "produces": ["application/json"],
                "tags": ["compile"],
                "summary": "Preview a script",
                "parameters": [
                    {
                        "description": "Compile request (JSON) or raw script text",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.CompileRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Cue list", "schema": {"$ref": "#/definitions/message.CompileResult"}},
                    "400": {"description": "Invalid request, settings or script", "schema": {"$ref": "#/definitions/message.CompileResult"}},
                    "413": {"description": "Request body over 1 MiB", "schema": {"type": "string"}}
                }
            }
        },
        "/voices": {
            "get": {
                "description": "Returns the voice sets used by the random and order policies.",
                "produces": ["application/json"],
                "tags": ["voices"],
                "summary": "List voices",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.VoiceCatalog"}}
                }
            }
        }
    },
    "definitions": {
        "message.CompileRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "script": {"type": "string"},
                "settings": {"$ref": "#/definitions/message.Settings"},
                "plan_only": {"type": "boolean"},
                "targets": {"type": "array", "items": {"$ref": "#/definitions/message.Target"}},
                "reply_to": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "message.Settings": {
            "type": "object",
            "properties": {
                "speed": {"type": "number"},
                "korean_voice": {"type": "string"},
                "female_voice": {"type": "string"},
                "male_voice": {"type": "string"},
                "line_gap_ms": {"type": "integer"},
                "question_gap_ms": {"type": "integer"},
                "container": {"type": "string"},
                "seed": {"type": "integer"},
                "announce_language": {"type": "string"},
                "numerals": {"type": "string"},
                "pause": {"type": "boolean"}
            }
        },
        "message.Target": {
            "type": "object",
            "properties": {
                "service_name": {"type": "string"},
                "endpoint": {"type": "string"},
                "protocol": {"type": "string"}
            }
        },
        "message.Cue": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "source": {"type": "string"},
                "question": {"type": "integer"},
                "speaker": {"type": "string"},
                "language": {"type": "string"},
                "voice": {"type": "string"},
                "role": {"type": "string"},
                "boundary": {"type": "boolean"},
                "text": {"type": "string"},
                "speakable": {"type": "boolean"}
            }
        },
        "message.CompileResult": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "run_id": {"type": "string"},
                "sentences": {"type": "array", "items": {"$ref": "#/definitions/message.Cue"}},
                "audio": {"type": "string"},
                "content_type": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "chunks": {"type": "integer"},
                "line_gaps": {"type": "integer"},
                "question_gaps": {"type": "integer"},
                "disclosure": {"type": "string"},
                "routed_to": {"type": "array", "items": {"type": "string"}},
                "error": {"type": "string"},
                "error_kind": {"type": "string"}
            }
        },
        "message.VoiceCatalog": {
            "type": "object",
            "properties": {
                "backend": {"type": "string"},
                "korean": {"type": "string"},
                "female": {"type": "array", "items": {"type": "string"}},
                "male": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "enlisten API",
	Description:      "Compiles annotated listening-test scripts into timed multi-voice audio tracks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
