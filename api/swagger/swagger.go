package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Planner API",
        "description": "Conflict detection for student term plans",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Conflicts", "description": "Schedule and requisite conflicts of the signed-in student's plan"}
    ],
    "paths": {
        "/plan/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Evaluate plan conflicts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ConflictReportEnvelope"}},
                    "400": {"description": "Invalid term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan/conflicts/courses/{courseId}": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Conflicts of one course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true},
                    {"name": "term", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan/conflicts/export": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Download the conflict report",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan/conflicts/preview": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Preview conflicts against an iCalendar",
                "consumes": ["text/calendar"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true},
                    {"name": "calendar", "in": "body", "required": true, "schema": {"type": "string"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ConflictReportEnvelope"}},
                    "400": {"description": "Invalid calendar", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plan/conflicts/refresh": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Queue a conflict recompute",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RefreshRequest": {
            "type": "object",
            "required": ["term", "year"],
            "properties": {
                "term": {"type": "string"},
                "year": {"type": "integer"}
            }
        },
        "ConflictDetail": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "fullData": {"type": "object"},
                "isGroup": {"type": "boolean"},
                "courses": {"type": "array", "items": {"type": "object"}}
            }
        },
        "Conflict": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "courseId": {"type": "string"},
                "courseName": {"type": "string"},
                "type": {"type": "string", "enum": ["duplicate-course", "course-overlap", "unavailable-overlap", "missing-prerequisite", "missing-corequisite"]},
                "term": {"type": "string"},
                "year": {"type": "integer"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/ConflictDetail"}}
            }
        },
        "ConflictReport": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "term": {"type": "string"},
                "year": {"type": "integer"},
                "has_conflicts": {"type": "boolean"},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/Conflict"}},
                "courses_with_conflicts": {"type": "array", "items": {"type": "string"}},
                "counts": {"type": "object", "additionalProperties": {"type": "integer"}},
                "requisites_stale": {"type": "boolean"},
                "evaluated_at": {"type": "string", "format": "date-time"}
            }
        },
        "ConflictReportEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ConflictReport"},
                "meta": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
