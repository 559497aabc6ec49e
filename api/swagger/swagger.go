package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FormHive API",
        "description": "Form building and submission admission service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Forms", "description": "Dashboard form management"},
        {"name": "Public", "description": "Respondent-facing form rendering and submission"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/forms": {
            "get": {
                "tags": ["Forms"],
                "summary": "List forms",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "creatorId", "in": "query", "type": "string"},
                    {"name": "folder", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Forms"],
                "summary": "Create form",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFormRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/v1/forms/{id}": {
            "get": {
                "tags": ["Forms"],
                "summary": "Get form detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Forms"],
                "summary": "Delete form",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/forms/{id}/fields": {
            "put": {
                "tags": ["Forms"],
                "summary": "Replace form fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFieldsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid field configuration"}
                }
            }
        },
        "/api/v1/forms/{id}/settings": {
            "patch": {
                "tags": ["Forms"],
                "summary": "Update form settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/v1/forms/{id}/activity": {
            "get": {
                "tags": ["Forms"],
                "summary": "List form activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/{id}/analytics": {
            "get": {
                "tags": ["Forms"],
                "summary": "Form analytics",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/{id}/submissions": {
            "get": {
                "tags": ["Forms"],
                "summary": "List form submissions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/f/{id}": {
            "get": {
                "tags": ["Public"],
                "summary": "Render a public form",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Form view with gate decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/f/{id}/unlock": {
            "post": {
                "tags": ["Public"],
                "summary": "Unlock a password-protected form",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UnlockFormRequest"}}
                ],
                "responses": {
                    "200": {"description": "Unlocked"},
                    "401": {"description": "Wrong password"}
                }
            }
        },
        "/f/{id}/submissions": {
            "post": {
                "tags": ["Public"],
                "summary": "Submit a response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "202": {"description": "Attempt accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Field validation errors"},
                    "403": {"description": "Gate rejection"}
                }
            }
        },
        "/f/{id}/submissions/{attemptId}": {
            "get": {
                "tags": ["Public"],
                "summary": "Submission attempt status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "attemptId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown attempt"}
                }
            },
            "delete": {
                "tags": ["Public"],
                "summary": "Cancel a pending submission attempt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "attemptId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "409": {"description": "Attempt already finalized"}
                }
            }
        },
        "/f/{id}/submissions/{attemptId}/retry": {
            "post": {
                "tags": ["Public"],
                "summary": "Retry a failed submission attempt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "attemptId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Attempt not retryable"}
                }
            }
        }
    },
    "definitions": {
        "CreateFormRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "creatorId": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "object"}},
                "folderName": {"type": "string"}
            },
            "required": ["title", "creatorId"]
        },
        "UpdateFieldsRequest": {
            "type": "object",
            "properties": {
                "fields": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["fields"]
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "isActive": {"type": "boolean"},
                "expiryDate": {"type": "string", "format": "date-time"},
                "maxResponses": {"type": "integer"},
                "singleSubmission": {"type": "boolean"},
                "closedMessage": {"type": "string"},
                "status": {"type": "string", "enum": ["Draft", "Live", "Closed"]},
                "visibility": {"type": "string", "enum": ["Public", "Private", "Password Protected"]},
                "password": {"type": "string"}
            }
        },
        "UnlockFormRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"}
            },
            "required": ["password"]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "answers": {"type": "object"},
                "location": {
                    "type": "object",
                    "properties": {
                        "latitude": {"type": "number"},
                        "longitude": {"type": "number"},
                        "address": {"type": "string"}
                    }
                }
            },
            "required": ["answers"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
