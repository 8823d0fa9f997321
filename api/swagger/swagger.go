package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sensei Assignment API",
        "description": "Ranks senseis for trips, assigns them and keeps backup coverage filled.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Trips", "description": "Candidate ranking and sensei assignment"},
        {"name": "Backups", "description": "Backup request lifecycle and coverage scan"},
        {"name": "Alerts", "description": "Admin alerts raised by automation"},
        {"name": "Settings", "description": "Backup automation settings"}
    ],
    "paths": {
        "/trips/{id}/candidates": {
            "get": {
                "tags": ["Trips"],
                "summary": "Rank candidate senseis for a trip",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Trip not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/trips/{id}/candidates/export": {
            "get": {
                "tags": ["Trips"],
                "summary": "Export the candidate shortlist",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/trips/{id}/assign": {
            "post": {
                "tags": ["Trips"],
                "summary": "Assign the best available sensei",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot already filled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/trips/{id}/backup-requests": {
            "get": {
                "tags": ["Backups"],
                "summary": "List backup requests for a trip",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Backups"],
                "summary": "Create a manual backup request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualBackupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate pending request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/backup-requests/{id}/respond": {
            "post": {
                "tags": ["Backups"],
                "summary": "Accept or decline a backup request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondBackupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request no longer pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/backup-scan/run": {
            "post": {
                "tags": ["Backups"],
                "summary": "Run the backup coverage scan now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List admin alerts",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "resolved", "in": "query", "type": "boolean"},
                    {"name": "tripId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}/resolve": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Resolve an alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Alert not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/automation-settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get backup automation settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Replace backup automation settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAutomationSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AssignRequest": {
            "type": "object",
            "properties": {
                "requirementType": {"type": "string", "enum": ["primary", "backup"]},
                "urgencyLevel": {"type": "string", "enum": ["low", "medium", "high", "critical"]}
            },
            "required": ["requirementType", "urgencyLevel"]
        },
        "ManualBackupRequest": {
            "type": "object",
            "properties": {
                "senseiId": {"type": "string"}
            },
            "required": ["senseiId"]
        },
        "RespondBackupRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["accept", "decline"]},
                "reason": {"type": "string"}
            },
            "required": ["action"]
        },
        "UpdateAutomationSettingsRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "maxRequestsPerTrip": {"type": "integer"},
                "responseTimeoutHours": {"type": "integer"},
                "minMatchScore": {"type": "number"},
                "retryAfterHours": {"type": "integer"},
                "escalateAfterRetries": {"type": "integer"}
            },
            "required": ["enabled", "maxRequestsPerTrip", "responseTimeoutHours", "minMatchScore", "retryAfterHours", "escalateAfterRetries"]
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
