package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Gate Pass API",
        "description": "Issuance and tracking of school gate passes",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens and session management"},
        {"name": "GatePasses", "description": "Gate pass issuance and lifecycle"},
        {"name": "Dashboard", "description": "Front-desk KPI tiles"},
        {"name": "Exports", "description": "Register exports and printable slips"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes": {
            "get": {
                "tags": ["GatePasses"],
                "summary": "List gate passes with filters and status counts",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["GatePasses"],
                "summary": "Issue a new gate pass",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueGatePassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes/{id}": {
            "get": {
                "tags": ["GatePasses"],
                "summary": "Get gate pass detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["GatePasses"],
                "summary": "Edit an issued gate pass",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditGatePassRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes/{id}/out": {
            "post": {
                "tags": ["GatePasses"],
                "summary": "Record the person leaving through the gate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes/{id}/in": {
            "post": {
                "tags": ["GatePasses"],
                "summary": "Record the person returning through the gate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes/{id}/cancel": {
            "post": {
                "tags": ["GatePasses"],
                "summary": "Cancel a gate pass",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CancelGatePassRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gate-passes/{id}/slip": {
            "get": {
                "tags": ["Exports"],
                "summary": "Printable slip for a single gate pass",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF slip"}
                }
            }
        },
        "/gate-passes/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the filtered register",
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/gate": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Front-desk KPI tiles",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/students": {
            "get": {
                "tags": ["GatePasses"],
                "summary": "Active students of a class for issuance forms",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GatePass": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "passNo": {"type": "string"},
                "scope": {"type": "string"},
                "type": {"type": "string", "enum": ["STUDENT", "EMPLOYEE", "VISITOR"]},
                "studentId": {"type": "string"},
                "employeeId": {"type": "string"},
                "visitorName": {"type": "string"},
                "visitorPhone": {"type": "string"},
                "reason": {"type": "string"},
                "destination": {"type": "string"},
                "status": {"type": "string", "enum": ["ISSUED", "OUT", "IN", "CANCELLED"]},
                "issuedBy": {"type": "string"},
                "issuedAt": {"type": "string"},
                "outAt": {"type": "string"},
                "inAt": {"type": "string"},
                "cancelledAt": {"type": "string"},
                "cancelReason": {"type": "string"}
            }
        },
        "IssueGatePassRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["STUDENT", "EMPLOYEE", "VISITOR"]},
                "classId": {"type": "string"},
                "studentId": {"type": "string"},
                "employeeId": {"type": "string"},
                "visitorName": {"type": "string"},
                "visitorPhone": {"type": "string"},
                "reason": {"type": "string"},
                "destination": {"type": "string"}
            },
            "required": ["type", "reason"]
        },
        "EditGatePassRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"},
                "destination": {"type": "string"},
                "visitorName": {"type": "string"},
                "visitorPhone": {"type": "string"}
            }
        },
        "CancelGatePassRequest": {
            "type": "object",
            "properties": {
                "cancelReason": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
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
