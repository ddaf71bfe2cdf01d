package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FormaGest API",
        "description": "Tuition and academic program management",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Students", "description": "Student registry"},
        {"name": "Programs", "description": "Academic program lifecycle"},
        {"name": "Enrollments", "description": "Student enrollment in programs"},
        {"name": "Transactions", "description": "Payment registration and receipts"},
        {"name": "Reports", "description": "Financial reports and exports"}
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
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/estudiantes": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "activo", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programas/{id}/avanzar": {
            "post": {
                "tags": ["Programs"],
                "summary": "Advance program lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Terminal state"}
                }
            }
        },
        "/inscripciones": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student in program",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate or no capacity"}
                }
            }
        },
        "/transacciones/pago-inscripcion": {
            "post": {
                "tags": ["Transactions"],
                "summary": "Register enrollment payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterEnrollmentPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Insufficient amount"}
                }
            }
        },
        "/reportes/exportar": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "nombres": {"type": "string"},
                "apellidos": {"type": "string"},
                "ci_numero": {"type": "string"},
                "ci_expedicion": {"type": "string"},
                "telefono": {"type": "string"},
                "email": {"type": "string"}
            },
            "required": ["nombres", "apellidos", "ci_numero"]
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "estudiante_id": {"type": "string"},
                "programa_id": {"type": "string"},
                "valor_final": {"type": "number"}
            },
            "required": ["estudiante_id", "programa_id"]
        },
        "RegisterEnrollmentPaymentRequest": {
            "type": "object",
            "properties": {
                "inscripcion_id": {"type": "string"},
                "monto_pagado": {"type": "number"},
                "descuento_total": {"type": "number"},
                "forma_pago": {"type": "string"},
                "confirmar": {"type": "boolean"}
            },
            "required": ["inscripcion_id", "monto_pagado", "forma_pago"]
        },
        "ExportReportRequest": {
            "type": "object",
            "properties": {
                "tipo_reporte": {"type": "string"},
                "formato": {"type": "string"},
                "parametros": {"type": "object"}
            },
            "required": ["tipo_reporte", "formato"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
