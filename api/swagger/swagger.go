package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClubHub API",
        "description": "Student club discovery and account request management",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Signup", "description": "Signup intake and identity availability"},
        {"name": "Authentication", "description": "Sessions, activation and credentials"},
        {"name": "Admin", "description": "Account request review and exports"},
        {"name": "Users", "description": "Profiles and user directory"},
        {"name": "Clubs", "description": "Club directory"},
        {"name": "Events", "description": "Event catalogue"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Signup"],
                "summary": "Submit a signup",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Registered or pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "409": {"description": "Identity already claimed"}
                }
            }
        },
        "/auth/signup/availability": {
            "get": {
                "tags": ["Signup"],
                "summary": "Check identity availability",
                "parameters": [
                    {"name": "type", "in": "query", "required": true, "type": "string", "enum": ["username", "email"]},
                    {"name": "value", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Advisory availability answer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email or username",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Issued tokens", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account inactive or not activated"}
                }
            }
        },
        "/auth/activate": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Activate an approved account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActivateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Account activated and logged in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Activation link invalid, expired or used"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Refresh token invalid"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the current session",
                "responses": {
                    "204": {"description": "Session revoked"},
                    "401": {"description": "Not authenticated"}
                }
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Change the current password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password changed, other sessions revoked"},
                    "401": {"description": "Current password incorrect"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current account",
                "responses": {
                    "200": {"description": "Authenticated user record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Not authenticated"}
                }
            }
        },
        "/admin/requests": {
            "get": {
                "tags": ["Admin"],
                "summary": "List account requests",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["organizer", "admin"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Requests newest first", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/requests/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Inspect an account request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Request record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/admin/requests/{id}/approve": {
            "post": {
                "tags": ["Admin"],
                "summary": "Approve an account request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Created account and activation token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved or account exists"}
                }
            }
        },
        "/admin/requests/{id}/reject": {
            "post": {
                "tags": ["Admin"],
                "summary": "Reject an account request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "204": {"description": "Rejected"},
                    "409": {"description": "Already resolved"}
                }
            }
        },
        "/admin/requests/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the request ledger",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Signed download token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List users",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string", "enum": ["student", "organizer", "admin"]},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Users", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/users/{id}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Deactivate a user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated and sessions revoked"},
                    "403": {"description": "Admin accounts are protected"}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "System metrics snapshot",
                "responses": {
                    "200": {"description": "Runtime and domain counters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download an export file",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Download link invalid or expired"},
                    "404": {"description": "Export no longer exists"}
                }
            }
        },
        "/users/me": {
            "put": {
                "tags": ["Users"],
                "summary": "Update own profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/users/{username}": {
            "get": {
                "tags": ["Users"],
                "summary": "Public profile",
                "parameters": [
                    {"name": "username", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Public profile", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/users/search": {
            "get": {
                "tags": ["Users"],
                "summary": "Type-ahead user suggestions",
                "parameters": [
                    {"name": "q", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Suggestions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/clubs": {
            "get": {
                "tags": ["Clubs"],
                "summary": "List clubs",
                "responses": {
                    "200": {"description": "Clubs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/clubs/{id}": {
            "get": {
                "tags": ["Clubs"],
                "summary": "Club detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Club record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/clubs/mine": {
            "get": {
                "tags": ["Clubs"],
                "summary": "Club owned by the current organizer",
                "responses": {
                    "200": {"description": "Club record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No club for this account"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["latest", "closest", "popular"]}
                ],
                "responses": {
                    "200": {"description": "Events", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Event detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Event record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string", "description": "Required for students only"},
                "role": {"type": "string", "enum": ["student", "organizer", "admin"]},
                "club_name": {"type": "string", "description": "Required for organizer signups"}
            },
            "required": ["email", "username", "role"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "identifier": {"type": "string", "description": "Email or username"},
                "password": {"type": "string"}
            },
            "required": ["identifier", "password"]
        },
        "ActivateRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["token", "password"]
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "old_password": {"type": "string"},
                "new_password": {"type": "string"}
            },
            "required": ["old_password", "new_password"]
        },
        "UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "bio": {"type": "string"},
                "major": {"type": "string"},
                "academic_year": {"type": "string"},
                "skills": {"type": "array", "items": {"type": "string"}},
                "interests": {"type": "array", "items": {"type": "string"}}
            }
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
