// Package docs registers the OpenAPI description served under /swagger/.
// Keep it in step with the handler annotations in package http.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/domainvault"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/domains": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "List domains",
                "parameters": [
                    {"type": "string", "description": "Case-insensitive name or provider filter", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DomainList"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "Create a domain",
                "parameters": [
                    {"description": "Domain", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Domain"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/DomainWrite"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/domains/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "Update a domain",
                "description": "Fields present in the body replace stored ones; everything else is kept.",
                "parameters": [
                    {"type": "string", "description": "Domain ID", "name": "id", "in": "path", "required": true},
                    {"description": "Partial domain", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Domain"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DomainWrite"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "Delete a domain",
                "parameters": [
                    {"type": "string", "description": "Domain ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyncStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/providers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Providers"],
                "summary": "List providers with passwords redacted",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Providers"],
                "summary": "Create a provider",
                "parameters": [
                    {"description": "Provider", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Provider"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/providers/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Providers"],
                "summary": "Delete a provider",
                "description": "Without confirm=true the response is 409 with the confirmation prompt and the number of domains using the provider.",
                "parameters": [
                    {"type": "string", "description": "Provider ID", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Confirm the deletion", "name": "confirm", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyncStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Confirmation required"}
                }
            }
        },
        "/v1/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DashboardStats"}}
                }
            }
        },
        "/v1/calendar/{year}/{month}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Month grid of renewals",
                "parameters": [
                    {"type": "integer", "name": "year", "in": "path", "required": true},
                    {"type": "integer", "name": "month", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/export/calendar": {
            "get": {
                "produces": ["text/calendar"],
                "tags": ["Reports"],
                "summary": "Download renewals as iCalendar",
                "responses": {
                    "200": {"description": "OK"},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/v1/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Sign in with a bearer token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "501": {"description": "Sign-in disabled", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Sign out",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}
                }
            }
        }
    },
    "definitions": {
        "Domain": {
            "type": "object",
            "additionalProperties": true,
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string", "example": "example.com"},
                "provider": {"type": "string", "example": "Namecheap"},
                "renewalDate": {"type": "string", "example": "2026-04-15"},
                "price": {"type": "string", "example": "12.99"},
                "purchasePrice": {"type": "string"},
                "autoRenew": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "DomainView": {
            "type": "object",
            "properties": {
                "domain": {"$ref": "#/definitions/Domain"},
                "daysUntil": {"type": "integer"},
                "status": {"type": "string", "enum": ["active", "expiring", "expired"]}
            }
        },
        "DomainList": {
            "type": "object",
            "properties": {
                "domains": {"type": "array", "items": {"$ref": "#/definitions/DomainView"}}
            }
        },
        "DomainWrite": {
            "type": "object",
            "properties": {
                "domain": {"$ref": "#/definitions/DomainView"},
                "synced": {"type": "boolean"},
                "warning": {"type": "string"}
            }
        },
        "Provider": {
            "type": "object",
            "additionalProperties": true,
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "url": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"},
                "accountId": {"type": "string"}
            }
        },
        "SyncStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "synced": {"type": "boolean"},
                "warning": {"type": "string"}
            }
        },
        "DashboardStats": {
            "type": "object",
            "properties": {
                "totalDomains": {"type": "integer"},
                "uniqueProviderCount": {"type": "integer"},
                "expiringCount": {"type": "integer"},
                "yearlyCostSum": {"type": "string"},
                "totalInvestmentSum": {"type": "string"}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["unauthenticated", "authenticating", "authenticated"]},
                "identity": {
                    "type": "object",
                    "properties": {
                        "userId": {"type": "string"},
                        "username": {"type": "string"}
                    }
                },
                "warning": {"type": "string"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Access token from the auth service. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Domain Vault API",
	Description:      "Tracks registered domains, their providers and renewal dates. Writes land in the local cache first and are mirrored to the remote store while signed in.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
