// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go` after changing the
// handler annotations.
package docs

import "github.com/swaggo/swag/v2"

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
            "/batches": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Schedule a production batch",
                    "parameters": [
                        {"type": "string", "name": "Idempotency-Key", "in": "header"}
                    ],
                    "responses": {"200": {"description": "OK"}}
                },
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "List batches",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/auto-schedule": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Plan batches for an order",
                    "parameters": [
                        {"type": "string", "name": "Idempotency-Key", "in": "header"}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/{id}": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Get a batch",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/{id}/activity": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Batch audit trail",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/{id}/start": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Start a scheduled batch",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/{id}/complete": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Complete a batch",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/batches/{id}/cancel": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["batches"],
                    "summary": "Cancel a batch",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/eligible": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Orders waiting for a batch",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/delivery-dates": {
                "put": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Set expected delivery dates of many orders",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/{id}": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Get an order with its lines",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/{id}/delivery": {
                "put": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Update delivery metadata",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/{id}/reserve-stock": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Hold finished goods for an order",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/{id}/release-stock": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Release the finished goods held for an order",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/orders/{id}/dispatch": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["orders"],
                    "summary": "Send a ready order to dispatch",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/bom/{sku_id}": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Resolve the BOM of a SKU quantity",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "sku_id", "in": "path", "required": true},
                        {"type": "string", "name": "quantity", "in": "query", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/bom/consolidated": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Merge the BOMs of several SKU quantities",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/bom/consolidated/export": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Download the consolidated BOM as XLSX",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/feasibility/product": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Can stock cover one SKU quantity",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/feasibility/group": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Can stock cover several SKU quantities together",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/inventory-check": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Check material quantities against stock",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/planning/dashboard": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["planning"],
                    "summary": "Production gap per finished good SKU",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/system/outbox/stats": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["outbox"],
                    "summary": "Get outbox statistics",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/system/outbox/dead": {
                "get": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["outbox"],
                    "summary": "List dead letter entries",
                    "responses": {"200": {"description": "OK"}}
                }
            },
            "/system/outbox/{id}/retry": {
                "post": {
                    "security": [{"BearerAuth": []}],
                    "tags": ["outbox"],
                    "summary": "Retry a dead letter entry",
                    "parameters": [
                        {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                    ],
                    "responses": {"200": {"description": "OK"}}
                }
            }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Paintworks Production Planning API",
	Description:      "Production batch scheduling, BOM resolution and order readiness for a paint plant",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
