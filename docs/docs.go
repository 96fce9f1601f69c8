// Package docs registers the OpenAPI description served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List notifications created by the caller's access token",
                "parameters": [
                    {"type": "integer", "default": 50, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Notification"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Send a notification",
                "parameters": [{"description": "Notification", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.sendNotificationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notification.Result"}},
                    "202": {"description": "Scheduled", "schema": {"$ref": "#/definitions/notification.Result"}},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/notification.Result"}}
                }
            }
        },
        "/notifications/bulk": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Send notifications in bulk",
                "parameters": [{"description": "Notifications", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.bulkRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/notification.BulkResult"}}}
            }
        },
        "/notifications/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Get a notification",
                "parameters": [{"type": "string", "description": "Notification ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Notification"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/otp/email": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Issue a one-time code by email",
                "parameters": [{"description": "Recipient", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.otpEmailRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/otp.SendResult"}}}
            }
        },
        "/otp/sms": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Issue a one-time code by SMS",
                "parameters": [{"description": "Recipient", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.otpSMSRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/otp.SendResult"}}}
            }
        },
        "/otp/both": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Issue one code by email and SMS",
                "parameters": [{"description": "Recipients", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.otpBothRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/otp.BothResult"}}}
            }
        },
        "/otp/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Verify a one-time code",
                "parameters": [{"description": "Identifier and code", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.verifyOTPRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/otp.VerifyResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/otp.VerifyResult"}}
                }
            }
        },
        "/otp/{identifier}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Inspect the pending code for an identifier",
                "parameters": [{"type": "string", "description": "Email or phone", "name": "identifier", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/otp.Info"}},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["otp"],
                "summary": "Discard the pending code for an identifier",
                "parameters": [{"type": "string", "description": "Email or phone", "name": "identifier", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["notifications"],
                "summary": "Stream status updates for the caller's notifications",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "api.sendNotificationRequest": {
            "type": "object",
            "required": ["channel", "recipient"],
            "properties": {
                "channel": {"type": "string", "enum": ["email", "sms", "whatsapp", "push"]},
                "recipient": {"type": "string"},
                "recipientName": {"type": "string"},
                "subject": {"type": "string"},
                "message": {"type": "string"},
                "templateId": {"type": "string"},
                "templateData": {"type": "object", "additionalProperties": true},
                "metadata": {"type": "object", "additionalProperties": true},
                "scheduledFor": {"type": "string", "format": "date-time"}
            }
        },
        "api.bulkRequest": {
            "type": "object",
            "required": ["notifications"],
            "properties": {
                "notifications": {"type": "array", "maxItems": 100, "items": {"$ref": "#/definitions/api.sendNotificationRequest"}}
            }
        },
        "api.otpEmailRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"},
                "ttlMinutes": {"type": "integer"},
                "templateId": {"type": "string"},
                "recipientName": {"type": "string"}
            }
        },
        "api.otpSMSRequest": {
            "type": "object",
            "required": ["phone"],
            "properties": {
                "phone": {"type": "string"},
                "ttlMinutes": {"type": "integer"},
                "templateId": {"type": "string"},
                "recipientName": {"type": "string"}
            }
        },
        "api.otpBothRequest": {
            "type": "object",
            "required": ["email", "phone"],
            "properties": {
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "ttlMinutes": {"type": "integer"},
                "templateId": {"type": "string"},
                "recipientName": {"type": "string"}
            }
        },
        "api.verifyOTPRequest": {
            "type": "object",
            "required": ["identifier", "otp"],
            "properties": {
                "identifier": {"type": "string"},
                "otp": {"type": "string"}
            }
        },
        "notification.Result": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "notificationId": {"type": "string"},
                "messageId": {"type": "string"},
                "status": {"type": "string"},
                "channel": {"type": "string"},
                "recipient": {"type": "string"},
                "scheduledFor": {"type": "string", "format": "date-time"},
                "error": {"type": "string"}
            }
        },
        "notification.BulkResult": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "successful": {"type": "integer"},
                "failed": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/notification.Result"}}
            }
        },
        "models.Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "channel": {"type": "string"},
                "recipient": {"type": "string"},
                "status": {"type": "string"},
                "provider_message_id": {"type": "string"},
                "error_message": {"type": "string"},
                "retry_count": {"type": "integer"},
                "max_retries": {"type": "integer"},
                "sent_at": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "otp.SendResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "channel": {"type": "string"},
                "recipient": {"type": "string"},
                "notificationId": {"type": "string"},
                "messageId": {"type": "string"},
                "status": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"},
                "code": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "otp.BothResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "email": {"$ref": "#/definitions/otp.SendResult"},
                "sms": {"$ref": "#/definitions/otp.SendResult"},
                "code": {"type": "string"}
            }
        },
        "otp.VerifyResult": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "code": {"type": "string", "enum": ["OTP_VERIFIED", "OTP_NOT_FOUND", "OTP_EXPIRED", "MAX_ATTEMPTS_EXCEEDED", "INVALID_OTP"]},
                "message": {"type": "string"},
                "remainingAttempts": {"type": "integer"}
            }
        },
        "otp.Info": {
            "type": "object",
            "properties": {
                "identifier": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"},
                "createdAt": {"type": "string", "format": "date-time"},
                "attempts": {"type": "integer"},
                "maxAttempts": {"type": "integer"},
                "remainingAttempts": {"type": "integer"},
                "expired": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "notify-gateway API",
	Description:      "Notification dispatch and one-time code delivery over email, SMS and WhatsApp.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
