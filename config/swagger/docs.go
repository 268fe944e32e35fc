// Package swagger registers the OpenAPI document served at /swagger.
package swagger

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
        "/ping": {
            "get": {
                "description": "Returns a basic message",
                "produces": ["application/json"],
                "tags": ["test"],
                "summary": "Endpoint just pings the server",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "properties": {"message": {"type": "string"}}}}}
            }
        },
        "/health": {
            "get": {
                "description": "Reports that the server is up",
                "produces": ["application/json"],
                "tags": ["test"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "properties": {"status": {"type": "string"}, "timestamp": {"type": "integer"}}}}}
            }
        },
        "/api/lobby/online": {
            "get": {
                "description": "Number of registered players, players searching and players in a game",
                "produces": ["application/json"],
                "tags": ["lobby"],
                "summary": "Online counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OnlineStats"}}}
            }
        },
        "/api/lobby/queue": {
            "get": {
                "description": "Players waiting in the queue, longest wait first, and pending invitations",
                "produces": ["application/json"],
                "tags": ["lobby"],
                "summary": "Matchmaking queue",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LobbyStats"}}}
            }
        },
        "/api/players/{id}/presence": {
            "get": {
                "description": "Whether a player is online, playing or offline",
                "produces": ["application/json"],
                "tags": ["lobby"],
                "summary": "Player presence",
                "parameters": [{"type": "string", "description": "Player ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/redis.PlayerPresence"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/error"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/game/{id}": {
            "get": {
                "description": "Live snapshot of a game, or its cached summary once the session is gone",
                "produces": ["application/json"],
                "tags": ["game"],
                "summary": "Game state",
                "parameters": [{"type": "string", "description": "Game ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/game/history": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Finished games of the authenticated player, newest first",
                "produces": ["application/json"],
                "tags": ["game"],
                "summary": "Game history",
                "parameters": [
                    {"type": "string", "description": "Bearer JWT token", "name": "Authorization", "in": "header", "required": true},
                    {"type": "integer", "description": "Maximum number of games (default 20, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/error"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/game/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Games played, wins, losses and draws of the authenticated player",
                "produces": ["application/json"],
                "tags": ["game"],
                "summary": "Player statistics",
                "parameters": [{"type": "string", "description": "Bearer JWT token", "name": "Authorization", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sync.PlayerStats"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/error"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        }
    },
    "definitions": {
        "error": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "string"}}},
        "handlers.OnlineStats": {
            "type": "object",
            "properties": {"playersOnline": {"type": "integer"}, "inQueue": {"type": "integer"}, "inGame": {"type": "integer"}}
        },
        "handlers.LobbyStats": {
            "type": "object",
            "properties": {
                "waitingCount": {"type": "integer"},
                "pendingInvitations": {"type": "integer"},
                "entries": {
                    "type": "array",
                    "items": {"type": "object", "properties": {"id": {"type": "string"}, "waitMs": {"type": "integer"}, "mode": {"type": "string"}}}
                }
            }
        },
        "redis.PlayerPresence": {
            "type": "object",
            "properties": {"player_id": {"type": "string"}, "status": {"type": "string"}, "game_id": {"type": "string"}, "updated_at": {"type": "string"}}
        },
        "sync.PlayerStats": {
            "type": "object",
            "properties": {"playerId": {"type": "string"}, "gamesPlayed": {"type": "integer"}, "wins": {"type": "integer"}, "losses": {"type": "integer"}, "draws": {"type": "integer"}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Arena API",
	Description:      "Gin-Gonic server for the Arena real-time duel game",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
