package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/httpjson"
)

// handleOpenAPI décrit la surface du panneau. Les routes /panel renvoient des
// fragments HTML (htmx), seules /api/v1 et le rapport de fenêtre parlent JSON.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	htmlOK := map[string]any{
		"description": "HTML fragment",
		"content":     map[string]any{"text/html": map[string]any{"schema": map[string]any{"type": "string"}}},
	}
	actionResponses := map[string]any{
		"200": htmlOK,
		"400": map[string]any{"description": "Confirmation required (toast fragment, X-Panel-Error header)"},
		"429": map[string]any{"description": "Rate limited (toast fragment, X-Panel-Error header)"},
		"502": map[string]any{"description": "Backend failure (toast fragment, X-Panel-Error header)"},
	}
	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	htmlGet := func(summary string) map[string]any {
		return map[string]any{"get": map[string]any{"summary": summary, "responses": map[string]any{"200": htmlOK}}}
	}
	htmlPost := func(summary string) map[string]any {
		return map[string]any{"post": map[string]any{"summary": summary, "responses": map[string]any{"200": htmlOK}}}
	}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Trakt sync panel",
			"version": buildinfo.Version,
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":       "object",
					"properties": map[string]any{"detail": map[string]any{"type": "string"}},
					"required":   []any{"detail"},
				},
				"ConfigForm": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"enabled":       map[string]any{"type": "boolean"},
						"sync_interval": map[string]any{"type": "string", "description": "Standard 5-field cron expression", "example": "0 */6 * * *"},
					},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health":       map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}}},
			"/api/v1/version":      map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}}},
			"/api/v1/openapi.json": map[string]any{"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}}},
			"/panel":               htmlGet("Full panel page (resets the history cursor)"),
			"/panel/config": map[string]any{
				"get": map[string]any{"summary": "Connection region", "responses": map[string]any{"200": htmlOK}},
				"put": map[string]any{
					"summary": "Save sync configuration",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/x-www-form-urlencoded": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/ConfigForm"},
							},
						},
					},
					"responses": actionResponses,
				},
			},
			"/panel/status": htmlGet("Sync status region"),
			"/panel/sync": map[string]any{
				"post": map[string]any{
					"summary":    "Trigger a manual sync (full=true for a full sync)",
					"parameters": []any{map[string]any{"name": "full", "in": "query", "schema": map[string]any{"type": "boolean"}}},
					"responses":  actionResponses,
				},
			},
			"/panel/disconnect": map[string]any{
				"post": map[string]any{
					"summary": "Disconnect from Trakt (requires confirm=yes)",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/x-www-form-urlencoded": map[string]any{
								"schema": map[string]any{
									"type":       "object",
									"properties": map[string]any{"confirm": map[string]any{"type": "string", "enum": []any{"yes"}}},
									"required":   []any{"confirm"},
								},
							},
						},
					},
					"responses": actionResponses,
				},
			},
			"/panel/history": map[string]any{
				"get": map[string]any{
					"summary":    "Sync history region",
					"parameters": []any{map[string]any{"name": "nav", "in": "query", "schema": map[string]any{"type": "string", "enum": []any{"refresh", "first", "prev", "next"}}}},
					"responses":  map[string]any{"200": htmlOK},
				},
			},
			"/panel/auth":        htmlGet("Authorization modal"),
			"/panel/auth/show":   htmlPost("Show the authorization modal"),
			"/panel/auth/start":  htmlPost("Start an authorization flow"),
			"/panel/auth/retry":  htmlPost("Restart the authorization flow"),
			"/panel/auth/cancel": htmlPost("Cancel the authorization flow"),
			"/panel/auth/window/{id}": map[string]any{
				"post": map[string]any{
					"summary": "Report the state of the authorization popup",
					"parameters": []any{
						map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"}},
						map[string]any{"name": "status", "in": "query", "required": true, "schema": map[string]any{"type": "string", "enum": []any{WindowOpened, WindowBlocked, WindowClosed}}},
					},
					"responses": map[string]any{"204": map[string]any{"description": "Recorded"}, "400": jsonErr, "404": jsonErr},
				},
			},
			"/panel/events": map[string]any{
				"get": map[string]any{"summary": "Server-sent events for the current panel session", "responses": map[string]any{"200": map[string]any{"description": "SSE"}}},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, doc)
}
