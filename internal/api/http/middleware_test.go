package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/observability"
	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

func TestErrorHandlingMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, MiddlewareConfig{Logger: zap.NewNop(), Metrics: metrics})
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/internal", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return apperrors.NewConflict("taken", map[string]any{"field": "username"})
	})

	tests := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/panic", 500, "INTERNAL_ERROR", "internal server error"},
		{"/internal", 500, "INTERNAL_ERROR", "internal server error"},
		{"/conflict", 409, "CONFLICT", "taken"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			if err != nil {
				t.Fatalf("Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.Header.Get(fiber.HeaderXRequestID) == "" {
				t.Error("missing request id header")
			}
			var body struct {
				Error struct {
					Code    string         `json:"code"`
					Message string         `json:"message"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code || body.Error.Message != tt.message {
				t.Errorf("error = %+v", body.Error)
			}
		})
	}

	if snap := metrics.Snapshot(); len(snap.Errors) != 3 {
		t.Errorf("recorded errors = %+v, want 3 entries", snap.Errors)
	}
}
