package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
)

type healthEnvelope struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthCheckReportsDependencies(t *testing.T) {
	cfg := config.Config{
		AppName:      "GEMA Grading API",
		AppEnv:       "test",
		AIProvider:   "gemini",
		GeminiAPIKey: "key",
	}

	cases := []struct {
		name   string
		probes map[string]handler.HealthProbe
		status int
		want   string
	}{
		{
			name:   "all up",
			probes: map[string]handler.HealthProbe{"database": func(context.Context) error { return nil }},
			status: fiber.StatusOK,
			want:   "ok",
		},
		{
			name: "redis down",
			probes: map[string]handler.HealthProbe{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("connection refused") },
			},
			status: fiber.StatusServiceUnavailable,
			want:   "degraded",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/api/v1/health", handler.HealthCheck(cfg, tc.probes))

			resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var payload healthEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			require.True(t, payload.Success)
			require.Equal(t, tc.want, payload.Data.Status)
			require.Equal(t, "gemini", payload.Data.AIProvider)
			require.Equal(t, "up", payload.Data.Dependencies["database"])
			require.Len(t, payload.Data.Dependencies, len(tc.probes))
			require.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
		})
	}
}
