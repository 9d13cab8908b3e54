package handlers_test

import (
	"net/http"
	"testing"

	"github.com/hugh/birthday-buddy/internal/api/handlers"
	"github.com/hugh/birthday-buddy/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	t.Run("liveness", func(t *testing.T) {
		rr := env.do(t, "GET", "/health", nil, "")
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "healthy", resp.Status)
	})

	t.Run("ready", func(t *testing.T) {
		rr := env.do(t, "GET", "/ready", nil, "")
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Services["database"])
		assert.Equal(t, "healthy", resp.Services["redis"])
	})

	t.Run("metrics", func(t *testing.T) {
		rr := env.do(t, "GET", "/metrics", nil, "")
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := env.do(t, "GET", "/nope", nil, "")
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
	})

	t.Run("degraded without redis", func(t *testing.T) {
		env.Redis.Close()

		rr := env.do(t, "GET", "/ready", nil, "")
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Services["redis"])
	})

	t.Run("unhealthy without database", func(t *testing.T) {
		sqlDB, err := env.DB.DB()
		if err != nil {
			t.Fatal(err)
		}
		sqlDB.Close()

		rr := env.do(t, "GET", "/ready", nil, "")
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	})
}
