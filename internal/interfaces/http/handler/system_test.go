package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func setupSystemRouter(checks map[string]Pinger) *gin.Engine {
	h := NewSystemHandler("paintworks-planning", "1.2.0", checks)
	r := newTestRouter()
	r.GET("/health", h.Health)
	r.GET("/health/live", h.Ping)
	return r
}

func TestSystemHandler_Health(t *testing.T) {
	r := setupSystemRouter(map[string]Pinger{
		"database": pingFunc(func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		}),
	})

	w := doRequest(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "paintworks-planning", got.Name)
	assert.Equal(t, "1.2.0", got.Version)
	assert.NotEmpty(t, got.GoVersion)
	assert.Equal(t, map[string]string{"database": "ok"}, got.Checks)
}

func TestSystemHandler_Health_Degraded(t *testing.T) {
	r := setupSystemRouter(map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	w := doRequest(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "ok", got.Checks["database"])
	assert.Equal(t, "connection refused", got.Checks["redis"])
}

func TestSystemHandler_Ping(t *testing.T) {
	r := setupSystemRouter(nil)

	w := doRequest(r, http.MethodGet, "/health/live", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got string
	require.NoError(t, json.Unmarshal(decodeResponse(t, w).Data, &got))
	assert.Equal(t, "pong", got)
}
