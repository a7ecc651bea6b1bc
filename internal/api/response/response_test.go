package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsetscout/sunsetscout/internal/api/middleware"
	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/api/response"
)

// requestWithID returns a request whose context was populated by the
// RequestID middleware.
func requestWithID(t *testing.T, method, path, clientID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	if clientID != "" {
		req.Header.Set(middleware.RequestIDHeader, clientID)
	}

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, processed)
	return processed
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	return problem
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/v1/forecast", "")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("X-Request-Id"), "req_")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"hello"}`, rec.Body.String())
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}

func TestJSON_NilData(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/test", "")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestJSON_PropagatesClientRequestID(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/test", "client-request-123")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, "client-request-123", rec.Header().Get("X-Request-Id"))
}

func TestBadRequest_IncludesFieldErrors(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/v1/forecast", "req_abc")
	rec := httptest.NewRecorder()

	response.BadRequest(rec, req, "invalid coordinates", []models.FieldError{
		{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, "req_abc", problem.TraceID)
	assert.Equal(t, "/v1/forecast", problem.Instance)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "lat", problem.Errors[0].Field)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request, string)
		status int
		typ    string
	}{
		{"not found", response.NotFound, http.StatusNotFound, models.ProblemTypeNotFound},
		{"internal", response.InternalError, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"bad gateway", response.BadGateway, http.StatusBadGateway, models.ProblemTypeUpstream},
		{"unavailable", response.ServiceUnavailable, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithID(t, http.MethodGet, "/v1/forecast", "req_xyz")
			rec := httptest.NewRecorder()

			tt.write(rec, req, "detail text")

			assert.Equal(t, tt.status, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.typ, problem.Type)
			assert.Equal(t, tt.status, problem.Status)
			assert.Equal(t, "detail text", problem.Detail)
			assert.Equal(t, "req_xyz", problem.TraceID)
		})
	}
}
