// Package response writes handler results as JSON bodies or RFC 7807 problems,
// stamped with the request ID.
package response

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sunsetscout/sunsetscout/internal/api/middleware"
	"github.com/sunsetscout/sunsetscout/internal/api/models"
)

// JSON encodes data with status. A nil data writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h := w.Header()
	if id := middleware.GetRequestID(r.Context()); id != "" {
		h.Set(middleware.RequestIDHeader, id)
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes problem with its instance set to the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

type problemFunc func(traceID, detail string) *models.Problem

func writeProblem(w http.ResponseWriter, r *http.Request, newProblem problemFunc, detail string) {
	Error(w, r, newProblem(middleware.GetRequestID(r.Context()), detail))
}

// BadRequest answers 400, listing the offending fields when known.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	writeProblem(w, r, func(traceID, detail string) *models.Problem {
		return models.NewBadRequest(traceID, detail, errors)
	}, detail)
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.NewNotFound, detail)
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.NewInternalError, detail)
}

// BadGateway answers 502 for an upstream that replied with an error.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.NewBadGateway, detail)
}

// ServiceUnavailable answers 503 for an upstream that could not be reached.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.NewServiceUnavailable, detail)
}
