package models

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Problem is an RFC 7807 body, served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID echoes the request ID so a client report can be matched to logs.
	TraceID string `json:"traceId"`

	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError points a validation failure at one request field,
// e.g. "lat" or "locations[2].name".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://sunsetscout.dev/problems/"

const (
	ProblemTypeValidation           = problemBase + "validation-error"
	ProblemTypeNotFound             = problemBase + "not-found"
	ProblemTypeUnsupportedMediaType = problemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests      = problemBase + "too-many-requests"
	ProblemTypeTLSRequired          = problemBase + "tls-required"
	ProblemTypeInternal             = problemBase + "internal-error"
	ProblemTypeUpstream             = problemBase + "upstream-error"
	ProblemTypeUnavailable          = problemBase + "service-unavailable"
)

type problemKind struct {
	title  string
	status int
}

var problemKinds = map[string]problemKind{
	ProblemTypeValidation:           {"Validation error", http.StatusBadRequest},
	ProblemTypeTLSRequired:          {"TLS required", http.StatusForbidden},
	ProblemTypeNotFound:             {"Not found", http.StatusNotFound},
	ProblemTypeUnsupportedMediaType: {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeTooManyRequests:      {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:             {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUpstream:             {"Upstream error", http.StatusBadGateway},
	ProblemTypeUnavailable:          {"Service unavailable", http.StatusServiceUnavailable},
}

// NewProblem creates a Problem with an explicit title and status.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// problemOf builds a Problem of a catalogued type.
func problemOf(problemType, traceID, detail string) *Problem {
	kind := problemKinds[problemType]
	return NewProblem(problemType, kind.title, kind.status, traceID).WithDetail(detail)
}

func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status. The trace ID is repeated in
// X-Request-Id when set.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest reports invalid input, optionally per field.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return problemOf(ProblemTypeValidation, traceID, detail).WithErrors(errors)
}

func NewTLSRequired(traceID, detail string) *Problem {
	return problemOf(ProblemTypeTLSRequired, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return problemOf(ProblemTypeNotFound, traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return problemOf(ProblemTypeUnsupportedMediaType, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return problemOf(ProblemTypeTooManyRequests, traceID, detail)
}

// NewInternalError hides the cause; detail should be generic.
func NewInternalError(traceID, detail string) *Problem {
	return problemOf(ProblemTypeInternal, traceID, detail)
}

// NewBadGateway reports an upstream that answered with an error.
func NewBadGateway(traceID, detail string) *Problem {
	return problemOf(ProblemTypeUpstream, traceID, detail)
}

// NewServiceUnavailable reports an upstream that could not be reached or
// whose circuit is open.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return problemOf(ProblemTypeUnavailable, traceID, detail)
}
