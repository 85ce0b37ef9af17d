package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"
	"wisesplit/internal/middleware/trace"
	"wisesplit/internal/services"
)

// JSONResponseBuilder assembles a JSON response: status, extra headers and
// a body marshalled on Write.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A body that fails to marshal becomes a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			payload = []byte(`{"error":"internal error"}`)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if payload != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if payload != nil {
		_, _ = w.Write(append(payload, '\n'))
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse builds an error body tagged with the request ID.
func ErrorResponse(r *http.Request, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, RequestID: trace.RequestID(r)})
}

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// statusFor maps an error from the service layer to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnbalancedLedger):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, ledger.ErrNotMember),
		errors.Is(err, ledger.ErrMissingParticipant),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyGroupName),
		errors.Is(err, core.ErrMissingPayer),
		errors.Is(err, core.ErrNoSplits),
		errors.Is(err, core.ErrSplitMismatch),
		errors.Is(err, core.ErrDuplicateSplit),
		errors.Is(err, core.ErrNoParticipants),
		errors.Is(err, core.ErrInvalidWeight):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs the failure and sends it to the client. Server errors are
// reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
		message = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	ErrorResponse(r, status, message).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
