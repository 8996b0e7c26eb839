package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/go-playground/validator/v10"
)

const kindValidation = "validation"

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case domain.KindTargetNotFound, domain.KindUnknownStation, domain.KindSessionNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientHistory, domain.KindDegenerateScale,
		domain.KindMissingValues, domain.KindNonContiguousWindow:
		return http.StatusUnprocessableEntity
	case domain.KindModelUnavailable, domain.KindNoDataFound:
		return http.StatusServiceUnavailable
	case domain.KindInferenceFailure:
		return http.StatusBadGateway
	case domain.KindInvalidSelection, domain.KindInvalidTransition, kindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newErrorBody(err error) errorBody {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body := errorBody{Kind: kindValidation, Message: "request validation failed"}
		for _, fe := range verrs {
			body.Fields = append(body.Fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return body
	}
	var bad badRequestError
	if errors.As(err, &bad) {
		return errorBody{Kind: kindValidation, Message: bad.Error()}
	}
	kind := domain.ErrorKind(err)
	if kind == domain.KindInternal {
		return errorBody{Kind: kind, Message: "internal error"}
	}
	return errorBody{Kind: kind, Message: err.Error()}
}

// writeError writes err as {"error": {...}} with the mapped status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := newErrorBody(err)
	status := statusFor(body.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// badRequestError marks malformed input that never reached the domain.
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }
