package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// selectionRequest is the body of PUT /sessions/{id}/selection and the query
// of GET /predict. Hour is a pointer so a missing hour fails "required"
// instead of silently meaning midnight.
type selectionRequest struct {
	Station string `json:"station" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Hour    *int   `json:"hour" validate:"required,gte=0,lte=23"`
}

func (r selectionRequest) toSelection() domain.Selection {
	return domain.Selection{Station: r.Station, Date: r.Date, Hour: *r.Hour}
}

func parseSelectionQuery(r *http.Request) (domain.Selection, error) {
	q := r.URL.Query()
	req := selectionRequest{Station: q.Get("station"), Date: q.Get("date")}
	if h := q.Get("hour"); h != "" {
		hour, err := strconv.Atoi(h)
		if err != nil {
			return domain.Selection{}, badRequestError{msg: "hour must be an integer"}
		}
		req.Hour = &hour
	}
	if err := validate.Struct(req); err != nil {
		return domain.Selection{}, err
	}
	return req.toSelection(), nil
}

func decodeSelection(r *http.Request) (domain.Selection, error) {
	var req selectionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.Selection{}, badRequestError{msg: "invalid JSON body: " + err.Error()}
	}
	if err := validate.Struct(req); err != nil {
		return domain.Selection{}, err
	}
	return req.toSelection(), nil
}

// sessionResponse wraps a session view with the error of the last call,
// so a failed predict still returns the session state.
type sessionResponse struct {
	Session domain.Session `json:"session"`
	Error   *errorBody     `json:"error,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelectionQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pred, err := s.forecaster.Predict(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSelection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Select(r.Context(), r.PathValue("id"), sel)
	s.writeSession(w, r, sess, err)
}

func (s *Server) handleSessionPredict(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Predict(r.Context(), r.PathValue("id"))
	s.writeSession(w, r, sess, err)
}

// writeSession reports the session together with a domain failure. Errors
// that leave no session to show (lookup, storage) use the plain error shape.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, sess domain.Session, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
		return
	}
	if sess.ID == "" || errors.Is(err, domain.ErrSessionNotFound) {
		s.writeError(w, r, err)
		return
	}
	body := newErrorBody(err)
	status := statusFor(body.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("session request failed", "session", sess.ID, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, sessionResponse{Session: sess, Error: &body})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.models.Status())
}

func (s *Server) handleModelReload(w http.ResponseWriter, r *http.Request) {
	err := s.models.Reload(r.Context())
	status := s.models.Status()
	if err != nil {
		body := newErrorBody(err)
		writeJSON(w, statusFor(body.Kind), map[string]any{"error": body, "model": status})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
