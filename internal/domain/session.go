package domain

import (
	"context"
	"fmt"
	"time"
)

// SessionState is a step of the interactive prediction flow.
type SessionState string

// Session states. Changing the selection while PREDICTED returns to
// INPUT_SELECTED and drops the stale result.
const (
	StateIdle          SessionState = "idle"
	StateInputSelected SessionState = "input_selected"
	StateWindowReady   SessionState = "window_ready"
	StatePredicted     SessionState = "predicted"
	StateFailed        SessionState = "failed"
)

// Failure records why the last prediction attempt stopped.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-client prediction state. It is a value type; stores
// hand out copies so sessions never share a result slot.
type Session struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	Selection *Selection   `json:"selection,omitempty"`
	Result    *Prediction  `json:"result,omitempty"`
	Failure   *Failure     `json:"failure,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SessionStore persists sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// NewSession returns an idle session.
func NewSession(id string) Session {
	return Session{ID: id, State: StateIdle, UpdatedAt: Now()}
}

// Select records new inputs. A stored result for a different key is
// discarded before anything else happens. Re-selecting the same inputs
// keeps a matching result.
func (s *Session) Select(sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	s.UpdatedAt = Now()
	if s.Result != nil && s.Result.Key == sel.Key() && s.State == StatePredicted {
		s.Selection = &sel
		return nil
	}
	s.Result = nil
	s.Failure = nil
	s.Selection = &sel
	s.State = StateInputSelected
	return nil
}

// WindowReady marks a successful window extraction for the current selection.
func (s *Session) WindowReady() error {
	if s.State != StateInputSelected && s.State != StatePredicted && s.State != StateFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StateWindowReady)
	}
	if s.Selection == nil {
		return fmt.Errorf("%w: no selection", ErrInvalidTransition)
	}
	s.Result = nil
	s.Failure = nil
	s.State = StateWindowReady
	s.UpdatedAt = Now()
	return nil
}

// Complete stores a prediction. The prediction must match the selection.
func (s *Session) Complete(p Prediction) error {
	if s.State != StateWindowReady {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, StatePredicted)
	}
	if s.Selection == nil || p.Key != s.Selection.Key() {
		return fmt.Errorf("%w: result key %q does not match selection", ErrInvalidTransition, p.Key)
	}
	s.Result = &p
	s.Failure = nil
	s.State = StatePredicted
	s.UpdatedAt = Now()
	return nil
}

// Fail moves the session to FAILED and records the reason.
func (s *Session) Fail(err error) {
	s.Result = nil
	s.Failure = &Failure{Kind: ErrorKind(err), Message: err.Error()}
	s.State = StateFailed
	s.UpdatedAt = Now()
}

// CurrentResult returns the stored prediction only when it belongs to the
// current selection.
func (s Session) CurrentResult() (Prediction, bool) {
	if s.Result == nil || s.Selection == nil || s.Result.Key != s.Selection.Key() {
		return Prediction{}, false
	}
	return *s.Result, true
}

// View returns a copy safe to serialize: a mismatched result is never shown.
func (s Session) View() Session {
	if _, ok := s.CurrentResult(); !ok {
		s.Result = nil
	}
	return s
}
