package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/couchcryptid/air-quality-forecast/internal/observability"
	"github.com/google/uuid"
)

// Sessions drives the per-client state machine on top of a Forecaster.
// Every read goes through Session.View so a result that does not match the
// current selection is never returned.
type Sessions struct {
	store      domain.SessionStore
	forecaster *Forecaster
	logger     *slog.Logger
	metrics    *observability.Metrics
	newID      func() string
}

// NewSessions creates the session service.
func NewSessions(store domain.SessionStore, f *Forecaster, logger *slog.Logger, metrics *observability.Metrics) *Sessions {
	return &Sessions{
		store:      store,
		forecaster: f,
		logger:     logger,
		metrics:    metrics,
		newID:      uuid.NewString,
	}
}

// Create stores a new idle session.
func (s *Sessions) Create(ctx context.Context) (domain.Session, error) {
	sess := domain.NewSession(s.newID())
	if err := s.store.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns the session view.
func (s *Sessions) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	switch _, ok := sess.CurrentResult(); {
	case ok:
		s.metrics.SessionLookups.WithLabelValues("hit").Inc()
	case sess.Result != nil:
		s.metrics.SessionLookups.WithLabelValues("stale").Inc()
	default:
		s.metrics.SessionLookups.WithLabelValues("miss").Inc()
	}
	return sess.View(), nil
}

// Select records new inputs, discarding a result for different inputs.
func (s *Sessions) Select(ctx context.Context, id string, sel domain.Selection) (domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := sess.Select(sel); err != nil {
		return sess.View(), err
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess.View(), nil
}

// Predict runs the forecast for the session's current selection. A domain
// failure moves the session to FAILED and is returned alongside the updated
// session. If the selection changes while the model runs, the result is
// dropped and the newer session state is returned.
func (s *Sessions) Predict(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Selection == nil {
		return sess.View(), fmt.Errorf("%w: no selection", domain.ErrInvalidTransition)
	}
	sel := *sess.Selection

	prepared, err := s.forecaster.Prepare(sel)
	if err != nil {
		s.forecaster.Record(sel, err)
		sess.Fail(err)
		return s.save(ctx, sess, err)
	}
	if err := sess.WindowReady(); err != nil {
		return sess.View(), err
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}

	pred, inferErr := s.forecaster.Infer(ctx, prepared)
	s.forecaster.Record(sel, inferErr)

	latest, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if latest.Selection == nil || latest.Selection.Key() != sel.Key() {
		s.logger.Info("selection changed during prediction, result dropped", "session", id, "key", sel.Key())
		return latest.View(), nil
	}
	if inferErr != nil {
		latest.Fail(inferErr)
		return s.save(ctx, latest, inferErr)
	}
	if latest.State != domain.StateWindowReady {
		if err := latest.WindowReady(); err != nil {
			return latest.View(), err
		}
	}
	if err := latest.Complete(pred); err != nil {
		return latest.View(), err
	}
	s.forecaster.Publish(ctx, pred)
	return s.save(ctx, latest, nil)
}

// Delete removes a session.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Sessions) save(ctx context.Context, sess domain.Session, cause error) (domain.Session, error) {
	if err := s.store.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess.View(), cause
}
