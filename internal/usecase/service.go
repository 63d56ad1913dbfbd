package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheet-qa/internal/session"
)

const defaultMaxQuestion = 300

// SessionStore loads and persists session state. Get reports found=false for
// an unknown or expired session.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.State, bool, error)
	Save(ctx context.Context, s *session.State) error
	Delete(ctx context.Context, id string) error
}

// SessionService runs user commands against a session: it loads the state,
// computes effects, applies them to a copy and saves the result.
type SessionService struct {
	store          SessionStore
	ingester       *Ingester
	dispatcher     *Dispatcher
	maxQuestionLen int
}

// Outcome is the state after a command plus the effects that produced it.
type Outcome struct {
	State   *session.State
	Effects []session.Effect
}

type UploadInput struct {
	SessionID string
	Filename  string
	Body      io.ReadSeeker
}

type AskInput struct {
	SessionID string
	Question  string
}

func NewSessionService(store SessionStore, ingester *Ingester, dispatcher *Dispatcher, maxQuestionLen int) (*SessionService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if ingester == nil {
		return nil, errors.New("usecase: ingester must not be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("usecase: dispatcher must not be nil")
	}
	if maxQuestionLen <= 0 {
		maxQuestionLen = defaultMaxQuestion
	}
	return &SessionService{
		store:          store,
		ingester:       ingester,
		dispatcher:     dispatcher,
		maxQuestionLen: maxQuestionLen,
	}, nil
}

// Open returns the session with the given id, starting a new one when it
// does not exist. An empty id always starts a new session.
func (s *SessionService) Open(ctx context.Context, sessionID string) (Outcome, error) {
	state, created, err := s.load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if !created {
		return Outcome{State: state}, nil
	}
	return s.commit(ctx, state, nil)
}

// Upload ingests a file into the session. Parse and strict archive failures
// are returned as *Error alongside the saved outcome carrying the error
// message.
func (s *SessionService) Upload(ctx context.Context, in UploadInput) (Outcome, error) {
	state, _, err := s.load(ctx, in.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	effects, ingestErr := s.ingester.Ingest(ctx, Upload{Filename: in.Filename, Body: in.Body})
	out, err := s.commit(ctx, state, effects)
	if err != nil {
		return Outcome{}, err
	}
	return out, ingestErr
}

// Ask answers a question from the session table. A blank question or a
// session without a table only records the pending question. A question over
// the length limit is rejected with the unchanged session.
func (s *SessionService) Ask(ctx context.Context, in AskInput) (Outcome, error) {
	state, _, err := s.load(ctx, in.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	if len(strings.TrimSpace(in.Question)) > s.maxQuestionLen {
		return Outcome{State: state}, newError(ErrorInvalidInput, "question_too_long", nil)
	}
	return s.commit(ctx, state, s.dispatcher.Dispatch(in.Question, state.Table))
}

// Reset returns the session to its startup state.
func (s *SessionService) Reset(ctx context.Context, sessionID string) (Outcome, error) {
	state, _, err := s.load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	next := state.Clone()
	next.Reset()
	if err := s.save(ctx, next); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: next}, nil
}

// Close ends the session and drops its state.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return newError(ErrorInternal, "session_delete_error", err)
	}
	return nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*session.State, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.New(newUUID()), true, nil
	}
	state, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, false, newError(ErrorInternal, "session_load_error", err)
	}
	if !found {
		return session.New(sessionID), true, nil
	}
	return state, false, nil
}

func (s *SessionService) commit(ctx context.Context, state *session.State, effects []session.Effect) (Outcome, error) {
	next := state.Clone()
	next.Apply(effects...)
	if err := s.save(ctx, next); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: next, Effects: effects}, nil
}

func (s *SessionService) save(ctx context.Context, state *session.State) error {
	state.UpdatedAt = now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return newError(ErrorInternal, "session_save_error", err)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
