package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/overviewer/sheetscan/internal/enrich"
	"github.com/overviewer/sheetscan/internal/model"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = eris.New("server: session not found")

// ErrProcessing is returned when an enrichment run is already in flight
// for the session.
var ErrProcessing = eris.New("server: session is already processing")

// SessionState is the externally visible snapshot of one upload session.
type SessionState struct {
	ID         string              `json:"id"`
	FileName   string              `json:"fileName"`
	CreatedAt  time.Time           `json:"createdAt"`
	Headers    []string            `json:"headers"`
	Mapping    model.HeaderMapping `json:"mapping"`
	Rows       []model.TableRow    `json:"rows"`
	Warning    string              `json:"warning,omitempty"`
	Processing bool                `json:"processing"`
	LastReport *enrich.Report      `json:"lastReport,omitempty"`
}

type session struct {
	SessionState
}

// sessionRegistry holds upload sessions in memory, keyed by uuid. Each
// upload is a new session; rows are replaced wholesale at checkpoints.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) create(fileName string, headers []string, mapping model.HeaderMapping, rows []model.TableRow, warning string) SessionState {
	s := &session{SessionState: SessionState{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
		Headers:   headers,
		Mapping:   mapping,
		Rows:      rows,
		Warning:   warning,
	}}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return s.snapshot()
}

func (r *sessionRegistry) get(id string) (SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// beginProcessing claims the session's processing slot. At most one
// enrichment run may be in flight per session.
func (r *sessionRegistry) beginProcessing(id string) ([]model.TableRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Processing {
		return nil, ErrProcessing
	}
	s.Processing = true

	rows := make([]model.TableRow, len(s.Rows))
	copy(rows, s.Rows)
	return rows, nil
}

// finishProcessing releases the slot and, when the run produced rows,
// replaces the session's collection with them.
func (r *sessionRegistry) finishProcessing(id string, rows []model.TableRow, report *enrich.Report) (SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	s.Processing = false
	if rows != nil {
		s.Rows = rows
	}
	if report != nil {
		s.LastReport = report
	}
	return s.snapshot(), nil
}

func (s *session) snapshot() SessionState {
	state := s.SessionState
	state.Rows = make([]model.TableRow, len(s.Rows))
	copy(state.Rows, s.Rows)
	if s.LastReport != nil {
		rep := *s.LastReport
		state.LastReport = &rep
	}
	return state
}
