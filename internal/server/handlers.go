package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/nested"
)

const maxBodyBytes = 1 << 20

// SessionView is the JSON form of a session.
type SessionView struct {
	ID       string          `json:"id"`
	Open     string          `json:"open"`
	Select   string          `json:"select"`
	Snapshot nested.Snapshot `json:"snapshot"`
}

// RegisterRequest is the body of POST /sessions/{id}/nodes.
type RegisterRequest struct {
	ID     string `json:"id"`
	Parent string `json:"parent,omitempty"`
	Group  bool   `json:"group,omitempty"`
}

// ToggleRequest is the body of the open and select endpoints. Value
// defaults to true.
type ToggleRequest struct {
	ID    string `json:"id"`
	Value *bool  `json:"value,omitempty"`
	Event any    `json:"event,omitempty"`
}

// ValuesRequest is the body of the external binding endpoints.
type ValuesRequest struct {
	Values []string `json:"values"`
}

// StrategyRequest is the body of PUT /sessions/{id}/strategy. Empty fields
// keep the current strategy.
type StrategyRequest struct {
	Open   string `json:"open,omitempty"`
	Select string `json:"select,omitempty"`
}

func view(s *Session) SessionView {
	return SessionView{
		ID:       s.ID,
		Open:     s.Registry.OpenStrategy().Name,
		Select:   s.Registry.SelectStrategy().Name,
		Snapshot: s.Registry.Snapshot(),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case "N300":
		return http.StatusNotFound
	case "N103", "N201", "N202", "N203", "N204", "N301", "N302":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	ne := errors.FromError(err, "")
	status := statusFor(ne.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, ne.FormatJSON()+"\n")
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errors.New("N301").Wrap(err))
		return false
	}
	return true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"ids": s.sessions.IDs()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.New("N301").Wrap(err))
		return
	}
	def, err := treefile.Parse(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.sessions.Create(def)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.writeError(w, errors.New("N301").WithDetail("id is required"))
		return
	}
	sess.Registry.Register(req.ID, req.Parent, req.Group)
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Registry.Unregister(chi.URLParam(r, "node"))
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, apply func(reg *nested.Registry, id string, value bool, event any)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.writeError(w, errors.New("N301").WithDetail("id is required"))
		return
	}
	value := req.Value == nil || *req.Value
	apply(sess.Registry, req.ID, value, req.Event)
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, (*nested.Registry).Open)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, (*nested.Registry).Select)
}

func (s *Server) handleSetOpened(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req ValuesRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess.Registry.SetOpened(req.Values)
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleSetSelected(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req ValuesRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess.Registry.SetSelected(req.Values)
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleSetStrategy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req StrategyRequest
	if !s.decode(w, r, &req) {
		return
	}

	var open *nested.OpenStrategy
	if req.Open != "" {
		o, err := nested.ParseOpenStrategy(req.Open)
		if err != nil {
			s.writeError(w, errors.New("N103").
				WithDetail(err.Error()).
				WithSuggestion(errors.SuggestName(req.Open, nested.OpenStrategyNames())))
			return
		}
		open = &o
	}
	var sel *nested.SelectStrategy
	if req.Select != "" {
		st, err := nested.ParseSelectStrategy(req.Select)
		if err != nil {
			s.writeError(w, errors.New("N103").
				WithDetail(err.Error()).
				WithSuggestion(errors.SuggestName(req.Select, nested.SelectStrategyNames())))
			return
		}
		sel = &st
	}

	if open != nil {
		sess.Registry.SetOpenStrategy(*open)
	}
	if sel != nil {
		sess.Registry.SetSelectStrategy(*sel)
	}
	s.writeJSON(w, http.StatusOK, view(sess))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Hub.HandleWebSocket(w, r, sess.Registry.Snapshot()); err != nil {
		s.logger.Warn("websocket upgrade failed", "session", sess.ID, "error", errors.New("N302").Wrap(err))
	}
}
