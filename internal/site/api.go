package site

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/search"
	"github.com/ziadkadry99/docnav/internal/session"
)

// registerAPI mounts the session endpoints under /api/sessions.
func (s *Server) registerAPI(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDelete)
			r.Get("/search", s.withSession(handleSearch))
			r.Post("/navigate", s.withSession(handleNavigate))
			r.Post("/tree/click", s.withSession(handleClick))
			r.Post("/sync/toggle", s.withSession(handleToggle))
			r.Get("/state", s.withSession(handleState))
			r.Get("/tree", s.withSession(handleTree))
		})
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}

type createResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st, err := sess.State(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.ID, State: st})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleSearch(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	res, err := sess.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withMatches(res))
}

type navigateRequest struct {
	TargetRef string `json:"target_ref"`
}

func handleNavigate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := sess.OnContentNavigate(r.Context(), req.TargetRef)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type clickRequest struct {
	NodeID navtree.NodeID `json:"node_id"`
}

type clickResponse struct {
	TargetRef string        `json:"target_ref"`
	State     session.State `json:"state"`
}

func handleClick(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NodeID == "" {
		writeError(w, http.StatusBadRequest, "node_id is required")
		return
	}
	ref, st, err := sess.OnTreeClick(r.Context(), req.NodeID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{TargetRef: ref, State: st})
}

func handleToggle(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	st, err := sess.ToggleSync(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func handleState(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	st, err := sess.State(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleTree returns the visible tree, or every loaded node with ?all=true.
func handleTree(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	view, err := sess.Tree(r.Context(), !all)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// withMatches makes an empty result encode as [] rather than null.
func withMatches(res search.Result) search.Result {
	if res.Matches == nil {
		res.Matches = []search.Match{}
	}
	return res
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, navtree.ErrUnknownNode):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
