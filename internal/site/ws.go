package site

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/search"
	"github.com/ziadkadry99/docnav/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client message types.
const (
	msgSearch   = "search"
	msgNavigate = "navigate"
	msgClick    = "click"
	msgToggle   = "toggle"
)

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string         `json:"type"`
	Query     string         `json:"query,omitempty"`
	TargetRef string         `json:"target_ref,omitempty"`
	NodeID    navtree.NodeID `json:"node_id,omitempty"`
}

// wsMessage is the outgoing WebSocket message format: "results", "state"
// or "error".
type wsMessage struct {
	Type      string         `json:"type"`
	Results   *search.Result `json:"results,omitempty"`
	State     *session.State `json:"state,omitempty"`
	TargetRef *string        `json:"target_ref,omitempty"`
	Error     string         `json:"error,omitempty"`
}

const outboxSize = 64

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("docnav: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// A single writer owns the connection. Pushed events and replies share
	// its queue, so a reply never overtakes an older push.
	out := make(chan wsMessage, outboxSize)
	stopped := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer close(stopped)
		writeLoop(ctx, conn, out, sess.Done())
	}()
	send := func(msg wsMessage) bool {
		select {
		case out <- msg:
			return true
		case <-stopped:
			return false
		}
	}

	unsubscribe := sess.Subscribe(func(ev session.Event) {
		msg := wsMessage{Type: ev.Type, Results: ev.Results, State: ev.State}
		if msg.Results != nil {
			res := withMatches(*msg.Results)
			msg.Results = &res
		}
		select {
		case out <- msg:
		default:
			log.Printf("docnav: session %s: websocket client too slow, dropped %s event", sess.ID, ev.Type)
		}
	})
	defer unsubscribe()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("docnav: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if !send(wsMessage{Type: "error", Error: "invalid message format"}) {
				return
			}
			continue
		}
		if !send(dispatch(ctx, sess, req)) {
			return
		}
	}
}

// dispatch applies one client message. Replies are read back from the
// session after the event, so they are at least as new as any push queued
// while the event ran.
func dispatch(ctx context.Context, sess *session.Session, req wsRequest) wsMessage {
	var err error
	switch req.Type {
	case msgSearch:
		if _, err = sess.Search(ctx, req.Query); err == nil {
			var res search.Result
			if res, err = sess.Results(ctx); err == nil {
				res = withMatches(res)
				return wsMessage{Type: session.EventResults, Results: &res}
			}
		}
	case msgNavigate:
		_, err = sess.OnContentNavigate(ctx, req.TargetRef)
	case msgClick:
		var ref string
		if ref, _, err = sess.OnTreeClick(ctx, req.NodeID); err == nil {
			var st session.State
			if st, err = sess.State(ctx); err == nil {
				return wsMessage{Type: session.EventState, State: &st, TargetRef: &ref}
			}
		}
	case msgToggle:
		_, err = sess.ToggleSync(ctx)
	default:
		return wsMessage{Type: "error", Error: "unknown message type: " + req.Type}
	}
	if err == nil {
		var st session.State
		if st, err = sess.State(ctx); err == nil {
			return wsMessage{Type: session.EventState, State: &st}
		}
	}
	return wsMessage{Type: "error", Error: err.Error()}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan wsMessage, done <-chan struct{}) {
	for {
		select {
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("docnav: websocket write: %v", err)
				return
			}
		case <-done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			conn.Close()
			return
		case <-ctx.Done():
			return
		}
	}
}
