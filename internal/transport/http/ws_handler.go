package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/telemetry"
	"github.com/gorilla/websocket"
)

// WSHandler exposes the quiz flow over a websocket, one connection per user.
type WSHandler struct {
	flow     *app.Flow
	auth     *WebAuth
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(flow *app.Flow, auth *WebAuth, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		flow: flow,
		auth: auth,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS authenticates the client from its token, upgrades the request and feeds every
// inbound message through the flow.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := h.auth.Verify(token)
	if err != nil {
		h.log.DebugContext(r.Context(), "ws: rejected token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := user.ID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WarnContext(r.Context(), "ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view, err := h.handle(r, user, app.Welcome{})
	if !h.reply(conn, view, err) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.DebugContext(ctx, "ws: read stopped", "user_id", userID, "error", err)
			}
			return
		}

		ev, err := parseInbound(inbound)
		if err != nil {
			if !h.write(conn, outboundMessage{Type: "error", Payload: errorPayload{Code: "bad_request", Message: err.Error()}}) {
				return
			}
			continue
		}
		view, err := h.handle(r, user, ev)
		if !h.reply(conn, view, err) {
			return
		}
	}
}

func (h *WSHandler) handle(r *http.Request, user domain.User, ev app.Event) (app.View, error) {
	telemetry.EventsHandled.WithLabelValues(ev.Name(), "websocket").Inc()
	return h.flow.Handle(r.Context(), user, ev)
}

// reply writes the view or the error; false means the connection is gone.
func (h *WSHandler) reply(conn *websocket.Conn, view app.View, err error) bool {
	if err != nil {
		return h.write(conn, outboundMessage{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}})
	}
	return h.write(conn, outboundMessage{Type: view.Kind(), Payload: view})
}

func (h *WSHandler) write(conn *websocket.Conn, msg outboundMessage) bool {
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Warn("ws: write error", "error", err)
		return false
	}
	return true
}

var errUnsupportedMessage = errors.New("unsupported message type")

func parseInbound(msg inboundMessage) (app.Event, error) {
	switch msg.Type {
	case "start":
		return app.StartTest{}, nil
	case "explain":
		return app.ShowExplanation{}, nil
	case "begin":
		return app.BeginTest{}, nil
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, errors.New("invalid answer payload")
		}
		return app.AnswerSelected{Ordinal: payload.Ordinal, Label: payload.Label}, nil
	case "retake":
		return app.Retake{}, nil
	case "share":
		return app.ShareResult{}, nil
	case "gated":
		return app.RequestGatedContent{}, nil
	case "recheck":
		return app.RecheckSubscription{}, nil
	case "history":
		return app.ShowHistory{}, nil
	default:
		return nil, errUnsupportedMessage
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfSequence):
		return "out_of_sequence"
	case errors.Is(err, domain.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrInvalidUser):
		return "invalid_user"
	default:
		return "internal"
	}
}
