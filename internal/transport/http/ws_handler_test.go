package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type staticOracle app.Membership

func (o staticOracle) Membership(context.Context, string, int64) (app.Membership, error) {
	return app.Membership(o), nil
}

func newTestFlow(store *memory.AnswerStore) *app.Flow {
	questions := memory.NewQuestionnaireRepository("test", memory.NewStaticQuestionnaireLoader(sampleQuestionnaire()), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(0), questions, store, nil)
	return app.NewFlow(service, app.NewGate(staticOracle(app.MembershipMember), "@calm_channel", nil), nil)
}

const testSecret = "ws-test-secret"

func newWSServer(flow *app.Flow) *httptest.Server {
	return httptest.NewServer(NewRouter(Config{Flow: flow, WebAuth: NewWebAuth(testSecret, time.Hour)}))
}

func tokenFor(t *testing.T, id int64, name string) string {
	t.Helper()
	token, err := NewWebAuth(testSecret, time.Hour).IssueToken(id, name)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestWebSocketQuizFlow(t *testing.T) {
	server := newWSServer(newTestFlow(memory.NewAnswerStore(time.UTC)))
	defer server.Close()

	conn := dial(t, server, "/ws?token="+tokenFor(t, 42, "Alice"))
	defer conn.Close()

	readNext(conn, t, "welcome")

	send(t, conn, map[string]any{"type": "start"})
	_, payload := readNext(conn, t, "question")
	if payload["ordinal"] != float64(1) || payload["total"] != float64(2) {
		t.Fatalf("unexpected first question %+v", payload)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"ordinal": 1, "label": "C"}})
	readNext(conn, t, "question")

	// stale button for question 1
	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"ordinal": 1, "label": "A"}})
	_, payload = readNext(conn, t, "error")
	if payload["code"] != "out_of_sequence" {
		t.Fatalf("expected out_of_sequence, got %+v", payload)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"ordinal": 2, "label": "C"}})
	_, payload = readNext(conn, t, "result")
	result, _ := payload["result"].(map[string]any)
	if result["type"] != string(domain.ResultMindReader) {
		t.Fatalf("expected mind_reader result, got %+v", payload)
	}

	send(t, conn, map[string]any{"type": "gated"})
	_, payload = readNext(conn, t, "gated_content")
	if payload["channel"] != "@calm_channel" {
		t.Fatalf("unexpected gated payload %+v", payload)
	}

	send(t, conn, map[string]any{"type": "history"})
	_, payload = readNext(conn, t, "history")
	if results, _ := payload["results"].([]any); len(results) != 1 {
		t.Fatalf("expected one result in history, got %+v", payload)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	server := newWSServer(newTestFlow(memory.NewAnswerStore(time.UTC)))
	defer server.Close()

	conn := dial(t, server, "/ws?token="+tokenFor(t, 7, "Bob"))
	defer conn.Close()
	readNext(conn, t, "welcome")

	send(t, conn, map[string]any{"type": "dance"})
	if _, payload := readNext(conn, t, "error"); payload["code"] != "bad_request" {
		t.Fatalf("expected bad_request, got %+v", payload)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": "nope"})
	readNext(conn, t, "error")

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"ordinal": 1, "label": "A"}})
	if _, payload := readNext(conn, t, "error"); payload["code"] != "invalid_state" {
		t.Fatalf("expected invalid_state, got %+v", payload)
	}
}

func TestWebSocketRequiresValidToken(t *testing.T) {
	server := newWSServer(newTestFlow(memory.NewAnswerStore(time.UTC)))
	defer server.Close()

	forged, err := NewWebAuth("someone-else", time.Hour).IssueToken(42, "Mallory")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	expiredAuth := NewWebAuth(testSecret, time.Minute)
	expiredAuth.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredAuth.IssueToken(42, "Alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	for name, path := range map[string]string{
		"missing":      "/ws?userId=42&name=Alice",
		"garbage":      "/ws?token=not-a-token",
		"wrong secret": "/ws?token=" + forged,
		"expired":      "/ws?token=" + expired,
	} {
		u := "ws" + server.URL[len("http"):] + path
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("%s: expected dial to fail", name)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %+v", name, resp)
		}
	}
}

func TestWebSocketDisabledWithoutAuth(t *testing.T) {
	server := httptest.NewServer(NewRouter(Config{Flow: newTestFlow(memory.NewAnswerStore(time.UTC))}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?token=" + tokenFor(t, 42, "Alice")
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without web auth, got %+v (%v)", resp, err)
	}
}

func TestWebSocketUserCannotTouchTelegramUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAnswerStore(time.UTC)
	flow := newTestFlow(store)
	telegramUser := domain.User{ID: 777, Username: "victim"}

	if _, err := flow.Handle(ctx, telegramUser, app.StartTest{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := flow.Handle(ctx, telegramUser, app.AnswerSelected{Ordinal: 1, Label: "B"}); err != nil {
		t.Fatalf("answer 1: %v", err)
	}

	server := newWSServer(flow)
	defer server.Close()
	conn := dial(t, server, "/ws?token="+tokenFor(t, 777, "Mallory"))
	defer conn.Close()
	readNext(conn, t, "welcome")
	send(t, conn, map[string]any{"type": "retake"})
	readNext(conn, t, "question")

	stored, ok := store.User(777)
	if !ok || stored.Username != "victim" || stored.FirstName != "" {
		t.Fatalf("telegram user metadata overwritten: %+v", stored)
	}
	if web, ok := store.User(-777); !ok || web.FirstName != "Mallory" {
		t.Fatalf("expected web user under its own id, got %+v", web)
	}

	view, err := flow.Handle(ctx, telegramUser, app.AnswerSelected{Ordinal: 2, Label: "B"})
	if err != nil {
		t.Fatalf("telegram user progress lost: %v", err)
	}
	if _, ok := view.(app.ResultView); !ok {
		t.Fatalf("expected result view, got %T", view)
	}
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%+v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func sampleQuestionnaire() domain.Questionnaire {
	return domain.Questionnaire{
		ID: "test",
		Questions: []domain.Question{
			{Ordinal: 1, Prompt: "Someone looks at you on the bus.", Options: []string{"Ignore", "Panic", "They judge me", "Fix my hair"}},
			{Ordinal: 2, Prompt: "A meeting is rescheduled.", Options: []string{"Fine", "Bad news", "They avoid me"}},
		},
	}
}
