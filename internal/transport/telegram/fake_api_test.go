package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/infra/memory"
)

type apiCall struct {
	Method  string
	Payload map[string]any
}

// fakeAPI is a minimal Bot API server that records every call.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	calls        []apiCall
	memberStatus string
	failMethods  map[string]string
	updates      [][]Update
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{t: t, memberStatus: "member", failMethods: map[string]string{}}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) client() *Client {
	return NewClient("TOKEN", WithAPIURL(a.server.URL))
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/botTOKEN/") {
		http.NotFound(w, r)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, "/botTOKEN/")
	payload := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	a.mu.Lock()
	a.calls = append(a.calls, apiCall{Method: method, Payload: payload})
	failure, fail := a.failMethods[method]
	status := a.memberStatus
	var batch []Update
	if method == "getUpdates" && len(a.updates) > 0 {
		batch, a.updates = a.updates[0], a.updates[1:]
	}
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": failure})
		return
	}

	var result any = true
	switch method {
	case "sendMessage":
		result = map[string]any{"message_id": 100, "chat": map[string]any{"id": payload["chat_id"]}}
	case "getChatMember":
		result = map[string]any{"status": status}
	case "getUpdates":
		if batch == nil {
			// emulate a short long-poll
			time.Sleep(10 * time.Millisecond)
			batch = []Update{}
		}
		result = batch
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (a *fakeAPI) callsTo(method string) []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []apiCall
	for _, c := range a.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (a *fakeAPI) lastCall(method string) apiCall {
	a.t.Helper()
	calls := a.callsTo(method)
	if len(calls) == 0 {
		a.t.Fatalf("no %s call recorded", method)
	}
	return calls[len(calls)-1]
}

func (a *fakeAPI) setMemberStatus(status string) {
	a.mu.Lock()
	a.memberStatus = status
	a.mu.Unlock()
}

func (a *fakeAPI) fail(method, description string) {
	a.mu.Lock()
	a.failMethods[method] = description
	a.mu.Unlock()
}

func (a *fakeAPI) reset() {
	a.mu.Lock()
	a.calls = nil
	a.mu.Unlock()
}

func newTestBot(t *testing.T, api *fakeAPI, admins ...int64) (*Bot, *memory.AnswerStore) {
	t.Helper()
	store := memory.NewAnswerStore(time.UTC)
	questions := memory.NewQuestionnaireRepository("test", memory.NewStaticQuestionnaireLoader(testQuestionnaire()), time.Minute)
	client := api.client()
	svc := app.NewQuizService(memory.NewSessionStore(0), questions, store, nil)
	flow := app.NewFlow(svc, app.NewGate(NewMembershipOracle(client), "@calm_channel", nil), nil)

	bot := NewBot(client, flow, Options{
		Channel:     "@calm_channel",
		BotUsername: "anxiety_type_bot",
		Workers:     4,
		PollTimeout: time.Second,
		IsAdmin: func(id int64) bool {
			for _, a := range admins {
				if a == id {
					return true
				}
			}
			return false
		},
	}, nil)
	return bot, store
}

func testQuestionnaire() domain.Questionnaire {
	options := []string{"Let it go", "Fear the worst", "Guess their thoughts", "Fix it twice"}
	return domain.Questionnaire{
		ID: "test",
		Questions: []domain.Question{
			{Ordinal: 1, Prompt: "A friend replies late.", Options: options},
			{Ordinal: 2, Prompt: "Your boss wants to talk.", Options: options},
			{Ordinal: 3, Prompt: "A typo in your report.", Options: options},
			{Ordinal: 4, Prompt: "Plans change suddenly.", Options: options},
		},
	}
}
