package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberguard/assistant/internal/analyzer"
	"github.com/cyberguard/assistant/internal/llm"
	"github.com/cyberguard/assistant/internal/middleware"
	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	t        *testing.T
	sessions *service.Sessions
	router   http.Handler
}

func newTestEnv(t *testing.T, generator llm.Generator) *testEnv {
	t.Helper()
	if generator == nil {
		generator = llm.GeneratorFunc(func(_ context.Context, text string) (string, error) {
			return "echo: " + text, nil
		})
	}

	sessions := service.NewSessions(service.Config{
		Generator:      generator,
		Notifier:       service.NotifierFunc(func(context.Context, model.Notification) {}),
		Logger:         logger.Nop(),
		TitleMaxLength: service.DefaultTitleMaxLength,
	})
	t.Cleanup(sessions.Close)

	router := NewRouter(RouterConfig{
		Sessions:          sessions,
		Analyzers:         analyzer.NewSet(analyzer.QuickCheck{}, analyzer.FullCheck{}),
		EmailAnalyzer:     analyzer.PhishingCheck{},
		Logger:            logger.Nop(),
		JWTSecret:         testSecret,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		HeartbeatInterval: time.Hour,
	})

	return &testEnv{t: t, sessions: sessions, router: router}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(e.t, userID))
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) currentID(userID string) string {
	e.t.Helper()
	rec := e.do(userID, http.MethodGet, "/api/v1/conversations/current", nil)
	require.Equal(e.t, http.StatusOK, rec.Code)
	return decode[model.Conversation](e.t, rec).ID
}

func (e *testEnv) wait(userID string) {
	e.t.Helper()
	c, err := e.sessions.For(userID)
	require.NoError(e.t, err)
	c.Wait()
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("", http.MethodGet, "/api/v1/conversations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do("", http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConversationLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	const user = "alice"

	first := env.currentID(user)

	rec := env.do(user, http.MethodPost, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[model.Conversation](t, rec)
	assert.Equal(t, model.DefaultTitle, second.Title)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.ListConversationsResponse](t, rec)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, second.ID, list.Conversations[0].ID)
	assert.Equal(t, first, list.Conversations[1].ID)
	assert.Equal(t, second.ID, list.CurrentID)
	assert.True(t, list.Conversations[0].Current)
	assert.NotEmpty(t, list.Conversations[0].LastActiveAgo)

	rec = env.do(user, http.MethodPost, "/api/v1/conversations/"+first+"/select", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, env.currentID(user))

	rec = env.do(user, http.MethodPut, "/api/v1/conversations/"+first, model.RenameConversationRequest{Title: "  Incident notes "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Incident notes", decode[model.Conversation](t, rec).Title)

	rec = env.do(user, http.MethodPut, "/api/v1/conversations/"+first, model.RenameConversationRequest{Title: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(user, http.MethodDelete, "/api/v1/conversations/"+first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[map[string]string](t, rec)
	assert.Equal(t, second.ID, deleted["current_id"])

	rec = env.do(user, http.MethodDelete, "/api/v1/conversations/"+second.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationIDValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("alice", http.MethodGet, "/api/v1/conversations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil)

	aliceConv := env.currentID("alice")

	rec := env.do("bob", http.MethodGet, "/api/v1/conversations/"+aliceConv, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	const user = "alice"
	id := env.currentID(user)

	rec := env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/messages", model.SendMessageRequest{Content: "is this link safe"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/v1/conversations/"+id+"/stream", rec.Header().Get("X-Stream-URL"))

	exchange := decode[model.Exchange](t, rec)
	assert.Equal(t, "is this link safe", exchange.User.Content)
	assert.True(t, exchange.Assistant.Streaming)

	env.wait(user)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.ListMessagesResponse](t, rec)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "echo: is this link safe", resp.Messages[1].Content)
	assert.False(t, resp.Messages[1].Streaming)
	assert.False(t, resp.StreamActive)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+id+"/messages?after_sequence=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[model.ListMessagesResponse](t, rec)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, model.RoleAssistant, resp.Messages[0].Role)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+id, nil)
	assert.Equal(t, "is this link safe", decode[model.Conversation](t, rec).Title)
}

func TestSendMessage_Rejected(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, llm.GeneratorFunc(func(ctx context.Context, text string) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "done", nil
	}))
	const user = "alice"
	id := env.currentID(user)
	path := "/api/v1/conversations/" + id + "/messages"

	rec := env.do(user, http.MethodPost, path, model.SendMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(user, http.MethodPost, path, model.SendMessageRequest{Content: "first"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(user, http.MethodPost, path, model.SendMessageRequest{Content: "second"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(user, http.MethodGet, path, nil)
	assert.True(t, decode[model.ListMessagesResponse](t, rec).StreamActive)

	close(release)
	env.wait(user)

	rec = env.do(user, http.MethodGet, path, nil)
	resp := decode[model.ListMessagesResponse](t, rec)
	assert.Len(t, resp.Messages, 2)
	assert.False(t, resp.StreamActive)
}

func TestRegenerate(t *testing.T) {
	env := newTestEnv(t, nil)
	const user = "alice"
	id := env.currentID(user)

	rec := env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/regenerate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/messages", model.SendMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	env.wait(user)

	rec = env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	env.wait(user)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+id+"/messages", nil)
	resp := decode[model.ListMessagesResponse](t, rec)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hello", resp.Messages[0].Content)
	assert.Equal(t, "echo: hello", resp.Messages[1].Content)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)
	const user = "alice"
	id := env.currentID(user)

	rec := env.do(user, http.MethodGet, "/api/v1/conversations/"+id+"/export", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/messages", model.SendMessageRequest{Content: "hello there"})
	env.wait(user)

	rec = env.do(user, http.MethodGet, "/api/v1/conversations/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="hello there.txt"`)
	assert.Contains(t, rec.Body.String(), "hello there")
	assert.Contains(t, rec.Body.String(), "echo: hello there")
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("alice", http.MethodGet, "/api/v1/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Suggestion](t, rec)["suggestions"], 4)
}

func TestScan(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("alice", http.MethodPost, "/api/v1/scans", ScanRequest{Target: "https://example.com", Mode: analyzer.ModeFull})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[analyzer.Report](t, rec)
	assert.Equal(t, "Medium", report.Risk)
	assert.Len(t, report.Findings, 4)

	rec = env.do("alice", http.MethodPost, "/api/v1/scans", ScanRequest{Target: "example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("alice", http.MethodPost, "/api/v1/scans", ScanRequest{Target: "https://example.com", Mode: "deep"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhishing(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("alice", http.MethodPost, "/api/v1/phishing", EmailRequest{Content: "Your account is suspended, verify now"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analyzer.VerdictPhishing, decode[analyzer.EmailReport](t, rec).Verdict)

	rec = env.do("alice", http.MethodPost, "/api/v1/phishing", EmailRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader) <-chan sseEvent {
	t.Helper()
	out := make(chan sseEvent, 64)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				out <- ev
				ev = sseEvent{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream ended")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func TestStream(t *testing.T) {
	env := newTestEnv(t, nil)
	const user = "alice"
	id := env.currentID(user)

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/conversations/"+id+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, user))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	assert.Equal(t, "connected", nextEvent(t, events).name)

	snapshot := nextEvent(t, events)
	require.Equal(t, "snapshot", snapshot.name)
	var snap SnapshotEvent
	require.NoError(t, json.Unmarshal([]byte(snapshot.data), &snap))
	assert.Equal(t, id, snap.Conversation.ID)
	assert.Empty(t, snap.Conversation.Messages)

	rec := env.do(user, http.MethodPost, "/api/v1/conversations/"+id+"/messages", model.SendMessageRequest{Content: "check this"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var final *model.Message
	for final == nil {
		ev := nextEvent(t, events)
		if ev.name != string(model.EventMessageUpdated) {
			continue
		}
		var e model.Event
		require.NoError(t, json.Unmarshal([]byte(ev.data), &e))
		if e.Message != nil && !e.Message.Streaming {
			final = e.Message
		}
	}
	assert.Equal(t, "echo: check this", final.Content)

	// A second conversation lets the streamed one be deleted.
	env.do(user, http.MethodPost, "/api/v1/conversations", nil)
	rec = env.do(user, http.MethodDelete, "/api/v1/conversations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for {
		ev := nextEvent(t, events)
		if ev.name == "closed" {
			break
		}
	}
}

func TestStream_UnknownConversation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("alice", http.MethodGet, "/api/v1/conversations/0190a5c4-7c1e-7a3b-9f2d-5e6a7b8c9d0e/stream", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
