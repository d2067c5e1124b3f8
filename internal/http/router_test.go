package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/generation"
	httpH "github.com/yungbote/companion-backend/internal/http/handlers"
	httpMW "github.com/yungbote/companion-backend/internal/http/middleware"
	"github.com/yungbote/companion-backend/internal/modules/messenger"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
	"github.com/yungbote/companion-backend/internal/services"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sendErr error
	sent    []string
	read    []int64
}

func (f *fakeMessenger) SendToAvatar(_ context.Context, userID, avatarID int64, text string) (*realtime.MessagePayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	return &realtime.MessagePayload{
		ID:       1,
		Text:     &text,
		FromUser: realtime.SenderPayload{ID: userID, Name: "neo", IsOnline: true},
	}, nil
}

func (f *fakeMessenger) ListMessages(_ context.Context, _, _ int64, offset, limit int) ([]realtime.MessagePayload, error) {
	out := make([]realtime.MessagePayload, 0, 2)
	for i := 0; i < 2 && i < limit; i++ {
		out = append(out, realtime.MessagePayload{ID: int64(offset + i + 1)})
	}
	return out, nil
}

func (f *fakeMessenger) MarkRead(_ context.Context, _, avatarID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if avatarID == 404 {
		return messenger.ErrAvatarNotFound
	}
	f.read = append(f.read, avatarID)
	return nil
}

func (f *fakeMessenger) Dialogs(context.Context, int64, int, int) ([]messenger.Dialog, error) {
	return []messenger.Dialog{{
		UnreadCount: 2,
		Chat:        realtime.SenderPayload{ID: 9, Name: "Mia", IsAvatar: true},
	}}, nil
}

func (f *fakeMessenger) SendToAssistant(_ context.Context, _ int64, text string) (*types.AssistantMessage, error) {
	return &types.AssistantMessage{ID: 3, Role: types.RoleAssistant, Text: "re: " + text}, nil
}

func (f *fakeMessenger) AssistantHistory(context.Context, int64, int, int) ([]*types.AssistantMessage, error) {
	return []*types.AssistantMessage{}, nil
}

type fakeGeneration struct{ err error }

func (f fakeGeneration) Generate(context.Context, int64, generation.Request) ([]*types.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*types.Media{{ID: 1, Name: "a.png", URL: "https://cdn.example.com/a.png"}}, nil
}

type fakeMediaRepo struct{}

func (fakeMediaRepo) Create(_ dbctx.Context, rows []*types.Media) ([]*types.Media, error) {
	return rows, nil
}

func (fakeMediaRepo) GetByID(_ dbctx.Context, id int64) (*types.Media, error) {
	if id != 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return &types.Media{ID: 1, Name: "a.png", URL: "https://cdn.example.com/a.png"}, nil
}

type testServer struct {
	engine    *gin.Engine
	auth      services.AuthService
	messenger *fakeMessenger
	bus       *bus.MemoryBus
	hub       *realtime.Hub
}

func newTestServer(t *testing.T, gen generation.Service) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	auth, err := services.NewAuthService(log, services.AuthOptions{Secret: "test-secret", AccessTTL: time.Hour})
	require.NoError(t, err)

	b := bus.NewMemoryBus()
	hub := realtime.NewHub(realtime.NewRegistry(log), b, log)
	t.Cleanup(func() {
		hub.Close()
		_ = b.Close()
	})

	fm := &fakeMessenger{}
	engine := NewRouter(RouterConfig{
		Log:              log,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, auth),
		MessengerHandler: httpH.NewMessengerHandler(fm),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, hub, nil),
		MediaHandler:     httpH.NewMediaHandler(fakeMediaRepo{}, gen),
		HealthHandler:    httpH.NewHealthHandler(nil),
	})
	return &testServer{engine: engine, auth: auth, messenger: fm, bus: b, hub: hub}
}

func (s *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := s.auth.IssueAccessToken(userID)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestHealthcheckIsPublic(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	rec := s.do(t, stdhttp.MethodGet, "/healthcheck", "", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestMessagesRequireToken(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})

	rec := s.do(t, stdhttp.MethodGet, "/api/v1/messages/dialogs", "", "")
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = s.do(t, stdhttp.MethodGet, "/api/v1/messages/dialogs", "not-a-jwt", "")
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestDialogs(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	rec := s.do(t, stdhttp.MethodGet, "/api/v1/messages/dialogs", s.token(t, 7), "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.EqualValues(t, 2, got[0]["unread_count"])
	require.Contains(t, got[0], "top_message")
}

func TestSendToAvatar(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	tok := s.token(t, 7)

	rec := s.do(t, stdhttp.MethodPost, "/api/v1/messages/9/send", tok, `{"text":"hi"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Equal(t, []string{"hi"}, s.messenger.sent)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/messages/abc/send", tok, `{"text":"hi"}`)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_avatar_id", errorCode(t, rec))

	s.messenger.sendErr = messenger.ErrBlocked
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/messages/9/send", tok, `{"text":"again"}`)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)
	require.Equal(t, "subscription.required", errorCode(t, rec))
}

func TestHistoryClampsLimit(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	rec := s.do(t, stdhttp.MethodGet, "/api/v1/messages/9?offset=4&limit=1", s.token(t, 7), "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var got []realtime.MessagePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.EqualValues(t, 5, got[0].ID)
}

func TestMarkRead(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	tok := s.token(t, 7)

	rec := s.do(t, stdhttp.MethodPost, "/api/v1/messages/9/read", tok, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":true}`, rec.Body.String())

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/messages/404/read", tok, "")
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestAssistantRoutesAreNotAvatarIDs(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	tok := s.token(t, 7)

	rec := s.do(t, stdhttp.MethodGet, "/api/v1/messages/assistant", tok, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/messages/assistant/send", tok, `{"text":"help"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"re: help"`)
}

func TestMedia(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	tok := s.token(t, 7)

	rec := s.do(t, stdhttp.MethodGet, "/api/v1/media/1", tok, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":1,"name":"a.png","url":"https://cdn.example.com/a.png"}`, rec.Body.String())

	rec = s.do(t, stdhttp.MethodGet, "/api/v1/media/2", tok, "")
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/media/generate", tok, `{"model":"m","prompt":"p","images_count":1}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"images"`)
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout", generation.ErrGenerationTimeout, stdhttp.StatusGatewayTimeout, "queue.timeout"},
		{"failure", &generation.GenerationFailure{TaskID: 3, Message: "worker crashed"}, stdhttp.StatusBadGateway, "queue.error"},
		{"unreachable", generation.ErrTransportUnreachable, stdhttp.StatusServiceUnavailable, "transport.unreachable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, fakeGeneration{err: tc.err})
			rec := s.do(t, stdhttp.MethodPost, "/api/v1/media/generate", s.token(t, 7), `{"model":"m","prompt":"p","images_count":1}`)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestWebsocketReceivesUserChannel(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/messages/ws?token=" + s.token(t, 7)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer ws.Close()

	require.Eventually(t, func() bool { return s.hub.Relaying(7) }, time.Second, 5*time.Millisecond)

	payload, err := realtime.Encode(realtime.EventTyping, realtime.TypingPayload{AvatarID: 9})
	require.NoError(t, err)
	require.NoError(t, s.bus.Publish(context.Background(), realtime.UserChannel(7), payload))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"typing","content":{"avatar_id":9}}`, string(frame))

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return !s.hub.Relaying(7) }, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	s := newTestServer(t, fakeGeneration{})
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/messages/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}
