package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/respond/internal/server"
	"github.com/raysh454/respond/internal/store"
	"github.com/raysh454/respond/internal/testutil"
	"github.com/raysh454/respond/respond"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	return newTestServerWith(t, respond.DefaultConfig(), server.Config{ListenAddr: ":0"})
}

func newTestServerWith(t *testing.T, fc respond.Config, cfg server.Config) *server.Server {
	t.Helper()
	return newLoggedServer(t, fc, cfg, &testutil.DummyLogger{})
}

func newLoggedServer(t *testing.T, fc respond.Config, cfg server.Config, logger *testutil.DummyLogger) *server.Server {
	t.Helper()

	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f, err := respond.New(fc, logger)
	require.NoError(t, err)

	cfg.Store = st
	cfg.Formatter = f
	cfg.Logger = logger

	s, err := server.NewServer(cfg)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func createRecord(t *testing.T, s http.Handler, name string, val int) store.Record {
	t.Helper()
	body, err := jsoniter.MarshalToString(server.CreateRecordRequest{Name: name, Val: val})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/records", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out store.Record
	decodeJSON(t, rec, &out)
	return out
}

// ─── Middleware ────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/records", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Preflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodOptions, "/records", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestServer_RequestID(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(server.RequestIDHeader, "6f1c2b9e-2f7b-4d5c-9a57-0b7b1b8f3c11")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "6f1c2b9e-2f7b-4d5c-9a57-0b7b1b8f3c11", rec.Header().Get(server.RequestIDHeader))
}

func TestServer_LogsEachRequest(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	s := newLoggedServer(t, respond.DefaultConfig(), server.Config{ListenAddr: ":0"}, logger)

	doJSON(t, s, http.MethodGet, "/healthz", "")
	doJSON(t, s, http.MethodGet, "/records/missing", "")

	assert.Equal(t, 2, logger.InfoCount())
	assert.Equal(t, []string{"http_request", "http_request"}, logger.Infos)
}

// ─── Health ────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"status":200}`, rec.Body.String())
	assert.Equal(t, respond.ContentTypeJSON, rec.Header().Get("Content-Type"))
}

// ─── Records ───────────────────────────────────────────────────────────

func TestServer_CreateRecord(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/records", `{"name":"Sam","val":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "Sam", body["name"])
	assert.EqualValues(t, 201, body["status"])
	assert.Equal(t, "/records/"+body["id"].(string), rec.Header().Get("Location"))
}

func TestServer_CreateRecord_Invalid(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/records", `{invalid}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON","status":400}`, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/records", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListRecords_NDJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	createRecord(t, s, "Sam", 1)
	createRecord(t, s, "Ann", 2)

	rec := doJSON(t, s, http.MethodGet, "/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, respond.ContentTypeNDJSON, rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	var first store.Record
	require.NoError(t, jsoniter.UnmarshalFromString(lines[0], &first))
	assert.Equal(t, "Sam", first.Name)
	assert.NotContains(t, lines[0], `"status"`)

	rec = doJSON(t, s, http.MethodGet, "/records?limit=1", "")
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "\n"))

	rec = doJSON(t, s, http.MethodGet, "/records?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListRecords_Empty(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/records", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServer_ListRecords_Callback(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	createRecord(t, s, "Sam", 1)

	a := doJSON(t, s, http.MethodGet, "/records?callback=foo", "")
	b := doJSON(t, s, http.MethodGet, "/records?jsonl=foo", "")
	require.Equal(t, http.StatusOK, a.Code)
	assert.True(t, strings.HasPrefix(a.Body.String(), `foo({"id":"`), a.Body.String())
	assert.Contains(t, a.Body.String(), `"name":"Sam","val":1,"created_at":`)
	assert.True(t, strings.HasSuffix(a.Body.String(), `});`), a.Body.String())
	assert.Equal(t, a.Body.String(), b.Body.String())
}

func TestServer_ListRecords_RequiredCallback(t *testing.T) {
	t.Parallel()
	fc := respond.DefaultConfig()
	fc.JSONL.Optional = false
	s := newTestServerWith(t, fc, server.Config{})

	rec := doJSON(t, s, http.MethodGet, "/records", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetRecord(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	created := createRecord(t, s, "Sam", 1)

	rec := doJSON(t, s, http.MethodGet, "/records/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	decodeJSON(t, rec, &got)
	assert.Equal(t, created.ID, got["id"])
	assert.EqualValues(t, 200, got["status"])

	rec = doJSON(t, s, http.MethodGet, "/records/"+created.ID+"?callback=cb", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, respond.ContentTypeJavaScript, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "cb({"))
	assert.NotContains(t, rec.Body.String(), `"status"`)
}

func TestServer_GetRecord_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/records/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"record not found","id":"nope","status":404}`, rec.Body.String())
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_RecordsWebSocket(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	createRecord(t, s, "Sam", 1)
	createRecord(t, s, "Ann", 2)

	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/records"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var names []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		assert.NotContains(t, string(msg), "\n")
		var r store.Record
		require.NoError(t, jsoniter.Unmarshal(msg, &r))
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Sam", "Ann"}, names)
}

// ─── Swagger / transport ───────────────────────────────────────────────

func TestServer_SwaggerDoc(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Respond API")
	assert.Contains(t, rec.Body.String(), "/records/{id}")
}

func TestServer_HTTPServer(t *testing.T) {
	t.Parallel()

	plain := newTestServerWith(t, respond.DefaultConfig(), server.Config{ListenAddr: ":8081"})
	hs := plain.HTTPServer()
	assert.Equal(t, ":8081", hs.Addr)
	assert.Same(t, plain, hs.Handler)

	h2 := newTestServerWith(t, respond.DefaultConfig(), server.Config{ListenAddr: ":8082", EnableH2C: true})
	assert.NotSame(t, h2, h2.HTTPServer().Handler)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := server.NewServer(server.Config{})
	assert.Error(t, err)
}
