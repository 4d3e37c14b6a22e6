package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/notify"
	"github.com/dpshade/prompt-mover/internal/service"
	"github.com/dpshade/prompt-mover/internal/storage"
)

const alphaJSON = `{
  "temperature": 0.9,
  "items": [
    {"identifier": "p1", "name": "Foo", "role": "system", "content": "Hello"},
    {"identifier": "p2", "name": "Bar", "injection_depth": 4}
  ],
  "order": [{"scope": "global", "order": [{"identifier": "p1", "enabled": true}, {"identifier": "p2", "enabled": true}]}]
}`

const betaJSON = `{
  "items": [{"identifier": "p1", "name": "Other"}],
  "order": [{"scope": "global", "order": [{"identifier": "p1", "enabled": true}]}]
}`

func newTestHost(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.json"), []byte(alphaJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beta.json"), []byte(betaJSON), 0644))

	store, err := storage.NewStorage(dir, nil)
	require.NoError(t, err)
	svc := service.NewService(store, service.WithNotifier(notify.NewRecorder()))
	ts := httptest.NewServer(NewServer(store, svc, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errors.ErrorPayload {
	t.Helper()
	var body errors.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestListAndGet(t *testing.T) {
	ts, _ := newTestHost(t)
	client := NewClient(ts.URL, "test", 5*time.Second, nil)
	ctx := context.Background()

	summaries, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "alpha", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].Items)

	alpha, err := client.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, "Hello", alpha.Items[0].Content())

	_, err = client.Get(ctx, "gamma")
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestSaveEndpoint(t *testing.T) {
	ts, dir := newTestHost(t)

	resp := postJSON(t, ts.URL+"/api/presets/save", `{"apiId":"st","name":"gamma","preset":`+betaJSON+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack SaveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, SaveResponse{OK: true, Name: "gamma"}, ack)

	data, err := os.ReadFile(filepath.Join(dir, "gamma.json"))
	require.NoError(t, err)
	assert.JSONEq(t, betaJSON, string(data))
}

func TestSaveEndpointLogsCleanAPIID(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStorage(dir, nil)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := service.NewService(store, service.WithNotifier(notify.NewRecorder()))
	ts := httptest.NewServer(NewServer(store, svc, zap.New(core)).Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/presets/save", `{"apiId":" st\u0007 ","name":"gamma","preset":`+betaJSON+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved := logs.FilterMessage("preset saved").All()
	require.Len(t, saved, 1)
	assert.Equal(t, "st", saved[0].ContextMap()["api_id"])
}

func TestSaveEndpointValidation(t *testing.T) {
	ts, _ := newTestHost(t)

	tests := []struct {
		name string
		body string
		code errors.ErrorCode
	}{
		{"missing preset", `{"name":"gamma"}`, errors.ErrCodeValidation},
		{"bad name", `{"name":"../gamma","preset":{}}`, errors.ErrCodeValidation},
		{"preset not an object", `{"name":"gamma","preset":"text"}`, errors.ErrCodeInvalidFormat},
		{"body not an object", `[1,2]`, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/presets/save", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}
}

func TestClientPersistRoundTrip(t *testing.T) {
	ts, _ := newTestHost(t)
	client := NewClient(ts.URL+"/", "test", 5*time.Second, nil)
	ctx := context.Background()

	alpha, err := client.Get(ctx, "alpha")
	require.NoError(t, err)
	alpha.Items = alpha.Items[:1]
	require.NoError(t, client.Persist(ctx, "alpha", alpha))

	reloaded, err := client.Get(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)

	raw, err := json.Marshal(reloaded)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"temperature":0.9`)
}

func TestClientPersistNon2xx(t *testing.T) {
	var gotID, gotAPIID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-Id")
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotAPIID, _ = body["apiId"].(string)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "st-bridge", 5*time.Second, nil)
	err := client.Persist(context.Background(), "alpha", &models.Preset{})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePersistFailure))
	assert.Equal(t, "st-bridge", gotAPIID)
	_, parseErr := uuid.Parse(gotID)
	assert.NoError(t, parseErr, "request id should be a uuid")
	assert.Equal(t, http.StatusBadGateway, errors.GetAppError(err).Context["status"])
}

func TestClientPersistUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewClient(url, "test", time.Second, nil)
	err := client.Persist(context.Background(), "alpha", &models.Preset{})
	assert.True(t, errors.HasCode(err, errors.ErrCodePersistFailure))
	assert.True(t, errors.HasCode(err, errors.ErrCodeNetworkFailure))
}

func TestRelocateEndpoint(t *testing.T) {
	ts, _ := newTestHost(t)
	client := NewClient(ts.URL, "test", 5*time.Second, nil)

	resp := postJSON(t, ts.URL+"/api/relocate", `{"source":"alpha","target":"beta","identifier":"p1","mode":"copy","slot":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out RelocateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "p1_1", out.Identifier)
	assert.Equal(t, "Foo (1)", out.Name)
	assert.True(t, out.Renamed)

	beta, err := client.Get(context.Background(), "beta")
	require.NoError(t, err)
	require.Len(t, beta.Items, 2)
	assert.Equal(t, "Hello", beta.Items[1].Content())
}

func TestRelocateEndpointErrors(t *testing.T) {
	ts, _ := newTestHost(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"same preset move", `{"source":"alpha","target":"alpha","identifier":"p1","mode":"move"}`, http.StatusConflict, errors.ErrCodeSameCollectionMove},
		{"slot out of range", `{"source":"alpha","target":"beta","identifier":"p1","mode":"copy","slot":7}`, http.StatusBadRequest, errors.ErrCodeInvalidPosition},
		{"unknown prompt", `{"source":"alpha","target":"beta","identifier":"zz","mode":"copy"}`, http.StatusNotFound, errors.ErrCodeNotFound},
		{"two positions", `{"source":"alpha","target":"beta","identifier":"p1","mode":"copy","slot":0,"after":"p1"}`, http.StatusBadRequest, errors.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/relocate", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}
}

func TestHealthAndCORS(t *testing.T) {
	ts, _ := newTestHost(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/presets/save", nil)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	assert.Equal(t, http.StatusOK, preflight.StatusCode)
}
