package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/api"
)

// fakeBots records the arguments of the last call and returns canned results.
type fakeBots struct {
	err error

	lastID      string
	lastTenant  string
	lastConfig  api.BotConfig
	lastChanges api.BotChanges
	lastReplica int32
	lastTail    *int64
	lastCommand string
	calls       []string
}

func (f *fakeBots) record(op, id, tenant string) {
	f.calls = append(f.calls, op)
	f.lastID = id
	f.lastTenant = tenant
}

func (f *fakeBots) bot(id string) *api.Bot {
	return &api.Bot{ID: id, Name: id, Status: api.BotStatusRunning, UserID: f.lastTenant}
}

func (f *fakeBots) Deploy(_ context.Context, cfg api.BotConfig) (*api.Bot, error) {
	f.record("deploy", "", cfg.UserID)
	f.lastConfig = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.bot("bot-" + strings.ToLower(cfg.Name)), nil
}

func (f *fakeBots) Get(_ context.Context, id, tenant string) (*api.Bot, error) {
	f.record("get", id, tenant)
	if f.err != nil {
		return nil, f.err
	}
	return f.bot(id), nil
}

func (f *fakeBots) List(_ context.Context, tenant string) ([]api.Bot, error) {
	f.record("list", "", tenant)
	if f.err != nil {
		return nil, f.err
	}
	return []api.Bot{*f.bot("bot-a"), *f.bot("bot-b")}, nil
}

func (f *fakeBots) Delete(_ context.Context, id, tenant string) error {
	f.record("delete", id, tenant)
	return f.err
}

func (f *fakeBots) Scale(_ context.Context, id string, replicas int32, tenant string) (*api.Bot, error) {
	f.record("scale", id, tenant)
	f.lastReplica = replicas
	if f.err != nil {
		return nil, f.err
	}
	return f.bot(id), nil
}

func (f *fakeBots) Start(_ context.Context, id, tenant string) (*api.Bot, error) {
	f.record("start", id, tenant)
	return f.bot(id), f.err
}

func (f *fakeBots) Stop(_ context.Context, id, tenant string) (*api.Bot, error) {
	f.record("stop", id, tenant)
	return f.bot(id), f.err
}

func (f *fakeBots) Restart(_ context.Context, id, tenant string) (*api.Bot, error) {
	f.record("restart", id, tenant)
	return f.bot(id), f.err
}

func (f *fakeBots) Update(_ context.Context, id string, changes api.BotChanges, tenant string) (*api.Bot, error) {
	f.record("update", id, tenant)
	f.lastChanges = changes
	if f.err != nil {
		return nil, f.err
	}
	return f.bot(id), nil
}

func (f *fakeBots) Logs(_ context.Context, id string, tail *int64, tenant string) (*api.LogsResult, error) {
	f.record("logs", id, tenant)
	f.lastTail = tail
	if f.err != nil {
		return nil, f.err
	}
	return &api.LogsResult{BotID: id, Pod: id + "-0", Logs: "hello\n"}, nil
}

func (f *fakeBots) Status(_ context.Context, id, tenant string) (*api.BotDetail, error) {
	f.record("status", id, tenant)
	if f.err != nil {
		return nil, f.err
	}
	return &api.BotDetail{Bot: *f.bot(id), Stage: api.StageComplete}, nil
}

func (f *fakeBots) Exec(_ context.Context, id, command, tenant string) (*api.ExecResult, error) {
	f.record("exec", id, tenant)
	f.lastCommand = command
	if f.err != nil {
		return nil, f.err
	}
	return &api.ExecResult{Status: api.ExecStatusOK, Pod: id + "-0", Stdout: "ok\n"}, nil
}

func (f *fakeBots) Metrics(_ context.Context, id, tenant string) (*api.MetricsSnapshot, error) {
	f.record("metrics", id, tenant)
	if f.err != nil {
		return nil, f.err
	}
	return &api.MetricsSnapshot{BotID: id, Pods: 1, CPUMillis: 5}, nil
}

func newTestServer(opts Options) (*fakeBots, http.Handler) {
	bots := &fakeBots{}
	return bots, New(bots, opts).Router()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tenant(name string) map[string]string {
	return map[string]string{HeaderTenantID: name}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(Options{Namespace: "bots", Version: "1.2.3"})

	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, api.HealthResponse{Status: "ok", Namespace: "bots", Version: "1.2.3"}, resp)
}

func TestTenantHeaderRequired(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodGet, "/api/v1/bots", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, api.KindValidation, decodeError(t, rec).Kind)
	assert.Empty(t, bots.calls)
}

func TestDeploy_ForcesTenantAsOwner(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/bots",
		api.BotConfig{Name: "Echo", Language: "python", UserID: "mallory"}, tenant("alice"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", bots.lastConfig.UserID)

	var bot api.Bot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bot))
	assert.Equal(t, "bot-echo", bot.ID)
}

func TestDeploy_MalformedBody(t *testing.T) {
	bots, h := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", strings.NewReader("{not json"))
	req.Header.Set(HeaderTenantID, "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bots.calls)
}

func TestRoutesPassTenantAndID(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   interface{}
		op     string
		code   int
	}{
		{http.MethodGet, "/api/v1/bots/bot-echo", nil, "get", http.StatusOK},
		{http.MethodDelete, "/api/v1/bots/bot-echo", nil, "delete", http.StatusNoContent},
		{http.MethodPost, "/api/v1/bots/bot-echo/start", nil, "start", http.StatusOK},
		{http.MethodPost, "/api/v1/bots/bot-echo/stop", nil, "stop", http.StatusOK},
		{http.MethodPost, "/api/v1/bots/bot-echo/restart", nil, "restart", http.StatusOK},
		{http.MethodPost, "/api/v1/bots/bot-echo/scale", map[string]int{"replicas": 3}, "scale", http.StatusOK},
		{http.MethodPatch, "/api/v1/bots/bot-echo", map[string]string{"image": "busybox"}, "update", http.StatusOK},
		{http.MethodPost, "/api/v1/bots/bot-echo/exec", map[string]string{"command": "ls"}, "exec", http.StatusOK},
		{http.MethodGet, "/api/v1/bots/bot-echo/status", nil, "status", http.StatusOK},
		{http.MethodGet, "/api/v1/bots/bot-echo/logs", nil, "logs", http.StatusOK},
		{http.MethodGet, "/api/v1/bots/bot-echo/metrics", nil, "metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			bots, h := newTestServer(Options{})

			rec := do(t, h, tt.method, tt.path, tt.body, tenant("alice"))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.op}, bots.calls)
			assert.Equal(t, "bot-echo", bots.lastID)
			assert.Equal(t, "alice", bots.lastTenant)
		})
	}
}

func TestScale_ZeroIsAccepted(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/bots/bot-echo/scale", map[string]int{"replicas": 0}, tenant("alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(0), bots.lastReplica)

	rec = do(t, h, http.MethodPost, "/api/v1/bots/bot-echo/scale", map[string]int{}, tenant("alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExec_RequiresCommand(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/bots/bot-echo/exec", map[string]string{}, tenant("alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bots.calls)
}

func TestLogs_TailParameter(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodGet, "/api/v1/bots/bot-echo/logs?tail=25", nil, tenant("alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bots.lastTail)
	assert.Equal(t, int64(25), *bots.lastTail)

	rec = do(t, h, http.MethodGet, "/api/v1/bots/bot-echo/logs?tail=many", nil, tenant("alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "tail")
}

func TestUpdate_DecodesChanges(t *testing.T) {
	bots, h := newTestServer(Options{})

	rec := do(t, h, http.MethodPatch, "/api/v1/bots/bot-echo",
		map[string]interface{}{"env": []api.EnvVar{{Name: "A", Value: "1"}}, "code": []byte("zip")}, tenant("alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bots.lastChanges.Env)
	assert.Equal(t, []api.EnvVar{{Name: "A", Value: "1"}}, *bots.lastChanges.Env)
	assert.Equal(t, []byte("zip"), bots.lastChanges.Code)
	assert.Nil(t, bots.lastChanges.Image)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind api.ErrorKind
	}{
		{api.NewValidationError("name", "required"), http.StatusBadRequest, api.KindValidation},
		{api.NewOwnershipError("bot-echo", "alice"), http.StatusForbidden, api.KindOwnership},
		{api.NewBotNotFoundError("bot-echo"), http.StatusNotFound, api.KindNotFound},
		{api.NewConflictError("bot bot-echo already exists", nil), http.StatusConflict, api.KindConflict},
		{api.NewRedeployRequiredError("bot-echo", api.NewNotFoundError("deployment", "bot-echo")), http.StatusConflict, api.KindConflict},
		{api.NewUpstreamError("get deployment bot-echo", 500, assert.AnError), http.StatusBadGateway, api.KindUpstream},
		{assert.AnError, http.StatusInternalServerError, api.KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			bots, h := newTestServer(Options{})
			bots.err = tt.err

			rec := do(t, h, http.MethodGet, "/api/v1/bots/bot-echo", nil, tenant("alice"))
			assert.Equal(t, tt.code, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		bots, h := newTestServer(Options{})
		rec := do(t, h, http.MethodGet, "/admin/v1/bots", nil, map[string]string{HeaderAdminToken: ""})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, bots.calls)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		bots, h := newTestServer(Options{AdminToken: "s3cret"})
		rec := do(t, h, http.MethodGet, "/admin/v1/bots", nil, map[string]string{HeaderAdminToken: "guess"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, bots.calls)
	})

	t.Run("lists across tenants", func(t *testing.T) {
		bots, h := newTestServer(Options{AdminToken: "s3cret"})
		admin := map[string]string{HeaderAdminToken: "s3cret"}

		rec := do(t, h, http.MethodGet, "/admin/v1/bots", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "", bots.lastTenant)

		rec = do(t, h, http.MethodGet, "/admin/v1/bots?tenant=bob", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bob", bots.lastTenant)
	})

	t.Run("acts without ownership scope", func(t *testing.T) {
		bots, h := newTestServer(Options{AdminToken: "s3cret"})
		admin := map[string]string{HeaderAdminToken: "s3cret", HeaderTenantID: "alice"}

		rec := do(t, h, http.MethodDelete, "/admin/v1/bots/bot-echo", nil, admin)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "", bots.lastTenant)

		rec = do(t, h, http.MethodPost, "/admin/v1/bots", api.BotConfig{Name: "Echo", UserID: "bob"}, admin)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "bob", bots.lastConfig.UserID)
	})
}

func TestRequestID(t *testing.T) {
	_, h := newTestServer(Options{})

	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = do(t, h, http.MethodGet, "/healthz", nil, map[string]string{HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	bots, h := newTestServer(Options{})
	bots.err = api.NewBotNotFoundError("bot-echo")

	do(t, h, http.MethodGet, "/api/v1/bots/bot-echo", nil, tenant("alice"))
	rec := do(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `botfleet_http_requests_total{code="404",method="GET",route="/api/v1/bots/:botID"} 1`)
	assert.Contains(t, body, `botfleet_api_errors_total{kind="not_found"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestServer(Options{})

	rec := do(t, h, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, api.KindNotFound, decodeError(t, rec).Kind)
}
