package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"botfleet/internal/api"
)

const (
	headerTenantID   = "X-Tenant-ID"
	headerAdminToken = "X-Admin-Token"

	tenantPrefix = "/api/v1/bots"
	adminPrefix  = "/admin/v1/bots"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	AdminToken string
	Timeout    time.Duration

	// Retries is the number of retries of idempotent reads on transport
	// errors and 502/503 responses.
	Retries int

	UserAgent string
}

// Client talks to a botfleet server.
type Client struct {
	http       *resty.Client
	adminToken string
}

var _ api.BotManagerHandler = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "botfleet-cli"
	}

	r := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(retryReads)

	return &Client{http: r, adminToken: cfg.AdminToken}
}

// retryReads retries GET requests that failed in transport or hit a gateway
// error. Mutations are never retried.
func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	switch resp.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// StatusError is a non-2xx answer of the server.
type StatusError struct {
	StatusCode int
	Response   api.ErrorResponse
}

func (e *StatusError) Error() string {
	return e.Response.Message
}

// Kind returns the error kind reported by the server.
func (e *StatusError) Kind() api.ErrorKind {
	return e.Response.Kind
}

// request prepares a call scoped to tenant and returns it with the path
// prefix of the matching route group.
func (c *Client) request(ctx context.Context, tenant string) (*resty.Request, string, error) {
	r := c.http.R().SetContext(ctx).SetError(&api.ErrorResponse{})
	switch {
	case tenant != "":
		return r.SetHeader(headerTenantID, tenant), tenantPrefix, nil
	case c.adminToken != "":
		return r.SetHeader(headerAdminToken, c.adminToken), adminPrefix, nil
	default:
		return nil, "", api.NewValidationError("tenant", "a tenant or an admin token is required")
	}
}

func botPath(prefix, id string, suffix ...string) string {
	p := prefix + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// check turns transport failures and error answers into errors.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	se := &StatusError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*api.ErrorResponse); ok && body.Kind != "" {
		se.Response = *body
	} else {
		se.Response = api.ErrorResponse{
			Kind:    api.KindInternal,
			Message: fmt.Sprintf("%s: unexpected status %s", op, resp.Status()),
		}
	}
	return se
}

func (c *Client) Deploy(ctx context.Context, cfg api.BotConfig) (*api.Bot, error) {
	r, prefix, err := c.request(ctx, cfg.UserID)
	if err != nil {
		return nil, err
	}
	var bot api.Bot
	resp, err := r.SetBody(cfg).SetResult(&bot).Post(prefix)
	if err := check("deploy bot", resp, err); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *Client) Get(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodGet, "get bot", id, tenant, "", nil)
}

func (c *Client) List(ctx context.Context, tenant string) ([]api.Bot, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return c.list(r, prefix)
}

// ListAll lists bots through the admin routes, optionally filtered to one
// tenant.
func (c *Client) ListAll(ctx context.Context, tenant string) ([]api.Bot, error) {
	r, prefix, err := c.request(ctx, "")
	if err != nil {
		return nil, err
	}
	if tenant != "" {
		r.SetQueryParam("tenant", tenant)
	}
	return c.list(r, prefix)
}

func (c *Client) list(r *resty.Request, prefix string) ([]api.Bot, error) {
	bots := []api.Bot{}
	resp, err := r.SetResult(&bots).Get(prefix)
	if err := check("list bots", resp, err); err != nil {
		return nil, err
	}
	return bots, nil
}

func (c *Client) Delete(ctx context.Context, id, tenant string) error {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return err
	}
	resp, err := r.Delete(botPath(prefix, id))
	return check("delete bot", resp, err)
}

func (c *Client) Scale(ctx context.Context, id string, replicas int32, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodPost, "scale bot", id, tenant, "scale", api.ScaleRequest{Replicas: &replicas})
}

func (c *Client) Start(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodPost, "start bot", id, tenant, "start", nil)
}

func (c *Client) Stop(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodPost, "stop bot", id, tenant, "stop", nil)
}

func (c *Client) Restart(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodPost, "restart bot", id, tenant, "restart", nil)
}

func (c *Client) Update(ctx context.Context, id string, changes api.BotChanges, tenant string) (*api.Bot, error) {
	return c.botCall(ctx, http.MethodPatch, "update bot", id, tenant, "", changes)
}

// botCall performs a request on one bot that answers with a Bot.
func (c *Client) botCall(ctx context.Context, method, op, id, tenant, action string, body interface{}) (*api.Bot, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if body != nil {
		r.SetBody(body)
	}

	path := botPath(prefix, id)
	if action != "" {
		path = botPath(prefix, id, action)
	}

	var bot api.Bot
	resp, err := r.SetResult(&bot).Execute(method, path)
	if err := check(op, resp, err); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *Client) Logs(ctx context.Context, id string, tailLines *int64, tenant string) (*api.LogsResult, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if tailLines != nil {
		r.SetQueryParam("tail", strconv.FormatInt(*tailLines, 10))
	}
	var logs api.LogsResult
	resp, err := r.SetResult(&logs).Get(botPath(prefix, id, "logs"))
	if err := check("fetch logs", resp, err); err != nil {
		return nil, err
	}
	return &logs, nil
}

func (c *Client) Status(ctx context.Context, id, tenant string) (*api.BotDetail, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var detail api.BotDetail
	resp, err := r.SetResult(&detail).Get(botPath(prefix, id, "status"))
	if err := check("fetch status", resp, err); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) Exec(ctx context.Context, id, command, tenant string) (*api.ExecResult, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var result api.ExecResult
	resp, err := r.SetBody(api.ExecRequest{Command: command}).SetResult(&result).Post(botPath(prefix, id, "exec"))
	if err := check("exec in bot", resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Metrics(ctx context.Context, id, tenant string) (*api.MetricsSnapshot, error) {
	r, prefix, err := c.request(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var snapshot api.MetricsSnapshot
	resp, err := r.SetResult(&snapshot).Get(botPath(prefix, id, "metrics"))
	if err := check("fetch metrics", resp, err); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var health api.HealthResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&health).Get("/healthz")
	if err := check("check health", resp, err); err != nil {
		return nil, err
	}
	return &health, nil
}
