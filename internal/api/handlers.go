package api

import "context"

// BotManagerHandler is the lifecycle surface served over HTTP. It is
// implemented by lifecycle.Manager and consumed by the server package.
//
// The tenant argument scopes a call to one owner. The empty tenant is the
// administrative caller: no ownership check is made, and List returns the
// bots of every tenant.
type BotManagerHandler interface {
	Deploy(ctx context.Context, cfg BotConfig) (*Bot, error)
	Get(ctx context.Context, id, tenant string) (*Bot, error)
	List(ctx context.Context, tenant string) ([]Bot, error)
	Delete(ctx context.Context, id, tenant string) error

	Scale(ctx context.Context, id string, replicas int32, tenant string) (*Bot, error)
	Start(ctx context.Context, id, tenant string) (*Bot, error)
	Stop(ctx context.Context, id, tenant string) (*Bot, error)
	Restart(ctx context.Context, id, tenant string) (*Bot, error)
	Update(ctx context.Context, id string, changes BotChanges, tenant string) (*Bot, error)

	Logs(ctx context.Context, id string, tailLines *int64, tenant string) (*LogsResult, error)
	Status(ctx context.Context, id, tenant string) (*BotDetail, error)
	Exec(ctx context.Context, id, command, tenant string) (*ExecResult, error)
	Metrics(ctx context.Context, id, tenant string) (*MetricsSnapshot, error)
}

// ScaleRequest is the body of a scale call.
type ScaleRequest struct {
	Replicas *int32 `json:"replicas" binding:"required"`
}

// ExecRequest is the body of an exec call.
type ExecRequest struct {
	Command string `json:"command" binding:"required"`
}

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Namespace string `json:"namespace,omitempty"`
	Version   string `json:"version,omitempty"`
}
