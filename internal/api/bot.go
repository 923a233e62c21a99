package api

import "time"

// EnvVar is one environment entry handed to the bot container.
type EnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// BotConfig is the input to a deployment. It is consumed once by the
// manifest builder and never persisted on its own.
type BotConfig struct {
	Name         string   `json:"name"`
	Language     string   `json:"language"`
	Version      string   `json:"version"`
	Image        string   `json:"image,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	WorkflowID   string   `json:"workflowId,omitempty"`
	StartCommand string   `json:"startCommand,omitempty"`
	Code         []byte   `json:"code,omitempty"`
	Env          []EnvVar `json:"env,omitempty"`
	Port         *int32   `json:"port,omitempty"`
}

// BotStatus is the externally visible state of a bot.
type BotStatus string

const (
	BotStatusPending BotStatus = "pending"
	BotStatusRunning BotStatus = "running"
	BotStatusStopped BotStatus = "stopped"
	BotStatusError   BotStatus = "error"
	BotStatusUnknown BotStatus = "unknown"
)

// PodSummary counts the ready pods of a bot against all of its pods.
type PodSummary struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

// Bot is the view of a bot reconstructed from cluster state on every read.
type Bot struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Language      string     `json:"language"`
	Version       string     `json:"version"`
	Status        BotStatus  `json:"status"`
	Namespace     string     `json:"namespace"`
	Image         string     `json:"image"`
	Replicas      int32      `json:"replicas"`
	UserID        string     `json:"userId"`
	WorkflowID    string     `json:"workflowId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
	UptimeSeconds *int64     `json:"uptimeSeconds,omitempty"`
	Pods          PodSummary `json:"pods"`
}

// BotChanges lists the fields an update may touch. Nil fields are left as they are.
type BotChanges struct {
	Language     *string   `json:"language,omitempty"`
	Version      *string   `json:"version,omitempty"`
	Image        *string   `json:"image,omitempty"`
	Env          *[]EnvVar `json:"env,omitempty"`
	StartCommand *string   `json:"startCommand,omitempty"`
	Code         []byte    `json:"code,omitempty"`
	WorkflowID   *string   `json:"workflowId,omitempty"`
}

// UpdateStage is the progress of a long-running update as seen by a polling client.
type UpdateStage string

const (
	// StageValidation and StageUpload are emitted by clients before any object
	// is mutated. The server never derives them.
	StageValidation UpdateStage = "validation"
	StageUpload     UpdateStage = "upload"

	StageConfig   UpdateStage = "config"
	StageRestart  UpdateStage = "restart"
	StageComplete UpdateStage = "complete"
	StageError    UpdateStage = "error"
)

// Terminal reports whether polling can stop at this stage.
func (s UpdateStage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// PodDetail is the per-pod part of a detailed status report.
type PodDetail struct {
	Name           string     `json:"name"`
	Phase          string     `json:"phase"`
	Ready          bool       `json:"ready"`
	Restarts       int32      `json:"restarts"`
	ContainerState string     `json:"containerState"`
	Reason         string     `json:"reason,omitempty"`
	Message        string     `json:"message,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
}

// CodeFreshness tells whether the running pods were built from the current
// code bundle.
type CodeFreshness struct {
	HasCode     bool       `json:"hasCode"`
	Exists      bool       `json:"exists"`
	Current     bool       `json:"current"`
	Checksum    string     `json:"checksum,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// BotDetail is the response of the detailed status call.
type BotDetail struct {
	Bot   Bot           `json:"bot"`
	Stage UpdateStage   `json:"stage"`
	Pods  []PodDetail   `json:"pods"`
	Code  CodeFreshness `json:"code"`
}

// ExecStatus is the outcome of an exec call.
type ExecStatus string

const (
	ExecStatusOK            ExecStatus = "ok"
	ExecStatusFailed        ExecStatus = "failed"
	ExecStatusNoRunningPods ExecStatus = "no-running-pods"
)

// ExecResult carries captured output of a command run inside a bot pod.
type ExecResult struct {
	Status ExecStatus `json:"status"`
	Pod    string     `json:"pod,omitempty"`
	Stdout string     `json:"stdout"`
	Stderr string     `json:"stderr"`
	Error  string     `json:"error,omitempty"`
}

// MetricsSnapshot is the summed live resource usage of all pods of a bot.
type MetricsSnapshot struct {
	BotID      string    `json:"botId"`
	Pods       int       `json:"pods"`
	CPUMillis  int64     `json:"cpuMillicores"`
	MemoryMiB  float64   `json:"memoryMiB"`
	Timestamp  time.Time `json:"timestamp"`
	WindowSecs float64   `json:"windowSeconds"`
}

// LogsResult holds log output of one bot pod.
type LogsResult struct {
	BotID string `json:"botId"`
	Pod   string `json:"pod"`
	Logs  string `json:"logs"`
}
