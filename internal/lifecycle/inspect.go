package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
	"botfleet/internal/status"
	"botfleet/pkg/logging"
)

const bytesPerMiB = 1024 * 1024

// Logs returns the output of the bot container of the first running pod,
// falling back to the newest pod. tailLines limits the output when set.
func (m *Manager) Logs(ctx context.Context, id string, tailLines *int64, tenant string) (*api.LogsResult, error) {
	if tailLines != nil && *tailLines < 0 {
		return nil, api.NewValidationError("tail", fmt.Sprintf("must not be negative, got %d", *tailLines))
	}
	if _, err := m.owned(ctx, id, tenant); err != nil {
		return nil, err
	}

	pods, err := m.pods(ctx, id)
	if err != nil {
		return nil, err
	}
	pod, ok := status.FirstRunning(pods)
	if !ok {
		pod, ok = status.Newest(pods)
	}
	if !ok {
		return nil, api.NewNotFoundErrorWithMessage("pod", id, fmt.Sprintf("bot %s has no pods", id))
	}

	logs, err := m.kube.PodLogs(ctx, m.namespace, pod.Name, manifest.ContainerName, tailLines)
	if err != nil {
		return nil, err
	}
	return &api.LogsResult{BotID: id, Pod: pod.Name, Logs: logs}, nil
}

// Status returns the detailed status of a bot: its view, the update stage,
// every pod and whether the pods run the current code bundle.
func (m *Manager) Status(ctx context.Context, id, tenant string) (*api.BotDetail, error) {
	d, err := m.owned(ctx, id, tenant)
	if err != nil {
		return nil, err
	}

	var (
		pods []corev1.Pod
		cm   *corev1.ConfigMap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pods, err = m.pods(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		cm, err = m.kube.GetConfigMap(gctx, m.namespace, manifest.CodeConfigMapName(id))
		if api.IsNotFound(err) {
			cm, err = nil, nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	botPods := status.PodsForBot(id, pods)
	return &api.BotDetail{
		Bot:   status.Aggregate(d, botPods, m.clock.Now()),
		Stage: status.Stage(d, botPods),
		Pods:  status.PodDetails(botPods),
		Code:  status.Freshness(d, cm),
	}, nil
}

// Exec runs command through sh -c in the bot container of the first running
// pod. A bot without running pods yields a no-running-pods result, and a
// failing command a failed result; neither is returned as an error.
func (m *Manager) Exec(ctx context.Context, id, command, tenant string) (*api.ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, api.NewValidationError("command", "is required")
	}
	if _, err := m.owned(ctx, id, tenant); err != nil {
		return nil, err
	}

	pods, err := m.pods(ctx, id)
	if err != nil {
		return nil, err
	}
	pod, ok := status.FirstRunning(pods)
	if !ok {
		return &api.ExecResult{Status: api.ExecStatusNoRunningPods}, nil
	}

	stdout, stderr, err := m.kube.Exec(ctx, m.namespace, pod.Name, manifest.ContainerName, []string{"sh", "-c", command})
	result := &api.ExecResult{Status: api.ExecStatusOK, Pod: pod.Name, Stdout: stdout, Stderr: stderr}
	if err != nil {
		logging.Debug(subsystem, "Exec in %s/%s failed: %v", m.namespace, pod.Name, err)
		result.Status = api.ExecStatusFailed
		result.Error = err.Error()
	}
	return result, nil
}

// Metrics sums the live CPU and memory usage of all pods of a bot. A bot
// without pod metrics is reported as not found rather than as idle.
func (m *Manager) Metrics(ctx context.Context, id, tenant string) (*api.MetricsSnapshot, error) {
	if _, err := m.owned(ctx, id, tenant); err != nil {
		return nil, err
	}

	items, err := m.kube.PodMetrics(ctx, m.namespace, manifest.SelectorLabels(id))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, api.NewNotFoundErrorWithMessage("metrics", id, fmt.Sprintf("no running pods report metrics for bot %s", id))
	}

	snapshot := &api.MetricsSnapshot{BotID: id, Pods: len(items)}
	var memBytes int64
	for _, item := range items {
		for _, c := range item.Containers {
			snapshot.CPUMillis += c.Usage.Cpu().MilliValue()
			memBytes += c.Usage.Memory().Value()
		}
		if item.Timestamp.Time.After(snapshot.Timestamp) {
			snapshot.Timestamp = item.Timestamp.Time
		}
		if w := item.Window.Duration.Seconds(); w > snapshot.WindowSecs {
			snapshot.WindowSecs = w
		}
	}
	snapshot.MemoryMiB = float64(memBytes) / bytesPerMiB
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = m.clock.Now().UTC().Truncate(time.Second)
	}
	return snapshot, nil
}
