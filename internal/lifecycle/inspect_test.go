package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	"k8s.io/utils/ptr"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
)

func TestExec_NoRunningPods(t *testing.T) {
	f := newFixture(t)
	f.deploy(t, echoConfig("alice"))
	f.addPod(t, "bot-echo", "bot-echo-pending", "alice", corev1.PodPending, false)

	result, err := f.m.Exec(context.Background(), "bot-echo", "ls", "alice")
	require.NoError(t, err)
	assert.Equal(t, api.ExecStatusNoRunningPods, result.Status)
	assert.Empty(t, f.env.Executor.Calls)
}

func TestExec_RunsInFirstRunningPod(t *testing.T) {
	f := newFixture(t)
	f.deploy(t, echoConfig("alice"))
	f.addPod(t, "bot-echo", "bot-echo-b", "alice", corev1.PodRunning, true)
	f.addPod(t, "bot-echo", "bot-echo-a", "alice", corev1.PodRunning, true)
	f.env.Executor.Stdout = "bot.py\n"

	result, err := f.m.Exec(context.Background(), "bot-echo", "ls /workspace", "alice")
	require.NoError(t, err)
	assert.Equal(t, api.ExecStatusOK, result.Status)
	assert.Equal(t, "bot-echo-a", result.Pod)
	assert.Equal(t, "bot.py\n", result.Stdout)

	require.Len(t, f.env.Executor.Calls, 1)
	call := f.env.Executor.Calls[0]
	assert.Equal(t, testNamespace, call.Namespace)
	assert.Equal(t, manifest.ContainerName, call.Container)
	assert.Equal(t, []string{"sh", "-c", "ls /workspace"}, call.Command)
}

func TestExec_CommandFailure(t *testing.T) {
	f := newFixture(t)
	f.deploy(t, echoConfig("alice"))
	f.addPod(t, "bot-echo", "bot-echo-a", "alice", corev1.PodRunning, true)
	f.env.Executor.Stderr = "boom\n"
	f.env.Executor.Err = errors.New("command terminated with exit code 1")

	result, err := f.m.Exec(context.Background(), "bot-echo", "false", "")
	require.NoError(t, err)
	assert.Equal(t, api.ExecStatusFailed, result.Status)
	assert.Equal(t, "boom\n", result.Stderr)
	assert.Contains(t, result.Error, "exit code 1")
}

func TestExec_EmptyCommand(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Exec(context.Background(), "bot-echo", "  ", "")
	assert.True(t, api.IsValidation(err))
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.deploy(t, echoConfig("alice"))

	_, err := f.m.Logs(ctx, "bot-echo", nil, "alice")
	assert.True(t, api.IsNotFound(err), "a bot without pods has no logs")

	f.addPod(t, "bot-echo", "bot-echo-a", "alice", corev1.PodRunning, true)
	logs, err := f.m.Logs(ctx, "bot-echo", ptr.To[int64](50), "alice")
	require.NoError(t, err)
	assert.Equal(t, "bot-echo-a", logs.Pod)
	assert.Equal(t, "fake logs", logs.Logs)

	_, err = f.m.Logs(ctx, "bot-echo", ptr.To[int64](-1), "alice")
	assert.True(t, api.IsValidation(err))
}

func TestLogs_FallsBackToNewestPod(t *testing.T) {
	f := newFixture(t)
	f.deploy(t, echoConfig("alice"))
	f.addPod(t, "bot-echo", "bot-echo-crashing", "alice", corev1.PodFailed, false)

	logs, err := f.m.Logs(context.Background(), "bot-echo", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "bot-echo-crashing", logs.Pod)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.deploy(t, echoConfig("alice"))

	_, err := f.m.Metrics(ctx, "bot-echo", "alice")
	assert.True(t, api.IsNotFound(err), "no pods must not be reported as zero usage")

	stamp := metav1.NewTime(t0.Add(time.Minute))
	for name, usage := range map[string]corev1.ResourceList{
		"bot-echo-a": {corev1.ResourceCPU: resource.MustParse("250m"), corev1.ResourceMemory: resource.MustParse("64Mi")},
		"bot-echo-b": {corev1.ResourceCPU: resource.MustParse("100m"), corev1.ResourceMemory: resource.MustParse("32Mi")},
	} {
		require.NoError(t, f.env.AddPodMetrics(&metricsv1beta1.PodMetrics{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace, Labels: manifest.SelectorLabels("bot-echo")},
			Timestamp:  stamp,
			Window:     metav1.Duration{Duration: 30 * time.Second},
			Containers: []metricsv1beta1.ContainerMetrics{{Name: manifest.ContainerName, Usage: usage}},
		}))
	}
	require.NoError(t, f.env.AddPodMetrics(&metricsv1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: "other-a", Namespace: testNamespace, Labels: manifest.SelectorLabels("bot-other")},
		Containers: []metricsv1beta1.ContainerMetrics{{Name: manifest.ContainerName, Usage: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("1")}}},
	}))

	snapshot, err := f.m.Metrics(ctx, "bot-echo", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bot-echo", snapshot.BotID)
	assert.Equal(t, 2, snapshot.Pods)
	assert.Equal(t, int64(350), snapshot.CPUMillis)
	assert.InDelta(t, 96.0, snapshot.MemoryMiB, 0.001)
	assert.Equal(t, stamp.Time, snapshot.Timestamp)
	assert.InDelta(t, 30.0, snapshot.WindowSecs, 0.001)
}

func TestStatus_Detail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := echoConfig("alice")
	cfg.Code = []byte("bundle")
	cfg.StartCommand = "python bot.py"
	f.deploy(t, cfg)

	detail, err := f.m.Status(ctx, "bot-echo", "alice")
	require.NoError(t, err)
	assert.Equal(t, api.StageConfig, detail.Stage)
	assert.Empty(t, detail.Pods)
	assert.True(t, detail.Code.HasCode)
	assert.True(t, detail.Code.Exists)
	assert.True(t, detail.Code.Current)

	f.addPod(t, "bot-echo", "bot-echo-a", "alice", corev1.PodRunning, true)
	f.setDeploymentStatus(t, "bot-echo", func(s *appsv1.DeploymentStatus) {
		s.Replicas, s.ReadyReplicas, s.AvailableReplicas = 1, 1, 1
	})

	detail, err = f.m.Status(ctx, "bot-echo", "alice")
	require.NoError(t, err)
	assert.Equal(t, api.StageComplete, detail.Stage)
	assert.Equal(t, api.BotStatusRunning, detail.Bot.Status)
	require.Len(t, detail.Pods, 1)
	assert.Equal(t, "running", detail.Pods[0].ContainerState)

	require.NoError(t, f.env.Client.DeleteConfigMap(ctx, testNamespace, "bot-echo-code"))
	detail, err = f.m.Status(ctx, "bot-echo", "alice")
	require.NoError(t, err)
	assert.True(t, detail.Code.HasCode)
	assert.False(t, detail.Code.Exists)
	assert.False(t, detail.Code.Current)
}
