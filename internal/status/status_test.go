package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testDeployment(id string, desired int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:              id,
			Namespace:         "bots",
			Generation:        1,
			CreationTimestamp: metav1.NewTime(t0),
			Labels: map[string]string{
				manifest.LabelApp:      id,
				manifest.LabelLanguage: "python",
				manifest.LabelVersion:  "3.12",
				manifest.LabelUserID:   "alice",
			},
			Annotations: map[string]string{manifest.AnnotationName: "My Bot"},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(desired),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{Containers: []corev1.Container{{Name: manifest.ContainerName, Image: "python:3.12-slim"}}},
			},
		},
		Status: appsv1.DeploymentStatus{ObservedGeneration: 1},
	}
}

type podOpt func(*corev1.Pod)

func testPod(name, app string, opts ...podOpt) corev1.Pod {
	p := corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Labels:            map[string]string{manifest.LabelApp: app},
			CreationTimestamp: metav1.NewTime(t0),
		},
		Status: corev1.PodStatus{Phase: corev1.PodPending},
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func running(start time.Time) podOpt {
	return func(p *corev1.Pod) {
		p.Status.Phase = corev1.PodRunning
		p.Status.StartTime = ptr.To(metav1.NewTime(start))
		p.Status.ContainerStatuses = []corev1.ContainerStatus{{
			Name:  manifest.ContainerName,
			State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{StartedAt: metav1.NewTime(start)}},
		}}
	}
}

func ready(p *corev1.Pod) {
	p.Status.Conditions = append(p.Status.Conditions, corev1.PodCondition{Type: corev1.PodReady, Status: corev1.ConditionTrue})
}

func waiting(reason string) podOpt {
	return func(p *corev1.Pod) {
		p.Status.Phase = corev1.PodRunning
		p.Status.ContainerStatuses = []corev1.ContainerStatus{{
			Name:         manifest.ContainerName,
			RestartCount: 3,
			State:        corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: reason, Message: "back-off"}},
		}}
	}
}

func terminated(exitCode int32) podOpt {
	return func(p *corev1.Pod) {
		p.Status.Phase = corev1.PodRunning
		p.Status.ContainerStatuses = []corev1.ContainerStatus{{
			Name:  manifest.ContainerName,
			State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: exitCode, Reason: "Error"}},
		}}
	}
}

func createdAt(t time.Time) podOpt {
	return func(p *corev1.Pod) { p.CreationTimestamp = metav1.NewTime(t) }
}

func TestAggregate_Fields(t *testing.T) {
	d := testDeployment("bot-my-bot", 1)
	d.Status.AvailableReplicas = 1
	pods := []corev1.Pod{
		testPod("bot-my-bot-1", "bot-my-bot", running(t0.Add(10*time.Second)), ready),
		testPod("other-1", "bot-other", running(t0)),
	}

	bot := Aggregate(d, pods, t0.Add(70*time.Second))

	assert.Equal(t, "bot-my-bot", bot.ID)
	assert.Equal(t, "My Bot", bot.Name)
	assert.Equal(t, "python", bot.Language)
	assert.Equal(t, "3.12", bot.Version)
	assert.Equal(t, "alice", bot.UserID)
	assert.Equal(t, "python:3.12-slim", bot.Image)
	assert.Equal(t, int32(1), bot.Replicas)
	assert.Equal(t, api.BotStatusRunning, bot.Status)
	assert.Equal(t, api.PodSummary{Ready: 1, Total: 1}, bot.Pods)
	require.NotNil(t, bot.UptimeSeconds)
	assert.Equal(t, int64(60), *bot.UptimeSeconds)
	assert.Nil(t, bot.LastUpdated)
}

func TestAggregate_NameFallsBackToID(t *testing.T) {
	d := testDeployment("bot-x", 1)
	d.Annotations = nil
	assert.Equal(t, "bot-x", Aggregate(d, nil, t0).Name)
}

func TestUptime_EarliestRunningPod(t *testing.T) {
	pods := []corev1.Pod{
		testPod("a", "bot-a", running(t0.Add(30*time.Second))),
		testPod("b", "bot-a", running(t0)),
		testPod("c", "bot-a"),
	}
	secs, ok := Uptime(pods, t0.Add(2*time.Minute))
	require.True(t, ok)
	assert.Equal(t, int64(120), secs)

	_, ok = Uptime([]corev1.Pod{testPod("c", "bot-a")}, t0)
	assert.False(t, ok)
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		desired   int32
		available int32
		observed  int32
		pods      []corev1.Pod
		want      api.BotStatus
	}{
		{name: "available replica", desired: 1, available: 1, want: api.BotStatusRunning},
		{name: "desired but not yet available", desired: 1, pods: []corev1.Pod{testPod("p", "bot-a")}, want: api.BotStatusPending},
		{name: "desired without pods", desired: 1, want: api.BotStatusPending},
		{name: "scaled to zero", desired: 0, want: api.BotStatusStopped},
		{name: "scaled to zero with terminating pod", desired: 0, observed: 1, pods: []corev1.Pod{testPod("p", "bot-a", running(t0))}, want: api.BotStatusPending},
		{name: "crash loop", desired: 1, pods: []corev1.Pod{testPod("p", "bot-a", waiting("CrashLoopBackOff"))}, want: api.BotStatusError},
		{name: "failed pod", desired: 1, pods: []corev1.Pod{testPod("p", "bot-a", func(p *corev1.Pod) { p.Status.Phase = corev1.PodFailed })}, want: api.BotStatusError},
		{name: "no replicas anywhere but pod lingering", desired: 0, pods: []corev1.Pod{testPod("p", "bot-a", running(t0))}, want: api.BotStatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeployment("bot-a", tt.desired)
			d.Status.AvailableReplicas = tt.available
			d.Status.Replicas = tt.observed
			assert.Equal(t, tt.want, Derive(d, tt.pods))
		})
	}
}

func TestLastUpdated(t *testing.T) {
	d := testDeployment("bot-a", 1)
	_, ok := LastUpdated(d)
	assert.False(t, ok)

	d.Status.Conditions = []appsv1.DeploymentCondition{
		{Type: appsv1.DeploymentAvailable, LastUpdateTime: metav1.NewTime(t0.Add(5 * time.Minute))},
		{Type: appsv1.DeploymentProgressing, LastUpdateTime: metav1.NewTime(t0.Add(time.Minute)), LastTransitionTime: metav1.NewTime(t0)},
	}
	got, ok := LastUpdated(d)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), got)

	d.Status.Conditions[1].LastUpdateTime = metav1.Time{}
	got, _ = LastUpdated(d)
	assert.Equal(t, t0, got)

	d.Status.Conditions = d.Status.Conditions[:1]
	got, _ = LastUpdated(d)
	assert.Equal(t, t0.Add(5*time.Minute), got)
}

func TestStage_Rules(t *testing.T) {
	tests := []struct {
		name     string
		gen      int64
		observed int64
		readyRep int32
		pods     []corev1.Pod
		want     api.UpdateStage
	}{
		{name: "no pods", gen: 1, observed: 1, want: api.StageConfig},
		{name: "generation not observed", gen: 2, observed: 1, pods: []corev1.Pod{testPod("p", "bot-a", running(t0), ready)}, want: api.StageConfig},
		{name: "pod pending", gen: 2, observed: 2, pods: []corev1.Pod{testPod("p", "bot-a")}, want: api.StageRestart},
		{name: "container waiting", gen: 2, observed: 2, pods: []corev1.Pod{testPod("p", "bot-a", waiting("CrashLoopBackOff"))}, want: api.StageRestart},
		{name: "all ready", gen: 2, observed: 2, readyRep: 1, pods: []corev1.Pod{testPod("p", "bot-a", running(t0), ready)}, want: api.StageComplete},
		{name: "ready pods but replica count lags", gen: 2, observed: 2, readyRep: 0, pods: []corev1.Pod{testPod("p", "bot-a", running(t0), ready)}, want: api.StageRestart},
		{name: "failed pod", gen: 2, observed: 2, pods: []corev1.Pod{testPod("p", "bot-a", func(p *corev1.Pod) { p.Status.Phase = corev1.PodFailed })}, want: api.StageError},
		{name: "container exited with error", gen: 2, observed: 2, pods: []corev1.Pod{testPod("p", "bot-a", terminated(1))}, want: api.StageError},
		{name: "running but not ready", gen: 2, observed: 2, pods: []corev1.Pod{testPod("p", "bot-a", running(t0))}, want: api.StageRestart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeployment("bot-a", 1)
			d.Generation = tt.gen
			d.Status.ObservedGeneration = tt.observed
			d.Status.ReadyReplicas = tt.readyRep
			assert.Equal(t, tt.want, Stage(d, tt.pods))
		})
	}
}

func TestStage_ConvergesAfterUpdate(t *testing.T) {
	d := testDeployment("bot-a", 1)
	d.Generation = 2

	var seen []api.UpdateStage
	record := func(pods []corev1.Pod) {
		s := Stage(d, pods)
		if len(seen) == 0 || seen[len(seen)-1] != s {
			seen = append(seen, s)
		}
	}

	old := testPod("old", "bot-a", running(t0), ready)
	record([]corev1.Pod{old})

	d.Status.ObservedGeneration = 2
	record([]corev1.Pod{old, testPod("new", "bot-a")})
	record([]corev1.Pod{old, testPod("new", "bot-a", waiting("ContainerCreating"))})

	d.Status.ReadyReplicas = 1
	record([]corev1.Pod{testPod("new", "bot-a", running(t0.Add(time.Minute)), ready)})

	assert.Equal(t, []api.UpdateStage{api.StageConfig, api.StageRestart, api.StageComplete}, seen)
}

func TestStage_NeverConfigOnceObservedWithPods(t *testing.T) {
	d := testDeployment("bot-a", 1)
	podSets := [][]corev1.Pod{
		{testPod("p", "bot-a")},
		{testPod("p", "bot-a", running(t0))},
		{testPod("p", "bot-a", running(t0), ready)},
		{testPod("p", "bot-a", terminated(2))},
	}
	for _, pods := range podSets {
		assert.NotEqual(t, api.StageConfig, Stage(d, pods))
	}
}

func TestPodDetails(t *testing.T) {
	details := PodDetails([]corev1.Pod{
		testPod("b", "bot-a", waiting("CrashLoopBackOff")),
		testPod("a", "bot-a", running(t0), ready),
	})
	require.Len(t, details, 2)

	assert.Equal(t, "a", details[0].Name)
	assert.True(t, details[0].Ready)
	assert.Equal(t, "running", details[0].ContainerState)
	require.NotNil(t, details[0].StartedAt)

	assert.Equal(t, "waiting", details[1].ContainerState)
	assert.Equal(t, "CrashLoopBackOff", details[1].Reason)
	assert.Equal(t, int32(3), details[1].Restarts)
}

func TestFirstRunningAndNewest(t *testing.T) {
	pods := []corev1.Pod{
		testPod("c", "bot-a", createdAt(t0.Add(2*time.Minute))),
		testPod("b", "bot-a", running(t0), createdAt(t0.Add(time.Minute))),
		testPod("a", "bot-a", running(t0), createdAt(t0.Add(time.Minute))),
	}
	first, ok := FirstRunning(pods)
	require.True(t, ok)
	assert.Equal(t, "a", first.Name)

	newest, ok := Newest(pods)
	require.True(t, ok)
	assert.Equal(t, "c", newest.Name)

	_, ok = FirstRunning(pods[:1])
	assert.False(t, ok)
}

func TestFreshness(t *testing.T) {
	b := manifest.NewBuilder(manifest.Options{Namespace: "bots", ManagedBy: "botfleet", UnpackImage: "busybox:1.36", WorkDir: "/workspace"}, nil)
	d := testDeployment("bot-a", 1)

	assert.Equal(t, api.CodeFreshness{}, Freshness(d, nil))

	code := []byte("bundle-v1")
	b.AttachCode(&d.Spec.Template, "bot-a", code)
	cm := b.CodeConfigMap("bot-a", nil, code)
	cm.CreationTimestamp = metav1.NewTime(t0)
	cm.ManagedFields = []metav1.ManagedFieldsEntry{{Time: ptr.To(metav1.NewTime(t0.Add(time.Hour)))}}

	f := Freshness(d, cm)
	assert.True(t, f.HasCode)
	assert.True(t, f.Exists)
	assert.True(t, f.Current)
	assert.Equal(t, manifest.Checksum(code), f.Checksum)
	require.NotNil(t, f.LastUpdated)
	assert.Equal(t, t0.Add(time.Hour), *f.LastUpdated)

	cm.Annotations[manifest.AnnotationCodeChecksum] = manifest.Checksum([]byte("bundle-v2"))
	assert.False(t, Freshness(d, cm).Current)
}
