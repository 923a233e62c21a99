package status

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
)

// Aggregate projects a deployment and the pods of its namespace onto the Bot
// view. Pods are matched by the app label on every call; nothing is cached.
func Aggregate(d *appsv1.Deployment, pods []corev1.Pod, now time.Time) api.Bot {
	id := d.Name
	botPods := PodsForBot(id, pods)

	name := d.Annotations[manifest.AnnotationName]
	if name == "" {
		name = id
	}

	bot := api.Bot{
		ID:         id,
		Name:       name,
		Language:   d.Labels[manifest.LabelLanguage],
		Version:    d.Labels[manifest.LabelVersion],
		Status:     Derive(d, botPods),
		Namespace:  d.Namespace,
		Replicas:   DesiredReplicas(d),
		UserID:     d.Labels[manifest.LabelUserID],
		WorkflowID: d.Labels[manifest.LabelWorkflowID],
		CreatedAt:  d.CreationTimestamp.Time,
		Pods:       summarize(botPods),
	}
	if containers := d.Spec.Template.Spec.Containers; len(containers) > 0 {
		bot.Image = containers[0].Image
	}
	if t, ok := LastUpdated(d); ok {
		bot.LastUpdated = &t
	}
	if secs, ok := Uptime(botPods, now); ok {
		bot.UptimeSeconds = &secs
	}
	return bot
}

// PodsForBot returns the pods labeled app=<id>.
func PodsForBot(id string, pods []corev1.Pod) []corev1.Pod {
	var out []corev1.Pod
	for _, p := range pods {
		if p.Labels[manifest.LabelApp] == id {
			out = append(out, p)
		}
	}
	return out
}

// DesiredReplicas returns spec.replicas, which the API server defaults to 1.
func DesiredReplicas(d *appsv1.Deployment) int32 {
	if d.Spec.Replicas == nil {
		return 1
	}
	return *d.Spec.Replicas
}

// Derive computes the bot status. A bot with an available replica is running;
// a bot scaled to zero with no pods left is stopped; failing pods mean error;
// any desired or observed replica means pending.
func Derive(d *appsv1.Deployment, botPods []corev1.Pod) api.BotStatus {
	desired := DesiredReplicas(d)
	switch {
	case d.Status.AvailableReplicas >= 1:
		return api.BotStatusRunning
	case desired == 0 && len(botPods) == 0:
		return api.BotStatusStopped
	case anyFailing(botPods):
		return api.BotStatusError
	case desired > 0 || d.Status.Replicas > 0:
		return api.BotStatusPending
	default:
		return api.BotStatusUnknown
	}
}

// Uptime is the age in seconds of the earliest started running pod.
func Uptime(botPods []corev1.Pod, now time.Time) (int64, bool) {
	var earliest *time.Time
	for i := range botPods {
		p := &botPods[i]
		if p.Status.Phase != corev1.PodRunning || p.Status.StartTime == nil {
			continue
		}
		t := p.Status.StartTime.Time
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	if earliest == nil {
		return 0, false
	}
	secs := int64(now.Sub(*earliest) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return secs, true
}

// LastUpdated prefers the Progressing condition's update time, then its
// transition time, then the most recent timestamp of any condition.
func LastUpdated(d *appsv1.Deployment) (time.Time, bool) {
	conditions := d.Status.Conditions
	if len(conditions) == 0 {
		return time.Time{}, false
	}
	for _, c := range conditions {
		if c.Type != appsv1.DeploymentProgressing {
			continue
		}
		if !c.LastUpdateTime.IsZero() {
			return c.LastUpdateTime.Time, true
		}
		if !c.LastTransitionTime.IsZero() {
			return c.LastTransitionTime.Time, true
		}
	}

	var latest time.Time
	for _, c := range conditions {
		for _, t := range []time.Time{c.LastUpdateTime.Time, c.LastTransitionTime.Time} {
			if t.After(latest) {
				latest = t
			}
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest, true
}

func summarize(botPods []corev1.Pod) api.PodSummary {
	s := api.PodSummary{Total: len(botPods)}
	for i := range botPods {
		if isReady(&botPods[i]) {
			s.Ready++
		}
	}
	return s
}

func isReady(p *corev1.Pod) bool {
	for _, c := range p.Status.Conditions {
		if c.Type == corev1.PodReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

func anyFailing(botPods []corev1.Pod) bool {
	for i := range botPods {
		p := &botPods[i]
		if p.Status.Phase == corev1.PodFailed {
			return true
		}
		for _, cs := range p.Status.ContainerStatuses {
			if w := cs.State.Waiting; w != nil && (w.Reason == "CrashLoopBackOff" || w.Reason == "ImagePullBackOff" || w.Reason == "ErrImagePull") {
				return true
			}
			if terminatedWithError(cs.State.Terminated) {
				return true
			}
		}
	}
	return false
}

func terminatedWithError(t *corev1.ContainerStateTerminated) bool {
	return t != nil && (t.Reason == "Error" || t.ExitCode != 0)
}
