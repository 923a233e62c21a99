package status

import (
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
)

// PodDetails describes each bot pod, sorted by name.
func PodDetails(botPods []corev1.Pod) []api.PodDetail {
	details := make([]api.PodDetail, 0, len(botPods))
	for i := range botPods {
		p := &botPods[i]
		d := api.PodDetail{
			Name:           p.Name,
			Phase:          string(p.Status.Phase),
			Ready:          isReady(p),
			ContainerState: "unknown",
		}
		if p.Status.StartTime != nil {
			t := p.Status.StartTime.Time
			d.StartedAt = &t
		}
		for _, cs := range p.Status.ContainerStatuses {
			d.Restarts += cs.RestartCount
			if cs.Name != manifest.ContainerName {
				continue
			}
			switch {
			case cs.State.Running != nil:
				d.ContainerState = "running"
			case cs.State.Waiting != nil:
				d.ContainerState = "waiting"
				d.Reason, d.Message = cs.State.Waiting.Reason, cs.State.Waiting.Message
			case cs.State.Terminated != nil:
				d.ContainerState = "terminated"
				d.Reason, d.Message = cs.State.Terminated.Reason, cs.State.Terminated.Message
			}
		}
		if d.Reason == "" {
			d.Reason, d.Message = p.Status.Reason, p.Status.Message
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Name < details[j].Name })
	return details
}

// FirstRunning picks the oldest running pod; ties are broken by name.
func FirstRunning(botPods []corev1.Pod) (*corev1.Pod, bool) {
	var best *corev1.Pod
	for i := range botPods {
		p := &botPods[i]
		if p.Status.Phase != corev1.PodRunning || p.DeletionTimestamp != nil {
			continue
		}
		if best == nil || olderThan(p, best) {
			best = p
		}
	}
	return best, best != nil
}

// Newest returns the most recently created pod.
func Newest(botPods []corev1.Pod) (*corev1.Pod, bool) {
	var best *corev1.Pod
	for i := range botPods {
		p := &botPods[i]
		if best == nil || best.CreationTimestamp.Before(&p.CreationTimestamp) {
			best = p
		}
	}
	return best, best != nil
}

func olderThan(a, b *corev1.Pod) bool {
	if a.CreationTimestamp.Equal(&b.CreationTimestamp) {
		return a.Name < b.Name
	}
	return a.CreationTimestamp.Before(&b.CreationTimestamp)
}

// Freshness compares the code config map with what the pod template was
// built from. cm is nil when the config map does not exist.
func Freshness(d *appsv1.Deployment, cm *corev1.ConfigMap) api.CodeFreshness {
	f := api.CodeFreshness{HasCode: manifest.HasCode(d.Spec.Template)}
	if cm == nil {
		return f
	}
	f.Exists = true
	f.Checksum = cm.Annotations[manifest.AnnotationCodeChecksum]
	f.Current = f.Checksum != "" && f.Checksum == d.Spec.Template.Annotations[manifest.AnnotationCodeChecksum]

	latest := cm.CreationTimestamp.Time
	for _, mf := range cm.ManagedFields {
		if mf.Time != nil && mf.Time.After(latest) {
			latest = mf.Time.Time
		}
	}
	if !latest.IsZero() {
		t := latest.In(time.UTC)
		f.LastUpdated = &t
	}
	return f
}
