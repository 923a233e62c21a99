package status

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"botfleet/internal/api"
)

// Stage derives the update progress of a bot from its deployment and its pods.
// Rules are checked in order and the first match wins:
//
//  1. no pods yet                                   -> config
//  2. generation not yet observed by the controller -> config
//  3. a pod pending or a container waiting          -> restart
//  4. every pod running and ready, ready == desired -> complete
//  5. a pod failed or a container exited with error -> error
//  6. otherwise                                     -> restart
//
// Stage only ever returns config, restart, complete or error; validation and
// upload happen on the client before anything is sent.
func Stage(d *appsv1.Deployment, botPods []corev1.Pod) api.UpdateStage {
	if len(botPods) == 0 {
		return api.StageConfig
	}
	if d.Generation != d.Status.ObservedGeneration {
		return api.StageConfig
	}

	for i := range botPods {
		if isStarting(&botPods[i]) {
			return api.StageRestart
		}
	}

	allReady := true
	for i := range botPods {
		p := &botPods[i]
		if p.Status.Phase != corev1.PodRunning || !isReady(p) {
			allReady = false
			break
		}
	}
	if allReady && d.Status.ReadyReplicas == DesiredReplicas(d) {
		return api.StageComplete
	}

	for i := range botPods {
		p := &botPods[i]
		if p.Status.Phase == corev1.PodFailed {
			return api.StageError
		}
		for _, cs := range p.Status.ContainerStatuses {
			if terminatedWithError(cs.State.Terminated) {
				return api.StageError
			}
		}
	}

	return api.StageRestart
}

// isStarting reports a pod that is pending, not yet scheduled, or has a
// container in the waiting state.
func isStarting(p *corev1.Pod) bool {
	if p.Status.Phase == corev1.PodPending || p.Status.Phase == "" {
		return true
	}
	for _, statuses := range [][]corev1.ContainerStatus{p.Status.InitContainerStatuses, p.Status.ContainerStatuses} {
		for _, cs := range statuses {
			if cs.State.Waiting != nil {
				return true
			}
		}
	}
	return false
}
