package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"botfleet/internal/api"
	"botfleet/pkg/logging"
)

// recreateBackOff bounds how long Restart waits for the old deployment name
// to become free again.
var recreateBackOff = func() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 20)
}

// Scale sets the desired replica count of a bot.
func (m *Manager) Scale(ctx context.Context, id string, replicas int32, tenant string) (*api.Bot, error) {
	if replicas < 0 {
		return nil, api.NewValidationError("replicas", fmt.Sprintf("must not be negative, got %d", replicas))
	}

	d, err := m.owned(ctx, id, tenant)
	if err != nil {
		return nil, err
	}

	d.Spec.Replicas = ptr.To(replicas)
	if err := m.kube.UpdateDeployment(ctx, d); err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewBotNotFoundError(id)
		}
		return nil, err
	}

	logging.Info(subsystem, "Scaled bot %s to %d replicas", id, replicas)
	return m.view(ctx, d)
}

// Start scales a bot to one replica.
func (m *Manager) Start(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return m.Scale(ctx, id, 1, tenant)
}

// Stop scales a bot to zero replicas. Its objects stay in place.
func (m *Manager) Stop(ctx context.Context, id, tenant string) (*api.Bot, error) {
	return m.Scale(ctx, id, 0, tenant)
}

// Restart deletes the deployment and creates it again from the copy read
// just before, minus the metadata the server fills in. All pods go away at
// once, so there is a window without replicas.
func (m *Manager) Restart(ctx context.Context, id, tenant string) (*api.Bot, error) {
	d, err := m.owned(ctx, id, tenant)
	if err != nil {
		return nil, err
	}

	fresh := d.DeepCopy()
	fresh.ObjectMeta = metav1.ObjectMeta{
		Name:        d.Name,
		Namespace:   d.Namespace,
		Labels:      d.Labels,
		Annotations: d.Annotations,
	}
	fresh.Status = appsv1.DeploymentStatus{}

	if err := m.kube.DeleteDeployment(ctx, m.namespace, id); err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewBotNotFoundError(id)
		}
		return nil, err
	}

	create := func() error {
		err := m.kube.CreateDeployment(ctx, fresh.DeepCopy())
		if err != nil && !api.IsConflict(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(create, backoff.WithContext(recreateBackOff(), ctx)); err != nil {
		return nil, api.NewRedeployRequiredError(id, err)
	}

	logging.Info(subsystem, "Restarted bot %s", id)
	created, err := m.kube.GetDeployment(ctx, m.namespace, id)
	if err != nil {
		return nil, err
	}
	return m.view(ctx, created)
}
