package lifecycle

import (
	"context"
	"fmt"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
	"botfleet/internal/status"
	"botfleet/pkg/logging"
)

// Deploy creates the objects of a new bot: the code config map first when a
// bundle is given, then the deployment, then the service when a port is given.
// Nothing is rolled back when a later step fails. Deploying an id that
// already exists is a conflict; existing bots are changed through Update.
func (m *Manager) Deploy(ctx context.Context, cfg api.BotConfig) (*api.Bot, error) {
	if err := m.validateConfig(cfg); err != nil {
		return nil, err
	}

	objs, err := m.builder.Build(cfg)
	if err != nil {
		return nil, err
	}
	id := objs.Deployment.Name

	if err := m.ensureNamespace(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure namespace %s: %w", m.namespace, err)
	}

	if objs.ConfigMap != nil {
		if err := m.createCode(ctx, id, objs); err != nil {
			return nil, err
		}
	}

	if err := m.kube.CreateDeployment(ctx, objs.Deployment); err != nil {
		if api.IsConflict(err) {
			return nil, api.NewConflictError(fmt.Sprintf("bot %s already exists", id), err)
		}
		return nil, err
	}

	if objs.Service != nil {
		if err := m.kube.CreateService(ctx, objs.Service); err != nil {
			return nil, fmt.Errorf("bot %s deployed without its service: %w", id, err)
		}
	}

	logging.Info(subsystem, "Deployed bot %s (%s %s) for %s", id, objs.Deployment.Labels[manifest.LabelLanguage],
		objs.Deployment.Labels[manifest.LabelVersion], objs.Deployment.Labels[manifest.LabelUserID])

	bot := status.Aggregate(objs.Deployment, nil, m.clock.Now())
	return &bot, nil
}

// createCode stores the code bundle. A config map left behind by an earlier
// failed deploy of the same id is overwritten; one that belongs to a live
// bot makes the deploy a conflict.
func (m *Manager) createCode(ctx context.Context, id string, objs *manifest.Manifests) error {
	err := m.kube.CreateConfigMap(ctx, objs.ConfigMap)
	if err == nil || !api.IsConflict(err) {
		return err
	}

	if _, getErr := m.kube.GetDeployment(ctx, m.namespace, id); getErr == nil {
		return api.NewConflictError(fmt.Sprintf("bot %s already exists", id), err)
	} else if !api.IsNotFound(getErr) {
		return getErr
	}

	existing, err := m.kube.GetConfigMap(ctx, m.namespace, objs.ConfigMap.Name)
	if err != nil {
		return err
	}
	logging.Info(subsystem, "Replacing orphaned code bundle %s", existing.Name)
	existing.Labels = objs.ConfigMap.Labels
	existing.Annotations = objs.ConfigMap.Annotations
	existing.Data = nil
	existing.BinaryData = objs.ConfigMap.BinaryData
	return m.kube.UpdateConfigMap(ctx, existing)
}

// Delete removes a bot. The deployment goes first; the service and the code
// config map are removed on a best-effort basis.
func (m *Manager) Delete(ctx context.Context, id, tenant string) error {
	if _, err := m.owned(ctx, id, tenant); err != nil {
		return err
	}

	if err := m.kube.DeleteDeployment(ctx, m.namespace, id); err != nil {
		if api.IsNotFound(err) {
			return api.NewBotNotFoundError(id)
		}
		return err
	}

	bestEffort(ctx, "delete service "+id, func(ctx context.Context) error {
		return m.kube.DeleteService(ctx, m.namespace, id)
	})
	bestEffort(ctx, "delete code bundle "+manifest.CodeConfigMapName(id), func(ctx context.Context) error {
		return m.kube.DeleteConfigMap(ctx, m.namespace, manifest.CodeConfigMapName(id))
	})

	logging.Info(subsystem, "Deleted bot %s", id)
	return nil
}
