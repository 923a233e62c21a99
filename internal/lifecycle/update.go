package lifecycle

import (
	"context"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/equality"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
	"botfleet/pkg/logging"
)

// Update applies the supplied changes to a bot. Unchanged input returns the
// current view without writing anything. A change of code, start command or
// environment stamps the restart annotation so that pods are replaced.
//
// The deployment is written back with the resource version it was read at,
// so a concurrent writer makes this call fail with a conflict instead of
// being silently overwritten.
func (m *Manager) Update(ctx context.Context, id string, changes api.BotChanges, tenant string) (*api.Bot, error) {
	if err := m.validateChanges(changes); err != nil {
		return nil, err
	}

	current, err := m.owned(ctx, id, tenant)
	if err != nil {
		if api.IsNotFound(err) && len(changes.Code) > 0 {
			return nil, api.NewRedeployRequiredError(id, err)
		}
		return nil, err
	}

	desired := current.DeepCopy()
	restart, err := m.apply(desired, changes)
	if err != nil {
		return nil, err
	}

	if len(changes.Code) > 0 {
		if err := m.syncCode(ctx, desired, changes.Code); err != nil {
			return nil, err
		}
	}

	if unchanged(current, desired) {
		logging.Debug(subsystem, "Update of bot %s changes nothing", id)
		return m.view(ctx, current)
	}

	if restart {
		desired.Spec.Template.Annotations[manifest.AnnotationRestartedAt] = m.clock.Now().UTC().Format(time.RFC3339)
	}

	if err := m.kube.UpdateDeployment(ctx, desired); err != nil {
		if api.IsNotFound(err) {
			if len(changes.Code) > 0 {
				return nil, api.NewRedeployRequiredError(id, err)
			}
			return nil, api.NewBotNotFoundError(id)
		}
		return nil, err
	}

	logging.Info(subsystem, "Updated bot %s (restart: %t)", id, restart)
	return m.view(ctx, desired)
}

// apply mutates d according to changes and reports whether the change needs
// the pods to be replaced.
func (m *Manager) apply(d *appsv1.Deployment, changes api.BotChanges) (bool, error) {
	tmpl := &d.Spec.Template
	if len(tmpl.Spec.Containers) == 0 {
		return false, api.NewConflictError("deployment for bot "+d.Name+" has no container; redeploy required", nil)
	}
	if tmpl.Annotations == nil {
		tmpl.Annotations = map[string]string{}
	}
	if d.Annotations == nil {
		d.Annotations = map[string]string{}
	}
	container := &tmpl.Spec.Containers[0]

	language := d.Labels[manifest.LabelLanguage]
	version := d.Labels[manifest.LabelVersion]
	runtimeChanged := false
	if changes.Language != nil && *changes.Language != language {
		language = *changes.Language
		if changes.Version == nil {
			version = ""
		}
		runtimeChanged = true
	}
	if changes.Version != nil && *changes.Version != version {
		version = *changes.Version
		runtimeChanged = true
	}

	if runtimeChanged {
		resolvedVersion, image, err := m.builder.Catalog().Resolve(language, version)
		if err != nil {
			return false, err
		}
		version = resolvedVersion
		setLabel(d, manifest.LabelLanguage, language)
		setLabel(d, manifest.LabelVersion, version)
		if changes.Image == nil {
			container.Image = image
		}
	}
	if changes.Image != nil {
		container.Image = *changes.Image
	}

	if changes.WorkflowID != nil {
		setLabel(d, manifest.LabelWorkflowID, *changes.WorkflowID)
	}

	restart := false

	if len(changes.Code) > 0 && tmpl.Annotations[manifest.AnnotationCodeChecksum] != manifest.Checksum(changes.Code) {
		m.builder.AttachCode(tmpl, d.Name, changes.Code)
		restart = true
	}

	if changes.Env != nil {
		env := m.builder.ContainerEnv(*changes.Env, manifest.HasCode(*tmpl))
		if !equality.Semantic.DeepEqual(container.Env, env) {
			container.Env = env
			restart = true
		}
	}

	startCommand := d.Annotations[manifest.AnnotationStartCommand]
	if changes.StartCommand != nil {
		startCommand = *changes.StartCommand
	}
	if changes.StartCommand != nil || runtimeChanged {
		command, err := m.builder.Command(language, version, startCommand)
		if err != nil {
			return false, err
		}
		if startCommand == "" {
			delete(d.Annotations, manifest.AnnotationStartCommand)
		} else {
			d.Annotations[manifest.AnnotationStartCommand] = startCommand
		}
		if !equality.Semantic.DeepEqual(container.Command, command) {
			container.Command = command
			restart = true
		}
	}

	return restart, nil
}

// syncCode writes the new bundle to the code config map, recreating it when
// it was removed out of band.
func (m *Manager) syncCode(ctx context.Context, d *appsv1.Deployment, code []byte) error {
	want := m.builder.CodeConfigMap(d.Name, d.Labels, code)

	existing, err := m.kube.GetConfigMap(ctx, m.namespace, want.Name)
	if api.IsNotFound(err) {
		logging.Info(subsystem, "Recreating missing code bundle %s", want.Name)
		return m.kube.CreateConfigMap(ctx, want)
	}
	if err != nil {
		return err
	}

	if existing.Annotations[manifest.AnnotationCodeChecksum] == want.Annotations[manifest.AnnotationCodeChecksum] {
		return nil
	}
	existing.Labels = want.Labels
	existing.Annotations = want.Annotations
	existing.Data = nil
	existing.BinaryData = want.BinaryData
	return m.kube.UpdateConfigMap(ctx, existing)
}

// setLabel sets or, for an empty value, removes a label on the deployment and
// its pod template.
func setLabel(d *appsv1.Deployment, key, value string) {
	for _, labels := range []*map[string]string{&d.Labels, &d.Spec.Template.Labels} {
		if value == "" {
			delete(*labels, key)
			continue
		}
		if *labels == nil {
			*labels = map[string]string{}
		}
		(*labels)[key] = value
	}
}

func unchanged(before, after *appsv1.Deployment) bool {
	return equality.Semantic.DeepEqual(before.Labels, after.Labels) &&
		equality.Semantic.DeepEqual(before.Annotations, after.Annotations) &&
		equality.Semantic.DeepEqual(before.Spec, after.Spec)
}
