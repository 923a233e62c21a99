package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"botfleet/internal/api"
	"botfleet/internal/config"
)

// Container, volume and env names used in every bot pod.
const (
	ContainerName     = "bot"
	InitContainerName = "unpack"
	WorkspaceVolume   = "workspace"
	CodeVolume        = "code"
	WorkDirEnv        = "WORKDIR"

	bundleMountPath = "/bundle"
	unpackMountPath = "/work"
	zipBundleKey    = "code.zip"
	tarBundleKey    = "code.tar.gz"
)

// idleScript keeps a bot without a start command alive and stops promptly on
// SIGTERM.
const idleScript = `trap 'exit 0' TERM INT; while true; do sleep 3600 & wait $!; done`

// unpackScript extracts the bundle into the workspace. When the archive holds
// a single top-level directory its contents are moved up one level, so
// "file.txt" and "project/file.txt" archives end up in the same place.
const unpackScript = `set -e
if [ -f ` + bundleMountPath + `/` + zipBundleKey + ` ]; then
  unzip -q -o ` + bundleMountPath + `/` + zipBundleKey + ` -d ` + unpackMountPath + `
else
  tar -xzf ` + bundleMountPath + `/` + tarBundleKey + ` -C ` + unpackMountPath + `
fi
entries=$(ls -A ` + unpackMountPath + `)
if [ "$(ls -A ` + unpackMountPath + ` | wc -l)" -eq 1 ] && [ -d "` + unpackMountPath + `/$entries" ]; then
  mv "` + unpackMountPath + `/$entries" ` + unpackMountPath + `/.unpack-top
  find ` + unpackMountPath + `/.unpack-top -mindepth 1 -maxdepth 1 -exec mv {} ` + unpackMountPath + `/ \;
  rmdir ` + unpackMountPath + `/.unpack-top
fi`

const startTemplate = `set -e
mkdir -p {{ .WorkDir | squote }}
cd {{ .WorkDir | squote }}
{{- with .Install | trim }}
{{ . }}
{{- end }}
{{ .Command | trim }}`

// Options are the cluster-wide settings applied to every manifest.
type Options struct {
	Namespace   string
	ManagedBy   string
	UnpackImage string
	WorkDir     string
	Resources   corev1.ResourceRequirements
}

// OptionsFromConfig converts the loaded configuration into builder options.
// Quantities are expected to be validated already; unparsable ones are skipped.
func OptionsFromConfig(cfg config.BotfleetConfig) Options {
	requests := corev1.ResourceList{}
	limits := corev1.ResourceList{}
	add := func(list corev1.ResourceList, name corev1.ResourceName, value string) {
		if value == "" {
			return
		}
		if q, err := resource.ParseQuantity(value); err == nil {
			list[name] = q
		}
	}
	add(requests, corev1.ResourceCPU, cfg.Bots.CPURequest)
	add(requests, corev1.ResourceMemory, cfg.Bots.MemoryRequest)
	add(limits, corev1.ResourceCPU, cfg.Bots.CPULimit)
	add(limits, corev1.ResourceMemory, cfg.Bots.MemoryLimit)

	var res corev1.ResourceRequirements
	if len(requests) > 0 {
		res.Requests = requests
	}
	if len(limits) > 0 {
		res.Limits = limits
	}

	return Options{
		Namespace:   cfg.Kubernetes.Namespace,
		ManagedBy:   cfg.Bots.ManagedBy,
		UnpackImage: cfg.Bots.UnpackImage,
		WorkDir:     cfg.Bots.WorkDir,
		Resources:   res,
	}
}

// Manifests is the set of objects that make up one bot.
type Manifests struct {
	Deployment *appsv1.Deployment
	Service    *corev1.Service
	ConfigMap  *corev1.ConfigMap
}

// Builder turns bot configurations into orchestration objects. Building does no
// I/O and the same input always yields the same objects.
type Builder struct {
	opts    Options
	catalog atomic.Pointer[Catalog]
}

// NewBuilder creates a builder.
func NewBuilder(opts Options, catalog *Catalog) *Builder {
	b := &Builder{opts: opts}
	b.catalog.Store(catalog)
	return b
}

// Catalog returns the language catalog currently in use.
func (b *Builder) Catalog() *Catalog {
	return b.catalog.Load()
}

// SetCatalog swaps the language catalog, e.g. after a config reload.
func (b *Builder) SetCatalog(c *Catalog) {
	b.catalog.Store(c)
}

// Options returns the builder's cluster-wide settings.
func (b *Builder) Options() Options {
	return b.opts
}

// Build produces the deployment, and the service and code config map when the
// configuration asks for them.
func (b *Builder) Build(cfg api.BotConfig) (*Manifests, error) {
	id := Slugify(cfg.Name)

	if cfg.Image == "" {
		version, image, err := b.Catalog().Resolve(cfg.Language, cfg.Version)
		if err != nil {
			return nil, err
		}
		cfg.Version, cfg.Image = version, image
	}

	command, err := b.Command(cfg.Language, cfg.Version, cfg.StartCommand)
	if err != nil {
		return nil, err
	}

	labels := Labels(id, cfg, b.opts.ManagedBy)

	container := corev1.Container{
		Name:      ContainerName,
		Image:     cfg.Image,
		Command:   command,
		Env:       b.ContainerEnv(cfg.Env, false),
		Resources: *b.opts.Resources.DeepCopy(),
	}
	if cfg.Port != nil {
		container.Ports = []corev1.ContainerPort{{
			Name:          "http",
			ContainerPort: *cfg.Port,
			Protocol:      corev1.ProtocolTCP,
		}}
	}

	annotations := map[string]string{AnnotationName: cfg.Name}
	if cfg.StartCommand != "" {
		annotations[AnnotationStartCommand] = cfg.StartCommand
	}

	deployment := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        id,
			Namespace:   b.opts.Namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{MatchLabels: SelectorLabels(id)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: copyMap(labels)},
				Spec: corev1.PodSpec{
					Containers:    []corev1.Container{container},
					RestartPolicy: corev1.RestartPolicyAlways,
				},
			},
		},
	}

	m := &Manifests{Deployment: deployment}

	if len(cfg.Code) > 0 {
		m.ConfigMap = b.CodeConfigMap(id, labels, cfg.Code)
		b.AttachCode(&deployment.Spec.Template, id, cfg.Code)
	}
	if cfg.Port != nil {
		m.Service = b.Service(id, labels, *cfg.Port)
	}
	return m, nil
}

// Command resolves the container command. A start command is wrapped so that
// dependencies are installed first inside the work directory; without one the
// container idles.
func (b *Builder) Command(language, version, startCommand string) ([]string, error) {
	if strings.TrimSpace(startCommand) == "" {
		return []string{"sh", "-c", idleScript}, nil
	}
	install, err := b.Catalog().InstallSnippet(language, version, b.opts.WorkDir)
	if err != nil {
		return nil, err
	}
	script, err := renderTemplate("start", startTemplate, map[string]string{
		"WorkDir": b.opts.WorkDir,
		"Install": install,
		"Command": startCommand,
	})
	if err != nil {
		return nil, err
	}
	return []string{"sh", "-c", script}, nil
}

// ContainerEnv converts user entries and appends the system entries.
func (b *Builder) ContainerEnv(env []api.EnvVar, hasCode bool) []corev1.EnvVar {
	var out []corev1.EnvVar
	for _, e := range env {
		if e.Name == WorkDirEnv && hasCode {
			continue
		}
		out = append(out, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}
	if hasCode {
		out = append(out, corev1.EnvVar{Name: WorkDirEnv, Value: b.opts.WorkDir})
	}
	return out
}

// CodeConfigMap builds the object that carries a code bundle.
func (b *Builder) CodeConfigMap(id string, labels map[string]string, code []byte) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        CodeConfigMapName(id),
			Namespace:   b.opts.Namespace,
			Labels:      copyMap(labels),
			Annotations: map[string]string{AnnotationCodeChecksum: Checksum(code)},
		},
		BinaryData: map[string][]byte{BundleKey(code): code},
	}
}

// AttachCode wires the code bundle into a pod template: the workspace and code
// volumes, the unpack init container, the workspace mount, WORKDIR, and the
// bundle checksum annotation. Calling it again replaces earlier wiring.
func (b *Builder) AttachCode(tmpl *corev1.PodTemplateSpec, id string, code []byte) {
	spec := &tmpl.Spec

	spec.Volumes = upsertVolume(spec.Volumes, corev1.Volume{
		Name:         WorkspaceVolume,
		VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
	})
	spec.Volumes = upsertVolume(spec.Volumes, corev1.Volume{
		Name: CodeVolume,
		VolumeSource: corev1.VolumeSource{ConfigMap: &corev1.ConfigMapVolumeSource{
			LocalObjectReference: corev1.LocalObjectReference{Name: CodeConfigMapName(id)},
		}},
	})

	unpack := corev1.Container{
		Name:    InitContainerName,
		Image:   b.opts.UnpackImage,
		Command: []string{"sh", "-c", unpackScript},
		VolumeMounts: []corev1.VolumeMount{
			{Name: CodeVolume, MountPath: bundleMountPath, ReadOnly: true},
			{Name: WorkspaceVolume, MountPath: unpackMountPath},
		},
	}
	replaced := false
	for i := range spec.InitContainers {
		if spec.InitContainers[i].Name == InitContainerName {
			spec.InitContainers[i] = unpack
			replaced = true
		}
	}
	if !replaced {
		spec.InitContainers = append(spec.InitContainers, unpack)
	}

	if len(spec.Containers) > 0 {
		c := &spec.Containers[0]
		c.WorkingDir = b.opts.WorkDir
		c.VolumeMounts = upsertMount(c.VolumeMounts, corev1.VolumeMount{Name: WorkspaceVolume, MountPath: b.opts.WorkDir})
		c.Env = upsertEnv(c.Env, corev1.EnvVar{Name: WorkDirEnv, Value: b.opts.WorkDir})
	}

	if tmpl.Annotations == nil {
		tmpl.Annotations = map[string]string{}
	}
	tmpl.Annotations[AnnotationCodeChecksum] = Checksum(code)
}

// HasCode reports whether a pod template mounts a code bundle.
func HasCode(tmpl corev1.PodTemplateSpec) bool {
	for _, v := range tmpl.Spec.Volumes {
		if v.Name == CodeVolume {
			return true
		}
	}
	return false
}

// Service builds the service exposing a bot's port.
func (b *Builder) Service(id string, labels map[string]string, port int32) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id,
			Namespace: b.opts.Namespace,
			Labels:    copyMap(labels),
		},
		Spec: corev1.ServiceSpec{
			Selector: SelectorLabels(id),
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       port,
				TargetPort: intstr.FromInt32(port),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

// Namespace builds the namespace that holds all bots.
func (b *Builder) Namespace() *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   b.opts.Namespace,
			Labels: map[string]string{LabelManagedBy: b.opts.ManagedBy},
		},
	}
}

// Checksum returns the hex SHA-256 of a code bundle.
func Checksum(code []byte) string {
	sum := sha256.Sum256(code)
	return hex.EncodeToString(sum[:])
}

// BundleKey picks the config map key from the archive format; zip archives
// are recognised by their magic number, anything else is treated as tar.gz.
func BundleKey(code []byte) string {
	if len(code) >= 4 && string(code[:4]) == "PK\x03\x04" {
		return zipBundleKey
	}
	return tarBundleKey
}

// ValidateBundle checks a code bundle against the configured size limit.
func ValidateBundle(code []byte, maxBytes int) error {
	if maxBytes > 0 && len(code) > maxBytes {
		return api.NewValidationError("code", fmt.Sprintf("bundle is %d bytes, limit is %d", len(code), maxBytes))
	}
	return nil
}

func upsertVolume(volumes []corev1.Volume, v corev1.Volume) []corev1.Volume {
	for i := range volumes {
		if volumes[i].Name == v.Name {
			volumes[i] = v
			return volumes
		}
	}
	return append(volumes, v)
}

func upsertMount(mounts []corev1.VolumeMount, m corev1.VolumeMount) []corev1.VolumeMount {
	for i := range mounts {
		if mounts[i].Name == m.Name {
			mounts[i] = m
			return mounts
		}
	}
	return append(mounts, m)
}

func upsertEnv(env []corev1.EnvVar, e corev1.EnvVar) []corev1.EnvVar {
	for i := range env {
		if env[i].Name == e.Name {
			env[i] = e
			return env
		}
	}
	return append(env, e)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
