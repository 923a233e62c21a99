package kube

import (
	"context"
	"fmt"
	"io"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"botfleet/pkg/logging"
)

// Client is the typed surface of the control plane that botfleet uses.
// Failures are returned as errors from botfleet/internal/api: NotFoundError,
// ConflictError or UpstreamError. List calls treat a 404 as an empty result.
type Client interface {
	EnsureNamespace(ctx context.Context, ns *corev1.Namespace) error

	GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error)
	ListDeployments(ctx context.Context, namespace string, selector map[string]string) ([]appsv1.Deployment, error)
	CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) error
	UpdateDeployment(ctx context.Context, deployment *appsv1.Deployment) error
	DeleteDeployment(ctx context.Context, namespace, name string) error

	CreateService(ctx context.Context, service *corev1.Service) error
	DeleteService(ctx context.Context, namespace, name string) error

	GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error)
	CreateConfigMap(ctx context.Context, configMap *corev1.ConfigMap) error
	UpdateConfigMap(ctx context.Context, configMap *corev1.ConfigMap) error
	DeleteConfigMap(ctx context.Context, namespace, name string) error

	ListPods(ctx context.Context, namespace string, selector map[string]string) ([]corev1.Pod, error)
	PodLogs(ctx context.Context, namespace, pod, container string, tailLines *int64) (string, error)
	Exec(ctx context.Context, namespace, pod, container string, command []string) (stdout, stderr string, err error)
	PodMetrics(ctx context.Context, namespace string, selector map[string]string) ([]metricsv1beta1.PodMetrics, error)
}

// kubernetesClient implements Client with controller-runtime for object CRUD
// and client-go for the pod subresources (logs, exec) that controller-runtime
// does not cover.
type kubernetesClient struct {
	client.Client
	core     kubernetes.Interface
	metrics  metricsclient.Interface
	executor PodExecutor
}

// NewScheme returns a scheme with the built-in Kubernetes types registered.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

// NewKubernetesClient creates a Client talking to the cluster described by config.
func NewKubernetesClient(config *rest.Config) (Client, error) {
	ctrlClient, err := client.New(config, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	core, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}

	metrics, err := metricsclient.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return NewForClients(ctrlClient, core, metrics, NewSPDYExecutor(config, core)), nil
}

// NewForClients assembles a Client from already constructed clients. Tests use
// it with the controller-runtime and client-go fakes.
func NewForClients(ctrlClient client.Client, core kubernetes.Interface, metrics metricsclient.Interface, executor PodExecutor) Client {
	return &kubernetesClient{
		Client:   ctrlClient,
		core:     core,
		metrics:  metrics,
		executor: executor,
	}
}

// EnsureNamespace creates the namespace unless it already exists.
func (k *kubernetesClient) EnsureNamespace(ctx context.Context, ns *corev1.Namespace) error {
	err := k.Create(ctx, ns)
	if err == nil {
		logging.Info("KubeClient", "Created namespace %s", ns.Name)
		return nil
	}
	if isAlreadyExists(err) {
		return nil
	}
	return translate("create namespace "+ns.Name, "namespace", ns.Name, err)
}

// GetDeployment retrieves a deployment.
func (k *kubernetesClient) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	deployment := &appsv1.Deployment{}
	if err := k.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, deployment); err != nil {
		return nil, translate(fmt.Sprintf("get deployment %s/%s", namespace, name), "deployment", name, err)
	}
	return deployment, nil
}

// ListDeployments lists deployments matching selector.
func (k *kubernetesClient) ListDeployments(ctx context.Context, namespace string, selector map[string]string) ([]appsv1.Deployment, error) {
	list := &appsv1.DeploymentList{}
	if err := k.List(ctx, list, client.InNamespace(namespace), client.MatchingLabels(selector)); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, translate("list deployments in "+namespace, "deployment", "", err)
	}
	return list.Items, nil
}

// CreateDeployment creates a deployment.
func (k *kubernetesClient) CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) error {
	logging.Debug("KubeClient", "Creating deployment %s/%s", deployment.Namespace, deployment.Name)
	if err := k.Create(ctx, deployment); err != nil {
		return translate(fmt.Sprintf("create deployment %s/%s", deployment.Namespace, deployment.Name), "deployment", deployment.Name, err)
	}
	return nil
}

// UpdateDeployment writes a deployment back. No resource version precondition
// is added beyond what the object already carries.
func (k *kubernetesClient) UpdateDeployment(ctx context.Context, deployment *appsv1.Deployment) error {
	logging.Debug("KubeClient", "Updating deployment %s/%s", deployment.Namespace, deployment.Name)
	if err := k.Update(ctx, deployment); err != nil {
		return translate(fmt.Sprintf("update deployment %s/%s", deployment.Namespace, deployment.Name), "deployment", deployment.Name, err)
	}
	return nil
}

// DeleteDeployment deletes a deployment; its pods are garbage collected in
// the background.
func (k *kubernetesClient) DeleteDeployment(ctx context.Context, namespace, name string) error {
	logging.Debug("KubeClient", "Deleting deployment %s/%s", namespace, name)
	deployment := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	if err := k.Delete(ctx, deployment, client.PropagationPolicy(metav1.DeletePropagationBackground)); err != nil {
		return translate(fmt.Sprintf("delete deployment %s/%s", namespace, name), "deployment", name, err)
	}
	return nil
}

// CreateService creates a service.
func (k *kubernetesClient) CreateService(ctx context.Context, service *corev1.Service) error {
	if err := k.Create(ctx, service); err != nil {
		return translate(fmt.Sprintf("create service %s/%s", service.Namespace, service.Name), "service", service.Name, err)
	}
	return nil
}

// DeleteService deletes a service.
func (k *kubernetesClient) DeleteService(ctx context.Context, namespace, name string) error {
	service := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	if err := k.Delete(ctx, service); err != nil {
		return translate(fmt.Sprintf("delete service %s/%s", namespace, name), "service", name, err)
	}
	return nil
}

// GetConfigMap retrieves a config map.
func (k *kubernetesClient) GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error) {
	configMap := &corev1.ConfigMap{}
	if err := k.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, configMap); err != nil {
		return nil, translate(fmt.Sprintf("get configmap %s/%s", namespace, name), "configmap", name, err)
	}
	return configMap, nil
}

// CreateConfigMap creates a config map.
func (k *kubernetesClient) CreateConfigMap(ctx context.Context, configMap *corev1.ConfigMap) error {
	if err := k.Create(ctx, configMap); err != nil {
		return translate(fmt.Sprintf("create configmap %s/%s", configMap.Namespace, configMap.Name), "configmap", configMap.Name, err)
	}
	return nil
}

// UpdateConfigMap writes a config map back.
func (k *kubernetesClient) UpdateConfigMap(ctx context.Context, configMap *corev1.ConfigMap) error {
	if err := k.Update(ctx, configMap); err != nil {
		return translate(fmt.Sprintf("update configmap %s/%s", configMap.Namespace, configMap.Name), "configmap", configMap.Name, err)
	}
	return nil
}

// DeleteConfigMap deletes a config map.
func (k *kubernetesClient) DeleteConfigMap(ctx context.Context, namespace, name string) error {
	configMap := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	if err := k.Delete(ctx, configMap); err != nil {
		return translate(fmt.Sprintf("delete configmap %s/%s", namespace, name), "configmap", name, err)
	}
	return nil
}

// ListPods lists pods matching selector.
func (k *kubernetesClient) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]corev1.Pod, error) {
	list := &corev1.PodList{}
	if err := k.List(ctx, list, client.InNamespace(namespace), client.MatchingLabels(selector)); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, translate("list pods in "+namespace, "pod", "", err)
	}
	return list.Items, nil
}

// PodLogs returns the logs of one container, limited to the last tailLines
// lines when tailLines is set.
func (k *kubernetesClient) PodLogs(ctx context.Context, namespace, pod, container string, tailLines *int64) (string, error) {
	req := k.core.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{
		Container: container,
		TailLines: tailLines,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", translate(fmt.Sprintf("get logs of pod %s/%s", namespace, pod), "pod", pod, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("failed to read logs of pod %s/%s: %w", namespace, pod, err)
	}
	return string(data), nil
}

// Exec runs command in a container and returns its captured output.
func (k *kubernetesClient) Exec(ctx context.Context, namespace, pod, container string, command []string) (string, string, error) {
	return k.executor.Exec(ctx, namespace, pod, container, command)
}

// PodMetrics returns the metrics.k8s.io snapshot of the pods matching selector.
func (k *kubernetesClient) PodMetrics(ctx context.Context, namespace string, selector map[string]string) ([]metricsv1beta1.PodMetrics, error) {
	list, err := k.metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(selector).String(),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, translate("list pod metrics in "+namespace, "pod metrics", "", err)
	}
	return list.Items, nil
}
