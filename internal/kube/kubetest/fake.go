// Package kubetest provides an in-memory kube.Client for tests, assembled from
// the controller-runtime and client-go fakes.
package kubetest

import (
	"context"
	"sync"

	"k8s.io/apimachinery/pkg/runtime/schema"
	corefake "k8s.io/client-go/kubernetes/fake"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"botfleet/internal/kube"
)

// podMetricsResource is registered explicitly: the object tracker would
// otherwise guess "podmetricses" while the typed fake reads "pods".
var podMetricsResource = schema.GroupVersionResource{Group: "metrics.k8s.io", Version: "v1beta1", Resource: "pods"}

// Env bundles a kube.Client with the fakes behind it.
type Env struct {
	Client   kube.Client
	Ctrl     client.WithWatch
	Core     *corefake.Clientset
	Metrics  *metricsfake.Clientset
	Executor *Executor
}

// Option customizes the fake controller-runtime client.
type Option func(*fake.ClientBuilder)

// WithObjects seeds the fake with objects.
func WithObjects(objs ...client.Object) Option {
	return func(b *fake.ClientBuilder) { b.WithObjects(objs...) }
}

// WithInterceptor installs interceptor funcs, e.g. to inject failures.
func WithInterceptor(funcs interceptor.Funcs) Option {
	return func(b *fake.ClientBuilder) { b.WithInterceptorFuncs(funcs) }
}

// New creates an Env.
func New(opts ...Option) *Env {
	builder := fake.NewClientBuilder().WithScheme(kube.NewScheme())
	for _, opt := range opts {
		opt(builder)
	}
	ctrl := builder.Build()
	core := corefake.NewSimpleClientset()
	metrics := metricsfake.NewSimpleClientset()
	executor := &Executor{}

	return &Env{
		Client:   kube.NewForClients(ctrl, core, metrics, executor),
		Ctrl:     ctrl,
		Core:     core,
		Metrics:  metrics,
		Executor: executor,
	}
}

// AddPodMetrics stores pod metrics so PodMetrics can list them.
func (e *Env) AddPodMetrics(m *metricsv1beta1.PodMetrics) error {
	return e.Metrics.Tracker().Create(podMetricsResource, m, m.Namespace)
}

// ExecCall records one Exec invocation.
type ExecCall struct {
	Namespace string
	Pod       string
	Container string
	Command   []string
}

// Executor is a scripted kube.PodExecutor.
type Executor struct {
	mu     sync.Mutex
	Calls  []ExecCall
	Stdout string
	Stderr string
	Err    error
}

// Exec records the call and returns the scripted result.
func (x *Executor) Exec(_ context.Context, namespace, pod, container string, command []string) (string, string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Calls = append(x.Calls, ExecCall{Namespace: namespace, Pod: pod, Container: container, Command: command})
	return x.Stdout, x.Stderr, x.Err
}
