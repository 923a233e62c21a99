package lifecycle

import (
	"context"
	"sort"

	"golang.org/x/sync/singleflight"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/clock"

	"botfleet/internal/api"
	"botfleet/internal/kube"
	"botfleet/internal/manifest"
	"botfleet/internal/status"
	"botfleet/pkg/logging"
)

const subsystem = "Lifecycle"

var _ api.BotManagerHandler = (*Manager)(nil)

// Manager runs the multi-object lifecycle operations of bots. It holds no
// per-bot state: every call reads what it needs from the control plane.
//
// Operations take a tenant id. The empty tenant is the administrative caller
// and skips the ownership check; any other tenant must match the user-id
// label of the bot, otherwise an api.OwnershipError is returned.
type Manager struct {
	kube           kube.Client
	builder        *manifest.Builder
	namespace      string
	managedBy      string
	maxBundleBytes int
	clock          clock.PassiveClock

	// namespaceOnce collapses concurrent namespace checks of parallel deploys.
	namespaceOnce singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for uptime and restart stamps.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithMaxBundleBytes sets the code bundle size limit. Zero disables the check.
func WithMaxBundleBytes(n int) Option {
	return func(m *Manager) { m.maxBundleBytes = n }
}

// NewManager creates a Manager on top of a control-plane client and a
// manifest builder.
func NewManager(k kube.Client, b *manifest.Builder, opts ...Option) *Manager {
	m := &Manager{
		kube:      k,
		builder:   b,
		namespace: b.Options().Namespace,
		managedBy: b.Options().ManagedBy,
		clock:     clock.RealClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns the namespace holding the bots.
func (m *Manager) Namespace() string {
	return m.namespace
}

// Get returns the current view of one bot.
func (m *Manager) Get(ctx context.Context, id, tenant string) (*api.Bot, error) {
	d, err := m.owned(ctx, id, tenant)
	if err != nil {
		return nil, err
	}
	return m.view(ctx, d)
}

// List returns the bots of a tenant, or all bots for the empty tenant, sorted by id.
func (m *Manager) List(ctx context.Context, tenant string) ([]api.Bot, error) {
	selector := map[string]string{manifest.LabelManagedBy: m.managedBy}
	if tenant != "" {
		selector[manifest.LabelUserID] = tenant
	}

	deployments, err := m.kube.ListDeployments(ctx, m.namespace, selector)
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return []api.Bot{}, nil
	}

	pods, err := m.kube.ListPods(ctx, m.namespace, selector)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	bots := make([]api.Bot, 0, len(deployments))
	for i := range deployments {
		bots = append(bots, status.Aggregate(&deployments[i], pods, now))
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return bots, nil
}

// owned reads a bot's deployment and enforces ownership. Deployments not
// carrying this installation's managed-by label are reported as absent.
func (m *Manager) owned(ctx context.Context, id, tenant string) (*appsv1.Deployment, error) {
	d, err := m.kube.GetDeployment(ctx, m.namespace, id)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewBotNotFoundError(id)
		}
		return nil, err
	}
	if d.Labels[manifest.LabelManagedBy] != m.managedBy {
		return nil, api.NewBotNotFoundError(id)
	}
	if tenant != "" && d.Labels[manifest.LabelUserID] != tenant {
		logging.Warn(subsystem, "Tenant %s denied access to bot %s", tenant, id)
		return nil, api.NewOwnershipError(id, tenant)
	}
	return d, nil
}

// view aggregates a deployment with its current pods.
func (m *Manager) view(ctx context.Context, d *appsv1.Deployment) (*api.Bot, error) {
	pods, err := m.pods(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	bot := status.Aggregate(d, pods, m.clock.Now())
	return &bot, nil
}

func (m *Manager) pods(ctx context.Context, id string) ([]corev1.Pod, error) {
	return m.kube.ListPods(ctx, m.namespace, manifest.SelectorLabels(id))
}

// ensureNamespace creates the bot namespace unless it exists.
func (m *Manager) ensureNamespace(ctx context.Context) error {
	_, err, _ := m.namespaceOnce.Do(m.namespace, func() (interface{}, error) {
		return nil, m.kube.EnsureNamespace(ctx, m.builder.Namespace())
	})
	return err
}

// bestEffort runs a cleanup step whose failure must not fail the caller.
// Not-found is expected and silent; anything else is logged.
func bestEffort(ctx context.Context, what string, fn func(context.Context) error) {
	err := fn(ctx)
	if err == nil || api.IsNotFound(err) {
		return
	}
	logging.Warn(subsystem, "Ignoring failure to %s: %v", what, err)
}
