package kube

import (
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"botfleet/internal/config"
)

// RESTConfig builds the client configuration. Without a kubeconfig path the
// standard loading rules apply (KUBECONFIG, ~/.kube/config), falling back to
// the in-cluster service account.
func RESTConfig(cfg config.KubernetesConfig) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		rules.ExplicitPath = cfg.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.Context}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load Kubernetes client config: %w", err)
	}

	restConfig.Timeout = cfg.RequestTimeout
	if cfg.QPS > 0 {
		restConfig.QPS = cfg.QPS
	}
	if cfg.Burst > 0 {
		restConfig.Burst = cfg.Burst
	}
	restConfig.UserAgent = "botfleet"
	return restConfig, nil
}
