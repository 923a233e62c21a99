package app

import (
	"fmt"

	"botfleet/internal/config"
	"botfleet/internal/kube"
	"botfleet/internal/lifecycle"
	"botfleet/internal/manifest"
	"botfleet/internal/server"
	"botfleet/pkg/logging"
)

// Services holds the components wired together at startup.
//
// Service Dependencies:
//  1. Kube: the control-plane client
//  2. Builder: renders manifests from the language catalog
//  3. Manager: the lifecycle operations on top of Kube and Builder
//  4. Server: the HTTP surface of Manager
type Services struct {
	Kube    kube.Client
	Builder *manifest.Builder
	Manager *lifecycle.Manager
	Server  *server.Server
}

// newKubeClient connects to the control plane. Tests replace it.
var newKubeClient = func(cfg config.KubernetesConfig) (kube.Client, error) {
	restConfig, err := kube.RESTConfig(cfg)
	if err != nil {
		return nil, err
	}
	return kube.NewKubernetesClient(restConfig)
}

// InitializeServices creates the control-plane client and everything that
// depends on it.
func InitializeServices(cfg *Config) (*Services, error) {
	bc := cfg.Botfleet

	k, err := newKubeClient(bc.Kubernetes)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	builder := manifest.NewBuilder(manifest.OptionsFromConfig(*bc), manifest.NewCatalog(bc.Languages))
	manager := lifecycle.NewManager(k, builder, lifecycle.WithMaxBundleBytes(bc.Bots.MaxBundleBytes))

	srv := server.New(manager, server.Options{
		AdminToken: bc.Server.AdminToken,
		Namespace:  manager.Namespace(),
		Version:    cfg.Version,
	})

	logging.Info("Services", "Managing bots in namespace %s with languages %v", manager.Namespace(), builder.Catalog().Languages())

	return &Services{
		Kube:    k,
		Builder: builder,
		Manager: manager,
		Server:  srv,
	}, nil
}

// ApplyConfig hot-reloads the settings that can change at runtime: the
// language catalog and the log level.
func (s *Services) ApplyConfig(cfg config.BotfleetConfig, debug bool) {
	s.Builder.SetCatalog(manifest.NewCatalog(cfg.Languages))

	if !debug {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			logging.SetLevel(level)
		}
	}

	logging.Info("Services", "Applied configuration change, languages: %v", s.Builder.Catalog().Languages())
}
