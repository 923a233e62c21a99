package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfleet/internal/api"
	"botfleet/internal/config"
	"botfleet/internal/kube"
	"botfleet/internal/kube/kubetest"
	"botfleet/pkg/logging"
)

// useFakeCluster points service initialization at an in-memory cluster.
func useFakeCluster(t *testing.T) *kubetest.Env {
	t.Helper()
	env := kubetest.New()
	orig := newKubeClient
	newKubeClient = func(config.KubernetesConfig) (kube.Client, error) { return env.Client, nil }
	t.Cleanup(func() { newKubeClient = orig })
	return env
}

func testConfig() *Config {
	bc := config.GetDefaultConfig()
	bc.Kubernetes.Namespace = "fleet"
	cfg := NewConfig(false, "", "1.2.3")
	cfg.Botfleet = &bc
	return cfg
}

func TestNewApplication_WiresServices(t *testing.T) {
	useFakeCluster(t)

	application, err := NewApplication(testConfig())
	require.NoError(t, err)

	s := application.Services()
	require.NotNil(t, s.Manager)
	assert.Equal(t, "fleet", s.Manager.Namespace())

	rec := httptest.NewRecorder()
	s.Server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "fleet", health.Namespace)
	assert.Equal(t, "1.2.3", health.Version)
}

func TestNewApplication_KubeClientFailure(t *testing.T) {
	orig := newKubeClient
	newKubeClient = func(config.KubernetesConfig) (kube.Client, error) { return nil, errors.New("no kubeconfig") }
	t.Cleanup(func() { newKubeClient = orig })

	_, err := NewApplication(testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kubeconfig")
}

func TestNewApplication_InvalidLogLevel(t *testing.T) {
	useFakeCluster(t)
	cfg := testConfig()
	cfg.Botfleet.Logging.Level = "loud"

	_, err := NewApplication(cfg)
	assert.ErrorContains(t, err, "logging.level")
}

func TestApplyConfig_SwapsCatalog(t *testing.T) {
	useFakeCluster(t)
	application, err := NewApplication(testConfig())
	require.NoError(t, err)
	s := application.Services()

	_, _, err = s.Builder.Catalog().Resolve("elixir", "")
	require.Error(t, err)

	next := config.GetDefaultConfig()
	next.Languages["elixir"] = config.LanguageConfig{
		DefaultVersion: "1.17",
		Images:         map[string]string{"1.17": "elixir:1.17-slim"},
	}
	s.ApplyConfig(next, false)

	version, image, err := s.Builder.Catalog().Resolve("elixir", "")
	require.NoError(t, err)
	assert.Equal(t, "elixir:1.17-slim", image)
	assert.Equal(t, "1.17", version)
}

func TestLoggingOptions(t *testing.T) {
	opts, err := loggingOptions(config.LoggingConfig{Level: "warn", Format: "json", File: "/tmp/botfleet.log", MaxSizeMB: 10}, false)
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, opts.Level)
	assert.Equal(t, logging.FormatJSON, opts.Format)
	assert.Equal(t, "/tmp/botfleet.log", opts.File)
	assert.Equal(t, 10, opts.MaxSizeMB)

	opts, err = loggingOptions(config.LoggingConfig{Level: "error"}, true)
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, opts.Level, "debug flag wins over the file")
	assert.Equal(t, logging.FormatText, opts.Format)
}
