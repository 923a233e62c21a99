package manifest

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Render writes the manifests as a multi-document YAML stream in apply order:
// config map, deployment, service.
func Render(m *Manifests) ([]byte, error) {
	var objects []interface{}
	if m.ConfigMap != nil {
		objects = append(objects, m.ConfigMap)
	}
	if m.Deployment != nil {
		objects = append(objects, m.Deployment)
	}
	if m.Service != nil {
		objects = append(objects, m.Service)
	}

	var buf bytes.Buffer
	for i, obj := range objects {
		data, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal manifest: %w", err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
