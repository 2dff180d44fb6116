package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
)

// Standard labels applied to every ConfigMap.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelManagedBy = "app.kubernetes.io/managed-by"

	managedBy = "vectorconf"
)

// ConfigMap is the subset of a v1 ConfigMap the composer emits.
type ConfigMap struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   Metadata          `yaml:"metadata"`
	Data       map[string]string `yaml:"data"`
}

// Metadata is the object metadata of a ConfigMap.
type Metadata struct {
	Name      string            `yaml:"name"`
	Namespace string            `yaml:"namespace,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// New builds the ConfigMap embedding doc under out.Key.
func New(out config.ConfigMapOutput, doc []byte) (*ConfigMap, error) {
	if out.Name == "" {
		return nil, errors.New("manifest: configmap name is required")
	}
	key := out.Key
	if key == "" {
		key = config.DefaultConfigMapKey
	}

	labels := map[string]string{
		LabelName:      "vector",
		LabelManagedBy: managedBy,
	}
	for k, v := range out.Labels {
		labels[k] = v
	}

	return &ConfigMap{
		APIVersion: "v1",
		Kind:       "ConfigMap",
		Metadata: Metadata{
			Name:      out.Name,
			Namespace: out.Namespace,
			Labels:    labels,
		},
		Data: map[string]string{key: string(doc)},
	}, nil
}

// Render builds the ConfigMap for doc and encodes it as YAML.
func Render(out config.ConfigMapOutput, doc []byte) ([]byte, error) {
	cm, err := New(out, doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cm); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return buf.Bytes(), nil
}
