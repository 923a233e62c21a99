package manifest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"botfleet/internal/api"
	"botfleet/internal/config"
)

// Catalog is the closed table of supported languages and versions. It maps a
// (language, version) pair to a container image and a dependency install
// snippet. A Catalog is immutable once built.
type Catalog struct {
	languages map[string]config.LanguageConfig
}

// NewCatalog builds a catalog from configured languages.
func NewCatalog(languages map[string]config.LanguageConfig) *Catalog {
	copied := make(map[string]config.LanguageConfig, len(languages))
	for name, lang := range languages {
		images := make(map[string]string, len(lang.Images))
		for v, img := range lang.Images {
			images[v] = img
		}
		lang.Images = images
		copied[strings.ToLower(name)] = lang
	}
	return &Catalog{languages: copied}
}

// Languages returns the supported language names, sorted.
func (c *Catalog) Languages() []string {
	names := make([]string, 0, len(c.languages))
	for name := range c.languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the effective version and image for a language. An empty
// version selects the language default.
func (c *Catalog) Resolve(language, version string) (string, string, error) {
	lang, ok := c.languages[strings.ToLower(language)]
	if !ok {
		return "", "", api.NewValidationError("language",
			fmt.Sprintf("unsupported language %q (supported: %s)", language, strings.Join(c.Languages(), ", ")))
	}
	if version == "" {
		version = lang.DefaultVersion
	}
	image, ok := lang.Images[version]
	if !ok {
		return "", "", api.NewValidationError("version",
			fmt.Sprintf("unsupported %s version %q", language, version))
	}
	return version, image, nil
}

type installData struct {
	Language string
	Version  string
	WorkDir  string
}

// InstallSnippet renders the dependency install step of a language.
func (c *Catalog) InstallSnippet(language, version, workDir string) (string, error) {
	lang, ok := c.languages[strings.ToLower(language)]
	if !ok || lang.Install == "" {
		return "", nil
	}
	return renderTemplate("install-"+language, lang.Install, installData{
		Language: language,
		Version:  version,
		WorkDir:  workDir,
	})
}

func renderTemplate(name, text string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}
