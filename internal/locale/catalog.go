// Package locale implements the VM's locale surface: a tag selects the
// language of diagnostic messages; the VM never decodes or displays
// strings itself, it only formats parameterized templates supplied by
// the host.
package locale

import (
	"embed"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embedded embed.FS

// Catalog is a locale tag's flat map of fault-kind key -> message
// template.
type Catalog struct {
	Tag       string
	templates map[string]*template.Template
}

// Load reads the catalog for tag from the embedded YAML files, falling
// back to "en" when tag is empty or unknown.
func Load(tag string) (*Catalog, error) {
	if tag == "" {
		tag = "en"
	}
	data, err := embedded.ReadFile("catalogs/" + tag + ".yaml")
	if err != nil {
		data, err = embedded.ReadFile("catalogs/en.yaml")
		if err != nil {
			return nil, err
		}
		tag = "en"
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cat := &Catalog{Tag: tag, templates: make(map[string]*template.Template, len(raw))}
	for key, tmplText := range raw {
		t, err := template.New(key).Parse(tmplText)
		if err != nil {
			continue
		}
		cat.templates[key] = t
	}
	return cat, nil
}

// Format renders the template registered under key with params, falling
// back to a bare "key: Message" rendering if key is not in the catalog.
func (c *Catalog) Format(key string, params map[string]string) string {
	if c == nil {
		return fallback(key, params)
	}
	t, ok := c.templates[key]
	if !ok {
		return fallback(key, params)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, params); err != nil {
		return fallback(key, params)
	}
	return sb.String()
}

func fallback(key string, params map[string]string) string {
	var sb strings.Builder
	sb.WriteString(key)
	if msg, ok := params["Message"]; ok {
		sb.WriteString(": ")
		sb.WriteString(msg)
	}
	return sb.String()
}
