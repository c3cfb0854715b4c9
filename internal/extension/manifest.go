package extension

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

// ManifestFile is the manifest file name inside the extension home.
const ManifestFile = "extensions.yaml"

// Entry is one installed extension as recorded in the manifest. Fields the
// validator checks are kept untyped so that a wrongly typed value can be
// reported rather than rejected while decoding.
type Entry struct {
	Kind schema.Kind `yaml:"-" json:"kind"`
	Name string      `yaml:"-" json:"name"`

	PlatformNames  any    `yaml:"platformNames" json:"platformNames,omitempty"`
	AutomationName any    `yaml:"automationName" json:"automationName,omitempty"`
	Schema         any    `yaml:"schema" json:"schema,omitempty"`
	InstallSpec    string `yaml:"installSpec" json:"installSpec"`
	PkgName        string `yaml:"pkgName" json:"pkgName"`
	Version        string `yaml:"version" json:"version,omitempty"`
}

// Manifest lists installed extensions in document order.
type Manifest struct {
	Path    string
	Drivers []Entry
	Plugins []Entry
}

// Entries returns the drivers followed by the plugins.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, len(m.Drivers)+len(m.Plugins))
	out = append(out, m.Drivers...)
	return append(out, m.Plugins...)
}

type manifestFile struct {
	Drivers yaml.Node `yaml:"drivers"`
	Plugins yaml.Node `yaml:"plugins"`
}

// ReadManifest reads an extension manifest. Relative install specs are
// resolved against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrManifestInvalid.WithDetails(path).WithCause(err)
	}
	var raw manifestFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.ErrManifestInvalid.WithDetails(path).WithCause(err)
	}

	m := &Manifest{Path: path}
	base := filepath.Dir(path)
	if m.Drivers, err = decodeEntries(&raw.Drivers, schema.KindDriver, base); err != nil {
		return nil, domain.ErrManifestInvalid.WithDetails(path).WithCause(err)
	}
	if m.Plugins, err = decodeEntries(&raw.Plugins, schema.KindPlugin, base); err != nil {
		return nil, domain.ErrManifestInvalid.WithDetails(path).WithCause(err)
	}
	return m, nil
}

// decodeEntries walks a name -> entry mapping in document order.
func decodeEntries(node *yaml.Node, kind schema.Kind, base string) ([]Entry, error) {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %ss must be a mapping of name to entry", node.Line, kind)
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var e Entry
		if err := node.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, node.Content[i].Value, err)
		}
		e.Kind = kind
		e.Name = node.Content[i].Value
		if e.InstallSpec != "" && !filepath.IsAbs(e.InstallSpec) {
			e.InstallSpec = filepath.Join(base, e.InstallSpec)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
