// Package manifest provides parsing and validation of environment
// manifests. A manifest declares the software environment the control
// stack runs under: an environment name, a list of package channels, and
// a list of dependency entries with optional version pins. Sessions record
// the manifest fingerprint so results can be traced back to the exact
// environment that produced them.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
)

// DefaultManager is the package manager that owns top-level dependency
// entries.
const DefaultManager = "conda"

// Dependency is a single dependency entry from the manifest.
type Dependency struct {
	// Name is the package name.
	Name string
	// Version is the declared version pin, empty if unpinned.
	Version string
	// Build is the build string constraint, empty if absent.
	Build string
	// Manager is the package manager that resolves this entry
	// ("conda" for top-level entries, "pip" for entries under a pip block).
	Manager string
	// Raw is the entry exactly as written in the manifest.
	Raw string
}

// Pinned returns true if the dependency declares a version pin.
func (d Dependency) Pinned() bool {
	return d.Version != ""
}

// String returns the canonical form of the dependency.
func (d Dependency) String() string {
	s := d.Manager + ":" + d.Name
	if d.Version != "" {
		s += "=" + d.Version
	}
	if d.Build != "" {
		s += "=" + d.Build
	}
	return s
}

// Manifest is a parsed environment manifest.
type Manifest struct {
	// Name is the environment name (e.g., "qca_control").
	Name string `yaml:"name"`
	// Channels lists the package repository sources, in resolution order.
	Channels []string `yaml:"channels"`
	// Dependencies lists the declared dependencies in file order.
	Dependencies []Dependency `yaml:"-"`
}

// manifestDoc mirrors the raw YAML shape before dependency entries are
// decoded.
type manifestDoc struct {
	Name         string      `yaml:"name"`
	Channels     []string    `yaml:"channels"`
	Dependencies []yaml.Node `yaml:"dependencies"`
}

// Parse decodes a manifest from YAML bytes.
// Entry order is preserved; sub-manager blocks (e.g. a pip mapping) are
// flattened into Dependency entries with Manager set accordingly.
func Parse(data []byte) (*Manifest, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid manifest YAML: %w", err)
	}

	m := &Manifest{
		Name:     doc.Name,
		Channels: doc.Channels,
	}

	for i, node := range doc.Dependencies {
		deps, err := decodeEntry(&node)
		if err != nil {
			return nil, fmt.Errorf("dependency entry %d: %w", i+1, err)
		}
		m.Dependencies = append(m.Dependencies, deps...)
	}

	return m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, qcerrors.ManifestNotFound(path)
		}
		return nil, qcerrors.Wrap(err, qcerrors.ErrManifest, "failed to read manifest")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, qcerrors.ManifestParseError(path, err)
	}
	return m, nil
}

// decodeEntry decodes a single dependencies list item.
// Scalar items are plain conda entries; mapping items are sub-manager
// blocks whose values are lists of entries for that manager.
func decodeEntry(node *yaml.Node) ([]Dependency, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		dep, err := parseSpec(raw, DefaultManager)
		if err != nil {
			return nil, err
		}
		return []Dependency{dep}, nil

	case yaml.MappingNode:
		var block map[string][]string
		if err := node.Decode(&block); err != nil {
			return nil, fmt.Errorf("sub-manager block must map a manager name to a list of entries: %w", err)
		}
		var deps []Dependency
		// Deterministic order for multi-key blocks.
		managers := make([]string, 0, len(block))
		for manager := range block {
			managers = append(managers, manager)
		}
		sort.Strings(managers)
		for _, manager := range managers {
			for _, raw := range block[manager] {
				dep, err := parseSpec(raw, manager)
				if err != nil {
					return nil, err
				}
				deps = append(deps, dep)
			}
		}
		return deps, nil

	default:
		return nil, fmt.Errorf("unsupported dependency entry kind")
	}
}

// parseSpec splits a dependency spec into name, version pin, and build
// string. Top-level entries use "name=version=build"; pip entries use
// "name==version".
func parseSpec(raw, manager string) (Dependency, error) {
	spec := strings.TrimSpace(raw)
	if spec == "" {
		return Dependency{}, fmt.Errorf("empty dependency entry")
	}

	dep := Dependency{Manager: manager, Raw: raw}

	if manager == DefaultManager {
		// Normalize "==" (exact match) to the single-separator form.
		spec = strings.ReplaceAll(spec, "==", "=")
		parts := strings.Split(spec, "=")
		dep.Name = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			dep.Version = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			dep.Build = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			return Dependency{}, fmt.Errorf("malformed entry %q: too many fields", raw)
		}
	} else {
		// Sub-manager entries (pip) pin with "==".
		if name, version, found := strings.Cut(spec, "=="); found {
			dep.Name = strings.TrimSpace(name)
			dep.Version = strings.TrimSpace(version)
		} else {
			dep.Name = spec
		}
	}

	if dep.Name == "" {
		return Dependency{}, fmt.Errorf("malformed entry %q: missing package name", raw)
	}
	return dep, nil
}

// Get returns the first dependency with the given name resolved by the
// given manager, or false if absent.
func (m *Manifest) Get(manager, name string) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Manager == manager && d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// Fingerprint returns a stable SHA-256 hex digest over the canonicalized
// manifest. Two manifests that declare the same environment produce the
// same fingerprint regardless of formatting.
func (m *Manifest) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString("name=")
	sb.WriteString(strings.ToLower(strings.TrimSpace(m.Name)))
	sb.WriteString("\n")

	for _, ch := range m.Channels {
		sb.WriteString("channel=")
		sb.WriteString(strings.TrimSpace(ch))
		sb.WriteString("\n")
	}

	deps := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		deps = append(deps, d.String())
	}
	sort.Strings(deps)
	for _, d := range deps {
		sb.WriteString("dep=")
		sb.WriteString(d)
		sb.WriteString("\n")
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
