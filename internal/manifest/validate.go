package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityError indicates the manifest cannot be accepted as written.
	SeverityError Severity = "error"
	// SeverityWarning indicates a questionable entry that still resolves.
	SeverityWarning Severity = "warning"
)

// Finding is a single validation result.
type Finding struct {
	// Severity is the finding severity.
	Severity Severity `yaml:"severity" json:"severity"`
	// Package is the package the finding concerns, empty for file-level
	// findings.
	Package string `yaml:"package,omitempty" json:"package,omitempty"`
	// Message describes the problem.
	Message string `yaml:"message" json:"message"`
}

// String returns a one-line rendering of the finding.
func (f Finding) String() string {
	if f.Package != "" {
		return fmt.Sprintf("%s: %s: %s", f.Severity, f.Package, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Severity, f.Message)
}

// Report is the outcome of validating a manifest.
type Report struct {
	// Name is the environment name from the manifest.
	Name string `yaml:"name" json:"name"`
	// Fingerprint is the manifest fingerprint.
	Fingerprint string `yaml:"fingerprint" json:"fingerprint"`
	// Findings lists all validation findings in detection order.
	Findings []Finding `yaml:"findings" json:"findings"`
}

// Valid returns true if the report contains no error-severity findings.
func (r *Report) Valid() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the error-severity findings.
func (r *Report) Errors() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns the warning-severity findings.
func (r *Report) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}

// packageNamePattern matches well-formed package names: lowercase
// alphanumerics with interior dots, dashes, and underscores.
var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// versionPinPattern matches version pins that are not coercible to
// semantic versions but are still well-formed (e.g. "1.21.*", "2023a").
var versionPinPattern = regexp.MustCompile(`^[0-9][0-9a-zA-Z._*]*$`)

// Validate checks the manifest and returns a report of findings.
// The checks cover the verifiable properties of a manifest: it must have
// a name and channels, every dependency must name a well-formed package,
// version pins must parse, and no package may be declared twice with
// conflicting pins.
func Validate(m *Manifest) *Report {
	report := &Report{
		Name:        m.Name,
		Fingerprint: m.Fingerprint(),
	}
	add := func(severity Severity, pkg, format string, args ...any) {
		report.Findings = append(report.Findings, Finding{
			Severity: severity,
			Package:  pkg,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if strings.TrimSpace(m.Name) == "" {
		add(SeverityError, "", "manifest has no environment name")
	}

	if len(m.Channels) == 0 {
		add(SeverityWarning, "", "no channels declared; resolution falls back to defaults")
	}
	seenChannels := make(map[string]bool)
	for _, ch := range m.Channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			add(SeverityError, "", "empty channel entry")
			continue
		}
		if seenChannels[ch] {
			add(SeverityWarning, "", "duplicate channel %q", ch)
		}
		seenChannels[ch] = true
	}

	if len(m.Dependencies) == 0 {
		add(SeverityWarning, "", "manifest declares no dependencies")
	}

	// First pass: per-entry checks.
	for _, dep := range m.Dependencies {
		if !packageNamePattern.MatchString(dep.Name) {
			add(SeverityError, dep.Name, "malformed package name in entry %q", dep.Raw)
			continue
		}
		if dep.Version != "" && !validPin(dep.Version) {
			add(SeverityError, dep.Name, "unparseable version pin %q", dep.Version)
		}
	}

	// Second pass: duplicate and conflict detection per (manager, name).
	seen := make(map[string]Dependency)
	for _, dep := range m.Dependencies {
		key := dep.Manager + ":" + dep.Name
		prev, dup := seen[key]
		if !dup {
			seen[key] = dep
			continue
		}
		if samePin(prev, dep) {
			add(SeverityWarning, dep.Name, "duplicate entry %q", dep.Raw)
		} else {
			add(SeverityError, dep.Name, "conflicting pins %q and %q", prev.Raw, dep.Raw)
		}
	}

	return report
}

// ValidateFile loads and validates the manifest at path.
func ValidateFile(path string) (*Report, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Validate(m), nil
}

// validPin returns true if the pin parses as a version constraint.
// Semantic versions are preferred; wildcard and calendar-style pins fall
// back to a shape check.
func validPin(pin string) bool {
	if _, err := semver.NewVersion(pin); err == nil {
		return true
	}
	return versionPinPattern.MatchString(pin)
}

// samePin reports whether two entries declare the same version
// constraint. Pins coercible to semantic versions compare by value, so
// "1.21" and "1.21.0" do not conflict.
func samePin(a, b Dependency) bool {
	if a.Build != b.Build {
		return false
	}
	if a.Version == b.Version {
		return true
	}
	av, aerr := semver.NewVersion(a.Version)
	bv, berr := semver.NewVersion(b.Version)
	if aerr != nil || berr != nil {
		return false
	}
	return av.Equal(bv)
}
