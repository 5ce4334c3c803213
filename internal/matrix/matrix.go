// Package matrix expands the declared execution axes into the concrete set
// of environments the pipeline runs against.
package matrix

import (
	"strings"

	"github.com/vk/gridci/internal/config"
)

// Family identifies the shell-activation family of a platform.
type Family string

const (
	// FamilyPosix covers platforms driven through a POSIX shell.
	FamilyPosix Family = "posix"
	// FamilyWindows covers platforms driven through cmd.exe semantics.
	FamilyWindows Family = "windows"
)

// Environment is a single point in the execution matrix. It is immutable
// and identifies one parallel lane; equality is over (Platform, Version).
type Environment struct {
	Platform string
	Version  string
}

// ID returns the canonical lane identifier, e.g. "ubuntu-latest/3.9".
func (e Environment) ID() string {
	return e.Platform + "/" + e.Version
}

// Family maps the platform identifier onto its shell-activation family.
func (e Environment) Family() Family {
	if strings.HasPrefix(strings.ToLower(e.Platform), "windows") {
		return FamilyWindows
	}
	return FamilyPosix
}

// Expand produces the cross product of the declared axes as environments.
// Ordering is deterministic: platforms in declaration order, then versions
// in declaration order. Two identical descriptors are never collapsed into
// one lane, so duplicate values within a single axis are rejected.
func Expand(m *config.Matrix) ([]Environment, error) {
	if m == nil {
		return nil, config.Errorf("matrix block is missing")
	}
	if len(m.Platforms) == 0 {
		return nil, config.Errorf("matrix axis 'platforms' is empty")
	}
	if len(m.Versions) == 0 {
		return nil, config.Errorf("matrix axis 'versions' is empty")
	}
	if dup := firstDuplicate(m.Platforms); dup != "" {
		return nil, config.Errorf("matrix axis 'platforms' declares %q twice", dup)
	}
	if dup := firstDuplicate(m.Versions); dup != "" {
		return nil, config.Errorf("matrix axis 'versions' declares %q twice", dup)
	}

	envs := make([]Environment, 0, len(m.Platforms)*len(m.Versions))
	for _, platform := range m.Platforms {
		for _, version := range m.Versions {
			envs = append(envs, Environment{Platform: platform, Version: version})
		}
	}
	return envs, nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
