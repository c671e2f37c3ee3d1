package service

import (
	"fmt"
	"regexp"
	"strconv"
)

// InitialVersion is the version of a newly created template.
const InitialVersion = "v1.0"

var versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)$`)

// IncrementVersion bumps the minor part of a v{major}.{minor} version.
// An empty version yields InitialVersion and an unparseable one "v1.1".
// The major part never changes.
func IncrementVersion(version string) string {
	if version == "" {
		return InitialVersion
	}
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return "v1.1"
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return "v1.1"
	}
	return fmt.Sprintf("v%s.%d", m[1], minor+1)
}
