package pluginmanager

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionSatisfies reports whether installed is at least required.
//
// Jenkins plugin versions are mostly semver-like ("4.11.3", "1.0-beta-1") but
// not always ("2.6.4.1", "1234.v5678abcdef01"). Versions semver cannot parse
// are compared for equality.
func versionSatisfies(installed, required string) bool {
	if required == "" {
		return true
	}

	have, err := semver.NewVersion(installed)
	if err != nil {
		return strings.EqualFold(installed, required)
	}
	want, err := semver.NewVersion(required)
	if err != nil {
		return strings.EqualFold(installed, required)
	}

	return !have.LessThan(want)
}
