package steps

import (
	"regexp"
)

// InstallationPattern matches the log lines Jenkins writes when a plugin
// finishes installing, ignoring case:
//
//	Installation successful: <name> Plugin
//	Plugin <name> dynamically installed
//
// The name is matched literally.
func InstallationPattern(name string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(name)
	return regexp.MustCompile(`(?i)(Installation successful: ` + quoted + ` Plugin)|(Plugin ` + quoted + ` dynamically installed)`)
}
