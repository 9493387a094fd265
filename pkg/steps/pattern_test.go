package steps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestInstallationPattern(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		match bool
	}{
		{"git", "2024-01-01 INFO h.m.UpdateCenter$DownloadJob#run: Installation successful: git Plugin", true},
		{"git", "INFO jenkins.model.Jenkins#dynamicLoad: Plugin git dynamically installed", true},
		{"git", "installation SUCCESSFUL: GIT plugin", true},
		{"git", "Installation successful: git-client Plugin", false},
		{"git", "Installation failed: git Plugin", false},
		{"c++", "Installation successful: c++ Plugin", true},
		{"c++", "Installation successful: cc Plugin", false},
		{"c++", "Installation successful: c+++ Plugin", false},
		{"a.b", "Plugin axb dynamically installed", false},
		{"a.b", "Plugin a.b dynamically installed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.line, func(t *testing.T) {
			assert.Equal(t, tt.match, InstallationPattern(tt.name).MatchString(tt.line))
		})
	}
}

func TestInstallationPattern_Properties(t *testing.T) {
	nameGen := rapid.StringMatching(`[a-zA-Z0-9.+*?()\[\]{}|^$\\-]{1,20}`)

	rapid.Check(t, func(t *rapid.T) {
		name := nameGen.Draw(t, "name")
		pattern := InstallationPattern(name)

		if !pattern.MatchString("Installation successful: " + name + " Plugin") {
			t.Fatalf("successful line not matched for %q", name)
		}
		if !pattern.MatchString("Plugin " + name + " dynamically installed") {
			t.Fatalf("dynamic line not matched for %q", name)
		}

		other := nameGen.Draw(t, "other")
		if strings.EqualFold(other, name) {
			return
		}
		if pattern.MatchString("Installation successful: " + other + " Plugin") {
			t.Fatalf("pattern for %q matched %q", name, other)
		}
	})
}
