package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	base := &Config{
		Jenkins: JenkinsConfig{URL: "http://localhost:8080", KeyringService: "jenkins-acceptance"},
		Install: InstallConfig{Timeout: "3m"},
		Log:     LogConfig{Source: "file", Path: "jenkins.log"},
	}
	overlay := &Config{
		Jenkins: JenkinsConfig{URL: "https://ci.example.com"},
		Log:     LogConfig{Source: "sse", URL: "https://ci.example.com/logs"},
	}

	merged := Merge(base, overlay)

	assert.Equal(t, "https://ci.example.com", merged.Jenkins.URL)
	assert.Equal(t, "jenkins-acceptance", merged.Jenkins.KeyringService)
	assert.Equal(t, "3m", merged.Install.Timeout)
	assert.Equal(t, "sse", merged.Log.Source)
	assert.Equal(t, "jenkins.log", merged.Log.Path)

	// inputs are untouched
	assert.Equal(t, "http://localhost:8080", base.Jenkins.URL)
	assert.Empty(t, overlay.Install.Timeout)
}

func TestMerge_Nil(t *testing.T) {
	base := &Config{Jenkins: JenkinsConfig{URL: "http://localhost:8080"}}

	assert.Equal(t, base, Merge(base, nil))
	assert.NotSame(t, base, Merge(base, nil))
	assert.Equal(t, base, Merge(nil, base))
}

func TestOverrides(t *testing.T) {
	base := &Config{Jenkins: JenkinsConfig{URL: "http://localhost:8080"}, Install: InstallConfig{Timeout: "3m"}}
	merged := Merge(base, &Config{Install: InstallConfig{Timeout: "1m"}, Log: LogConfig{Level: "debug"}})

	assert.Equal(t, map[string]string{
		"install.timeout": "1m",
		"log.level":       "debug",
	}, Overrides(base, merged))
}
