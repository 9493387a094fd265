// Package pluginmanager is a client for the Jenkins plugin manager REST API.
package pluginmanager

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyName is returned by ParseSpec for a blank plugin name.
var ErrEmptyName = errors.New("plugin name is required")

// Plugin describes an installed plugin as reported by
// /pluginManager/api/json. The expr tags name the fields inside installed
// conditions.
type Plugin struct {
	ShortName    string `json:"shortName" expr:"shortName"`
	LongName     string `json:"longName" expr:"longName"`
	Version      string `json:"version" expr:"version"`
	Active       bool   `json:"active" expr:"active"`
	Enabled      bool   `json:"enabled" expr:"enabled"`
	Deleted      bool   `json:"deleted" expr:"deleted"`
	Bundled      bool   `json:"bundled" expr:"bundled"`
	Pinned       bool   `json:"pinned" expr:"pinned"`
	HasUpdate    bool   `json:"hasUpdate" expr:"hasUpdate"`
	Downgradable bool   `json:"downgradable" expr:"downgradable"`
}

// pluginList is the /pluginManager/api/json envelope.
type pluginList struct {
	Plugins []Plugin `json:"plugins"`
}

// crumbResponse is the /crumbIssuer/api/json response.
type crumbResponse struct {
	Crumb             string `json:"crumb"`
	CrumbRequestField string `json:"crumbRequestField"`
}

// Spec identifies a plugin and an optional minimum version, written
// "name" or "name@version".
type Spec struct {
	Name    string
	Version string
}

// ParseSpec parses "name" or "name@version".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	name, version, _ := strings.Cut(s, "@")
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)

	if name == "" {
		return Spec{}, fmt.Errorf("%w: %q", ErrEmptyName, s)
	}
	if strings.Contains(s, "@") && version == "" {
		return Spec{}, fmt.Errorf("plugin version is empty: %q", s)
	}

	return Spec{Name: name, Version: version}, nil
}

// String returns the spec in "name@version" form.
func (s Spec) String() string {
	if s.Version == "" {
		return s.Name
	}
	return s.Name + "@" + s.Version
}

// installTarget is the value of the install element's plugin attribute.
func (s Spec) installTarget() string {
	if s.Version == "" {
		return s.Name + "@latest"
	}
	return s.String()
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements error.
func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.URL, e.StatusCode, body)
}
