package pluginmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/CliForge/jenkins-acceptance/pkg/logging"
	"github.com/pterm/pterm"
)

const userAgent = "jenkins-acceptance"

// Manager queries and installs plugins on one Jenkins instance.
type Manager struct {
	baseURL    *url.URL
	httpClient *http.Client
	user       string
	token      string
	condition  *condition
	logger     *pterm.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithCredentials authenticates requests with a user and API token.
func WithCredentials(user, token string) Option {
	return func(m *Manager) error {
		m.user = user
		m.token = token
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) error {
		if client == nil {
			return fmt.Errorf("http client is nil")
		}
		m.httpClient = client
		return nil
	}
}

// WithInstalledCondition sets the expression deciding whether a listed
// plugin counts as installed. See DefaultInstalledCondition.
func WithInstalledCondition(source string) Option {
	return func(m *Manager) error {
		c, err := compileCondition(source)
		if err != nil {
			return err
		}
		m.condition = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *pterm.Logger) Option {
	return func(m *Manager) error {
		m.logger = logger
		return nil
	}
}

// NewManager creates a plugin manager client for the Jenkins instance at
// baseURL.
func NewManager(baseURL string, opts ...Option) (*Manager, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("jenkins URL is required")
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid jenkins URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid jenkins URL scheme: %q", u.Scheme)
	}

	// Crumbs are bound to the session, so the cookie has to come back
	// with the install request.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	m := &Manager{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.condition == nil {
		if m.condition, err = compileCondition(DefaultInstalledCondition); err != nil {
			return nil, err
		}
	}
	m.logger = logging.OrDiscard(m.logger)

	return m, nil
}

// URL returns the Jenkins base URL.
func (m *Manager) URL() string {
	return m.baseURL.String()
}

// List returns every plugin Jenkins knows about.
func (m *Manager) List(ctx context.Context) ([]Plugin, error) {
	resp, err := m.do(ctx, http.MethodGet, "pluginManager/api/json?depth=1", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var list pluginList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse plugin list: %w", err)
	}

	return list.Plugins, nil
}

// Plugin returns the plugin with the given short name, or nil when Jenkins
// does not list it.
func (m *Manager) Plugin(ctx context.Context, name string) (*Plugin, error) {
	plugins, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range plugins {
		if plugins[i].ShortName == name {
			return &plugins[i], nil
		}
	}

	return nil, nil
}

// Installed reports whether the plugin named by name ("git" or "git@4.0.0")
// is installed, satisfies the installed condition and, when a version is
// given, is at least that version.
func (m *Manager) Installed(ctx context.Context, name string) (bool, error) {
	spec, err := ParseSpec(name)
	if err != nil {
		return false, err
	}

	plugin, err := m.Plugin(ctx, spec.Name)
	if err != nil {
		return false, fmt.Errorf("failed to query plugin %s: %w", spec.Name, err)
	}
	if plugin == nil {
		m.logger.Debug("plugin not listed", m.logger.Args("plugin", spec.Name))
		return false, nil
	}

	ok, err := m.condition.eval(*plugin)
	if err != nil {
		return false, err
	}
	if ok && !versionSatisfies(plugin.Version, spec.Version) {
		m.logger.Debug("plugin version too old",
			m.logger.Args("plugin", spec.Name, "installed", plugin.Version, "required", spec.Version))
		ok = false
	}

	m.logger.Debug("plugin queried",
		m.logger.Args("plugin", spec.Name, "version", plugin.Version, "installed", ok))

	return ok, nil
}

// InstallPlugin asks Jenkins to install a plugin from the update center.
// Installation completes asynchronously; Jenkins logs the outcome.
func (m *Manager) InstallPlugin(ctx context.Context, name string) error {
	return m.InstallPlugins(ctx, name)
}

// InstallPlugins asks Jenkins to install several plugins in one request.
func (m *Manager) InstallPlugins(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return fmt.Errorf("no plugins to install")
	}

	req := installRequest{}
	for _, name := range names {
		spec, err := ParseSpec(name)
		if err != nil {
			return err
		}
		req.Install = append(req.Install, installElement{Plugin: spec.installTarget()})
	}

	body, err := xml.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal install request: %w", err)
	}

	headers := map[string]string{"Content-Type": "text/xml"}

	c, err := m.crumb(ctx)
	if err != nil {
		return err
	}
	if c != nil {
		headers[c.CrumbRequestField] = c.Crumb
	}

	resp, err := m.do(ctx, http.MethodPost, "pluginManager/installNecessaryPlugins", bytes.NewReader(body), headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Jenkins answers with a redirect to the update center page
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return newAPIError(resp)
	}

	m.logger.Info("plugin installation requested", m.logger.Args("plugins", strings.Join(names, ",")))
	return nil
}

// installRequest is the XML document accepted by installNecessaryPlugins.
type installRequest struct {
	XMLName xml.Name         `xml:"jenkins"`
	Install []installElement `xml:"install"`
}

type installElement struct {
	Plugin string `xml:"plugin,attr"`
}

// crumb fetches a CSRF crumb. It returns nil when CSRF protection is off.
func (m *Manager) crumb(ctx context.Context) (*crumbResponse, error) {
	resp, err := m.do(ctx, http.MethodGet, "crumbIssuer/api/json", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var c crumbResponse
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse crumb: %w", err)
	}
	if c.CrumbRequestField == "" || c.Crumb == "" {
		return nil, nil
	}

	return &c, nil
}

// do sends an authenticated request to a path relative to the base URL.
func (m *Manager) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := m.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if m.user != "" || m.token != "" {
		req.SetBasicAuth(m.user, m.token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	m.logger.Trace("jenkins request", m.logger.Args("method", method, "url", target.String()))

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target.String(), err)
	}

	return resp, nil
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}
