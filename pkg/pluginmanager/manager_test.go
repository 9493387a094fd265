package pluginmanager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CliForge/jenkins-acceptance/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, js *helpers.JenkinsServer, opts ...Option) *Manager {
	t.Helper()

	m, err := NewManager(js.URL(), opts...)
	require.NoError(t, err)
	return m
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		opts    []Option
		wantErr bool
	}{
		{name: "valid", url: "http://localhost:8080"},
		{name: "valid with context path", url: "https://ci.example.com/jenkins/"},
		{name: "empty", url: "", wantErr: true},
		{name: "bad scheme", url: "ftp://ci.example.com", wantErr: true},
		{name: "nil client", url: "http://localhost", opts: []Option{WithHTTPClient(nil)}, wantErr: true},
		{name: "bad condition", url: "http://localhost", opts: []Option{WithInstalledCondition("plugin.active &&")}, wantErr: true},
		{name: "non boolean condition", url: "http://localhost", opts: []Option{WithInstalledCondition("plugin.version")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.url, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManager_URL(t *testing.T) {
	m, err := NewManager("https://ci.example.com/jenkins")
	require.NoError(t, err)
	assert.Equal(t, "https://ci.example.com/jenkins/", m.URL())
}

func TestManager_Installed(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()

	js.AddPlugin("git", "5.2.1")
	js.AddPlugin("pmd", "2.6.4.1")

	m := newTestManager(t, js)
	ctx := context.Background()

	tests := []struct {
		name string
		want bool
	}{
		{"git", true},
		{"git@5.0.0", true},
		{"git@5.2.1", true},
		{"git@6.0", false},
		{"pmd", true},
		{"pmd@2.6.4.1", true},
		{"pmd@2.6.5", false},
		{"subversion", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Installed(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManager_Installed_Condition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"plugins":[
			{"shortName":"inactive","version":"1.0","active":false,"enabled":true},
			{"shortName":"doomed","version":"1.0","active":true,"enabled":true,"deleted":true},
			{"shortName":"disabled","version":"1.0","active":true,"enabled":false}
		]}`))
	}))
	defer server.Close()

	ctx := context.Background()

	m, err := NewManager(server.URL)
	require.NoError(t, err)

	for name, want := range map[string]bool{"inactive": false, "doomed": false, "disabled": true} {
		got, err := m.Installed(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	strict, err := NewManager(server.URL, WithInstalledCondition("plugin.active && plugin.enabled"))
	require.NoError(t, err)

	got, err := strict.Installed(ctx, "disabled")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestManager_Installed_InvalidName(t *testing.T) {
	m, err := NewManager("http://localhost")
	require.NoError(t, err)

	_, err = m.Installed(context.Background(), "  ")
	assert.Error(t, err)
}

func TestManager_List_APIError(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()
	js.RequireAuth("admin", "s3cret")

	m := newTestManager(t, js)

	_, err := m.List(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "401")
}

func TestManager_List_Authenticated(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()
	js.RequireAuth("admin", "s3cret")
	js.AddPlugin("git", "5.2.1")

	m := newTestManager(t, js, WithCredentials("admin", "s3cret"))

	plugins, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "git", plugins[0].ShortName)
	assert.Equal(t, "5.2.1", plugins[0].Version)
}

func TestManager_InstallPlugin(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()

	m := newTestManager(t, js)
	ctx := context.Background()

	require.NoError(t, m.InstallPlugin(ctx, "git"))
	assert.Equal(t, []string{"git@latest"}, js.InstallCalls())

	assert.Eventually(t, func() bool {
		ok, err := m.Installed(ctx, "git")
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	var install *helpers.RecordedRequest
	for _, req := range js.GetRequests() {
		if req.Path == "/pluginManager/installNecessaryPlugins" {
			install = req
		}
	}
	require.NotNil(t, install)
	assert.Equal(t, "text/xml", install.Headers.Get("Content-Type"))
	assert.Equal(t, `<jenkins><install plugin="git@latest"></install></jenkins>`, string(install.Body))
}

func TestManager_InstallPlugins_WithCrumb(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()
	js.RequireCrumb("c0ffee")

	m := newTestManager(t, js)

	require.NoError(t, m.InstallPlugins(context.Background(), "git@5.0.0", "pmd"))
	assert.Equal(t, []string{"git@5.0.0", "pmd@latest"}, js.InstallCalls())
}

func TestManager_InstallPlugin_CrumbRejected(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()
	js.RequireCrumb("c0ffee")

	// Without a cookie jar the session cookie is lost
	m := newTestManager(t, js, WithHTTPClient(&http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}))

	err := m.InstallPlugin(context.Background(), "git")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Empty(t, js.InstallCalls())
}

func TestManager_InstallPlugins_Validation(t *testing.T) {
	m, err := NewManager("http://localhost")
	require.NoError(t, err)

	assert.Error(t, m.InstallPlugins(context.Background()))
	assert.Error(t, m.InstallPlugin(context.Background(), "@1.0"))
}
