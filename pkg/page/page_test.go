package page

import (
	"context"
	"testing"

	"github.com/CliForge/jenkins-acceptance/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configurePage = `<!DOCTYPE html>
<html>
<head><title>demo Config [Jenkins]</title><script>var scm = "Subversion";</script></head>
<body>
  <h1>Configure</h1>
  <div class="section-header">Source Code Management</div>
  <label><input type="radio" name="scm" value="0"> None</label>
  <label><input type="radio" name="scm" value="1">   Git
  </label>
  <select name="branch"><option>main</option><option>release</option></select>
  <input type="hidden" value="Mercurial">
  <style>.Perforce { color: red }</style>
</body>
</html>`

func TestVisibleText(t *testing.T) {
	text, err := VisibleText(configurePage)
	require.NoError(t, err)

	assert.Contains(t, text, "Source Code Management")
	assert.Contains(t, text, "Git")
	assert.Contains(t, text, "main release")
	assert.NotContains(t, text, "Subversion")
	assert.NotContains(t, text, "Mercurial")
	assert.NotContains(t, text, "Perforce")
	assert.NotContains(t, text, "[Jenkins]")
}

func TestPage_HasContent(t *testing.T) {
	p, err := New("http://localhost:8080")
	require.NoError(t, err)
	require.NoError(t, p.SetContent(configurePage))

	tests := []struct {
		text string
		want bool
	}{
		{"Git", true},
		{"Source  Code\nManagement", true},
		{"None", true},
		{"Subversion", false},
		{"git", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, p.HasContent(tt.text))
		})
	}
	assert.Empty(t, p.URL())
}

func TestPage_Visit(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()
	js.RequireAuth("admin", "s3cret")
	js.SetPage("job/demo/configure", configurePage)

	p, err := New(js.URL(), WithCredentials("admin", "s3cret"))
	require.NoError(t, err)

	require.NoError(t, p.Visit(context.Background(), "job/demo/configure"))
	assert.Equal(t, js.URL()+"/job/demo/configure", p.URL())
	assert.True(t, p.HasContent("Git"))
}

func TestPage_Visit_Errors(t *testing.T) {
	js := helpers.NewJenkinsServer()
	defer js.Close()

	p, err := New(js.URL())
	require.NoError(t, err)

	err = p.Visit(context.Background(), "job/missing/configure")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	err = p.Visit(context.Background(), "%zz")
	assert.Error(t, err)
}
