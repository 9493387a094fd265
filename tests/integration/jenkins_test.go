//go:build integration

// Package integration runs the plugin steps against a real Jenkins started
// with testcontainers. Run with: go test -tags integration ./tests/integration
package integration

import (
	"context"
	"io"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/CliForge/jenkins-acceptance/pkg/logwatch"
	"github.com/CliForge/jenkins-acceptance/pkg/page"
	"github.com/CliForge/jenkins-acceptance/pkg/pluginmanager"
	"github.com/CliForge/jenkins-acceptance/pkg/steps"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const jenkinsImage = "jenkins/jenkins:lts-jdk17"

// pipeConsumer forwards container output into a pipe read by a
// logwatch.ReaderSource.
type pipeConsumer struct {
	w *io.PipeWriter
}

func (c *pipeConsumer) Accept(l testcontainers.Log) {
	_, _ = c.w.Write(l.Content)
}

type jenkinsEnv struct {
	url     string
	watcher *logwatch.Watcher
}

func startJenkins(t *testing.T) *jenkinsEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Jenkins container in short mode")
	}

	r := require.New(t)
	ctx := t.Context()

	pr, pw := io.Pipe()
	watcher, err := logwatch.NewWatcher(logwatch.NewReaderSource(pr))
	r.NoError(err)
	r.NoError(watcher.Start(context.Background()))

	container, err := testcontainers.Run(ctx, jenkinsImage,
		testcontainers.WithExposedPorts("8080/tcp"),
		testcontainers.WithEnv(map[string]string{
			"JAVA_OPTS": "-Djenkins.install.runSetupWizard=false",
		}),
		testcontainers.WithLogConsumers(&pipeConsumer{w: pw}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/login").WithPort("8080/tcp").WithStartupTimeout(3*time.Minute),
		),
	)
	t.Cleanup(func() {
		r.NoError(testcontainers.TerminateContainer(container))
		_ = pw.Close()
		_ = watcher.Close()
	})
	r.NoError(err, "failed to start Jenkins container")

	url, err := container.PortEndpoint(ctx, "8080/tcp", "http")
	r.NoError(err)

	return &jenkinsEnv{url: url, watcher: watcher}
}

func TestJenkins(t *testing.T) {
	env := startJenkins(t)
	ctx := t.Context()

	manager, err := pluginmanager.NewManager(env.url)
	require.NoError(t, err)

	t.Run("container log is watched", func(t *testing.T) {
		result, err := env.watcher.WaitUntilLogged(ctx, regexp.MustCompile(`(?i)Jenkins is fully up and running`), time.Minute)
		require.NoError(t, err)
		require.Equal(t, logwatch.Matched, result)
	})

	t.Run("plugins are listed", func(t *testing.T) {
		_, err := manager.List(ctx)
		require.NoError(t, err)
	})

	t.Run("pages load", func(t *testing.T) {
		p, err := page.New(env.url)
		require.NoError(t, err)
		require.NoError(t, p.Visit(ctx, "login"))
		require.NotEmpty(t, p.Content())
	})

	t.Run("install from update center", func(t *testing.T) {
		if os.Getenv("JENKINS_ACCEPTANCE_OFFLINE") != "" {
			t.Skip("update center not reachable")
		}

		require.NoError(t, manager.InstallPlugin(ctx, "ant"))
		require.Eventually(t, func() bool {
			installed, err := manager.Installed(ctx, "ant")
			return err == nil && installed
		}, 5*time.Minute, 2*time.Second)

		runner := steps.NewRunner(manager, env.watcher, nil)
		require.NoError(t, runner.EnsureInstalled(ctx, "ant"), "an installed plugin needs no confirmation")
	})
}
