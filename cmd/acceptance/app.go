package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/CliForge/jenkins-acceptance/pkg/auth"
	"github.com/CliForge/jenkins-acceptance/pkg/auth/storage"
	"github.com/CliForge/jenkins-acceptance/pkg/config"
	"github.com/CliForge/jenkins-acceptance/pkg/logging"
	"github.com/CliForge/jenkins-acceptance/pkg/logwatch"
	"github.com/CliForge/jenkins-acceptance/pkg/page"
	"github.com/CliForge/jenkins-acceptance/pkg/pluginmanager"
	"github.com/CliForge/jenkins-acceptance/pkg/steps"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// annotationTokenPrompt marks commands that may prompt for a missing token.
const annotationTokenPrompt = "token-prompt"

// app holds what every command builds from flags and configuration.
type app struct {
	cfg    *config.Config
	logger *pterm.Logger
	token  string
	stdin  io.Reader
}

// loadApp loads and validates configuration, applies global flags and
// resolves the API token.
func loadApp(cmd *cobra.Command) (*app, error) {
	loader := newLoader(cmd)

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.Jenkins.URL = url
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetBool("debug")
	switch {
	case debug:
		cfg.Log.Level = "trace"
	case verbose:
		cfg.Log.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, stdin: cmd.InOrStdin()}

	token, source, err := a.tokenResolver(a.canPrompt(cmd)).Resolve(cmd.Context())
	if err != nil {
		logger.Warn("continuing without API token", logger.Args("error", err.Error()))
	}
	a.token = token
	logger.Debug("configuration loaded", logger.Args(
		"config", loader.ConfigPath(),
		"url", cfg.Jenkins.URL,
		"token_source", string(source),
		"flags", changedFlags(cmd.Flags()),
	))

	return a, nil
}

// newLoader returns a config loader honoring --config.
func newLoader(cmd *cobra.Command) *config.Loader {
	loader := config.NewLoader(config.AppName)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader.WithConfigPath(path)
	}
	return loader
}

// changedFlags lists the flags set on the command line as name=value.
// Secrets never travel as flags, so values are logged as given.
func changedFlags(flags *pflag.FlagSet) []string {
	var changed []string
	flags.Visit(func(flag *pflag.Flag) {
		changed = append(changed, fmt.Sprintf("%s=%s", flag.Name, flag.Value.String()))
	})
	return changed
}

func (a *app) tokenResolver(prompt bool) *auth.TokenResolver {
	opts := []auth.TokenResolverOption{auth.WithConfigToken(a.cfg.Jenkins.Token)}
	if s, err := a.keyring(); err == nil {
		opts = append(opts, auth.WithStorage(s))
	}
	if prompt {
		opts = append(opts, auth.WithPromptFunc(promptToken))
	}
	return auth.NewTokenResolver(a.cfg.Jenkins.User, opts...)
}

// canPrompt reports whether a missing token may be asked for: the command
// talks to Jenkins, and stdin is a terminal that is not the log source.
func (a *app) canPrompt(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationTokenPrompt] != "true" || a.cfg.Log.Source == config.SourceStdin {
		return false
	}
	f, ok := a.stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func promptToken(user string) (string, error) {
	return pterm.DefaultInteractiveTextInput.
		WithMask("*").
		Show(fmt.Sprintf("API token for %s", user))
}

func (a *app) keyring() (*storage.KeyringStorage, error) {
	return storage.NewKeyringStorage(a.cfg.Jenkins.KeyringService)
}

func (a *app) newManager() (*pluginmanager.Manager, error) {
	return pluginmanager.NewManager(a.cfg.Jenkins.URL,
		pluginmanager.WithCredentials(a.cfg.Jenkins.User, a.token),
		pluginmanager.WithInstalledCondition(a.cfg.Install.InstalledCondition),
		pluginmanager.WithLogger(a.logger),
	)
}

func (a *app) newPage() (*page.Page, error) {
	return page.New(a.cfg.Jenkins.URL,
		page.WithCredentials(a.cfg.Jenkins.User, a.token),
		page.WithLogger(a.logger),
	)
}

func (a *app) newNavigator() (steps.Navigator, error) {
	return a.newPage()
}

func (a *app) newLogSource() (logwatch.Source, error) {
	switch a.cfg.Log.Source {
	case config.SourceFile:
		return logwatch.NewFileSource(a.cfg.Log.Path), nil
	case config.SourceSSE:
		return logwatch.NewSSESource(a.streamConfig()), nil
	case config.SourceWebSocket:
		return logwatch.NewWebSocketSource(a.streamConfig()), nil
	case config.SourceStdin:
		return logwatch.NewReaderSource(a.stdin), nil
	default:
		return nil, fmt.Errorf("unsupported log source: %s", a.cfg.Log.Source)
	}
}

func (a *app) streamConfig() *logwatch.StreamConfig {
	sc := logwatch.DefaultStreamConfig()
	sc.Endpoint = a.cfg.Log.URL
	if a.cfg.Jenkins.User != "" || a.token != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(a.cfg.Jenkins.User + ":" + a.token))
		sc.Headers["Authorization"] = "Basic " + credentials
	}
	return sc
}

// newEnv builds the collaborators and starts the log watcher. The returned
// stop function closes the watcher.
func (a *app) newEnv(ctx context.Context) (*steps.Env, func(), error) {
	manager, err := a.newManager()
	if err != nil {
		return nil, nil, err
	}

	source, err := a.newLogSource()
	if err != nil {
		return nil, nil, err
	}

	watcher, err := logwatch.NewWatcher(source,
		logwatch.WithLogger(a.logger),
		logwatch.WithEcho(true),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, nil, err
	}

	timeout, err := a.cfg.Install.TimeoutDuration()
	if err != nil {
		_ = watcher.Close()
		return nil, nil, err
	}

	env := &steps.Env{
		Plugins:        manager,
		Logs:           watcher,
		NewPage:        a.newNavigator,
		InstallTimeout: timeout,
		Logger:         a.logger,
	}
	stop := func() { _ = watcher.Close() }

	return env, stop, nil
}
