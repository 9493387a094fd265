// Package config handles loading, merging, and validation of the acceptance
// harness configuration.
package config

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG directories and the environment prefix.
const AppName = "jenkins-acceptance"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the harness configuration.
type Config struct {
	Jenkins JenkinsConfig `yaml:"jenkins"`
	Install InstallConfig `yaml:"install"`
	Log     LogConfig     `yaml:"log"`
}

// JenkinsConfig locates and authenticates against the instance under test.
type JenkinsConfig struct {
	URL            string `yaml:"url,omitempty"`
	User           string `yaml:"user,omitempty"`
	Token          string `yaml:"token,omitempty"`
	KeyringService string `yaml:"keyring_service,omitempty"`
}

// InstallConfig controls plugin installation.
type InstallConfig struct {
	Timeout            string `yaml:"timeout,omitempty"`
	InstalledCondition string `yaml:"installed_condition,omitempty"`
}

// TimeoutDuration parses Timeout.
func (c InstallConfig) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// LogConfig selects where the Jenkins system log is read from and how the
// harness logs.
type LogConfig struct {
	Source string `yaml:"source,omitempty"`
	Path   string `yaml:"path,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Log sources.
const (
	SourceFile      = "file"
	SourceSSE       = "sse"
	SourceWebSocket = "websocket"
	SourceStdin     = "stdin"
)

// fields maps dotted keys to the string fields of c.
func (c *Config) fields() map[string]*string {
	return map[string]*string{
		"jenkins.url":                 &c.Jenkins.URL,
		"jenkins.user":                &c.Jenkins.User,
		"jenkins.token":               &c.Jenkins.Token,
		"jenkins.keyring_service":     &c.Jenkins.KeyringService,
		"install.timeout":             &c.Install.Timeout,
		"install.installed_condition": &c.Install.InstalledCondition,
		"log.source":                  &c.Log.Source,
		"log.path":                    &c.Log.Path,
		"log.url":                     &c.Log.URL,
		"log.level":                   &c.Log.Level,
		"log.format":                  &c.Log.Format,
	}
}

// Keys returns the dotted configuration keys.
func Keys() []string {
	return slices.Sorted(maps.Keys((&Config{}).fields()))
}

// Set assigns a value by dotted key.
func (c *Config) Set(key, value string) error {
	field, ok := c.fields()[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	*field = value
	return nil
}

// Get returns a value by dotted key.
func (c *Config) Get(key string) (string, error) {
	field, ok := c.fields()[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return *field, nil
}

// Loader handles loading configurations from various sources.
type Loader struct {
	appName    string
	envPrefix  string
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader(appName string) *Loader {
	return &Loader{
		appName:   appName,
		envPrefix: strings.ToUpper(strings.ReplaceAll(appName, "-", "_")),
	}
}

// WithConfigPath makes Load read path instead of the XDG location. The
// file must exist.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load merges configuration from all sources.
// Priority: ENV > User Config > Embedded defaults.
func (l *Loader) Load() (*Config, error) {
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}

	user, err := l.LoadUserConfig()
	if err != nil {
		return nil, err
	}

	merged := Merge(defaults, user)

	if err := l.applyEnvironmentOverrides(merged); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return merged, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(defaultsYAML, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	return &config, nil
}

// LoadUserConfig reads only the user configuration file. A missing file at
// the XDG location is not an error; a missing explicit file is, and the
// error wraps fs.ErrNotExist.
func (l *Loader) LoadUserConfig() (*Config, error) {
	configPath := l.ConfigPath()

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) && l.configPath == "" && os.Getenv(l.envPrefix+"_CONFIG") == "" {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse user config %s: %w", configPath, err)
	}

	return &config, nil
}

// ConfigPath returns the user config file path: the explicit path, then
// $<PREFIX>_CONFIG, then the XDG config directory.
func (l *Loader) ConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	if customPath := os.Getenv(l.envPrefix + "_CONFIG"); customPath != "" {
		return customPath
	}
	return filepath.Join(xdg.ConfigHome, l.appName, "config.yaml")
}

// applyEnvironmentOverrides applies <PREFIX>_<SECTION>_<KEY> variables, e.g.
// JENKINS_ACCEPTANCE_JENKINS_URL.
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	v := viper.New()
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	for key, field := range config.fields() {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
		if v.IsSet(key) {
			*field = v.GetString(key)
		}
	}

	return nil
}

// Save writes config to the user config file.
func (l *Loader) Save(config *Config) error {
	configPath := l.ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
