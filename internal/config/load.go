// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/modcrate/modcrate/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "modcrate"
	// ProjectFileName is the project configuration file.
	ProjectFileName = "modcrate.toml"
	// UserFileName is the per-user configuration file inside ConfigDir.
	UserFileName = "config.toml"
	// EnvPrefix prefixes every environment variable the tool reads.
	EnvPrefix = "MODCRATE"

	// SchemaVersion is written by init and accepted by Load.
	SchemaVersion = "0.0.1"
	// DefaultRepository is the repository used when none is configured.
	DefaultRepository = "https://thunderstore.io"
	// DefaultConcurrency is the default number of parts uploaded at once.
	DefaultConcurrency = 8

	// maxProjectFileBytes bounds the project file read.
	maxProjectFileBytes = 1 << 20
)

// ErrProjectNotFound is returned when a required project file is absent.
var ErrProjectNotFound = errors.New("project file not found")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ProjectFilePath is the project file to read. Empty means
		// ./modcrate.toml.
		ProjectFilePath string
		// RequireProject fails the load when the project file is absent.
		RequireProject bool
		// ConfigDirPath overrides the user configuration directory.
		ConfigDirPath string
		// Overrides are values from command-line flags.
		Overrides Overrides
	}

	// Overrides carries command-line flag values. Empty fields are unset.
	Overrides struct {
		Repository  string
		Token       string
		Namespace   string
		Name        string
		Version     string
		Concurrency int
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load resolves every layer and returns the merged configuration.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return Load(ctx, opts)
}

// Defaults returns the built-in lowest-precedence layer.
func Defaults() *Config {
	return &Config{
		Meta: MetaSection{SchemaVersion: SchemaVersion},
		Build: BuildSection{
			Icon:   "./icon.png",
			Readme: "./README.md",
			OutDir: "./build",
		},
		Publish: PublishSection{
			Repository:  DefaultRepository,
			Concurrency: DefaultConcurrency,
		},
	}
}

// ConfigDir returns the modcrate user configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load merges, from lowest to highest precedence, the user file, the
// project file, the environment and opts.Overrides, then fills anything
// still unset from Defaults.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	cfg := &Config{}

	user, err := loadUser(opts.ConfigDirPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(user, MergeAlwaysOverride)

	projectPath := opts.ProjectFilePath
	if projectPath == "" {
		projectPath = ProjectFileName
	}
	project, err := LoadProject(projectPath)
	switch {
	case errors.Is(err, ErrProjectNotFound) && !opts.RequireProject:
		abs, absErr := filepath.Abs(filepath.Dir(projectPath))
		if absErr != nil {
			return nil, fmt.Errorf("resolving project directory: %w", absErr)
		}
		cfg.ProjectDir = abs
	case err != nil:
		return nil, err
	default:
		cfg.Merge(project, MergeAlwaysOverride)
	}

	cfg.Merge(envLayer(), MergeAlwaysOverride)
	cfg.Merge(opts.Overrides.layer(), MergeAlwaysOverride)
	cfg.Merge(Defaults(), MergeOverrideIfUnset)

	return cfg, nil
}

// LoadProject strictly decodes a project file. Unknown keys are errors so
// typos do not silently drop settings.
func LoadProject(path string) (*Config, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(path).
			WithSuggestion("Run 'modcrate init' to create a project file").
			WithSuggestion("Pass --config-path to point at an existing modcrate.toml").
			WithIssue(issue.ProjectNotFoundID).
			Wrap(ErrProjectNotFound).
			BuildError()
	}
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	if info.Size() > maxProjectFileBytes {
		return nil, fmt.Errorf("project file %s exceeds %d bytes", path, maxProjectFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse project file").
			WithResource(path).
			WithSuggestion("Check that the file contains valid TOML").
			WithSuggestion("Compare it with the file written by 'modcrate init'").
			WithIssue(issue.ProjectParseFailedID).
			Wrap(describeTOMLError(err)).
			BuildError()
	}

	if cfg.Meta.SchemaVersion != "" && cfg.Meta.SchemaVersion != SchemaVersion {
		return nil, issue.NewErrorContext().
			WithOperation("parse project file").
			WithResource(path).
			WithSuggestion(fmt.Sprintf("Set [config] schema_version = %q", SchemaVersion)).
			WithIssue(issue.ProjectParseFailedID).
			Wrap(fmt.Errorf("unsupported schema_version %q", cfg.Meta.SchemaVersion)).
			BuildError()
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	cfg.ProjectDir = abs
	return &cfg, nil
}

// describeTOMLError adds position details the decoder keeps out of Error().
func describeTOMLError(err error) error {
	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		row, col := decErr.Position()
		return fmt.Errorf("line %d, column %d: %w", row, col, err)
	}
	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		return fmt.Errorf("%w\n%s", err, strictErr.String())
	}
	return err
}

// loadUser reads the per-user file through viper. A missing file is an
// empty layer.
func loadUser(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	path := filepath.Join(configDir, UserFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load user configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid TOML").
			Wrap(err).
			BuildError()
	}

	return &Config{
		Package: PackageSection{
			Namespace: v.GetString("package.namespace"),
		},
		Publish: PublishSection{
			Repository:  v.GetString("publish.repository"),
			Token:       v.GetString("publish.token"),
			Concurrency: v.GetInt("publish.concurrency"),
		},
	}, nil
}

// envLayer reads MODCRATE_TOKEN, MODCRATE_REPOSITORY, MODCRATE_CONCURRENCY
// and MODCRATE_NAMESPACE through viper.
func envLayer() *Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"token", "repository", "concurrency", "namespace"} {
		_ = v.BindEnv(key) //nolint:errcheck // BindEnv only fails without a key.
	}

	return &Config{
		Package: PackageSection{Namespace: v.GetString("namespace")},
		Publish: PublishSection{
			Repository:  v.GetString("repository"),
			Token:       v.GetString("token"),
			Concurrency: v.GetInt("concurrency"),
		},
	}
}

func (o Overrides) layer() *Config {
	return &Config{
		Package: PackageSection{
			Namespace:     o.Namespace,
			Name:          o.Name,
			VersionNumber: o.Version,
		},
		Publish: PublishSection{
			Repository:  o.Repository,
			Token:       o.Token,
			Concurrency: o.Concurrency,
		},
	}
}
