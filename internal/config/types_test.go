// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestMerge_OverrideIfUnset(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Package: PackageSection{Namespace: "Ns"},
		Build:   BuildSection{Icon: "./mine.png"},
	}
	cfg.Merge(&Config{
		Package: PackageSection{Namespace: "Other", Name: "Pkg", ContainsNSFWContent: boolPtr(true)},
		Build:   BuildSection{Icon: "./icon.png", Readme: "./README.md"},
	}, MergeOverrideIfUnset)

	if cfg.Package.Namespace != "Ns" {
		t.Errorf("set field was overridden: %q", cfg.Package.Namespace)
	}
	if cfg.Package.Name != "Pkg" || cfg.Build.Readme != "./README.md" || !cfg.Package.NSFW() {
		t.Errorf("unset fields were not filled: %+v %+v", cfg.Package, cfg.Build)
	}
	if cfg.Build.Icon != "./mine.png" {
		t.Errorf("icon = %q", cfg.Build.Icon)
	}
}

func TestMerge_AlwaysOverrideKeepsUnsetFields(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Package: PackageSection{Namespace: "Ns", ContainsNSFWContent: boolPtr(true)},
		Publish: PublishSection{Communities: []string{"a"}, Concurrency: 2},
	}
	cfg.Merge(&Config{
		Package: PackageSection{Namespace: "Other", ContainsNSFWContent: boolPtr(false)},
		Publish: PublishSection{Communities: []string{"b", "c"}},
	}, MergeAlwaysOverride)

	if cfg.Package.Namespace != "Other" || cfg.Package.NSFW() {
		t.Errorf("package = %+v", cfg.Package)
	}
	if strings.Join(cfg.Publish.Communities, ",") != "b,c" {
		t.Errorf("communities = %v", cfg.Publish.Communities)
	}
	if cfg.Publish.Concurrency != 2 {
		t.Errorf("unset field in the override layer cleared concurrency: %d", cfg.Publish.Concurrency)
	}
}

func TestMerge_ClonesCollections(t *testing.T) {
	t.Parallel()
	src := &Config{Package: PackageSection{Dependencies: map[string]string{"A-B": "1.0.0"}}}
	cfg := &Config{}
	cfg.Merge(src, MergeAlwaysOverride)
	src.Package.Dependencies["A-B"] = "9.9.9"
	if cfg.Package.Dependencies["A-B"] != "1.0.0" {
		t.Error("merged map aliases the source layer")
	}
}

func validConfig() *Config {
	return &Config{
		Package: PackageSection{Namespace: "Ns", Name: "Pkg", VersionNumber: "1.0.0"},
		Publish: PublishSection{Repository: "https://repo.example.com", Token: "t", Communities: []string{"c"}},
	}
}

func TestValidateBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing namespace", mutate: func(c *Config) { c.Package.Namespace = "" }, problem: "package.namespace is required"},
		{name: "bad name", mutate: func(c *Config) { c.Package.Name = "my-mod" }, problem: "letters, digits and underscores"},
		{name: "bad version", mutate: func(c *Config) { c.Package.VersionNumber = "1.0" }, problem: "version_number"},
		{name: "bad dependency key", mutate: func(c *Config) { c.Package.Dependencies = map[string]string{"NoDash": "1.0.0"} }, problem: "Namespace-Name"},
		{name: "bad dependency version", mutate: func(c *Config) { c.Package.Dependencies = map[string]string{"A-B": "latest"} }, problem: "dependencies.A-B"},
		{name: "relative website", mutate: func(c *Config) { c.Package.WebsiteURL = "example.com" }, problem: "website_url"},
		{name: "empty copy source", mutate: func(c *Config) { c.Build.Copy = []CopyPath{{Target: "x"}} }, problem: "build.copy[0].source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateBuild()
			if tt.problem == "" {
				if err != nil {
					t.Fatalf("ValidateBuild() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), tt.problem) {
				t.Fatalf("ValidateBuild() error = %v, want problem containing %q", err, tt.problem)
			}
		})
	}
}

func TestValidateBuild_ReportsAllProblems(t *testing.T) {
	t.Parallel()
	err := (&Config{}).ValidateBuild()
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", err)
	}
}

func TestValidatePublish(t *testing.T) {
	t.Parallel()
	if err := validConfig().ValidatePublish(); err != nil {
		t.Fatalf("ValidatePublish() error = %v", err)
	}

	cfg := validConfig()
	cfg.Publish.Token = ""
	cfg.Publish.Communities = nil
	cfg.Publish.CommunityCategories = map[string][]string{"elsewhere": {"x"}}
	var ve *ValidationError
	if err := cfg.ValidatePublish(); !errors.As(err, &ve) || len(ve.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", err)
	}
}
