// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ProjectTemplate returns the project written by init.
func ProjectTemplate(namespace, name string) *Config {
	nsfw := false
	return &Config{
		Meta: MetaSection{SchemaVersion: SchemaVersion},
		Package: PackageSection{
			Namespace:           namespace,
			Name:                name,
			VersionNumber:       "0.0.1",
			Description:         "Example mod description",
			WebsiteURL:          "https://example.com/",
			ContainsNSFWContent: &nsfw,
			Dependencies:        map[string]string{},
		},
		Build: BuildSection{
			Icon:   "./icon.png",
			Readme: "./README.md",
			OutDir: "./build",
			Copy:   []CopyPath{{Source: "./dist", Target: ""}},
		},
		Publish: PublishSection{
			Repository:  DefaultRepository,
			Communities: []string{"riskofrain2"},
			Categories:  []string{},
			CommunityCategories: map[string][]string{
				"riskofrain2": {"items", "skills"},
			},
		},
	}
}

// MarshalProject encodes cfg as a project file.
func MarshalProject(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding project file: %w", err)
	}
	return buf.Bytes(), nil
}
