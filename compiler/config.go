package compiler

import (
	"context"
	"io"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is the optional on-disk compiler configuration (wavec.yaml).
type Config struct {
	// LibraryDirs are probed for top-level imports.
	LibraryDirs []string `yaml:"libraryDirs,omitempty"`
	Logging     struct {
		Level  string   `yaml:"level,omitempty"`
		Output []string `yaml:"output,omitempty"`
	} `yaml:"logging,omitempty"`
}

// LoadConfig reads a yaml config file through the afs service. A
// missing file yields the zero config.
func LoadConfig(ctx context.Context, fs afs.Service, url string) (*Config, error) {
	config := &Config{}
	if fs == nil {
		fs = afs.New()
	}
	if ok, err := fs.Exists(ctx, url); err != nil || !ok {
		return config, nil
	}
	reader, err := fs.OpenURL(ctx, url)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}
