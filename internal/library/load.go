package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for descriptor files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("library: unsupported descriptor format")

// IsDescriptorFile reports whether name looks like a library descriptor.
// Files starting with "_" are reserved for registry metadata.
func IsDescriptorFile(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// Load reads a single descriptor document. Unknown keys are ignored.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lib, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return lib, nil
}

// Decode parses a descriptor document of the format named by ext.
func Decode(ext string, data []byte) (*Library, error) {
	lib := &Library{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, lib); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), lib); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := lib.normalize(); err != nil {
		return nil, err
	}
	return lib, nil
}
