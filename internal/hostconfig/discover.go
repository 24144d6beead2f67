// Package hostconfig locates and validates the upstream code-generator's
// configuration, the file that governs whether the relay compiler itself
// already dedupes common structures in the artifacts this tool consumes.
package hostconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// maxSearchDepth bounds the upward directory search.
const maxSearchDepth = 20

// configFilenames are the standalone config file names searched for, in
// order, at each directory level.
var configFilenames = []string{"relay.config.json", "relay.config.yml", "relay.config.yaml"}

// packageManifestKey is the key under which package.json may embed the
// configuration instead of a standalone file.
const packageManifestKey = "relay"

// requiredEnabledFlag must be true in host configuration.
const requiredEnabledFlag = "disable_deduping_common_structures_in_artifacts"

// requiredDisabledFlag must be false (or absent) in host configuration.
const requiredDisabledFlag = "enforce_fragment_alias_where_ambiguous"

// Config is the subset of the host's configuration this tool cares about.
// Unknown fields are ignored.
type Config struct {
	ArtifactDirectory string                 `json:"artifactDirectory" yaml:"artifactDirectory"`
	Raw               map[string]interface{} `json:"-" yaml:"-"`
}

// Discover searches upward from startDir for a host configuration file,
// returning (nil, nil) if none is found. The search stops at the first
// directory containing the file, a .git boundary, the filesystem root, or
// maxSearchDepth levels, whichever comes first.
func Discover(startDir string) (*Config, string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("abs path for %s: %w", startDir, err)
	}
	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		abs = resolved
	}

	dir := abs
	for depth := 0; depth < maxSearchDepth; depth++ {
		for _, name := range configFilenames {
			path := filepath.Join(dir, name)
			if data, readErr := os.ReadFile(path); readErr == nil {
				cfg, parseErr := parseConfig(path, data)
				if parseErr != nil {
					return nil, path, parseErr
				}
				slog.Debug("discovered host configuration", "path", path, "depth", depth)
				return cfg, path, nil
			}
		}

		manifestPath := filepath.Join(dir, "package.json")
		if data, readErr := os.ReadFile(manifestPath); readErr == nil {
			if cfg, ok, parseErr := parseManifest(data); parseErr != nil {
				return nil, manifestPath, parseErr
			} else if ok {
				slog.Debug("discovered host configuration in package.json", "path", manifestPath, "depth", depth)
				return cfg, manifestPath, nil
			}
		}

		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			slog.Debug("reached .git boundary, stopping host configuration search", "dir", dir, "depth", depth)
			return nil, "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			slog.Debug("reached filesystem root, no host configuration found")
			return nil, "", nil
		}
		dir = parent
	}

	slog.Debug("reached max search depth without finding host configuration", "maxDepth", maxSearchDepth)
	return nil, "", nil
}

// parseConfig decodes a standalone relay.config.(json|yml|yaml) file. JSON
// is tried first; on failure the same bytes are tried as YAML, since the
// file extension is not authoritative for every caller's tooling.
func parseConfig(path string, data []byte) (*Config, error) {
	raw := map[string]interface{}{}
	if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
		raw = map[string]interface{}{}
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return nil, fmt.Errorf("parse host configuration %s: not valid JSON (%v) or YAML (%v)", path, jsonErr, yamlErr)
		}
	}
	cfg := &Config{Raw: raw}
	if dir, ok := raw["artifactDirectory"].(string); ok {
		cfg.ArtifactDirectory = dir
	}
	return cfg, nil
}

// parseManifest looks for a top-level "relay" key in a package.json-shaped
// file. ok is false when the key is absent; that is not an error.
func parseManifest(data []byte) (*Config, bool, error) {
	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, false, fmt.Errorf("parse package manifest: %w", err)
	}
	section, ok := manifest[packageManifestKey]
	if !ok {
		return nil, false, nil
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(section, &raw); err != nil {
		return nil, false, fmt.Errorf("parse package manifest %q key: %w", packageManifestKey, err)
	}
	cfg := &Config{Raw: raw}
	if dir, ok := raw["artifactDirectory"].(string); ok {
		cfg.ArtifactDirectory = dir
	}
	return cfg, true, nil
}

// Validate checks the two feature flags this tool depends on. It returns a
// descriptive error when either flag is set incorrectly; a completely
// absent configuration is not itself an error (the caller decides whether
// that is acceptable).
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if enabled, _ := c.Raw[requiredEnabledFlag].(bool); !enabled {
		return fmt.Errorf("host configuration must set %q to true", requiredEnabledFlag)
	}
	if disabled, present := c.Raw[requiredDisabledFlag].(bool); present && disabled {
		return fmt.Errorf("host configuration must set %q to false", requiredDisabledFlag)
	}
	return nil
}
