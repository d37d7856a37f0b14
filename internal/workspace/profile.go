package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/manavgt54/idesync/internal/utils"
	"gopkg.in/yaml.v3"
)

// SyncProfile narrows which workspace files take part in sync. Include
// patterns are doublestar globs matched against workspace-relative paths;
// an empty include list means everything. Exclude wins over include.
type SyncProfile struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

func DefaultProfile() *SyncProfile {
	return &SyncProfile{
		Include: []string{"**"},
	}
}

// LoadProfile reads the sync profile from path. A missing file yields the
// default profile, not an error.
func LoadProfile(path string) (*SyncProfile, error) {
	if !utils.FileExists(path) {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	var profile SyncProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	slog.Info("sync profile loaded", "path", path, "include", len(profile.Include), "exclude", len(profile.Exclude))
	return &profile, nil
}

// Save writes the profile as YAML.
func (p *SyncProfile) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every glob pattern for syntax errors.
func (p *SyncProfile) Validate() error {
	for _, pattern := range append(p.Include, p.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("bad glob pattern: %q", pattern)
		}
	}
	return nil
}

// Matches reports whether a workspace-relative path is selected by the profile.
func (p *SyncProfile) Matches(relPath string) bool {
	for _, pattern := range p.Exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}

	if len(p.Include) == 0 {
		return true
	}
	for _, pattern := range p.Include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}
