package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ExclusionsFile is an optional side file (exclusions.yml) so a long
// blocklist can be managed separately from the main config.
type ExclusionsFile struct {
	ExcludeCompanies []string `yaml:"exclude_companies"`
}

// OverlayExclusions merges exclusions.yml into the filter blocklist. A
// missing file is not an error.
func OverlayExclusions(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var ef ExclusionsFile
	if err := yaml.Unmarshal(b, &ef); err != nil {
		return err
	}
	if len(ef.ExcludeCompanies) > 0 {
		cfg.Filters.ExcludeCompanies = append(cfg.Filters.ExcludeCompanies, ef.ExcludeCompanies...)
		cfg.Filters.ExcludeCompanies = trimList(cfg.Filters.ExcludeCompanies)
	}
	return nil
}
