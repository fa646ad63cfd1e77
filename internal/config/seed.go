package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relwatch/relwatch/internal/core"
)

// seedFile is the YAML import format for bootstrapping a project set.
type seedFile struct {
	Projects []seedProject `yaml:"projects"`
}

type seedProject struct {
	Name          string   `yaml:"name"`
	Homepage      string   `yaml:"homepage"`
	Ecosystem     string   `yaml:"ecosystem"`
	Backend       string   `yaml:"backend"`
	VersionURL    string   `yaml:"version_url"`
	VersionRegex  string   `yaml:"version_regex"`
	VersionPrefix string   `yaml:"version_prefix"`
	VersionScheme string   `yaml:"version_scheme"`
	Insecure      bool     `yaml:"insecure"`
	FetchTimeout  duration `yaml:"fetch_timeout"`
}

// duration accepts Go duration strings ("30s") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

// LoadSeed parses a YAML seed file into projects ready for insertion.
func LoadSeed(path string) ([]core.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	projects := make([]core.Project, 0, len(seed.Projects))
	for i, sp := range seed.Projects {
		if sp.Name == "" {
			return nil, fmt.Errorf("seed project %d: name is required", i)
		}
		projects = append(projects, core.Project{
			Name:          sp.Name,
			Homepage:      sp.Homepage,
			Ecosystem:     sp.Ecosystem,
			Backend:       sp.Backend,
			VersionURL:    sp.VersionURL,
			VersionRegex:  sp.VersionRegex,
			VersionPrefix: sp.VersionPrefix,
			VersionScheme: sp.VersionScheme,
			Insecure:      sp.Insecure,
			FetchTimeout:  time.Duration(sp.FetchTimeout),
		})
	}
	return projects, nil
}
