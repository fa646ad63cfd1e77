package core

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with project helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the form backends expect.
// For npm: "@babel/core".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:pypi/requests) and version PURLs
// (pkg:pypi/requests@2.31.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// purlTypeEcosystem maps purl types to ecosystem identifiers where the two
// vocabularies differ.
var purlTypeEcosystem = map[string]string{
	"deb":     "debian",
	"generic": "folder",
}

// ProjectFromPURL builds a project skeleton from a package URL. The
// repository_url qualifier, when present, overrides the fetch location.
func ProjectFromPURL(purl string) (*Project, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, err
	}

	eco := p.Type
	if mapped, ok := purlTypeEcosystem[p.Type]; ok {
		eco = mapped
	}

	mu.RLock()
	_, known := factories[eco]
	mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("unsupported purl type %q: %w", p.Type, ErrNotFound)
	}

	return &Project{
		Name:       p.FullName(),
		Ecosystem:  eco,
		VersionURL: p.Qualifiers.Map()["repository_url"],
	}, nil
}
