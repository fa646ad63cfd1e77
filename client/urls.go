package client

import "fmt"

// URLBuilder constructs user-facing URLs for a backend.
type URLBuilder interface {
	// Project is the upstream page for a project.
	Project(name string) string

	// Releases is the location version listings are fetched from.
	Releases(name string) string

	// PURL is the package URL for a project, optionally versioned.
	PURL(name, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	ProjectFn  func(name string) string
	ReleasesFn func(name string) string
	PURLFn     func(name, version string) string
}

func (b *BaseURLs) Project(name string) string {
	if b.ProjectFn != nil {
		return b.ProjectFn(name)
	}
	return ""
}

func (b *BaseURLs) Releases(name string) string {
	if b.ReleasesFn != nil {
		return b.ReleasesFn(name)
	}
	return ""
}

func (b *BaseURLs) PURL(name, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(name, version)
	}
	return fmt.Sprintf("pkg:%s/%s", "generic", name)
}

// BuildURLs returns a map of all non-empty URLs for a project.
// Keys are "project", "releases", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Project(name); v != "" {
		result["project"] = v
	}
	if v := urls.Releases(name); v != "" {
		result["releases"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}
