// Package debian provides a version backend scraping the Debian source
// archive pool for upstream tarballs.
package debian

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "http://ftp.debian.org/debian"
	ecosystem  = "debian"
)

// origSuffix is the packaging marker Debian appends to upstream tarball
// versions. It is stripped before generic normalization so "2.4.1.orig"
// orders as "2.4.1".
var origSuffix = regexp.MustCompile(`\.orig$`)

func init() {
	core.Register(ecosystem, DefaultURL, func(baseURL string, client *core.Client) core.Backend {
		return New(baseURL, client)
	})
}

type Backend struct {
	baseURL string
	client  *core.Client
	urls    *core.BaseURLs
}

func New(baseURL string, client *core.Client) *Backend {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	b := &Backend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	b.urls = &core.BaseURLs{
		ProjectFn: func(name string) string {
			return fmt.Sprintf("https://tracker.debian.org/pkg/%s", name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/pool/main/%s/%s/", b.baseURL, poolPrefix(name), name)
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:deb/debian/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:deb/debian/%s", name)
		},
	}
	return b
}

// poolPrefix returns the pool shard for a package: the first letter, or
// "lib<x>" for library packages.
func poolPrefix(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "lib") && len(name) > 3 {
		return name[:4]
	}
	return name[:1]
}

func (b *Backend) Ecosystem() string {
	return ecosystem
}

func (b *Backend) URLs() core.URLBuilder {
	return b.urls
}

// VersionCleanup strips the ".orig" marker during normalization.
func (b *Backend) VersionCleanup() *regexp.Regexp {
	return origSuffix
}

// FetchVersions scrapes the package's pool directory for upstream tarballs.
// Raw strings keep the ".orig" marker; VersionCleanup removes it later.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("debian backend requires a package name")
	}

	url := p.VersionURL
	if url == "" {
		url = b.urls.Releases(p.Name)
	}

	body, err := b.client.GetBody(ctx, url, core.ConfigFor(p))
	if err != nil {
		return nil, err
	}

	name := regexp.QuoteMeta(p.Name)
	pattern := regexp.MustCompile(fmt.Sprintf(`%s_([^\s"'/<>]+?\.orig)\.tar\.(?:gz|bz2|xz)`, name))

	var versions []string
	for _, m := range pattern.FindAllStringSubmatch(string(body), -1) {
		versions = append(versions, m[1])
	}
	if len(versions) == 0 {
		return nil, core.MalformedError(url, fmt.Errorf("no upstream tarballs matched for %s", p.Name))
	}
	return versions, nil
}
