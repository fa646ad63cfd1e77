// Package folder provides a version backend scraping generic HTTP or FTP
// directory listings for release archives.
package folder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const ecosystem = "folder"

func init() {
	core.Register(ecosystem, "", func(baseURL string, client *core.Client) core.Backend {
		return New(baseURL, client)
	})
}

type Backend struct {
	client *core.Client
	urls   *core.BaseURLs
}

func New(_ string, client *core.Client) *Backend {
	// Folder projects carry their own listing URL; there is no shared base.
	b := &Backend{client: client}
	b.urls = &core.BaseURLs{
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:generic/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:generic/%s", name)
		},
	}
	return b
}

func (b *Backend) Ecosystem() string {
	return ecosystem
}

func (b *Backend) URLs() core.URLBuilder {
	return b.urls
}

// FetchVersions downloads the listing at the project's VersionURL and
// scrapes it with the project regex (or a default archive-name pattern).
// The project's insecure flag is honored on every call, which matters for
// upstreams with self-signed certificates.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	url := p.VersionURL
	if url == "" {
		return nil, fmt.Errorf("project %s: folder backend requires a version URL", p.Name)
	}

	body, err := b.client.GetBody(ctx, url, core.ConfigFor(p))
	if err != nil {
		return nil, err
	}

	pattern, err := ListingPattern(p)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, m := range pattern.FindAllStringSubmatch(string(body), -1) {
		if len(m) > 1 && m[1] != "" {
			versions = append(versions, m[1])
		}
	}
	if len(versions) == 0 {
		return nil, core.MalformedError(url, fmt.Errorf("no entries matched %q", pattern))
	}
	return versions, nil
}

// ListingPattern returns the scrape pattern for a project: its configured
// VersionRegex, or a default matching "<name>[-_]<version>.<archive ext>".
func ListingPattern(p *core.Project) (*regexp.Regexp, error) {
	if p.VersionRegex != "" {
		return regexp.Compile(p.VersionRegex)
	}
	name := regexp.QuoteMeta(strings.ToLower(p.Name))
	return regexp.Compile(fmt.Sprintf(
		`(?i)%s[-_]([^-/_\s"'<>]+?)\.(?:tar\.gz|tar\.bz2|tar\.xz|tgz|tbz2|zip)`, name))
}
