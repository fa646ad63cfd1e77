// Package sourceforge provides a version backend reading a SourceForge
// project's file-release RSS feed.
package sourceforge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://sourceforge.net"
	ecosystem  = "sourceforge"
)

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
			return fmt.Sprintf("%s/projects/%s/", b.baseURL, name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/projects/%s/rss?limit=200", b.baseURL, name)
		},
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

type rss struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title string `xml:"title"`
}

// FetchVersions scans the feed's item titles (released file paths) for
// version-bearing archive names.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	url := p.VersionURL
	if url == "" {
		url = b.urls.Releases(p.Name)
	}

	var feed rss
	if err := b.client.GetXML(ctx, url, core.ConfigFor(p), &feed); err != nil {
		return nil, err
	}

	pattern, err := itemPattern(p)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, item := range feed.Channel.Items {
		if m := pattern.FindStringSubmatch(item.Title); m != nil {
			versions = append(versions, m[1])
		}
	}
	if len(versions) == 0 {
		return nil, core.MalformedError(url, fmt.Errorf("no release files matched %q", pattern))
	}
	return versions, nil
}

func itemPattern(p *core.Project) (*regexp.Regexp, error) {
	if p.VersionRegex != "" {
		return regexp.Compile(p.VersionRegex)
	}
	name := regexp.QuoteMeta(p.Name)
	return regexp.Compile(fmt.Sprintf(`(?i)%s[-_]([^/\s]+?)\.(?:tar\.gz|tar\.bz2|tar\.xz|tgz|zip)`, name))
}
