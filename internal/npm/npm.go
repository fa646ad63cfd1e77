// Package npm provides a version backend for registry.npmjs.org.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	ecosystem  = "npm"
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
			return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/%s", b.baseURL, escapeName(name))
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:npm/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:npm/%s", name)
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

// escapeName keeps the scope separator literal, per the npm registry API.
func escapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(url.PathEscape(name), "%2F", "/", 1)
	}
	return url.PathEscape(name)
}

type packageResponse struct {
	Versions map[string]versionInfo `json:"versions"`
}

type versionInfo struct {
	Deprecated string `json:"deprecated"`
}

// FetchVersions lists the keys of the package document's versions map.
// Deprecated versions are skipped.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	reqURL := p.VersionURL
	if reqURL == "" {
		reqURL = b.urls.Releases(p.Name)
	}

	var resp packageResponse
	if err := b.client.GetJSON(ctx, reqURL, core.ConfigFor(p), &resp); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(resp.Versions))
	for num, info := range resp.Versions {
		if info.Deprecated != "" {
			continue
		}
		versions = append(versions, num)
	}
	return versions, nil
}
