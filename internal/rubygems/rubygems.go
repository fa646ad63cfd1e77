// Package rubygems provides a version backend for rubygems.org.
package rubygems

import (
	"context"
	"fmt"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://rubygems.org"
	ecosystem  = "gem"
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
			return fmt.Sprintf("%s/gems/%s", b.baseURL, name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/api/v1/versions/%s.json", b.baseURL, name)
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:gem/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:gem/%s", name)
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

type versionInfo struct {
	Number string `json:"number"`
}

// FetchVersions lists the version numbers from the gem's versions endpoint.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	url := p.VersionURL
	if url == "" {
		url = b.urls.Releases(p.Name)
	}

	var resp []versionInfo
	if err := b.client.GetJSON(ctx, url, core.ConfigFor(p), &resp); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(resp))
	for _, v := range resp {
		if v.Number == "" {
			continue
		}
		versions = append(versions, v.Number)
	}
	return versions, nil
}
