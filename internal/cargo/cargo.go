// Package cargo provides a version backend for crates.io.
package cargo

import (
	"context"
	"fmt"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://crates.io"
	ecosystem  = "cargo"
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
			return fmt.Sprintf("%s/crates/%s", b.baseURL, name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/api/v1/crates/%s/versions", b.baseURL, name)
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:cargo/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:cargo/%s", name)
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

type versionsResponse struct {
	Versions []versionInfo `json:"versions"`
}

type versionInfo struct {
	Num    string `json:"num"`
	Yanked bool   `json:"yanked"`
}

// FetchVersions lists the crate's non-yanked version numbers.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	url := p.VersionURL
	if url == "" {
		url = b.urls.Releases(p.Name)
	}

	var resp versionsResponse
	if err := b.client.GetJSON(ctx, url, core.ConfigFor(p), &resp); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		if v.Yanked || v.Num == "" {
			continue
		}
		versions = append(versions, v.Num)
	}
	return versions, nil
}
